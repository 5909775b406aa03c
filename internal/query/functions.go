package query

import "strings"

// globalFunctions are connection-level functions with no table provenance.
// A projection calling one of them cannot be typed and is rejected.
var globalFunctions = map[string]bool{
	"last_insert_rowid": true,
	"changes":           true,
	"total_changes":     true,
	"random":            true,
	"randomblob":        true,
	"sqlite_version":    true,
	"sqlite_source_id":  true,
}

// aggregateTypes maps each recognised aggregate to its result type.
// An empty type means the result takes the declared type of its argument.
var aggregateTypes = map[string]string{
	"count": "INTEGER",
	"total": "REAL",
	"avg":   "REAL",
	"sum":   "",
	"min":   "",
	"max":   "",
}

func isGlobalFunction(name string) bool {
	return globalFunctions[strings.ToLower(name)]
}

func isAggregate(name string) bool {
	_, ok := aggregateTypes[strings.ToLower(name)]
	return ok
}
