package database

import "time"

// Column represents a table column with its metadata.
type Column struct {
	Name       string
	DataType   string
	IsNullable bool
	IsPrimary  bool
	Default    string
	OrdinalPos int
}

// RawResult holds the untranslated output of a statement.
type RawResult struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	Duration     time.Duration
}

// RowCount returns the number of rows returned by the statement.
func (r *RawResult) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}
