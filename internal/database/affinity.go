package database

import "strings"

// Affinity is the storage class a declared column type maps to.
type Affinity int

const (
	AffinityBlob Affinity = iota
	AffinityInteger
	AffinityText
	AffinityReal
	AffinityNumeric
	AffinityBoolean
	AffinityTemporal
)

func (a Affinity) String() string {
	switch a {
	case AffinityInteger:
		return "INTEGER"
	case AffinityText:
		return "TEXT"
	case AffinityReal:
		return "REAL"
	case AffinityNumeric:
		return "NUMERIC"
	case AffinityBoolean:
		return "BOOLEAN"
	case AffinityTemporal:
		return "TEMPORAL"
	default:
		return "BLOB"
	}
}

// AffinityOf applies SQLite's column affinity rules to a declared type, with
// two extra classes for BOOL and DATE/TIME declarations.
// Order matters: "POINT" is INTEGER because it contains "INT".
func AffinityOf(declared string) Affinity {
	t := strings.ToUpper(strings.TrimSpace(declared))
	switch {
	case t == "":
		return AffinityBlob
	case strings.Contains(t, "INT") && !strings.Contains(t, "INTERVAL"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"),
		t == "UUID", t == "JSON", t == "JSONB":
		return AffinityText
	case strings.Contains(t, "BLOB"), t == "BYTEA":
		return AffinityBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	case strings.HasPrefix(t, "BOOL"):
		return AffinityBoolean
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return AffinityTemporal
	default:
		return AffinityNumeric
	}
}

// IsJSONType reports whether declared names a JSON document type.
func IsJSONType(declared string) bool {
	switch strings.ToUpper(strings.TrimSpace(declared)) {
	case "JSON", "JSONB":
		return true
	}
	return false
}
