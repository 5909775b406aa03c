// Package format casts raw engine values by declared column type and shapes
// result rows into positional arrays or name-keyed records.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joacominatel/litequery/internal/database"
)

// Mode selects the output shape of result rows.
type Mode int

const (
	// ModeArray returns each row as a positional slice.
	ModeArray Mode = iota
	// ModeRecord returns each row as an ordered name → value record.
	ModeRecord
)

func (m Mode) String() string {
	if m == ModeRecord {
		return "record"
	}
	return "array"
}

// ParseMode parses "array" or "record". The empty string means ModeArray.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "array":
		return ModeArray, nil
	case "record":
		return ModeRecord, nil
	default:
		return ModeArray, fmt.Errorf("unknown return format %q (want array or record)", s)
	}
}

// Field is one named value of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered mapping from column name to value.
type Record []Field

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Name
	}
	return keys
}

// MarshalJSON encodes the record as a JSON object, keeping field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Output is the formatted result of a query. Exactly one of Rows and
// Records is populated, depending on the mode.
type Output struct {
	Mode    Mode
	Rows    [][]any
	Records []Record
}

// Len returns the number of rows.
func (o Output) Len() int {
	if o.Mode == ModeRecord {
		return len(o.Records)
	}
	return len(o.Rows)
}

// Format shapes cast rows. In record mode a column name that appears twice
// fails the whole call with an AmbiguousColumnName error.
func Format(rows [][]any, columnNames []string, mode Mode) (Output, error) {
	if mode != ModeRecord {
		return Output{Mode: ModeArray, Rows: rows}, nil
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row, columnNames)
		if err != nil {
			return Output{}, err
		}
		records = append(records, rec)
	}
	return Output{Mode: ModeRecord, Records: records}, nil
}

func toRecord(row []any, columnNames []string) (Record, error) {
	if len(row) != len(columnNames) {
		return nil, fmt.Errorf("%w: %d values for %d columns", ErrProjectionMismatch, len(row), len(columnNames))
	}
	rec := make(Record, 0, len(row))
	seen := make(map[string]struct{}, len(row))
	for i, name := range columnNames {
		if _, dup := seen[name]; dup {
			return nil, &database.Error{Kind: database.KindAmbiguousColumnName, Column: name}
		}
		seen[name] = struct{}{}
		rec = append(rec, Field{Name: name, Value: row[i]})
	}
	return rec, nil
}
