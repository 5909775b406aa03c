package database

import "context"

// Engine is the boundary to the SQL engine that actually runs queries.
// An Engine holds exactly one connection and is not safe for concurrent use.
type Engine interface {
	// Open connects to the database named by target (a file path or a DSN).
	Open(ctx context.Context, target string) error

	// Close releases the connection. Calling Close twice is a no-op.
	Close() error

	// Execute runs sqlText and returns the column names and raw rows.
	Execute(ctx context.Context, sqlText string) (*RawResult, error)

	// TableInfo returns column metadata for a table in declaration order.
	// A missing table yields an empty slice, not an error.
	TableInfo(ctx context.Context, table string) ([]Column, error)

	// ListTables returns all user table names.
	ListTables(ctx context.Context) ([]string, error)

	// Translate converts a raw value into the native Go representation of
	// the given declared SQL type.
	Translate(declaredType string, raw any) (any, error)

	// Name returns a display name for the connected database.
	Name() string
}
