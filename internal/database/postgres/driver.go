// Package postgres implements database.Engine for PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joacominatel/litequery/internal/database"
)

// Driver implements the database.Engine interface for PostgreSQL.
type Driver struct {
	pool   *pgxpool.Pool
	dbName string
}

var _ database.Engine = (*Driver)(nil)

// New creates a new PostgreSQL driver.
func New() *Driver {
	return &Driver{}
}

// Open establishes a single-connection pool to PostgreSQL.
func (d *Driver) Open(ctx context.Context, dsn string) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}

	// One session, one connection.
	cfg.MaxConns = 1
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping: %w", err)
	}

	d.pool = pool
	d.dbName = cfg.ConnConfig.Database
	return nil
}

// Close closes the connection pool.
func (d *Driver) Close() error {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	return nil
}

// Execute runs a SQL statement and returns its raw results.
func (d *Driver) Execute(ctx context.Context, sqlText string) (*database.RawResult, error) {
	if d.pool == nil {
		return nil, fmt.Errorf("not connected")
	}
	start := time.Now()

	rows, err := d.pool.Query(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var resultRows [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &database.RawResult{
		Columns:      columns,
		Rows:         resultRows,
		RowsAffected: rows.CommandTag().RowsAffected(),
		Duration:     time.Since(start),
	}, nil
}

// TableInfo returns column metadata for a table in the current schema.
func (d *Driver) TableInfo(ctx context.Context, table string) ([]database.Column, error) {
	if d.pool == nil {
		return nil, fmt.Errorf("not connected")
	}

	rows, err := d.pool.Query(ctx, queryGetColumns, table)
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}
	defer rows.Close()

	var columns []database.Column
	for rows.Next() {
		var col database.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.Default, &col.OrdinalPos, &col.IsPrimary); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.IsNullable = nullable == "YES"
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// ListTables returns all base tables in the current schema.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	if d.pool == nil {
		return nil, fmt.Errorf("not connected")
	}

	rows, err := d.pool.Query(ctx, queryListTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Translate normalises pgx values and then applies the declared type.
func (d *Driver) Translate(declaredType string, raw any) (any, error) {
	v, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	return database.Coerce(declaredType, v)
}

// Name returns the name of the connected database.
func (d *Driver) Name() string {
	return d.dbName
}

// normalize maps pgx's decoded values onto the small set of Go types the
// rest of the pipeline works with.
func normalize(raw any) (any, error) {
	switch v := raw.(type) {
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case pgtype.Numeric:
		if !v.Valid {
			return nil, nil
		}
		f, err := v.Float64Value()
		if err != nil {
			return nil, fmt.Errorf("numeric: %w", err)
		}
		return f.Float64, nil
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", v[0:4], v[4:6], v[6:8], v[8:10], v[10:16]), nil
	default:
		return raw, nil
	}
}
