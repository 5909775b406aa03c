// Package sqlite implements database.Engine on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/query"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Driver implements database.Engine for a single SQLite file.
type Driver struct {
	db     *sql.DB
	path   string
	dbName string
}

var _ database.Engine = (*Driver)(nil)

// New creates a new SQLite driver.
func New() *Driver {
	return &Driver{}
}

// Open opens (creating if necessary) the SQLite file at path.
func (d *Driver) Open(ctx context.Context, path string) error {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}

	// One session, one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, pragmaForeignKeys); err != nil {
		db.Close()
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	d.db = db
	d.path = path
	d.dbName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return nil
}

// Close closes the connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Execute runs a statement. Row-returning statements are read fully.
func (d *Driver) Execute(ctx context.Context, sqlText string) (*database.RawResult, error) {
	if d.db == nil {
		return nil, fmt.Errorf("not connected")
	}
	start := time.Now()

	if !returnsRows(sqlText) {
		res, err := d.db.ExecContext(ctx, sqlText)
		if err != nil {
			return nil, fmt.Errorf("execute: %w", err)
		}
		affected, _ := res.RowsAffected()
		return &database.RawResult{
			RowsAffected: affected,
			Duration:     time.Since(start),
		}, nil
	}

	rows, err := d.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var resultRows [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &database.RawResult{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

// TableInfo returns column metadata for a table using pragma_table_info.
func (d *Driver) TableInfo(ctx context.Context, table string) ([]database.Column, error) {
	if d.db == nil {
		return nil, fmt.Errorf("not connected")
	}

	rows, err := d.db.QueryContext(ctx, queryTableInfo, table)
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []database.Column
	for rows.Next() {
		var (
			cid        int
			col        database.Column
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.IsNullable = notNull == 0
		col.IsPrimary = pk > 0
		col.Default = defaultVal.String
		col.OrdinalPos = cid + 1
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// ListTables returns all user table names.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	if d.db == nil {
		return nil, fmt.Errorf("not connected")
	}

	rows, err := d.db.QueryContext(ctx, queryListTables)
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

// Translate converts a value read from SQLite into the native representation
// of the declared type.
func (d *Driver) Translate(declaredType string, raw any) (any, error) {
	return database.Coerce(declaredType, raw)
}

// Name returns the database file name without extension.
func (d *Driver) Name() string {
	return d.dbName
}

// Path returns the file the driver was opened on.
func (d *Driver) Path() string {
	return d.path
}

// returnsRows reports whether a statement should go through Query rather
// than Exec. Comments and string literals are ignored.
func returnsRows(sqlText string) bool {
	switch query.FirstKeyword(sqlText) {
	case "SELECT", "WITH", "PRAGMA", "VALUES", "EXPLAIN":
		return true
	case "":
		return false
	}
	return query.HasKeyword(sqlText, "RETURNING")
}
