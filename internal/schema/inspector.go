// Package schema answers questions about the live database schema.
//
// Every call goes back to the engine. Nothing is cached, so DDL executed
// earlier in a session is visible to the next lookup.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/joacominatel/litequery/internal/database"
)

// ColumnSource is the part of database.Engine the inspector needs.
type ColumnSource interface {
	TableInfo(ctx context.Context, table string) ([]database.Column, error)
	ListTables(ctx context.Context) ([]string, error)
}

// Inspector reads table and column metadata from a ColumnSource.
type Inspector struct {
	src ColumnSource
}

// NewInspector creates an inspector over src.
func NewInspector(src ColumnSource) *Inspector {
	return &Inspector{src: src}
}

// ColumnMetadata returns the columns of table in declaration order.
// A missing table yields an empty slice.
func (i *Inspector) ColumnMetadata(ctx context.Context, table string) ([]database.Column, error) {
	cols, err := i.src.TableInfo(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("column metadata for %s: %w", table, err)
	}
	return cols, nil
}

// TableExists reports whether table has any columns.
func (i *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	cols, err := i.ColumnMetadata(ctx, table)
	if err != nil {
		return false, err
	}
	return len(cols) > 0, nil
}

// HasColumn reports whether table has a column named column.
// Names compare case-insensitively, as SQL identifiers do.
func (i *Inspector) HasColumn(ctx context.Context, table, column string) (bool, error) {
	_, ok, err := i.DeclaredType(ctx, table, column)
	return ok, err
}

// ColumnNames returns the column names of table in declaration order.
func (i *Inspector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	cols, err := i.ColumnMetadata(ctx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for idx, c := range cols {
		names[idx] = c.Name
	}
	return names, nil
}

// DeclaredType returns the declared SQL type of table.column.
func (i *Inspector) DeclaredType(ctx context.Context, table, column string) (string, bool, error) {
	cols, err := i.ColumnMetadata(ctx, table)
	if err != nil {
		return "", false, err
	}
	for _, c := range cols {
		if strings.EqualFold(c.Name, column) {
			return c.DataType, true, nil
		}
	}
	return "", false, nil
}

// Tables returns every user table.
func (i *Inspector) Tables(ctx context.Context) ([]string, error) {
	tables, err := i.src.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}
