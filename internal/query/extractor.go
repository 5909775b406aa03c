// Package query recovers table and column provenance from SELECT text.
//
// It recognises a fixed set of statement shapes (see Shape), checks every
// referenced table against the live schema and assigns each projected
// column to the table it comes from. It is not a SQL parser: anything
// outside the recognised shapes fails with an UnsupportedConstruct error.
package query

import (
	"context"
	"strings"

	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/schema"
)

// AliasMap maps a projection alias to the expression text it labels.
type AliasMap map[string]string

// ShapeInfo is everything extracted from one SELECT statement.
type ShapeInfo struct {
	Shape Shape
	// Query is the normalized text the shape was read from.
	Query string
	// Tables in FROM order, join table last.
	Tables []string
	// TableAliases maps lower-cased FROM aliases to table names.
	TableAliases map[string]string
	Columns      ProjectionList
	// Aliases records "expr AS alias" labels. Later references to an alias
	// are not resolved through it; aliases only name output columns.
	Aliases AliasMap
}

// Scope returns the resolution scope of the statement.
func (s *ShapeInfo) Scope() Scope {
	return Scope{Tables: s.Tables, Aliases: s.TableAliases}
}

// Extractor builds ShapeInfo for SELECT statements.
type Extractor struct {
	inspector *schema.Inspector
	resolver  *Resolver
}

// NewExtractor creates an extractor backed by inspector.
func NewExtractor(inspector *schema.Inspector) *Extractor {
	return &Extractor{
		inspector: inspector,
		resolver:  NewResolver(inspector),
	}
}

// Extract classifies queryText and resolves its projection. It fails on the
// first unsupported construct, missing table or unresolvable column; no
// partial result is returned.
func (e *Extractor) Extract(ctx context.Context, queryText string) (*ShapeInfo, error) {
	src := Normalize(queryText)
	stmt, err := parse(src)
	if err != nil {
		return nil, err
	}

	info := &ShapeInfo{
		Shape:        stmt.shape,
		Query:        src,
		TableAliases: make(map[string]string),
		Aliases:      make(AliasMap),
	}
	refs := stmt.tables
	if stmt.join != nil {
		refs = append(refs, *stmt.join)
	}
	for _, ref := range refs {
		info.Tables = append(info.Tables, ref.Name)
		if ref.Alias != "" {
			info.TableAliases[strings.ToLower(ref.Alias)] = ref.Name
		}
	}

	for _, table := range info.Tables {
		exists, err := e.inspector.TableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &database.Error{Kind: database.KindTableNotFound, Table: table, Query: src}
		}
	}

	scope := info.Scope()
	for _, item := range stmt.items {
		cols, err := e.projectItem(ctx, src, item, scope, info.Aliases)
		if err != nil {
			return nil, withQuery(err, src)
		}
		info.Columns = append(info.Columns, cols...)
	}
	return info, nil
}

func (e *Extractor) projectItem(ctx context.Context, src string, item []token, scope Scope, aliases AliasMap) (ProjectionList, error) {
	n := len(item)
	switch {
	case n >= 3 && item[n-2].keyword("AS"):
		alias, ok := item[n-1].name()
		if !ok {
			break
		}
		expr := span(src, item[:n-2])
		aliases[alias] = expr
		ref, err := e.resolver.resolveTokens(ctx, src, item[:n-2], scope)
		if err != nil {
			return nil, err
		}
		return ProjectionList{ref}, nil

	case n == 1 && item[0].is("*"):
		var all ProjectionList
		for _, table := range scope.Tables {
			cols, err := e.expandTable(ctx, table)
			if err != nil {
				return nil, err
			}
			all = append(all, cols...)
		}
		return all, nil

	case n == 3 && item[1].is(".") && item[2].is("*"):
		qualifier, ok := item[0].name()
		if !ok {
			break
		}
		table := scope.table(qualifier)
		exists, err := e.inspector.TableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, &database.Error{Kind: database.KindTableNotFound, Table: table}
		}
		return e.expandTable(ctx, table)
	}

	ref, err := e.resolver.resolveTokens(ctx, src, item, scope)
	if err != nil {
		return nil, err
	}
	return ProjectionList{ref}, nil
}

func (e *Extractor) expandTable(ctx context.Context, table string) (ProjectionList, error) {
	names, err := e.inspector.ColumnNames(ctx, table)
	if err != nil {
		return nil, err
	}
	cols := make(ProjectionList, len(names))
	for i, name := range names {
		cols[i] = ColumnRef{Table: table, Column: name}
	}
	return cols, nil
}

// withQuery stamps the query text onto typed errors that lack it.
func withQuery(err error, query string) error {
	if e, ok := err.(*database.Error); ok && e.Query == "" {
		e.Query = query
	}
	return err
}
