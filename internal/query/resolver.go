package query

import (
	"context"
	"strings"

	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/schema"
)

// ColumnRef is the provenance of one projected value.
//
// For aggregates Column holds the call text, e.g. "count(name)", Aggregate
// the lower-cased function name and Source the argument column ("" for
// count(*) and other non-column arguments).
type ColumnRef struct {
	Table     string
	Column    string
	Aggregate string
	Source    string
}

// FixedType returns the result type of aggregates whose type does not
// depend on their argument.
func (c ColumnRef) FixedType() (string, bool) {
	if c.Aggregate == "" {
		return "", false
	}
	typ := aggregateTypes[c.Aggregate]
	return typ, typ != ""
}

// TypeColumn returns the column whose declared type drives casting.
func (c ColumnRef) TypeColumn() string {
	if c.Aggregate != "" {
		return c.Source
	}
	return c.Column
}

func (c ColumnRef) String() string {
	if c.Aggregate != "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// ProjectionList holds one ColumnRef per output column, in output order.
type ProjectionList []ColumnRef

// Scope is the set of tables a reference may resolve against.
type Scope struct {
	// Tables in FROM order, join table last.
	Tables []string
	// Aliases maps lower-cased FROM aliases to table names.
	Aliases map[string]string
}

// table maps a qualifier to the table it names.
func (s Scope) table(qualifier string) string {
	if t, ok := s.Aliases[strings.ToLower(qualifier)]; ok {
		return t
	}
	return qualifier
}

// Resolver assigns column references to the tables that own them.
type Resolver struct {
	inspector *schema.Inspector
}

// NewResolver creates a resolver backed by inspector.
func NewResolver(inspector *schema.Inspector) *Resolver {
	return &Resolver{inspector: inspector}
}

// Resolve determines which table owns ref. Qualified references are checked
// against their table, aggregates resolve their argument, and bare names go
// to the first table in scope that has the column.
func (r *Resolver) Resolve(ctx context.Context, ref string, scope Scope) (ColumnRef, error) {
	tokens, err := tokenize(ref)
	if err != nil {
		return ColumnRef{}, notInferable(ref)
	}
	return r.resolveTokens(ctx, ref, tokens, scope)
}

func (r *Resolver) resolveTokens(ctx context.Context, src string, tokens []token, scope Scope) (ColumnRef, error) {
	text := span(src, tokens)

	switch {
	case len(tokens) == 3 && tokens[1].is("."):
		qualifier, ok1 := tokens[0].name()
		column, ok2 := tokens[2].name()
		if !ok1 || !ok2 {
			break
		}
		return r.resolveQualified(ctx, scope.table(qualifier), column)

	case len(tokens) >= 3 && tokens[0].kind == tokIdent && isAggregate(tokens[0].text) &&
		tokens[1].is("(") && closingParen(tokens, 1) == len(tokens)-1:
		return r.resolveAggregate(ctx, src, tokens, scope)

	case len(tokens) == 1:
		column, ok := tokens[0].name()
		if !ok {
			break
		}
		return r.resolveBare(ctx, column, scope)
	}
	return ColumnRef{}, notInferable(text)
}

func (r *Resolver) resolveQualified(ctx context.Context, table, column string) (ColumnRef, error) {
	has, err := r.inspector.HasColumn(ctx, table, column)
	if err != nil {
		return ColumnRef{}, err
	}
	if has {
		return ColumnRef{Table: table, Column: column}, nil
	}

	exists, err := r.inspector.TableExists(ctx, table)
	if err != nil {
		return ColumnRef{}, err
	}
	if exists {
		return ColumnRef{}, &database.Error{Kind: database.KindColumnNotFound, Table: table, Column: column}
	}
	return ColumnRef{}, &database.Error{Kind: database.KindTableNotFound, Table: table}
}

func (r *Resolver) resolveAggregate(ctx context.Context, src string, tokens []token, scope Scope) (ColumnRef, error) {
	fn := strings.ToLower(tokens[0].text)
	inner := tokens[2 : len(tokens)-1]
	if len(inner) > 0 && inner[0].keyword("DISTINCT") {
		inner = inner[1:]
	}
	column := fn + "()"
	if len(tokens) > 3 {
		column = fn + "(" + span(src, tokens[2:len(tokens)-1]) + ")"
	}

	// count(*), count(1): no argument column, bind to the first table.
	if len(inner) == 0 || (len(inner) == 1 && (inner[0].is("*") || inner[0].kind == tokNumber)) {
		if len(scope.Tables) == 0 {
			return ColumnRef{}, notInferable(span(src, tokens))
		}
		return ColumnRef{Table: scope.Tables[0], Column: column, Aggregate: fn}, nil
	}

	arg, err := r.resolveTokens(ctx, src, inner, scope)
	if err != nil {
		return ColumnRef{}, err
	}
	return ColumnRef{Table: arg.Table, Column: column, Aggregate: fn, Source: arg.TypeColumn()}, nil
}

// resolveBare returns the first table in scope with the column. Later
// tables with the same column are not considered.
func (r *Resolver) resolveBare(ctx context.Context, column string, scope Scope) (ColumnRef, error) {
	for _, table := range scope.Tables {
		has, err := r.inspector.HasColumn(ctx, table, column)
		if err != nil {
			return ColumnRef{}, err
		}
		if has {
			return ColumnRef{Table: table, Column: column}, nil
		}
	}
	return ColumnRef{}, notInferable(column)
}

// closingParen returns the index of the parenthesis closing tokens[open],
// or -1.
func closingParen(tokens []token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch {
		case tokens[i].is("("):
			depth++
		case tokens[i].is(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func notInferable(ref string) error {
	return &database.Error{Kind: database.KindTableAndColumnNotFound, Column: ref}
}
