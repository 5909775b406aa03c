package format

import (
	"context"
	"errors"
	"fmt"

	"github.com/joacominatel/litequery/internal/query"
	"github.com/joacominatel/litequery/internal/schema"
)

// ErrProjectionMismatch is returned when a row and its projection disagree
// on the number of columns.
var ErrProjectionMismatch = errors.New("row length does not match projection")

// Translator converts a raw value to the native form of a declared type.
// database.Engine implements it.
type Translator interface {
	Translate(declaredType string, raw any) (any, error)
}

// Caster converts raw rows using each column's declared type.
type Caster struct {
	inspector  *schema.Inspector
	translator Translator
}

// NewCaster creates a caster that looks types up through inspector and
// converts values with translator.
func NewCaster(inspector *schema.Inspector, translator Translator) *Caster {
	return &Caster{inspector: inspector, translator: translator}
}

// CastRow converts one raw row positionally against projection.
func (c *Caster) CastRow(ctx context.Context, raw []any, projection query.ProjectionList) ([]any, error) {
	types, err := c.declaredTypes(ctx, projection)
	if err != nil {
		return nil, err
	}
	return c.castWith(raw, types)
}

// CastRows converts every row. Declared types are looked up once per call.
func (c *Caster) CastRows(ctx context.Context, rows [][]any, projection query.ProjectionList) ([][]any, error) {
	types, err := c.declaredTypes(ctx, projection)
	if err != nil {
		return nil, err
	}
	out := make([][]any, 0, len(rows))
	for _, raw := range rows {
		row, err := c.castWith(raw, types)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (c *Caster) castWith(raw []any, types []string) ([]any, error) {
	if len(raw) != len(types) {
		return nil, fmt.Errorf("%w: %d values for %d columns", ErrProjectionMismatch, len(raw), len(types))
	}
	row := make([]any, len(raw))
	for i, v := range raw {
		cast, err := c.translator.Translate(types[i], v)
		if err != nil {
			return nil, fmt.Errorf("cast column %d: %w", i, err)
		}
		row[i] = cast
	}
	return row, nil
}

// declaredTypes returns the type string for each projected column.
// Aggregates with a fixed result type skip the schema lookup.
func (c *Caster) declaredTypes(ctx context.Context, projection query.ProjectionList) ([]string, error) {
	types := make([]string, len(projection))
	for i, ref := range projection {
		if typ, ok := ref.FixedType(); ok {
			types[i] = typ
			continue
		}
		column := ref.TypeColumn()
		if column == "" {
			continue
		}
		typ, _, err := c.inspector.DeclaredType(ctx, ref.Table, column)
		if err != nil {
			return nil, err
		}
		types[i] = typ
	}
	return types, nil
}
