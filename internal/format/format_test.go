package format

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/query"
	"github.com/joacominatel/litequery/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSchema map[string][]database.Column

func (m memSchema) TableInfo(_ context.Context, table string) ([]database.Column, error) {
	return m[table], nil
}

func (m memSchema) ListTables(_ context.Context) ([]string, error) {
	return nil, nil
}

type coerceTranslator struct{}

func (coerceTranslator) Translate(declared string, raw any) (any, error) {
	return database.Coerce(declared, raw)
}

func newCaster() *Caster {
	in := schema.NewInspector(memSchema{
		"users": {{Name: "id", DataType: "INTEGER"}, {Name: "name", DataType: "TEXT"}},
		"posts": {{Name: "id", DataType: "INTEGER"}, {Name: "score", DataType: "REAL"}},
	})
	return NewCaster(in, coerceTranslator{})
}

func TestCastRow(t *testing.T) {
	c := newCaster()
	projection := query.ProjectionList{
		{Table: "users", Column: "id"},
		{Table: "users", Column: "name"},
		{Table: "posts", Column: "score"},
		{Table: "users", Column: "count(name)", Aggregate: "count", Source: "name"},
	}

	row, err := c.CastRow(context.Background(), []any{"1", []byte("ann"), "2.5", "3"}, projection)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "ann", 2.5, int64(3)}, row)
}

func TestCastRowsKeepsNullsAndText(t *testing.T) {
	c := newCaster()
	projection := query.ProjectionList{{Table: "users", Column: "name"}}

	rows, err := c.CastRows(context.Background(), [][]any{{"a\n  b"}, {nil}}, projection)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"a\n  b"}, {nil}}, rows)
}

func TestCastRowLengthMismatch(t *testing.T) {
	c := newCaster()

	_, err := c.CastRow(context.Background(), []any{1, 2}, query.ProjectionList{{Table: "users", Column: "id"}})
	assert.ErrorIs(t, err, ErrProjectionMismatch)
}

func TestFormatArray(t *testing.T) {
	rows := [][]any{{int64(1), "ann", int64(1), "hello"}}

	out, err := Format(rows, []string{"id", "name", "id", "content"}, ModeArray)
	require.NoError(t, err)
	assert.Equal(t, rows, out.Rows)
	assert.Nil(t, out.Records)
	assert.Equal(t, 1, out.Len())
}

func TestFormatRecord(t *testing.T) {
	rows := [][]any{{int64(1), "ann"}, {int64(2), "bob"}}

	out, err := Format(rows, []string{"id", "name"}, ModeRecord)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	assert.Equal(t, []string{"id", "name"}, out.Records[1].Keys())

	v, ok := out.Records[1].Get("name")
	assert.True(t, ok)
	assert.Equal(t, "bob", v)

	_, ok = out.Records[1].Get("email")
	assert.False(t, ok)
}

func TestFormatRecordDuplicateName(t *testing.T) {
	rows := [][]any{{int64(1), "ann", int64(1), "hello"}}

	_, err := Format(rows, []string{"id", "name", "id", "content"}, ModeRecord)
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrAmbiguousColumnName)
	assert.Contains(t, err.Error(), `"id"`)
}

func TestRecordMarshalJSONKeepsOrder(t *testing.T) {
	rec := Record{{Name: "z", Value: 1}, {Name: "a", Value: "x"}}

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":"x"}`, string(b))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("record")
	require.NoError(t, err)
	assert.Equal(t, ModeRecord, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeArray, m)

	_, err = ParseMode("hash")
	assert.Error(t, err)
}
