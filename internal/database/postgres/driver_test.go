package postgres

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	id := [16]byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}
	tests := []struct {
		in   any
		want any
	}{
		{int32(7), int64(7)},
		{int16(3), int64(3)},
		{float32(1.5), float64(1.5)},
		{"x", "x"},
		{pgtype.Numeric{}, nil},
		{pgtype.Numeric{Int: big.NewInt(125), Exp: -2, Valid: true}, 1.25},
		{id, "12345678-9abc-def0-1234-56789abcdef0"},
	}
	for _, tt := range tests {
		got, err := normalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeNumericOutOfRange(t *testing.T) {
	huge := pgtype.Numeric{Int: big.NewInt(1), Exp: 400, Valid: true}

	_, err := normalize(huge)
	assert.Error(t, err)

	_, err = New().Translate("numeric", huge)
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	d := New()

	got, err := d.Translate("integer", int32(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	got, err = d.Translate("boolean", true)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = d.Translate("text", "a  b")
	require.NoError(t, err)
	assert.Equal(t, "a  b", got)

	got, err = d.Translate("jsonb", map[string]any{"a": 1.0, "tags": []any{"x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"tags":["x"]}`, got.(string))

	got, err = d.Translate("json", []any{1.0, "two"})
	require.NoError(t, err)
	assert.Equal(t, `[1,"two"]`, got)

	got, err = d.Translate("json", "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}

func TestDriverAgainstServer(t *testing.T) {
	dsn := os.Getenv("LITEQUERY_TEST_POSTGRES_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("LITEQUERY_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	d := New()
	require.NoError(t, d.Open(ctx, dsn))
	defer d.Close()

	_, err := d.Execute(ctx, "CREATE TEMP TABLE lq_items (id INTEGER PRIMARY KEY, label TEXT);")
	require.NoError(t, err)
	_, err = d.Execute(ctx, "INSERT INTO lq_items VALUES (1, 'pen');")
	require.NoError(t, err)

	res, err := d.Execute(ctx, "SELECT id, label FROM lq_items;")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "label"}, res.Columns)
	require.Len(t, res.Rows, 1)
}
