package results

import (
	"errors"
	"testing"
	"time"

	"github.com/joacominatel/litequery/internal/app"
	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/format"
	"github.com/joacominatel/litequery/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"text", "text"},
		{int64(-3), "-3"},
		{4.5, "4.5"},
		{true, "true"},
		{[]byte{0xca, 0xfe}, "x'cafe'"},
		{ts, "2024-05-01T12:30:00Z"},
		{int32(7), "7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cell(tt.in))
	}
}

func TestTableArrayMode(t *testing.T) {
	header, rows := Table(&app.Result{
		Mode:    format.ModeArray,
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "alice"}, {int64(2), nil}},
	})
	assert.Equal(t, []string{"id", "name"}, header)
	assert.Equal(t, [][]string{{"1", "alice"}, {"2", "null"}}, rows)
}

func TestTableRecordMode(t *testing.T) {
	header, rows := Table(&app.Result{
		Mode:    format.ModeRecord,
		Columns: []string{"n"},
		Records: []format.Record{{{Name: "n", Value: int64(3)}}},
	})
	assert.Equal(t, []string{"n"}, header)
	assert.Equal(t, [][]string{{"3"}}, rows)

	header, rows = Table(&app.Result{Mode: format.ModeRecord, Columns: []string{"n"}})
	assert.Equal(t, []string{"n"}, header)
	assert.Empty(t, rows)
}

func TestFilterQueryUsesProvenance(t *testing.T) {
	m := New()
	m.SetResult("SELECT u.name, count(*) FROM users u;", &app.Result{
		Mode:    format.ModeArray,
		Columns: []string{"name", "count(*)"},
		Rows:    [][]any{{"o'neil", int64(1)}},
		Shape: &query.ShapeInfo{
			Columns: query.ProjectionList{
				{Table: "users", Column: "name"},
				{Table: "users", Column: "count(*)", Aggregate: "count"},
			},
		},
	})

	q, ok := m.filterQuery(0, "o'neil")
	require.True(t, ok)
	assert.Equal(t, "SELECT * FROM users WHERE name = 'o''neil';", q)

	q, ok = m.filterQuery(0, "null")
	require.True(t, ok)
	assert.Equal(t, "SELECT * FROM users WHERE name IS NULL;", q)

	_, ok = m.filterQuery(1, "1")
	assert.False(t, ok)
}

func TestRecordFromArrayRow(t *testing.T) {
	m := New()
	m.SetResult("SELECT id, name FROM users;", &app.Result{
		Mode:    format.ModeArray,
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "alice"}},
	})

	rec, ok := m.record(0)
	require.True(t, ok)
	assert.Equal(t, format.Record{{Name: "id", Value: int64(1)}, {Name: "name", Value: "alice"}}, rec)

	_, ok = m.record(1)
	assert.False(t, ok)
}

func TestViewShowsErrorKind(t *testing.T) {
	m := New()
	m.SetError(&database.Error{Kind: database.KindTableNotFound, Table: "ghosts"})
	assert.Contains(t, m.View(), "TableNotFound")

	m.SetError(errors.New("plain failure"))
	assert.Contains(t, m.View(), "plain failure")
}

func TestFit(t *testing.T) {
	assert.Equal(t, "ab   ", fit("ab", 5))
	assert.Equal(t, "abcd…", fit("abcdefgh", 5))
	assert.Equal(t, "line↵", firstLine("line\nnext"))
}

func TestExtractTableName(t *testing.T) {
	assert.Equal(t, "users", extractTableName("select * from users;"))
	assert.Equal(t, "", extractTableName("select 1;"))
}
