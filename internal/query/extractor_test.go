package query

import (
	"context"
	"testing"

	"github.com/joacominatel/litequery/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	e := NewExtractor(blogSchema())

	tests := []struct {
		name    string
		query   string
		shape   Shape
		tables  []string
		columns []string
	}{
		{
			name:    "star over two tables",
			query:   "SELECT * FROM users, posts;",
			shape:   ShapeSimple,
			tables:  []string{"users", "posts"},
			columns: []string{"users.id", "users.name", "posts.id", "posts.content", "posts.user_id"},
		},
		{
			name:    "table star keeps position",
			query:   "SELECT content, users.* FROM users, posts WHERE users.id = posts.user_id;",
			shape:   ShapeFiltered,
			tables:  []string{"users", "posts"},
			columns: []string{"posts.content", "users.id", "users.name"},
		},
		{
			name:    "join appends table",
			query:   "SELECT name, content FROM users INNER JOIN posts ON users.id = posts.user_id;",
			shape:   ShapeJoined,
			tables:  []string{"users", "posts"},
			columns: []string{"users.name", "posts.content"},
		},
		{
			name:    "join with aliases and tail",
			query:   "SELECT u.name, p.* FROM users u INNER JOIN posts AS p ON u.id = p.user_id ORDER BY p.id;",
			shape:   ShapeJoinedFiltered,
			tables:  []string{"users", "posts"},
			columns: []string{"users.name", "posts.id", "posts.content", "posts.user_id"},
		},
		{
			name:    "table alias",
			query:   "SELECT u.name FROM users u;",
			shape:   ShapeSimple,
			tables:  []string{"users"},
			columns: []string{"users.name"},
		},
		{
			name:    "count",
			query:   "SELECT count(id) FROM posts;",
			shape:   ShapeSimple,
			tables:  []string{"posts"},
			columns: []string{"count(id)"},
		},
		{
			name:    "multi-line query",
			query:   "SELECT\n  name,\n  id\nFROM\n  users\nWHERE id > 1;",
			shape:   ShapeFiltered,
			tables:  []string{"users"},
			columns: []string{"users.name", "users.id"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := e.Extract(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.shape, info.Shape)
			assert.Equal(t, tt.tables, info.Tables)

			got := make([]string, len(info.Columns))
			for i, c := range info.Columns {
				got[i] = c.String()
			}
			assert.Equal(t, tt.columns, got)
		})
	}
}

func TestExtractRecordsAliasesWithoutUsingThem(t *testing.T) {
	e := NewExtractor(blogSchema())

	info, err := e.Extract(context.Background(), "SELECT name AS author, count(id) AS n FROM users;")
	require.NoError(t, err)
	assert.Equal(t, AliasMap{"author": "name", "n": "count(id)"}, info.Aliases)
	assert.Equal(t, "users", info.Columns[0].Table)

	// An alias is not a column; referring to it does not resolve.
	_, err = e.Extract(context.Background(), "SELECT name AS author, author FROM users;")
	assert.ErrorIs(t, err, database.ErrTableAndColumnNotFound)
}

func TestExtractErrors(t *testing.T) {
	e := NewExtractor(blogSchema())

	tests := []struct {
		query string
		kind  database.ErrorKind
		table string
	}{
		{"SELECT * FROM ghosts;", database.KindTableNotFound, "ghosts"},
		{"SELECT * FROM users, ghosts, phantoms;", database.KindTableNotFound, "ghosts"},
		{"SELECT email FROM ghosts;", database.KindTableNotFound, "ghosts"},
		{"SELECT users.email FROM users;", database.KindColumnNotFound, "users"},
		{"SELECT ghosts.* FROM users;", database.KindTableNotFound, "ghosts"},
		{"SELECT email FROM users;", database.KindTableAndColumnNotFound, ""},
		{"SELECT changes() FROM users;", database.KindUnsupportedConstruct, ""},
		{"SELECT * FROM users CROSS JOIN posts;", database.KindUnsupportedConstruct, ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			info, err := e.Extract(context.Background(), tt.query)
			require.Error(t, err)
			assert.Nil(t, info)

			var dbErr *database.Error
			require.ErrorAs(t, err, &dbErr)
			assert.Equal(t, tt.kind, dbErr.Kind)
			assert.Equal(t, tt.table, dbErr.Table)
			assert.NotEmpty(t, dbErr.Query)
		})
	}
}
