package query

import (
	"context"

	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/schema"
)

type memSchema map[string][]database.Column

func (m memSchema) TableInfo(_ context.Context, table string) ([]database.Column, error) {
	return m[table], nil
}

func (m memSchema) ListTables(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names, nil
}

func cols(pairs ...string) []database.Column {
	out := make([]database.Column, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, database.Column{Name: pairs[i], DataType: pairs[i+1], OrdinalPos: i/2 + 1})
	}
	return out
}

// blogSchema mirrors the users/posts fixtures used across the repo.
func blogSchema() *schema.Inspector {
	return schema.NewInspector(memSchema{
		"users":    cols("id", "INTEGER", "name", "TEXT"),
		"posts":    cols("id", "INTEGER", "content", "TEXT", "user_id", "INTEGER"),
		"profiles": cols("user_id", "INTEGER", "bio", "TEXT"),
	})
}
