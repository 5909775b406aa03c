package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/database/sqlite"
	"github.com/joacominatel/litequery/internal/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fixturesFile mirrors testdata/fixtures.yaml.
type fixturesFile struct {
	Schema []string `yaml:"schema"`
	Seed   []string `yaml:"seed"`
	Cases  []struct {
		Name  string   `yaml:"name"`
		Query string   `yaml:"query"`
		Mode  string   `yaml:"mode"`
		Error string   `yaml:"error"`
		Count int      `yaml:"count"`
		Width int      `yaml:"width"`
		Keys  []string `yaml:"keys"`
		First []any    `yaml:"first"`
	} `yaml:"cases"`
}

func loadFixtures(t *testing.T) fixturesFile {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "fixtures.yaml"))
	require.NoError(t, err)

	var f fixturesFile
	require.NoError(t, yaml.Unmarshal(b, &f))
	return f
}

// seededSession opens a fresh database in a temp dir with the blog fixtures.
func seededSession(t *testing.T, mode format.Mode) *Session {
	t.Helper()
	ctx := context.Background()
	f := loadFixtures(t)

	path := filepath.Join(t.TempDir(), "blog.sqlite3")
	s, err := Open(ctx, sqlite.New(), path, Options{ReturnFormat: mode})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, stmt := range append(f.Schema, f.Seed...) {
		_, err := s.Execute(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	return s
}

func TestFixtureCases(t *testing.T) {
	f := loadFixtures(t)
	require.NotEmpty(t, f.Cases)

	for _, tc := range f.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			mode, err := format.ParseMode(tc.Mode)
			require.NoError(t, err)
			s := seededSession(t, mode)

			res, err := s.Execute(context.Background(), tc.Query)
			if tc.Error != "" {
				require.Error(t, err)
				assert.Equal(t, tc.Error, database.KindOf(err).String(), err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Count, res.Len())

			if tc.Width > 0 {
				for _, row := range res.Rows {
					assert.Len(t, row, tc.Width)
				}
				assert.Len(t, res.Shape.Columns, tc.Width)
			}
			if tc.Keys != nil {
				require.NotEmpty(t, res.Records)
				for _, rec := range res.Records {
					assert.Equal(t, tc.Keys, rec.Keys())
				}
			}
			if tc.First != nil {
				var first []any
				if mode == format.ModeRecord {
					for _, field := range res.Records[0] {
						first = append(first, field.Value)
					}
				} else {
					first = res.Rows[0]
				}
				require.Len(t, first, len(tc.First))
				for i := range tc.First {
					assert.EqualValues(t, tc.First[i], first[i], "column %d", i)
				}
			}
		})
	}
}

func TestRecordModeRoundTripsWhitespace(t *testing.T) {
	ctx := context.Background()
	s := seededSession(t, format.ModeRecord)
	content := "line one\nline two\n\n    indented   with   runs"

	_, err := s.Execute(ctx, "INSERT INTO posts (id, content) VALUES (3, '"+content+"');")
	require.NoError(t, err)

	res, err := s.Execute(ctx, "SELECT content FROM posts WHERE id = 3;")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	got, ok := res.Records[0].Get("content")
	require.True(t, ok)
	assert.Equal(t, content, got)
}

func TestCommentLedSelectIsCast(t *testing.T) {
	s := seededSession(t, format.ModeArray)

	res, err := s.Execute(context.Background(), "-- list users\nSELECT id, name FROM users ORDER BY id;")
	require.NoError(t, err)
	require.NotNil(t, res.Shape)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, [][]any{{int64(1), "alice"}, {int64(2), "bob"}}, res.Rows)
}

func TestSchemaChangesVisibleWithinSession(t *testing.T) {
	ctx := context.Background()
	s := seededSession(t, format.ModeRecord)

	_, err := s.Execute(ctx, "ALTER TABLE users ADD COLUMN age INTEGER;")
	require.NoError(t, err)
	_, err = s.Execute(ctx, "UPDATE users SET age = '41' WHERE id = 1;")
	require.NoError(t, err)

	res, err := s.Execute(ctx, "SELECT name, age FROM users WHERE id = 1;")
	require.NoError(t, err)
	age, _ := res.Records[0].Get("age")
	assert.Equal(t, int64(41), age)
}

func TestNonSelectSkipsFormatting(t *testing.T) {
	s := seededSession(t, format.ModeRecord)

	res, err := s.Execute(context.Background(), "INSERT INTO users (id, name) VALUES (3, 'carol');")
	require.NoError(t, err)
	assert.Nil(t, res.Shape)
	assert.Nil(t, res.Records)
	assert.EqualValues(t, 1, res.RowsAffected)
}

func TestSetReturnFormat(t *testing.T) {
	s := seededSession(t, format.ModeArray)
	s.SetReturnFormat(format.ModeRecord)
	assert.Equal(t, format.ModeRecord, s.ReturnFormat())

	res, err := s.Execute(context.Background(), "SELECT id FROM users;")
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestSessionTablesAndColumns(t *testing.T) {
	ctx := context.Background()
	s := seededSession(t, format.ModeArray)

	tables, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"comments", "posts", "users"}, tables)

	cols, err := s.Columns(ctx, "users")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "TEXT", cols[1].DataType)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "blog", s.Name())
}

func TestClosedSessionIsNotLoaded(t *testing.T) {
	ctx := context.Background()
	s := seededSession(t, format.ModeArray)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Execute(ctx, "SELECT * FROM users;")
	assert.ErrorIs(t, err, database.ErrDatabaseNotLoaded)

	_, err = s.Tables(ctx)
	assert.ErrorIs(t, err, database.ErrDatabaseNotLoaded)
}

func TestWithDatabaseClosesOnError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	var leaked *Session
	require.NoError(t, CreateDatabase(ctx, "shop", Options{Dir: dir}))

	_, err := WithDatabase(ctx, "shop", Options{Dir: dir}, func(s *Session) (int, error) {
		leaked = s
		return 0, &database.Error{Kind: database.KindTableNotFound, Table: "x"}
	})
	assert.ErrorIs(t, err, database.ErrTableNotFound)

	_, err = leaked.Execute(ctx, "SELECT 1;")
	assert.ErrorIs(t, err, database.ErrDatabaseNotLoaded)
}

func TestWithDatabaseReturnsBodyResult(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	n, err := WithDatabase(ctx, "shop", Options{Dir: dir, Create: true}, func(s *Session) (int, error) {
		if _, err := s.Execute(ctx, "CREATE TABLE items (id INTEGER, label TEXT);"); err != nil {
			return 0, err
		}
		if _, err := s.Execute(ctx, "INSERT INTO items VALUES (1, 'pen'), (2, 'ink');"); err != nil {
			return 0, err
		}
		res, err := s.Execute(ctx, "SELECT count(*) FROM items;")
		if err != nil {
			return 0, err
		}
		return int(res.Rows[0][0].(int64)), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(dir, "shop.sqlite3"))
}

func TestWithDatabaseMissingFile(t *testing.T) {
	dir := t.TempDir()
	called := false

	_, err := WithDatabase(context.Background(), "typo", Options{Dir: dir},
		func(s *Session) (struct{}, error) {
			called = true
			return struct{}{}, nil
		})
	assert.ErrorIs(t, err, database.ErrDatabaseNotFound)
	assert.False(t, called)
	assert.NoFileExists(t, filepath.Join(dir, "typo.sqlite3"))
}

func TestWithDatabaseOpensCreatedFile(t *testing.T) {
	ctx := context.Background()
	opts := Options{Dir: t.TempDir()}
	require.NoError(t, CreateDatabase(ctx, "notes", opts))

	name, err := WithDatabase(ctx, "notes", opts, func(s *Session) (string, error) {
		return s.Name(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "notes", name)
}

func TestCreateAndDropDatabase(t *testing.T) {
	ctx := context.Background()
	opts := Options{Dir: t.TempDir()}

	require.NoError(t, CreateDatabase(ctx, "inventory", opts))
	assert.ErrorIs(t, CreateDatabase(ctx, "inventory", opts), database.ErrDatabaseExists)

	existed, err := DropDatabase("inventory", opts)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = DropDatabase("inventory", opts)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestDatabasePathDefaultsToCallerDir(t *testing.T) {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	path, err := DatabasePath("notes", Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(file), "notes.sqlite3"), path)

	path, err = DatabasePath("notes.db", Options{Dir: "/var/data"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/var/data", "notes.db"), path)

	_, err = DatabasePath("", Options{})
	assert.Error(t, err)
}
