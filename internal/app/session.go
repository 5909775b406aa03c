// Package app owns the session and query-execution lifecycle: it opens an
// engine, validates and dispatches query text, and runs SELECT results
// through provenance extraction, type casting and formatting.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/database/sqlite"
	"github.com/joacominatel/litequery/internal/format"
	"github.com/joacominatel/litequery/internal/logging"
	"github.com/joacominatel/litequery/internal/query"
	"github.com/joacominatel/litequery/internal/schema"
)

// FileExt is appended to database names that carry no extension.
const FileExt = ".sqlite3"

// Options configures a session.
type Options struct {
	// ReturnFormat selects array (default) or record output for SELECTs.
	ReturnFormat format.Mode
	// Dir holds the database files. Empty means the directory of the
	// source file that called WithDatabase, CreateDatabase or DropDatabase.
	Dir string
	// Create lets WithDatabase create a missing file. Without it a missing
	// file fails with DatabaseNotFound.
	Create bool
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}

// Session binds one engine connection to the query pipeline.
// A Session is not safe for concurrent use.
type Session struct {
	id        uuid.UUID
	engine    database.Engine
	inspector *schema.Inspector
	extractor *query.Extractor
	caster    *format.Caster
	mode      format.Mode
	log       *slog.Logger
	closed    bool
}

// Open connects engine to target and returns a ready session.
func Open(ctx context.Context, engine database.Engine, target string, opts Options) (*Session, error) {
	if err := engine.Open(ctx, target); err != nil {
		return nil, &ErrConnection{Target: target, Cause: err}
	}
	return newSession(engine, opts), nil
}

func newSession(engine database.Engine, opts Options) *Session {
	inspector := schema.NewInspector(engine)
	id := uuid.New()
	s := &Session{
		id:        id,
		engine:    engine,
		inspector: inspector,
		extractor: query.NewExtractor(inspector),
		caster:    format.NewCaster(inspector, engine),
		mode:      opts.ReturnFormat,
		log:       opts.logger().With("session", id.String()),
	}
	s.log.Debug("session opened", "database", engine.Name())
	return s
}

// Close releases the engine connection. Further queries fail with
// DatabaseNotLoaded.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Debug("session closed")
	return s.engine.Close()
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id.String()
}

// Name returns the database name.
func (s *Session) Name() string {
	return s.engine.Name()
}

// ReturnFormat returns the output mode for SELECT results.
func (s *Session) ReturnFormat() format.Mode {
	return s.mode
}

// SetReturnFormat changes the output mode for subsequent queries.
func (s *Session) SetReturnFormat(mode format.Mode) {
	s.mode = mode
}

// Query prepares an execution of queryText. Nothing runs until Run.
func (s *Session) Query(queryText string) *Execution {
	return &Execution{session: s, query: queryText, mode: s.mode}
}

// Execute runs queryText and returns its result.
func (s *Session) Execute(ctx context.Context, queryText string) (*Result, error) {
	return s.Query(queryText).Run(ctx)
}

// Tables lists the user tables of the database.
func (s *Session) Tables(ctx context.Context) ([]string, error) {
	if err := s.checkLoaded(); err != nil {
		return nil, err
	}
	return s.inspector.Tables(ctx)
}

// Columns returns the column metadata of table.
func (s *Session) Columns(ctx context.Context, table string) ([]database.Column, error) {
	if err := s.checkLoaded(); err != nil {
		return nil, err
	}
	return s.inspector.ColumnMetadata(ctx, table)
}

func (s *Session) checkLoaded() error {
	if s.closed {
		return &database.Error{Kind: database.KindDatabaseNotLoaded, Name: s.engine.Name()}
	}
	return nil
}

// WithDatabase opens the existing SQLite database name, runs body and closes
// the database whether body succeeds or not.
func WithDatabase[T any](ctx context.Context, name string, opts Options, body func(*Session) (T, error)) (T, error) {
	var zero T
	path, err := databasePath(name, opts.Dir, callerDir(2))
	if err != nil {
		return zero, err
	}
	if !opts.Create {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return zero, &database.Error{Kind: database.KindDatabaseNotFound, Name: name}
		}
	}
	return WithEngine(ctx, sqlite.New(), path, opts, body)
}

// WithEngine opens engine on target, runs body and closes the session on
// every return path.
func WithEngine[T any](ctx context.Context, engine database.Engine, target string, opts Options, body func(*Session) (T, error)) (result T, err error) {
	s, err := Open(ctx, engine, target, opts)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()
	return body(s)
}

// CreateDatabase creates an empty SQLite database file.
func CreateDatabase(ctx context.Context, name string, opts Options) error {
	path, err := databasePath(name, opts.Dir, callerDir(2))
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return &database.Error{Kind: database.KindDatabaseExists, Name: name}
	}
	d := sqlite.New()
	if err := d.Open(ctx, path); err != nil {
		return &ErrConnection{Target: path, Cause: err}
	}
	return d.Close()
}

// DropDatabase deletes the database file and reports whether it existed.
func DropDatabase(name string, opts Options) (bool, error) {
	path, err := databasePath(name, opts.Dir, callerDir(2))
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("drop database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		_ = os.Remove(path + suffix)
	}
	return true, nil
}

// DatabasePath returns the file a database name resolves to.
func DatabasePath(name string, opts Options) (string, error) {
	return databasePath(name, opts.Dir, callerDir(2))
}

func databasePath(name, dir, fallback string) (string, error) {
	if name == "" {
		return "", errors.New("database name is empty")
	}
	if filepath.Ext(name) == "" {
		name += FileExt
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	if dir == "" {
		dir = fallback
	}
	if dir == "" {
		return "", fmt.Errorf("cannot resolve directory for database %q", name)
	}
	return filepath.Join(dir, name), nil
}

// callerDir returns the directory of the source file skip frames up.
func callerDir(skip int) string {
	_, file, _, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return filepath.Dir(file)
}
