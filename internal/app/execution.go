package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joacominatel/litequery/internal/database"
	"github.com/joacominatel/litequery/internal/format"
	"github.com/joacominatel/litequery/internal/query"
)

// State is a step of the execution lifecycle.
type State int

const (
	StateIdle State = iota
	StateValidated
	StateDispatched
	StateProvenanceExtracted
	StateTypeCast
	StateFormatted
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidated:
		return "validated"
	case StateDispatched:
		return "dispatched"
	case StateProvenanceExtracted:
		return "provenance-extracted"
	case StateTypeCast:
		return "type-cast"
	case StateFormatted:
		return "formatted"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one query.
type Result struct {
	Columns []string
	// Rows holds positional rows in array mode and for non-SELECT
	// statements.
	Rows [][]any
	// Records holds name-keyed rows in record mode.
	Records []format.Record
	Mode    format.Mode
	// Shape is nil for non-SELECT statements.
	Shape        *query.ShapeInfo
	RowsAffected int64
	Duration     time.Duration
}

// Len returns the number of result rows.
func (r *Result) Len() int {
	if r.Mode == format.ModeRecord {
		return len(r.Records)
	}
	return len(r.Rows)
}

// Execution runs a single query text once. Run results are memoized, so a
// second Run returns the first outcome without touching the engine.
type Execution struct {
	session *Session
	query   string
	mode    format.Mode
	state   State
	raw     *database.RawResult
	result  *Result
	err     error
}

// State returns the lifecycle state reached so far.
func (e *Execution) State() State {
	return e.state
}

// Raw returns the untranslated engine result, or nil before dispatch.
func (e *Execution) Raw() *database.RawResult {
	return e.raw
}

// Run validates, dispatches and, for SELECT statements, casts and formats
// the result.
func (e *Execution) Run(ctx context.Context) (*Result, error) {
	if e.result != nil || e.err != nil {
		return e.result, e.err
	}
	res, err := e.run(ctx)
	if err != nil {
		e.state = StateFailed
		e.err = err
		e.session.log.Warn("query failed", "kind", database.KindOf(err).String(), "error", err)
		return nil, err
	}
	e.result = res
	e.state = StateDone
	return res, nil
}

func (e *Execution) run(ctx context.Context) (*Result, error) {
	s := e.session
	if err := s.checkLoaded(); err != nil {
		return nil, err
	}

	if !strings.HasSuffix(strings.TrimSpace(e.query), ";") {
		return nil, &database.Error{Kind: database.KindBadSyntaxStyle, Query: e.query}
	}
	e.state = StateValidated

	s.log.Debug("dispatch", "query", query.Normalize(e.query))
	raw, err := s.engine.Execute(ctx, e.query)
	if err != nil {
		return nil, &database.Error{Kind: database.KindSQLExecution, Query: e.query, Cause: err}
	}
	e.raw = raw
	e.state = StateDispatched

	res := &Result{
		Columns:      raw.Columns,
		Mode:         format.ModeArray,
		RowsAffected: raw.RowsAffected,
		Duration:     raw.Duration,
	}
	if !query.IsSelect(e.query) {
		res.Rows = raw.Rows
		return res, nil
	}

	info, err := s.extractor.Extract(ctx, e.query)
	if err != nil {
		return nil, err
	}
	if len(info.Columns) != len(raw.Columns) {
		return nil, fmt.Errorf("%w: projection has %d columns, result has %d",
			format.ErrProjectionMismatch, len(info.Columns), len(raw.Columns))
	}
	e.state = StateProvenanceExtracted
	s.log.Debug("provenance", "shape", info.Shape.String(), "tables", info.Tables, "columns", len(info.Columns))

	rows, err := s.caster.CastRows(ctx, raw.Rows, info.Columns)
	if err != nil {
		return nil, err
	}
	e.state = StateTypeCast

	out, err := format.Format(rows, raw.Columns, e.mode)
	if err != nil {
		return nil, withQuery(err, e.query)
	}
	e.state = StateFormatted

	res.Shape = info
	res.Mode = out.Mode
	res.Rows = out.Rows
	res.Records = out.Records
	return res, nil
}

func withQuery(err error, queryText string) error {
	if e, ok := err.(*database.Error); ok && e.Query == "" {
		e.Query = queryText
	}
	return err
}
