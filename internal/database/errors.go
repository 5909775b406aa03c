package database

import (
	"errors"
	"fmt"
)

// ErrorKind identifies one class of query failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindDatabaseNotLoaded
	KindDatabaseExists
	KindDatabaseNotFound
	KindBadSyntaxStyle
	KindSQLExecution
	KindTableNotFound
	KindColumnNotFound
	KindTableAndColumnNotFound
	KindAmbiguousColumnName
	KindUnsupportedConstruct
)

func (k ErrorKind) String() string {
	switch k {
	case KindDatabaseNotLoaded:
		return "DatabaseNotLoaded"
	case KindDatabaseExists:
		return "DatabaseExists"
	case KindDatabaseNotFound:
		return "DatabaseNotFound"
	case KindBadSyntaxStyle:
		return "BadSyntaxStyle"
	case KindSQLExecution:
		return "SQLExecutionError"
	case KindTableNotFound:
		return "TableNotFound"
	case KindColumnNotFound:
		return "ColumnNotFound"
	case KindTableAndColumnNotFound:
		return "TableAndColumnNotFound"
	case KindAmbiguousColumnName:
		return "AmbiguousColumnName"
	case KindUnsupportedConstruct:
		return "UnsupportedConstruct"
	default:
		return "Unknown"
	}
}

// Sentinels for use with errors.Is. They match any *Error of the same kind.
var (
	ErrDatabaseNotLoaded      = &Error{Kind: KindDatabaseNotLoaded}
	ErrDatabaseExists         = &Error{Kind: KindDatabaseExists}
	ErrDatabaseNotFound       = &Error{Kind: KindDatabaseNotFound}
	ErrBadSyntaxStyle         = &Error{Kind: KindBadSyntaxStyle}
	ErrSQLExecution           = &Error{Kind: KindSQLExecution}
	ErrTableNotFound          = &Error{Kind: KindTableNotFound}
	ErrColumnNotFound         = &Error{Kind: KindColumnNotFound}
	ErrTableAndColumnNotFound = &Error{Kind: KindTableAndColumnNotFound}
	ErrAmbiguousColumnName    = &Error{Kind: KindAmbiguousColumnName}
	ErrUnsupportedConstruct   = &Error{Kind: KindUnsupportedConstruct}
)

// Error is the single error type raised by query analysis and execution.
// Only the fields relevant to Kind are set.
type Error struct {
	Kind   ErrorKind
	Name   string // database name
	Table  string
	Column string
	Query  string
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDatabaseNotLoaded:
		if e.Name != "" {
			return fmt.Sprintf("database %q is not loaded", e.Name)
		}
		return "database is not loaded"
	case KindDatabaseExists:
		return fmt.Sprintf("database %q already exists", e.Name)
	case KindDatabaseNotFound:
		return fmt.Sprintf("database %q not found", e.Name)
	case KindBadSyntaxStyle:
		return fmt.Sprintf("bad syntax style: query must end with a semicolon: %q", e.Query)
	case KindSQLExecution:
		return fmt.Sprintf("sql error: %v", e.Cause)
	case KindTableNotFound:
		return fmt.Sprintf("table %q not found", e.Table)
	case KindColumnNotFound:
		return fmt.Sprintf("column %q not found in table %q", e.Column, e.Table)
	case KindTableAndColumnNotFound:
		return fmt.Sprintf("could not infer table for column %q", e.Column)
	case KindAmbiguousColumnName:
		return fmt.Sprintf("ambiguous column name %q in result", e.Column)
	case KindUnsupportedConstruct:
		if e.Detail != "" {
			return fmt.Sprintf("unsupported query construct: %s", e.Detail)
		}
		return "unsupported query construct"
	default:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return "unknown error"
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
