package app

import "fmt"

// ErrConnection represents a failure to open the engine connection.
type ErrConnection struct {
	Target string
	Cause  error
}

func (e *ErrConnection) Error() string {
	return fmt.Sprintf("connection error: %s: %v", e.Target, e.Cause)
}

func (e *ErrConnection) Unwrap() error {
	return e.Cause
}
