package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for state-machine guard failures. The HTTP layer maps each
// of these to a distinct status code, so transition code must return them
// unwrapped or wrapped with %w.
var (
	// ErrFormNotFound means the requested form id (or card number) does not
	// exist in the store.
	ErrFormNotFound = errors.New("form not found")

	// ErrAlreadyProcessed means the form has already left the pending state
	// and the requested transition is no longer valid.
	ErrAlreadyProcessed = errors.New("form already processed")

	// ErrNotSkipped means unskip was requested on a form that is not skipped.
	ErrNotSkipped = errors.New("form is not skipped")

	// ErrConflict means a conditional completion update affected zero rows:
	// a concurrent request won the pending->completed race first.
	ErrConflict = errors.New("form was already processed by another request")
)

// InputError reports malformed caller input (missing or mis-shaped request
// data). Its message is user-actionable and safe to return verbatim.
type InputError struct {
	msg string
}

// NewInputError creates an InputError with the given client-facing message.
func NewInputError(msg string) *InputError { return &InputError{msg: msg} }

func (e *InputError) Error() string { return e.msg }

// TicketingError wraps a failure from the Fizzy API on a blocking dispatch
// path. Best-effort dispatch paths log and swallow Fizzy failures instead of
// producing this error.
type TicketingError struct {
	Op  string
	Err error
}

func (e *TicketingError) Error() string {
	return fmt.Sprintf("ticketing %s failed: %v", e.Op, e.Err)
}

func (e *TicketingError) Unwrap() error { return e.Err }
