package core

import (
	"errors"
	"fmt"
)

// Top-level error taxonomy. Every error surfaced by the ledger, query and csv
// layers matches exactly one of these with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrRecordNotFound  = errors.New("record not found")
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrParse           = errors.New("parse error")
)

var (
	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate     = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrEmptyCategory   = fmt.Errorf("%w: empty category", ErrValidation)
	ErrUnknownCategory = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrNoteTooLong     = fmt.Errorf("%w: note too long", ErrValidation)
	ErrInvalidBudget   = fmt.Errorf("%w: budget must not be negative", ErrValidation)
)

// ValidationError reports which form field was rejected.
type ValidationError struct {
	Field string
	Err   error
	// Suggestion is an existing category close to the rejected one, if any.
	Suggestion string
}

func (e *ValidationError) Error() string {
	msg := e.Field + ": " + e.Err.Error()
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }
