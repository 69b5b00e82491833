package core

import (
	"errors"
	"fmt"
)

const MaxDescriptionLength = 500

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrNegativeLimit      = errors.New("limit must not be negative")
	ErrBudgetExists       = errors.New("budget already exists for category")
	ErrMissingField       = errors.New("missing field")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrUserExists         = errors.New("user already exists")

	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError reports a field that is missing or fails coercion. Row is
// the 1-based data row of a batch, or zero for single records.
type ValidationError struct {
	Field string
	Row   int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ParseError reports tabular input that could not be read as rows at all.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError is returned both for missing records and records owned by
// someone else.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
