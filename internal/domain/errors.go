package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInstallationNotFound is returned when an installation id cannot be resolved.
	ErrInstallationNotFound = errors.New("installation not found")
	// ErrEmptyBatch is returned when an import batch has no rows.
	ErrEmptyBatch = errors.New("import batch is empty")
)

// ValidationError describes input rejected before any I/O. Index is the offending
// row of a batch, or -1 when the error is not tied to a row.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("row %d: %s: %s", e.Index, e.Field, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Err }

// RowError builds a ValidationError for row index.
func RowError(index int, field, reason string) *ValidationError {
	return &ValidationError{Index: index, Field: field, Reason: reason}
}

// FieldError builds a ValidationError that is not tied to a row.
func FieldError(field, reason string) *ValidationError {
	return &ValidationError{Index: -1, Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
