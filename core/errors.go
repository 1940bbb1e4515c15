/*
errors.go - Error taxonomy shared by every package

PURPOSE:
  All error kinds in one place. Services return the structured types
  below; the HTTP layer maps them to status codes with errors.Is/As.

ERROR CATEGORIES:
  1. Not found      - referenced row missing or owned by another organization
  2. Invalid state  - operation not allowed from the record's current status
  3. Validation     - malformed or out-of-range input
  4. Concurrency    - the store could not serialize the unit of work; retry it
  5. Duplicate      - a uniqueness constraint rejected the write

SEE ALSO:
  - store/sqlstore/errors.go: Maps driver errors onto these sentinels
  - api/errors.go: Maps these errors onto HTTP responses
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced row doesn't exist for the organization.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when a transition is not allowed.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation is returned for bad input.
	ErrValidation = errors.New("validation failed")

	// ErrConcurrencyConflict is returned when the store aborted a unit of work
	// because of a competing writer. The whole operation can be retried.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the missing row.
type NotFoundError struct {
	Kind string // "student", "enrollment", "category", ...
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// InvalidStateError reports an operation attempted from a status that
// does not allow it.
type InvalidStateError struct {
	Kind   string
	ID     uint
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %d in status %q", e.Op, e.Kind, e.ID, e.Status)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// ValidationError points at the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid is shorthand for a *ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrDuplicate)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
