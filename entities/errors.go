package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateEntry is informational: the entry was already present and nothing changed.
	ErrDuplicateEntry = errors.New("entry already present")

	// ErrExtractionInProgress is returned when an extraction is started while one is running.
	ErrExtractionInProgress = errors.New("extraction already in progress")

	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError reports malformed user input at the input boundary.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ExtractionError wraps a failure of the extraction backend
// (unreachable, timed out, or rejected by the circuit breaker).
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
