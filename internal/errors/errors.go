// Package errors provides structured error types for the reconciliation engine.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNotFound          = errors.New("project not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrNoSources         = errors.New("no source snapshots supplied")
)

// ReconciliationError wraps an unexpected failure while merging one project.
// It isolates that project: batch callers skip it and continue.
type ReconciliationError struct {
	ProjectName string
	Err         error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciling project %q: %v", e.ProjectName, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// NewReconciliationError wraps err with the failing project's identity.
func NewReconciliationError(project string, err error) *ReconciliationError {
	return &ReconciliationError{ProjectName: project, Err: err}
}

// ValidationError reports a malformed field observed after merge. The
// reconciler recovers from these by defaulting, so callers mostly see them
// in logs rather than return values.
type ValidationError struct {
	ProjectName string
	Field       string
	Message     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("project %q field %q: %s", e.ProjectName, e.Field, e.Message)
}

// IsRecoverable returns true if the error is a per-field validation problem
// that defaulting can absorb, rather than a whole-project failure.
func IsRecoverable(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrSourceUnavailable)
}
