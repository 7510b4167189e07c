package casegen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrRegeneration is matched by every *CommitError.
	ErrRegeneration = errors.New("casegen: regeneration failed")
	// ErrNoBackend is returned when a workspace generates without a backend.
	ErrNoBackend = errors.New("casegen: no backend configured")
)

// CommitError reports the per-unit failures of a committed transaction. The
// transaction itself is journaled; only the failed files are stale.
type CommitError struct {
	Label    string
	Failures []error
}

// Error implements the error interface.
func (e *CommitError) Error() string {
	switch len(e.Failures) {
	case 0:
		return fmt.Sprintf("casegen: %q committed without failures", e.Label)
	case 1:
		return fmt.Sprintf("casegen: %q: %v", e.Label, e.Failures[0])
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "casegen: %q: %d failures:", e.Label, len(e.Failures))
	for i, err := range e.Failures {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Is reports whether the target matches ErrRegeneration.
func (e *CommitError) Is(target error) bool {
	return target == ErrRegeneration
}

// Unwrap returns the failures.
func (e *CommitError) Unwrap() []error {
	return e.Failures
}

// NewCommitError returns a CommitError when failures holds a non-nil error,
// otherwise nil.
func NewCommitError(label string, failures ...error) error {
	var filtered []error
	for _, err := range failures {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &CommitError{Label: label, Failures: filtered}
}

// IsCommitError returns true if the error is or wraps a CommitError.
func IsCommitError(err error) bool {
	if err == nil {
		return false
	}
	var e *CommitError
	return errors.As(err, &e)
}

// RollbackError wraps the error that aborted a transaction whose rollback
// failed as well.
type RollbackError struct {
	Err      error // Original error that triggered rollback
	Rollback error
}

// Error implements the error interface.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("casegen: rollback failed: %v: %v", e.Rollback, e.Err)
}

// Unwrap returns the original and the rollback error.
func (e *RollbackError) Unwrap() []error {
	return []error{e.Err, e.Rollback}
}
