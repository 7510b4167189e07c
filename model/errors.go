package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrNotFound indicates a lookup of an unknown or deleted entity.
	ErrNotFound = errors.New("casegen: entity not found")
	// ErrInvalidContainment indicates a structural edit the parent's
	// capabilities do not permit.
	ErrInvalidContainment = errors.New("casegen: invalid containment")
	// ErrCrossScopeMove indicates a reparent across top-level scopes.
	ErrCrossScopeMove = errors.New("casegen: cross-scope move")
	// ErrNameConflict indicates a sibling with the same name.
	ErrNameConflict = errors.New("casegen: name conflict")
	// ErrInvalidAssociation indicates an association that cannot be realised.
	ErrInvalidAssociation = errors.New("casegen: invalid association")
	// ErrInvalidEntity indicates a malformed payload.
	ErrInvalidEntity = errors.New("casegen: invalid entity")
	// ErrRoot indicates an edit of the project root that is not permitted.
	ErrRoot = errors.New("casegen: project root cannot be moved or deleted")

	// ErrTxOpen is returned by Begin, Undo and Redo while a transaction is open.
	ErrTxOpen = errors.New("casegen: transaction already open")
	// ErrTxClosed is returned when a closed or foreign transaction is used.
	ErrTxClosed = errors.New("casegen: transaction closed")
	// ErrTxOrder is returned when a nested transaction is committed out of order.
	ErrTxOrder = errors.New("casegen: nested transaction committed out of order")
	// ErrReplayInProgress is returned by every mutating entry point while an
	// undo or redo is being applied.
	ErrReplayInProgress = errors.New("casegen: mutation during undo/redo replay")
)

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	ID ID
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("casegen: entity %q not found", e.ID)
}

// Is reports whether the target matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidContainmentError reports a child kind the parent cannot own.
type InvalidContainmentError struct {
	Parent     ID
	ParentKind Kind
	Child      Kind
	Reason     string
}

// Error implements the error interface.
func (e *InvalidContainmentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "casegen: %s %q cannot contain %s", e.ParentKind, e.Parent, e.Child)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Is reports whether the target matches ErrInvalidContainment.
func (e *InvalidContainmentError) Is(target error) bool {
	return target == ErrInvalidContainment
}

// CrossScopeMoveError reports a reparent between two top-level scopes.
type CrossScopeMoveError struct {
	ID        ID
	FromScope ID
	ToScope   ID
}

// Error implements the error interface.
func (e *CrossScopeMoveError) Error() string {
	return fmt.Sprintf("casegen: cannot move %q from scope %q to scope %q", e.ID, e.FromScope, e.ToScope)
}

// Is reports whether the target matches ErrCrossScopeMove.
func (e *CrossScopeMoveError) Is(target error) bool {
	return target == ErrCrossScopeMove
}

// NameConflictError reports a duplicate sibling name.
type NameConflictError struct {
	Parent ID
	Name   string
}

// Error implements the error interface.
func (e *NameConflictError) Error() string {
	return fmt.Sprintf("casegen: %q already has a child named %q", e.Parent, e.Name)
}

// Is reports whether the target matches ErrNameConflict.
func (e *NameConflictError) Is(target error) bool {
	return target == ErrNameConflict
}

// AssociationError reports an association that cannot be validated or
// compiled.
type AssociationError struct {
	Association ID
	From        string
	To          string
	Message     string
	Cause       error
}

// Error implements the error interface.
func (e *AssociationError) Error() string {
	var b strings.Builder
	b.WriteString("casegen: association error")
	if e.Association != "" {
		fmt.Fprintf(&b, " on %q", e.Association)
	}
	if e.From != "" || e.To != "" {
		fmt.Fprintf(&b, " (%s -> %s)", e.From, e.To)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *AssociationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrInvalidAssociation.
func (e *AssociationError) Is(target error) bool {
	return target == ErrInvalidAssociation
}

// ValidationError reports a malformed entity payload.
type ValidationError struct {
	ID      ID
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("casegen: invalid %s of %q: %s", e.Field, e.ID, e.Message)
	}
	return fmt.Sprintf("casegen: invalid entity %q: %s", e.ID, e.Message)
}

// Is reports whether the target matches ErrInvalidEntity.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEntity
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidContainment reports whether err is an invalid containment error.
func IsInvalidContainment(err error) bool {
	var e *InvalidContainmentError
	return errors.As(err, &e)
}

// IsCrossScopeMove reports whether err is a cross-scope move error.
func IsCrossScopeMove(err error) bool {
	var e *CrossScopeMoveError
	return errors.As(err, &e)
}
