package load

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrInvalidDesign indicates a design file that cannot be applied.
	ErrInvalidDesign = errors.New("casegen: invalid design")
	// ErrUnknownClass indicates a reference to a classifier the design and
	// the graph do not declare.
	ErrUnknownClass = errors.New("casegen: unknown class")
	// ErrAmbiguousClass indicates a simple name declared by several
	// classifiers.
	ErrAmbiguousClass = errors.New("casegen: ambiguous class name")
)

// DesignError reports the element of a design that failed. Path locates the
// element, e.g. "modules[0].classes[1].attributes[2]".
type DesignError struct {
	File    string
	Path    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *DesignError) Error() string {
	var b strings.Builder
	b.WriteString("casegen: design error")
	if e.File != "" {
		fmt.Fprintf(&b, " in %s", e.File)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
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

// Is reports whether the target matches ErrInvalidDesign.
func (e *DesignError) Is(target error) bool {
	return target == ErrInvalidDesign
}

// Unwrap returns the underlying cause.
func (e *DesignError) Unwrap() error {
	return e.Cause
}

// IsDesignError reports whether err is or wraps a DesignError.
func IsDesignError(err error) bool {
	var de *DesignError
	return errors.As(err, &de)
}

// UnresolvedError reports a class name that does not resolve to exactly one
// classifier.
type UnresolvedError struct {
	Name       string
	Candidates []string
}

// Error implements the error interface.
func (e *UnresolvedError) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("casegen: class name %q is ambiguous (%s)", e.Name, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("casegen: unknown class %q", e.Name)
}

// Is reports whether the target matches ErrUnknownClass or ErrAmbiguousClass.
func (e *UnresolvedError) Is(target error) bool {
	if len(e.Candidates) > 1 {
		return target == ErrAmbiguousClass
	}
	return target == ErrUnknownClass
}
