// Package regen implements the coalescing work queue drained at transaction
// commit.
package regen

import (
	"errors"
	"fmt"
)

// Key identifies a deferred operation on one entity.
type Key struct {
	Op string
	ID string
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return k.Op + "(" + k.ID + ")"
}

// Func is a deferred operation.
type Func func() error

// ErrOperation is matched by every OpError.
var ErrOperation = errors.New("casegen: deferred operation failed")

// OpError reports the failure of one deferred operation.
type OpError struct {
	Key   Key
	Cause error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("casegen: %s: %v", e.Key, e.Cause)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrOperation.
func (e *OpError) Is(target error) bool {
	return target == ErrOperation
}

type item struct {
	key Key
	fn  Func
}

// Queue is a FIFO of deferred operations in which each key runs at most once
// per drain. The zero value is ready to use.
type Queue struct {
	items []item
	// next is the index of the first item Drain has not started.
	next int
	seen map[Key]struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Schedule records fn under key. It reports false when the key is already
// pending or has already run in the current drain.
func (q *Queue) Schedule(key Key, fn Func) bool {
	if q.seen == nil {
		q.seen = make(map[Key]struct{})
	}
	if _, ok := q.seen[key]; ok {
		return false
	}
	q.seen[key] = struct{}{}
	q.items = append(q.items, item{key: key, fn: fn})
	return true
}

// Pending reports whether key is scheduled and has not run yet.
func (q *Queue) Pending(key Key) bool {
	for _, it := range q.items[q.next:] {
		if it.key == key {
			return true
		}
	}
	return false
}

// Len returns the number of operations that have not run yet.
func (q *Queue) Len() int {
	return len(q.items) - q.next
}

// Keys returns the keys of the operations that have not run yet, in
// insertion order.
func (q *Queue) Keys() []Key {
	keys := make([]Key, 0, q.Len())
	for _, it := range q.items[q.next:] {
		keys = append(keys, it.key)
	}
	return keys
}

// Drain runs every scheduled operation in insertion order, including the ones
// scheduled while draining, and returns the collected failures. The queue is
// empty when Drain returns, also when an operation panics.
func (q *Queue) Drain() []error {
	defer q.Reset()
	var errs []error
	for q.next < len(q.items) {
		it := q.items[q.next]
		q.next++
		if err := it.fn(); err != nil {
			errs = append(errs, &OpError{Key: it.key, Cause: err})
		}
	}
	return errs
}

// Reset drops every scheduled operation without running it.
func (q *Queue) Reset() {
	clear(q.items)
	q.items = q.items[:0]
	q.next = 0
	clear(q.seen)
}
