// Package journal records committed graph mutations as composite entries and
// replays them backward (undo) or forward (redo).
//
// A journal is agnostic of what an entity looks like: every change carries the
// encoded state of one entity before and after the mutation, and replay hands
// the changes to an Applier that knows how to restore them.
package journal

import (
	"errors"
	"fmt"
)

// ChangeKind describes what happened to an entity.
type ChangeKind uint8

const (
	// Added means the entity did not exist before the change.
	Added ChangeKind = iota + 1
	// Removed means the entity does not exist after the change.
	Removed
	// Changed means the entity's fields were modified.
	Changed
)

// String implements fmt.Stringer.
func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", uint8(k))
	}
}

// Change is one recorded entity transition. Before is nil for Added changes
// and After is nil for Removed changes. Snapshots are never modified after
// they are recorded.
type Change struct {
	Kind   ChangeKind
	ID     string
	Before []byte
	After  []byte
}

// Invert returns the change that reverts c.
func (c Change) Invert() Change {
	inv := Change{ID: c.ID, Before: c.After, After: c.Before, Kind: c.Kind}
	switch c.Kind {
	case Added:
		inv.Kind = Removed
	case Removed:
		inv.Kind = Added
	}
	return inv
}

// Entry is the composite record of one committed transaction.
type Entry struct {
	Seq     uint64
	Label   string
	Changes []Change
}

// Inverse returns the changes that revert the entry, most recent first.
func (e *Entry) Inverse() []Change {
	inv := make([]Change, len(e.Changes))
	for i, c := range e.Changes {
		inv[len(e.Changes)-1-i] = c.Invert()
	}
	return inv
}

// IDs returns the distinct entity ids touched by the entry, in first-seen order.
func (e *Entry) IDs() []string {
	seen := make(map[string]struct{}, len(e.Changes))
	ids := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		ids = append(ids, c.ID)
	}
	return ids
}

// Direction is the replay direction handed to an Applier.
type Direction uint8

const (
	// Backward replays an entry for undo.
	Backward Direction = iota
	// Forward replays an entry for redo.
	Forward
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Forward {
		return "redo"
	}
	return "undo"
}

// Applier restores recorded entity state. The changes passed to Apply are
// already ordered and inverted for the direction; After always holds the
// state to restore.
type Applier interface {
	Apply(dir Direction, changes []Change) error
}

// ErrApply is returned when an Applier fails to replay an entry.
var ErrApply = errors.New("casegen: journal replay failed")

// ReplayError wraps an Applier failure.
type ReplayError struct {
	Direction Direction
	Label     string
	Cause     error
}

// Error implements the error interface.
func (e *ReplayError) Error() string {
	return fmt.Sprintf("casegen: %s of %q failed: %v", e.Direction, e.Label, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ReplayError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrApply.
func (e *ReplayError) Is(target error) bool {
	return target == ErrApply
}

// Journal holds the undo and redo stacks. A zero limit keeps every entry.
type Journal struct {
	undo  []*Entry
	redo  []*Entry
	limit int
	seq   uint64
}

// New returns an empty journal that keeps at most limit undoable entries.
func New(limit int) *Journal {
	if limit < 0 {
		limit = 0
	}
	return &Journal{limit: limit}
}

// Push records a committed transaction and clears the redo stack. Transactions
// without changes are not recorded and Push returns nil.
func (j *Journal) Push(label string, changes []Change) *Entry {
	if len(changes) == 0 {
		return nil
	}
	j.seq++
	e := &Entry{Seq: j.seq, Label: label, Changes: changes}
	j.undo = append(j.undo, e)
	j.redo = nil
	if j.limit > 0 && len(j.undo) > j.limit {
		drop := len(j.undo) - j.limit
		clear(j.undo[:drop])
		j.undo = j.undo[drop:]
	}
	return e
}

// Undo replays the most recent entry backward and moves it to the redo
// stack. Undo on an empty stack returns (nil, nil). When the applier fails the
// entry stays on the undo stack.
func (j *Journal) Undo(a Applier) (*Entry, error) {
	if len(j.undo) == 0 {
		return nil, nil
	}
	e := j.undo[len(j.undo)-1]
	if err := a.Apply(Backward, e.Inverse()); err != nil {
		return nil, &ReplayError{Direction: Backward, Label: e.Label, Cause: err}
	}
	j.undo = j.undo[:len(j.undo)-1]
	j.redo = append(j.redo, e)
	return e, nil
}

// Redo replays the most recently undone entry forward. Redo on an empty stack
// returns (nil, nil).
func (j *Journal) Redo(a Applier) (*Entry, error) {
	if len(j.redo) == 0 {
		return nil, nil
	}
	e := j.redo[len(j.redo)-1]
	if err := a.Apply(Forward, e.Changes); err != nil {
		return nil, &ReplayError{Direction: Forward, Label: e.Label, Cause: err}
	}
	j.redo = j.redo[:len(j.redo)-1]
	j.undo = append(j.undo, e)
	return e, nil
}

// CanUndo reports whether an entry is available for undo.
func (j *Journal) CanUndo() bool { return len(j.undo) > 0 }

// CanRedo reports whether an entry is available for redo.
func (j *Journal) CanRedo() bool { return len(j.redo) > 0 }

// Len returns the number of undoable entries.
func (j *Journal) Len() int { return len(j.undo) }

// Labels returns the labels of the undoable entries, oldest first.
func (j *Journal) Labels() []string {
	labels := make([]string, len(j.undo))
	for i, e := range j.undo {
		labels[i] = e.Label
	}
	return labels
}

// Clear drops both stacks.
func (j *Journal) Clear() {
	j.undo, j.redo = nil, nil
}
