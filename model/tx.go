package model

import (
	"bytes"
	"slices"

	"go.uber.org/zap"

	"github.com/syssam/casegen/journal"
	"github.com/syssam/casegen/regen"
)

// Deferred operation names.
const (
	OpLifecycle = "lifecycle"
	OpEmit      = "emit"
)

// txState is shared by the handles of one outermost transaction.
type txState struct {
	label   string
	depth   int
	changes []journal.Change
	// structural operations may mutate and run before the journal push.
	structural *regen.Queue
	// emission operations are read-only and run after the journal push.
	emission *regen.Queue
	diagram  []ID
	// outer is the outermost handle; deferred operations run with it.
	outer *Tx
}

// Tx is a transaction handle. Nested handles share the state of the
// outermost one and are flattened into a single journal entry.
type Tx struct {
	g      *Graph
	state  *txState
	label  string
	depth  int
	closed bool
}

// CommitResult describes a committed transaction, undo or redo.
type CommitResult struct {
	Label string
	// Nested is set when a nested handle was committed; nothing else is
	// reported until the outermost commit.
	Nested bool
	// Changes is the number of recorded entity transitions.
	Changes int
	// Units are the regenerated units in emission order.
	Units []ID
	// Failures collects structural and regeneration errors. A failure of one
	// unit never prevents the others from being processed.
	Failures []error
}

// Begin opens the outermost transaction.
func (g *Graph) Begin(label string) (*Tx, error) {
	if g.replaying {
		return nil, ErrReplayInProgress
	}
	if g.tx != nil {
		return nil, ErrTxOpen
	}
	g.tx = &txState{
		label:      label,
		depth:      1,
		structural: regen.New(),
		emission:   regen.New(),
	}
	tx := &Tx{g: g, state: g.tx, label: label, depth: 1}
	g.tx.outer = tx
	g.log.Debug("begin transaction", zap.String("label", label))
	return tx, nil
}

// Begin opens a nested transaction. Only the innermost open handle may nest.
func (tx *Tx) Begin(label string) (*Tx, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	if tx.depth != tx.state.depth {
		return nil, ErrTxOrder
	}
	tx.state.depth++
	return &Tx{g: tx.g, state: tx.state, label: label, depth: tx.state.depth}, nil
}

// Label returns the label the handle was opened with.
func (tx *Tx) Label() string { return tx.label }

// Graph returns the graph the transaction mutates.
func (tx *Tx) Graph() *Graph { return tx.g }

// Commit closes the handle. Committing the outermost handle runs the
// structural queue, records one journal entry, regenerates every dirty unit
// once and notifies observers about the touched associations.
func (tx *Tx) Commit() (*CommitResult, error) {
	if tx.closed || tx.g.tx != tx.state {
		return nil, ErrTxClosed
	}
	if tx.depth != tx.state.depth {
		return nil, ErrTxOrder
	}
	if tx.depth > 1 {
		tx.state.depth--
		tx.closed = true
		return &CommitResult{Label: tx.label, Nested: true}, nil
	}
	g, st := tx.g, tx.state
	res := &CommitResult{Label: st.label}
	for _, err := range st.structural.Drain() {
		g.log.Warn("structural update failed", zap.String("label", st.label), zap.Error(err))
		res.Failures = append(res.Failures, err)
	}
	g.journal.Push(st.label, st.changes)
	res.Changes = len(st.changes)
	tx.closed = true
	g.tx = nil

	res.Units = unitsOf(st.emission.Keys())
	for _, err := range st.emission.Drain() {
		g.log.Warn("regeneration failed", zap.String("label", st.label), zap.Error(err))
		res.Failures = append(res.Failures, err)
	}
	if len(st.diagram) > 0 {
		for _, o := range g.opts.observers {
			o.RefreshDiagram(slices.Clone(st.diagram))
		}
	}
	g.log.Debug("commit transaction",
		zap.String("label", st.label),
		zap.Int("changes", res.Changes),
		zap.Int("units", len(res.Units)),
		zap.Int("failures", len(res.Failures)),
	)
	return res, nil
}

// Rollback reverts every change of the transaction and closes it without
// journaling, regenerating or notifying observers. Only the outermost handle
// may roll back.
func (tx *Tx) Rollback() error {
	if tx.closed || tx.g.tx != tx.state {
		return ErrTxClosed
	}
	if tx.depth != 1 || tx.state.depth != 1 {
		return ErrTxOrder
	}
	n := len(tx.state.changes)
	tx.rollbackTo(0)
	tx.closed = true
	tx.g.tx = nil
	tx.g.log.Debug("rollback transaction", zap.String("label", tx.label), zap.Int("changes", n))
	return nil
}

// Schedule records fn on the structural queue of the transaction, keyed by
// (op, id). Duplicate keys are absorbed; it reports whether fn was queued.
func (tx *Tx) Schedule(op string, id ID, fn func(*Tx) error) bool {
	if tx.check() != nil {
		return false
	}
	outer := tx.state.outer
	return tx.state.structural.Schedule(regen.Key{Op: op, ID: string(id)}, func() error {
		return fn(outer)
	})
}

// ScheduleLifecycle queues a lifecycle refresh of class and of every class
// deriving from it.
func (tx *Tx) ScheduleLifecycle(class ID) {
	c := tx.g.opts.compiler
	if c == nil {
		return
	}
	ids := append([]ID{class}, tx.g.Subclasses(class)...)
	for _, id := range ids {
		tx.Schedule(OpLifecycle, id, func(tx *Tx) error {
			if _, ok := tx.g.entities[id]; !ok {
				return nil
			}
			return c.RefreshLifecycle(tx, id)
		})
	}
}

// MarkDirty schedules the regeneration of the unit owning id and of the
// project-wide files.
func (tx *Tx) MarkDirty(id ID) {
	if tx.check() != nil {
		return
	}
	if u := tx.g.UnitOf(id); u != "" {
		tx.g.scheduleEmit(tx.state.emission, u)
	}
	tx.g.scheduleEmit(tx.state.emission, tx.g.root)
}

// TouchDiagram records an association whose diagram elements must refresh
// after commit.
func (tx *Tx) TouchDiagram(id ID) {
	if tx.check() != nil || slices.Contains(tx.state.diagram, id) {
		return
	}
	tx.state.diagram = append(tx.state.diagram, id)
}

func (tx *Tx) check() error {
	if tx == nil {
		return ErrTxClosed
	}
	if tx.g.replaying {
		return ErrReplayInProgress
	}
	if tx.closed || tx.g.tx != tx.state {
		return ErrTxClosed
	}
	return nil
}

func (g *Graph) scheduleEmit(q *regen.Queue, unit ID) {
	q.Schedule(regen.Key{Op: OpEmit, ID: string(unit)}, func() error {
		if g.opts.regenerator == nil {
			return nil
		}
		return g.opts.regenerator.Regenerate(g, unit)
	})
}

func unitsOf(keys []regen.Key) []ID {
	units := make([]ID, 0, len(keys))
	for _, k := range keys {
		units = append(units, ID(k.ID))
	}
	return units
}

// insert adds e to the graph and records it.
func (tx *Tx) insert(e *Entity) {
	tx.g.index(e)
	tx.state.changes = append(tx.state.changes, journal.Change{
		Kind:  journal.Added,
		ID:    string(e.ID),
		After: encode(e),
	})
}

// remove drops id from the graph and records it.
func (tx *Tx) remove(id ID) {
	e, ok := tx.g.entities[id]
	if !ok {
		return
	}
	before := encode(e)
	tx.g.unindex(id)
	tx.state.changes = append(tx.state.changes, journal.Change{
		Kind:   journal.Removed,
		ID:     string(id),
		Before: before,
	})
}

// update applies fn to the entity and records the transition. It reports
// whether the entity changed.
func (tx *Tx) update(id ID, fn func(e *Entity)) bool {
	e, ok := tx.g.entities[id]
	if !ok {
		return false
	}
	before := encode(e)
	fn(e)
	after := encode(e)
	if bytes.Equal(before, after) {
		return false
	}
	tx.state.changes = append(tx.state.changes, journal.Change{
		Kind:   journal.Changed,
		ID:     string(id),
		Before: before,
		After:  after,
	})
	return true
}

// savepoint returns a marker for rollbackTo.
func (tx *Tx) savepoint() int {
	return len(tx.state.changes)
}

// rollbackTo reverts the changes recorded after mark. It is used to undo a
// partially applied operation that failed.
func (tx *Tx) rollbackTo(mark int) {
	if mark >= len(tx.state.changes) {
		return
	}
	e := &journal.Entry{Changes: tx.state.changes[mark:]}
	if err := tx.g.restore(e.Inverse()); err != nil {
		tx.g.log.Error("rollback failed", zap.Error(err))
	}
	clear(tx.state.changes[mark:])
	tx.state.changes = tx.state.changes[:mark]
}
