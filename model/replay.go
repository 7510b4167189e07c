package model

import (
	"go.uber.org/zap"

	"github.com/syssam/casegen/journal"
)

// replayer restores journal changes into the graph and notifies observers.
type replayer struct {
	g     *Graph
	units []ID
	diag  []ID
}

// Apply implements journal.Applier.
func (r *replayer) Apply(_ journal.Direction, changes []journal.Change) error {
	g := r.g
	// Units of entities about to disappear must be captured before removal.
	for _, c := range changes {
		r.collect(ID(c.ID))
		if c.Kind == journal.Removed {
			if e, ok := g.entities[ID(c.ID)]; ok {
				for _, o := range g.opts.observers {
					o.OnUndoRedoRemoving(e)
				}
			}
		}
	}
	if err := g.restore(changes); err != nil {
		return err
	}
	for _, c := range changes {
		id := ID(c.ID)
		r.collect(id)
		e, ok := g.entities[id]
		if !ok {
			continue
		}
		for _, o := range g.opts.observers {
			switch c.Kind {
			case journal.Added:
				o.OnUndoRedoAdd(e)
			case journal.Changed:
				o.OnUndoRedoChanged(e)
			}
		}
	}
	return nil
}

func (r *replayer) collect(id ID) {
	e, ok := r.g.entities[id]
	if !ok {
		return
	}
	if u := r.g.UnitOf(id); u != "" {
		r.units = append(r.units, u)
	}
	switch {
	case e.Kind == KindAssociation:
		r.diag = append(r.diag, id)
	case e.Side != nil:
		r.diag = append(r.diag, e.Side.Association)
	}
}

// restore writes the recorded state of each change into the graph without
// validation or journaling.
func (g *Graph) restore(changes []journal.Change) error {
	for _, c := range changes {
		id := ID(c.ID)
		if c.Kind == journal.Removed {
			g.unindex(id)
			continue
		}
		e, err := decode(c.After)
		if err != nil {
			return err
		}
		// Keep the position in the origin index when the origin is unchanged.
		if cur, ok := g.entities[id]; ok && cur.Origin == e.Origin {
			g.entities[id] = e
			continue
		}
		g.unindex(id)
		g.index(e)
	}
	return nil
}

// Undo reverts the most recent committed transaction and regenerates the
// affected units. Undo with nothing to undo returns an empty result.
func (g *Graph) Undo() (*CommitResult, error) {
	return g.replay(journal.Backward)
}

// Redo replays the most recently undone transaction.
func (g *Graph) Redo() (*CommitResult, error) {
	return g.replay(journal.Forward)
}

func (g *Graph) replay(dir journal.Direction) (*CommitResult, error) {
	if g.replaying {
		return nil, ErrReplayInProgress
	}
	if g.tx != nil {
		return nil, ErrTxOpen
	}
	g.replaying = true
	defer func() { g.replaying = false }()

	r := &replayer{g: g}
	var (
		entry *journal.Entry
		err   error
	)
	if dir == journal.Forward {
		entry, err = g.journal.Redo(r)
	} else {
		entry, err = g.journal.Undo(r)
	}
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &CommitResult{}, nil
	}

	res := &CommitResult{Label: entry.Label, Changes: len(entry.Changes)}
	// Units that no longer exist are regenerated too so their files go away.
	for _, u := range r.units {
		g.scheduleEmit(g.emission, u)
	}
	g.scheduleEmit(g.emission, g.root)
	res.Units = unitsOf(g.emission.Keys())
	for _, err := range g.emission.Drain() {
		g.log.Warn("regeneration failed", zap.String("label", entry.Label), zap.Error(err))
		res.Failures = append(res.Failures, err)
	}
	if diag := dedupe(r.diag); len(diag) > 0 {
		for _, o := range g.opts.observers {
			o.RefreshDiagram(diag)
		}
	}
	g.log.Debug("replay transaction",
		zap.Stringer("direction", dir),
		zap.String("label", entry.Label),
		zap.Int("changes", res.Changes),
	)
	return res, nil
}

func dedupe(ids []ID) []ID {
	seen := make(map[ID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
