// Package model implements the transactional entity graph of a design.
//
// A Graph is a tree of typed entities (project, modules, classifiers,
// members, associations and their two views) in which every entity but the
// project root has exactly one owner. Which kinds an entity may own is
// decided by a capability table keyed by kind, see CanContain.
//
// Every mutation takes an explicit transaction handle:
//
//	tx, err := g.Begin("add class")
//	if err != nil {
//		return err
//	}
//	a, err := g.CreateChild(tx, mod.ID, model.KindClass, "A", model.Attrs{})
//	if err != nil {
//		return err
//	}
//	res, err := tx.Commit()
//
// Each mutation is recorded as an immutable msgpack snapshot of the entity
// before and after the change. Commit pushes the changes of a transaction as
// one journal entry, so Undo and Redo always replay whole transactions.
// Mutations mark the owning unit dirty; dirty units are regenerated once per
// commit through the configured Regenerator.
package model
