package model

// Compiler materialises associations into generated members. The graph calls
// Compile when an association is created or edited and Detach before it is
// deleted. RefreshLifecycle runs on the structural queue of the committing
// transaction whenever a class's members, bases or associations changed.
type Compiler interface {
	Compile(tx *Tx, assoc ID) error
	Detach(tx *Tx, assoc ID) error
	RefreshLifecycle(tx *Tx, class ID) error
}

// Regenerator re-emits one unit after a commit, undo or redo. The graph is
// read-only during the call. The project root is passed as the unit of the
// project-wide files.
type Regenerator interface {
	Regenerate(g *Graph, unit ID) error
}

// RegeneratorFunc adapts a function to Regenerator.
type RegeneratorFunc func(g *Graph, unit ID) error

// Regenerate calls f(g, unit).
func (f RegeneratorFunc) Regenerate(g *Graph, unit ID) error {
	return f(g, unit)
}

// Observer is notified about replayed entities and about committed
// association changes that diagrams should redraw.
type Observer interface {
	OnUndoRedoChanged(e *Entity)
	OnUndoRedoRemoving(e *Entity)
	OnUndoRedoAdd(e *Entity)
	RefreshDiagram(ids []ID)
}

// NopObserver ignores every notification. Embed it to implement a subset.
type NopObserver struct{}

// OnUndoRedoChanged implements Observer.
func (NopObserver) OnUndoRedoChanged(*Entity) {}

// OnUndoRedoRemoving implements Observer.
func (NopObserver) OnUndoRedoRemoving(*Entity) {}

// OnUndoRedoAdd implements Observer.
func (NopObserver) OnUndoRedoAdd(*Entity) {}

// RefreshDiagram implements Observer.
func (NopObserver) RefreshDiagram([]ID) {}
