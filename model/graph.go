package model

import (
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/syssam/casegen/journal"
	"github.com/syssam/casegen/regen"
)

// Graph is the ownership tree of a project. All mutation goes through an
// explicit transaction handle obtained from Begin; reads are always allowed.
// A Graph is not safe for concurrent use.
type Graph struct {
	opts     *options
	log      *zap.Logger
	root     ID
	entities map[ID]*Entity
	// origins indexes generated entities by the association or class that
	// produced them.
	origins map[ID][]ID

	journal   *journal.Journal
	tx        *txState
	replaying bool
	// emission is used by undo and redo; transactions carry their own.
	emission *regen.Queue
}

// New returns a graph holding a single project root named project.
func New(project string, opts ...Option) (*Graph, error) {
	o := defaultOptions()
	var errs []error
	for _, opt := range opts {
		if err := opt(o); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if project == "" {
		return nil, &ValidationError{Field: "name", Message: "project name is empty"}
	}
	g := &Graph{
		opts:     o,
		log:      o.logger,
		entities: make(map[ID]*Entity),
		origins:  make(map[ID][]ID),
		journal:  journal.New(o.historyLimit),
		emission: regen.New(),
	}
	root := &Entity{ID: o.newID(), Kind: KindProject, Name: project}
	g.root = root.ID
	g.index(root)
	return g, nil
}

// Root returns the project entity.
func (g *Graph) Root() *Entity {
	return g.entities[g.root]
}

// Lookup returns the entity with the given id. The returned entity must not
// be modified.
func (g *Graph) Lookup(id ID) (*Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// Get is like Lookup but returns a NotFoundError for unknown ids.
func (g *Graph) Get(id ID) (*Entity, error) {
	e, ok := g.entities[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return e, nil
}

// Len returns the number of entities, the root included.
func (g *Graph) Len() int {
	return len(g.entities)
}

// Parent returns the owner of id, or nil for the root.
func (g *Graph) Parent(id ID) *Entity {
	e, ok := g.entities[id]
	if !ok || e.Parent == "" {
		return nil
	}
	return g.entities[e.Parent]
}

// Children returns the owned children of id in order.
func (g *Graph) Children(id ID) []*Entity {
	e, ok := g.entities[id]
	if !ok {
		return nil
	}
	out := make([]*Entity, 0, len(e.Children))
	for _, c := range e.Children {
		if ce, ok := g.entities[c]; ok {
			out = append(out, ce)
		}
	}
	return out
}

// ChildrenOf returns the children of id with the given kind.
func (g *Graph) ChildrenOf(id ID, kind Kind) []*Entity {
	var out []*Entity
	for _, c := range g.Children(id) {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the child of parent with the given name, ignoring operations
// and association views.
func (g *Graph) Child(parent ID, name string) (*Entity, bool) {
	for _, c := range g.Children(parent) {
		if c.Name == name && namespaced(c.Kind) {
			return c, true
		}
	}
	return nil, false
}

// Walk visits the subtree of id in pre-order. Returning false from fn skips
// the children of the visited entity.
func (g *Graph) Walk(id ID, fn func(*Entity) bool) {
	e, ok := g.entities[id]
	if !ok {
		return
	}
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		g.Walk(c, fn)
	}
}

// Ancestors returns the owners of id from the direct parent up to the root.
func (g *Graph) Ancestors(id ID) []*Entity {
	var out []*Entity
	for p := g.Parent(id); p != nil; p = g.Parent(p.ID) {
		out = append(out, p)
	}
	return out
}

// IsAncestor reports whether a owns d, directly or transitively. An entity
// is its own ancestor.
func (g *Graph) IsAncestor(a, d ID) bool {
	for id := d; id != ""; {
		if id == a {
			return true
		}
		e, ok := g.entities[id]
		if !ok {
			return false
		}
		id = e.Parent
	}
	return false
}

// UnitOf returns the compilable unit owning id: the outermost classifier
// whose parent is a module. It returns "" for modules, the project,
// associations and their views.
func (g *Graph) UnitOf(id ID) ID {
	var unit ID
	for e, ok := g.entities[id]; ok; e, ok = g.entities[e.Parent] {
		if e.Kind.IsClassifier() {
			if p, ok := g.entities[e.Parent]; ok && p.Kind == KindModule {
				unit = e.ID
			}
		}
		if e.Parent == "" {
			break
		}
	}
	return unit
}

// ScopeOf returns the top-level scope of id: the ancestor, or id itself,
// directly owned by the project root. The scope of the root is the root.
func (g *Graph) ScopeOf(id ID) ID {
	e, ok := g.entities[id]
	if !ok {
		return ""
	}
	for e.Parent != "" && e.Parent != g.root {
		p, ok := g.entities[e.Parent]
		if !ok {
			break
		}
		e = p
	}
	return e.ID
}

// ModuleOf returns the nearest module owning id.
func (g *Graph) ModuleOf(id ID) *Entity {
	for _, a := range g.Ancestors(id) {
		if a.Kind == KindModule {
			return a
		}
	}
	return nil
}

// Units returns every compilable unit in tree order.
func (g *Graph) Units() []ID {
	var units []ID
	g.Walk(g.root, func(e *Entity) bool {
		if e.Kind.IsClassifier() {
			if p := g.Parent(e.ID); p != nil && p.Kind == KindModule {
				units = append(units, e.ID)
			}
			return false
		}
		return e.Kind == KindProject || e.Kind == KindModule
	})
	return units
}

// Classes returns every classifier in tree order.
func (g *Graph) Classes() []*Entity {
	var out []*Entity
	g.Walk(g.root, func(e *Entity) bool {
		if e.Kind.IsClassifier() {
			out = append(out, e)
		}
		return e.Kind == KindProject || e.Kind == KindModule || e.Kind.IsClassifier()
	})
	return out
}

// Associations returns every association in tree order.
func (g *Graph) Associations() []*Entity {
	var out []*Entity
	g.Walk(g.root, func(e *Entity) bool {
		if e.Kind == KindAssociation {
			out = append(out, e)
			return false
		}
		return e.Kind == KindProject || e.Kind == KindModule
	})
	return out
}

// AssociationsOf returns the associations with class as an endpoint.
func (g *Graph) AssociationsOf(class ID) []*Entity {
	var out []*Entity
	for _, a := range g.Associations() {
		if a.Association.Involves(class) {
			out = append(out, a)
		}
	}
	return out
}

// Generated returns the entities produced by origin. Replay may change
// their order.
func (g *Graph) Generated(origin ID) []*Entity {
	ids := g.origins[origin]
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := g.entities[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Members returns the attributes and operations of class in order.
func (g *Graph) Members(class ID) []*Entity {
	var out []*Entity
	for _, c := range g.Children(class) {
		if c.Kind == KindAttribute || c.Kind == KindOperation {
			out = append(out, c)
		}
	}
	return out
}

// Member returns the first attribute or operation of class called name.
// Unlike Child it finds operations, which may be overloaded.
func (g *Graph) Member(class ID, name string) (*Entity, bool) {
	for _, c := range g.Members(class) {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Subclasses returns the classes deriving from class, directly or
// transitively, in tree order.
func (g *Graph) Subclasses(class ID) []ID {
	derived := map[ID]bool{class: true}
	classes := g.Classes()
	for changed := true; changed; {
		changed = false
		for _, c := range classes {
			if derived[c.ID] || c.Class == nil {
				continue
			}
			for _, b := range c.Class.Bases {
				if derived[b.Class] {
					derived[c.ID] = true
					changed = true
					break
				}
			}
		}
	}
	var out []ID
	for _, c := range classes {
		if c.ID != class && derived[c.ID] {
			out = append(out, c.ID)
		}
	}
	return out
}

// Referrers returns the units that mention class through a base, a member
// type, a parameter or an association end.
func (g *Graph) Referrers(class ID) []ID {
	var units []ID
	add := func(id ID) {
		if u := g.UnitOf(id); u != "" && !slices.Contains(units, u) {
			units = append(units, u)
		}
	}
	g.Walk(g.root, func(e *Entity) bool {
		switch {
		case e.Class != nil && e.Class.HasBase(class):
			add(e.ID)
		case e.Attribute != nil && e.Attribute.Type.Class == class:
			add(e.ID)
		case e.Operation != nil:
			if e.Operation.Return.Class == class {
				add(e.ID)
			}
			for _, p := range e.Operation.Params {
				if p.Type.Class == class {
					add(e.ID)
				}
			}
		case e.Association != nil && e.Association.Involves(class):
			add(e.Association.From)
			add(e.Association.To)
		}
		return true
	})
	return units
}

// TypeName resolves a type reference to the current class name or the
// recorded name.
func (g *Graph) TypeName(t TypeRef) string {
	if t.Class != "" {
		if c, ok := g.entities[t.Class]; ok {
			return c.Name
		}
	}
	return t.Name
}

// History returns the labels of the undoable transactions, oldest first.
func (g *Graph) History() []string { return g.journal.Labels() }

// CanUndo reports whether Undo would replay a transaction.
func (g *Graph) CanUndo() bool { return g.journal.CanUndo() }

// CanRedo reports whether Redo would replay a transaction.
func (g *Graph) CanRedo() bool { return g.journal.CanRedo() }

// InTransaction reports whether a transaction is open.
func (g *Graph) InTransaction() bool { return g.tx != nil }

// Replaying reports whether an undo or redo is being applied.
func (g *Graph) Replaying() bool { return g.replaying }

func (g *Graph) index(e *Entity) {
	g.entities[e.ID] = e
	if e.Origin != "" && !slices.Contains(g.origins[e.Origin], e.ID) {
		g.origins[e.Origin] = append(g.origins[e.Origin], e.ID)
	}
}

func (g *Graph) unindex(id ID) {
	e, ok := g.entities[id]
	if !ok {
		return
	}
	delete(g.entities, id)
	if e.Origin == "" {
		return
	}
	ids := slices.DeleteFunc(g.origins[e.Origin], func(x ID) bool { return x == id })
	if len(ids) == 0 {
		delete(g.origins, e.Origin)
	} else {
		g.origins[e.Origin] = ids
	}
}

// namespaced reports whether siblings of kind k must have distinct names.
func namespaced(k Kind) bool {
	return k != KindOperation && !k.IsSide()
}
