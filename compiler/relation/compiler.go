package relation

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/syssam/casegen/model"
)

// Compiler materialises associations into the members of the classes they
// connect and keeps the lifecycle members of those classes up to date. It
// implements model.Compiler.
type Compiler struct {
	log *zap.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a relation compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ model.Compiler = (*Compiler)(nil)

// Compile replaces the generated members of assoc with the members of its
// current layout. Members are left untouched when the layout did not change.
func (c *Compiler) Compile(tx *model.Tx, assoc model.ID) error {
	g := tx.Graph()
	e, err := g.Get(assoc)
	if err != nil {
		return err
	}
	links, err := Plan(g, assoc)
	if err != nil {
		return err
	}
	desired := members(links, endAccess(e.Association))
	if err := checkCollisions(g, e, desired); err != nil {
		return err
	}
	existing := g.Generated(assoc)
	if sameMembers(existing, desired) {
		return nil
	}
	for _, m := range existing {
		if err := g.Delete(tx, m.ID); err != nil {
			return err
		}
	}
	for _, m := range desired {
		if _, err := g.CreateChild(tx, m.class, m.kind, m.name, model.Attrs{
			Origin:    assoc,
			Attribute: m.attr,
			Operation: m.op,
		}); err != nil {
			return &model.AssociationError{Association: assoc, Message: "generate " + m.name, Cause: err}
		}
	}
	c.log.Debug("compiled association",
		zap.String("association", e.Name),
		zap.Int("links", len(links)),
		zap.Int("members", len(desired)),
	)
	return nil
}

// Detach deletes every member generated by assoc.
func (c *Compiler) Detach(tx *model.Tx, assoc model.ID) error {
	g := tx.Graph()
	generated := g.Generated(assoc)
	for _, m := range generated {
		if err := g.Delete(tx, m.ID); err != nil {
			return err
		}
	}
	if e, ok := g.Lookup(assoc); ok && e.Association != nil {
		tx.ScheduleLifecycle(e.Association.From)
		tx.ScheduleLifecycle(e.Association.To)
	}
	c.log.Debug("detached association", zap.String("association", string(assoc)), zap.Int("members", len(generated)))
	return nil
}

// endAccess returns the access of the members navigating towards an end.
func endAccess(a *model.AssociationData) func(model.LinkSpec) model.Access {
	return func(l model.LinkSpec) model.Access {
		if l.Owner == a.From && l.Target == a.To {
			return a.ToEnd.Access
		}
		return a.FromEnd.Access
	}
}

func checkCollisions(g *model.Graph, assoc *model.Entity, desired []memberSpec) error {
	fail := func(class model.ID, name string) error {
		return &model.AssociationError{
			Association: assoc.ID,
			From:        g.TypeName(model.TypeRef{Class: assoc.Association.From}),
			To:          g.TypeName(model.TypeRef{Class: assoc.Association.To}),
			Message:     fmt.Sprintf("member %q already exists in %s", name, g.TypeName(model.TypeRef{Class: class})),
		}
	}
	type key struct {
		class model.ID
		name  string
	}
	seen := make(map[key]bool, len(desired))
	for _, m := range desired {
		k := key{m.class, m.name}
		if seen[k] {
			return fail(m.class, m.name)
		}
		seen[k] = true
		for _, ch := range g.Children(m.class) {
			if ch.Name == m.name && ch.Origin != assoc.ID && !ch.Kind.IsSide() {
				return fail(m.class, m.name)
			}
		}
	}
	return nil
}

// sameMembers reports whether existing already realises desired. Members are
// matched by class and name, not position.
func sameMembers(existing []*model.Entity, desired []memberSpec) bool {
	if len(existing) != len(desired) {
		return false
	}
	type key struct {
		class model.ID
		name  string
	}
	byKey := make(map[key]*model.Entity, len(existing))
	for _, e := range existing {
		byKey[key{e.Parent, e.Name}] = e
	}
	for _, d := range desired {
		e, ok := byKey[key{d.class, d.name}]
		if !ok || e.Kind != d.kind {
			return false
		}
		switch {
		case d.attr != nil && !reflect.DeepEqual(e.Attribute, d.attr):
			return false
		case d.op != nil && !reflect.DeepEqual(e.Operation, d.op):
			return false
		}
	}
	return true
}
