package model

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// Attrs carries the optional fields of a new entity. The payload matching the
// created kind is copied; a nil payload gets its zero value.
type Attrs struct {
	Comment string
	// Origin marks the entity as generated by an association or class.
	Origin      ID
	Class       *ClassData
	Attribute   *AttributeData
	Operation   *OperationData
	Association *AssociationData
}

// CreateChild creates an entity of the given kind under parent. Creating an
// association also creates its two views and compiles its members.
func (g *Graph) CreateChild(tx *Tx, parent ID, kind Kind, name string, attrs Attrs) (*Entity, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	p, err := g.Get(parent)
	if err != nil {
		return nil, err
	}
	if !CanContain(p.Kind, kind) {
		return nil, &InvalidContainmentError{Parent: p.ID, ParentKind: p.Kind, Child: kind}
	}
	if kind.IsSide() {
		return nil, &InvalidContainmentError{
			Parent: p.ID, ParentKind: p.Kind, Child: kind,
			Reason: "association views are created with their association",
		}
	}
	e := &Entity{
		ID:      g.opts.newID(),
		Kind:    kind,
		Name:    name,
		Comment: attrs.Comment,
		Parent:  parent,
		Origin:  attrs.Origin,
	}
	if err := g.setPayload(e, attrs); err != nil {
		return nil, err
	}
	if kind == KindAssociation && e.Name == "" {
		e.Name = g.TypeName(TypeRef{Class: e.Association.From}) + "_" + g.TypeName(TypeRef{Class: e.Association.To})
	}
	if err := g.validateName(p, kind, e.Name, ""); err != nil {
		return nil, err
	}
	if err := g.validate(e); err != nil {
		return nil, err
	}

	mark := tx.savepoint()
	tx.insert(e)
	tx.update(parent, func(p *Entity) { p.Children = append(p.Children, e.ID) })
	if kind == KindAssociation {
		g.createSides(tx, e)
		if err := g.compile(tx, e.ID); err != nil {
			tx.rollbackTo(mark)
			return nil, err
		}
		tx.TouchDiagram(e.ID)
		tx.ScheduleLifecycle(e.Association.From)
		tx.ScheduleLifecycle(e.Association.To)
	}
	g.touchMember(tx, e)
	tx.MarkDirty(e.ID)
	g.log.Debug("create entity",
		zap.Stringer("kind", kind),
		zap.String("name", e.Name),
		zap.String("id", string(e.ID)),
	)
	return e, nil
}

func (g *Graph) setPayload(e *Entity, attrs Attrs) error {
	mismatch := func(field string) error {
		return &ValidationError{ID: e.ID, Field: field, Message: fmt.Sprintf("not applicable to %s", e.Kind)}
	}
	switch {
	case e.Kind.IsClassifier():
		if attrs.Attribute != nil || attrs.Operation != nil || attrs.Association != nil {
			return mismatch("payload")
		}
		e.Class = &ClassData{}
		if attrs.Class != nil {
			e.Class = cloneClass(attrs.Class)
		}
	case e.Kind == KindAttribute:
		if attrs.Class != nil || attrs.Operation != nil || attrs.Association != nil {
			return mismatch("payload")
		}
		e.Attribute = &AttributeData{}
		if attrs.Attribute != nil {
			e.Attribute = cloneAttribute(attrs.Attribute)
		}
	case e.Kind == KindOperation:
		if attrs.Class != nil || attrs.Attribute != nil || attrs.Association != nil {
			return mismatch("payload")
		}
		e.Operation = &OperationData{}
		if attrs.Operation != nil {
			e.Operation = cloneOperation(attrs.Operation)
		}
	case e.Kind == KindAssociation:
		if attrs.Association == nil {
			return &ValidationError{ID: e.ID, Field: "association", Message: "endpoints are required"}
		}
		a := *attrs.Association
		e.Association = &a
	default:
		if attrs.Class != nil || attrs.Attribute != nil || attrs.Operation != nil || attrs.Association != nil {
			return mismatch("payload")
		}
	}
	return nil
}

func (g *Graph) createSides(tx *Tx, assoc *Entity) {
	for _, s := range []Side{SideFrom, SideTo} {
		kind := KindRelationFrom
		if s == SideTo {
			kind = KindRelationTo
		}
		side := &Entity{
			ID:     g.opts.newID(),
			Kind:   kind,
			Name:   g.sideName(assoc.Association, s),
			Parent: assoc.ID,
			Side:   &SideData{Association: assoc.ID, Side: s},
		}
		tx.insert(side)
		tx.update(assoc.ID, func(a *Entity) { a.Children = append(a.Children, side.ID) })
	}
}

func (g *Graph) sideName(a *AssociationData, s Side) string {
	if r := a.End(s).Role; r != "" {
		return r
	}
	return g.TypeName(TypeRef{Class: a.Class(s)})
}

// Delete removes id and its subtree. Associations attached to any class in
// the subtree are deleted first; deleting an association view deletes the
// association. Deleting an unknown entity is a no-op.
func (g *Graph) Delete(tx *Tx, id ID) error {
	if err := tx.check(); err != nil {
		return err
	}
	e, ok := g.entities[id]
	if !ok {
		return nil
	}
	if id == g.root {
		return ErrRoot
	}
	if e.Side != nil {
		return g.Delete(tx, e.Side.Association)
	}
	if e.Kind == KindAssociation {
		return g.deleteAssociation(tx, e)
	}

	inSub := g.subtree(id)
	for _, a := range g.Associations() {
		if inSub[a.ID] || inSub[a.Association.From] || inSub[a.Association.To] {
			if err := g.deleteAssociation(tx, a); err != nil {
				return err
			}
		}
	}
	inSub = g.subtree(id)
	g.dropReferences(tx, inSub)

	parent := e.Parent
	tx.MarkDirty(id)
	g.removeSubtree(tx, id)
	tx.update(parent, func(p *Entity) {
		p.Children = slices.DeleteFunc(p.Children, func(c ID) bool { return c == id })
	})
	if p, ok := g.entities[parent]; ok && p.Kind.IsClassifier() && !e.Role().Lifecycle() {
		tx.ScheduleLifecycle(parent)
	}
	tx.MarkDirty(parent)
	g.log.Debug("delete entity", zap.Stringer("kind", e.Kind), zap.String("name", e.Name), zap.Int("entities", len(inSub)))
	return nil
}

func (g *Graph) deleteAssociation(tx *Tx, a *Entity) error {
	if g.opts.compiler != nil {
		if err := g.opts.compiler.Detach(tx, a.ID); err != nil {
			return err
		}
	} else {
		for _, m := range g.Generated(a.ID) {
			if err := g.Delete(tx, m.ID); err != nil {
				return err
			}
		}
	}
	tx.ScheduleLifecycle(a.Association.From)
	tx.ScheduleLifecycle(a.Association.To)
	parent := a.Parent
	g.removeSubtree(tx, a.ID)
	tx.update(parent, func(p *Entity) {
		p.Children = slices.DeleteFunc(p.Children, func(c ID) bool { return c == a.ID })
	})
	tx.TouchDiagram(a.ID)
	tx.MarkDirty(a.Association.From)
	tx.MarkDirty(a.Association.To)
	return nil
}

// dropReferences strips bases and type references into a subtree about to
// be removed. Type references keep the last known name.
func (g *Graph) dropReferences(tx *Tx, inSub map[ID]bool) {
	fix := func(t *TypeRef) {
		if t.Class != "" && inSub[t.Class] {
			t.Name = g.TypeName(*t)
			t.Class = ""
		}
	}
	var survivors []*Entity
	g.Walk(g.root, func(e *Entity) bool {
		if inSub[e.ID] {
			return false
		}
		survivors = append(survivors, e)
		return true
	})
	for _, e := range survivors {
		switch {
		case e.Class != nil:
			changed := tx.update(e.ID, func(e *Entity) {
				e.Class.Bases = slices.DeleteFunc(e.Class.Bases, func(b Base) bool { return inSub[b.Class] })
				fix(&e.Class.Alias)
			})
			if changed {
				tx.ScheduleLifecycle(e.ID)
				tx.MarkDirty(e.ID)
			}
		case e.Attribute != nil:
			if tx.update(e.ID, func(e *Entity) { fix(&e.Attribute.Type) }) {
				tx.MarkDirty(e.ID)
			}
		case e.Operation != nil:
			if tx.update(e.ID, func(e *Entity) {
				fix(&e.Operation.Return)
				for i := range e.Operation.Params {
					fix(&e.Operation.Params[i].Type)
				}
			}) {
				tx.MarkDirty(e.ID)
			}
		}
	}
}

func (g *Graph) subtree(id ID) map[ID]bool {
	ids := make(map[ID]bool)
	g.Walk(id, func(e *Entity) bool {
		ids[e.ID] = true
		return true
	})
	return ids
}

// removeSubtree removes children before their parent.
func (g *Graph) removeSubtree(tx *Tx, id ID) {
	e, ok := g.entities[id]
	if !ok {
		return
	}
	for _, c := range slices.Clone(e.Children) {
		g.removeSubtree(tx, c)
	}
	tx.remove(id)
}

// Reparent moves id under newParent at index. A negative or out of range
// index appends. Both entities must share their top-level scope.
func (g *Graph) Reparent(tx *Tx, id, newParent ID, index int) error {
	if err := tx.check(); err != nil {
		return err
	}
	e, err := g.Get(id)
	if err != nil {
		return err
	}
	p, err := g.Get(newParent)
	if err != nil {
		return err
	}
	if id == g.root {
		return ErrRoot
	}
	if e.Kind.IsSide() || e.Generated() {
		return &InvalidContainmentError{
			Parent: p.ID, ParentKind: p.Kind, Child: e.Kind,
			Reason: "generated entities move with their owner",
		}
	}
	if !CanContain(p.Kind, e.Kind) {
		return &InvalidContainmentError{Parent: p.ID, ParentKind: p.Kind, Child: e.Kind}
	}
	if g.IsAncestor(id, newParent) {
		return &InvalidContainmentError{
			Parent: p.ID, ParentKind: p.Kind, Child: e.Kind,
			Reason: "an entity cannot be moved into its own subtree",
		}
	}
	if e.Parent != newParent {
		from, to := g.ScopeOf(id), g.ScopeOf(newParent)
		if from != to {
			return &CrossScopeMoveError{ID: id, FromScope: from, ToScope: to}
		}
		if err := g.validateName(p, e.Kind, e.Name, id); err != nil {
			return err
		}
	}

	oldParent := e.Parent
	tx.MarkDirty(id)
	tx.update(oldParent, func(op *Entity) {
		op.Children = slices.DeleteFunc(op.Children, func(c ID) bool { return c == id })
	})
	tx.update(newParent, func(np *Entity) {
		if index < 0 || index > len(np.Children) {
			index = len(np.Children)
		}
		np.Children = slices.Insert(np.Children, index, id)
	})
	tx.update(id, func(e *Entity) { e.Parent = newParent })
	tx.MarkDirty(id)
	if oldParent != newParent {
		for _, pid := range []ID{oldParent, newParent} {
			if pe, ok := g.entities[pid]; ok && pe.Kind.IsClassifier() {
				tx.ScheduleLifecycle(pid)
			}
		}
	}
	return nil
}

// Rename changes the name of id. Renaming an association view changes the
// role of its end; renaming a class recompiles its associations and
// regenerates every unit that refers to it.
func (g *Graph) Rename(tx *Tx, id ID, name string) error {
	if err := tx.check(); err != nil {
		return err
	}
	e, err := g.Get(id)
	if err != nil {
		return err
	}
	if e.Side != nil {
		a := g.entities[e.Side.Association]
		data := *a.Association
		if e.Side.Side == SideTo {
			data.ToEnd.Role = name
		} else {
			data.FromEnd.Role = name
		}
		return g.SetAssociation(tx, a.ID, data)
	}
	if p := g.Parent(id); p != nil {
		if err := g.validateName(p, e.Kind, name, id); err != nil {
			return err
		}
	} else if name == "" {
		return &ValidationError{ID: id, Field: "name", Message: "name is empty"}
	}
	mark := tx.savepoint()
	if !tx.update(id, func(e *Entity) { e.Name = name }) {
		return nil
	}
	switch {
	case e.Kind.IsClassifier():
		for _, u := range g.Referrers(id) {
			tx.MarkDirty(u)
		}
		tx.ScheduleLifecycle(id)
		for _, a := range g.AssociationsOf(id) {
			g.renameSides(tx, a)
			if err := g.compile(tx, a.ID); err != nil {
				tx.rollbackTo(mark)
				return err
			}
			tx.TouchDiagram(a.ID)
		}
	case e.Kind == KindAssociation:
		tx.TouchDiagram(id)
	default:
		g.touchMember(tx, e)
	}
	tx.MarkDirty(id)
	return nil
}

// SetComment changes the documentation comment of id.
func (g *Graph) SetComment(tx *Tx, id ID, comment string) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := g.Get(id); err != nil {
		return err
	}
	if tx.update(id, func(e *Entity) { e.Comment = comment }) {
		tx.MarkDirty(id)
	}
	return nil
}

// SetClass replaces the payload of a classifier.
func (g *Graph) SetClass(tx *Tx, id ID, data ClassData) error {
	if err := tx.check(); err != nil {
		return err
	}
	e, err := g.Get(id)
	if err != nil {
		return err
	}
	if e.Class == nil {
		return &ValidationError{ID: id, Field: "class", Message: fmt.Sprintf("%s is not a classifier", e.Kind)}
	}
	probe := *e
	probe.Class = cloneClass(&data)
	if err := g.validate(&probe); err != nil {
		return err
	}
	if tx.update(id, func(e *Entity) { e.Class = cloneClass(&data) }) {
		tx.ScheduleLifecycle(id)
		tx.MarkDirty(id)
	}
	return nil
}

// SetAttribute replaces the payload of an attribute.
func (g *Graph) SetAttribute(tx *Tx, id ID, data AttributeData) error {
	if err := tx.check(); err != nil {
		return err
	}
	e, err := g.Get(id)
	if err != nil {
		return err
	}
	if e.Attribute == nil {
		return &ValidationError{ID: id, Field: "attribute", Message: fmt.Sprintf("%s is not an attribute", e.Kind)}
	}
	probe := *e
	probe.Attribute = cloneAttribute(&data)
	if err := g.validate(&probe); err != nil {
		return err
	}
	if tx.update(id, func(e *Entity) { e.Attribute = cloneAttribute(&data) }) {
		g.touchMember(tx, e)
		tx.MarkDirty(id)
	}
	return nil
}

// SetOperation replaces the payload of an operation.
func (g *Graph) SetOperation(tx *Tx, id ID, data OperationData) error {
	if err := tx.check(); err != nil {
		return err
	}
	e, err := g.Get(id)
	if err != nil {
		return err
	}
	if e.Operation == nil {
		return &ValidationError{ID: id, Field: "operation", Message: fmt.Sprintf("%s is not an operation", e.Kind)}
	}
	probe := *e
	probe.Operation = cloneOperation(&data)
	if err := g.validate(&probe); err != nil {
		return err
	}
	if tx.update(id, func(e *Entity) { e.Operation = cloneOperation(&data) }) {
		g.touchMember(tx, e)
		tx.MarkDirty(id)
	}
	return nil
}

// SetAssociation replaces the payload of an association and recompiles its
// members. On failure the association is left unchanged.
func (g *Graph) SetAssociation(tx *Tx, id ID, data AssociationData) error {
	if err := tx.check(); err != nil {
		return err
	}
	e, err := g.Get(id)
	if err != nil {
		return err
	}
	if e.Association == nil {
		return &ValidationError{ID: id, Field: "association", Message: fmt.Sprintf("%s is not an association", e.Kind)}
	}
	probe := *e
	probe.Association = &data
	if err := g.validate(&probe); err != nil {
		return err
	}
	old := *e.Association
	mark := tx.savepoint()
	if !tx.update(id, func(e *Entity) {
		d := data
		e.Association = &d
	}) {
		return nil
	}
	g.renameSides(tx, e)
	if err := g.compile(tx, id); err != nil {
		tx.rollbackTo(mark)
		return err
	}
	for _, c := range []ID{old.From, old.To, data.From, data.To} {
		tx.ScheduleLifecycle(c)
		tx.MarkDirty(c)
	}
	tx.TouchDiagram(id)
	return nil
}

func (g *Graph) renameSides(tx *Tx, a *Entity) {
	for _, s := range g.Children(a.ID) {
		if s.Side == nil {
			continue
		}
		name := g.sideName(a.Association, s.Side.Side)
		tx.update(s.ID, func(e *Entity) { e.Name = name })
	}
}

func (g *Graph) compile(tx *Tx, assoc ID) error {
	if g.opts.compiler == nil {
		return nil
	}
	return g.opts.compiler.Compile(tx, assoc)
}

// touchMember schedules the lifecycle refresh of the class owning a member.
func (g *Graph) touchMember(tx *Tx, e *Entity) {
	if e.Kind != KindAttribute && e.Kind != KindOperation {
		return
	}
	if e.Role().Lifecycle() {
		return
	}
	if p, ok := g.entities[e.Parent]; ok && p.Kind.IsClassifier() {
		tx.ScheduleLifecycle(p.ID)
	}
}

func (g *Graph) validateName(parent *Entity, kind Kind, name string, self ID) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{ID: self, Field: "name", Message: "name is empty"}
	}
	if kind.IsSide() {
		return nil
	}
	for _, s := range g.Children(parent.ID) {
		if s.ID == self || s.Name != name || s.Kind.IsSide() {
			continue
		}
		if kind == KindOperation && s.Kind == KindOperation {
			continue
		}
		return &NameConflictError{Parent: parent.ID, Name: name}
	}
	return nil
}

func (g *Graph) validate(e *Entity) error {
	checkType := func(field string, t TypeRef) error {
		if t.Class == "" {
			return nil
		}
		c, ok := g.entities[t.Class]
		if !ok || !c.Kind.IsClassifier() {
			return &ValidationError{ID: e.ID, Field: field, Message: fmt.Sprintf("%q is not a classifier", t.Class)}
		}
		return nil
	}
	switch {
	case e.Class != nil:
		for _, b := range e.Class.Bases {
			c, ok := g.entities[b.Class]
			if !ok || !c.Kind.Associable() {
				return &ValidationError{ID: e.ID, Field: "bases", Message: fmt.Sprintf("%q is not a class", b.Class)}
			}
			if b.Class == e.ID || slices.Contains(g.Subclasses(e.ID), b.Class) {
				return &ValidationError{ID: e.ID, Field: "bases", Message: fmt.Sprintf("inheriting from %q creates a cycle", c.Name)}
			}
		}
		return checkType("alias", e.Class.Alias)
	case e.Attribute != nil:
		return checkType("type", e.Attribute.Type)
	case e.Operation != nil:
		if err := checkType("return", e.Operation.Return); err != nil {
			return err
		}
		for _, p := range e.Operation.Params {
			if err := checkType("params", p.Type); err != nil {
				return err
			}
		}
	case e.Association != nil:
		return g.validateAssociation(e.ID, e.Association)
	}
	return nil
}

func (g *Graph) validateAssociation(id ID, a *AssociationData) error {
	aerr := func(msg string, cause error) error {
		return &AssociationError{
			Association: id,
			From:        g.TypeName(TypeRef{Class: a.From}),
			To:          g.TypeName(TypeRef{Class: a.To}),
			Message:     msg,
			Cause:       cause,
		}
	}
	for _, s := range []Side{SideFrom, SideTo} {
		c, ok := g.entities[a.Class(s)]
		if !ok {
			return aerr(fmt.Sprintf("%s class %q not found", s, a.Class(s)), nil)
		}
		if !c.Kind.Associable() {
			return aerr(fmt.Sprintf("%s endpoint is a %s", s, c.Kind), nil)
		}
		if err := a.End(s).Multiplicity.Validate(); err != nil {
			return aerr(fmt.Sprintf("%s multiplicity", s), err)
		}
	}
	return nil
}

func cloneClass(c *ClassData) *ClassData {
	out := *c
	out.Bases = slices.Clone(c.Bases)
	return &out
}

func cloneLink(l *LinkSpec) *LinkSpec {
	if l == nil {
		return nil
	}
	out := *l
	return &out
}

func cloneAttribute(a *AttributeData) *AttributeData {
	out := *a
	out.Link = cloneLink(a.Link)
	return &out
}

func cloneOperation(o *OperationData) *OperationData {
	out := *o
	out.Params = slices.Clone(o.Params)
	out.Links = slices.Clone(o.Links)
	out.Link = cloneLink(o.Link)
	out.Inits = make([]Init, len(o.Inits))
	for i, in := range o.Inits {
		out.Inits[i] = in
		out.Inits[i].Args = slices.Clone(in.Args)
	}
	if len(out.Inits) == 0 {
		out.Inits = nil
	}
	return &out
}
