package load

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/casegen/model"
)

// Apply builds d into g in a single transaction. Either the whole design is
// applied and journaled as one entry, or the graph is left untouched.
func Apply(g *model.Graph, d *Design) (*model.CommitResult, error) {
	label := "load design"
	if d.Project != "" {
		label = "load " + d.Project
	}
	tx, err := g.Begin(label)
	if err != nil {
		return nil, err
	}
	if err := Build(tx, d); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}
	return tx.Commit()
}

// Build applies d inside tx. Classifiers are declared first so that members,
// bases and associations may reference classes declared later in the file.
func Build(tx *model.Tx, d *Design) error {
	b := &builder{tx: tx, g: tx.Graph(), names: make(map[string][]model.ID)}
	return b.build(d)
}

type pendingClass struct {
	path string
	decl *Class
	e    *model.Entity
}

type pendingAssoc struct {
	path   string
	decl   *Association
	module model.ID
}

type builder struct {
	tx *model.Tx
	g  *model.Graph
	// names maps every "::" separated suffix of a classifier path to the
	// classifiers it designates.
	names   map[string][]model.ID
	classes []pendingClass
	assocs  []pendingAssoc
}

func fail(path string, err error) error {
	var de *DesignError
	if errors.As(err, &de) {
		return err
	}
	return &DesignError{Path: path, Cause: err}
}

func (b *builder) build(d *Design) error {
	root := b.g.Root()
	if d.Project != "" && d.Project != root.Name {
		if err := b.g.Rename(b.tx, root.ID, d.Project); err != nil {
			return fail("project", err)
		}
	}
	for _, c := range b.g.Classes() {
		b.index(c)
	}
	for i, m := range d.Modules {
		if err := b.module(root.ID, m, fmt.Sprintf("modules[%d]", i)); err != nil {
			return err
		}
	}
	for _, c := range b.classes {
		if err := b.define(c); err != nil {
			return err
		}
	}
	for _, a := range b.assocs {
		if err := b.association(a); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) module(parent model.ID, m *Module, path string) error {
	if m == nil {
		return &DesignError{Path: path, Message: "empty module"}
	}
	e, ok := b.g.Child(parent, m.Name)
	switch {
	case ok && e.Kind == model.KindModule:
		if m.Comment != "" {
			if err := b.g.SetComment(b.tx, e.ID, m.Comment); err != nil {
				return fail(path, err)
			}
		}
	default:
		var err error
		e, err = b.g.CreateChild(b.tx, parent, model.KindModule, m.Name, model.Attrs{Comment: m.Comment})
		if err != nil {
			return fail(path, err)
		}
	}
	for i, sub := range m.Modules {
		if err := b.module(e.ID, sub, fmt.Sprintf("%s.modules[%d]", path, i)); err != nil {
			return err
		}
	}
	for i, c := range m.Classes {
		if err := b.declare(e.ID, c, fmt.Sprintf("%s.classes[%d]", path, i)); err != nil {
			return err
		}
	}
	for i, a := range m.Associations {
		if a == nil {
			return &DesignError{Path: fmt.Sprintf("%s.associations[%d]", path, i), Message: "empty association"}
		}
		b.assocs = append(b.assocs, pendingAssoc{
			path:   fmt.Sprintf("%s.associations[%d]", path, i),
			decl:   a,
			module: e.ID,
		})
	}
	return nil
}

// declare creates the classifier c and its nested classifiers. Bases,
// aliases and members are set by define once every name is known.
func (b *builder) declare(parent model.ID, c *Class, path string) error {
	if c == nil {
		return &DesignError{Path: path, Message: "empty class"}
	}
	kind := model.KindClass
	if c.Kind != "" {
		k, err := model.ParseKind(c.Kind)
		if err != nil {
			return fail(path+".kind", err)
		}
		if !k.IsClassifier() {
			return &DesignError{Path: path + ".kind", Message: fmt.Sprintf("%s is not a classifier kind", k)}
		}
		kind = k
	}
	e, err := b.g.CreateChild(b.tx, parent, kind, c.Name, model.Attrs{
		Comment: c.Comment,
		Class:   &model.ClassData{Abstract: c.Abstract, External: c.External},
	})
	if err != nil {
		return fail(path, err)
	}
	b.index(e)
	b.classes = append(b.classes, pendingClass{path: path, decl: c, e: e})
	for i, n := range c.Classes {
		if err := b.declare(e.ID, n, fmt.Sprintf("%s.classes[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) define(c pendingClass) error {
	decl, e := c.decl, c.e
	if len(decl.Bases) > 0 || decl.Alias != "" {
		data := *e.Class
		for i, base := range decl.Bases {
			p := fmt.Sprintf("%s.bases[%d]", c.path, i)
			if base == nil {
				return &DesignError{Path: p, Message: "empty base"}
			}
			id, err := b.resolve(base.Class)
			if err != nil {
				return fail(p, err)
			}
			acc, err := model.ParseAccess(base.Access)
			if err != nil {
				return fail(p, err)
			}
			data.Bases = append(data.Bases, model.Base{Class: id, Virtual: base.Virtual, Access: acc})
		}
		if decl.Alias != "" {
			t, err := b.typeRef(decl.Alias)
			if err != nil {
				return fail(c.path+".alias", err)
			}
			data.Alias = t
		}
		if err := b.g.SetClass(b.tx, e.ID, data); err != nil {
			return fail(c.path, err)
		}
	}
	if len(decl.Values) > 0 && e.Kind != model.KindEnum {
		return &DesignError{Path: c.path + ".values", Message: fmt.Sprintf("a %s has no enumerators", e.Kind)}
	}
	for i, v := range decl.Values {
		p := fmt.Sprintf("%s.values[%d]", c.path, i)
		if v == nil {
			return &DesignError{Path: p, Message: "empty enumerator"}
		}
		data := &model.AttributeData{Default: v.Value, HasDefault: v.Value != ""}
		if _, err := b.g.CreateChild(b.tx, e.ID, model.KindAttribute, v.Name, model.Attrs{Comment: v.Comment, Attribute: data}); err != nil {
			return fail(p, err)
		}
	}
	for i, a := range decl.Attributes {
		p := fmt.Sprintf("%s.attributes[%d]", c.path, i)
		if err := b.attribute(e, a, p); err != nil {
			return err
		}
	}
	for i, op := range decl.Operations {
		p := fmt.Sprintf("%s.operations[%d]", c.path, i)
		if err := b.operation(e, op, p); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) attribute(class *model.Entity, a *Attribute, path string) error {
	if a == nil {
		return &DesignError{Path: path, Message: "empty attribute"}
	}
	t, err := b.typeRef(a.Type)
	if err != nil {
		return fail(path+".type", err)
	}
	acc, err := model.ParseAccess(a.Access)
	if err != nil {
		return fail(path+".access", err)
	}
	data := &model.AttributeData{
		Type:   t,
		Static: a.Static,
		Const:  a.Const,
		Access: acc,
	}
	if a.Default != nil {
		data.Default, data.HasDefault = *a.Default, true
	}
	if _, err := b.g.CreateChild(b.tx, class.ID, model.KindAttribute, a.Name, model.Attrs{Comment: a.Comment, Attribute: data}); err != nil {
		return fail(path, err)
	}
	return nil
}

func (b *builder) operation(class *model.Entity, op *Operation, path string) error {
	if op == nil {
		return &DesignError{Path: path, Message: "empty operation"}
	}
	ret, err := b.typeRef(op.Return)
	if err != nil {
		return fail(path+".return", err)
	}
	acc, err := model.ParseAccess(op.Access)
	if err != nil {
		return fail(path+".access", err)
	}
	data := &model.OperationData{
		Return:      ret,
		Static:      op.Static,
		Const:       op.Const,
		Virtual:     op.Virtual || op.Abstract,
		Abstract:    op.Abstract,
		Constructor: op.Constructor,
		Destructor:  op.Destructor,
		Preferred:   op.Preferred,
		Access:      acc,
		Body:        op.Body,
	}
	for i, p := range op.Params {
		pp := fmt.Sprintf("%s.params[%d]", path, i)
		if p == nil {
			return &DesignError{Path: pp, Message: "empty parameter"}
		}
		t, err := b.typeRef(p.Type)
		if err != nil {
			return fail(pp+".type", err)
		}
		data.Params = append(data.Params, model.Param{Name: p.Name, Type: t, Default: p.Default})
	}
	if len(op.Inits) > 0 && !op.Constructor {
		return &DesignError{Path: path + ".inits", Message: "only constructors have initialisers"}
	}
	for i, in := range op.Inits {
		ip := fmt.Sprintf("%s.inits[%d]", path, i)
		switch {
		case in == nil || (in.Base == "") == (in.Member == ""):
			return &DesignError{Path: ip, Message: "an initialiser names either a base or a member"}
		case in.Base != "":
			id, err := b.resolve(in.Base)
			if err != nil {
				return fail(ip, err)
			}
			if cur, ok := b.g.Lookup(class.ID); !ok || !cur.Class.HasBase(id) {
				return &DesignError{Path: ip, Message: fmt.Sprintf("%q is not a direct base of %s", in.Base, class.Name)}
			}
			data.Inits = append(data.Inits, model.Init{Base: id, Args: in.Args})
		default:
			data.Inits = append(data.Inits, model.Init{Member: in.Member, Args: in.Args})
		}
	}
	if _, err := b.g.CreateChild(b.tx, class.ID, model.KindOperation, op.Name, model.Attrs{Comment: op.Comment, Operation: data}); err != nil {
		return fail(path, err)
	}
	return nil
}

func (b *builder) association(a pendingAssoc) error {
	decl := a.decl
	data := &model.AssociationData{
		Global:        decl.Global,
		Bidirectional: decl.Bidirectional,
	}
	ends := []struct {
		name  string
		end   End
		class *model.ID
		data  *model.End
	}{
		{"from", decl.From, &data.From, &data.FromEnd},
		{"to", decl.To, &data.To, &data.ToEnd},
	}
	for _, e := range ends {
		p := a.path + "." + e.name
		id, err := b.resolve(e.end.Class)
		if err != nil {
			return fail(p, err)
		}
		mult := e.end.Multiplicity
		if mult == "" {
			mult = "0..1"
		}
		m, err := model.ParseMultiplicity(mult)
		if err != nil {
			return fail(p+".multiplicity", err)
		}
		acc, err := model.ParseAccess(e.end.Access)
		if err != nil {
			return fail(p+".access", err)
		}
		*e.class = id
		*e.data = model.End{Role: e.end.Role, Access: acc, Multiplicity: m}
	}
	storage, err := model.ParseStorage(decl.Storage)
	if err != nil {
		return fail(a.path+".storage", err)
	}
	data.Storage = storage
	if _, err := b.g.CreateChild(b.tx, a.module, model.KindAssociation, decl.Name, model.Attrs{Comment: decl.Comment, Association: data}); err != nil {
		return fail(a.path, err)
	}
	return nil
}

// index registers every suffix of the qualified name of e: Point,
// Circle::Point and core::Circle::Point all designate the same struct.
func (b *builder) index(e *model.Entity) {
	path := b.qualified(e.ID)
	for i := range path {
		key := strings.Join(path[i:], "::")
		if !slices.Contains(b.names[key], e.ID) {
			b.names[key] = append(b.names[key], e.ID)
		}
	}
}

// qualified returns the names of the modules and classifiers enclosing id,
// followed by its own name.
func (b *builder) qualified(id model.ID) []string {
	var path []string
	for e, ok := b.g.Lookup(id); ok && e.Kind != model.KindProject; e, ok = b.g.Lookup(e.Parent) {
		path = append(path, e.Name)
	}
	slices.Reverse(path)
	return path
}

func (b *builder) resolve(name string) (model.ID, error) {
	key := strings.TrimPrefix(strings.Join(strings.Fields(name), ""), "::")
	ids := b.names[key]
	if len(ids) == 1 {
		return ids[0], nil
	}
	err := &UnresolvedError{Name: name}
	for _, id := range ids {
		err.Candidates = append(err.Candidates, strings.Join(b.qualified(id), "::"))
	}
	slices.Sort(err.Candidates)
	return "", err
}

// typeRef parses a type written as "T", "T*", "const T" or "const T*". A
// name that no classifier declares is kept as a builtin or external type.
func (b *builder) typeRef(decl string) (model.TypeRef, error) {
	var t model.TypeRef
	s := strings.Join(strings.Fields(decl), " ")
	if rest, ok := strings.CutPrefix(s, "const "); ok {
		t.Const, s = true, rest
	}
	if rest, ok := strings.CutSuffix(s, "*"); ok {
		t.Pointer, s = true, strings.TrimSpace(rest)
	}
	if strings.ContainsAny(s, "*&") {
		return t, fmt.Errorf("unsupported type %q", decl)
	}
	switch s {
	case "":
		return t, nil
	case "void":
		if t.Pointer {
			t.Name = s
		}
		return t, nil
	}
	id, err := b.resolve(s)
	switch {
	case err == nil:
		e, _ := b.g.Lookup(id)
		t.Class, t.Name = id, e.Name
	case errors.Is(err, ErrAmbiguousClass):
		return t, err
	default:
		t.Name = s
	}
	return t, nil
}
