package relation

import (
	"reflect"
	"strconv"

	"go.uber.org/zap"

	"github.com/syssam/casegen/model"
)

// Names of the generated lifecycle operations.
const (
	SetupName    = "setupRelations"
	TeardownName = "teardownRelations"
)

// BaseArgs are the constructor arguments forwarded to one base class.
type BaseArgs struct {
	Base   model.ID
	Params []model.Param
}

// ConstructorArgs returns the arguments of the derived constructor of class:
// the required arguments of the preferred constructors of the virtual bases,
// then of the non-virtual bases, then the non-static data members without a
// default value in declaration order. Duplicate names are kept.
func ConstructorArgs(g *model.Graph, class model.ID) []model.Param {
	bases, own := constructorSections(g, class)
	var out []model.Param
	for _, b := range bases {
		out = append(out, b.Params...)
	}
	return append(out, own...)
}

func constructorSections(g *model.Graph, class model.ID) ([]BaseArgs, []model.Param) {
	e, ok := g.Lookup(class)
	if !ok || e.Class == nil {
		return nil, nil
	}
	var virt, plain []BaseArgs
	for _, b := range e.Class.Bases {
		args := BaseArgs{Base: b.Class, Params: preferredArgs(g, b.Class)}
		if b.Virtual {
			virt = append(virt, args)
		} else {
			plain = append(plain, args)
		}
	}
	var own []model.Param
	for _, m := range g.ChildrenOf(class, model.KindAttribute) {
		if m.Attribute.Required() {
			own = append(own, model.Param{Name: m.Name, Type: m.Attribute.Type})
		}
	}
	return append(virt, plain...), own
}

// preferredArgs returns the required parameters of the preferred constructor
// of class. Without a user-written constructor the derived one is preferred.
func preferredArgs(g *model.Graph, class model.ID) []model.Param {
	var first *model.Entity
	for _, op := range g.ChildrenOf(class, model.KindOperation) {
		if !op.Operation.Constructor || op.Operation.Role != model.RoleUser {
			continue
		}
		if op.Operation.Preferred {
			first = op
			break
		}
		if first == nil {
			first = op
		}
	}
	if first == nil {
		return ConstructorArgs(g, class)
	}
	var out []model.Param
	for _, p := range first.Operation.Params {
		if p.Default == "" {
			out = append(out, model.Param{Name: p.Name, Type: p.Type})
		}
	}
	return out
}

// ClassLinks returns the realised links class takes part in, ordered by
// association.
func ClassLinks(g *model.Graph, class model.ID) []model.LinkSpec {
	var out []model.LinkSpec
	for _, a := range g.AssociationsOf(class) {
		links, err := Plan(g, a.ID)
		if err != nil {
			continue
		}
		for _, l := range links {
			if l.Owner == class || l.Target == class {
				out = append(out, l)
			}
		}
	}
	return out
}

// NeedsSetup reports whether class must relink l when constructed.
func NeedsSetup(l model.LinkSpec, class model.ID) bool {
	if !l.Required {
		return false
	}
	switch l.Layout {
	case model.LayoutPointer:
		return l.Owner == class
	case model.LayoutList:
		return l.Target == class && l.Names.Back != ""
	}
	return false
}

// NeedsTeardown reports whether class must unlink l when destroyed. The
// target of a pointer that is not mirrored cannot reach its owner, and a
// global head outlives every instance of its owner.
func NeedsTeardown(l model.LinkSpec, class model.ID) bool {
	switch {
	case l.Owner == class:
		return !l.Global
	case l.Layout == model.LayoutList:
		return l.Target == class
	}
	return false
}

// RefreshLifecycle brings the setup, teardown, derived constructor and
// derived destructor of class in line with its associations, bases and
// members. Members whose content did not change are kept as they are.
func (c *Compiler) RefreshLifecycle(tx *model.Tx, class model.ID) error {
	g := tx.Graph()
	e, ok := g.Lookup(class)
	if !ok {
		return nil
	}
	desired := lifecycleMembers(g, e)
	current := make(map[model.MemberRole]*model.Entity)
	for _, m := range g.Generated(class) {
		role := m.Role()
		if !role.Lifecycle() {
			continue
		}
		if _, dup := current[role]; dup || !hasRole(desired, role) {
			if err := g.Delete(tx, m.ID); err != nil {
				return err
			}
			continue
		}
		current[role] = m
	}
	for _, d := range desired {
		m, ok := current[d.op.Role]
		if !ok {
			if _, err := g.CreateChild(tx, class, model.KindOperation, d.name, model.Attrs{Origin: class, Operation: d.op}); err != nil {
				return err
			}
			continue
		}
		if m.Name != d.name {
			if err := g.Rename(tx, m.ID, d.name); err != nil {
				return err
			}
		}
		if !reflect.DeepEqual(m.Operation, d.op) {
			if err := g.SetOperation(tx, m.ID, *d.op); err != nil {
				return err
			}
		}
	}
	c.log.Debug("refreshed lifecycle", zap.String("class", e.Name), zap.Int("members", len(desired)))
	return nil
}

func hasRole(ms []memberSpec, role model.MemberRole) bool {
	for _, m := range ms {
		if m.op.Role == role {
			return true
		}
	}
	return false
}

func lifecycleMembers(g *model.Graph, e *model.Entity) []memberSpec {
	if !e.Kind.Associable() || e.Class.External {
		return nil
	}
	var setup, teardown []model.LinkSpec
	for _, l := range ClassLinks(g, e.ID) {
		if NeedsTeardown(l, e.ID) {
			teardown = append(teardown, l)
		}
		if NeedsSetup(l, e.ID) {
			setup = append(setup, l)
		}
	}
	var userCtor, userDtor bool
	for _, op := range g.ChildrenOf(e.ID, model.KindOperation) {
		if op.Operation.Role != model.RoleUser {
			continue
		}
		userCtor = userCtor || op.Operation.Constructor
		userDtor = userDtor || op.Operation.Destructor
	}

	var out []memberSpec
	op := func(name string, data *model.OperationData) {
		out = append(out, memberSpec{class: e.ID, kind: model.KindOperation, name: name, op: data})
	}
	if len(setup) > 0 {
		op(SetupName, &model.OperationData{Return: void, Access: model.AccessProtected, Role: model.RoleSetup, Links: setup})
	}
	if len(teardown) > 0 {
		op(TeardownName, &model.OperationData{Return: void, Access: model.AccessProtected, Role: model.RoleTeardown, Links: teardown})
	}
	bases, own := constructorSections(g, e.ID)
	argc := len(own)
	for _, b := range bases {
		argc += len(b.Params)
	}
	if !userCtor && (len(setup) > 0 || argc > 0) {
		op(e.Name, derivedConstructor(bases, own))
	}
	if !userDtor && len(teardown) > 0 {
		op("~"+e.Name, &model.OperationData{
			Destructor: true,
			Virtual:    len(e.Class.Bases) > 0 || len(g.Subclasses(e.ID)) > 0,
			Role:       model.RoleDerivedDestructor,
		})
	}
	return out
}

// derivedConstructor builds the preferred constructor forwarding the base
// arguments and initialising the required members. Duplicate parameter names
// get a numeric suffix.
func derivedConstructor(bases []BaseArgs, own []model.Param) *model.OperationData {
	op := &model.OperationData{
		Constructor: true,
		Preferred:   true,
		Role:        model.RoleDerivedConstructor,
	}
	used := make(map[string]int)
	param := func(p model.Param) string {
		used[p.Name]++
		name := p.Name
		if n := used[p.Name]; n > 1 {
			name += strconv.Itoa(n)
		}
		op.Params = append(op.Params, model.Param{Name: name, Type: p.Type})
		return name
	}
	for _, b := range bases {
		init := model.Init{Base: b.Base}
		for _, p := range b.Params {
			init.Args = append(init.Args, param(p))
		}
		op.Inits = append(op.Inits, init)
	}
	for _, p := range own {
		op.Inits = append(op.Inits, model.Init{Member: p.Name, Args: []string{param(p)}})
	}
	return op
}
