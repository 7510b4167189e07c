package relation

import (
	"github.com/syssam/casegen/model"
)

// Plan returns the realised navigation directions of an association.
//
// The FROM to TO direction is a pointer on FROM when the TO end holds at most
// one instance, and an intrusive list headed by FROM otherwise. A
// bidirectional association adds the reverse navigation: a mirrored pointer
// on TO for one-to-one associations, an owner accessor on the list nodes, or
// a list headed by TO when the FROM end holds many instances.
func Plan(g *model.Graph, assoc model.ID) ([]model.LinkSpec, error) {
	e, err := g.Get(assoc)
	if err != nil {
		return nil, err
	}
	if e.Association == nil {
		return nil, &model.AssociationError{Association: assoc, Message: e.Kind.String() + " is not an association"}
	}
	a := e.Association
	fail := func(msg string) error {
		return &model.AssociationError{
			Association: assoc,
			From:        g.TypeName(model.TypeRef{Class: a.From}),
			To:          g.TypeName(model.TypeRef{Class: a.To}),
			Message:     msg,
		}
	}
	from, to := a.FromEnd.Multiplicity, a.ToEnd.Multiplicity
	switch {
	case from.Many() && to.Many():
		return nil, fail("many-to-many associations cannot be stored intrusively")
	case a.Storage == model.StoragePointer && to.Many():
		return nil, fail("pointer storage requires a TO bound of at most one")
	case a.Storage == model.StorageList && from.Many():
		return nil, fail("list nodes belong to at most one owner")
	case a.Global && a.Bidirectional:
		return nil, fail("global associations are navigable from the owner only")
	}

	fromRole, toRole := roles(g, a)
	list := to.Many() || a.Storage == model.StorageList
	switch {
	case list:
		return []model.LinkSpec{{
			Association: assoc,
			Layout:      model.LayoutList,
			Owner:       a.From,
			Target:      a.To,
			Global:      a.Global,
			Required:    from.Required() && !a.Global,
			Names:       listNames(toRole, fromRole, a.Global, a.Bidirectional),
		}}, nil
	case a.Bidirectional && from.Many():
		return []model.LinkSpec{{
			Association: assoc,
			Layout:      model.LayoutList,
			Owner:       a.To,
			Target:      a.From,
			Required:    to.Required(),
			Names:       listNames(fromRole, toRole, false, true),
		}}, nil
	case a.Bidirectional:
		return []model.LinkSpec{
			{
				Association: assoc,
				Layout:      model.LayoutPointer,
				Owner:       a.From,
				Target:      a.To,
				Required:    to.Required(),
				Names:       pointerNames(toRole, fromRole, false),
			},
			{
				Association: assoc,
				Layout:      model.LayoutPointer,
				Owner:       a.To,
				Target:      a.From,
				Required:    from.Required(),
				Names:       pointerNames(fromRole, toRole, false),
			},
		}, nil
	default:
		return []model.LinkSpec{{
			Association: assoc,
			Layout:      model.LayoutPointer,
			Owner:       a.From,
			Target:      a.To,
			Global:      a.Global,
			Required:    to.Required() && !a.Global,
			Names:       pointerNames(toRole, "", a.Global),
		}}, nil
	}
}

// memberSpec is a member to generate.
type memberSpec struct {
	class model.ID
	kind  model.Kind
	name  string
	attr  *model.AttributeData
	op    *model.OperationData
}

func ptr(class model.ID) model.TypeRef {
	return model.TypeRef{Class: class, Pointer: true}
}

var (
	void   = model.TypeRef{Name: "void"}
	number = model.TypeRef{Name: "int"}
)

// members expands links into the members they generate, in a stable order:
// owner fields, owner methods, then target fields and methods.
func members(links []model.LinkSpec, access func(l model.LinkSpec) model.Access) []memberSpec {
	var out []memberSpec
	for _, l := range links {
		link := l
		acc := access(l)
		field := func(class model.ID, name string, role model.MemberRole, t model.TypeRef, static, required bool) {
			def := "nullptr"
			if !t.Pointer {
				def = "0"
			}
			out = append(out, memberSpec{class: class, kind: model.KindAttribute, name: name, attr: &model.AttributeData{
				Type: t, Static: static, Default: def, HasDefault: !required || static,
				Access: acc, Role: role, Link: &link,
			}})
		}
		method := func(class model.ID, name string, role model.MemberRole, ret model.TypeRef, static, isConst bool, params ...model.Param) {
			out = append(out, memberSpec{class: class, kind: model.KindOperation, name: name, op: &model.OperationData{
				Return: ret, Params: params, Static: static, Const: isConst,
				Access: acc, Role: role, Link: &link,
			}})
		}
		item := model.Param{Name: "item", Type: ptr(l.Target)}
		n := l.Names
		switch l.Layout {
		case model.LayoutList:
			field(l.Owner, n.First, model.RoleLinkFirst, ptr(l.Target), l.Global, false)
			field(l.Owner, n.Last, model.RoleLinkLast, ptr(l.Target), l.Global, false)
			field(l.Owner, n.Count, model.RoleLinkCount, number, l.Global, false)
			method(l.Owner, n.AddFirst, model.RoleLinkAddFirst, void, l.Global, false, item)
			method(l.Owner, n.AddLast, model.RoleLinkAddLast, void, l.Global, false, item)
			method(l.Owner, n.Remove, model.RoleLinkRemove, void, l.Global, false, item)
			method(l.Owner, n.DeleteAll, model.RoleLinkDeleteAll, void, l.Global, false)
			field(l.Target, n.Prev, model.RoleLinkPrev, ptr(l.Target), false, false)
			field(l.Target, n.Next, model.RoleLinkNext, ptr(l.Target), false, false)
			if n.Back != "" {
				field(l.Target, n.Back, model.RoleLinkBack, ptr(l.Owner), false, l.Required)
			}
			if n.OwnerGet != "" {
				method(l.Target, n.OwnerGet, model.RoleLinkOwner, ptr(l.Owner), false, true)
			}
		case model.LayoutPointer:
			field(l.Owner, n.Field, model.RoleLinkPointer, ptr(l.Target), l.Global, l.Required)
			method(l.Owner, n.Set, model.RoleLinkSet, void, l.Global, false, item)
			method(l.Owner, n.Get, model.RoleLinkGet, ptr(l.Target), l.Global, !l.Global)
			method(l.Owner, n.Remove, model.RoleLinkRemove, void, l.Global, false)
			if n.Move != "" {
				method(l.Owner, n.Move, model.RoleLinkMove, void, false, false,
					model.Param{Name: "to", Type: ptr(l.Owner)})
			}
			method(l.Owner, n.Replace, model.RoleLinkReplace, void, l.Global, false,
				model.Param{Name: "old", Type: ptr(l.Target)}, item)
		}
	}
	return out
}
