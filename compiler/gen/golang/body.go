package golang

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/casegen/model"
)

// scope is the method a body is rendered for.
type scope struct {
	class model.ID
	recv  string
	// where names the method in AlreadyLinkedError.
	where string
}

// sel selects the member of class called name on expr. Static members are
// package-level and selected by name alone.
func (r *renderer) sel(expr string, class model.ID, name string) *jen.Statement {
	id := r.named(class, name)
	if r.isStatic(class, name) {
		return jen.Id(id)
	}
	return jen.Id(expr).Dot(id)
}

func (r *renderer) body(s scope, m *model.Entity) []jen.Code {
	op := m.Operation
	var out []jen.Code
	switch op.Role {
	case model.RoleUser:
		out = raw(op.Body)
	case model.RoleSetup:
		for _, l := range op.Links {
			out = append(out, r.setup(s, l)...)
		}
	case model.RoleTeardown:
		for _, l := range op.Links {
			out = append(out, r.teardown(s, l)...)
		}
	default:
		if op.Link != nil {
			out = r.link(s, op)
		}
	}
	return out
}

// relink is one condition under which an insertion finds its item already
// linked, with the statement detaching it.
type relink struct {
	cond   jen.Code
	detach jen.Code
}

// relinkGuard renders both relink behaviours. The constant selected by the
// build tag keeps one of them.
func relinkGuard(where string, checks ...relink) []jen.Code {
	out := make([]jen.Code, 0, len(checks))
	for _, c := range checks {
		out = append(out, jen.If(c.cond).Block(
			jen.If(jen.Id(tolerantConst)).Block(c.detach).Else().Block(
				jen.Id(linkedFunc).Call(jen.Lit(where)),
			),
		))
	}
	return out
}

func (r *renderer) link(s scope, op *model.OperationData) []jen.Code {
	l := *op.Link
	n := l.Names
	self := func(name string) *jen.Statement { return r.sel(s.recv, l.Owner, name) }
	item := func(name string) *jen.Statement { return r.sel("item", l.Target, name) }
	switch op.Role {
	case model.RoleLinkAddFirst, model.RoleLinkAddLast:
		head, tail, toward, away := n.First, n.Last, n.Next, n.Prev
		if op.Role == model.RoleLinkAddLast {
			head, tail, toward, away = n.Last, n.First, n.Prev, n.Next
		}
		out := relinkGuard(s.where, r.listRelink(s, l))
		if n.Back != "" {
			out = append(out, item(n.Back).Op("=").Id(s.recv))
		}
		return append(out,
			item(toward).Op("=").Add(self(head)),
			jen.If(self(head).Op("!=").Nil()).Block(
				self(head).Dot(r.named(l.Target, away)).Op("=").Id("item"),
			).Else().Block(
				self(tail).Op("=").Id("item"),
			),
			self(head).Op("=").Id("item"),
			self(n.Count).Op("++"),
		)
	case model.RoleLinkRemove:
		if l.Layout == model.LayoutPointer {
			var out []jen.Code
			if n.Mirror != "" {
				out = append(out, jen.If(self(n.Field).Op("!=").Nil()).Block(
					self(n.Field).Dot(r.named(l.Target, n.Mirror)).Op("=").Nil(),
				))
			}
			return append(out, self(n.Field).Op("=").Nil())
		}
		unlinked := item(n.Prev).Op("==").Nil().Op("&&").Add(self(n.First)).Op("!=").Id("item")
		if n.Back != "" {
			unlinked = item(n.Back).Op("!=").Id(s.recv)
		}
		out := []jen.Code{
			jen.If(unlinked).Block(jen.Return()),
			jen.If(item(n.Prev).Op("!=").Nil()).Block(
				item(n.Prev).Dot(r.named(l.Target, n.Next)).Op("=").Add(item(n.Next)),
			).Else().Block(
				self(n.First).Op("=").Add(item(n.Next)),
			),
			jen.If(item(n.Next).Op("!=").Nil()).Block(
				item(n.Next).Dot(r.named(l.Target, n.Prev)).Op("=").Add(item(n.Prev)),
			).Else().Block(
				self(n.Last).Op("=").Add(item(n.Prev)),
			),
			item(n.Prev).Op("=").Nil(),
			item(n.Next).Op("=").Nil(),
		}
		if n.Back != "" {
			out = append(out, item(n.Back).Op("=").Nil())
		}
		return append(out, self(n.Count).Op("--"))
	case model.RoleLinkDeleteAll:
		body := []jen.Code{
			jen.Id("item").Op(":=").Add(self(n.First)),
			self(n.Remove).Call(jen.Id("item")),
		}
		if r.destroyable(l.Target) {
			body = append(body, jen.Id("item").Dot("Destroy").Call())
		}
		return []jen.Code{jen.For(self(n.First).Op("!=").Nil()).Block(body...)}
	case model.RoleLinkOwner:
		return []jen.Code{jen.Return(r.sel(s.recv, l.Target, n.Back))}
	case model.RoleLinkSet:
		checks := []relink{{cond: self(n.Field).Op("!=").Nil(), detach: self(n.Remove).Call()}}
		mirror, mirrored := r.v.Mirror(l)
		if mirrored {
			checks = append(checks, relink{
				cond:   item(n.Mirror).Op("!=").Nil(),
				detach: jen.Id("item").Dot(r.named(mirror.Owner, mirror.Names.Remove)).Call(),
			})
		}
		out := append(relinkGuard(s.where, checks...), self(n.Field).Op("=").Id("item"))
		if mirrored {
			out = append(out, item(n.Mirror).Op("=").Id(s.recv))
		}
		return out
	case model.RoleLinkGet:
		return []jen.Code{jen.Return(self(n.Field))}
	case model.RoleLinkMove:
		return []jen.Code{
			jen.Id("item").Op(":=").Add(self(n.Field)),
			self(n.Remove).Call(),
			jen.If(jen.Id("item").Op("!=").Nil()).Block(
				jen.Id("to").Dot(r.named(l.Owner, n.Set)).Call(jen.Id("item")),
			),
		}
	case model.RoleLinkReplace:
		return []jen.Code{
			jen.If(self(n.Field).Op("!=").Id("old")).Block(
				jen.Panic(jen.Lit(s.where + ": old item is not linked")),
			),
			self(n.Remove).Call(),
			jen.If(jen.Id("item").Op("!=").Nil()).Block(
				self(n.Set).Call(jen.Id("item")),
			),
		}
	}
	return nil
}

func (r *renderer) listRelink(s scope, l model.LinkSpec) relink {
	n := l.Names
	if n.Back != "" {
		back := func() *jen.Statement { return r.sel("item", l.Target, n.Back) }
		return relink{
			cond:   back().Op("!=").Nil(),
			detach: back().Dot(r.named(l.Owner, n.Remove)).Call(jen.Id("item")),
		}
	}
	return relink{
		cond: r.sel("item", l.Target, n.Prev).Op("!=").Nil().Op("||").
			Add(r.sel("item", l.Target, n.Next)).Op("!=").Nil().Op("||").
			Add(r.sel(s.recv, l.Owner, n.First)).Op("==").Id("item"),
		detach: r.sel(s.recv, l.Owner, n.Remove).Call(jen.Id("item")),
	}
}

// setup relinks a required link after construction. Constructors store
// required pointers before the links can be maintained.
func (r *renderer) setup(s scope, l model.LinkSpec) []jen.Code {
	n := l.Names
	self := func(name string) *jen.Statement { return r.sel(s.recv, s.class, name) }
	required := func(field string) jen.Code {
		return jen.If(self(field).Op("==").Nil()).Block(
			jen.Panic(jen.Lit(fmt.Sprintf("%s: %s is required", r.typeName(s.class), field))),
		)
	}
	switch {
	case l.Layout == model.LayoutPointer && l.Owner == s.class:
		out := []jen.Code{required(n.Field)}
		if n.Mirror == "" {
			return out
		}
		return append(out,
			jen.Id("item").Op(":=").Add(self(n.Field)),
			self(n.Field).Op("=").Nil(),
			self(n.Set).Call(jen.Id("item")),
		)
	case l.Layout == model.LayoutList && l.Target == s.class:
		return []jen.Code{
			required(n.Back),
			jen.Id("owner").Op(":=").Add(self(n.Back)),
			self(n.Back).Op("=").Nil(),
			jen.Id("owner").Dot(r.named(l.Owner, n.AddLast)).Call(jen.Id(s.recv)),
		}
	}
	return nil
}

// teardown unlinks the receiver from l before it is destroyed.
func (r *renderer) teardown(s scope, l model.LinkSpec) []jen.Code {
	n := l.Names
	self := func(name string) *jen.Statement { return r.sel(s.recv, s.class, name) }
	switch {
	case l.Owner == s.class && l.Layout == model.LayoutPointer:
		return []jen.Code{self(n.Remove).Call()}
	case l.Owner == s.class && l.Required:
		return []jen.Code{self(n.DeleteAll).Call()}
	case l.Owner == s.class:
		return []jen.Code{jen.For(self(n.First).Op("!=").Nil()).Block(
			self(n.Remove).Call(self(n.First)),
		)}
	case n.Back != "":
		return []jen.Code{jen.If(self(n.Back).Op("!=").Nil()).Block(
			self(n.Back).Dot(r.named(l.Owner, n.Remove)).Call(jen.Id(s.recv)),
		)}
	}
	owner := func(name string) *jen.Statement { return r.sel(s.recv, l.Owner, name) }
	return []jen.Code{jen.If(
		self(n.Prev).Op("!=").Nil().Op("||").
			Add(self(n.Next)).Op("!=").Nil().Op("||").
			Add(owner(n.First)).Op("==").Id(s.recv),
	).Block(
		owner(n.Remove).Call(jen.Id(s.recv)),
	)}
}
