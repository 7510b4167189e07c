package cpp

import (
	"strings"

	"github.com/syssam/casegen/compiler/gen"
	"github.com/syssam/casegen/compiler/relation"
	"github.com/syssam/casegen/model"
)

const indent = "    "

// renderer turns entities into C++ declarations and definitions.
type renderer struct {
	v *gen.View
}

// printer accumulates indented lines.
type printer struct {
	b     strings.Builder
	depth int
}

func (p *printer) line(s string) {
	if s != "" {
		p.b.WriteString(strings.Repeat(indent, p.depth))
		p.b.WriteString(s)
	}
	p.b.WriteByte('\n')
}

func (p *printer) comment(c string) {
	if c == "" {
		return
	}
	for _, l := range strings.Split(c, "\n") {
		p.line(strings.TrimRight("/// "+l, " "))
	}
}

// typeName renders t with nested classes qualified by their enclosing
// classes.
func (r *renderer) typeName(t model.TypeRef) string {
	name := t.Name
	if t.Class != "" {
		if path := r.v.ClassPath(t.Class); path != nil {
			name = strings.Join(path, "::")
		}
	}
	if name == "" {
		name = "void"
	}
	if t.Const {
		name = "const " + name
	}
	if t.Pointer {
		name += "*"
	}
	return name
}

func (r *renderer) qualified(id model.ID) string {
	return strings.Join(r.v.ClassPath(id), "::")
}

// declaration renders the declaration of a classifier and everything nested
// in it.
func (r *renderer) declaration(e *model.Entity) string {
	p := &printer{}
	r.declare(p, e)
	return p.b.String()
}

func (r *renderer) declare(p *printer, e *model.Entity) {
	p.comment(r.v.Comment(e))
	switch e.Kind {
	case model.KindTypedef:
		p.line("typedef " + r.typeName(e.Class.Alias) + " " + e.Name + ";")
	case model.KindEnum:
		p.line("enum " + e.Name)
		p.line("{")
		p.depth++
		for _, a := range r.v.Attributes(e.ID) {
			p.comment(r.v.Comment(a))
			if a.Attribute.HasDefault {
				p.line(a.Name + " = " + a.Attribute.Default + ",")
			} else {
				p.line(a.Name + ",")
			}
		}
		p.depth--
		p.line("};")
	default:
		r.declareClass(p, e)
	}
}

func (r *renderer) declareClass(p *printer, e *model.Entity) {
	head := e.Kind.String() + " " + e.Name
	var bases []string
	for _, b := range e.Class.Bases {
		s := b.Access.String() + " "
		if b.Virtual {
			s += "virtual "
		}
		bases = append(bases, s+r.qualified(b.Class))
	}
	if len(bases) > 0 {
		head += " : " + strings.Join(bases, ", ")
	}
	p.line(head)
	p.line("{")
	p.depth++
	for _, f := range r.v.Friends(e.ID) {
		p.line("friend class " + r.qualified(f) + ";")
	}
	for _, acc := range []model.Access{model.AccessPublic, model.AccessProtected, model.AccessPrivate} {
		var nested, members []*model.Entity
		if acc == model.AccessPublic {
			nested = r.v.Nested(e.ID)
		}
		for _, m := range r.v.Graph.Children(e.ID) {
			if access(m) == acc && (m.Kind == model.KindAttribute || m.Kind == model.KindOperation) {
				members = append(members, m)
			}
		}
		if len(nested) == 0 && len(members) == 0 {
			continue
		}
		p.depth--
		p.line(acc.String() + ":")
		p.depth++
		for _, n := range nested {
			r.declare(p, n)
		}
		for _, m := range members {
			p.comment(r.v.Comment(m))
			p.line(r.memberDecl(m))
		}
	}
	p.depth--
	p.line("};")
}

func access(m *model.Entity) model.Access {
	switch {
	case m.Attribute != nil:
		return m.Attribute.Access
	case m.Operation != nil:
		return m.Operation.Access
	}
	return model.AccessPublic
}

func (r *renderer) memberDecl(m *model.Entity) string {
	if a := m.Attribute; a != nil {
		var b strings.Builder
		if a.Static {
			b.WriteString("static ")
		}
		if a.Const {
			b.WriteString("const ")
		}
		b.WriteString(r.typeName(a.Type) + " " + m.Name)
		if a.HasDefault && a.Default != "" && !a.Static {
			b.WriteString(" = " + a.Default)
		}
		return b.String() + ";"
	}
	op := m.Operation
	var b strings.Builder
	switch {
	case op.Static:
		b.WriteString("static ")
	case op.Virtual || op.Abstract:
		b.WriteString("virtual ")
	}
	if !op.Constructor && !op.Destructor {
		b.WriteString(r.typeName(op.Return) + " ")
	}
	b.WriteString(m.Name + "(" + r.params(op.Params, true) + ")")
	if op.Const {
		b.WriteString(" const")
	}
	if op.Abstract {
		b.WriteString(" = 0")
	}
	return b.String() + ";"
}

func (r *renderer) params(ps []model.Param, defaults bool) string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		s := r.typeName(p.Type) + " " + p.Name
		if defaults && p.Default != "" {
			s += " = " + p.Default
		}
		out = append(out, s)
	}
	return strings.Join(out, ", ")
}

// method is one out-of-class function definition.
type method struct {
	Signature string
	Inits     string
	Body      []string
}

// definitions collects the static member and function definitions of e and
// of the classes nested in it.
func (r *renderer) definitions(e *model.Entity, sd *sourceData) {
	if !e.Kind.IsClassifier() || e.Kind == model.KindEnum || e.Kind == model.KindTypedef {
		return
	}
	qual := r.qualified(e.ID)
	for _, a := range r.v.Attributes(e.ID) {
		if !a.Attribute.Static {
			continue
		}
		s := r.typeName(a.Attribute.Type) + " " + qual + "::" + a.Name
		if a.Attribute.Const {
			s = "const " + s
		}
		if a.Attribute.HasDefault && a.Attribute.Default != "" {
			s += " = " + a.Attribute.Default
		}
		sd.Statics = append(sd.Statics, s+";")
	}
	for _, op := range r.v.Operations(e.ID) {
		if op.Operation.Abstract {
			continue
		}
		sd.Methods = append(sd.Methods, r.define(e, op))
	}
	for _, n := range r.v.Nested(e.ID) {
		r.definitions(n, sd)
	}
}

func (r *renderer) define(class, m *model.Entity) method {
	op := m.Operation
	qual := r.qualified(class.ID)
	sig := qual + "::" + m.Name + "(" + r.params(op.Params, false) + ")"
	if !op.Constructor && !op.Destructor {
		sig = r.typeName(op.Return) + " " + sig
	}
	if op.Const {
		sig += " const"
	}
	var inits []string
	for _, in := range op.Inits {
		name := in.Member
		if in.Base != "" {
			name = r.qualified(in.Base)
		}
		inits = append(inits, name+"("+strings.Join(in.Args, ", ")+")")
	}
	return method{Signature: sig, Inits: strings.Join(inits, ", "), Body: r.body(class, m)}
}

// body returns the statements of an operation, indented once.
func (r *renderer) body(class, m *model.Entity) []string {
	op := m.Operation
	c := &code{depth: 1}
	setup := r.v.Operation(class.ID, model.RoleSetup) != nil
	teardown := r.v.Operation(class.ID, model.RoleTeardown) != nil
	switch op.Role {
	case model.RoleUser:
		if op.Destructor && teardown {
			c.line("%s();", relation.TeardownName)
		}
		c.raw(op.Body)
		if op.Constructor && setup {
			c.line("%s();", relation.SetupName)
		}
	case model.RoleDerivedConstructor:
		if setup {
			c.line("%s();", relation.SetupName)
		}
	case model.RoleDerivedDestructor:
		if teardown {
			c.line("%s();", relation.TeardownName)
		}
	case model.RoleSetup:
		for _, l := range op.Links {
			r.setup(c, class.ID, l)
		}
	case model.RoleTeardown:
		for _, l := range op.Links {
			r.teardown(c, class.ID, l)
		}
	default:
		if op.Link != nil {
			r.link(c, class, m)
		}
	}
	return c.lines
}
