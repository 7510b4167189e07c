package gen

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/casegen/compiler/order"
	"github.com/syssam/casegen/compiler/relation"
	"github.com/syssam/casegen/model"
)

// View is the read-only projection of a model handed to backends. It is
// built once per generation run.
type View struct {
	Graph  *model.Graph
	Order  *order.Order
	Config *Config
}

// NewView resolves the declaration order of every unit of g.
func NewView(g *model.Graph, cfg *Config) (*View, error) {
	o, err := order.Resolve(g, g.Units())
	if err != nil {
		return nil, err
	}
	return &View{Graph: g, Order: o, Config: cfg}, nil
}

// Project returns the project entity.
func (v *View) Project() *model.Entity {
	return v.Graph.Root()
}

// Entity returns the entity with id, or nil.
func (v *View) Entity(id model.ID) *model.Entity {
	e, _ := v.Graph.Lookup(id)
	return e
}

// Units returns the units in declaration order.
func (v *View) Units() []*model.Entity {
	var out []*model.Entity
	for _, id := range v.Order.Units() {
		out = append(out, v.Entity(id))
	}
	return out
}

// Emitted returns the units that produce files, in declaration order.
func (v *View) Emitted() []*model.Entity {
	var out []*model.Entity
	for _, u := range v.Units() {
		if !External(u) {
			out = append(out, u)
		}
	}
	return out
}

// External reports whether e is declared outside the model.
func External(e *model.Entity) bool {
	return e.Class != nil && e.Class.External
}

// ModulePath returns the names of the modules owning id, outermost first.
func (v *View) ModulePath(id model.ID) []string {
	var out []string
	for _, a := range v.Graph.Ancestors(id) {
		if a.Kind == model.KindModule {
			out = append(out, a.Name)
		}
	}
	slices.Reverse(out)
	return out
}

// ClassPath returns the names of the classifiers enclosing id and id itself,
// outermost first.
func (v *View) ClassPath(id model.ID) []string {
	e := v.Entity(id)
	if e == nil {
		return nil
	}
	out := []string{e.Name}
	for _, a := range v.Graph.Ancestors(id) {
		if !a.Kind.IsClassifier() {
			break
		}
		out = append(out, a.Name)
	}
	slices.Reverse(out)
	return out
}

// Includes returns the units unit must include: the units it inherits from
// or embeds by value, plus the units owning nested classes it refers to, in
// declaration order.
func (v *View) Includes(unit model.ID) []model.ID {
	var out []model.ID
	for _, u := range v.Order.Units() {
		if u != unit && v.dependsOn(unit, u) {
			out = append(out, u)
		}
	}
	return out
}

func (v *View) dependsOn(unit, dep model.ID) bool {
	all := map[model.ID]bool{unit: true, dep: true}
	if slices.Contains(order.Dependencies(v.Graph, unit, all), dep) {
		return true
	}
	for _, ref := range v.references(unit) {
		if ref != v.Graph.UnitOf(ref) && v.Graph.UnitOf(ref) == dep {
			return true
		}
	}
	return false
}

// Forward returns the units unit refers to through pointers only, in
// declaration order. They are declared without a definition.
func (v *View) Forward(unit model.ID) []model.ID {
	includes := v.Includes(unit)
	refs := make(map[model.ID]bool)
	for _, r := range v.references(unit) {
		if u := v.Graph.UnitOf(r); u == r {
			refs[u] = true
		}
	}
	var out []model.ID
	for _, u := range v.Order.Units() {
		if refs[u] && u != unit && !slices.Contains(includes, u) {
			out = append(out, u)
		}
	}
	return out
}

// Related returns every unit unit refers to, in declaration order. Source
// files include them all.
func (v *View) Related(unit model.ID) []model.ID {
	refs := make(map[model.ID]bool)
	for _, r := range v.references(unit) {
		refs[v.Graph.UnitOf(r)] = true
	}
	for _, u := range v.Includes(unit) {
		refs[u] = true
	}
	var out []model.ID
	for _, u := range v.Order.Units() {
		if refs[u] && u != unit {
			out = append(out, u)
		}
	}
	return out
}

// references returns the classifiers referenced anywhere in the subtree of
// unit, including through association links.
func (v *View) references(unit model.ID) []model.ID {
	var out []model.ID
	add := func(t model.TypeRef) {
		if t.Class != "" && !slices.Contains(out, t.Class) {
			if _, ok := v.Graph.Lookup(t.Class); ok {
				out = append(out, t.Class)
			}
		}
	}
	v.Graph.Walk(unit, func(e *model.Entity) bool {
		switch {
		case e.Class != nil:
			for _, b := range e.Class.Bases {
				add(model.TypeRef{Class: b.Class})
			}
			add(e.Class.Alias)
		case e.Attribute != nil:
			add(e.Attribute.Type)
		case e.Operation != nil:
			add(e.Operation.Return)
			for _, p := range e.Operation.Params {
				add(p.Type)
			}
			for _, l := range e.Operation.Links {
				add(model.TypeRef{Class: l.Owner})
				add(model.TypeRef{Class: l.Target})
			}
		}
		return true
	})
	return out
}

// Friends returns the classes whose generated link methods reach the link
// members of class: both ends of a list and of a mirrored pointer.
func (v *View) Friends(class model.ID) []model.ID {
	var out []model.ID
	for _, l := range v.Links(class) {
		if l.Layout == model.LayoutPointer && l.Names.Mirror == "" {
			continue
		}
		other := l.Owner
		if other == class {
			other = l.Target
		}
		if other != class && !slices.Contains(out, other) {
			out = append(out, other)
		}
	}
	return out
}

// Links returns the association links class takes part in.
func (v *View) Links(class model.ID) []model.LinkSpec {
	return relation.ClassLinks(v.Graph, class)
}

// Mirror returns the link realising the opposite direction of a mirrored
// pointer link.
func (v *View) Mirror(l model.LinkSpec) (model.LinkSpec, bool) {
	if l.Layout != model.LayoutPointer || l.Names.Mirror == "" {
		return model.LinkSpec{}, false
	}
	links, err := relation.Plan(v.Graph, l.Association)
	if err != nil {
		return model.LinkSpec{}, false
	}
	for _, m := range links {
		if m.Owner == l.Target && m.Target == l.Owner {
			return m, true
		}
	}
	return model.LinkSpec{}, false
}

// Nested returns the classifiers declared inside class.
func (v *View) Nested(class model.ID) []*model.Entity {
	var out []*model.Entity
	for _, c := range v.Graph.Children(class) {
		if c.Kind.IsClassifier() {
			out = append(out, c)
		}
	}
	return out
}

// Attributes returns the data members of class.
func (v *View) Attributes(class model.ID) []*model.Entity {
	return v.Graph.ChildrenOf(class, model.KindAttribute)
}

// Operations returns the operations of class.
func (v *View) Operations(class model.ID) []*model.Entity {
	return v.Graph.ChildrenOf(class, model.KindOperation)
}

// Operation returns the first operation of class playing role.
func (v *View) Operation(class model.ID, role model.MemberRole) *model.Entity {
	for _, op := range v.Operations(class) {
		if op.Operation.Role == role {
			return op
		}
	}
	return nil
}

// Comment returns the comment of e when comments are enabled.
func (v *View) Comment(e *model.Entity) string {
	if v.Config != nil && !v.Config.Enabled(FeatureComments) {
		return ""
	}
	return strings.TrimSpace(e.Comment)
}

// Header returns the configured file header.
func (v *View) Header() string {
	if v.Config == nil {
		return ""
	}
	return v.Config.Header
}

// HeaderLines returns the configured file header split into lines.
func (v *View) HeaderLines() []string {
	h := strings.TrimRight(v.Header(), "\n")
	if h == "" {
		return nil
	}
	return strings.Split(h, "\n")
}

// Package returns the configured package path.
func (v *View) Package() string {
	if v.Config == nil {
		return ""
	}
	return v.Config.Package
}

// Guard returns the include guard of a path: "core/Order.h" becomes
// "CORE_ORDER_H".
func Guard(path string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, path)
	return cases.Upper(language.Und).String(s)
}

// Exported upper-cases the first letter of name.
func Exported(name string) string {
	return cases.Title(language.Und, cases.NoLower).String(name)
}
