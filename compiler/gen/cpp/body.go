package cpp

import (
	"fmt"
	"strings"

	"github.com/syssam/casegen/model"
)

// code accumulates function body statements. Preprocessor directives stay
// in the first column.
type code struct {
	lines []string
	depth int
}

func (c *code) line(format string, args ...any) {
	c.lines = append(c.lines, strings.Repeat(indent, c.depth)+fmt.Sprintf(format, args...))
}

func (c *code) directive(s string) {
	c.lines = append(c.lines, s)
}

func (c *code) open(format string, args ...any) {
	c.line(format+" {", args...)
	c.depth++
}

func (c *code) close() {
	c.depth--
	c.line("}")
}

func (c *code) orElse() {
	c.depth--
	c.line("} else {")
	c.depth++
}

// raw appends user written statements.
func (c *code) raw(body string) {
	body = strings.Trim(body, "\n")
	if body == "" {
		return
	}
	for _, l := range strings.Split(body, "\n") {
		if strings.TrimSpace(l) == "" {
			c.lines = append(c.lines, "")
			continue
		}
		c.line("%s", l)
	}
}

// relink is one condition under which an insertion finds its item already
// linked, with the statement detaching it.
type relink struct {
	cond   string
	detach string
}

// relinkGuard emits both relink behaviours, selected by TolerantMacro.
func (c *code) relinkGuard(where string, checks ...relink) {
	c.directive("#ifdef " + TolerantMacro)
	for _, chk := range checks {
		c.open("if (%s)", chk.cond)
		c.line("%s", chk.detach)
		c.close()
	}
	c.directive("#else")
	for _, chk := range checks {
		c.open("if (%s)", chk.cond)
		c.line("CASEGEN_ALREADY_LINKED(%q);", where)
		c.close()
	}
	c.directive("#endif")
}

// link renders the body of a generated link method of class.
func (r *renderer) link(c *code, class, m *model.Entity) {
	op := m.Operation
	l := *op.Link
	n := l.Names
	where := r.qualified(class.ID) + "::" + m.Name
	target := r.qualified(l.Target)
	switch op.Role {
	case model.RoleLinkAddFirst, model.RoleLinkAddLast:
		head, tail, toward, away := n.First, n.Last, n.Next, n.Prev
		if op.Role == model.RoleLinkAddLast {
			head, tail, toward, away = n.Last, n.First, n.Prev, n.Next
		}
		c.line("assert(item);")
		c.relinkGuard(where, r.listRelink(l))
		if n.Back != "" {
			c.line("item->%s = this;", n.Back)
		}
		c.line("item->%s = %s;", toward, head)
		c.open("if (%s)", head)
		c.line("%s->%s = item;", head, away)
		c.orElse()
		c.line("%s = item;", tail)
		c.close()
		c.line("%s = item;", head)
		c.line("++%s;", n.Count)
	case model.RoleLinkRemove:
		if l.Layout == model.LayoutPointer {
			if n.Mirror != "" {
				c.open("if (%s)", n.Field)
				c.line("%s->%s = nullptr;", n.Field, n.Mirror)
				c.close()
			}
			c.line("%s = nullptr;", n.Field)
			return
		}
		c.line("assert(item);")
		if n.Back != "" {
			c.line("assert(item->%s == this);", n.Back)
		} else {
			c.line("assert(item->%s || %s == item);", n.Prev, n.First)
		}
		c.open("if (item->%s)", n.Prev)
		c.line("item->%s->%s = item->%s;", n.Prev, n.Next, n.Next)
		c.orElse()
		c.line("%s = item->%s;", n.First, n.Next)
		c.close()
		c.open("if (item->%s)", n.Next)
		c.line("item->%s->%s = item->%s;", n.Next, n.Prev, n.Prev)
		c.orElse()
		c.line("%s = item->%s;", n.Last, n.Prev)
		c.close()
		c.line("item->%s = nullptr;", n.Prev)
		c.line("item->%s = nullptr;", n.Next)
		if n.Back != "" {
			c.line("item->%s = nullptr;", n.Back)
		}
		c.line("--%s;", n.Count)
	case model.RoleLinkDeleteAll:
		c.open("while (%s)", n.First)
		c.line("%s* item = %s;", target, n.First)
		c.line("%s(item);", n.Remove)
		c.line("delete item;")
		c.close()
	case model.RoleLinkOwner:
		c.line("return %s;", n.Back)
	case model.RoleLinkSet:
		checks := []relink{{cond: n.Field, detach: n.Remove + "();"}}
		mirror, mirrored := r.v.Mirror(l)
		if mirrored {
			checks = append(checks, relink{
				cond:   "item->" + n.Mirror,
				detach: fmt.Sprintf("item->%s();", mirror.Names.Remove),
			})
		}
		c.line("assert(item);")
		c.relinkGuard(where, checks...)
		c.line("%s = item;", n.Field)
		if mirrored {
			c.line("item->%s = this;", n.Mirror)
		}
	case model.RoleLinkGet:
		c.line("return %s;", n.Field)
	case model.RoleLinkMove:
		c.line("assert(to);")
		c.line("%s* item = %s;", target, n.Field)
		c.line("%s();", n.Remove)
		c.open("if (item)")
		c.line("to->%s(item);", n.Set)
		c.close()
	case model.RoleLinkReplace:
		c.line("assert(%s == old);", n.Field)
		c.line("%s();", n.Remove)
		c.open("if (item)")
		c.line("%s(item);", n.Set)
		c.close()
	}
}

func (r *renderer) listRelink(l model.LinkSpec) relink {
	n := l.Names
	if n.Back != "" {
		return relink{
			cond:   "item->" + n.Back,
			detach: fmt.Sprintf("item->%s->%s(item);", n.Back, n.Remove),
		}
	}
	return relink{
		cond:   fmt.Sprintf("item->%s || item->%s || %s == item", n.Prev, n.Next, n.First),
		detach: n.Remove + "(item);",
	}
}

// setup relinks a required link after construction. Constructors store
// required pointers before the links can be maintained.
func (r *renderer) setup(c *code, class model.ID, l model.LinkSpec) {
	n := l.Names
	switch {
	case l.Layout == model.LayoutPointer && l.Owner == class:
		c.line("assert(%s);", n.Field)
		if n.Mirror == "" {
			return
		}
		c.open("if (%s)", n.Field)
		c.line("%s* item = %s;", r.qualified(l.Target), n.Field)
		c.line("%s = nullptr;", n.Field)
		c.line("%s(item);", n.Set)
		c.close()
	case l.Layout == model.LayoutList && l.Target == class:
		c.line("assert(%s);", n.Back)
		c.open("if (%s)", n.Back)
		c.line("%s* owner = %s;", r.qualified(l.Owner), n.Back)
		c.line("%s = nullptr;", n.Back)
		c.line("owner->%s(this);", n.AddLast)
		c.close()
	}
}

// teardown unlinks class from l before destruction.
func (r *renderer) teardown(c *code, class model.ID, l model.LinkSpec) {
	n := l.Names
	switch {
	case l.Owner == class && l.Layout == model.LayoutPointer:
		c.line("%s();", n.Remove)
	case l.Owner == class && l.Required:
		c.line("%s();", n.DeleteAll)
	case l.Owner == class:
		c.open("while (%s)", n.First)
		c.line("%s(%s);", n.Remove, n.First)
		c.close()
	case n.Back != "":
		c.open("if (%s)", n.Back)
		c.line("%s->%s(this);", n.Back, n.Remove)
		c.close()
	default:
		owner := r.qualified(l.Owner)
		c.open("if (%s || %s || %s::%s == this)", n.Prev, n.Next, owner, n.First)
		c.line("%s::%s(this);", owner, n.Remove)
		c.close()
	}
}
