package relation

import (
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/casegen/model"
)

var rules = ruleset()

func ruleset() *inflect.Ruleset {
	rules := inflect.NewDefaultRuleset()
	for _, w := range []string{"ID", "URL", "URI", "UUID", "HTTP", "JSON", "XML", "IO", "UI"} {
		rules.AddAcronym(w)
	}
	return rules
}

// suffix returns the member name suffix of a role: "item" becomes "Item".
func suffix(role string) string {
	if role == "" {
		return ""
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// defaultRole returns the role of a class that has none: "OrderLine"
// becomes "orderLine".
func defaultRole(class string) string {
	if class == "" {
		return ""
	}
	r := rules.CamelizeDownFirst(class)
	if r == "" {
		return strings.ToLower(class[:1]) + class[1:]
	}
	return r
}

// roles returns the FROM and TO roles of an association.
func roles(g *model.Graph, a *model.AssociationData) (from, to string) {
	from, to = a.FromEnd.Role, a.ToEnd.Role
	if from == "" {
		from = defaultRole(g.TypeName(model.TypeRef{Class: a.From}))
	}
	if to == "" {
		to = defaultRole(g.TypeName(model.TypeRef{Class: a.To}))
	}
	return from, to
}

func listNames(nodeRole, ownerRole string, global, bidi bool) model.LinkNames {
	s := suffix(nodeRole)
	n := model.LinkNames{
		First:     "first" + s,
		Last:      "last" + s,
		Count:     "count" + s,
		Prev:      "prev" + s,
		Next:      "next" + s,
		AddFirst:  "addFirst" + s,
		AddLast:   "addLast" + s,
		Remove:    "remove" + s,
		DeleteAll: "deleteAll" + s,
	}
	if !global {
		n.Back = ownerRole
		if bidi {
			n.OwnerGet = "get" + suffix(ownerRole)
		}
	}
	return n
}

func pointerNames(targetRole, mirror string, global bool) model.LinkNames {
	s := suffix(targetRole)
	n := model.LinkNames{
		Field:   targetRole,
		Set:     "set" + s,
		Get:     "get" + s,
		Remove:  "remove" + s,
		Replace: "replace" + s,
		Mirror:  mirror,
	}
	if !global {
		n.Move = "move" + s
	}
	return n
}
