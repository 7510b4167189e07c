package model

import (
	"fmt"
	"strings"
)

// Kind is the discriminant of an Entity.
type Kind uint8

// Entity kinds.
const (
	KindInvalid Kind = iota
	KindProject
	KindModule
	KindClass
	KindStruct
	KindUnion
	KindEnum
	KindTypedef
	KindAttribute
	KindOperation
	KindAssociation
	KindRelationFrom
	KindRelationTo
)

var kindNames = [...]string{
	KindInvalid:      "invalid",
	KindProject:      "project",
	KindModule:       "module",
	KindClass:        "class",
	KindStruct:       "struct",
	KindUnion:        "union",
	KindEnum:         "enum",
	KindTypedef:      "typedef",
	KindAttribute:    "attribute",
	KindOperation:    "operation",
	KindAssociation:  "association",
	KindRelationFrom: "relation_from",
	KindRelationTo:   "relation_to",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s && Kind(k) != KindInvalid {
			return Kind(k), nil
		}
	}
	return KindInvalid, fmt.Errorf("casegen: unknown entity kind %q", s)
}

// IsClassifier reports whether k declares a type.
func (k Kind) IsClassifier() bool {
	switch k {
	case KindClass, KindStruct, KindUnion, KindEnum, KindTypedef:
		return true
	}
	return false
}

// IsSide reports whether k is one of the two association views.
func (k Kind) IsSide() bool {
	return k == KindRelationFrom || k == KindRelationTo
}

// Associable reports whether an association may connect classifiers of kind k.
func (k Kind) Associable() bool {
	return k == KindClass || k == KindStruct
}

// Capability is a set of child categories an entity kind may own.
type Capability uint16

// Capabilities.
const (
	CanModules Capability = 1 << iota
	CanClasses
	CanNested
	CanData
	CanOperations
	CanAssociations
	CanSides
)

// Has reports whether every capability in f is present in c.
func (c Capability) Has(f Capability) bool {
	return c&f == f
}

var capabilities = map[Kind]Capability{
	KindProject:     CanModules,
	KindModule:      CanModules | CanClasses | CanAssociations,
	KindClass:       CanNested | CanData | CanOperations,
	KindStruct:      CanNested | CanData | CanOperations,
	KindUnion:       CanData | CanOperations,
	KindEnum:        CanData,
	KindAssociation: CanSides,
}

// Capabilities returns the capability set of kind k.
func Capabilities(k Kind) Capability {
	return capabilities[k]
}

// CanContain reports whether an entity of kind parent may own an entity of
// kind child.
func CanContain(parent, child Kind) bool {
	c := Capabilities(parent)
	switch {
	case child == KindModule:
		return c.Has(CanModules)
	case child.IsClassifier():
		return c.Has(CanClasses) || c.Has(CanNested)
	case child == KindAttribute:
		return c.Has(CanData)
	case child == KindOperation:
		return c.Has(CanOperations)
	case child == KindAssociation:
		return c.Has(CanAssociations)
	case child.IsSide():
		return c.Has(CanSides)
	}
	return false
}
