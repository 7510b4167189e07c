package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ID is the stable identity of an entity.
type ID string

// Access is the visibility of a member, base or association end.
type Access uint8

// Access levels.
const (
	AccessPublic Access = iota
	AccessProtected
	AccessPrivate
)

// String implements fmt.Stringer.
func (a Access) String() string {
	switch a {
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "public"
	}
}

// ParseAccess parses an access level. The empty string is public.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "public":
		return AccessPublic, nil
	case "protected":
		return AccessProtected, nil
	case "private":
		return AccessPrivate, nil
	}
	return AccessPublic, fmt.Errorf("casegen: unknown access %q", s)
}

// Unbounded is the Max of a multiplicity without upper bound.
const Unbounded = -1

// Multiplicity is the cardinality bound of one association end.
type Multiplicity struct {
	Min int `msgpack:"min,omitempty"`
	Max int `msgpack:"max,omitempty"`
}

// Many reports whether more than one instance may be linked.
func (m Multiplicity) Many() bool {
	return m.Max == Unbounded || m.Max > 1
}

// Required reports whether at least one instance must be linked.
func (m Multiplicity) Required() bool {
	return m.Min >= 1
}

// Validate reports malformed bounds.
func (m Multiplicity) Validate() error {
	switch {
	case m.Min < 0:
		return fmt.Errorf("negative lower bound %d", m.Min)
	case m.Max == 0 || m.Max < Unbounded:
		return fmt.Errorf("invalid upper bound %d", m.Max)
	case m.Max != Unbounded && m.Min > m.Max:
		return fmt.Errorf("lower bound %d exceeds upper bound %d", m.Min, m.Max)
	}
	return nil
}

// String formats the bound as "min..max" with "*" for unbounded.
func (m Multiplicity) String() string {
	hi := "*"
	if m.Max != Unbounded {
		hi = strconv.Itoa(m.Max)
	}
	return strconv.Itoa(m.Min) + ".." + hi
}

// ParseMultiplicity parses "1", "0..1", "1..*" or "*".
func ParseMultiplicity(s string) (Multiplicity, error) {
	bound := func(v string) (int, error) {
		if v == "*" || v == "n" {
			return Unbounded, nil
		}
		return strconv.Atoi(v)
	}
	s = strings.TrimSpace(s)
	lo, hi, ok := strings.Cut(s, "..")
	if !ok {
		n, err := bound(s)
		if err != nil {
			return Multiplicity{}, fmt.Errorf("casegen: invalid multiplicity %q", s)
		}
		if n == Unbounded {
			return Multiplicity{Min: 0, Max: Unbounded}, nil
		}
		return Multiplicity{Min: n, Max: n}, nil
	}
	minV, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return Multiplicity{}, fmt.Errorf("casegen: invalid multiplicity %q", s)
	}
	maxV, err := bound(strings.TrimSpace(hi))
	if err != nil {
		return Multiplicity{}, fmt.Errorf("casegen: invalid multiplicity %q", s)
	}
	m := Multiplicity{Min: minV, Max: maxV}
	if err := m.Validate(); err != nil {
		return Multiplicity{}, fmt.Errorf("casegen: invalid multiplicity %q: %w", s, err)
	}
	return m, nil
}

// Side selects one end of an association.
type Side uint8

// Association sides.
const (
	SideFrom Side = iota
	SideTo
)

// String implements fmt.Stringer.
func (s Side) String() string {
	if s == SideTo {
		return "to"
	}
	return "from"
}

// Storage forces the realisation of the FROM to TO direction.
type Storage uint8

// Storage strategies.
const (
	// StorageAuto picks a pointer when the TO end holds at most one
	// instance and an intrusive list otherwise.
	StorageAuto Storage = iota
	StoragePointer
	StorageList
)

// String implements fmt.Stringer.
func (s Storage) String() string {
	switch s {
	case StoragePointer:
		return "pointer"
	case StorageList:
		return "list"
	default:
		return "auto"
	}
}

// ParseStorage parses a storage strategy name. The empty string is auto.
func ParseStorage(s string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return StorageAuto, nil
	case "pointer":
		return StoragePointer, nil
	case "list":
		return StorageList, nil
	}
	return StorageAuto, fmt.Errorf("casegen: unknown storage %q", s)
}

// Layout is the realisation of one navigation direction.
type Layout uint8

// Layouts.
const (
	LayoutPointer Layout = iota + 1
	LayoutList
)

// String implements fmt.Stringer.
func (l Layout) String() string {
	switch l {
	case LayoutPointer:
		return "pointer"
	case LayoutList:
		return "list"
	}
	return "none"
}

// MemberRole tells what a member is for. User-authored members have RoleUser.
type MemberRole string

// Member roles.
const (
	RoleUser MemberRole = ""

	RoleLinkPointer MemberRole = "link.pointer"
	RoleLinkFirst   MemberRole = "link.first"
	RoleLinkLast    MemberRole = "link.last"
	RoleLinkCount   MemberRole = "link.count"
	RoleLinkPrev    MemberRole = "link.prev"
	RoleLinkNext    MemberRole = "link.next"
	RoleLinkBack    MemberRole = "link.back"

	RoleLinkSet       MemberRole = "link.set"
	RoleLinkGet       MemberRole = "link.get"
	RoleLinkRemove    MemberRole = "link.remove"
	RoleLinkMove      MemberRole = "link.move"
	RoleLinkReplace   MemberRole = "link.replace"
	RoleLinkAddFirst  MemberRole = "link.add_first"
	RoleLinkAddLast   MemberRole = "link.add_last"
	RoleLinkDeleteAll MemberRole = "link.delete_all"
	RoleLinkOwner     MemberRole = "link.owner"

	RoleSetup              MemberRole = "lifecycle.setup"
	RoleTeardown           MemberRole = "lifecycle.teardown"
	RoleDerivedConstructor MemberRole = "lifecycle.constructor"
	RoleDerivedDestructor  MemberRole = "lifecycle.destructor"
)

// Generated reports whether the member was synthesized.
func (r MemberRole) Generated() bool { return r != RoleUser }

// Lifecycle reports whether the member belongs to a class lifecycle.
func (r MemberRole) Lifecycle() bool { return strings.HasPrefix(string(r), "lifecycle.") }

// Link reports whether the member realises an association.
func (r MemberRole) Link() bool { return strings.HasPrefix(string(r), "link.") }

// TypeRef names a member or parameter type. Class wins over Name when it
// resolves; Name keeps a builtin type or the last known class name.
type TypeRef struct {
	Class   ID     `msgpack:"class,omitempty"`
	Name    string `msgpack:"name,omitempty"`
	Pointer bool   `msgpack:"ptr,omitempty"`
	Const   bool   `msgpack:"const,omitempty"`
}

// ByValue reports whether the type embeds a class instance.
func (t TypeRef) ByValue() bool {
	return t.Class != "" && !t.Pointer
}

// Base is an inheritance edge.
type Base struct {
	Class   ID     `msgpack:"class"`
	Virtual bool   `msgpack:"virtual,omitempty"`
	Access  Access `msgpack:"access,omitempty"`
}

// ClassData is the payload of classifiers.
type ClassData struct {
	Bases    []Base `msgpack:"bases,omitempty"`
	External bool   `msgpack:"external,omitempty"`
	Abstract bool   `msgpack:"abstract,omitempty"`
	// Alias is the aliased type of a typedef.
	Alias TypeRef `msgpack:"alias,omitempty"`
}

// HasBase reports whether class is a direct base.
func (c *ClassData) HasBase(class ID) bool {
	for _, b := range c.Bases {
		if b.Class == class {
			return true
		}
	}
	return false
}

// LinkNames are the member names of one realised direction. Field, First,
// Last and Count live on the owner; Prev, Next, Back and OwnerGet on the
// target; the methods live on the owner.
type LinkNames struct {
	Field     string `msgpack:"field,omitempty"`
	Back      string `msgpack:"back,omitempty"`
	First     string `msgpack:"first,omitempty"`
	Last      string `msgpack:"last,omitempty"`
	Count     string `msgpack:"count,omitempty"`
	Prev      string `msgpack:"prev,omitempty"`
	Next      string `msgpack:"next,omitempty"`
	Set       string `msgpack:"set,omitempty"`
	Get       string `msgpack:"get,omitempty"`
	Remove    string `msgpack:"remove,omitempty"`
	Move      string `msgpack:"move,omitempty"`
	Replace   string `msgpack:"replace,omitempty"`
	AddFirst  string `msgpack:"add_first,omitempty"`
	AddLast   string `msgpack:"add_last,omitempty"`
	DeleteAll string `msgpack:"delete_all,omitempty"`
	OwnerGet  string `msgpack:"owner_get,omitempty"`
	// Mirror is the pointer field on the target maintained by the pointer
	// accessors of a mirrored one-to-one link.
	Mirror string `msgpack:"mirror,omitempty"`
}

// LinkSpec describes one realised navigation direction of an association.
// Backends render member bodies from it without looking up the graph.
type LinkSpec struct {
	Association ID        `msgpack:"assoc"`
	Layout      Layout    `msgpack:"layout"`
	Owner       ID        `msgpack:"owner"`
	Target      ID        `msgpack:"target"`
	Global      bool      `msgpack:"global,omitempty"`
	// Required is set when the owner's pointer (pointer layout) or the
	// node's back-pointer (list layout) must be linked. Owners of a required
	// list delete their nodes on teardown.
	Required bool      `msgpack:"required,omitempty"`
	Names    LinkNames `msgpack:"names"`
}

// AttributeData is the payload of data members and enumerators.
type AttributeData struct {
	Type       TypeRef    `msgpack:"type,omitempty"`
	Static     bool       `msgpack:"static,omitempty"`
	Const      bool       `msgpack:"const,omitempty"`
	Default    string     `msgpack:"default,omitempty"`
	HasDefault bool       `msgpack:"has_default,omitempty"`
	Access     Access     `msgpack:"access,omitempty"`
	Role       MemberRole `msgpack:"role,omitempty"`
	Link       *LinkSpec  `msgpack:"link,omitempty"`
}

// Required reports whether a constructor must initialise the member.
func (a *AttributeData) Required() bool {
	return !a.Static && !a.HasDefault
}

// Param is an operation parameter.
type Param struct {
	Name    string  `msgpack:"name"`
	Type    TypeRef `msgpack:"type"`
	Default string  `msgpack:"default,omitempty"`
}

// Init is one entry of a constructor initialiser list: either a base
// constructor call or a member initialisation.
type Init struct {
	Base   ID       `msgpack:"base,omitempty"`
	Member string   `msgpack:"member,omitempty"`
	Args   []string `msgpack:"args,omitempty"`
}

// OperationData is the payload of methods, constructors and destructors.
type OperationData struct {
	Return      TypeRef    `msgpack:"return,omitempty"`
	Params      []Param    `msgpack:"params,omitempty"`
	Static      bool       `msgpack:"static,omitempty"`
	Const       bool       `msgpack:"const,omitempty"`
	Virtual     bool       `msgpack:"virtual,omitempty"`
	Abstract    bool       `msgpack:"abstract,omitempty"`
	Constructor bool       `msgpack:"ctor,omitempty"`
	Destructor  bool       `msgpack:"dtor,omitempty"`
	Preferred   bool       `msgpack:"preferred,omitempty"`
	Access      Access     `msgpack:"access,omitempty"`
	Body        string     `msgpack:"body,omitempty"`
	Role        MemberRole `msgpack:"role,omitempty"`
	Link        *LinkSpec  `msgpack:"link,omitempty"`
	Links       []LinkSpec `msgpack:"links,omitempty"`
	Inits       []Init     `msgpack:"inits,omitempty"`
}

// End is one end of an association.
type End struct {
	Role         string       `msgpack:"role,omitempty"`
	Access       Access       `msgpack:"access,omitempty"`
	Multiplicity Multiplicity `msgpack:"mult"`
}

// AssociationData is the payload of associations.
type AssociationData struct {
	From          ID      `msgpack:"from"`
	To            ID      `msgpack:"to"`
	FromEnd       End     `msgpack:"from_end"`
	ToEnd         End     `msgpack:"to_end"`
	Global        bool    `msgpack:"global,omitempty"`
	Bidirectional bool    `msgpack:"bidi,omitempty"`
	Storage       Storage `msgpack:"storage,omitempty"`
}

// End returns the end on side s.
func (a *AssociationData) End(s Side) End {
	if s == SideTo {
		return a.ToEnd
	}
	return a.FromEnd
}

// Class returns the class on side s.
func (a *AssociationData) Class(s Side) ID {
	if s == SideTo {
		return a.To
	}
	return a.From
}

// Involves reports whether class is one of the endpoints.
func (a *AssociationData) Involves(class ID) bool {
	return a.From == class || a.To == class
}

// SideData is the payload of the two association views.
type SideData struct {
	Association ID   `msgpack:"assoc"`
	Side        Side `msgpack:"side"`
}

// Entity is a node of the ownership tree. Exactly one payload matching Kind
// is set: Class for classifiers, Attribute, Operation, Association or Side.
type Entity struct {
	ID       ID     `msgpack:"id"`
	Kind     Kind   `msgpack:"kind"`
	Name     string `msgpack:"name,omitempty"`
	Comment  string `msgpack:"comment,omitempty"`
	Parent   ID     `msgpack:"parent,omitempty"`
	Children []ID   `msgpack:"children,omitempty"`
	// Origin is the association or class whose compilation produced the
	// entity.
	Origin ID `msgpack:"origin,omitempty"`

	Class       *ClassData       `msgpack:"class,omitempty"`
	Attribute   *AttributeData   `msgpack:"attr,omitempty"`
	Operation   *OperationData   `msgpack:"op,omitempty"`
	Association *AssociationData `msgpack:"assoc,omitempty"`
	Side        *SideData        `msgpack:"side,omitempty"`
}

// Role returns the member role of attributes and operations.
func (e *Entity) Role() MemberRole {
	switch {
	case e.Attribute != nil:
		return e.Attribute.Role
	case e.Operation != nil:
		return e.Operation.Role
	}
	return RoleUser
}

// Generated reports whether the entity was produced by the relation
// compiler.
func (e *Entity) Generated() bool {
	return e.Origin != ""
}

// String implements fmt.Stringer.
func (e *Entity) String() string {
	return fmt.Sprintf("%s %q (%s)", e.Kind, e.Name, e.ID)
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	c, err := decode(encode(e))
	if err != nil {
		panic(fmt.Sprintf("casegen: clone %s: %v", e.ID, err))
	}
	return c
}
