package golang

import (
	"go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/syssam/casegen/compiler/gen"
	"github.com/syssam/casegen/model"
)

// builtins maps the builtin type names of a model to Go types.
var builtins = map[string]string{
	"bool":               "bool",
	"char":               "byte",
	"signed char":        "int8",
	"unsigned char":      "byte",
	"short":              "int16",
	"unsigned short":     "uint16",
	"int":                "int",
	"unsigned":           "uint",
	"unsigned int":       "uint",
	"long":               "int64",
	"unsigned long":      "uint64",
	"long long":          "int64",
	"unsigned long long": "uint64",
	"size_t":             "uint",
	"int8_t":             "int8",
	"int16_t":            "int16",
	"int32_t":            "int32",
	"int64_t":            "int64",
	"uint8_t":            "uint8",
	"uint16_t":           "uint16",
	"uint32_t":           "uint32",
	"uint64_t":           "uint64",
	"float":              "float32",
	"double":             "float64",
	"string":             "string",
	"std::string":        "string",
}

// expressions maps literal defaults to Go.
var expressions = map[string]string{
	"nullptr": "nil",
	"NULL":    "nil",
	"0L":      "0",
}

// zero lists the defaults a Go zero value already provides.
var zero = map[string]bool{
	"nil": true, "0": true, "0.0": true, "false": true, `""`: true,
}

func expr(s string) string {
	s = strings.TrimSpace(s)
	if e, ok := expressions[s]; ok {
		return e
	}
	return s
}

// renderer turns entities into Go declarations.
type renderer struct {
	v *gen.View
}

// typeName returns the Go type of a classifier. Nested classifiers are
// prefixed with their enclosing ones: Circle.Point becomes CirclePoint.
func (r *renderer) typeName(id model.ID) string {
	return gen.Exported(strings.Join(r.v.ClassPath(id), ""))
}

// goType renders t, or returns the empty string for void.
func (r *renderer) goType(t model.TypeRef) string {
	name := strings.TrimSpace(t.Name)
	if t.Class != "" {
		if _, ok := r.v.Graph.Lookup(t.Class); ok {
			name = r.typeName(t.Class)
		}
	} else if b, ok := builtins[name]; ok {
		name = b
	}
	if name == "" || name == "void" {
		if t.Pointer {
			return "any"
		}
		return ""
	}
	if t.Pointer {
		return "*" + name
	}
	return name
}

func exported(name string, acc model.Access) string {
	if acc == model.AccessPublic {
		return gen.Exported(name)
	}
	return unexported(name)
}

func unexported(name string) string {
	r, n := utf8.DecodeRuneInString(name)
	name = string(unicode.ToLower(r)) + name[n:]
	if token.IsKeyword(name) {
		name += "_"
	}
	return name
}

func static(m *model.Entity) bool {
	switch {
	case m.Attribute != nil:
		return m.Attribute.Static
	case m.Operation != nil:
		return m.Operation.Static
	}
	return false
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

// ident returns the Go identifier of a member of class. Static members
// become package-level variables and functions prefixed with the type
// name.
func (r *renderer) ident(class model.ID, m *model.Entity) string {
	if m.Operation != nil && m.Operation.Destructor {
		return "Destroy"
	}
	if static(m) {
		return exported(r.typeName(class)+gen.Exported(m.Name), access(m))
	}
	return exported(m.Name, access(m))
}

// named returns the identifier of the member of class called name.
func (r *renderer) named(class model.ID, name string) string {
	if m, ok := r.v.Graph.Member(class, name); ok {
		return r.ident(class, m)
	}
	return gen.Exported(name)
}

// isStatic reports whether the member of class called name is static.
func (r *renderer) isStatic(class model.ID, name string) bool {
	m, ok := r.v.Graph.Member(class, name)
	return ok && static(m)
}

// receiver returns the receiver name of the methods of class, avoiding the
// parameter names of op.
func (r *renderer) receiver(class model.ID, op *model.OperationData) string {
	name := unexported(r.typeName(class)[:1])
	if op == nil {
		return name
	}
	for _, p := range op.Params {
		if p.Name == name {
			return "recv"
		}
	}
	return name
}
