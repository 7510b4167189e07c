// Package golang renders models as a single Go package: one file per unit,
// a package doc file listing the units in declaration order and a go.mod.
//
// Classes become structs embedding their bases, constructors become NewX
// functions backed by an init method, and destructors become Destroy
// methods. Methods use the lower-cased first letter of their type as the
// receiver name.
//
// Every generated link method carries both relink behaviours. Building with
// the casegen_tolerant tag turns an insertion of an already linked item into
// a move; otherwise it panics with an *AlreadyLinkedError.
package golang

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/tools/imports"

	"github.com/syssam/casegen/compiler/gen"
	"github.com/syssam/casegen/model"
)

// Names shared by every generated package.
const (
	// TolerantTag is the build tag selecting the tolerant relink path.
	TolerantTag = "casegen_tolerant"
	// SupportFile declares AlreadyLinkedError.
	SupportFile = "casegen_support.go"

	tolerantConst = "tolerantRelink"
	linkedFunc    = "alreadyLinked"
)

// Backend renders Go. It implements gen.Backend and gen.SupportGenerator.
type Backend struct {
	pkg       string
	goVersion string
}

var (
	_ gen.Backend          = (*Backend)(nil)
	_ gen.SupportGenerator = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithPackageName sets the package clause of the generated files. It
// defaults to the last element of the configured package path, or to the
// project name.
func WithPackageName(name string) Option {
	return func(b *Backend) {
		b.pkg = name
	}
}

// WithGoVersion sets the go directive of the generated go.mod.
func WithGoVersion(v string) Option {
	return func(b *Backend) {
		if v != "" {
			b.goVersion = v
		}
	}
}

// New returns a Go backend.
func New(opts ...Option) *Backend {
	b := &Backend{goVersion: "1.22"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements gen.Backend.
func (b *Backend) Name() string { return "go" }

// PackageName returns the package clause used for v.
func (b *Backend) PackageName(v *gen.View) string {
	name := b.pkg
	if name == "" {
		name = path.Base(v.Package())
	}
	if name == "" || name == "." || name == "/" {
		name = v.Project().Name
	}
	return identifier(strings.ToLower(name))
}

// ModulePath returns the module path written to go.mod.
func (b *Backend) ModulePath(v *gen.View) string {
	if p := v.Package(); p != "" {
		return p
	}
	return b.PackageName(v)
}

// UnitPath returns the file of unit: its module path and name in snake
// case, "core/OrderLine" becoming "core_order_line.go".
func (b *Backend) UnitPath(v *gen.View, unit model.ID) string {
	parts := append(v.ModulePath(unit), v.Entity(unit).Name)
	for i, p := range parts {
		parts[i] = inflect.Underscore(p)
	}
	return strings.Join(parts, "_") + ".go"
}

// UnitFiles implements gen.UnitGenerator.
func (b *Backend) UnitFiles(v *gen.View, unit model.ID) ([]gen.File, error) {
	e := v.Entity(unit)
	if e == nil {
		return nil, fmt.Errorf("unknown unit %s", unit)
	}
	f := b.newFile(v)
	r := &renderer{v: v}
	r.unit(f, e)
	name := b.UnitPath(v, unit)
	content, err := render(f, name)
	if err != nil {
		return nil, err
	}
	return []gen.File{{Path: name, Content: content}}, nil
}

// ProjectFiles implements gen.ProjectGenerator.
func (b *Backend) ProjectFiles(string) map[gen.ProjectFile]string {
	return map[gen.ProjectFile]string{
		gen.UmbrellaFile: "doc.go",
		gen.BuildFile:    "go.mod",
	}
}

// ProjectFile implements gen.ProjectGenerator.
func (b *Backend) ProjectFile(v *gen.View, kind gen.ProjectFile) (gen.File, error) {
	name := b.ProjectFiles(v.Project().Name)[kind]
	switch kind {
	case gen.UmbrellaFile:
		f := b.newFile(v)
		f.PackageComment(fmt.Sprintf("Package %s holds the types of the %s model in declaration order:", b.PackageName(v), v.Project().Name))
		f.PackageComment("")
		r := &renderer{v: v}
		for _, u := range v.Emitted() {
			f.PackageComment("  - " + r.typeName(u.ID))
		}
		content, err := render(f, name)
		if err != nil {
			return gen.File{}, err
		}
		return gen.File{Path: name, Content: content}, nil
	case gen.BuildFile:
		var buf bytes.Buffer
		for _, l := range v.HeaderLines() {
			fmt.Fprintf(&buf, "// %s\n", l)
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "module %s\n\ngo %s\n", b.ModulePath(v), b.goVersion)
		return gen.File{Path: name, Content: buf.Bytes()}, nil
	}
	return gen.File{}, fmt.Errorf("unknown project file %d", kind)
}

// SupportFiles implements gen.SupportGenerator. It returns the
// AlreadyLinkedError declaration and the two files selecting the relink
// behaviour by build tag.
func (b *Backend) SupportFiles(v *gen.View) ([]gen.File, error) {
	support := b.newFile(v)
	support.Comment("ErrAlreadyLinked is matched by every AlreadyLinkedError.")
	support.Var().Id("ErrAlreadyLinked").Op("=").Qual("errors", "New").Call(jen.Lit("item already linked"))
	support.Line()
	support.Comment("AlreadyLinkedError is raised when an item that is already linked is")
	support.Comment("inserted again without the " + TolerantTag + " build tag.")
	support.Type().Id("AlreadyLinkedError").Struct(
		jen.Comment("Method is the link method that was called."),
		jen.Id("Method").String(),
	)
	support.Line()
	support.Func().Params(jen.Id("e").Op("*").Id("AlreadyLinkedError")).Id("Error").Params().String().Block(
		jen.Return(jen.Id("e").Dot("Method").Op("+").Lit(": item already linked")),
	)
	support.Line()
	support.Func().Params(jen.Id("e").Op("*").Id("AlreadyLinkedError")).Id("Unwrap").Params().Error().Block(
		jen.Return(jen.Id("ErrAlreadyLinked")),
	)
	support.Line()
	support.Func().Id(linkedFunc).Params(jen.Id("method").String()).Block(
		jen.Panic(jen.Op("&").Id("AlreadyLinkedError").Values(jen.Dict{jen.Id("Method"): jen.Id("method")})),
	)

	files := []struct {
		name string
		f    *jen.File
	}{
		{SupportFile, support},
		{"casegen_relink_strict.go", b.relinkFile(v, "!"+TolerantTag, false)},
		{"casegen_relink_tolerant.go", b.relinkFile(v, TolerantTag, true)},
	}
	out := make([]gen.File, 0, len(files))
	for _, file := range files {
		content, err := render(file.f, file.name)
		if err != nil {
			return nil, err
		}
		out = append(out, gen.File{Path: file.name, Content: content})
	}
	return out, nil
}

func (b *Backend) relinkFile(v *gen.View, constraint string, tolerant bool) *jen.File {
	f := b.newFile(v)
	f.HeaderComment("//go:build " + constraint)
	f.Const().Id(tolerantConst).Op("=").Lit(tolerant)
	return f
}

func (b *Backend) newFile(v *gen.View) *jen.File {
	f := jen.NewFile(b.PackageName(v))
	for _, l := range v.HeaderLines() {
		f.HeaderComment(l)
	}
	return f
}

// render formats f the way goimports would, without resolving imports.
func render(f *jen.File, name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	out, err := imports.Process(name, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", name, err)
	}
	return out, nil
}

// identifier drops the characters a Go identifier cannot hold.
func identifier(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, s)
	if s == "" || !unicode.IsLetter([]rune(s)[0]) {
		s = "x" + s
	}
	return s
}
