// Package cpp renders models as C++ headers, sources, an umbrella header and
// a Makefile.
//
// Every generated link method carries both relink behaviours. Building with
// CASEGEN_TOLERANT_RELINK defined turns an insertion of an already linked
// item into a move; otherwise it fails an assertion, or throws
// casegen::AlreadyLinked when CASEGEN_THROW_ALREADY_LINKED is defined.
package cpp

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"slices"
	"text/template"

	"github.com/syssam/casegen/compiler/gen"
	"github.com/syssam/casegen/model"
)

// Names shared by every generated file.
const (
	// TolerantMacro selects the tolerant relink path when defined.
	TolerantMacro = "CASEGEN_TOLERANT_RELINK"
	// ThrowMacro turns the already linked assertion into a thrown
	// casegen::AlreadyLinked.
	ThrowMacro = "CASEGEN_THROW_ALREADY_LINKED"
	// SupportHeader declares AlreadyLinked and the relink macros.
	SupportHeader = "casegen_support.h"
)

var (
	//go:embed template/*.tmpl
	templateFS embed.FS

	templates = template.Must(template.New("cpp").ParseFS(templateFS, "template/*.tmpl"))
)

// Backend renders C++. It implements gen.Backend and gen.SupportGenerator.
type Backend struct {
	headerExt string
	sourceExt string
}

var (
	_ gen.Backend          = (*Backend)(nil)
	_ gen.SupportGenerator = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithExtensions sets the header and source file extensions, without the
// leading dot.
func WithExtensions(header, source string) Option {
	return func(b *Backend) {
		if header != "" {
			b.headerExt = header
		}
		if source != "" {
			b.sourceExt = source
		}
	}
}

// New returns a C++ backend writing .h and .cpp files.
func New(opts ...Option) *Backend {
	b := &Backend{headerExt: "h", sourceExt: "cpp"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements gen.Backend.
func (b *Backend) Name() string { return "cpp" }

// HeaderPath returns the header of unit relative to the target directory.
func (b *Backend) HeaderPath(v *gen.View, unit model.ID) string {
	return b.unitPath(v, unit) + "." + b.headerExt
}

// SourcePath returns the source file of unit relative to the target
// directory.
func (b *Backend) SourcePath(v *gen.View, unit model.ID) string {
	return b.unitPath(v, unit) + "." + b.sourceExt
}

func (b *Backend) unitPath(v *gen.View, unit model.ID) string {
	parts := append(v.ModulePath(unit), v.Entity(unit).Name)
	return path.Join(parts...)
}

// hasSource reports whether a unit of kind k gets a source file.
func hasSource(k model.Kind) bool {
	switch k {
	case model.KindClass, model.KindStruct, model.KindUnion:
		return true
	}
	return false
}

// headerData feeds the header template.
type headerData struct {
	Banner      []string
	Guard       string
	Support     string
	Includes    []string
	Forward     []string
	Declaration string
}

// sourceData feeds the source template.
type sourceData struct {
	Banner   []string
	Self     string
	Includes []string
	Statics  []string
	Methods  []method
}

// UnitFiles implements gen.UnitGenerator.
func (b *Backend) UnitFiles(v *gen.View, unit model.ID) ([]gen.File, error) {
	e := v.Entity(unit)
	if e == nil {
		return nil, fmt.Errorf("unknown unit %s", unit)
	}
	r := &renderer{v: v}
	header := b.HeaderPath(v, unit)
	hd := headerData{
		Banner:      v.HeaderLines(),
		Guard:       gen.Guard(header),
		Support:     SupportHeader,
		Declaration: r.declaration(e),
	}
	for _, u := range v.Includes(unit) {
		hd.Includes = append(hd.Includes, b.HeaderPath(v, u))
	}
	for _, u := range v.Forward(unit) {
		fe := v.Entity(u)
		if k, ok := forwardKeyword(fe.Kind); ok {
			hd.Forward = append(hd.Forward, k+" "+fe.Name)
		} else {
			hd.Includes = append(hd.Includes, b.HeaderPath(v, u))
		}
	}
	files := make([]gen.File, 0, 2)
	content, err := execute("header", hd)
	if err != nil {
		return nil, err
	}
	files = append(files, gen.File{Path: header, Content: content})
	if !hasSource(e.Kind) {
		return files, nil
	}

	sd := sourceData{Banner: hd.Banner, Self: header}
	for _, u := range v.Related(unit) {
		if p := b.HeaderPath(v, u); !slices.Contains(hd.Includes, p) {
			sd.Includes = append(sd.Includes, p)
		}
	}
	r.definitions(e, &sd)
	if content, err = execute("source", sd); err != nil {
		return nil, err
	}
	return append(files, gen.File{Path: b.SourcePath(v, unit), Content: content}), nil
}

// ProjectFiles implements gen.ProjectGenerator.
func (b *Backend) ProjectFiles(project string) map[gen.ProjectFile]string {
	return map[gen.ProjectFile]string{
		gen.UmbrellaFile: project + "." + b.headerExt,
		gen.BuildFile:    "Makefile",
	}
}

// ProjectFile implements gen.ProjectGenerator.
func (b *Backend) ProjectFile(v *gen.View, kind gen.ProjectFile) (gen.File, error) {
	name := b.ProjectFiles(v.Project().Name)[kind]
	var (
		content []byte
		err     error
	)
	switch kind {
	case gen.UmbrellaFile:
		content, err = b.umbrella(v, name)
	case gen.BuildFile:
		content, err = b.makefile(v)
	default:
		return gen.File{}, fmt.Errorf("unknown project file %d", kind)
	}
	if err != nil {
		return gen.File{}, err
	}
	return gen.File{Path: name, Content: content}, nil
}

func (b *Backend) umbrella(v *gen.View, name string) ([]byte, error) {
	data := struct {
		Banner   []string
		Guard    string
		Forward  []string
		Includes []string
	}{Banner: v.HeaderLines(), Guard: gen.Guard(name)}
	for _, u := range v.Emitted() {
		if k, ok := forwardKeyword(u.Kind); ok {
			data.Forward = append(data.Forward, k+" "+u.Name)
		}
		data.Includes = append(data.Includes, b.HeaderPath(v, u.ID))
	}
	return execute("umbrella", data)
}

func (b *Backend) makefile(v *gen.View) ([]byte, error) {
	data := struct {
		Banner   []string
		Project  string
		Ext      string
		Sources  []string
		Tolerant string
	}{Banner: v.HeaderLines(), Project: v.Project().Name, Ext: b.sourceExt, Tolerant: TolerantMacro}
	var sources []string
	for _, u := range v.Emitted() {
		if hasSource(u.Kind) {
			sources = append(sources, b.SourcePath(v, u.ID))
		}
	}
	for i, s := range sources {
		if i < len(sources)-1 {
			s += " \\"
		}
		data.Sources = append(data.Sources, s)
	}
	return execute("makefile", data)
}

// SupportFiles implements gen.SupportGenerator.
func (b *Backend) SupportFiles(v *gen.View) ([]gen.File, error) {
	data := struct {
		Banner []string
		Guard  string
		Throw  string
	}{Banner: v.HeaderLines(), Guard: gen.Guard(SupportHeader), Throw: ThrowMacro}
	content, err := execute("support", data)
	if err != nil {
		return nil, err
	}
	return []gen.File{{Path: SupportHeader, Content: content}}, nil
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

func forwardKeyword(k model.Kind) (string, bool) {
	switch k {
	case model.KindClass:
		return "class", true
	case model.KindStruct:
		return "struct", true
	case model.KindUnion:
		return "union", true
	}
	return "", false
}
