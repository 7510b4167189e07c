package gen

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/syssam/casegen/compiler/relation"
	"github.com/syssam/casegen/model"
)

// textBackend renders one plain text file per unit listing its members.
type textBackend struct {
	fail    map[string]bool
	support bool
}

func (b *textBackend) Name() string { return "text" }

func (b *textBackend) UnitFiles(v *View, unit model.ID) ([]File, error) {
	e := v.Entity(unit)
	if b.fail[e.Name] {
		return nil, fmt.Errorf("cannot render %s", e.Name)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s %s\n", v.Header(), e.Kind, e.Name)
	if c := v.Comment(e); c != "" {
		fmt.Fprintf(&sb, "// %s\n", c)
	}
	for _, m := range v.Graph.Members(unit) {
		fmt.Fprintf(&sb, "  %s %s\n", m.Kind, m.Name)
	}
	dir := path.Join(v.ModulePath(unit)...)
	return []File{{Path: path.Join(dir, e.Name+".txt"), Content: []byte(sb.String())}}, nil
}

func (b *textBackend) ProjectFiles(project string) map[ProjectFile]string {
	return map[ProjectFile]string{UmbrellaFile: project + ".txt", BuildFile: "build.txt"}
}

func (b *textBackend) ProjectFile(v *View, kind ProjectFile) (File, error) {
	var sb strings.Builder
	for _, u := range v.Emitted() {
		sb.WriteString(u.Name + "\n")
	}
	name := b.ProjectFiles(v.Project().Name)[kind]
	return File{Path: name, Content: []byte(sb.String())}, nil
}

type supportBackend struct{ textBackend }

func (b *supportBackend) SupportFiles(*View) ([]File, error) {
	return []File{{Path: "support.txt", Content: []byte("support\n")}}, nil
}

// flakyFs fails renames of paths containing fail.
type flakyFs struct {
	afero.Fs
	fail string
}

func (f *flakyFs) Rename(oldname, newname string) error {
	if f.fail != "" && strings.Contains(newname, f.fail) {
		return errors.New("disk full")
	}
	return f.Fs.Rename(oldname, newname)
}

// fixture is a model with one module and a generator writing to memory.
type fixture struct {
	t   *testing.T
	fs  afero.Fs
	gen *Generator
	g   *model.Graph
	mod model.ID
}

// newFixture builds the fixture. When wired, committed transactions
// regenerate their units through the generator.
func newFixture(t *testing.T, b Backend, wired bool, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{t: t, fs: afero.NewMemMapFs()}
	var err error
	f.gen, err = NewGenerator(append([]Option{WithTarget("/out"), WithBackend(b), WithFs(f.fs)}, opts...)...)
	require.NoError(t, err)
	n := 0
	mopts := []model.Option{
		model.WithCompiler(relation.New()),
		model.WithIDGenerator(func() model.ID {
			n++
			return model.ID(fmt.Sprintf("e%d", n))
		}),
	}
	if wired {
		mopts = append(mopts, model.WithRegenerator(f.gen))
	}
	f.g, err = model.New("Demo", mopts...)
	require.NoError(t, err)
	f.do(func(tx *model.Tx) {
		m, err := f.g.CreateChild(tx, f.g.Root().ID, model.KindModule, "core", model.Attrs{})
		require.NoError(t, err)
		f.mod = m.ID
	})
	return f
}

func (f *fixture) do(fn func(tx *model.Tx)) *model.CommitResult {
	f.t.Helper()
	tx, err := f.g.Begin(f.t.Name())
	require.NoError(f.t, err)
	fn(tx)
	res, err := tx.Commit()
	require.NoError(f.t, err)
	return res
}

func (f *fixture) class(tx *model.Tx, name string, bases ...model.ID) model.ID {
	f.t.Helper()
	data := &model.ClassData{}
	for _, b := range bases {
		data.Bases = append(data.Bases, model.Base{Class: b})
	}
	e, err := f.g.CreateChild(tx, f.mod, model.KindClass, name, model.Attrs{Class: data})
	require.NoError(f.t, err)
	return e.ID
}

func (f *fixture) read(name string) string {
	f.t.Helper()
	b, err := afero.ReadFile(f.fs, path.Join("/out", name))
	require.NoError(f.t, err)
	return string(b)
}

func (f *fixture) exists(name string) bool {
	ok, err := afero.Exists(f.fs, path.Join("/out", name))
	require.NoError(f.t, err)
	return ok
}
