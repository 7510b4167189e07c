package casegen_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/casegen"
	"github.com/syssam/casegen/compiler/gen"
	"github.com/syssam/casegen/compiler/gen/golang"
	"github.com/syssam/casegen/model"
)

const design = `
project: Demo
modules:
  - name: core
    classes:
      - name: A
      - name: B
    associations:
      - from: A
        to:
          class: B
          multiplicity: "1..*"
`

func newWorkspace(t *testing.T) (*casegen.Workspace, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	ws, err := casegen.New("Demo", casegen.WithGenerator(
		gen.WithTarget("/out"),
		gen.WithFs(fs),
		gen.WithBackend(golang.New()),
	))
	require.NoError(t, err)
	return ws, fs
}

func exists(t *testing.T, fs afero.Fs, name string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, name)
	require.NoError(t, err)
	return ok
}

func TestWorkspaceLoadFile(t *testing.T) {
	ws, fs := newWorkspace(t)
	require.NoError(t, afero.WriteFile(fs, "/design.yaml", []byte(design), 0o644))

	res, err := ws.LoadFile(fs, "/design.yaml")
	require.NoError(t, err)
	assert.Equal(t, "load Demo", res.Label)
	assert.True(t, exists(t, fs, "/out/core_a.go"), "commit regenerates the dirty units")
	assert.True(t, exists(t, fs, "/out/go.mod"))

	content, err := afero.ReadFile(fs, "/out/core_a.go")
	require.NoError(t, err)
	assert.Contains(t, string(content), "func (a *A) AddFirstB(item *B) {")

	t.Run("order", func(t *testing.T) {
		o, err := ws.Order()
		require.NoError(t, err)
		var names []string
		for _, id := range o.Units() {
			e, _ := ws.Graph().Lookup(id)
			names = append(names, e.Name)
		}
		assert.Equal(t, []string{"A", "B"}, names)
	})

	t.Run("undo and redo", func(t *testing.T) {
		_, err := ws.Undo()
		require.NoError(t, err)
		assert.False(t, exists(t, fs, "/out/core_a.go"), "files of removed units go away")
		_, err = ws.Redo()
		require.NoError(t, err)
		assert.True(t, exists(t, fs, "/out/core_a.go"))
	})

	t.Run("generate", func(t *testing.T) {
		report, err := ws.Generate(context.Background(), false)
		require.NoError(t, err)
		require.NoError(t, report.Err())
		assert.Empty(t, report.Written, "the commits already wrote every file")
	})
}

func TestWorkspaceDo(t *testing.T) {
	ws, fs := newWorkspace(t)
	g := ws.Graph()
	var mod *model.Entity
	_, err := ws.Do("module", func(tx *model.Tx) error {
		var err error
		mod, err = g.CreateChild(tx, g.Root().ID, model.KindModule, "core", model.Attrs{})
		return err
	})
	require.NoError(t, err)

	t.Run("failed function rolls back", func(t *testing.T) {
		boom := errors.New("boom")
		res, err := ws.Do("broken", func(tx *model.Tx) error {
			_, err := g.CreateChild(tx, mod.ID, model.KindClass, "A", model.Attrs{})
			require.NoError(t, err)
			return boom
		})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, g.Children(mod.ID))
		assert.Equal(t, []string{"module"}, g.History())
		assert.False(t, g.InTransaction())
	})

	t.Run("regeneration failures", func(t *testing.T) {
		res, err := ws.Do("invalid body", func(tx *model.Tx) error {
			a, err := g.CreateChild(tx, mod.ID, model.KindClass, "A", model.Attrs{})
			if err != nil {
				return err
			}
			_, err = g.CreateChild(tx, a.ID, model.KindOperation, "run", model.Attrs{Operation: &model.OperationData{Body: "return {{"}})
			return err
		})
		require.NotNil(t, res, "the transaction is committed")
		assert.True(t, casegen.IsCommitError(err))
		assert.ErrorIs(t, err, casegen.ErrRegeneration)
		assert.ErrorIs(t, err, gen.ErrGenerationFailed)
		assert.Len(t, g.History(), 2)
		assert.False(t, exists(t, fs, "/out/core_a.go"))
	})
}

func TestWorkspaceOptions(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		ws, err := casegen.New("Demo", casegen.WithModelOptions(model.WithHistoryLimit(1)))
		require.NoError(t, err)
		assert.Nil(t, ws.Generator())
		_, err = ws.Generate(context.Background(), false)
		assert.ErrorIs(t, err, casegen.ErrNoBackend)

		res, err := ws.Undo()
		require.NoError(t, err, "undo on an empty journal is a no-op")
		assert.Empty(t, res.Label)
	})
	t.Run("invalid", func(t *testing.T) {
		_, err := casegen.New("Demo", casegen.WithLogger(nil))
		assert.Error(t, err)
		_, err = casegen.New("Demo", casegen.WithGenerator(gen.WithBackend(golang.New())))
		assert.True(t, gen.IsConfigError(err), "a generator needs a target")
	})
}
