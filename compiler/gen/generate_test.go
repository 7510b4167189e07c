package gen

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/casegen/compiler/order"
	"github.com/syssam/casegen/model"
)

func TestGenerate(t *testing.T) {
	f := newFixture(t, &textBackend{}, false)
	var a model.ID
	f.do(func(tx *model.Tx) {
		a = f.class(tx, "A")
		f.class(tx, "B", a)
	})
	ctx := context.Background()

	report, err := f.gen.Generate(ctx, f.g, false)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"Demo.txt", "build.txt", "core/A.txt", "core/B.txt"}, report.Written)
	assert.Equal(t, "class A\n", f.read("core/A.txt"))
	assert.Equal(t, "A\nB\n", f.read("Demo.txt"))
	assert.Equal(t, []string{"core/A.txt"}, f.gen.Files(a))

	t.Run("up to date files are skipped", func(t *testing.T) {
		report, err := f.gen.Generate(ctx, f.g, false)
		require.NoError(t, err)
		assert.Empty(t, report.Written)
		assert.Len(t, report.Skipped, 4)
		assert.Equal(t, []string{"Demo.txt", "build.txt", "core/A.txt", "core/B.txt"}, report.Paths())
	})

	t.Run("forced run rewrites every file", func(t *testing.T) {
		report, err := f.gen.Generate(ctx, f.g, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Demo.txt", "build.txt", "core/A.txt", "core/B.txt"}, report.Written)
		assert.Empty(t, report.Unchanged)
		assert.Empty(t, report.Skipped)
	})

	t.Run("renamed unit replaces its file", func(t *testing.T) {
		f.do(func(tx *model.Tx) {
			require.NoError(t, f.g.Rename(tx, a, "C"))
		})
		report, err := f.gen.Generate(ctx, f.g, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"core/A.txt"}, report.Removed)
		assert.Contains(t, report.Written, "core/C.txt")
		assert.False(t, f.exists("core/A.txt"))
		assert.Equal(t, "C\nB\n", f.read("Demo.txt"))
	})
}

func TestGenerateHeaderAndComments(t *testing.T) {
	f := newFixture(t, &textBackend{}, false, WithHeader("// generated\n"))
	f.do(func(tx *model.Tx) {
		a := f.class(tx, "A")
		require.NoError(t, f.g.SetComment(tx, a, "  An A.  "))
	})
	_, err := f.gen.Generate(context.Background(), f.g, false)
	require.NoError(t, err)
	assert.Equal(t, "// generated\nclass A\n// An A.\n", f.read("core/A.txt"))

	t.Run("comments disabled", func(t *testing.T) {
		g, err := NewGenerator(WithTarget("/out"), WithBackend(&textBackend{}), WithFs(f.fs), WithHeader("// generated\n"), WithoutFeatures("comments"))
		require.NoError(t, err)
		_, err = g.Generate(context.Background(), f.g, false)
		require.NoError(t, err)
		assert.Equal(t, "// generated\nclass A\n", f.read("core/A.txt"))
	})
}

func TestGenerateFailuresAreIsolated(t *testing.T) {
	t.Run("render", func(t *testing.T) {
		f := newFixture(t, &textBackend{fail: map[string]bool{"A": true}}, false)
		var a model.ID
		f.do(func(tx *model.Tx) {
			a = f.class(tx, "A")
			f.class(tx, "B")
		})
		report, err := f.gen.Generate(context.Background(), f.g, false)
		require.NoError(t, err)
		require.Len(t, report.Failures, 1)
		assert.ErrorIs(t, report.Err(), ErrGenerationFailed)
		var gerr *GenerationError
		require.ErrorAs(t, report.Failures[0], &gerr)
		assert.Equal(t, "render", gerr.Phase)
		assert.Equal(t, a, gerr.Unit)
		assert.Contains(t, report.Written, "core/B.txt")
		assert.False(t, f.exists("core/A.txt"))
	})

	t.Run("write", func(t *testing.T) {
		flaky := &flakyFs{Fs: afero.NewMemMapFs(), fail: "B.txt"}
		f := newFixture(t, &textBackend{}, false, WithFs(flaky), WithWorkers(2))
		f.fs = flaky
		var b model.ID
		f.do(func(tx *model.Tx) {
			f.class(tx, "A")
			b = f.class(tx, "B")
		})
		report, err := f.gen.Generate(context.Background(), f.g, false)
		require.NoError(t, err)
		require.Len(t, report.Failures, 1)
		var gerr *GenerationError
		require.ErrorAs(t, report.Failures[0], &gerr)
		assert.Equal(t, "write", gerr.Phase)
		assert.Equal(t, b, gerr.Unit)
		assert.Equal(t, "core/B.txt", gerr.File)
		assert.True(t, f.exists("core/A.txt"))
		assert.False(t, f.exists("core/B.txt"))

		flaky.fail = ""
		report, err = f.gen.Generate(context.Background(), f.g, false)
		require.NoError(t, err)
		assert.Empty(t, report.Failures)
		assert.Equal(t, []string{"core/B.txt"}, report.Written)
	})
}

func TestGenerateProjectFiles(t *testing.T) {
	t.Run("disabled umbrella is removed", func(t *testing.T) {
		f := newFixture(t, &textBackend{}, false)
		f.do(func(tx *model.Tx) { f.class(tx, "A") })
		_, err := f.gen.Generate(context.Background(), f.g, false)
		require.NoError(t, err)
		require.True(t, f.exists("Demo.txt"))

		g, err := NewGenerator(WithTarget("/out"), WithBackend(&textBackend{}), WithFs(f.fs), WithoutFeatures("umbrella"))
		require.NoError(t, err)
		report, err := g.Generate(context.Background(), f.g, false)
		require.NoError(t, err)
		assert.NoError(t, report.Err())
		assert.False(t, f.exists("Demo.txt"))
		assert.True(t, f.exists("build.txt"))
	})

	t.Run("support files", func(t *testing.T) {
		f := newFixture(t, &supportBackend{}, false)
		report, err := f.gen.Generate(context.Background(), f.g, false)
		require.NoError(t, err)
		assert.Contains(t, report.Written, "support.txt")
		assert.Equal(t, "support\n", f.read("support.txt"))
	})

	t.Run("external classes are not emitted", func(t *testing.T) {
		f := newFixture(t, &textBackend{}, false)
		f.do(func(tx *model.Tx) {
			_, err := f.g.CreateChild(tx, f.mod, model.KindClass, "String", model.Attrs{Class: &model.ClassData{External: true}})
			require.NoError(t, err)
			f.class(tx, "A")
		})
		_, err := f.gen.Generate(context.Background(), f.g, false)
		require.NoError(t, err)
		assert.False(t, f.exists("core/String.txt"))
		assert.Equal(t, "A\n", f.read("Demo.txt"))
	})
}

func TestGenerateErrors(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		f := newFixture(t, &textBackend{}, false)
		f.do(func(tx *model.Tx) {
			b := f.class(tx, "B")
			a := f.class(tx, "A", b)
			_, err := f.g.CreateChild(tx, b, model.KindAttribute, "a", model.Attrs{
				Attribute: &model.AttributeData{Type: model.TypeRef{Class: a}},
			})
			require.NoError(t, err)
		})
		_, err := f.gen.Generate(context.Background(), f.g, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, order.ErrCycle)
		assert.False(t, f.exists("core/A.txt"))
	})

	t.Run("canceled", func(t *testing.T) {
		f := newFixture(t, &textBackend{}, false)
		f.do(func(tx *model.Tx) { f.class(tx, "A") })
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.gen.Generate(ctx, f.g, false)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRegenerateOnCommit(t *testing.T) {
	f := newFixture(t, &textBackend{}, true)
	assert.True(t, f.exists("Demo.txt"), "the project files follow the first commit")

	var a model.ID
	res := f.do(func(tx *model.Tx) { a = f.class(tx, "A") })
	assert.Empty(t, res.Failures)
	assert.Equal(t, "class A\n", f.read("core/A.txt"))
	assert.Equal(t, "A\n", f.read("Demo.txt"))

	t.Run("edit", func(t *testing.T) {
		f.do(func(tx *model.Tx) {
			_, err := f.g.CreateChild(tx, a, model.KindAttribute, "x", model.Attrs{
				Attribute: &model.AttributeData{Type: model.TypeRef{Name: "int"}, HasDefault: true},
			})
			require.NoError(t, err)
		})
		assert.Equal(t, "class A\n  attribute x\n", f.read("core/A.txt"))
	})

	t.Run("rename", func(t *testing.T) {
		f.do(func(tx *model.Tx) { require.NoError(t, f.g.Rename(tx, a, "Renamed")) })
		assert.False(t, f.exists("core/A.txt"))
		assert.True(t, f.exists("core/Renamed.txt"))
		assert.Equal(t, []string{"core/Renamed.txt"}, f.gen.Files(a))
	})

	t.Run("delete", func(t *testing.T) {
		f.do(func(tx *model.Tx) { require.NoError(t, f.g.Delete(tx, a)) })
		assert.False(t, f.exists("core/Renamed.txt"))
		assert.Empty(t, f.gen.Files(a))
		assert.Equal(t, "", f.read("Demo.txt"))
	})

	t.Run("undo", func(t *testing.T) {
		res, err := f.g.Undo()
		require.NoError(t, err)
		assert.Empty(t, res.Failures)
		assert.True(t, f.exists("core/Renamed.txt"))
		assert.Equal(t, "Renamed\n", f.read("Demo.txt"))
	})
}

func TestRegenerateFailure(t *testing.T) {
	f := newFixture(t, &textBackend{fail: map[string]bool{"A": true}}, true)
	res := f.do(func(tx *model.Tx) {
		f.class(tx, "A")
		f.class(tx, "B")
	})
	require.Len(t, res.Failures, 1)
	assert.True(t, IsGenerationError(res.Failures[0]))
	assert.True(t, f.exists("core/B.txt"))
	assert.False(t, f.exists("core/A.txt"))
}
