package gen

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterOnDisk(t *testing.T) {
	root := t.TempDir()
	e := NewEmitter(afero.NewOsFs(), root, nil)
	file := File{Path: "core/A.h", Content: []byte("class A {};\n")}
	full := filepath.Join(root, "core", "A.h")

	o, err := e.Emit(file, false)
	require.NoError(t, err)
	assert.Equal(t, Written, o)
	got, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, file.Content, got)

	entries, err := os.ReadDir(filepath.Join(root, "core"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")

	info, err := os.Stat(full)
	require.NoError(t, err)
	last, ok := e.LastEmission(file.Path)
	require.True(t, ok)
	assert.Equal(t, info.ModTime(), last, "the timestamp is read back from the file system")

	t.Run("second emission is a no-op", func(t *testing.T) {
		o, err := e.Emit(file, false)
		require.NoError(t, err)
		assert.Equal(t, Skipped, o)
		after, err := os.Stat(full)
		require.NoError(t, err)
		assert.Equal(t, info.ModTime(), after.ModTime())
	})

	t.Run("forced emission rewrites identical bytes", func(t *testing.T) {
		old := info.ModTime().Add(-time.Hour)
		require.NoError(t, os.Chtimes(full, old, old))
		o, err := e.Emit(file, true)
		require.NoError(t, err)
		assert.Equal(t, Written, o)
		after, err := os.Stat(full)
		require.NoError(t, err)
		assert.True(t, after.ModTime().After(old))
		last, ok := e.LastEmission(file.Path)
		require.True(t, ok)
		assert.Equal(t, after.ModTime(), last, "the recorded time is refreshed")
		got, err := os.ReadFile(full)
		require.NoError(t, err)
		assert.Equal(t, file.Content, got)
	})

	t.Run("changed content is written", func(t *testing.T) {
		changed := File{Path: file.Path, Content: []byte("class A { int x; };\n")}
		o, err := e.Emit(changed, false)
		require.NoError(t, err)
		assert.Equal(t, Written, o)
		got, err := os.ReadFile(full)
		require.NoError(t, err)
		assert.Equal(t, changed.Content, got)
	})

	t.Run("deleted file is written again", func(t *testing.T) {
		require.NoError(t, os.Remove(full))
		o, err := e.Emit(File{Path: file.Path, Content: []byte("class A { int x; };\n")}, false)
		require.NoError(t, err)
		assert.Equal(t, Written, o)
	})
}

func TestEmitterStaleness(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := NewEmitter(fs, "/out", nil)
	file := File{Path: "A.h", Content: []byte("a\n")}
	_, err := e.Emit(file, false)
	require.NoError(t, err)
	last, _ := e.LastEmission("A.h")

	t.Run("file older than the last emission is checked again", func(t *testing.T) {
		old := last.Add(-time.Hour)
		require.NoError(t, fs.Chtimes("/out/A.h", old, old))
		o, err := e.Emit(file, false)
		require.NoError(t, err)
		assert.Equal(t, Unchanged, o)
		got, _ := e.LastEmission("A.h")
		assert.Equal(t, old, got)
	})

	t.Run("file edited on disk after emission is kept", func(t *testing.T) {
		require.NoError(t, afero.WriteFile(fs, "/out/A.h", []byte("edited\n"), 0o644))
		newer := last.Add(time.Hour)
		require.NoError(t, fs.Chtimes("/out/A.h", newer, newer))
		o, err := e.Emit(file, false)
		require.NoError(t, err)
		assert.Equal(t, Skipped, o)
	})

	t.Run("invalidated file is compared with disk", func(t *testing.T) {
		e.Invalidate("A.h")
		_, ok := e.LastEmission("A.h")
		assert.False(t, ok)
		o, err := e.Emit(file, false)
		require.NoError(t, err)
		assert.Equal(t, Written, o)
	})
}

func TestEmitterFailure(t *testing.T) {
	t.Run("read-only file system", func(t *testing.T) {
		e := NewEmitter(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/out", nil)
		o, err := e.Emit(File{Path: "A.h", Content: []byte("a")}, true)
		require.Error(t, err)
		assert.True(t, IsGenerationError(err))
		assert.ErrorIs(t, err, ErrGenerationFailed)
		assert.Equal(t, Skipped, o)
		_, ok := e.LastEmission("A.h")
		assert.False(t, ok)
	})

	t.Run("failed write keeps the previous state", func(t *testing.T) {
		fs := &flakyFs{Fs: afero.NewMemMapFs()}
		e := NewEmitter(fs, "/out", nil)
		_, err := e.Emit(File{Path: "A.h", Content: []byte("v1")}, false)
		require.NoError(t, err)
		before, _ := e.LastEmission("A.h")

		fs.fail = "A.h"
		_, err = e.Emit(File{Path: "A.h", Content: []byte("v2")}, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		after, ok := e.LastEmission("A.h")
		require.True(t, ok)
		assert.Equal(t, before, after)
		got, err := afero.ReadFile(fs, "/out/A.h")
		require.NoError(t, err)
		assert.Equal(t, "v1", string(got))
		entries, err := afero.ReadDir(fs, "/out")
		require.NoError(t, err)
		assert.Len(t, entries, 1, "the temporary file is removed")

		fs.fail = ""
		o, err := e.Emit(File{Path: "A.h", Content: []byte("v2")}, false)
		require.NoError(t, err)
		assert.Equal(t, Written, o)
	})
}

func TestEmitterRemove(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := NewEmitter(fs, "/out", nil)
	_, err := e.Emit(File{Path: "core/A.h", Content: []byte("a")}, false)
	require.NoError(t, err)
	_, err = e.Emit(File{Path: "B.h", Content: []byte("b")}, false)
	require.NoError(t, err)

	require.NoError(t, e.Remove("core/A.h"))
	ok, _ := afero.DirExists(fs, "/out/core")
	assert.False(t, ok, "empty directories are removed")
	_, tracked := e.LastEmission("core/A.h")
	assert.False(t, tracked)

	require.NoError(t, e.Remove("B.h"))
	ok, _ = afero.DirExists(fs, "/out")
	assert.True(t, ok, "the root is kept")
	require.NoError(t, e.Remove("missing.h"))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "written", Written.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}
