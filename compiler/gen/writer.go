package gen

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Outcome is the result of emitting one file.
type Outcome int

// Emission outcomes.
const (
	// Skipped means the staleness check found nothing to do.
	Skipped Outcome = iota
	// Unchanged means the content was rendered but matched the file on disk.
	Unchanged
	// Written means the file was replaced.
	Written
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Unchanged:
		return "unchanged"
	case Written:
		return "written"
	}
	return "unknown"
}

// emission is the state recorded after the last successful emission of a
// file.
type emission struct {
	mtime time.Time
	sum   [sha256.Size]byte
}

// Emitter writes files under a root directory, atomically and only when
// they are stale. It is safe for concurrent use on distinct paths.
type Emitter struct {
	fs   afero.Fs
	root string
	log  *zap.Logger

	mu    sync.Mutex
	state map[string]emission
}

// NewEmitter returns an emitter writing under root.
func NewEmitter(fs afero.Fs, root string, log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{fs: fs, root: root, log: log, state: make(map[string]emission)}
}

// Root returns the root directory.
func (e *Emitter) Root() string {
	return e.root
}

func (e *Emitter) abs(name string) string {
	return filepath.Join(e.root, filepath.FromSlash(path.Clean(name)))
}

// Emit writes f unless it is up to date. Without force the file is skipped
// when it exists, its content did not change since the last emission and
// its modification time is not older than that emission, and it is
// rewritten only when its bytes differ. With force the file is always
// rewritten. The recorded timestamp is always the modification time read
// back from the file system. On failure the recorded state is left
// untouched.
func (e *Emitter) Emit(f File, force bool) (Outcome, error) {
	full := e.abs(f.Path)
	sum := sha256.Sum256(f.Content)

	e.mu.Lock()
	last, emitted := e.state[f.Path]
	e.mu.Unlock()

	info, err := e.fs.Stat(full)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Skipped, NewGenerationError("write", "", f.Path, "stat", err)
	}
	if !force && exists && emitted && last.sum == sum && !info.ModTime().Before(last.mtime) {
		return Skipped, nil
	}

	outcome := Unchanged
	if force || !exists || !e.sameContent(full, f.Content) {
		if err := e.write(full, f.Content); err != nil {
			return Skipped, NewGenerationError("write", "", f.Path, "", err)
		}
		outcome = Written
	}
	info, err = e.fs.Stat(full)
	if err != nil {
		return Skipped, NewGenerationError("write", "", f.Path, "stat after write", err)
	}

	e.mu.Lock()
	e.state[f.Path] = emission{mtime: info.ModTime(), sum: sum}
	e.mu.Unlock()
	e.log.Debug("emit", zap.String("file", f.Path), zap.Stringer("outcome", outcome))
	return outcome, nil
}

func (e *Emitter) sameContent(full string, content []byte) bool {
	old, err := afero.ReadFile(e.fs, full)
	return err == nil && bytes.Equal(old, content)
}

// write replaces full through a temporary file in the same directory.
func (e *Emitter) write(full string, content []byte) (err error) {
	dir := filepath.Dir(full)
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := afero.TempFile(e.fs, dir, "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = e.fs.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err := e.fs.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temporary file: %w", err)
	}
	if err := e.fs.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Remove deletes a previously emitted file and forgets its state. Missing
// files are ignored.
func (e *Emitter) Remove(name string) error {
	if err := remove(e.fs, e.root, name); err != nil {
		return NewGenerationError("remove", "", name, "", err)
	}
	e.mu.Lock()
	delete(e.state, name)
	e.mu.Unlock()
	e.log.Debug("remove", zap.String("file", name))
	return nil
}

// Invalidate forgets the last emission of name so the next Emit rewrites
// it if its content differs from disk.
func (e *Emitter) Invalidate(name string) {
	e.mu.Lock()
	delete(e.state, name)
	e.mu.Unlock()
}

// LastEmission returns the modification time recorded by the last
// successful emission of name.
func (e *Emitter) LastEmission(name string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.state[name]
	return s.mtime, ok
}

// remove file (if exists) and its dir if it's empty.
func remove(fs afero.Fs, root, name string) error {
	full := filepath.Join(root, filepath.FromSlash(path.Clean(name)))
	if err := fs.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	dir := filepath.Dir(full)
	if dir == filepath.Clean(root) {
		return nil
	}
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return fs.Remove(dir)
	}
	return nil
}
