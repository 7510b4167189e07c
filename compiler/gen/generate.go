package gen

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/casegen/model"
)

// Report is the outcome of a generation run.
type Report struct {
	Written   []string
	Unchanged []string
	Skipped   []string
	Removed   []string
	// Failures holds one error per failed unit or file. A failure never
	// stops the emission of the other files.
	Failures []error
}

// Err joins the failures.
func (r *Report) Err() error {
	return errors.Join(r.Failures...)
}

// Paths returns the files the run left in place, written or not, sorted.
func (r *Report) Paths() []string {
	out := slices.Concat(r.Written, r.Unchanged, r.Skipped)
	slices.Sort(out)
	return out
}

func (r *Report) record(path string, o Outcome) {
	switch o {
	case Written:
		r.Written = append(r.Written, path)
	case Unchanged:
		r.Unchanged = append(r.Unchanged, path)
	default:
		r.Skipped = append(r.Skipped, path)
	}
}

func (r *Report) sort() {
	slices.Sort(r.Written)
	slices.Sort(r.Unchanged)
	slices.Sort(r.Skipped)
	slices.Sort(r.Removed)
}

// Generator renders models through a backend and emits the files. It
// implements model.Regenerator so that committed transactions regenerate
// their dirty units.
type Generator struct {
	cfg     *Config
	log     *zap.Logger
	emitter *Emitter

	mu sync.Mutex
	// files records the paths emitted for each unit, and for the project
	// under the root id.
	files map[model.ID][]string
}

var _ model.Regenerator = (*Generator)(nil)

// NewGenerator returns a generator for the given options.
func NewGenerator(opts ...Option) (*Generator, error) {
	cfg := &Config{}
	if err := cfg.ApplyAll(opts...); err != nil {
		return nil, err
	}
	return NewGeneratorConfig(cfg)
}

// NewGeneratorConfig returns a generator for cfg.
func NewGeneratorConfig(cfg *Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.logger().With(zap.String("backend", cfg.Backend.Name()))
	return &Generator{
		cfg:     cfg,
		log:     log,
		emitter: NewEmitter(cfg.fs(), cfg.Target, log),
		files:   make(map[model.ID][]string),
	}, nil
}

// Config returns the generator configuration.
func (g *Generator) Config() *Config {
	return g.cfg
}

// Emitter returns the emitter writing the files.
func (g *Generator) Emitter() *Emitter {
	return g.emitter
}

// task is one rendered file waiting to be written.
type task struct {
	owner model.ID
	file  File
}

// Generate renders every unit and the project files and writes them.
// Rendering is sequential over the read-only model; writing runs on a
// bounded number of workers. Failures are collected in the report; the
// returned error is only set when ctx is done or the model cannot be
// ordered.
func (g *Generator) Generate(ctx context.Context, m *model.Graph, force bool) (*Report, error) {
	v, err := NewView(m, g.cfg)
	if err != nil {
		return nil, err
	}
	report := &Report{}
	var tasks []task
	for _, u := range v.Emitted() {
		files, err := g.cfg.Backend.UnitFiles(v, u.ID)
		if err != nil {
			report.Failures = append(report.Failures, NewGenerationError("render", u.ID, "", u.Name, err))
			continue
		}
		for _, f := range files {
			tasks = append(tasks, task{owner: u.ID, file: f})
		}
	}
	project, err := g.projectFiles(v)
	if err != nil {
		report.Failures = append(report.Failures, err)
	}
	for _, f := range project {
		tasks = append(tasks, task{owner: m.Root().ID, file: f})
	}

	if err := g.write(ctx, tasks, force, report); err != nil {
		return nil, err
	}
	g.prune(tasks, report)
	report.sort()
	g.log.Info("generated",
		zap.Int("written", len(report.Written)),
		zap.Int("unchanged", len(report.Unchanged)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failures", len(report.Failures)),
	)
	return report, nil
}

func (g *Generator) write(ctx context.Context, tasks []task, force bool, report *Report) error {
	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.workers())
	for _, t := range tasks {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			o, err := g.emitter.Emit(t.file, force)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				g.log.Warn("emit failed", zap.String("file", t.file.Path), zap.Error(err))
				report.Failures = append(report.Failures, withUnit(err, t.owner))
				return nil
			}
			report.record(t.file.Path, o)
			return nil
		})
	}
	return eg.Wait()
}

// prune removes the files emitted by earlier runs that no longer belong to
// any unit, and records the current files of each unit.
func (g *Generator) prune(tasks []task, report *Report) {
	current := make(map[model.ID][]string)
	keep := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		current[t.owner] = append(current[t.owner], t.file.Path)
		keep[t.file.Path] = true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for owner, paths := range g.files {
		for _, p := range paths {
			if keep[p] {
				continue
			}
			if err := g.emitter.Remove(p); err != nil {
				report.Failures = append(report.Failures, withUnit(err, owner))
				continue
			}
			report.Removed = append(report.Removed, p)
		}
	}
	g.files = current
}

// projectFiles renders the project files of enabled features and the
// backend support files, and removes the files of disabled features.
func (g *Generator) projectFiles(v *View) ([]File, error) {
	var (
		out  []File
		errs []error
	)
	root := v.Project().ID
	paths := g.cfg.Backend.ProjectFiles(v.Project().Name)
	for _, f := range AllFeatures {
		name, ok := paths[f.file]
		if f.file == 0 || !ok {
			continue
		}
		if !g.cfg.Enabled(f) {
			if err := g.emitter.Remove(name); err != nil {
				errs = append(errs, withUnit(err, root))
			}
			continue
		}
		file, err := g.cfg.Backend.ProjectFile(v, f.file)
		if err != nil {
			errs = append(errs, NewGenerationError("render", root, name, f.Name, err))
			continue
		}
		out = append(out, file)
	}
	if sg, ok := g.cfg.Backend.(SupportGenerator); ok {
		files, err := sg.SupportFiles(v)
		if err != nil {
			errs = append(errs, NewGenerationError("render", root, "", "support files", err))
		}
		out = append(out, files...)
	}
	return out, errors.Join(errs...)
}

// Regenerate renders and emits one unit, or the project files when unit is
// the project root. Files of a unit that no longer exists are removed. It
// is called by the model when a transaction commits.
func (g *Generator) Regenerate(m *model.Graph, unit model.ID) error {
	e, ok := m.Lookup(unit)
	if !ok || External(e) {
		return g.forget(unit)
	}
	v, err := NewView(m, g.cfg)
	if err != nil {
		return err
	}
	var files []File
	if unit == m.Root().ID {
		files, err = g.projectFiles(v)
	} else {
		files, err = g.cfg.Backend.UnitFiles(v, unit)
		if err != nil {
			return NewGenerationError("render", unit, "", e.Name, err)
		}
	}
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
		if _, err := g.emitter.Emit(f, false); err != nil {
			errs = append(errs, withUnit(err, unit))
		}
	}
	g.mu.Lock()
	stale := g.files[unit]
	g.files[unit] = paths
	g.mu.Unlock()
	for _, p := range stale {
		if !slices.Contains(paths, p) {
			if err := g.emitter.Remove(p); err != nil {
				errs = append(errs, withUnit(err, unit))
			}
		}
	}
	return errors.Join(errs...)
}

// forget removes the files emitted for a unit that left the model.
func (g *Generator) forget(unit model.ID) error {
	g.mu.Lock()
	paths := g.files[unit]
	delete(g.files, unit)
	g.mu.Unlock()
	var errs []error
	for _, p := range paths {
		if err := g.emitter.Remove(p); err != nil {
			errs = append(errs, withUnit(err, unit))
		}
	}
	return errors.Join(errs...)
}

// Files returns the paths last emitted for unit.
func (g *Generator) Files(unit model.ID) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.files[unit])
}

func withUnit(err error, unit model.ID) error {
	var gerr *GenerationError
	if errors.As(err, &gerr) && gerr.Unit == "" {
		c := *gerr
		c.Unit = unit
		return &c
	}
	return err
}
