// Package casegen wires a model graph to the relation compiler and a source
// generator.
//
// A Workspace owns one graph. Every mutation goes through a transaction;
// committing it recompiles the touched associations, journals one undoable
// entry and regenerates the files of the dirty units:
//
//	ws, err := casegen.New("Shop",
//		casegen.WithGenerator(
//			gen.WithTarget("out"),
//			gen.WithBackend(cpp.New()),
//		),
//	)
//	if err != nil {
//		return err
//	}
//	_, err = ws.Do("add order", func(tx *model.Tx) error {
//		_, err := ws.Graph().CreateChild(tx, core, model.KindClass, "Order", model.Attrs{})
//		return err
//	})
package casegen

import (
	"context"
	"errors"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/syssam/casegen/compiler/gen"
	"github.com/syssam/casegen/compiler/load"
	"github.com/syssam/casegen/compiler/order"
	"github.com/syssam/casegen/compiler/relation"
	"github.com/syssam/casegen/model"
)

// Config holds the settings of a Workspace.
type Config struct {
	// Generate configures the generator. Without it the workspace keeps the
	// model in memory only.
	Generate []gen.Option
	// Model holds extra graph options such as observers or the history
	// limit.
	Model []model.Option
	// Logger is shared by the graph, the compiler and the generator.
	Logger *zap.Logger
}

// Option configures a Workspace.
type Option func(*Config) error

// WithGenerator enables generation with the given options.
func WithGenerator(opts ...gen.Option) Option {
	return func(c *Config) error {
		c.Generate = append(c.Generate, opts...)
		return nil
	}
}

// WithModelOptions adds graph options.
func WithModelOptions(opts ...model.Option) Option {
	return func(c *Config) error {
		c.Model = append(c.Model, opts...)
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return errors.New("casegen: nil logger")
		}
		c.Logger = l
		return nil
	}
}

// Workspace is a model graph with its relation compiler and generator.
type Workspace struct {
	graph     *model.Graph
	compiler  *relation.Compiler
	generator *gen.Generator
	log       *zap.Logger
}

// New returns a workspace holding an empty project.
func New(project string, opts ...Option) (*Workspace, error) {
	cfg := &Config{}
	var errs []error
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	w := &Workspace{
		compiler: relation.New(relation.WithLogger(log)),
		log:      log,
	}
	mopts := []model.Option{model.WithCompiler(w.compiler), model.WithLogger(log)}
	if len(cfg.Generate) > 0 {
		g, err := gen.NewGenerator(append([]gen.Option{gen.WithLogger(log)}, cfg.Generate...)...)
		if err != nil {
			return nil, err
		}
		w.generator = g
		mopts = append(mopts, model.WithRegenerator(g))
	}
	graph, err := model.New(project, append(mopts, cfg.Model...)...)
	if err != nil {
		return nil, err
	}
	w.graph = graph
	return w, nil
}

// Graph returns the model graph.
func (w *Workspace) Graph() *model.Graph { return w.graph }

// Generator returns the generator, or nil for an in-memory workspace.
func (w *Workspace) Generator() *gen.Generator { return w.generator }

// Do runs fn in a transaction labelled label. The transaction commits when
// fn succeeds and rolls back otherwise. A commit with per-unit failures
// returns its result together with a *CommitError.
func (w *Workspace) Do(label string, fn func(tx *model.Tx) error) (*model.CommitResult, error) {
	tx, err := w.graph.Begin(label)
	if err != nil {
		return nil, err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return nil, &RollbackError{Err: err, Rollback: rerr}
		}
		return nil, err
	}
	return w.result(tx.Commit())
}

// Load applies a design in one transaction.
func (w *Workspace) Load(d *load.Design) (*model.CommitResult, error) {
	return w.result(load.Apply(w.graph, d))
}

// LoadFile reads the design at path from fs and applies it.
func (w *Workspace) LoadFile(fs afero.Fs, path string) (*model.CommitResult, error) {
	d, err := load.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	w.log.Info("load design", zap.String("path", path), zap.Int("modules", len(d.Modules)))
	return w.Load(d)
}

// Undo reverts the last transaction and regenerates the units it touched.
func (w *Workspace) Undo() (*model.CommitResult, error) {
	return w.result(w.graph.Undo())
}

// Redo reapplies the last undone transaction.
func (w *Workspace) Redo() (*model.CommitResult, error) {
	return w.result(w.graph.Redo())
}

// Generate renders and writes every unit. force rewrites files the emitter
// considers up to date.
func (w *Workspace) Generate(ctx context.Context, force bool) (*gen.Report, error) {
	if w.generator == nil {
		return nil, ErrNoBackend
	}
	return w.generator.Generate(ctx, w.graph, force)
}

// Order returns the declaration order of the units of the graph.
func (w *Workspace) Order() (*order.Order, error) {
	return order.Resolve(w.graph, w.graph.Units())
}

func (w *Workspace) result(res *model.CommitResult, err error) (*model.CommitResult, error) {
	if err != nil || res == nil {
		return res, err
	}
	if cerr := NewCommitError(res.Label, res.Failures...); cerr != nil {
		return res, cerr
	}
	return res, nil
}
