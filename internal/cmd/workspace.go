package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/syssam/casegen"
	"github.com/syssam/casegen/compiler/gen"
	"github.com/syssam/casegen/compiler/gen/cpp"
	"github.com/syssam/casegen/compiler/gen/golang"
	"github.com/syssam/casegen/compiler/load"
	"github.com/syssam/casegen/model"
)

// backend returns the backend named by the configuration.
func (a *app) backend() (gen.Backend, error) {
	switch a.cfg.Backend {
	case "go":
		return golang.New(golang.WithGoVersion(a.cfg.GoVersion)), nil
	case "cpp":
		return cpp.New(cpp.WithExtensions(a.cfg.Extensions.Header, a.cfg.Extensions.Source)), nil
	default:
		return nil, fmt.Errorf("casegen: unknown backend %q", a.cfg.Backend)
	}
}

// genOptions returns the generator options of the configuration.
func (a *app) genOptions() ([]gen.Option, error) {
	b, err := a.backend()
	if err != nil {
		return nil, err
	}
	opts := []gen.Option{
		gen.WithTarget(a.cfg.Target),
		gen.WithBackend(b),
		gen.WithWorkers(a.cfg.Workers),
		gen.WithFs(a.fs),
	}
	if len(a.cfg.Features) > 0 {
		opts = append(opts, gen.WithFeatureNames(a.cfg.Features...))
	}
	if len(a.cfg.Disable) > 0 {
		opts = append(opts, gen.WithoutFeatures(a.cfg.Disable...))
	}
	if a.cfg.Package != "" {
		opts = append(opts, gen.WithPackage(a.cfg.Package))
	}
	if a.cfg.Header != "" {
		opts = append(opts, gen.WithHeader(a.cfg.Header))
	}
	return opts, nil
}

// open loads the design into a new in-memory workspace.
func (a *app) open() (*casegen.Workspace, error) {
	d, err := load.ReadFile(a.fs, a.cfg.Design)
	if err != nil {
		return nil, err
	}
	project := d.Project
	if project == "" {
		base := filepath.Base(a.cfg.Design)
		project = strings.TrimSuffix(base, filepath.Ext(base))
	}
	ws, err := casegen.New(project, casegen.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	res, err := ws.Load(d)
	if err != nil {
		return nil, err
	}
	a.log.Debug("design applied",
		zap.String("design", a.cfg.Design),
		zap.Int("changes", res.Changes),
	)
	return ws, nil
}

// generate loads the design and writes every unit with a new generator.
func (a *app) generate(ctx context.Context, force bool) (*gen.Generator, *gen.Report, error) {
	ws, err := a.open()
	if err != nil {
		return nil, nil, err
	}
	opts, err := a.genOptions()
	if err != nil {
		return nil, nil, err
	}
	g, err := gen.NewGenerator(append([]gen.Option{gen.WithLogger(a.log)}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	report, err := g.Generate(ctx, ws.Graph(), force)
	if err != nil {
		return nil, nil, err
	}
	return g, report, nil
}

// qualified returns the "::" separated path of id below the project.
func qualified(g *model.Graph, id model.ID) string {
	var path []string
	for e, ok := g.Lookup(id); ok && e.Kind != model.KindProject; e, ok = g.Lookup(e.Parent) {
		path = append(path, e.Name)
	}
	slices.Reverse(path)
	return strings.Join(path, "::")
}

var errFailures = errors.New("casegen: generation finished with failures")
