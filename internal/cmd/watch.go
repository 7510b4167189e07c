package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the sources whenever the design changes",
		Long: `Generate once, then watch the design file and regenerate after every
change. Files of classes removed from the design are deleted. Runs until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.watch(cmd.Context(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Duration("watch-debounce", 0, "Quiet period before a change is applied (default 100ms)")
	return cmd
}

// watcher regenerates a design and tracks the files of the last run.
type watcher struct {
	*app
	out   io.Writer
	paths []string
}

func (a *app) watch(ctx context.Context, out io.Writer) error {
	design, err := filepath.Abs(a.cfg.Design)
	if err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("casegen: create watcher: %w", err)
	}
	defer fw.Close()
	// Editors replace files on save, so the directory is watched instead of
	// the file.
	if err := fw.Add(filepath.Dir(design)); err != nil {
		return fmt.Errorf("casegen: watch %s: %w", filepath.Dir(design), err)
	}

	w := &watcher{app: a, out: out}
	w.run(ctx)
	a.log.Info("watching design", zap.String("design", design), zap.Duration("debounce", a.cfg.Watch.Debounce))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != design || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			a.log.Debug("design changed", zap.Stringer("op", ev.Op))
			timer.Reset(a.cfg.Watch.Debounce)
		case <-timer.C:
			w.run(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("watch error", zap.Error(err))
		case <-ctx.Done():
			return nil
		}
	}
}

// run regenerates the design and removes the files the previous run wrote
// that this run did not. A failed run keeps the previous files.
func (w *watcher) run(ctx context.Context) {
	g, report, err := w.generate(ctx, false)
	if err != nil {
		w.log.Error("regenerate", zap.Error(err))
		fmt.Fprintf(w.out, "error: %v\n", err)
		return
	}
	if len(report.Failures) > 0 {
		w.log.Warn("regenerate", zap.Error(report.Err()))
	}
	paths := report.Paths()
	var removed int
	for _, p := range w.paths {
		if _, found := slices.BinarySearch(paths, p); found {
			continue
		}
		if err := g.Emitter().Remove(p); err != nil {
			w.log.Warn("remove stale file", zap.String("file", p), zap.Error(err))
			continue
		}
		removed++
	}
	w.paths = paths
	fmt.Fprintf(w.out, "regenerated: %d written, %d removed, %d failures\n",
		len(report.Written), removed, len(report.Failures))
}
