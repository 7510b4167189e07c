// Package cmd contains the commands of the casegen CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/syssam/casegen/internal/config"
	"github.com/syssam/casegen/internal/logx"
)

// Version is the current version of casegen.
var Version = "0.1.0"

// annotationNoConfig marks commands that must not read the file named by
// --config.
const annotationNoConfig = "casegen/no-config"

// app is the state shared by the commands of one invocation.
type app struct {
	fs         afero.Fs
	configPath string
	verbose    bool
	cfg        *config.Config
	log        *zap.Logger
}

// NewRootCmd returns the casegen command reading and writing fs.
func NewRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "casegen",
		Short: "Generate C++ or Go sources from a class design",
		Long: `casegen builds a class model from a design file, compiles its
associations into link members and writes one source file per class.

Configuration is read from casegen.yaml in the working directory, from
CASEGEN_* environment variables and from flags, in increasing precedence.

Examples:
  casegen init                      # Write a default casegen.yaml
  casegen check                     # Validate the design
  casegen generate --backend go     # Write Go sources
  casegen order                     # Print the declaration order
  casegen watch                     # Regenerate whenever the design changes`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to config file (default: ./casegen.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("design", "", "Design file to load")
	pf.String("target", "", "Output directory")
	pf.String("backend", "", "Backend (cpp|go)")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (console|json)")

	root.AddCommand(
		newInitCmd(a),
		newCheckCmd(a),
		newGenerateCmd(a),
		newOrderCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	v, err := config.New(a.fs, cmd.Flags())
	if err != nil {
		return err
	}
	path := a.configPath
	if cmd.Annotations[annotationNoConfig] != "" {
		path = ""
	}
	cfg, err := config.Load(v, path)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logx.New(cfg.Log.Level, cfg.Log.Format, zapcore.AddSync(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log
	log.Debug("configuration loaded",
		zap.String("design", cfg.Design),
		zap.String("target", cfg.Target),
		zap.String("backend", cfg.Backend),
	)
	return nil
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd(afero.NewOsFs()).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
