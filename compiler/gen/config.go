package gen

import (
	"runtime"
	"slices"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Config holds the code generation settings.
type Config struct {
	// Target is the output directory.
	Target string
	// Backend renders the units. It is required.
	Backend Backend
	// Package is the import path of Target, used by backends that emit
	// import statements.
	Package string
	// Header is written at the top of every generated file. Backends
	// render each line as a comment.
	Header string
	// Workers bounds the number of files written in parallel.
	Workers int
	// Features are the explicitly enabled features.
	Features []Feature
	// Disabled names the features turned off, including default ones.
	Disabled []string
	// Fs is the file system files are written to.
	Fs afero.Fs
	// Logger receives emission events.
	Logger *zap.Logger
}

// OutputConfig groups the output settings.
type OutputConfig struct {
	Target  string
	Package string
	Header  string
}

// Output returns the output settings.
func (c *Config) Output() OutputConfig {
	return OutputConfig{Target: c.Target, Package: c.Package, Header: c.Header}
}

// FeatureEnabled reports whether the feature named name is enabled. Features
// are enabled when listed in Features or on by default, unless disabled.
func (c *Config) FeatureEnabled(name string) (bool, error) {
	f, ok := FeatureByName(name)
	if !ok {
		return false, NewConfigError("Features", name, "unknown feature")
	}
	if slices.Contains(c.Disabled, name) {
		return false, nil
	}
	for _, e := range c.Features {
		if e.Name == name {
			return true, nil
		}
	}
	return f.Default, nil
}

// Enabled is FeatureEnabled without the error for unknown names.
func (c *Config) Enabled(f Feature) bool {
	ok, err := c.FeatureEnabled(f.Name)
	return err == nil && ok
}

func (c *Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c *Config) fs() afero.Fs {
	if c.Fs == nil {
		return afero.NewOsFs()
	}
	return c.Fs
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// Validate checks the settings required to generate.
func (c *Config) Validate() error {
	if c.Target == "" {
		return NewConfigError("Target", nil, "missing target directory in config")
	}
	if c.Backend == nil {
		return NewConfigError("Backend", nil, "no backend set: use WithBackend")
	}
	for _, f := range c.Features {
		if _, ok := FeatureByName(f.Name); !ok {
			return NewConfigError("Features", f.Name, "unknown feature")
		}
	}
	return nil
}
