package gen

import (
	"errors"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Option configures a Generator. Options validate their argument and
// report a *ConfigError.
type Option func(*Config) error

// WithHeader sets the comment written at the top of every emitted file. An
// empty header emits none.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithPackage sets the import path of the Go output, e.g. "example.com/shop".
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if pkg == "" {
			return NewConfigError("Package", nil, "package cannot be empty")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the directory emitted paths are relative to.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithBackend sets the backend rendering the units.
func WithBackend(b Backend) Option {
	return func(c *Config) error {
		if b == nil {
			return NewConfigError("Backend", nil, "backend cannot be nil")
		}
		c.Backend = b
		return nil
	}
}

// WithWorkers sets the number of files written in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}

// WithFeatures enables features, including ones unknown to FeatureByName.
func WithFeatures(features ...Feature) Option {
	return func(c *Config) error {
		c.Features = append(c.Features, features...)
		return nil
	}
}

// WithFeatureNames enables features by name.
func WithFeatureNames(names ...string) Option {
	return func(c *Config) error {
		for _, name := range names {
			f, ok := FeatureByName(name)
			if !ok {
				return NewConfigError("Features", name, "unknown feature")
			}
			c.Features = append(c.Features, f)
		}
		return nil
	}
}

// WithoutFeatures disables features by name.
func WithoutFeatures(names ...string) Option {
	return func(c *Config) error {
		for _, name := range names {
			if _, ok := FeatureByName(name); !ok {
				return NewConfigError("Disabled", name, "unknown feature")
			}
		}
		c.Disabled = append(c.Disabled, names...)
		return nil
	}
}

// WithFs sets the file system generated files are written to.
func WithFs(fs afero.Fs) Option {
	return func(c *Config) error {
		if fs == nil {
			return NewConfigError("Fs", nil, "file system cannot be nil")
		}
		c.Fs = fs
		return nil
	}
}

// WithLogger sets the logger of the generator and its emitter. nil keeps
// the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// Apply runs opts in order and stops at the first rejected option.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll runs every option and joins the errors of the rejected ones.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig returns a Config built from opts.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig is like NewConfig but panics on a rejected option.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}
