// Package config loads the settings of the casegen command from casegen.yaml,
// CASEGEN_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/syssam/casegen/compiler/gen"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "casegen.yaml"

// EnvPrefix prefixes the environment variables overriding the file.
const EnvPrefix = "CASEGEN"

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Backends lists the supported backend names.
var Backends = []string{"cpp", "go"}

// Config holds the casegen command configuration.
type Config struct {
	// Design is the design file to load.
	Design    string   `mapstructure:"design" yaml:"design"`
	Target    string   `mapstructure:"target" yaml:"target"`
	Backend   string   `mapstructure:"backend" yaml:"backend"`
	Package   string   `mapstructure:"package" yaml:"package,omitempty"`
	Header    string   `mapstructure:"header" yaml:"header,omitempty"`
	Workers   int      `mapstructure:"workers" yaml:"workers"`
	Features  []string `mapstructure:"features" yaml:"features,omitempty"`
	Disable   []string `mapstructure:"disable" yaml:"disable,omitempty"`
	GoVersion string   `mapstructure:"go_version" yaml:"go_version,omitempty"`
	// Extensions are the C++ header and source extensions.
	Extensions ExtensionConfig `mapstructure:"extensions" yaml:"extensions"`
	Log        LogConfig       `mapstructure:"log" yaml:"log"`
	Watch      WatchConfig     `mapstructure:"watch" yaml:"watch"`
}

// ExtensionConfig holds the file extensions of the C++ backend.
type ExtensionConfig struct {
	Header string `mapstructure:"header" yaml:"header"`
	Source string `mapstructure:"source" yaml:"source"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// WatchConfig holds the settings of casegen watch.
type WatchConfig struct {
	// Debounce coalesces the events of one save.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// DefaultConfig returns the configuration used for unset keys.
func DefaultConfig() *Config {
	return &Config{
		Design:    "design.yaml",
		Target:    "gen",
		Backend:   "cpp",
		Workers:   4,
		GoVersion: "1.22",
		Extensions: ExtensionConfig{
			Header: "h",
			Source: "cpp",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
	}
}

// New returns a viper instance reading fs with the defaults, the
// environment overrides and flags bound.
func New(fs afero.Fs, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("design", d.Design)
	v.SetDefault("target", d.Target)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("package", d.Package)
	v.SetDefault("header", d.Header)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("features", d.Features)
	v.SetDefault("disable", d.Disable)
	v.SetDefault("go_version", d.GoVersion)
	v.SetDefault("extensions.header", d.Extensions.Header)
	v.SetDefault("extensions.source", d.Extensions.Source)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("watch.debounce", d.Watch.Debounce)

	if flags != nil {
		var errs []error
		flags.VisitAll(func(f *pflag.Flag) {
			errs = append(errs, v.BindPFlag(Key(f.Name), f))
		})
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}
	return v, nil
}

// Key returns the configuration key set by the flag called name:
// "log-level" sets log.level and "go-version" sets go_version.
func Key(name string) string {
	for _, section := range []string{"extensions", "log", "watch"} {
		if rest, ok := strings.CutPrefix(name, section+"-"); ok {
			return section + "." + strings.ReplaceAll(rest, "-", "_")
		}
	}
	return strings.ReplaceAll(name, "-", "_")
}

// Load reads the configuration file at path, or casegen.yaml in the working
// directory when path is empty, and validates the result. A missing
// casegen.yaml is not an error; a missing explicit path is.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that config values are valid.
func Validate(cfg *Config) error {
	if cfg.Design == "" {
		return fmt.Errorf("%w: design must be set", ErrInvalidConfig)
	}
	if cfg.Target == "" {
		return fmt.Errorf("%w: target must be set", ErrInvalidConfig)
	}
	if !slices.Contains(Backends, cfg.Backend) {
		return fmt.Errorf("%w: backend must be one of %v, got %q", ErrInvalidConfig, Backends, cfg.Backend)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, cfg.Workers)
	}
	for _, name := range slices.Concat(cfg.Features, cfg.Disable) {
		if _, ok := gen.FeatureByName(name); !ok {
			return fmt.Errorf("%w: unknown feature %q", ErrInvalidConfig, name)
		}
	}
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must be non-negative, got %s", ErrInvalidConfig, cfg.Watch.Debounce)
	}
	return nil
}

// Write stores cfg as YAML at path. It refuses to overwrite an existing file.
func Write(fs afero.Fs, path string, cfg *Config) error {
	ok, err := afero.Exists(fs, path)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
