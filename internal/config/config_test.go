package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, fs afero.Fs, path string, flags *pflag.FlagSet) (*Config, error) {
	t.Helper()
	v, err := New(fs, flags)
	require.NoError(t, err)
	return Load(v, path)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t, afero.NewMemMapFs(), "", nil)
	require.NoError(t, err, "a missing casegen.yaml is not an error")
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/casegen.yaml", []byte(`
design: shop.yaml
target: out
backend: go
package: example.com/shop
features: [comments]
disable: [build]
log:
  level: debug
watch:
  debounce: 250ms
`), 0o644))

	cfg, err := load(t, fs, "/work/casegen.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, "shop.yaml", cfg.Design)
	assert.Equal(t, "out", cfg.Target)
	assert.Equal(t, "go", cfg.Backend)
	assert.Equal(t, "example.com/shop", cfg.Package)
	assert.Equal(t, []string{"comments"}, cfg.Features)
	assert.Equal(t, []string{"build"}, cfg.Disable)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format, "unset keys keep their default")
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 4, cfg.Workers)

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := load(t, fs, "/work/other.yaml", nil)
		assert.Error(t, err)
	})
}

func TestLoadOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/casegen.yaml", []byte("backend: go\nworkers: 2\n"), 0o644))

	t.Setenv("CASEGEN_WORKERS", "8")
	t.Setenv("CASEGEN_LOG_FORMAT", "json")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("target", "gen", "")
	flags.String("go-version", "1.22", "")
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--target=build", "--go-version=1.23", "--log-level=warn"}))

	cfg, err := load(t, fs, "/casegen.yaml", flags)
	require.NoError(t, err)
	assert.Equal(t, "go", cfg.Backend)
	assert.Equal(t, 8, cfg.Workers, "the environment overrides the file")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "build", cfg.Target, "flags override the file")
	assert.Equal(t, "1.23", cfg.GoVersion)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty design", func(c *Config) { c.Design = "" }},
		{"empty target", func(c *Config) { c.Target = "" }},
		{"unknown backend", func(c *Config) { c.Backend = "rust" }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"unknown feature", func(c *Config) { c.Features = []string{"sql"} }},
		{"unknown disabled feature", func(c *Config) { c.Disable = []string{"sql"} }},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }},
	}
	require.NoError(t, Validate(DefaultConfig()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, Validate(cfg), ErrInvalidConfig)
		})
	}
}

func TestWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := DefaultConfig()
	cfg.Backend = "go"
	require.NoError(t, Write(fs, "/casegen.yaml", cfg))
	assert.Error(t, Write(fs, "/casegen.yaml", cfg), "existing files are kept")

	got, err := load(t, fs, "/casegen.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestKey(t *testing.T) {
	for name, want := range map[string]string{
		"target":            "target",
		"go-version":        "go_version",
		"log-level":         "log.level",
		"watch-debounce":    "watch.debounce",
		"extensions-header": "extensions.header",
	} {
		assert.Equal(t, want, Key(name), name)
	}
}
