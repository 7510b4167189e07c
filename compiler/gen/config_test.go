package gen

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		name   string
		opt    Option
		check  func(t *testing.T, c *Config)
		option string
	}{
		{name: "header", opt: WithHeader("// x"), check: func(t *testing.T, c *Config) { assert.Equal(t, "// x", c.Header) }},
		{name: "package", opt: WithPackage("example.com/out"), check: func(t *testing.T, c *Config) { assert.Equal(t, "example.com/out", c.Package) }},
		{name: "empty package", opt: WithPackage(""), option: "Package"},
		{name: "target", opt: WithTarget("out"), check: func(t *testing.T, c *Config) { assert.Equal(t, "out", c.Output().Target) }},
		{name: "empty target", opt: WithTarget(""), option: "Target"},
		{name: "nil backend", opt: WithBackend(nil), option: "Backend"},
		{name: "workers", opt: WithWorkers(3), check: func(t *testing.T, c *Config) { assert.Equal(t, 3, c.workers()) }},
		{name: "zero workers", opt: WithWorkers(0), option: "Workers"},
		{name: "nil fs", opt: WithFs(nil), option: "Fs"},
		{name: "unknown feature", opt: WithFeatureNames("sql"), option: "Features"},
		{name: "unknown disabled feature", opt: WithoutFeatures("sql"), option: "Disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			err := c.Apply(tt.opt)
			if tt.option != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidOption)
				var cerr *ConfigError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, tt.option, cerr.Option)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestApplyAllCollectsErrors(t *testing.T) {
	c := &Config{}
	err := c.ApplyAll(WithTarget(""), WithHeader("// h"), WithWorkers(-1))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "Target")
	assert.Contains(t, err.Error(), "Workers")
	assert.Equal(t, "// h", c.Header)

	_, err = NewGenerator(WithTarget(""), WithWorkers(0))
	assert.True(t, IsConfigError(err))
}

func TestNewConfig(t *testing.T) {
	c, err := NewConfig(WithTarget("out"))
	require.NoError(t, err)
	assert.Equal(t, "out", c.Target)
	assert.Positive(t, c.workers())
	assert.IsType(t, &afero.OsFs{}, c.fs())
	assert.NotNil(t, c.logger())

	assert.Panics(t, func() { MustNewConfig(WithTarget("")) })
}

func TestValidate(t *testing.T) {
	c := MustNewConfig(WithBackend(&textBackend{}))
	err := c.Validate()
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.Contains(t, err.Error(), "missing target directory")

	c = MustNewConfig(WithTarget("out"))
	assert.ErrorContains(t, c.Validate(), "no backend set")

	c = MustNewConfig(WithTarget("out"), WithBackend(&textBackend{}), WithFeatures(Feature{Name: "graphql"}))
	assert.ErrorContains(t, c.Validate(), "unknown feature")

	c = MustNewConfig(WithTarget("out"), WithBackend(&textBackend{}))
	assert.NoError(t, c.Validate())
}

func TestFeatures(t *testing.T) {
	c := MustNewConfig()
	for _, f := range AllFeatures {
		ok, err := c.FeatureEnabled(f.Name)
		require.NoError(t, err)
		assert.Equal(t, f.Default, ok, f.Name)
	}
	_, err := c.FeatureEnabled("privacy")
	assert.True(t, IsConfigError(err))

	c = MustNewConfig(WithoutFeatures("umbrella"), WithFeatureNames("umbrella"))
	assert.False(t, c.Enabled(FeatureUmbrella), "disabling wins")
	assert.True(t, c.Enabled(FeatureBuild))

	f, ok := FeatureByName("build")
	require.True(t, ok)
	assert.Equal(t, Beta, f.Stage)
	assert.Equal(t, "beta", f.Stage.String())
	assert.Equal(t, "stable", Stable.String())
	assert.Equal(t, "unknown", FeatureStage(0).String())
}

func TestErrors(t *testing.T) {
	cerr := NewConfigError("Target", "x", "bad")
	assert.Equal(t, `casegen: config error for "Target" (value: x): bad`, cerr.Error())
	assert.Equal(t, `casegen: config error for "Target": bad`, NewConfigError("Target", nil, "bad").Error())

	cause := errors.New("boom")
	gerr := NewGenerationError("write", "e1", "core/A.h", "stat", cause)
	assert.Equal(t, `casegen: generation error in phase write for unit "e1" (file: core/A.h): stat: boom`, gerr.Error())
	assert.ErrorIs(t, gerr, cause)
	assert.ErrorIs(t, gerr, ErrGenerationFailed)
	assert.False(t, IsConfigError(gerr))
	assert.False(t, IsGenerationError(cerr))

	plain := NewGenerationError("", "", "", "", nil)
	assert.Equal(t, "casegen: generation error", plain.Error())

	assert.Equal(t, "e2", string(withUnit(NewGenerationError("write", "", "A.h", "", cause), "e2").(*GenerationError).Unit))
	assert.Equal(t, "e1", string(withUnit(gerr, "e2").(*GenerationError).Unit))
	assert.Equal(t, cause, withUnit(cause, "e2"))
}
