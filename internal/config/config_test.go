package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/sweep/internal/command"
	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load("testdata/minimal.yaml", true)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Metrics, 1)
	assert.Equal(t, 4, cfg.Trials)
	assert.Equal(t, config.CaptureCombined, cfg.Capture)
	assert.Equal(t, 10, cfg.TailLines)
}

func TestLoadFull(t *testing.T) {
	cfg, err := config.Load("testdata/full.yaml", true)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7, cfg.Trials)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Delay)
	assert.Equal(t, "max", cfg.Objective)
	assert.True(t, cfg.StrictExit)
	assert.Equal(t, config.FormatJSONL, cfg.Format)
	assert.Len(t, cfg.Inputs, 2)
	assert.Equal(t, "alpine:3.20", cfg.Docker.Image)
	assert.Equal(t, "2", cfg.Docker.Env["GOMAXPROCS"])
	assert.Equal(t, "results", cfg.Results.Dir)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "rss"}, reg.Names())
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load("nonexistent.yaml", true)
	require.Error(t, err)
	assert.True(t, config.IsConfigError(err), "got %v", err)

	cfg, err := config.Load(filepath.Join(t.TempDir(), config.DefaultPath), false)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Trials)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trials: [\n"), 0o644))

	_, err := config.Load(path, true)
	assert.True(t, config.IsConfigError(err), "got %v", err)
}

func valid() *config.Config {
	cfg := config.Default()
	cfg.Command = []string{"./prog", "--n={n}"}
	cfg.Metrics = []metric.Decl{{Name: "time", Type: "float", Pattern: `Runtime:\s*(?P<time>\S+)`}}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		target error
	}{
		{"no command", func(c *config.Config) { c.Command = nil }, nil},
		{"no metrics", func(c *config.Config) { c.Metrics = nil }, nil},
		{"zero trials", func(c *config.Config) { c.Trials = 0 }, nil},
		{"zero tail", func(c *config.Config) { c.TailLines = 0 }, nil},
		{"negative timeout", func(c *config.Config) { c.Timeout = -time.Second }, nil},
		{"bad objective", func(c *config.Config) { c.Objective = "median" }, nil},
		{"bad capture", func(c *config.Config) { c.Capture = "stderr" }, nil},
		{"bad format", func(c *config.Config) { c.Format = "xml" }, nil},
		{"negative memory", func(c *config.Config) { c.Docker.MemoryLimit = -1 }, nil},
		{"unknown type", func(c *config.Config) { c.Metrics[0].Type = "decimal" }, metric.ErrUnknownType},
		{"missing group", func(c *config.Config) { c.Metrics[0].Pattern = `Runtime: (\S+)` }, metric.ErrMissingGroup},
		{"duplicate metric", func(c *config.Config) { c.Metrics = append(c.Metrics, c.Metrics[0]) }, metric.ErrDuplicateName},
		{"malformed template", func(c *config.Config) { c.Command = []string{"./prog", "{n"} }, command.ErrMalformedTemplate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, config.IsConfigError(err), "got %T", err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}

	assert.NoError(t, valid().Validate())
}

func TestInvalidNil(t *testing.T) {
	assert.NoError(t, config.Invalid(nil))
	assert.False(t, config.IsConfigError(errors.New("runtime")))
}
