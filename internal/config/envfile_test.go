package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/signalnine/sweep/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nexport A=1\nB='two words'\nC=\"x=y\"\nnot a pair\nD = spaced \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := config.ParseEnvFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "two words", "C": "x=y", "D": "spaced"}, got)
}

func TestEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("A=file\nB=file\n"), 0o644))

	cfg := config.Default()
	cfg.EnvFile = path
	cfg.Env = map[string]string{"B": "inline", "C": "inline"}

	env, err := cfg.Environment()
	require.NoError(t, err)
	assert.Equal(t, []string{"A=file", "B=inline", "C=inline"}, config.EnvList(env))

	cfg.EnvFile = filepath.Join(t.TempDir(), "missing.env")
	_, err = cfg.Environment()
	assert.True(t, config.IsConfigError(err), "got %v", err)
}
