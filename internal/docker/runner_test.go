package docker_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/sweep/internal/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLauncher(t *testing.T, opts docker.Options) *docker.Launcher {
	t.Helper()
	if os.Getenv("SWEEP_DOCKER_TESTS") == "" {
		t.Skip("set SWEEP_DOCKER_TESTS=1 to run Docker tests")
	}
	if opts.Image == "" {
		opts.Image = "alpine:latest"
	}
	l, err := docker.NewLauncher(opts)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLaunch(t *testing.T) {
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "input.txt"), []byte("42\n"), 0o644))
	l := newLauncher(t, docker.Options{Workdir: workDir, Env: map[string]string{"SCALE": "3"}})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	out, err := l.Launch(ctx, []string{"sh", "-c", `echo "Runtime: $(cat input.txt)"; echo "scale=$SCALE" >&2`})
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, "Runtime: 42\n", string(out.Stdout))
	assert.Equal(t, "scale=3\n", string(out.Stderr))
}

func TestLaunchMergedStderr(t *testing.T) {
	l := newLauncher(t, docker.Options{MergeStderr: true})

	out, err := l.Launch(context.Background(), []string{"sh", "-c", "echo err >&2; exit 3"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "err\n", string(out.Stdout))
}

func TestLaunchTimeout(t *testing.T) {
	l := newLauncher(t, docker.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := l.Launch(ctx, []string{"sleep", "300"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
