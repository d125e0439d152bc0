//go:build !windows

package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/signalnine/sweep/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessLauncherCapture(t *testing.T) {
	script := `echo out; echo err >&2; exit 3`

	sep := &runner.ProcessLauncher{}
	out, err := sep.Launch(context.Background(), []string{"sh", "-c", script})
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(out.Stdout))
	assert.Equal(t, "err\n", string(out.Stderr))
	assert.Equal(t, 3, out.ExitCode)

	merged := &runner.ProcessLauncher{MergeStderr: true}
	out, err = merged.Launch(context.Background(), []string{"sh", "-c", script})
	require.NoError(t, err)
	assert.Contains(t, string(out.Stdout), "out\n")
	assert.Contains(t, string(out.Stdout), "err\n")
	assert.Empty(t, out.Stderr)
}

func TestProcessLauncherNoShell(t *testing.T) {
	l := &runner.ProcessLauncher{}
	out, err := l.Launch(context.Background(), []string{"echo", "a b; echo injected"})
	require.NoError(t, err)
	assert.Equal(t, "a b; echo injected\n", string(out.Stdout))
}

func TestProcessLauncherEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	l := &runner.ProcessLauncher{Dir: dir, Env: []string{"SWEEP_TEST_VAR=42"}}
	out, err := l.Launch(context.Background(), []string{"sh", "-c", `pwd; echo "$SWEEP_TEST_VAR"`})
	require.NoError(t, err)
	assert.Contains(t, string(out.Stdout), "42\n")
}

func TestProcessLauncherMissingBinary(t *testing.T) {
	l := &runner.ProcessLauncher{}
	_, err := l.Launch(context.Background(), []string{"/nonexistent/sweep-test-binary"})
	var le *runner.LaunchError
	require.ErrorAs(t, err, &le)

	_, err = l.Launch(context.Background(), nil)
	require.ErrorAs(t, err, &le)
}

func TestProcessLauncherKillsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	l := &runner.ProcessLauncher{WaitDelay: time.Second}
	start := time.Now()
	_, err := l.Launch(ctx, []string{"sh", "-c", "sleep 30 & sleep 30; wait"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}
