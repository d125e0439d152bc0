package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Output is everything a finished child process wrote. With merged capture
// both streams land in Stdout and Stderr stays empty.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Launcher runs one argument vector to completion. A non-zero exit is not an
// error. When ctx ends first, Launch kills the child and returns ctx.Err().
type Launcher interface {
	Launch(ctx context.Context, argv []string) (*Output, error)
}

// LaunchError means the process could not be started at all.
type LaunchError struct {
	Argv []string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %q: %v", e.Argv[0], e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

const defaultWaitDelay = 5 * time.Second

// ProcessLauncher executes argv directly on the host, never through a shell.
// The child gets its own process group so a kill reaches its descendants.
type ProcessLauncher struct {
	Dir         string
	Env         []string
	MergeStderr bool
	WaitDelay   time.Duration
}

func (l *ProcessLauncher) Launch(ctx context.Context, argv []string) (*Output, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, &LaunchError{Argv: []string{""}, Err: errors.New("empty command")}
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = l.Dir
	if len(l.Env) > 0 {
		cmd.Env = append(os.Environ(), l.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if l.MergeStderr {
		cmd.Stderr = &stdout
	} else {
		cmd.Stderr = &stderr
	}

	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = l.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	err := cmd.Run()
	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay) {
		return out, nil
	}
	return out, &LaunchError{Argv: argv, Err: err}
}
