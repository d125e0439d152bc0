// Package docker runs trial commands inside throwaway containers.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
	"github.com/signalnine/sweep/internal/runner"
)

// WorkspaceTarget is where Options.Workdir is mounted inside the container.
const WorkspaceTarget = "/workspace"

type Options struct {
	Image       string
	Workdir     string
	Env         map[string]string
	CPULimit    float64
	MemoryLimit int64
	MergeStderr bool
}

// Launcher implements runner.Launcher by creating one container per trial.
// The container is force-removed when the trial ends.
type Launcher struct {
	cli  *client.Client
	opts Options
}

func NewLauncher(opts Options) (*Launcher, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("docker launcher: no image")
	}
	if opts.Workdir != "" {
		abs, err := filepath.Abs(opts.Workdir)
		if err != nil {
			return nil, fmt.Errorf("resolving workdir: %w", err)
		}
		opts.Workdir = abs
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Launcher{cli: cli, opts: opts}, nil
}

func (l *Launcher) Close() error { return l.cli.Close() }

func (l *Launcher) config(argv []string) (*container.Config, *container.HostConfig) {
	keys := make([]string, 0, len(l.opts.Env))
	for k := range l.opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+l.opts.Env[k])
	}

	cfg := &container.Config{
		Image:  l.opts.Image,
		Cmd:    argv,
		Env:    env,
		Labels: map[string]string{"sweep": "true"},
	}
	initTrue := true
	hostCfg := &container.HostConfig{Init: &initTrue}
	if l.opts.Workdir != "" {
		hostCfg.Mounts = []mount.Mount{{
			Type:   mount.TypeBind,
			Source: l.opts.Workdir,
			Target: WorkspaceTarget,
		}}
		cfg.WorkingDir = WorkspaceTarget
	}
	if l.opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(l.opts.CPULimit * 1e9)
	}
	if l.opts.MemoryLimit > 0 {
		hostCfg.Memory = l.opts.MemoryLimit
	}
	return cfg, hostCfg
}

func (l *Launcher) Launch(ctx context.Context, argv []string) (*runner.Output, error) {
	if len(argv) == 0 {
		return nil, &runner.LaunchError{Argv: []string{""}, Err: fmt.Errorf("empty command")}
	}
	cfg, hostCfg := l.config(argv)

	createResp, err := l.cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     cfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &runner.LaunchError{Argv: argv, Err: fmt.Errorf("creating container: %w", err)}
	}
	containerID := createResp.ID
	defer func() {
		l.cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	if _, err := l.cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &runner.LaunchError{Argv: argv, Err: fmt.Errorf("starting container: %w", err)}
	}

	waitResult := l.cli.ContainerWait(ctx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case <-ctx.Done():
			l.cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			out, _ := l.logs(containerID)
			return out, ctx.Err()
		case err := <-waitResult.Error:
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				l.cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				out, _ := l.logs(containerID)
				return out, ctx.Err()
			}
			return nil, fmt.Errorf("waiting for container: %w", err)
		case status := <-waitResult.Result:
			out, err := l.logs(containerID)
			if err != nil {
				return nil, err
			}
			out.ExitCode = int(status.StatusCode)
			return out, nil
		}
	}
}

// logs collects and demultiplexes everything the container wrote.
func (l *Launcher) logs(containerID string) (*runner.Output, error) {
	out := &runner.Output{ExitCode: -1}
	logReader, err := l.cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return out, fmt.Errorf("reading container logs: %w", err)
	}
	defer logReader.Close()

	var stdout, stderr bytes.Buffer
	var errDst io.Writer = &stderr
	if l.opts.MergeStderr {
		errDst = &stdout
	}
	if _, err := stdcopy.StdCopy(&stdout, errDst, logReader); err != nil {
		return out, fmt.Errorf("demultiplexing container logs: %w", err)
	}
	out.Stdout = stdout.Bytes()
	out.Stderr = stderr.Bytes()
	return out, nil
}
