package runner_test

import (
	"context"
	"sync"

	"github.com/signalnine/sweep/internal/result"
	"github.com/signalnine/sweep/internal/runner"
)

// scriptLauncher replays canned outputs in order, one per Launch.
type scriptLauncher struct {
	mu      sync.Mutex
	outputs []string
	exits   []int
	calls   [][]string
}

func (l *scriptLauncher) Launch(ctx context.Context, argv []string) (*runner.Output, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := len(l.calls)
	l.calls = append(l.calls, append([]string(nil), argv...))
	out := &runner.Output{}
	if i < len(l.outputs) {
		out.Stdout = []byte(l.outputs[i])
	}
	if i < len(l.exits) {
		out.ExitCode = l.exits[i]
	}
	return out, nil
}

func (l *scriptLauncher) Calls() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// blockLauncher waits for ctx to end.
type blockLauncher struct{}

func (blockLauncher) Launch(ctx context.Context, argv []string) (*runner.Output, error) {
	<-ctx.Done()
	return &runner.Output{Stdout: []byte("partial\n"), ExitCode: -1}, ctx.Err()
}

// memFailures collects failure records.
type memFailures struct {
	records []result.FailureRecord
}

func (m *memFailures) Write(rec result.FailureRecord) error {
	m.records = append(m.records, rec)
	return nil
}

// memSink collects output rows.
type memSink struct {
	rows   []result.Row
	closed bool
}

func (m *memSink) Write(r result.Row) error {
	m.rows = append(m.rows, r)
	return nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}
