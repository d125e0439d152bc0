package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalnine/sweep/internal/metric"
	"github.com/signalnine/sweep/internal/result"
	"go.uber.org/zap"
)

// DefaultTailLines bounds the output kept on a failed trial.
const DefaultTailLines = 10

type FailureKind string

const (
	FailureNoMatch    FailureKind = "no_match"
	FailureLaunch     FailureKind = "launch"
	FailureTimeout    FailureKind = "timeout"
	FailureCanceled   FailureKind = "canceled"
	FailureExitStatus FailureKind = "exit_status"
)

// Failure describes one trial that yielded no usable measurement.
type Failure struct {
	Kind     FailureKind
	Trial    int
	Argv     []string
	ExitCode int
	Missing  string
	Output   []string
	Stderr   []string
	Err      error
	Duration time.Duration
}

// Record converts f into the persisted failure form for input row rowIndex.
func (f *Failure) Record(rowIndex int) result.FailureRecord {
	rec := result.FailureRecord{
		Row:        rowIndex,
		Trial:      f.Trial,
		Kind:       string(f.Kind),
		Argv:       f.Argv,
		ExitCode:   f.ExitCode,
		Missing:    f.Missing,
		Output:     f.Output,
		Stderr:     f.Stderr,
		DurationMS: f.Duration.Milliseconds(),
	}
	if f.Err != nil {
		rec.Error = f.Err.Error()
	}
	return rec
}

// Success holds one value per registered metric, in declaration order.
type Success struct {
	Names    []string
	Values   []metric.Value
	Duration time.Duration
}

// Primary is the value of the first declared metric.
func (s *Success) Primary() metric.Value { return s.Values[0] }

func (s *Success) Get(name string) (metric.Value, bool) {
	for i, n := range s.Names {
		if n == name {
			return s.Values[i], true
		}
	}
	return metric.Value{}, false
}

// TrialResult has exactly one of Success or Failure set.
type TrialResult struct {
	Success *Success
	Failure *Failure
}

// ParseError means a metric pattern matched text its type cannot parse. This
// is a defect in the metric declaration and stops the run.
type ParseError struct {
	Metric string
	Type   metric.Type
	Text   string
	Argv   []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metric %q: cannot parse %q as %s: %v", e.Metric, e.Text, e.Type, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type ExecutorOpts struct {
	Timeout    time.Duration
	TailLines  int
	StrictExit bool
}

// Executor runs a single trial and extracts every registered metric from
// its output.
type Executor struct {
	registry *metric.Registry
	launcher Launcher
	logger   *zap.Logger
	opts     ExecutorOpts
}

func NewExecutor(reg *metric.Registry, launcher Launcher, logger *zap.Logger, opts ExecutorOpts) *Executor {
	if opts.TailLines <= 0 {
		opts.TailLines = DefaultTailLines
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: reg, launcher: launcher, logger: logger, opts: opts}
}

// Execute launches argv once. Trial-level problems come back as a Failure;
// the error return is reserved for conditions that must end the run.
func (e *Executor) Execute(ctx context.Context, argv []string) (*TrialResult, error) {
	e.logger.Info("exec", zap.Strings("argv", argv))

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if e.opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	defer cancel()

	start := time.Now()
	out, err := e.launcher.Launch(runCtx, argv)
	elapsed := time.Since(start)
	if out == nil {
		out = &Output{ExitCode: -1}
	}

	fail := func(kind FailureKind, cause error) *TrialResult {
		return &TrialResult{Failure: &Failure{
			Kind:     kind,
			Argv:     argv,
			ExitCode: out.ExitCode,
			Output:   tailLines(out.Stdout, e.opts.TailLines),
			Stderr:   tailLines(out.Stderr, e.opts.TailLines),
			Err:      cause,
			Duration: elapsed,
		}}
	}

	if err != nil {
		var res *TrialResult
		switch {
		case ctx.Err() != nil:
			res = fail(FailureCanceled, ctx.Err())
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			res = fail(FailureTimeout, fmt.Errorf("timed out after %s", e.opts.Timeout))
		default:
			res = fail(FailureLaunch, err)
		}
		e.logFailure(res.Failure)
		return res, nil
	}

	if e.opts.StrictExit && out.ExitCode != 0 {
		res := fail(FailureExitStatus, fmt.Errorf("exit status %d", out.ExitCode))
		e.logFailure(res.Failure)
		return res, nil
	}

	text := string(out.Stdout)
	specs := e.registry.Specs()
	values := make([]metric.Value, len(specs))
	for i, spec := range specs {
		raw, ok := spec.Find(text)
		if !ok {
			res := fail(FailureNoMatch, nil)
			res.Failure.Missing = spec.Name
			e.logFailure(res.Failure)
			return res, nil
		}
		v, err := spec.Type.Parse(raw)
		if err != nil {
			return nil, &ParseError{Metric: spec.Name, Type: spec.Type, Text: raw, Argv: argv, Err: err}
		}
		values[i] = v
	}

	e.logger.Debug("trial ok",
		zap.Strings("argv", argv),
		zap.Stringer("primary", values[0]),
		zap.Duration("duration", elapsed),
	)
	return &TrialResult{Success: &Success{Names: e.registry.Names(), Values: values, Duration: elapsed}}, nil
}

func (e *Executor) logFailure(f *Failure) {
	fields := []zap.Field{
		zap.String("kind", string(f.Kind)),
		zap.Strings("argv", f.Argv),
		zap.Int("exit_code", f.ExitCode),
		zap.Strings("output", f.Output),
	}
	if f.Missing != "" {
		fields = append(fields, zap.String("missing", f.Missing))
	}
	if len(f.Stderr) > 0 {
		fields = append(fields, zap.Strings("stderr", f.Stderr))
	}
	if f.Err != nil {
		fields = append(fields, zap.Error(f.Err))
	}
	e.logger.Warn("trial failed", fields...)
}
