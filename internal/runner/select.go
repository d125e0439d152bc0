package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signalnine/sweep/internal/metric"
	"go.uber.org/zap"
)

// DefaultTrials is how many times each command runs unless configured.
const DefaultTrials = 4

// ErrNoResult means every trial for a command failed.
var ErrNoResult = errors.New("no trial produced a result")

// Objective decides which primary metric value is best.
type Objective int

const (
	Minimize Objective = iota
	Maximize
)

func ParseObjective(s string) (Objective, error) {
	switch strings.ToLower(s) {
	case "", "min", "minimize":
		return Minimize, nil
	case "max", "maximize":
		return Maximize, nil
	}
	return Minimize, fmt.Errorf("unknown objective %q (want min or max)", s)
}

func (o Objective) String() string {
	if o == Maximize {
		return "max"
	}
	return "min"
}

// Better reports whether a strictly beats b. A NaN never beats anything and
// any other value beats a NaN, whichever the objective.
func (o Objective) Better(a, b metric.Value) bool {
	if a.IsNaN() || b.IsNaN() {
		return !a.IsNaN()
	}
	c := a.Compare(b)
	if o == Maximize {
		return c > 0
	}
	return c < 0
}

// Trialer runs one trial. *Executor is the production implementation.
type Trialer interface {
	Execute(ctx context.Context, argv []string) (*TrialResult, error)
}

type SelectorOpts struct {
	Trials    int
	Objective Objective
	Delay     time.Duration
}

// Selector runs a command a fixed number of times and keeps the best trial.
type Selector struct {
	trialer Trialer
	logger  *zap.Logger
	opts    SelectorOpts
}

func NewSelector(trialer Trialer, logger *zap.Logger, opts SelectorOpts) *Selector {
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{trialer: trialer, logger: logger, opts: opts}
}

func (s *Selector) Trials() int { return s.opts.Trials }

// Selection is the outcome of all trials for one command. Failures is kept
// even when a best trial exists.
type Selection struct {
	Best      *Success
	BestTrial int
	Trials    int
	Failures  []*Failure
}

// Select runs every trial in sequence. Ties keep the earliest trial. When no
// trial succeeds it returns ErrNoResult alongside the collected failures.
func (s *Selector) Select(ctx context.Context, argv []string) (*Selection, error) {
	sel := &Selection{}
	for i := 1; i <= s.opts.Trials; i++ {
		if i > 1 && s.opts.Delay > 0 {
			if err := sleep(ctx, s.opts.Delay); err != nil {
				return sel, err
			}
		}
		if err := ctx.Err(); err != nil {
			return sel, err
		}

		res, err := s.trialer.Execute(ctx, argv)
		if err != nil {
			return sel, err
		}
		sel.Trials++

		if f := res.Failure; f != nil {
			f.Trial = i
			sel.Failures = append(sel.Failures, f)
			if f.Kind == FailureCanceled {
				return sel, canceled(ctx)
			}
			continue
		}
		if sel.Best == nil || s.opts.Objective.Better(res.Success.Primary(), sel.Best.Primary()) {
			sel.Best = res.Success
			sel.BestTrial = i
		}
	}

	if sel.Best == nil {
		return sel, ErrNoResult
	}
	s.logger.Debug("selected",
		zap.Strings("argv", argv),
		zap.Int("trial", sel.BestTrial),
		zap.Stringer("primary", sel.Best.Primary()),
	)
	return sel, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}
