package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/signalnine/sweep/internal/command"
	"github.com/signalnine/sweep/internal/metric"
	"github.com/signalnine/sweep/internal/result"
	"go.uber.org/zap"
)

// ErrColumnCollision means a metric name repeats an input column name.
var ErrColumnCollision = errors.New("metric name collides with input column")

// RowSource yields parameter rows. Next returns io.EOF after the last row.
type RowSource interface {
	Header() []string
	Next() (result.Row, error)
}

// FailureWriter persists trial failures. result.FailureLog implements it.
type FailureWriter interface {
	Write(result.FailureRecord) error
}

type PipelineOpts struct {
	Template *command.Template
	Registry *metric.Registry
	Selector *Selector
	Sink     result.Sink
	Failures FailureWriter
	Logger   *zap.Logger
}

// Pipeline turns each input row into a command, measures it, and emits the
// row extended with the best trial's metrics. Rows are processed strictly in
// input order, one command at a time.
type Pipeline struct {
	template *command.Template
	registry *metric.Registry
	selector *Selector
	sink     result.Sink
	failures FailureWriter
	logger   *zap.Logger
}

type Stats struct {
	RowsIn      int
	RowsOut     int
	RowsSkipped int
}

func NewPipeline(opts PipelineOpts) (*Pipeline, error) {
	switch {
	case opts.Template == nil:
		return nil, errors.New("pipeline: no command template")
	case opts.Registry == nil || opts.Registry.Len() == 0:
		return nil, errors.New("pipeline: no metrics registered")
	case opts.Selector == nil:
		return nil, errors.New("pipeline: no selector")
	case opts.Sink == nil:
		return nil, errors.New("pipeline: no sink")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		template: opts.Template,
		registry: opts.Registry,
		selector: opts.Selector,
		sink:     opts.Sink,
		failures: opts.Failures,
		logger:   logger,
	}, nil
}

// OutputHeader is the input header followed by metric names in declaration
// order.
func OutputHeader(input []string, reg *metric.Registry) []string {
	return append(append([]string(nil), input...), reg.Names()...)
}

// Check verifies before any command runs that every template field names an
// input column and that no metric name shadows one.
func Check(tmpl *command.Template, reg *metric.Registry, header []string) error {
	blank, err := result.NewRow(header, make([]string, len(header)))
	if err != nil {
		return err
	}
	if _, err := tmpl.Materialize(blank); err != nil {
		return err
	}
	for _, name := range reg.Names() {
		if _, ok := blank.Get(name); ok {
			return fmt.Errorf("%w: %q", ErrColumnCollision, name)
		}
	}
	return nil
}

// Process measures one row. ok is false when every trial failed and the row
// must be skipped.
func (p *Pipeline) Process(ctx context.Context, index int, row result.Row) (out result.Row, ok bool, err error) {
	argv, err := p.template.Materialize(row)
	if err != nil {
		return result.Row{}, false, fmt.Errorf("row %d: %w", index, err)
	}

	sel, err := p.selector.Select(ctx, argv)
	if werr := p.recordFailures(index, sel); werr != nil {
		return result.Row{}, false, werr
	}
	if errors.Is(err, ErrNoResult) {
		p.logger.Warn("row skipped",
			zap.Int("row", index),
			zap.Strings("argv", argv),
			zap.Int("trials", sel.Trials),
		)
		return result.Row{}, false, nil
	}
	if err != nil {
		return result.Row{}, false, err
	}

	values := make([]any, len(sel.Best.Values))
	for i, v := range sel.Best.Values {
		values[i] = v
	}
	out, err = row.With(sel.Best.Names, values)
	if err != nil {
		return result.Row{}, false, fmt.Errorf("row %d: %w", index, err)
	}
	return out, true, nil
}

func (p *Pipeline) recordFailures(index int, sel *Selection) error {
	if p.failures == nil || sel == nil {
		return nil
	}
	for _, f := range sel.Failures {
		if err := p.failures.Write(f.Record(index)); err != nil {
			return fmt.Errorf("recording failure for row %d: %w", index, err)
		}
	}
	return nil
}

// Run drains src through the pipeline. Each output row reaches the sink
// before the next input row is read. Cancelling ctx stops after the current
// trial; rows already written stay written.
func (p *Pipeline) Run(ctx context.Context, src RowSource) (Stats, error) {
	var stats Stats
	if err := Check(p.template, p.registry, src.Header()); err != nil {
		return stats, err
	}

	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("input row %d: %w", index, err)
		}
		stats.RowsIn++

		out, ok, err := p.Process(ctx, index, row)
		if err != nil {
			return stats, err
		}
		if !ok {
			stats.RowsSkipped++
			continue
		}
		if err := p.sink.Write(out); err != nil {
			return stats, fmt.Errorf("writing row %d: %w", index, err)
		}
		stats.RowsOut++
		p.logger.Debug("row written", zap.Int("row", index), zap.Strings("values", out.Strings()))
	}

	p.logger.Info("sweep finished",
		zap.Int("rows_in", stats.RowsIn),
		zap.Int("rows_out", stats.RowsOut),
		zap.Int("rows_skipped", stats.RowsSkipped),
	)
	return stats, nil
}
