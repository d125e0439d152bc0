package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/result"
	"github.com/signalnine/sweep/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run the command for every input row and record the best trial",
		Long: "Each input row fills the {field} placeholders of the command. The command runs\n" +
			"--trials times; the trial with the best primary (first) metric is appended to the\n" +
			"row and written out. Rows whose trials all fail are skipped and logged.",
		RunE: runSweep,
	}
	addSweepFlags(cmd)
	return cmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	tmpl, err := cfg.Template()
	if err != nil {
		return err
	}
	objective, err := runner.ParseObjective(cfg.Objective)
	if err != nil {
		return config.Invalid(err)
	}

	src, inputCloser, err := openInput(cmd, cfg)
	if err != nil {
		return err
	}
	defer inputCloser.Close()

	if err := runner.Check(tmpl, reg, src.Header()); err != nil {
		return config.Invalid(err)
	}
	header := runner.OutputHeader(src.Header(), reg)

	launcher, launcherCloser, err := newLauncher(cfg)
	if err != nil {
		return err
	}
	if launcherCloser != nil {
		defer launcherCloser.Close()
	}

	meta := &result.RunMeta{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Command:   cfg.Command,
		Trials:    cfg.Trials,
		Objective: objective.String(),
		Inputs:    cfg.Inputs,
		Output:    cfg.Output,
	}
	for _, d := range cfg.Metrics {
		meta.Metrics = append(meta.Metrics, result.MetricMeta{Name: d.Name, Type: d.Type, Pattern: d.Pattern})
	}

	var runDir string
	var failures runner.FailureWriter
	if cfg.Results.Dir != "" {
		runDir, err = result.CreateRunDir(cfg.Results.Dir)
		if err != nil {
			return err
		}
		flog, err := result.OpenFailureLog(runDir, meta.RunID)
		if err != nil {
			return err
		}
		defer flog.Close()
		failures = flog
	}

	sink, err := openSinks(cmd, cfg, runDir, header)
	if err != nil {
		return err
	}
	sinkClosed := false
	defer func() {
		if !sinkClosed {
			sink.Close()
		}
	}()

	log := logger.With(zap.String("run_id", meta.RunID))
	log.Info("sweep started",
		zap.String("run_dir", runDir),
		zap.Strings("columns", header),
		zap.Int("trials", cfg.Trials),
	)

	exec := runner.NewExecutor(reg, launcher, log, runner.ExecutorOpts{
		Timeout:    cfg.Timeout,
		TailLines:  cfg.TailLines,
		StrictExit: cfg.StrictExit,
	})
	selector := runner.NewSelector(exec, log, runner.SelectorOpts{
		Trials:    cfg.Trials,
		Objective: objective,
		Delay:     cfg.Delay,
	})
	pipeline, err := runner.NewPipeline(runner.PipelineOpts{
		Template: tmpl,
		Registry: reg,
		Selector: selector,
		Sink:     sink,
		Failures: failures,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, runErr := pipeline.Run(ctx, src)
	meta.FinishedAt = time.Now().UTC()
	meta.RowsIn, meta.RowsOut, meta.RowsSkipped = stats.RowsIn, stats.RowsOut, stats.RowsSkipped
	meta.Interrupted = ctx.Err() != nil && errors.Is(runErr, context.Canceled)

	if runDir != "" {
		if err := result.WriteRunMeta(runDir, meta); err != nil {
			log.Error("writing run metadata", zap.Error(err))
		}
	}
	sinkClosed = true
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("closing output: %w", err)
	}

	var parseErr *runner.ParseError
	switch {
	case meta.Interrupted:
		log.Warn("sweep interrupted", zap.Int("rows_out", stats.RowsOut))
		return ErrInterrupted
	case errors.As(runErr, &parseErr):
		log.Error("metric type mismatch", zap.String("metric", parseErr.Metric), zap.Strings("argv", parseErr.Argv), zap.Error(parseErr))
		return runErr
	case runErr != nil:
		return runErr
	}
	return nil
}
