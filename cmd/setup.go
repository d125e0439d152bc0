package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/docker"
	"github.com/signalnine/sweep/internal/input"
	"github.com/signalnine/sweep/internal/metric"
	"github.com/signalnine/sweep/internal/result"
	"github.com/signalnine/sweep/internal/runner"
	"github.com/spf13/cobra"
)

// sweepFlags override config file values when set.
type sweepFlags struct {
	inputs     []string
	output     string
	records    []string
	trials     int
	timeout    time.Duration
	delay      time.Duration
	objective  string
	capture    string
	strictExit bool
	format     string
	sqlite     string
	image      string
}

var flags sweepFlags

func addSweepFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVarP(&flags.inputs, "in", "i", nil, "input CSV (repeatable; several are crossed)")
	f.StringVarP(&flags.output, "out", "o", "", "output path (default stdout)")
	f.StringArrayVarP(&flags.records, "record", "r", nil, "metric as name:type:pattern (repeatable)")
	f.IntVar(&flags.trials, "trials", 0, "trials per command")
	f.DurationVar(&flags.timeout, "timeout", 0, "per-trial timeout")
	f.DurationVar(&flags.delay, "delay", 0, "pause between trials")
	f.StringVar(&flags.objective, "objective", "", "min or max of the primary metric")
	f.StringVar(&flags.capture, "capture", "", "combined or stdout")
	f.BoolVar(&flags.strictExit, "strict-exit", false, "treat a non-zero exit as a failed trial")
	f.StringVar(&flags.format, "format", "", "output format (csv, jsonl)")
	f.StringVar(&flags.sqlite, "sqlite", "", "also append rows to this SQLite database")
	f.StringVar(&flags.image, "image", "", "run trials in this container image")
}

// loadConfig reads the config file, applies flags and the command after
// "--", and validates the result.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, config.Invalid(err)
	}
	argv, err := commandArgs(cmd, args)
	if err != nil {
		return nil, config.Invalid(err)
	}
	if len(argv) > 0 {
		cfg.Command = argv
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("in") {
		cfg.Inputs = flags.inputs
	}
	if changed("out") {
		cfg.Output = flags.output
	}
	if changed("record") {
		decls := make([]metric.Decl, 0, len(flags.records))
		for _, r := range flags.records {
			d, err := metric.ParseDecl(r)
			if err != nil {
				return err
			}
			decls = append(decls, d)
		}
		cfg.Metrics = decls
	}
	if changed("trials") {
		cfg.Trials = flags.trials
	}
	if changed("timeout") {
		cfg.Timeout = flags.timeout
	}
	if changed("delay") {
		cfg.Delay = flags.delay
	}
	if changed("objective") {
		cfg.Objective = flags.objective
	}
	if changed("capture") {
		cfg.Capture = flags.capture
	}
	if changed("strict-exit") {
		cfg.StrictExit = flags.strictExit
	}
	if changed("format") {
		cfg.Format = flags.format
	}
	if changed("sqlite") {
		cfg.SQLite = flags.sqlite
	}
	if changed("image") {
		cfg.Docker.Image = flags.image
	}
	return nil
}

// commandArgs returns the argv template given after "--".
func commandArgs(cmd *cobra.Command, args []string) ([]string, error) {
	dash := cmd.ArgsLenAtDash()
	switch {
	case dash < 0 && len(args) > 0:
		return nil, fmt.Errorf("put the command after --, got %q", args)
	case dash > 0:
		return nil, fmt.Errorf("unexpected arguments before --: %q", args[:dash])
	case dash == 0:
		return args, nil
	}
	return nil, nil
}

// newLauncher picks the container launcher when an image is configured. The
// closer is nil for host processes.
func newLauncher(cfg *config.Config) (runner.Launcher, io.Closer, error) {
	env, err := cfg.Environment()
	if err != nil {
		return nil, nil, err
	}
	merge := cfg.Capture == config.CaptureCombined
	if cfg.Docker.Image == "" {
		return &runner.ProcessLauncher{Env: config.EnvList(env), MergeStderr: merge}, nil, nil
	}
	for k, v := range cfg.Docker.Env {
		env[k] = v
	}
	l, err := docker.NewLauncher(docker.Options{
		Image:       cfg.Docker.Image,
		Workdir:     cfg.Docker.Workdir,
		Env:         env,
		CPULimit:    cfg.Docker.CPULimit,
		MemoryLimit: cfg.Docker.MemoryLimit,
		MergeStderr: merge,
	})
	if err != nil {
		return nil, nil, err
	}
	return l, l, nil
}

func openInput(cmd *cobra.Command, cfg *config.Config) (input.Source, io.Closer, error) {
	src, closer, err := input.Open(cfg.Inputs, cmd.InOrStdin())
	if err != nil {
		return nil, nil, config.Invalid(err)
	}
	return src, closer, nil
}

// openSinks builds the output sinks. Rows go to --out (stdout when empty or
// "-") unless a run directory takes over, which always gets results.csv.
// A configured SQLite database receives every row as well.
func openSinks(cmd *cobra.Command, cfg *config.Config, runDir string, header []string) (result.Sink, error) {
	var sinks result.MultiSink
	fail := func(err error) (result.Sink, error) {
		sinks.Close()
		return nil, err
	}

	if runDir != "" {
		s, err := result.CreateCSV(filepath.Join(runDir, result.ResultsFile), header)
		if err != nil {
			return fail(fmt.Errorf("opening run results: %w", err))
		}
		sinks = append(sinks, s)
	}

	if path := cfg.Output; path != "" || runDir == "" {
		var s result.Sink
		var err error
		toStdout := path == "" || path == "-"
		switch {
		case toStdout && cfg.Format == config.FormatJSONL:
			s = result.NewJSONLSink(cmd.OutOrStdout(), header)
		case toStdout:
			s, err = result.NewCSVSink(cmd.OutOrStdout(), header)
		case cfg.Format == config.FormatJSONL:
			s, err = result.CreateJSONL(path, header)
		default:
			s, err = result.CreateCSV(path, header)
		}
		if err != nil {
			return fail(fmt.Errorf("opening output: %w", err))
		}
		sinks = append(sinks, s)
	}

	if cfg.SQLite != "" {
		db, err := result.OpenSQLite(cfg.SQLite, header)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, db)
	}
	return sinks, nil
}

func quoteArgv(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$`") {
			parts[i] = strconv.Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
