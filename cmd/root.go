package cmd

import (
	"errors"

	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrInterrupted is returned when a signal stopped the sweep early.
var ErrInterrupted = errors.New("interrupted")

var (
	cfgFile       string
	flagVerbose   bool
	flagLogFormat string
	logger        = zap.NewNop()
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "sweep",
		Short:        "Run a command over a parameter grid and keep the best of N trials",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logging.Options{Verbose: flagVerbose, Format: flagLogFormat})
			if err != nil {
				return config.Invalid(err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "log encoding (console, json)")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return config.Invalid(err)
	})
	root.AddCommand(newRunCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInterrupted):
		return 130
	case config.IsConfigError(err):
		return 2
	default:
		return 1
	}
}
