package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/report"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagReportFormat string
	flagMaxWidth     int
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-dir | results.csv]",
		Short: "Render stored results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = args[0]
			} else {
				cfg, err := config.Load(cfgFile, cmd.Flags().Changed("config"))
				if err != nil {
					return err
				}
				if cfg.Results.Dir == "" {
					return config.Invalid(fmt.Errorf("no path given and results.dir is not configured"))
				}
				path = filepath.Join(cfg.Results.Dir, "latest")
			}
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", path, err)
			}

			opts := report.Options{MaxWidth: flagMaxWidth}
			if f, ok := cmd.OutOrStdout().(*os.File); ok {
				opts.Styled = term.IsTerminal(int(f.Fd()))
			}
			return report.Generate(resolved, flagReportFormat, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&flagReportFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().IntVar(&flagMaxWidth, "max-width", 32, "truncate table cells to this width")
	return cmd
}
