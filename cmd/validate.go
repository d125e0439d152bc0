package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/signalnine/sweep/internal/config"
	"github.com/signalnine/sweep/internal/runner"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [flags] [-- command [args...]]",
		Short: "Check the configuration and print every command without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			src, closer, err := openInput(cmd, cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := runner.Check(tmpl, reg, src.Header()); err != nil {
				return config.Invalid(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "columns: %s\n", strings.Join(runner.OutputHeader(src.Header(), reg), ","))
			for index := 1; ; index++ {
				row, err := src.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return config.Invalid(fmt.Errorf("input row %d: %w", index, err))
				}
				argv, err := tmpl.Materialize(row)
				if err != nil {
					return config.Invalid(fmt.Errorf("row %d: %w", index, err))
				}
				fmt.Fprintf(out, "%d: %s\n", index, quoteArgv(argv))
			}
			return nil
		},
	}
	addSweepFlags(cmd)
	return cmd
}
