package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [flags] [-- command [args...]]",
		Short: "List the configured metrics and command fields",
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

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Metrics:")
			for i, spec := range reg.Specs() {
				marker := ""
				if i == 0 {
					marker = ", primary"
				}
				fmt.Fprintf(out, "  - %s (%s%s): %s\n", spec.Name, spec.Type, marker, cfg.Metrics[i].Pattern)
			}
			fmt.Fprintf(out, "\nCommand: %s\n", tmpl)
			fmt.Fprintf(out, "Fields: %s\n", strings.Join(tmpl.Fields(), ", "))
			fmt.Fprintf(out, "Trials: %d (%s)\n", cfg.Trials, cfg.Objective)
			return nil
		},
	}
	addSweepFlags(cmd)
	return cmd
}
