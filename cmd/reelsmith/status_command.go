package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, external binaries, and API health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, 8)
			failures := 0
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				state := "ok"
				if !result.Passed {
					state = "FAIL"
					failures++
				}
				rows = append(rows, []string{result.Name, state, result.Detail})
			}
			for _, status := range preflight.CheckSystemDeps(cfg) {
				state := "ok"
				detail := status.Command
				if !status.Available {
					detail = status.Detail
					if status.Optional {
						state = "missing (optional)"
					} else {
						state = "FAIL"
						failures++
					}
				}
				rows = append(rows, []string{status.Name, state, detail})
			}

			out := renderTable([]string{"Check", "State", "Detail"}, rows)
			fmt.Fprintln(cmd.OutOrStdout(), out)

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All checks passed")
			return nil
		},
	}
}
