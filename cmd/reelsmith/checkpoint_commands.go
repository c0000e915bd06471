package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"reelsmith/internal/catalog"
	"reelsmith/internal/checkpoint"
	"reelsmith/internal/config"
)

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and manage per-title checkpoints",
	}

	checkpointCmd.AddCommand(newCheckpointShowCommand(ctx))
	checkpointCmd.AddCommand(newCheckpointClearCommand(ctx))

	return checkpointCmd
}

func newCheckpointShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug>",
		Short: "Show completed steps for a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manager := checkpointManager(cfg, args[0])
			if !manager.Has() {
				fmt.Fprintf(cmd.OutOrStdout(), "No checkpoint for %s\n", args[0])
				return nil
			}
			ledger, err := manager.Load()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, ledger.Len())
			for _, step := range ledger.CompletedSteps() {
				payload, _ := ledger.StepData(step)
				rows = append(rows, []string{step, payload})
			}
			out := renderTable([]string{"Step", "Artifact"}, rows)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newCheckpointClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <slug>",
		Short: "Remove a title's checkpoint so the next run starts from scratch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *catalog.Store) error {
				item, err := lookupItem(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				manager := checkpointManager(cfg, item.Slug)
				if !manager.Has() {
					fmt.Fprintf(cmd.OutOrStdout(), "No checkpoint for %s\n", item.Slug)
					return nil
				}
				if err := manager.Delete(); err != nil {
					return err
				}
				if item.Status == catalog.StatusFailed {
					item.Status = catalog.StatusPending
					item.ErrorMessage = ""
					if err := store.Update(cmd.Context(), item); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared checkpoint for %s\n", item.Slug)
				return nil
			})
		},
	}
}

func checkpointManager(cfg *config.Config, slug string) *checkpoint.Manager {
	return checkpoint.NewManager(filepath.Join(cfg.Paths.WorkspaceDir, slug))
}
