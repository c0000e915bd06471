package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"reelsmith/internal/catalog"
	"reelsmith/internal/config"
	"reelsmith/internal/title"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <brief.yaml>",
		Short: "Register a title brief in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			briefPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve brief path: %w", err)
			}
			brief, err := title.LoadBrief(briefPath)
			if err != nil {
				return err
			}
			return ctx.withCatalog(func(_ *config.Config, store *catalog.Store) error {
				item, err := store.Add(cmd.Context(), brief.Slug, brief.Title, briefPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q as #%d (slug %s)\n", item.Title, item.ID, item.Slug)
				return nil
			})
		},
	}
}
