package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/catalog"
	"reelsmith/internal/config"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <slug|id>",
		Short: "Display one catalog title in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *catalog.Store) error {
				item, err := lookupItem(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}

				rows := [][]string{
					{"ID", strconv.FormatInt(item.ID, 10)},
					{"Slug", item.Slug},
					{"Title", item.Title},
					{"Brief", item.BriefPath},
					{"Status", string(item.Status)},
					{"Progress", formatProgress(item)},
					{"Created", item.CreatedAt.Local().Format("2006-01-02 15:04:05")},
					{"Updated", item.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
				}
				if item.ProgressMessage != "" {
					rows = append(rows, []string{"Message", item.ProgressMessage})
				}
				if item.FinalFile != "" {
					rows = append(rows, []string{"Final file", item.FinalFile})
				}
				if item.ErrorMessage != "" {
					rows = append(rows, []string{"Error", item.ErrorMessage})
				}

				manager := checkpointManager(cfg, item.Slug)
				rows = append(rows, []string{"Checkpoint", yesNo(manager.Has())})
				if manager.Has() {
					ledger, err := manager.Load()
					if err != nil {
						return err
					}
					for _, step := range ledger.CompletedSteps() {
						payload, _ := ledger.StepData(step)
						rows = append(rows, []string{"  " + step, payload})
					}
				}

				out := renderTable([]string{"Field", "Value"}, rows)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

// lookupItem resolves a catalog item by slug, falling back to a numeric ID.
func lookupItem(ctx context.Context, store *catalog.Store, key string) (*catalog.Item, error) {
	item, err := store.GetBySlug(ctx, key)
	if err == nil {
		return item, nil
	}
	if id, convErr := strconv.ParseInt(key, 10, 64); convErr == nil {
		if item, idErr := store.GetByID(ctx, id); idErr == nil {
			return item, nil
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no catalog title matches %q", key)
	}
	return nil, err
}
