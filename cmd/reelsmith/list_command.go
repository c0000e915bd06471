package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/catalog"
	"reelsmith/internal/config"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter catalog.Status
			if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
				parsed, ok := catalog.ParseStatus(trimmed)
				if !ok {
					return fmt.Errorf("unknown status %q", trimmed)
				}
				filter = parsed
			}
			return ctx.withCatalog(func(_ *config.Config, store *catalog.Store) error {
				items, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					if filter != "" && item.Status != filter {
						continue
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.Slug,
						item.Title,
						string(item.Status),
						formatProgress(item),
						item.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}
				out := renderTable([]string{"ID", "Slug", "Title", "Status", "Progress", "Updated"}, rows, 0)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show titles with this status (pending, running, completed, failed)")

	return cmd
}

func formatProgress(item *catalog.Item) string {
	if item.ProgressStage == "" {
		return "-"
	}
	return fmt.Sprintf("%s %d%%", catalog.StageLabel(item.ProgressStage), item.ProgressPercent)
}
