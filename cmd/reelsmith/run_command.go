package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"reelsmith/internal/catalog"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/pipeline"
	"reelsmith/internal/preflight"
	"reelsmith/internal/stage"
	"reelsmith/internal/title"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var briefFlag string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run [slug]",
		Short: "Produce one title, or every pending title when no slug is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *catalog.Store) error {
				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if !skipPreflight {
					if err := runPreflight(runCtx, cmd, cfg); err != nil {
						return err
					}
				}

				handle, err := logging.New(logging.Options{
					Level:       cfg.Logging.Level,
					Format:      cfg.Logging.Format,
					OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "reelsmith.log")},
				})
				if err != nil {
					return err
				}
				defer handle.Close()

				sink, finish := progressSink(cmd)
				defer finish()

				runner := pipeline.NewRunner(cfg, handle.Logger,
					pipeline.WithCatalog(store),
					pipeline.WithNotifier(notifications.NewService(cfg)),
					pipeline.WithProgressSink(sink),
				)

				switch {
				case briefFlag != "":
					return runBrief(runCtx, cmd, runner, store, briefFlag)
				case len(args) == 1:
					item, err := lookupItem(runCtx, store, args[0])
					if err != nil {
						return err
					}
					return runOne(runCtx, cmd, runner, item)
				default:
					return runBatch(runCtx, cmd, runner)
				}
			})
		},
	}

	cmd.Flags().StringVar(&briefFlag, "brief", "", "Produce a brief file directly, registering it in the catalog first")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before producing")

	return cmd
}

func runBrief(ctx context.Context, cmd *cobra.Command, runner *pipeline.Runner, store *catalog.Store, briefPath string) error {
	absPath, err := filepath.Abs(briefPath)
	if err != nil {
		return fmt.Errorf("resolve brief path: %w", err)
	}
	brief, err := title.LoadBrief(absPath)
	if err != nil {
		return err
	}
	item, err := store.GetBySlug(ctx, brief.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		item, err = store.Add(ctx, brief.Slug, brief.Title, absPath)
	}
	if err != nil {
		return err
	}
	report, err := runner.RunTitle(ctx, item, brief)
	if report == nil {
		return err
	}
	return printReport(cmd, report)
}

func runOne(ctx context.Context, cmd *cobra.Command, runner *pipeline.Runner, item *catalog.Item) error {
	brief, err := title.LoadBrief(item.BriefPath)
	if err != nil {
		return err
	}
	report, err := runner.RunTitle(ctx, item, brief)
	if report == nil {
		return err
	}
	return printReport(cmd, report)
}

func runBatch(ctx context.Context, cmd *cobra.Command, runner *pipeline.Runner) error {
	batch, err := runner.RunBatch(ctx)
	if err != nil {
		return err
	}
	if batch.Processed == 0 && batch.Failed == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to produce")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Batch finished in %s: %d completed, %d failed\n",
		batch.Duration.Round(time.Second), batch.Processed, batch.Failed)
	for _, report := range batch.Reports {
		if report.Succeeded() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s -> %s\n", report.Slug, report.FinalFile)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s failed: %v\n", report.Slug, report.Err)
		}
	}
	if batch.Failed > 0 {
		return fmt.Errorf("%d title(s) failed", batch.Failed)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *pipeline.Report) error {
	for _, step := range report.Steps {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-10s %s (%s)\n", step.ID, step.State, step.Duration.Round(time.Millisecond))
	}
	if !report.Succeeded() {
		return report.Err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Produced %s\n", report.FinalFile)
	return nil
}

// runPreflight fails fast when the environment cannot support a run. API
// health checks only run for the integrations the config enables.
func runPreflight(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	failed := preflight.Failed(preflight.RunAll(ctx, cfg))
	for _, status := range preflight.CheckSystemDeps(cfg) {
		if !status.Available && !status.Optional {
			failed = append(failed, preflight.Result{Name: status.Name, Detail: status.Detail})
		}
	}
	if len(failed) == 0 {
		return nil
	}
	for _, res := range failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", res.Name, res.Detail)
	}
	return fmt.Errorf("%d preflight check(s) failed", len(failed))
}

// progressSink renders a terminal progress bar for interactive runs. Output
// captured by tests or pipes gets a nil sink so logs stay clean.
func progressSink(cmd *cobra.Command) (stage.Sink, func()) {
	out := cmd.OutOrStdout()
	file, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(file.Fd()) {
		return nil, func() {}
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(file),
		progressbar.OptionSetDescription("Starting"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
	sink := func(p stage.Progress) {
		label := catalog.StageLabel(p.StageName)
		if p.Message != "" {
			label = fmt.Sprintf("%s: %s", label, p.Message)
		}
		bar.Describe(label)
		_ = bar.Set(p.PercentComplete)
	}
	return sink, func() { _ = bar.Finish() }
}
