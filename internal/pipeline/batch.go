package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"reelsmith/internal/catalog"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/title"
)

// BatchReport summarizes a catalog batch run.
type BatchReport struct {
	Processed int
	Failed    int
	Duration  time.Duration
	Reports   []*Report
}

// RunBatch produces every pending catalog title. With parallel processing
// enabled, up to Workers titles run concurrently; the per-title workspace
// lock keeps two runs from ever sharing a workspace.
func (r *Runner) RunBatch(ctx context.Context) (*BatchReport, error) {
	if r.store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "run batch", "catalog is required", nil)
	}

	items, err := r.pendingItems(ctx)
	if err != nil {
		return nil, err
	}
	report := &BatchReport{}
	if len(items) == 0 {
		return report, nil
	}

	workers := 1
	if r.cfg.Processing != nil && r.cfg.Processing.Parallel && r.cfg.Processing.Workers > 1 {
		workers = r.cfg.Processing.Workers
	}
	if workers > len(items) {
		workers = len(items)
	}

	r.logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("titles", len(items)),
		logging.Int("workers", workers))

	started := time.Now()
	queue := make(chan *catalog.Item)
	results := make(chan *Report, len(items))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				results <- r.runItem(ctx, item)
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break feed
		case queue <- item:
		}
	}
	close(queue)
	wg.Wait()
	close(results)

	for itemReport := range results {
		report.Reports = append(report.Reports, itemReport)
		if itemReport.Succeeded() {
			report.Processed++
		} else {
			report.Failed++
		}
	}
	report.Duration = time.Since(started)

	r.logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("processed", report.Processed),
		logging.Int("failed", report.Failed),
		logging.Duration("duration", report.Duration))
	_ = r.notifier.NotifyBatchCompleted(ctx, report.Processed, report.Failed, report.Duration)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) pendingItems(ctx context.Context) ([]*catalog.Item, error) {
	all, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var pending []*catalog.Item
	for _, item := range all {
		if item.Status == catalog.StatusPending || item.Status == catalog.StatusFailed {
			pending = append(pending, item)
		}
	}
	return pending, nil
}

// runItem wraps RunTitle with brief loading so a bad brief fails the item
// instead of aborting the whole batch.
func (r *Runner) runItem(ctx context.Context, item *catalog.Item) *Report {
	brief, err := title.LoadBrief(item.BriefPath)
	if err != nil {
		r.persistFailure(ctx, item, err)
		r.logger.Error("brief rejected",
			logging.String("slug", item.Slug),
			logging.Error(err))
		return &Report{Slug: item.Slug, Err: err}
	}

	report, err := r.RunTitle(ctx, item, brief)
	if err != nil && report == nil {
		if !errors.Is(err, context.Canceled) {
			r.persistFailure(ctx, item, err)
		}
		return &Report{Slug: item.Slug, Err: err}
	}
	return report
}
