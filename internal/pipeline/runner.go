package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"reelsmith/internal/catalog"
	"reelsmith/internal/checkpoint"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/retry"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/stages"
	"reelsmith/internal/title"
)

// RunTitle produces one title end to end, resuming from its checkpoint when
// one exists. The catalog item may be nil when running outside the catalog
// (for example `reelsmith run --brief`).
func (r *Runner) RunTitle(ctx context.Context, item *catalog.Item, brief *title.Brief) (*Report, error) {
	if brief == nil {
		return nil, services.Wrap(services.ErrInvalidArgument, "", "run title", "brief is required", nil)
	}
	if err := brief.Validate(); err != nil {
		return nil, err
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "run title", "prepare directories", err)
	}

	slug := brief.Slug
	workspaceDir := filepath.Join(r.cfg.Paths.WorkspaceDir, slug)
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "run title", "create workspace", err)
	}

	lock := flock.New(filepath.Join(workspaceDir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConflict, "", "run title", "acquire workspace lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConflict, "", "run title",
			fmt.Sprintf("another run is already producing %q", slug), nil)
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithTitleID(ctx, itemID(item))

	logger := logging.WithContext(ctx, r.logger).With(logging.String("slug", slug))

	metrics := logging.NewMetrics()
	report := &Report{Slug: slug, RunID: runID, Metrics: metrics}
	manager := checkpoint.NewManager(workspaceDir)
	ledger, err := manager.Load()
	if err != nil {
		return nil, err
	}

	env := &stages.Env{
		Config:       r.cfg,
		Brief:        brief,
		Slug:         slug,
		WorkspaceDir: workspaceDir,
		OutputDir:    r.cfg.Paths.OutputDir,
		LLM:          r.llm,
		TTS:          r.tts,
		Synth:        r.synth,
		FFmpeg:       r.ffmpeg,
		Logger:       logger,
	}

	stepIDs := r.cfg.EnabledSteps()
	if len(stepIDs) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "", "run title", "no steps enabled", nil)
	}

	resumed := ledger.Len() > 0
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.Int("steps", len(stepIDs)),
		logging.Bool("resumed", resumed))
	_ = r.notifier.NotifyRunStarted(ctx, brief.Title)

	metrics.StartTimer("run")

	var runErr error
	for index, stepID := range stepIDs {
		result := r.runStep(ctx, env, manager, ledger, item, metrics, stepID, index, len(stepIDs))
		report.Steps = append(report.Steps, result)

		switch result.State {
		case StepCancelled:
			runErr = result.Err
		case StepFailed:
			runErr = result.Err
			_ = r.notifier.NotifyStepFailed(ctx, brief.Title, stepID, result.Err)
			if r.cfg.Processing != nil && r.cfg.Processing.ContinueOnError {
				logger.Warn("continuing after step failure",
					logging.String(logging.FieldStage, stepID),
					logging.Error(result.Err))
				continue
			}
		default:
			continue
		}
		break
	}

	report.Err = runErr
	if report.Succeeded() {
		report.FinalFile = r.finalFile(report, env)
		if err := manager.Delete(); err != nil {
			logger.Warn("failed to remove checkpoint", logging.Error(err))
		}
		r.persistCompletion(ctx, item, report.FinalFile)
		logger.Info("run completed",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.String("final_file", report.FinalFile))
		_ = r.notifier.NotifyTitleCompleted(ctx, brief.Title, report.FinalFile)
	} else if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Info("run cancelled", logging.String(logging.FieldEventType, "run_cancelled"))
		} else {
			r.persistFailure(ctx, item, runErr)
			logger.Error("run failed",
				logging.String(logging.FieldEventType, "run_failed"),
				logging.String(logging.FieldErrorKind, services.Kind(runErr)),
				logging.Error(runErr))
		}
	}

	metrics.StopTimer("run")
	completed, skipped := 0, 0
	for _, step := range report.Steps {
		switch step.State {
		case StepCompleted:
			completed++
		case StepSkipped:
			skipped++
		}
	}
	metrics.Record("steps_completed", float64(completed))
	metrics.Record("steps_skipped", float64(skipped))
	metrics.LogSummary(logger)
	return report, runErr
}

func (r *Runner) runStep(
	ctx context.Context,
	env *stages.Env,
	manager *checkpoint.Manager,
	ledger *checkpoint.Ledger,
	item *catalog.Item,
	metrics *logging.Metrics,
	stepID string,
	index, total int,
) StepResult {
	result := StepResult{ID: stepID, State: StepPending}

	stepCtx := services.WithStage(ctx, stepID)
	logger := logging.WithContext(stepCtx, r.logger).With(logging.String("slug", env.Slug))

	if ledger.IsStepComplete(stepID) {
		payload, _ := ledger.StepData(stepID)
		result.State = StepSkipped
		result.Payload = payload
		logger.Info("step skipped",
			logging.String(logging.FieldEventType, "step_skipped"))
		r.persistProgress(ctx, item, stepID, (index+1)*100/total, "already complete")
		return result
	}

	handler, ok := r.handlers[stepID]
	if !ok {
		result.State = StepFailed
		result.Err = services.Wrap(services.ErrConfiguration, stepID, "run step",
			"no handler registered for step", nil)
		return result
	}

	stepCfg := r.stepConfig(stepID)
	if stepCfg != nil && stepCfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(stepCtx, time.Duration(stepCfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	result.State = StepRunning
	r.persistProgress(ctx, item, stepID, index*100/total, "started")
	logger.Info("step started",
		logging.String(logging.FieldEventType, "step_start"))

	sink := func(p stage.Progress) {
		overall := (index*100 + p.PercentComplete) / total
		r.persistProgress(ctx, item, stepID, overall, p.Message)
		if r.sink != nil {
			r.sink(p)
		}
	}

	started := time.Now()
	metrics.StartTimer("step." + stepID)
	var payload string
	err := retry.Do(stepCtx, logger, stepID, r.policyFor(stepCfg), func(attemptCtx context.Context) error {
		var runErr error
		payload, runErr = handler.Run(attemptCtx, env, sink)
		return runErr
	})
	result.Duration = time.Since(started)
	metrics.StopTimer("step." + stepID)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			result.State = StepCancelled
			result.Err = context.Canceled
			logger.Debug("step interrupted by shutdown")
			return result
		}
		result.State = StepFailed
		result.Err = err
		return result
	}

	ledger.CompleteStep(stepID, payload)
	if saveErr := manager.Save(ledger); saveErr != nil {
		result.State = StepFailed
		result.Err = services.Wrap(services.ErrExternalTool, stepID, "save checkpoint", "", saveErr)
		return result
	}

	result.State = StepCompleted
	result.Payload = payload
	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.Duration("duration", result.Duration))
	r.persistProgress(ctx, item, stepID, (index+1)*100/total, "completed")
	return result
}

func (r *Runner) stepConfig(stepID string) *config.Step {
	if r.cfg == nil || r.cfg.Steps == nil {
		return nil
	}
	return r.cfg.Steps[stepID]
}

func (r *Runner) policyFor(stepCfg *config.Step) retry.Policy {
	policy := retry.Policy{BackoffMultiplier: 1}
	if r.cfg != nil && r.cfg.Processing != nil {
		policy.MaxRetries = r.cfg.Processing.MaxRetries
		policy.RetryDelay = time.Duration(r.cfg.Processing.RetryDelaySeconds) * time.Second
	}
	if stepCfg != nil {
		if stepCfg.MaxRetries != nil {
			policy.MaxRetries = *stepCfg.MaxRetries
		}
		if stepCfg.RetryDelaySeconds != nil {
			policy.RetryDelay = time.Duration(*stepCfg.RetryDelaySeconds) * time.Second
		}
	}
	return policy
}

// finalFile resolves the published file location. The export step records the
// absolute destination as its payload; when export was skipped on a resumed
// run the payload comes from the ledger instead.
func (r *Runner) finalFile(report *Report, env *stages.Env) string {
	for _, step := range report.Steps {
		if step.ID == stages.StepExport && step.Payload != "" {
			return step.Payload
		}
	}
	return env.FinalPath()
}

func (r *Runner) persistProgress(ctx context.Context, item *catalog.Item, stepID string, percent int, message string) {
	if r.store == nil || item == nil {
		return
	}
	if percent > 100 {
		percent = 100
	}
	item.Status = catalog.StatusRunning
	item.ProgressStage = catalog.StageLabel(stepID)
	if percent > item.ProgressPercent {
		item.ProgressPercent = percent
	}
	item.ProgressMessage = message
	_ = r.store.Update(ctx, item)
}

func (r *Runner) persistCompletion(ctx context.Context, item *catalog.Item, finalFile string) {
	if r.store == nil || item == nil {
		return
	}
	item.Status = catalog.StatusCompleted
	item.ProgressPercent = 100
	item.ProgressMessage = "completed"
	item.ErrorMessage = ""
	item.FinalFile = finalFile
	_ = r.store.Update(ctx, item)
}

func (r *Runner) persistFailure(ctx context.Context, item *catalog.Item, err error) {
	if r.store == nil || item == nil {
		return
	}
	item.SetFailed(services.Details(err).Message)
	_ = r.store.Update(ctx, item)
}

func itemID(item *catalog.Item) int64 {
	if item == nil {
		return 0
	}
	return item.ID
}
