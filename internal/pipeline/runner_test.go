package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"reelsmith/internal/catalog"
	"reelsmith/internal/checkpoint"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/stage"
	"reelsmith/internal/stages"
	"reelsmith/internal/testsupport"
	"reelsmith/internal/title"
)

type execLog struct {
	mu    sync.Mutex
	steps []string
}

func (l *execLog) record(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, id)
}

func (l *execLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.steps...)
}

type fakeHandler struct {
	id  string
	log *execLog
	fn  func(ctx context.Context) (string, error)
}

func (f *fakeHandler) ID() string { return f.id }

func (f *fakeHandler) Run(ctx context.Context, _ *stages.Env, sink stage.Sink) (string, error) {
	f.log.record(f.id)
	if sink != nil {
		sink(stage.Progress{PercentComplete: 50, Message: "working"})
	}
	if f.fn != nil {
		return f.fn(ctx)
	}
	return f.id + "-artifact", nil
}

func testConfig(t *testing.T, stepIDs ...string) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, testsupport.WithSteps(stepIDs...))
}

func testBrief() *title.Brief {
	return &title.Brief{
		Slug:    "harbor-fog",
		Title:   "Harbor Fog",
		Premise: "A foggy morning at the harbor.",
	}
}

func handlersFor(log *execLog, fns map[string]func(ctx context.Context) (string, error), ids ...string) map[string]stages.Handler {
	handlers := make(map[string]stages.Handler, len(ids))
	for _, id := range ids {
		handlers[id] = &fakeHandler{id: id, log: log, fn: fns[id]}
	}
	return handlers
}

func TestRunTitleExecutesStepsInOrder(t *testing.T) {
	cfg := testConfig(t, "one", "two", "three")
	log := &execLog{}
	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(log, nil, "one", "two", "three")))

	report, err := runner.RunTitle(context.Background(), nil, testBrief())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !report.Succeeded() {
		t.Fatalf("expected success, got %+v", report)
	}

	got := log.all()
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("expected %v executions, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
	for _, step := range report.Steps {
		if step.State != StepCompleted {
			t.Fatalf("expected all steps completed, got %+v", report.Steps)
		}
	}

	manager := checkpoint.NewManager(filepath.Join(cfg.Paths.WorkspaceDir, "harbor-fog"))
	if manager.Has() {
		t.Fatal("expected checkpoint removed after full success")
	}
}

func TestRunTitleResumesFromCheckpoint(t *testing.T) {
	cfg := testConfig(t, "one", "two", "three", "four", "five")
	failure := services.Wrap(services.ErrExternalTool, "four", "work", "tool broke", nil)

	firstLog := &execLog{}
	fns := map[string]func(ctx context.Context) (string, error){
		"four": func(context.Context) (string, error) { return "", failure },
	}
	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(firstLog, fns, "one", "two", "three", "four", "five")))

	if _, err := runner.RunTitle(context.Background(), nil, testBrief()); err == nil {
		t.Fatal("expected first run to fail")
	}

	manager := checkpoint.NewManager(filepath.Join(cfg.Paths.WorkspaceDir, "harbor-fog"))
	ledger, err := manager.Load()
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if ledger.Len() != 3 {
		t.Fatalf("expected 3 completed steps in checkpoint, got %d", ledger.Len())
	}

	secondLog := &execLog{}
	runner = NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(secondLog, nil, "one", "two", "three", "four", "five")))

	report, err := runner.RunTitle(context.Background(), nil, testBrief())
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}

	got := secondLog.all()
	if len(got) != 2 || got[0] != "four" || got[1] != "five" {
		t.Fatalf("expected exactly [four five] on resume, got %v", got)
	}
	for _, step := range report.Steps {
		switch step.ID {
		case "one", "two", "three":
			if step.State != StepSkipped {
				t.Fatalf("expected %s skipped, got %s", step.ID, step.State)
			}
			if step.Payload != step.ID+"-artifact" {
				t.Fatalf("expected stored payload for %s, got %q", step.ID, step.Payload)
			}
		default:
			if step.State != StepCompleted {
				t.Fatalf("expected %s completed, got %s", step.ID, step.State)
			}
		}
	}
	if manager.Has() {
		t.Fatal("expected checkpoint removed after resumed success")
	}
}

func TestRunTitleRetriesTransientFailures(t *testing.T) {
	cfg := testConfig(t, "flaky")
	cfg.Processing.MaxRetries = 3

	calls := 0
	fns := map[string]func(ctx context.Context) (string, error){
		"flaky": func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", services.Wrap(services.ErrTransient, "flaky", "work", "blip", nil)
			}
			return "done", nil
		},
	}
	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(&execLog{}, fns, "flaky")))

	report, err := runner.RunTitle(context.Background(), nil, testBrief())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if report.Steps[0].State != StepCompleted {
		t.Fatalf("expected completion, got %+v", report.Steps[0])
	}
}

func TestRunTitleNonRetriableFailsWithoutRetry(t *testing.T) {
	cfg := testConfig(t, "bad", "never")
	cfg.Processing.MaxRetries = 3

	calls := 0
	fns := map[string]func(ctx context.Context) (string, error){
		"bad": func(context.Context) (string, error) {
			calls++
			return "", services.Wrap(services.ErrValidation, "bad", "work", "rejected", nil)
		},
	}
	log := &execLog{}
	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(log, fns, "bad", "never")))

	_, err := runner.RunTitle(context.Background(), nil, testBrief())
	if err == nil {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 attempt, got %d", calls)
	}
	for _, executed := range log.all() {
		if executed == "never" {
			t.Fatal("later step must not run after a halting failure")
		}
	}
}

func TestRunTitleContinueOnError(t *testing.T) {
	cfg := testConfig(t, "one", "broken", "three")
	cfg.Processing.ContinueOnError = true

	fns := map[string]func(ctx context.Context) (string, error){
		"broken": func(context.Context) (string, error) {
			return "", services.Wrap(services.ErrExternalTool, "broken", "work", "tool broke", nil)
		},
	}
	log := &execLog{}
	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(log, fns, "one", "broken", "three")))

	report, err := runner.RunTitle(context.Background(), nil, testBrief())
	if err == nil {
		t.Fatal("expected run error to surface")
	}
	got := log.all()
	if len(got) != 3 {
		t.Fatalf("expected all steps attempted, got %v", got)
	}
	if report.Succeeded() {
		t.Fatal("run with failures must not report success")
	}
}

func TestRunTitleCancellation(t *testing.T) {
	cfg := testConfig(t, "one", "two")

	ctx, cancel := context.WithCancel(context.Background())
	fns := map[string]func(ctx context.Context) (string, error){
		"one": func(c context.Context) (string, error) {
			cancel()
			return "", c.Err()
		},
	}
	log := &execLog{}
	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(log, fns, "one", "two")))

	report, err := runner.RunTitle(ctx, nil, testBrief())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if report.Steps[0].State != StepCancelled {
		t.Fatalf("expected cancelled state, got %s", report.Steps[0].State)
	}
	got := log.all()
	if len(got) != 1 {
		t.Fatalf("expected no further steps after cancellation, got %v", got)
	}
}

func TestRunTitleWorkspaceLockConflict(t *testing.T) {
	cfg := testConfig(t, "one")
	workspace := filepath.Join(cfg.Paths.WorkspaceDir, "harbor-fog")
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	other := flock.New(filepath.Join(workspace, ".lock"))
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock failed: locked=%v err=%v", locked, err)
	}
	defer other.Unlock()

	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(&execLog{}, nil, "one")))

	_, err = runner.RunTitle(context.Background(), nil, testBrief())
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRunTitlePersistsCatalogProgress(t *testing.T) {
	cfg := testConfig(t, "one", "two")
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewTitle(t, store, "harbor-fog", "Harbor Fog")

	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(&execLog{}, nil, "one", "two")),
		WithCatalog(store))

	if _, err := runner.RunTitle(context.Background(), item, testBrief()); err != nil {
		t.Fatalf("run: %v", err)
	}

	reloaded, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	if reloaded.Status != catalog.StatusCompleted {
		t.Fatalf("expected completed status, got %s", reloaded.Status)
	}
	if reloaded.ProgressPercent != 100 {
		t.Fatalf("expected 100%%, got %d", reloaded.ProgressPercent)
	}
	if reloaded.FinalFile == "" {
		t.Fatal("expected final file recorded")
	}
}

func TestRunTitleMetricsIsolatedAcrossConcurrentRuns(t *testing.T) {
	cfg := testConfig(t, "one")

	fns := map[string]func(ctx context.Context) (string, error){
		"one": func(context.Context) (string, error) {
			time.Sleep(150 * time.Millisecond)
			return "clip", nil
		},
	}
	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(&execLog{}, fns, "one")))

	briefs := []*title.Brief{
		{Slug: "harbor-fog", Title: "Harbor Fog", Premise: "A foggy morning at the harbor."},
		{Slug: "night-market", Title: "Night Market", Premise: "Lantern stalls after dark."},
	}

	reports := make([]*Report, len(briefs))
	errs := make([]error, len(briefs))
	var wg sync.WaitGroup
	for i, brief := range briefs {
		wg.Add(1)
		go func(i int, brief *title.Brief) {
			defer wg.Done()
			reports[i], errs[i] = runner.RunTitle(context.Background(), nil, brief)
		}(i, brief)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("run %s: %v", briefs[i].Slug, err)
		}
	}
	if reports[0].Metrics == reports[1].Metrics {
		t.Fatal("concurrent runs must not share a metrics recorder")
	}
	for i, report := range reports {
		got := report.Metrics.Timer("step.one")
		if got < 150*time.Millisecond {
			t.Fatalf("%s: step timer undercounted: %v", briefs[i].Slug, got)
		}
		if got >= 280*time.Millisecond {
			t.Fatalf("%s: step timer pooled across runs: %v", briefs[i].Slug, got)
		}
	}
}

func TestRunTitleRecordsStepCounts(t *testing.T) {
	cfg := testConfig(t, "one", "two")

	first, err := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(&execLog{}, nil, "one", "two"))).
		RunTitle(context.Background(), nil, testBrief())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v, ok := first.Metrics.Value("steps_completed"); !ok || v != 2 {
		t.Fatalf("expected steps_completed=2, got %v (present=%v)", v, ok)
	}
	if v, ok := first.Metrics.Value("steps_skipped"); !ok || v != 0 {
		t.Fatalf("expected steps_skipped=0, got %v (present=%v)", v, ok)
	}
	if first.Metrics.Timer("run") <= 0 {
		t.Fatal("expected run timer recorded")
	}
}

type capturedRecord struct {
	message string
	attrs   map[string]string
}

type captureHandler struct {
	mu      *sync.Mutex
	records *[]capturedRecord
	attrs   []slog.Attr
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{mu: &sync.Mutex{}, records: &[]capturedRecord{}}
}

func (h *captureHandler) all() []capturedRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]capturedRecord{}, *h.records...)
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error {
	fields := make(map[string]string)
	for _, attr := range h.attrs {
		fields[attr.Key] = attr.Value.String()
	}
	rec.Attrs(func(attr slog.Attr) bool {
		fields[attr.Key] = attr.Value.String()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, capturedRecord{message: rec.Message, attrs: fields})
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func TestRunTitleStepLogsCarryRunFields(t *testing.T) {
	cfg := testConfig(t, "one")
	handler := newCaptureHandler()

	runner := NewRunner(cfg, slog.New(handler),
		WithHandlers(handlersFor(&execLog{}, nil, "one")))

	report, err := runner.RunTitle(context.Background(), nil, testBrief())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var started *capturedRecord
	for _, rec := range handler.all() {
		if rec.message == "step started" {
			r := rec
			started = &r
			break
		}
	}
	if started == nil {
		t.Fatal("expected a step started record")
	}
	if started.attrs[logging.FieldComponent] != "pipeline" {
		t.Fatalf("expected component=pipeline, got %q", started.attrs[logging.FieldComponent])
	}
	if started.attrs[logging.FieldStage] != "one" {
		t.Fatalf("expected stage=one, got %q", started.attrs[logging.FieldStage])
	}
	if started.attrs[logging.FieldRunID] != report.RunID {
		t.Fatalf("expected run_id=%q, got %q", report.RunID, started.attrs[logging.FieldRunID])
	}
	if started.attrs["slug"] != "harbor-fog" {
		t.Fatalf("expected slug attr, got %q", started.attrs["slug"])
	}
}

func TestRunTitleStepTimeoutIsRetriable(t *testing.T) {
	cfg := testConfig(t, "slow")
	cfg.Steps["slow"].TimeoutSeconds = 1

	fns := map[string]func(ctx context.Context) (string, error){
		"slow": func(c context.Context) (string, error) {
			<-c.Done()
			return "", services.Wrap(services.ErrTimeout, "slow", "work", "deadline exceeded", c.Err())
		},
	}
	runner := NewRunner(cfg, logging.NewNop(),
		WithHandlers(handlersFor(&execLog{}, fns, "slow")))

	_, err := runner.RunTitle(context.Background(), nil, testBrief())
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
}
