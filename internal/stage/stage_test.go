package stage_test

import (
	"context"
	"errors"
	"testing"

	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

type countingStage struct {
	name     string
	valid    bool
	core     func(ctx context.Context, input string, report stage.Sink) (string, error)
	executed int
}

func (s *countingStage) Name() string { return s.name }

func (s *countingStage) ValidateInput(input string) bool { return s.valid }

func (s *countingStage) ExecuteCore(ctx context.Context, input string, report stage.Sink) (string, error) {
	s.executed++
	if s.core != nil {
		return s.core(ctx, input, report)
	}
	return input + "-done", nil
}

func TestRunEmitsBoundaryEventsOnSuccess(t *testing.T) {
	stg := &countingStage{name: "script", valid: true, core: func(ctx context.Context, input string, report stage.Sink) (string, error) {
		report(stage.Progress{PercentComplete: 30, Message: "drafting"})
		report(stage.Progress{PercentComplete: 70, Message: "polishing"})
		return "script.md", nil
	}}

	var events []stage.Progress
	out, err := stage.Run(context.Background(), stg, "brief", func(p stage.Progress) {
		events = append(events, p)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "script.md" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].PercentComplete != 0 {
		t.Fatalf("first event should be 0%%, got %d", events[0].PercentComplete)
	}
	if events[len(events)-1].PercentComplete != 100 {
		t.Fatalf("last event should be 100%%, got %d", events[len(events)-1].PercentComplete)
	}
	last := -1
	for _, event := range events {
		if event.PercentComplete < last {
			t.Fatalf("progress regressed: %v", events)
		}
		last = event.PercentComplete
		if event.StageName != "script" {
			t.Fatalf("event missing stage name: %+v", event)
		}
		if event.Timestamp.IsZero() {
			t.Fatalf("event missing timestamp: %+v", event)
		}
	}
}

func TestRunFailsFastOnInvalidInput(t *testing.T) {
	stg := &countingStage{name: "tts", valid: false}
	var events []stage.Progress
	_, err := stage.Run(context.Background(), stg, "input", func(p stage.Progress) {
		events = append(events, p)
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if stg.executed != 0 {
		t.Fatal("core must not run for invalid input")
	}
	if len(events) != 0 {
		t.Fatalf("no events should be emitted before validation passes, got %v", events)
	}
}

func TestRunDoesNotEmitCompletionOnFailure(t *testing.T) {
	coreErr := services.Wrap(services.ErrTransient, "tts", "synthesize", "503", nil)
	stg := &countingStage{name: "tts", valid: true, core: func(ctx context.Context, input string, report stage.Sink) (string, error) {
		report(stage.Progress{PercentComplete: 40})
		return "", coreErr
	}}

	var events []stage.Progress
	_, err := stage.Run(context.Background(), stg, "text", func(p stage.Progress) {
		events = append(events, p)
	})
	if !errors.Is(err, coreErr) {
		t.Fatalf("expected core error to propagate, got %v", err)
	}
	for _, event := range events {
		if event.PercentComplete == 100 {
			t.Fatalf("100%% must never be emitted on failure: %v", events)
		}
	}
}

func TestRunClampsRegressingProgress(t *testing.T) {
	stg := &countingStage{name: "video", valid: true, core: func(ctx context.Context, input string, report stage.Sink) (string, error) {
		report(stage.Progress{PercentComplete: 80})
		report(stage.Progress{PercentComplete: 20})
		report(stage.Progress{PercentComplete: 150})
		return "out", nil
	}}
	var percents []int
	_, err := stage.Run(context.Background(), stg, "in", func(p stage.Progress) {
		percents = append(percents, p.PercentComplete)
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	last := -1
	for _, p := range percents {
		if p < last {
			t.Fatalf("non-monotonic sequence %v", percents)
		}
		last = p
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stg := &countingStage{name: "images", valid: true}
	_, err := stage.Run(ctx, stg, "in", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stg.executed != 0 {
		t.Fatal("core must not run after cancellation")
	}
}

func TestRunNilSinkIsSafe(t *testing.T) {
	stg := &countingStage{name: "export", valid: true}
	if _, err := stage.Run(context.Background(), stg, "in", nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}
