package services_test

import (
	"errors"
	"strings"
	"testing"

	"reelsmith/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "assemble", "mux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"assemble", "mux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransientMarker(t *testing.T) {
	err := services.Wrap(nil, "tts", "synthesize", "no marker", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsRetriableClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retriable bool
	}{
		{"transient", services.Wrap(services.ErrTransient, "script", "generate", "503", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "tts", "synthesize", "deadline", nil), true},
		{"validation", services.Wrap(services.ErrValidation, "script", "prepare", "empty brief", nil), false},
		{"invalid argument", services.Wrap(services.ErrInvalidArgument, "checkpoint", "save", "nil ledger", nil), false},
		{"external tool", services.Wrap(services.ErrExternalTool, "assemble", "mux", "exit 1", nil), false},
		{"unclassified", errors.New("mystery"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := services.IsRetriable(tc.err); got != tc.retriable {
			t.Fatalf("%s: IsRetriable=%v, want %v", tc.name, got, tc.retriable)
		}
	}
}

func TestKindLabels(t *testing.T) {
	if kind := services.Kind(services.Wrap(services.ErrTransient, "", "", "", nil)); kind != "transient" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind := services.Kind(errors.New("odd")); kind != "unclassified" {
		t.Fatalf("unexpected kind %q", kind)
	}
	if kind := services.Kind(nil); kind != "" {
		t.Fatalf("expected empty kind for nil, got %q", kind)
	}
}

func TestDetailsStripsMarkerPrefix(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "script", "prepare", "brief missing premise", nil)
	details := services.Details(err)
	if strings.HasPrefix(details.Message, "validation error") {
		t.Fatalf("expected marker prefix stripped, got %q", details.Message)
	}
	if !strings.Contains(details.Message, "brief missing premise") {
		t.Fatalf("expected message retained, got %q", details.Message)
	}
}
