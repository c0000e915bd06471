package checkpoint_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/checkpoint"
	"reelsmith/internal/services"
)

func TestLedgerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mgr := checkpoint.NewManager(dir)

	ledger := checkpoint.NewLedger()
	ledger.CompleteStep("script", "v2.md")
	ledger.CompleteStep("tts", "audio.bin")

	if err := mgr.Save(ledger); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.IsStepComplete("script") {
		t.Fatal("script should be complete after reload")
	}
	if data, ok := loaded.StepData("tts"); !ok || data != "audio.bin" {
		t.Fatalf("tts payload = %q, %v", data, ok)
	}
	if loaded.IsStepComplete("video") {
		t.Fatal("video was never completed")
	}
	if got := loaded.CompletedSteps(); len(got) != 2 || got[0] != "script" || got[1] != "tts" {
		t.Fatalf("unexpected completed steps %v", got)
	}
}

func TestLoadWithoutSaveReturnsEmptyLedger(t *testing.T) {
	mgr := checkpoint.NewManager(t.TempDir())
	ledger, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ledger.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d steps", ledger.Len())
	}
	if mgr.Has() {
		t.Fatal("Has should be false before any save")
	}
}

func TestSaveNilLedgerFails(t *testing.T) {
	mgr := checkpoint.NewManager(t.TempDir())
	err := mgr.Save(nil)
	if !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestSaveLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	mgr := checkpoint.NewManager(dir)
	ledger := checkpoint.NewLedger()
	ledger.CompleteStep("script", "a")
	if err := mgr.Save(ledger); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	ledger.CompleteStep("tts", "b")
	if err := mgr.Save(ledger); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the ledger file, got %d entries", len(entries))
	}
}

func TestSaveOverwritesPreviousLedgerAtomically(t *testing.T) {
	dir := t.TempDir()
	mgr := checkpoint.NewManager(dir)

	first := checkpoint.NewLedger()
	first.CompleteStep("script", "v1.md")
	if err := mgr.Save(first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := checkpoint.NewLedger()
	second.CompleteStep("script", "v2.md")
	second.CompleteStep("tts", "audio.bin")
	if err := mgr.Save(second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := mgr.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data, _ := loaded.StepData("script"); data != "v2.md" {
		t.Fatalf("expected latest payload, got %q", data)
	}
}

func TestDeleteRemovesLedgerAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	mgr := checkpoint.NewManager(dir)
	ledger := checkpoint.NewLedger()
	ledger.CompleteStep("export", "reel.mp4")
	if err := mgr.Save(ledger); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mgr.Has() {
		t.Fatal("Has should be true after save")
	}
	if err := mgr.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mgr.Has() {
		t.Fatal("Has should be false after delete")
	}
	if err := mgr.Delete(); err != nil {
		t.Fatalf("second Delete should succeed: %v", err)
	}
}

func TestLoadRejectsCorruptLedger(t *testing.T) {
	dir := t.TempDir()
	mgr := checkpoint.NewManager(dir)
	if err := os.WriteFile(filepath.Join(dir, "checkpoint.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, err := mgr.Load(); err == nil {
		t.Fatal("expected parse error for corrupt ledger")
	}
}
