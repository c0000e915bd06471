package stage_test

import (
	"errors"
	"testing"

	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

func TestRegisterAndLookup(t *testing.T) {
	r := stage.NewRegistry()
	meta := stage.Metadata{
		Name:         "Assemble",
		Description:  "Encodes and muxes the final video",
		Category:     "post",
		Dependencies: []string{"tts", "video"},
	}
	if err := r.Register("assemble", meta); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := r.Metadata("assemble")
	if !ok {
		t.Fatal("expected metadata to be present")
	}
	if got.ID != "assemble" || got.Name != "Assemble" || got.Category != "post" {
		t.Fatalf("unexpected metadata %+v", got)
	}
	if len(got.Dependencies) != 2 {
		t.Fatalf("unexpected dependencies %v", got.Dependencies)
	}
	if !r.IsRegistered("assemble") {
		t.Fatal("IsRegistered should report true")
	}
}

func TestRegisterDuplicateFailsAndKeepsOriginal(t *testing.T) {
	r := stage.NewRegistry()
	if err := r.Register("encode", stage.Metadata{Name: "first"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	err := r.Register("encode", stage.Metadata{Name: "second"})
	if err == nil {
		t.Fatal("expected conflict for duplicate id")
	}
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict marker, got %v", err)
	}
	got, ok := r.Metadata("encode")
	if !ok || got.Name != "first" {
		t.Fatalf("original registration should be intact, got %+v ok=%v", got, ok)
	}
}

func TestRegisterEmptyIDFails(t *testing.T) {
	r := stage.NewRegistry()
	err := r.Register("  ", stage.Metadata{})
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict for empty id, got %v", err)
	}
}

func TestUnregisterUnknownIsNoOp(t *testing.T) {
	r := stage.NewRegistry()
	r.Unregister("never-registered")

	if err := r.Register("script", stage.Metadata{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	r.Unregister("script")
	if r.IsRegistered("script") {
		t.Fatal("expected script to be removed")
	}
}

func TestAllReturnsEveryEntrySorted(t *testing.T) {
	r := stage.NewRegistry()
	ids := []string{"video", "script", "tts"}
	for _, id := range ids {
		if err := r.Register(id, stage.Metadata{Name: id}); err != nil {
			t.Fatalf("Register %s failed: %v", id, err)
		}
	}
	all := r.All()
	if len(all) != len(ids) {
		t.Fatalf("expected %d entries, got %d", len(ids), len(all))
	}
	want := []string{"script", "tts", "video"}
	for i, meta := range all {
		if meta.ID != want[i] {
			t.Fatalf("unexpected order %v", all)
		}
	}
}

func TestDependenciesMayReferenceUnregisteredStages(t *testing.T) {
	r := stage.NewRegistry()
	err := r.Register("video", stage.Metadata{Dependencies: []string{"not-yet-registered"}})
	if err != nil {
		t.Fatalf("dependency references must not be validated eagerly: %v", err)
	}
}

func TestMetadataReturnsCopy(t *testing.T) {
	r := stage.NewRegistry()
	if err := r.Register("tts", stage.Metadata{Dependencies: []string{"script"}}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	got, _ := r.Metadata("tts")
	got.Dependencies[0] = "mutated"
	again, _ := r.Metadata("tts")
	if again.Dependencies[0] != "script" {
		t.Fatal("registry metadata must be immutable after registration")
	}
}
