package synthesis

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"reelsmith/internal/services"
)

func stubCommand(t *testing.T, script string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
	t.Cleanup(func() { commandContext = original })
}

func TestGenerateImageReportsProgress(t *testing.T) {
	stubCommand(t, `printf '{"percent":25,"message":"sampling"}\n{"percent":100,"message":"done"}\n'`)

	var updates []ProgressUpdate
	cli := NewCLI()
	err := cli.GenerateImage(context.Background(), "a foggy harbor", "/tmp/out.png", func(u ProgressUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	if updates[0].Percent != 25 || updates[0].Message != "sampling" {
		t.Fatalf("unexpected first update: %+v", updates[0])
	}
	if updates[1].Percent != 100 {
		t.Fatalf("unexpected final update: %+v", updates[1])
	}
}

func TestGenerateImageToleratesNonJSONLines(t *testing.T) {
	stubCommand(t, `printf 'loading model weights\n{"percent":100,"message":"done"}\n'`)

	var updates []ProgressUpdate
	cli := NewCLI()
	err := cli.GenerateImage(context.Background(), "prompt", "/tmp/out.png", func(u ProgressUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected 1 progress update, got %d", len(updates))
	}
}

func TestGenerateImageFailureIsExternalTool(t *testing.T) {
	stubCommand(t, `printf 'CUDA out of memory\n'; exit 3`)

	cli := NewCLI()
	err := cli.GenerateImage(context.Background(), "prompt", "/tmp/out.png", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if services.IsRetriable(err) {
		t.Fatalf("expected non-retriable error, got %v", err)
	}
}

func TestGenerateImageEmptyPrompt(t *testing.T) {
	cli := NewCLI()
	err := cli.GenerateImage(context.Background(), "  ", "/tmp/out.png", nil)
	if !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestAnimateImageArgsValidated(t *testing.T) {
	cli := NewCLI()
	if err := cli.AnimateImage(context.Background(), "", "/tmp/out.mp4", "motion", nil); !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for missing input, got %v", err)
	}
	if err := cli.AnimateImage(context.Background(), "/tmp/in.png", "", "motion", nil); !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for missing output, got %v", err)
	}
}

func TestAnimateImageTimeout(t *testing.T) {
	stubCommand(t, `sleep 5`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cli := NewCLI()
	err := cli.AnimateImage(ctx, "/tmp/in.png", "/tmp/out.mp4", "motion", nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
	if !services.IsRetriable(err) {
		t.Fatalf("expected timeout to be retriable, got %v", err)
	}
}

func TestWithBinary(t *testing.T) {
	cli := NewCLI(WithBinary("custom-tool"))
	if cli.Binary() != "custom-tool" {
		t.Fatalf("expected custom binary, got %q", cli.Binary())
	}
	cli = NewCLI(WithBinary("  "))
	if cli.Binary() != "reelsmith-synth" {
		t.Fatalf("expected default binary, got %q", cli.Binary())
	}
}
