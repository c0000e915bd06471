// Package stages holds the concrete production steps: script generation,
// narration synthesis, image generation, clip animation, assembly, and export.
//
// Every step reads and writes artifacts under a fixed per-title workspace
// layout, so a resumed run can pick up where a previous run stopped without
// carrying state in memory:
//
//	<workspace>/<slug>/script.json
//	<workspace>/<slug>/narration.mp3
//	<workspace>/<slug>/images/scene_NN.png
//	<workspace>/<slug>/clips/scene_NN.mp4
//	<workspace>/<slug>/assembled.mp4
package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/ffmpeg"
	"reelsmith/internal/services/synthesis"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/stage"
	"reelsmith/internal/title"
)

// Step identifiers, in default execution order.
const (
	StepScript   = "script"
	StepTTS      = "tts"
	StepImages   = "images"
	StepVideo    = "video"
	StepAssemble = "assemble"
	StepExport   = "export"
)

// ScriptWriter produces structured JSON from chat prompts.
type ScriptWriter interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// SpeechSynthesizer turns narration text into audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req tts.Request) ([]byte, error)
}

// MediaAssembler drives ffmpeg for clip rendering and muxing.
type MediaAssembler interface {
	ConcatWithAudio(ctx context.Context, clipPaths []string, audioPath, outputPath string) error
	Export(ctx context.Context, inputPath, outputPath string) error
	StillToClip(ctx context.Context, imagePath, outputPath string, seconds float64, width, height, frameRate int) error
	Probe(ctx context.Context, path string) (ffmpeg.MediaInfo, error)
}

// Env provides the shared context every step runs against.
type Env struct {
	Config       *config.Config
	Brief        *title.Brief
	Slug         string
	WorkspaceDir string
	OutputDir    string

	LLM    ScriptWriter
	TTS    SpeechSynthesizer
	Synth  synthesis.Client
	FFmpeg MediaAssembler

	Logger *slog.Logger
}

// Handler is the unit the pipeline runner executes. Run returns a payload
// string recorded in the checkpoint, by convention the primary artifact path
// relative to the title workspace.
type Handler interface {
	ID() string
	Run(ctx context.Context, env *Env, sink stage.Sink) (string, error)
}

// All returns every handler keyed by step id.
func All() map[string]Handler {
	return map[string]Handler{
		StepScript:   ScriptHandler{},
		StepTTS:      TTSHandler{},
		StepImages:   ImagesHandler{},
		StepVideo:    VideoHandler{},
		StepAssemble: AssembleHandler{},
		StepExport:   ExportHandler{},
	}
}

// RegisterAll records metadata for every step in the registry.
func RegisterAll(reg *stage.Registry) error {
	entries := []stage.Metadata{
		{ID: StepScript, Name: "Script", Description: "Generate narration script and scene prompts", Category: "generation"},
		{ID: StepTTS, Name: "Narration", Description: "Synthesize narration audio", Category: "generation", Dependencies: []string{StepScript}},
		{ID: StepImages, Name: "Images", Description: "Render a still image per scene", Category: "generation", Dependencies: []string{StepScript}},
		{ID: StepVideo, Name: "Clips", Description: "Animate scene images into clips", Category: "rendering", Dependencies: []string{StepImages, StepTTS}},
		{ID: StepAssemble, Name: "Assemble", Description: "Join clips with narration audio", Category: "rendering", Dependencies: []string{StepVideo, StepTTS}},
		{ID: StepExport, Name: "Export", Description: "Publish the final render", Category: "delivery", Dependencies: []string{StepAssemble}},
	}
	for _, entry := range entries {
		if err := reg.Register(entry.ID, entry); err != nil {
			return err
		}
	}
	return nil
}

// Logger returns the environment logger, falling back to a discard logger.
func (e *Env) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.NewNop()
}

// Workspace artifact locations.

func (e *Env) ScriptPath() string    { return filepath.Join(e.WorkspaceDir, "script.json") }
func (e *Env) NarrationPath() string { return filepath.Join(e.WorkspaceDir, "narration.mp3") }
func (e *Env) ImagesDir() string     { return filepath.Join(e.WorkspaceDir, "images") }
func (e *Env) ClipsDir() string      { return filepath.Join(e.WorkspaceDir, "clips") }
func (e *Env) AssembledPath() string { return filepath.Join(e.WorkspaceDir, "assembled.mp4") }

// ImagePath returns the still location for a zero-based scene index.
func (e *Env) ImagePath(index int) string {
	return filepath.Join(e.ImagesDir(), fmt.Sprintf("scene_%02d.png", index+1))
}

// ClipPath returns the clip location for a zero-based scene index.
func (e *Env) ClipPath(index int) string {
	return filepath.Join(e.ClipsDir(), fmt.Sprintf("scene_%02d.mp4", index+1))
}

// FinalPath returns the export destination for this title.
func (e *Env) FinalPath() string {
	return filepath.Join(e.OutputDir, e.Slug+".mp4")
}

// relative converts a workspace artifact path into its checkpoint payload form.
func (e *Env) relative(path string) string {
	rel, err := filepath.Rel(e.WorkspaceDir, path)
	if err != nil {
		return path
	}
	return rel
}

// LoadScript reads the script artifact produced by the script step.
func (e *Env) LoadScript() (*Script, error) {
	data, err := os.ReadFile(e.ScriptPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, "", "load script",
				"script artifact missing; run the script step first", err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "", "load script", "read script artifact", err)
	}
	var script Script
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "load script", "decode script artifact", err)
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}
