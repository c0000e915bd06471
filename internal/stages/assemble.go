package stages

import (
	"context"
	"fmt"
	"os"

	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

type assembleInput struct {
	ClipPaths     []string
	NarrationPath string
	OutputPath    string
	Assembler     MediaAssembler
}

type assembleStage struct{}

func (assembleStage) Name() string { return StepAssemble }

func (assembleStage) ValidateInput(input assembleInput) bool {
	return len(input.ClipPaths) > 0 &&
		input.NarrationPath != "" &&
		input.OutputPath != "" &&
		input.Assembler != nil
}

func (assembleStage) ExecuteCore(ctx context.Context, input assembleInput, report stage.Sink) (string, error) {
	if report != nil {
		report(stage.Progress{PercentComplete: 10, Message: "joining clips"})
	}
	if err := input.Assembler.ConcatWithAudio(ctx, input.ClipPaths, input.NarrationPath, input.OutputPath); err != nil {
		return "", err
	}

	if report != nil {
		report(stage.Progress{PercentComplete: 85, Message: "verifying render"})
	}
	info, err := input.Assembler.Probe(ctx, input.OutputPath)
	if err != nil {
		return "", err
	}
	if !info.HasVideo || !info.HasAudio {
		return "", services.Wrap(services.ErrExternalTool, StepAssemble, "verify render",
			fmt.Sprintf("assembled file is incomplete (video=%t audio=%t)", info.HasVideo, info.HasAudio), nil)
	}
	return input.OutputPath, nil
}

// AssembleHandler joins the scene clips with narration into assembled.mp4.
type AssembleHandler struct{}

func (AssembleHandler) ID() string { return StepAssemble }

func (AssembleHandler) Run(ctx context.Context, env *Env, sink stage.Sink) (string, error) {
	script, err := env.LoadScript()
	if err != nil {
		return "", err
	}

	clipPaths := make([]string, len(script.Scenes))
	for i := range script.Scenes {
		clipPaths[i] = env.ClipPath(i)
		if _, statErr := os.Stat(clipPaths[i]); statErr != nil {
			return "", services.Wrap(services.ErrNotFound, StepAssemble, "locate clips",
				fmt.Sprintf("scene clip %d missing; run the video step first", i+1), statErr)
		}
	}
	if _, statErr := os.Stat(env.NarrationPath()); statErr != nil {
		return "", services.Wrap(services.ErrNotFound, StepAssemble, "locate narration",
			"narration artifact missing; run the tts step first", statErr)
	}

	input := assembleInput{
		ClipPaths:     clipPaths,
		NarrationPath: env.NarrationPath(),
		OutputPath:    env.AssembledPath(),
		Assembler:     env.FFmpeg,
	}
	outputPath, err := stage.Run[assembleInput, string](ctx, assembleStage{}, input, sink)
	if err != nil {
		return "", err
	}

	env.log().Info("render assembled", "output", outputPath, "clips", len(clipPaths))
	return env.relative(outputPath), nil
}
