package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
	"reelsmith/internal/services/synthesis"
	"reelsmith/internal/stage"
)

type videoInput struct {
	ImagePaths    []string
	ClipsDir      string
	Method        string
	SecondsPer    float64
	Generation    *config.Generation
	Synthesizer   synthesis.Client
	Assembler     MediaAssembler
	ClipPathFor   func(index int) string
	NarrationPath string
}

type videoStage struct{}

func (videoStage) Name() string { return StepVideo }

func (videoStage) ValidateInput(input videoInput) bool {
	if len(input.ImagePaths) == 0 || input.ClipsDir == "" || input.ClipPathFor == nil {
		return false
	}
	switch input.Method {
	case "keyframe", "motion":
		return input.Synthesizer != nil
	case "slideshow":
		return input.Assembler != nil && input.Generation != nil && input.SecondsPer > 0
	default:
		return false
	}
}

func (videoStage) ExecuteCore(ctx context.Context, input videoInput, report stage.Sink) ([]string, error) {
	if err := os.MkdirAll(input.ClipsDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, StepVideo, "prepare clips dir", "", err)
	}

	total := len(input.ImagePaths)
	clips := make([]string, 0, total)
	for i, imagePath := range input.ImagePaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clipPath := input.ClipPathFor(i)
		if report != nil {
			report(stage.Progress{
				PercentComplete: i * 100 / total,
				Message:         fmt.Sprintf("animating scene %d of %d", i+1, total),
			})
		}
		var err error
		if input.Method == "slideshow" {
			err = input.Assembler.StillToClip(ctx, imagePath, clipPath, input.SecondsPer,
				input.Generation.Width, input.Generation.Height, int(input.Generation.FrameRate))
		} else {
			err = input.Synthesizer.AnimateImage(ctx, imagePath, clipPath, input.Method, nil)
		}
		if err != nil {
			return nil, err
		}
		clips = append(clips, clipPath)
	}
	return clips, nil
}

// VideoHandler turns the scene stills into clips using the configured
// synthesis method. The slideshow method divides the narration duration
// evenly across scenes.
type VideoHandler struct{}

func (VideoHandler) ID() string { return StepVideo }

func (VideoHandler) Run(ctx context.Context, env *Env, sink stage.Sink) (string, error) {
	script, err := env.LoadScript()
	if err != nil {
		return "", err
	}

	imagePaths := make([]string, len(script.Scenes))
	for i := range script.Scenes {
		imagePaths[i] = env.ImagePath(i)
		if _, statErr := os.Stat(imagePaths[i]); statErr != nil {
			return "", services.Wrap(services.ErrNotFound, StepVideo, "locate images",
				fmt.Sprintf("scene image %d missing; run the images step first", i+1), statErr)
		}
	}

	method := env.Config.Generation.SynthesisMethod
	secondsPer := 0.0
	if method == "slideshow" {
		info, probeErr := env.FFmpeg.Probe(ctx, env.NarrationPath())
		if probeErr != nil {
			return "", probeErr
		}
		if info.DurationSeconds <= 0 {
			return "", services.Wrap(services.ErrValidation, StepVideo, "probe narration",
				"narration has no measurable duration", nil)
		}
		secondsPer = info.DurationSeconds / float64(len(imagePaths))
	}

	input := videoInput{
		ImagePaths:    imagePaths,
		ClipsDir:      env.ClipsDir(),
		Method:        method,
		SecondsPer:    secondsPer,
		Generation:    env.Config.Generation,
		Synthesizer:   env.Synth,
		Assembler:     env.FFmpeg,
		ClipPathFor:   env.ClipPath,
		NarrationPath: env.NarrationPath(),
	}
	clips, err := stage.Run[videoInput, []string](ctx, videoStage{}, input, sink)
	if err != nil {
		return "", err
	}

	env.log().Info("scene clips rendered", "count", len(clips), "method", method)
	return env.relative(filepath.Dir(clips[0])), nil
}
