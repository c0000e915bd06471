package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"reelsmith/internal/services"
	"reelsmith/internal/services/synthesis"
	"reelsmith/internal/stage"
)

type imagesInput struct {
	Scenes      []Scene
	ImagesDir   string
	Synthesizer synthesis.Client
	PathFor     func(index int) string
}

type imagesStage struct{}

func (imagesStage) Name() string { return StepImages }

func (imagesStage) ValidateInput(input imagesInput) bool {
	return len(input.Scenes) > 0 &&
		input.ImagesDir != "" &&
		input.Synthesizer != nil &&
		input.PathFor != nil
}

func (imagesStage) ExecuteCore(ctx context.Context, input imagesInput, report stage.Sink) ([]string, error) {
	if err := os.MkdirAll(input.ImagesDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, StepImages, "prepare images dir", "", err)
	}

	total := len(input.Scenes)
	paths := make([]string, 0, total)
	for i, scene := range input.Scenes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outputPath := input.PathFor(i)
		if report != nil {
			report(stage.Progress{
				PercentComplete: i * 100 / total,
				Message:         fmt.Sprintf("rendering scene %d of %d", i+1, total),
			})
		}
		if err := input.Synthesizer.GenerateImage(ctx, scene.Prompt, outputPath, nil); err != nil {
			return nil, err
		}
		paths = append(paths, outputPath)
	}
	return paths, nil
}

// ImagesHandler renders one still per scene into the workspace images dir.
type ImagesHandler struct{}

func (ImagesHandler) ID() string { return StepImages }

func (ImagesHandler) Run(ctx context.Context, env *Env, sink stage.Sink) (string, error) {
	script, err := env.LoadScript()
	if err != nil {
		return "", err
	}

	input := imagesInput{
		Scenes:      script.Scenes,
		ImagesDir:   env.ImagesDir(),
		Synthesizer: env.Synth,
		PathFor:     env.ImagePath,
	}
	paths, err := stage.Run[imagesInput, []string](ctx, imagesStage{}, input, sink)
	if err != nil {
		return "", err
	}

	env.log().Info("scene images rendered", "count", len(paths))
	return env.relative(filepath.Dir(paths[0])), nil
}
