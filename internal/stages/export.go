package stages

import (
	"context"
	"os"

	"reelsmith/internal/services"
	"reelsmith/internal/stage"
)

type exportInput struct {
	InputPath  string
	OutputPath string
	Assembler  MediaAssembler
}

type exportStage struct{}

func (exportStage) Name() string { return StepExport }

func (exportStage) ValidateInput(input exportInput) bool {
	return input.InputPath != "" && input.OutputPath != "" && input.Assembler != nil
}

func (exportStage) ExecuteCore(ctx context.Context, input exportInput, report stage.Sink) (string, error) {
	if report != nil {
		report(stage.Progress{PercentComplete: 20, Message: "publishing final render"})
	}
	if err := input.Assembler.Export(ctx, input.InputPath, input.OutputPath); err != nil {
		return "", err
	}
	return input.OutputPath, nil
}

// ExportHandler publishes the assembled render into the output directory.
// Its payload is the absolute final file path so callers can surface it
// without knowing the workspace layout.
type ExportHandler struct{}

func (ExportHandler) ID() string { return StepExport }

func (ExportHandler) Run(ctx context.Context, env *Env, sink stage.Sink) (string, error) {
	if _, err := os.Stat(env.AssembledPath()); err != nil {
		return "", services.Wrap(services.ErrNotFound, StepExport, "locate render",
			"assembled render missing; run the assemble step first", err)
	}
	if err := os.MkdirAll(env.OutputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExternalTool, StepExport, "prepare output dir", "", err)
	}

	input := exportInput{
		InputPath:  env.AssembledPath(),
		OutputPath: env.FinalPath(),
		Assembler:  env.FFmpeg,
	}
	finalPath, err := stage.Run[exportInput, string](ctx, exportStage{}, input, sink)
	if err != nil {
		return "", err
	}

	env.log().Info("final render published", "output", finalPath)
	return finalPath, nil
}
