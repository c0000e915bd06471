package stages

import (
	"context"
	"os"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/stage"
)

type ttsInput struct {
	Narration   string
	Voice       string
	Generation  *config.Generation
	Synthesizer SpeechSynthesizer
}

type ttsStage struct{}

func (ttsStage) Name() string { return StepTTS }

func (ttsStage) ValidateInput(input ttsInput) bool {
	return strings.TrimSpace(input.Narration) != "" &&
		input.Generation != nil &&
		input.Synthesizer != nil
}

func (ttsStage) ExecuteCore(ctx context.Context, input ttsInput, report stage.Sink) ([]byte, error) {
	if report != nil {
		report(stage.Progress{PercentComplete: 10, Message: "synthesizing narration"})
	}
	audio, err := input.Synthesizer.Synthesize(ctx, tts.Request{
		Text:       input.Narration,
		Voice:      input.Voice,
		Stability:  input.Generation.VoiceStability,
		Similarity: input.Generation.VoiceSimilarity,
	})
	if err != nil {
		return nil, err
	}
	if report != nil {
		report(stage.Progress{PercentComplete: 90, Message: "narration received"})
	}
	return audio, nil
}

// TTSHandler synthesizes narration audio and stores narration.mp3.
type TTSHandler struct{}

func (TTSHandler) ID() string { return StepTTS }

func (TTSHandler) Run(ctx context.Context, env *Env, sink stage.Sink) (string, error) {
	script, err := env.LoadScript()
	if err != nil {
		return "", err
	}

	voice := ""
	if env.Brief != nil {
		voice = env.Brief.Voice
	}
	input := ttsInput{
		Narration:   script.Narration,
		Voice:       voice,
		Generation:  env.Config.Generation,
		Synthesizer: env.TTS,
	}
	audio, err := stage.Run[ttsInput, []byte](ctx, ttsStage{}, input, sink)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(env.NarrationPath(), audio, 0o644); err != nil {
		return "", services.Wrap(services.ErrExternalTool, StepTTS, "store narration", "write artifact", err)
	}
	env.log().Info("narration synthesized", "bytes", len(audio))
	return env.relative(env.NarrationPath()), nil
}
