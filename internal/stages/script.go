package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/stage"
	"reelsmith/internal/title"
)

// Script is the structured output of the script step: the narration text plus
// one visual prompt per scene.
type Script struct {
	Title     string  `json:"title"`
	Narration string  `json:"narration"`
	Scenes    []Scene `json:"scenes"`
}

// Scene pairs a visual prompt with its caption and narration slice.
type Scene struct {
	Prompt    string `json:"prompt"`
	Caption   string `json:"caption,omitempty"`
	Narration string `json:"narration,omitempty"`
}

// Validate checks the structural requirements on a generated script.
func (s *Script) Validate() error {
	if strings.TrimSpace(s.Narration) == "" {
		return services.Wrap(services.ErrValidation, StepScript, "validate script", "narration is empty", nil)
	}
	if len(s.Scenes) == 0 {
		return services.Wrap(services.ErrValidation, StepScript, "validate script", "no scenes", nil)
	}
	for i, scene := range s.Scenes {
		if strings.TrimSpace(scene.Prompt) == "" {
			return services.Wrap(services.ErrValidation, StepScript, "validate script",
				fmt.Sprintf("scene %d has an empty prompt", i+1), nil)
		}
	}
	return nil
}

// WordCount returns the number of words in the narration.
func (s *Script) WordCount() int {
	return len(strings.Fields(s.Narration))
}

const scriptSystemPrompt = `You write short-form video scripts. Respond with JSON only, using this shape:
{"title": string, "narration": string, "scenes": [{"prompt": string, "caption": string, "narration": string}]}
The narration field is the full voiceover text. Each scene prompt describes a single still image for an image generation model. Scene narration slices partition the full narration in order.`

type scriptInput struct {
	Brief       *title.Brief
	Generation  *config.Generation
	ScriptModel ScriptWriter
}

type scriptStage struct{}

func (scriptStage) Name() string { return StepScript }

func (scriptStage) ValidateInput(input scriptInput) bool {
	if input.Brief == nil || input.Generation == nil || input.ScriptModel == nil {
		return false
	}
	if err := input.Brief.Validate(); err != nil {
		return false
	}
	return input.Generation.TargetWords >= config.MinTargetWords
}

func (scriptStage) ExecuteCore(ctx context.Context, input scriptInput, report stage.Sink) (*Script, error) {
	brief := input.Brief

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Title: %s\n", brief.Title)
	fmt.Fprintf(&prompt, "Premise: %s\n", brief.Premise)
	if brief.Tone != "" {
		fmt.Fprintf(&prompt, "Tone: %s\n", brief.Tone)
	}
	if len(brief.Tags) > 0 {
		fmt.Fprintf(&prompt, "Themes: %s\n", strings.Join(brief.Tags, ", "))
	}
	fmt.Fprintf(&prompt, "Target narration length: about %d words.\n", input.Generation.TargetWords)
	fmt.Fprintf(&prompt, "Number of scenes: %d.\n", input.Generation.Count)
	if len(brief.Scenes) > 0 {
		prompt.WriteString("Use these scene hints, in order:\n")
		for i, hint := range brief.Scenes {
			fmt.Fprintf(&prompt, "%d. %s", i+1, hint.Prompt)
			if hint.Caption != "" {
				fmt.Fprintf(&prompt, " (caption: %s)", hint.Caption)
			}
			prompt.WriteString("\n")
		}
	}

	if report != nil {
		report(stage.Progress{PercentComplete: 10, Message: "requesting script"})
	}

	raw, err := input.ScriptModel.CompleteJSON(ctx, scriptSystemPrompt, prompt.String())
	if err != nil {
		return nil, err
	}

	if report != nil {
		report(stage.Progress{PercentComplete: 80, Message: "parsing script"})
	}

	var script Script
	if err := llm.DecodeJSON(raw, &script); err != nil {
		return nil, services.Wrap(services.ErrValidation, StepScript, "parse script", "model returned malformed JSON", err)
	}
	script.Title = strings.TrimSpace(script.Title)
	if script.Title == "" {
		script.Title = brief.Title
	}
	script.Narration = strings.TrimSpace(script.Narration)
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// ScriptHandler runs the script step and stores script.json in the workspace.
type ScriptHandler struct{}

func (ScriptHandler) ID() string { return StepScript }

func (ScriptHandler) Run(ctx context.Context, env *Env, sink stage.Sink) (string, error) {
	input := scriptInput{
		Brief:       env.Brief,
		Generation:  env.Config.Generation,
		ScriptModel: env.LLM,
	}
	script, err := stage.Run[scriptInput, *Script](ctx, scriptStage{}, input, sink)
	if err != nil {
		return "", err
	}

	env.log().Info("script generated",
		"title", script.Title,
		"words", script.WordCount(),
		"scenes", len(script.Scenes))

	encoded, err := json.MarshalIndent(script, "", "  ")
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, StepScript, "store script", "encode artifact", err)
	}
	if err := os.WriteFile(env.ScriptPath(), encoded, 0o644); err != nil {
		return "", services.Wrap(services.ErrExternalTool, StepScript, "store script", "write artifact", err)
	}
	return env.relative(env.ScriptPath()), nil
}
