package config

const (
	defaultWorkspaceDir = "~/.local/share/reelsmith/workspace"
	defaultOutputDir    = "~/reels"
	defaultLogDir       = "~/.local/share/reelsmith/logs"

	defaultGenerationCount = 1
	defaultTargetWords     = 160
	defaultVoiceStability  = 0.5
	defaultVoiceSimilarity = 0.75
	defaultWidth           = 1080
	defaultHeight          = 1920
	defaultFrameRate       = 30.0

	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 5
	defaultWorkers           = 1

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 60

	defaultTTSVoice          = "narrator"
	defaultTTSTimeoutSeconds = 120

	defaultSynthesisCommand        = "reelsmith-synth"
	defaultSynthesisTimeoutSeconds = 900

	defaultNotifyRequestTimeout = 10
)

// MinTargetWords is the smallest accepted script length target.
const MinTargetWords = 50

// SynthesisMethods enumerates the accepted generation.synthesis_method values.
var SynthesisMethods = []string{"keyframe", "motion", "slideshow"}

// DefaultSynthesisMethod is used when the config omits a method.
const DefaultSynthesisMethod = "keyframe"

// StepIDs enumerates the pipeline steps in their default execution order.
var StepIDs = []string{"script", "tts", "images", "video", "assemble", "export"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	steps := make(map[string]*Step, len(StepIDs))
	for i, id := range StepIDs {
		steps[id] = &Step{
			Enabled: true,
			Order:   (i + 1) * 10,
		}
	}
	return Config{
		Paths: &Paths{
			WorkspaceDir: defaultWorkspaceDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
		},
		Generation: &Generation{
			Count:           defaultGenerationCount,
			TargetWords:     defaultTargetWords,
			VoiceStability:  defaultVoiceStability,
			VoiceSimilarity: defaultVoiceSimilarity,
			Width:           defaultWidth,
			Height:          defaultHeight,
			FrameRate:       defaultFrameRate,
			SynthesisMethod: DefaultSynthesisMethod,
		},
		Processing: &Processing{
			MaxRetries:        defaultMaxRetries,
			RetryDelaySeconds: defaultRetryDelaySeconds,
			Workers:           defaultWorkers,
		},
		Logging: &Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Steps: steps,
		LLM: &LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: &TTS{
			Voice:          defaultTTSVoice,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Synthesis: &Synthesis{
			Command:        defaultSynthesisCommand,
			TimeoutSeconds: defaultSynthesisTimeoutSeconds,
		},
		Notifications: &Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
	}
}
