package config_test

import (
	"strings"
	"testing"

	"reelsmith/internal/config"
)

func validConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	res := config.Validate(validConfig())
	if !res.OK() {
		t.Fatalf("expected no errors, got %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
}

func TestValidateNilConfig(t *testing.T) {
	res := config.Validate(nil)
	if res.OK() {
		t.Fatal("expected error for nil config")
	}
}

func TestValidateMissingSections(t *testing.T) {
	cfg := validConfig()
	cfg.Paths = nil
	cfg.Generation = nil
	cfg.Processing = nil
	cfg.Logging = nil
	cfg.Steps = nil

	res := config.Validate(cfg)
	for _, want := range []string{
		"paths section is missing",
		"generation section is missing",
		"processing section is missing",
		"logging section is missing",
		"steps section is missing",
	} {
		if !containsMessage(res.Errors, want) {
			t.Fatalf("expected %q in %v", want, res.Errors)
		}
	}
}

func TestValidateSingleViolationsProduceSingleErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		message string
	}{
		{"empty workspace", func(c *config.Config) { c.Paths.WorkspaceDir = "" }, "paths.workspace_dir"},
		{"empty output", func(c *config.Config) { c.Paths.OutputDir = "" }, "paths.output_dir"},
		{"empty log dir", func(c *config.Config) { c.Paths.LogDir = "" }, "paths.log_dir"},
		{"zero count", func(c *config.Config) { c.Generation.Count = 0 }, "generation.count"},
		{"short target", func(c *config.Config) { c.Generation.TargetWords = 10 }, "generation.target_words"},
		{"stability above one", func(c *config.Config) { c.Generation.VoiceStability = 1.2 }, "generation.voice_stability"},
		{"similarity negative", func(c *config.Config) { c.Generation.VoiceSimilarity = -0.1 }, "generation.voice_similarity"},
		{"zero width", func(c *config.Config) { c.Generation.Width = 0 }, "generation.width"},
		{"zero height", func(c *config.Config) { c.Generation.Height = 0 }, "generation.height"},
		{"zero frame rate", func(c *config.Config) { c.Generation.FrameRate = 0 }, "generation.frame_rate"},
		{"excessive frame rate", func(c *config.Config) { c.Generation.FrameRate = 144 }, "generation.frame_rate"},
		{"unknown synthesis method", func(c *config.Config) { c.Generation.SynthesisMethod = "hologram" }, "generation.synthesis_method"},
		{"negative retries", func(c *config.Config) { c.Processing.MaxRetries = -1 }, "processing.max_retries"},
		{"negative delay", func(c *config.Config) { c.Processing.RetryDelaySeconds = -1 }, "processing.retry_delay_seconds"},
		{"parallel without workers", func(c *config.Config) { c.Processing.Parallel = true; c.Processing.Workers = 0 }, "processing.workers"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative step order", func(c *config.Config) { c.Steps["script"].Order = -1 }, "steps.script.order"},
		{"negative step timeout", func(c *config.Config) { c.Steps["tts"].TimeoutSeconds = -1 }, "steps.tts.timeout_seconds"},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		res := config.Validate(cfg)
		if len(res.Errors) != 1 {
			t.Fatalf("%s: expected exactly one error, got %v", tc.name, res.Errors)
		}
		if !strings.Contains(res.Errors[0], tc.message) {
			t.Fatalf("%s: expected error about %s, got %q", tc.name, tc.message, res.Errors[0])
		}
	}
}

func TestValidateStepOverrideBounds(t *testing.T) {
	cfg := validConfig()
	neg := -1
	cfg.Steps["images"].MaxRetries = &neg
	res := config.Validate(cfg)
	if !containsSubstring(res.Errors, "steps.images.max_retries") {
		t.Fatalf("expected max_retries error, got %v", res.Errors)
	}

	cfg = validConfig()
	cfg.Steps["images"].RetryDelaySeconds = &neg
	res = config.Validate(cfg)
	if !containsSubstring(res.Errors, "steps.images.retry_delay_seconds") {
		t.Fatalf("expected retry_delay error, got %v", res.Errors)
	}

	zero := 0
	cfg = validConfig()
	cfg.Steps["images"].MaxRetries = &zero
	cfg.Steps["images"].RetryDelaySeconds = &zero
	if res := config.Validate(cfg); !res.OK() {
		t.Fatalf("zero overrides should be valid, got %v", res.Errors)
	}
}

func TestValidateFrameRateBoundary(t *testing.T) {
	cfg := validConfig()
	cfg.Generation.FrameRate = 120
	if res := config.Validate(cfg); !res.OK() {
		t.Fatalf("frame rate 120 should be valid, got %v", res.Errors)
	}
	cfg.Generation.FrameRate = 30
	if res := config.Validate(cfg); !res.OK() {
		t.Fatalf("frame rate 30 should be valid, got %v", res.Errors)
	}
}

func TestValidateWarnsWhenNoStepsEnabled(t *testing.T) {
	cfg := validConfig()
	for _, step := range cfg.Steps {
		step.Enabled = false
	}
	res := config.Validate(cfg)
	if !res.OK() {
		t.Fatalf("disabled steps must not be an error, got %v", res.Errors)
	}
	if !containsSubstring(res.Warnings, "no pipeline steps are enabled") {
		t.Fatalf("expected warning, got %v", res.Warnings)
	}
}

func containsMessage(list []string, message string) bool {
	for _, entry := range list {
		if entry == message {
			return true
		}
	}
	return false
}

func containsSubstring(list []string, fragment string) bool {
	for _, entry := range list {
		if strings.Contains(entry, fragment) {
			return true
		}
	}
	return false
}
