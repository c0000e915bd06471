package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Result collects every validation finding for a configuration. Errors block
// a run; warnings do not.
type Result struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the configuration may be used for a run.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Validate inspects the configuration and returns the complete list of errors
// and warnings. It is a pure function: no filesystem or environment access.
func Validate(c *Config) Result {
	var res Result
	if c == nil {
		res.Errors = append(res.Errors, "configuration is missing")
		return res
	}
	validatePaths(c, &res)
	validateGeneration(c, &res)
	validateProcessing(c, &res)
	validateLogging(c, &res)
	validateSteps(c, &res)
	return res
}

// Check returns an error joining every validation error, or nil when the
// configuration is usable. Warnings are not included.
func (c *Config) Check() error {
	res := Validate(c)
	if res.OK() {
		return nil
	}
	return errors.New(strings.Join(res.Errors, "; "))
}

func validatePaths(c *Config, res *Result) {
	if c.Paths == nil {
		res.Errors = append(res.Errors, "paths section is missing")
		return
	}
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		res.Errors = append(res.Errors, "paths.workspace_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		res.Errors = append(res.Errors, "paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		res.Errors = append(res.Errors, "paths.log_dir must be set")
	}
}

func validateGeneration(c *Config, res *Result) {
	if c.Generation == nil {
		res.Errors = append(res.Errors, "generation section is missing")
		return
	}
	g := c.Generation
	if g.Count < 1 {
		res.Errors = append(res.Errors, "generation.count must be at least 1")
	}
	if g.TargetWords < MinTargetWords {
		res.Errors = append(res.Errors, fmt.Sprintf("generation.target_words must be at least %d", MinTargetWords))
	}
	if g.VoiceStability < 0 || g.VoiceStability > 1 {
		res.Errors = append(res.Errors, "generation.voice_stability must be between 0 and 1")
	}
	if g.VoiceSimilarity < 0 || g.VoiceSimilarity > 1 {
		res.Errors = append(res.Errors, "generation.voice_similarity must be between 0 and 1")
	}
	if g.Width <= 0 {
		res.Errors = append(res.Errors, "generation.width must be positive")
	}
	if g.Height <= 0 {
		res.Errors = append(res.Errors, "generation.height must be positive")
	}
	if g.FrameRate <= 0 || g.FrameRate > 120 {
		res.Errors = append(res.Errors, "generation.frame_rate must be greater than 0 and at most 120")
	}
	if !isSynthesisMethod(g.SynthesisMethod) {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"generation.synthesis_method must be one of %s", strings.Join(SynthesisMethods, ", ")))
	}
}

func validateProcessing(c *Config, res *Result) {
	if c.Processing == nil {
		res.Errors = append(res.Errors, "processing section is missing")
		return
	}
	p := c.Processing
	if p.MaxRetries < 0 {
		res.Errors = append(res.Errors, "processing.max_retries must be >= 0")
	}
	if p.RetryDelaySeconds < 0 {
		res.Errors = append(res.Errors, "processing.retry_delay_seconds must be >= 0")
	}
	if p.Parallel && p.Workers < 1 {
		res.Errors = append(res.Errors, "processing.workers must be >= 1 when processing.parallel is true")
	}
}

func validateLogging(c *Config, res *Result) {
	if c.Logging == nil {
		res.Errors = append(res.Errors, "logging section is missing")
		return
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		res.Errors = append(res.Errors, "logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		res.Errors = append(res.Errors, "logging.format must be one of console, json")
	}
}

func validateSteps(c *Config, res *Result) {
	if c.Steps == nil {
		res.Errors = append(res.Errors, "steps section is missing")
		return
	}
	ids := make([]string, 0, len(c.Steps))
	for id := range c.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	anyEnabled := false
	for _, id := range ids {
		step := c.Steps[id]
		if step == nil {
			res.Errors = append(res.Errors, fmt.Sprintf("steps.%s is empty", id))
			continue
		}
		if step.Enabled {
			anyEnabled = true
		}
		if step.Order < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("steps.%s.order must be >= 0", id))
		}
		if step.MaxRetries != nil && *step.MaxRetries < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("steps.%s.max_retries must be >= 0", id))
		}
		if step.RetryDelaySeconds != nil && *step.RetryDelaySeconds < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("steps.%s.retry_delay_seconds must be >= 0", id))
		}
		if step.TimeoutSeconds < 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("steps.%s.timeout_seconds must be >= 0", id))
		}
	}
	if !anyEnabled {
		res.Warnings = append(res.Warnings, "no pipeline steps are enabled; a run will do nothing")
	}
}

func isSynthesisMethod(value string) bool {
	for _, method := range SynthesisMethods {
		if value == method {
			return true
		}
	}
	return false
}
