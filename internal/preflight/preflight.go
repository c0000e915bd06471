package preflight

import (
	"context"

	"reelsmith/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding integration is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if cfg.Paths != nil {
		results = append(results, CheckDirectoryAccess("Workspace directory", cfg.Paths.WorkspaceDir))
		if cfg.Paths.OutputDir != "" {
			results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
		}
	}

	if cfg.LLM != nil {
		results = append(results, CheckLLM(ctx, "Script LLM", cfg.LLM))
	}
	if cfg.TTS != nil {
		results = append(results, CheckTTS(ctx, cfg.TTS))
	}

	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
