package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGeneration()
	c.normalizeLLM()
	c.normalizeTTS()
	c.normalizeSynthesis()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if c.Paths == nil {
		return nil
	}
	var err error
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGeneration() {
	if c.Generation == nil {
		return
	}
	c.Generation.SynthesisMethod = strings.ToLower(strings.TrimSpace(c.Generation.SynthesisMethod))
	if c.Generation.SynthesisMethod == "" {
		c.Generation.SynthesisMethod = DefaultSynthesisMethod
	}
}

func (c *Config) normalizeLLM() {
	if c.LLM == nil {
		return
	}
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
}

func (c *Config) normalizeTTS() {
	if c.TTS == nil {
		return
	}
	if c.TTS.APIKey == "" {
		if value, ok := os.LookupEnv("REELSMITH_TTS_API_KEY"); ok {
			c.TTS.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
}

func (c *Config) normalizeSynthesis() {
	if c.Synthesis == nil {
		return
	}
	c.Synthesis.Command = strings.TrimSpace(c.Synthesis.Command)
	if c.Synthesis.Command == "" {
		c.Synthesis.Command = defaultSynthesisCommand
	}
}

func (c *Config) normalizeLogging() {
	if c.Logging == nil {
		return
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
