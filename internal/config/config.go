package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkspaceDir string `toml:"workspace_dir"`
	OutputDir    string `toml:"output_dir"`
	LogDir       string `toml:"log_dir"`
}

// Generation contains content-generation parameters shared by the stages.
type Generation struct {
	Count           int     `toml:"count"`
	TargetWords     int     `toml:"target_words"`
	VoiceStability  float64 `toml:"voice_stability"`
	VoiceSimilarity float64 `toml:"voice_similarity"`
	Width           int     `toml:"width"`
	Height          int     `toml:"height"`
	FrameRate       float64 `toml:"frame_rate"`
	SynthesisMethod string  `toml:"synthesis_method"`
}

// Processing contains the run-level retry and scheduling policy.
type Processing struct {
	MaxRetries        int  `toml:"max_retries"`
	RetryDelaySeconds int  `toml:"retry_delay_seconds"`
	Parallel          bool `toml:"parallel"`
	Workers           int  `toml:"workers"`
	ContinueOnError   bool `toml:"continue_on_error"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Step contains per-step tuning for one pipeline step. MaxRetries and
// RetryDelaySeconds override the processing policy when present.
type Step struct {
	Enabled           bool           `toml:"enabled"`
	Order             int            `toml:"order"`
	MaxRetries        *int           `toml:"max_retries"`
	RetryDelaySeconds *int           `toml:"retry_delay_seconds"`
	TimeoutSeconds    int            `toml:"timeout_seconds"`
	Parameters        map[string]any `toml:"parameters"`
}

// LLM contains connection settings for the script-generation endpoint.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains connection settings for the speech-synthesis endpoint.
type TTS struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Voice          string `toml:"voice"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Synthesis contains settings for the external image/video synthesis process.
type Synthesis struct {
	Command        string `toml:"command"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for reelsmith.
//
// The paths, generation, processing, logging, and steps sections drive the
// orchestration core; the remaining sections configure external integrations.
// Sections are pointers so the validator can report an absent section by name
// instead of silently validating zero values.
type Config struct {
	Paths         *Paths           `toml:"paths"`
	Generation    *Generation      `toml:"generation"`
	Processing    *Processing      `toml:"processing"`
	Logging       *Logging         `toml:"logging"`
	Steps         map[string]*Step `toml:"steps"`
	LLM           *LLM             `toml:"llm"`
	TTS           *TTS             `toml:"tts"`
	Synthesis     *Synthesis       `toml:"synthesis"`
	Notifications *Notifications   `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelsmith/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has environment references substituted and all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		raw, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		expanded := os.Expand(string(raw), func(name string) string {
			return os.Getenv(name)
		})
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Check(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs. OutputDir is created
// on a best-effort basis so runs can start while external storage is offline.
func (c *Config) EnsureDirectories() error {
	if c.Paths == nil {
		return errors.New("paths section is missing")
	}
	for _, dir := range []string{c.Paths.WorkspaceDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		_ = os.MkdirAll(c.Paths.OutputDir, 0o755)
	}
	return nil
}

// EnabledSteps returns the ids of enabled steps sorted by their order value.
func (c *Config) EnabledSteps() []string {
	type entry struct {
		id    string
		order int
	}
	entries := make([]entry, 0, len(c.Steps))
	for id, step := range c.Steps {
		if step != nil && step.Enabled {
			entries = append(entries, entry{id: id, order: step.Order})
		}
	}
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && (entries[j].order < entries[j-1].order ||
			(entries[j].order == entries[j-1].order && entries[j].id < entries[j-1].id)); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.id)
	}
	return ids
}

// FFmpegBinary returns the media encoder executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media validation.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
