// Package pipeline orchestrates the production steps for one title: it
// consults the checkpoint ledger to skip finished work, drives each step
// through the retry policy, persists progress to the catalog, and tears the
// checkpoint down once a title completes end to end.
package pipeline

import (
	"log/slog"
	"time"

	"reelsmith/internal/catalog"
	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/notifications"
	"reelsmith/internal/services/ffmpeg"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/services/synthesis"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/stage"
	"reelsmith/internal/stages"
)

// StepState tracks where a step is in its lifecycle.
type StepState string

const (
	StepPending   StepState = "pending"
	StepSkipped   StepState = "skipped"
	StepRunning   StepState = "running"
	StepCompleted StepState = "completed"
	StepFailed    StepState = "failed"
	StepCancelled StepState = "cancelled"
)

// StepResult records the outcome of one step in a run.
type StepResult struct {
	ID       string
	State    StepState
	Payload  string
	Duration time.Duration
	Err      error
}

// Report summarizes a full title run. Metrics holds the timers and counters
// recorded during this run only; concurrent runs never share a recorder.
type Report struct {
	Slug      string
	RunID     string
	Steps     []StepResult
	FinalFile string
	Metrics   *logging.Metrics
	Err       error
}

// Succeeded reports whether every step finished or was skipped.
func (r *Report) Succeeded() bool {
	if r == nil || r.Err != nil {
		return false
	}
	for _, step := range r.Steps {
		if step.State != StepCompleted && step.State != StepSkipped {
			return false
		}
	}
	return true
}

// Runner executes the configured steps for titles.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	handlers map[string]stages.Handler
	store    *catalog.Store
	notifier notifications.Service
	sink     stage.Sink

	llm    stages.ScriptWriter
	tts    stages.SpeechSynthesizer
	synth  synthesis.Client
	ffmpeg stages.MediaAssembler
}

// Option customizes a Runner.
type Option func(*Runner)

// WithCatalog attaches the title catalog for progress persistence.
func WithCatalog(store *catalog.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithNotifier overrides the notification service.
func WithNotifier(svc notifications.Service) Option {
	return func(r *Runner) {
		if svc != nil {
			r.notifier = svc
		}
	}
}

// WithProgressSink forwards stage progress events to an external consumer.
func WithProgressSink(sink stage.Sink) Option {
	return func(r *Runner) { r.sink = sink }
}

// WithHandlers overrides the step handlers, mainly for tests.
func WithHandlers(handlers map[string]stages.Handler) Option {
	return func(r *Runner) {
		if handlers != nil {
			r.handlers = handlers
		}
	}
}

// WithClients overrides the external service clients, mainly for tests.
func WithClients(scriptWriter stages.ScriptWriter, speech stages.SpeechSynthesizer, synth synthesis.Client, assembler stages.MediaAssembler) Option {
	return func(r *Runner) {
		if scriptWriter != nil {
			r.llm = scriptWriter
		}
		if speech != nil {
			r.tts = speech
		}
		if synth != nil {
			r.synth = synth
		}
		if assembler != nil {
			r.ffmpeg = assembler
		}
	}
}

// NewRunner constructs a runner with clients built from the configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
		handlers: stages.All(),
		notifier: notifications.NewService(cfg),
	}

	if cfg.LLM != nil {
		r.llm = llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
	}
	if cfg.TTS != nil {
		r.tts = tts.NewClient(tts.Config{
			APIKey:         cfg.TTS.APIKey,
			BaseURL:        cfg.TTS.BaseURL,
			Voice:          cfg.TTS.Voice,
			TimeoutSeconds: cfg.TTS.TimeoutSeconds,
		})
	}
	if cfg.Synthesis != nil {
		r.synth = synthesis.NewCLI(synthesis.WithBinary(cfg.Synthesis.Command))
	} else {
		r.synth = synthesis.NewCLI()
	}
	r.ffmpeg = ffmpeg.NewRunner(ffmpeg.WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()))

	for _, opt := range opts {
		opt(r)
	}
	return r
}
