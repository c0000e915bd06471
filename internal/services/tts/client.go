// Package tts wraps the speech synthesis HTTP API that turns narration text
// into audio. Failures are classified the same way as the llm package so the
// pipeline retry layer can decide whether another attempt is worthwhile.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelsmith/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Config captures the runtime settings for the speech endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Voice          string
	TimeoutSeconds int
}

// Request describes one synthesis call.
type Request struct {
	Text       string
	Voice      string
	Stability  float64
	Similarity float64
}

// Client talks to the speech synthesis service.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Voice:          strings.TrimSpace(cfg.Voice),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type synthesisPayload struct {
	Text          string  `json:"text"`
	Voice         string  `json:"voice"`
	Stability     float64 `json:"stability"`
	Similarity    float64 `json:"similarity_boost"`
	OutputFormat  string  `json:"output_format"`
	NormalizeText bool    `json:"normalize_text"`
}

// Synthesize converts narration text into audio bytes.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, services.Wrap(services.ErrInvalidArgument, "", "tts synthesize", "text required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "tts synthesize", "api key required", nil)
	}
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "tts synthesize", "base url required", nil)
	}

	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = c.cfg.Voice
	}
	payload := synthesisPayload{
		Text:          text,
		Voice:         voice,
		Stability:     req.Stability,
		Similarity:    req.Similarity,
		OutputFormat:  "mp3_44100_128",
		NormalizeText: true,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidArgument, "", "tts synthesize", "encode body", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "tts synthesize", "build request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "tts synthesize", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, classifyStatus(resp.StatusCode, body)
	}
	if len(body) == 0 {
		return nil, services.Wrap(services.ErrTransient, "", "tts synthesize", "empty audio payload", nil)
	}
	return body, nil
}

// HealthCheck verifies the endpoint is reachable and the key is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.BaseURL == "" {
		return services.Wrap(services.ErrConfiguration, "", "tts health", "base url required", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.cfg.BaseURL, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "", "tts health", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return services.Wrap(services.ErrConfiguration, "", "tts health",
			fmt.Sprintf("authentication rejected (http %d)", resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return services.Wrap(services.ErrTransient, "", "tts health",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	return nil
}

func classifyStatus(status int, body []byte) error {
	detail := fmt.Sprintf("http %d: %s", status, summarizeSnippet(string(body)))
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "", "tts synthesize", detail, nil)
	default:
		return services.Wrap(services.ErrExternalTool, "", "tts synthesize", detail, nil)
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "", "tts synthesize", "deadline exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "", "tts synthesize", "network timeout", err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return services.Wrap(services.ErrTimeout, "", "tts synthesize", "network timeout", err)
	}
	return services.Wrap(services.ErrTransient, "", "tts synthesize", "http error", err)
}

func summarizeSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
