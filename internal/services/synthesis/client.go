// Package synthesis wraps the external image/video generation command used by
// the images and video steps. The tool is driven over its CLI and reports
// progress as JSON lines on stdout.
package synthesis

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"reelsmith/internal/services"
)

var commandContext = exec.CommandContext

// ProgressUpdate captures synthesis progress events.
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Client defines the synthesis behaviour used by the pipeline stages.
type Client interface {
	GenerateImage(ctx context.Context, prompt, outputPath string, progress func(ProgressUpdate)) error
	AnimateImage(ctx context.Context, imagePath, outputPath, method string, progress func(ProgressUpdate)) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if strings.TrimSpace(binary) != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the synthesis command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "reelsmith-synth"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Binary returns the configured tool name.
func (c *CLI) Binary() string { return c.binary }

// GenerateImage renders a still image for the supplied prompt.
func (c *CLI) GenerateImage(ctx context.Context, prompt, outputPath string, progress func(ProgressUpdate)) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "synthesis image", "prompt required", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "synthesis image", "output path required", nil)
	}
	args := []string{"image", "--prompt", prompt, "--output", outputPath, "--progress-json"}
	return c.run(ctx, "synthesis image", args, progress)
}

// AnimateImage turns a still image into a short clip using the given method.
func (c *CLI) AnimateImage(ctx context.Context, imagePath, outputPath, method string, progress func(ProgressUpdate)) error {
	if strings.TrimSpace(imagePath) == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "synthesis animate", "image path required", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "synthesis animate", "output path required", nil)
	}
	method = strings.TrimSpace(method)
	if method == "" {
		method = "motion"
	}
	args := []string{"animate", "--input", imagePath, "--output", outputPath, "--method", method, "--progress-json"}
	return c.run(ctx, "synthesis animate", args, progress)
}

func (c *CLI) run(ctx context.Context, op string, args []string, progress func(ProgressUpdate)) error {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "", op, "stdout pipe", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return services.Wrap(services.ErrConfiguration, "", op,
				fmt.Sprintf("%s not found on PATH", c.binary), err)
		}
		return services.Wrap(services.ErrExternalTool, "", op, "start "+c.binary, err)
	}

	var lastLine string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lastLine = trimmed
		}
		var payload struct {
			Percent float64 `json:"percent"`
			Message string  `json:"message"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &payload); err != nil {
			continue
		}
		if progress != nil {
			progress(ProgressUpdate{Percent: payload.Percent, Message: payload.Message})
		}
	}
	if err := scanner.Err(); err != nil {
		return services.Wrap(services.ErrExternalTool, "", op, "read tool output", err)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return services.Wrap(services.ErrTimeout, "", op, "deadline exceeded", ctx.Err())
			}
			return ctx.Err()
		}
		detail := "tool failed"
		if lastLine != "" {
			detail = "tool failed: " + lastLine
		}
		return services.Wrap(services.ErrExternalTool, "", op, detail, err)
	}
	return nil
}

var _ Client = (*CLI)(nil)
