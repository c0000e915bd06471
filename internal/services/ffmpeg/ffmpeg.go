// Package ffmpeg wraps the ffmpeg and ffprobe command-line tools used to
// assemble clips and narration into the final render.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelsmith/internal/services"
)

var commandContext = exec.CommandContext

// Runner drives ffmpeg invocations.
type Runner struct {
	ffmpegBinary  string
	ffprobeBinary string
}

// Option configures the runner.
type Option func(*Runner)

// WithBinaries overrides the executable names.
func WithBinaries(ffmpegBin, ffprobeBin string) Option {
	return func(r *Runner) {
		if strings.TrimSpace(ffmpegBin) != "" {
			r.ffmpegBinary = ffmpegBin
		}
		if strings.TrimSpace(ffprobeBin) != "" {
			r.ffprobeBinary = ffprobeBin
		}
	}
}

// NewRunner constructs a runner using defaults.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{ffmpegBinary: "ffmpeg", ffprobeBinary: "ffprobe"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConcatWithAudio joins the clip files in order, lays the narration audio
// underneath, and writes the result to outputPath. The concat list file is
// written next to the output and removed on success.
func (r *Runner) ConcatWithAudio(ctx context.Context, clipPaths []string, audioPath, outputPath string) error {
	if len(clipPaths) == 0 {
		return services.Wrap(services.ErrInvalidArgument, "", "ffmpeg concat", "at least one clip required", nil)
	}
	if strings.TrimSpace(audioPath) == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "ffmpeg concat", "audio path required", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "ffmpeg concat", "output path required", nil)
	}

	listPath := outputPath + ".concat.txt"
	if err := writeConcatList(listPath, clipPaths); err != nil {
		return services.Wrap(services.ErrExternalTool, "", "ffmpeg concat", "write concat list", err)
	}
	defer os.Remove(listPath)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-shortest",
		outputPath,
	}
	return r.runFFmpeg(ctx, "ffmpeg concat", args)
}

// Export remuxes the assembled render into its final container without
// re-encoding.
func (r *Runner) Export(ctx context.Context, inputPath, outputPath string) error {
	if strings.TrimSpace(inputPath) == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "ffmpeg export", "input path required", nil)
	}
	if strings.TrimSpace(outputPath) == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "ffmpeg export", "output path required", nil)
	}
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-c", "copy", "-movflags", "+faststart",
		outputPath,
	}
	return r.runFFmpeg(ctx, "ffmpeg export", args)
}

// StillToClip renders a still image into a clip of the given duration, scaled
// to the target frame size. Used by the slideshow synthesis method.
func (r *Runner) StillToClip(ctx context.Context, imagePath, outputPath string, seconds float64, width, height, frameRate int) error {
	if strings.TrimSpace(imagePath) == "" {
		return services.Wrap(services.ErrInvalidArgument, "", "ffmpeg still", "image path required", nil)
	}
	if seconds <= 0 {
		return services.Wrap(services.ErrInvalidArgument, "", "ffmpeg still", "duration must be positive", nil)
	}
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		width, height, width, height)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1", "-i", imagePath,
		"-t", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-vf", filter,
		"-r", strconv.Itoa(frameRate),
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		outputPath,
	}
	return r.runFFmpeg(ctx, "ffmpeg still", args)
}

// MediaInfo summarizes probe results for a media file.
type MediaInfo struct {
	DurationSeconds float64
	HasVideo        bool
	HasAudio        bool
}

// Probe inspects a media file with ffprobe.
func (r *Runner) Probe(ctx context.Context, path string) (MediaInfo, error) {
	var info MediaInfo
	if strings.TrimSpace(path) == "" {
		return info, services.Wrap(services.ErrInvalidArgument, "", "ffprobe", "path required", nil)
	}
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	}
	cmd := commandContext(ctx, r.ffprobeBinary, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		return info, classifyRunError(ctx, "ffprobe", r.ffprobeBinary, err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return info, services.Wrap(services.ErrExternalTool, "", "ffprobe", "decode output", err)
	}
	if probe.Format.Duration != "" {
		if seconds, parseErr := strconv.ParseFloat(probe.Format.Duration, 64); parseErr == nil {
			info.DurationSeconds = seconds
		}
	}
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

func (r *Runner) runFFmpeg(ctx context.Context, op string, args []string) error {
	cmd := commandContext(ctx, r.ffmpegBinary, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return classifyRunError(ctx, op, r.ffmpegBinary, wrapStderr(err, stderr.String()))
	}
	return nil
}

func wrapStderr(err error, stderr string) error {
	tail := strings.TrimSpace(stderr)
	if tail == "" {
		return err
	}
	lines := strings.Split(tail, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return fmt.Errorf("%w: %s", err, strings.Join(lines, " | "))
}

func classifyRunError(ctx context.Context, op, binary string, err error) error {
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "", op, "deadline exceeded", ctx.Err())
		}
		return ctx.Err()
	}
	if errors.Is(err, exec.ErrNotFound) {
		return services.Wrap(services.ErrConfiguration, "", op, binary+" not found on PATH", err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return services.Wrap(services.ErrExternalTool, "", op,
			fmt.Sprintf("%s exited with code %d", binary, exitErr.ExitCode()), err)
	}
	return services.Wrap(services.ErrExternalTool, "", op, "run "+binary, err)
}

func writeConcatList(listPath string, clipPaths []string) error {
	var b strings.Builder
	for _, clip := range clipPaths {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", clip, err)
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return os.WriteFile(listPath, []byte(b.String()), 0o644)
}
