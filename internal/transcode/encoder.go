package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"watch-transcoder/internal/quality"
)

// EncodeRequest describes one invocation of the external encoder.
type EncodeRequest struct {
	InputPath  string
	OutputPath string
	Preset     quality.Preset
}

// Encoder runs an external encode process. Implementations must honor
// context cancellation by terminating the process.
type Encoder interface {
	Encode(ctx context.Context, req EncodeRequest) error
}

// ErrEncodeTimeout indicates the encode exceeded its maximum wall-clock
// duration and was forcibly terminated.
var ErrEncodeTimeout = errors.New("encode timed out")

// EncodeError describes an encode process that exited abnormally.
type EncodeError struct {
	ExitCode int
	Stderr   string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encoder exited with code %d: %s", e.ExitCode, e.Stderr)
}

// stderrTailLines bounds the diagnostic captured from a failed encode.
const stderrTailLines = 20

// FFmpeg encodes media files by shelling out to ffmpeg.
type FFmpeg struct{}

// NewFFmpeg creates the ffmpeg-backed Encoder.
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{}
}

// Encode transcodes req.InputPath to req.OutputPath using the preset's
// fixed parameters. The output container is always mp4 with faststart
// so renditions are streamable as soon as the file is published.
func (f *FFmpeg) Encode(ctx context.Context, req EncodeRequest) error {
	args := []string{
		"-i", req.InputPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-b:v", req.Preset.VideoBitrate,
		"-b:a", req.Preset.AudioBitrate,
		"-s", req.Preset.Resolution,
		"-crf", strconv.Itoa(req.Preset.CRF),
		"-preset", "fast",
		"-movflags", "+faststart",
		"-y",
		req.OutputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrEncodeTimeout
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &EncodeError{ExitCode: exitCode, Stderr: stderrTail(stderr.String())}
	}

	return nil
}

// stderrTail returns the last stderrTailLines lines of the process's
// error stream, enough to diagnose most ffmpeg failures without storing
// megabytes of log output per job.
func stderrTail(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
