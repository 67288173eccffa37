package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vidtrace/vidtrace/internal/video"
)

// Encoder produces a degraded copy of a video at a given quality level.
// Higher quality values mean lossier output.
type Encoder interface {
	// Encode writes the re-encoded video and returns its path. The caller
	// removes the file when done.
	Encode(ctx context.Context, src string, quality int) (string, error)
}

// FFmpegEncoder re-encodes with libx264, mapping quality levels to CRF
// values. Audio is dropped; only the picture matters downstream.
type FFmpegEncoder struct {
	ffmpegPath string
	logger     *zap.Logger
}

// EncoderOption configures an FFmpegEncoder.
type EncoderOption func(*FFmpegEncoder)

// WithLogger attaches a logger for subprocess diagnostics.
func WithLogger(l *zap.Logger) EncoderOption {
	return func(e *FFmpegEncoder) { e.logger = l }
}

// NewFFmpegEncoder creates an encoder using the given ffmpeg binary (or
// "ffmpeg" from PATH when empty).
func NewFFmpegEncoder(ffmpegPath string, opts ...EncoderOption) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	e := &FFmpegEncoder{ffmpegPath: ffmpegPath}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *FFmpegEncoder) Encode(ctx context.Context, src string, quality int) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("video file: %w", err)
	}

	out, err := os.CreateTemp("", "vidtrace-reenc-*"+filepath.Ext(src))
	if err != nil {
		return "", fmt.Errorf("creating re-encode target: %w", err)
	}
	outPath := out.Name()
	out.Close()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", src,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(quality),
		"-preset", "veryfast",
		"-an",
		outPath,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if e.logger != nil {
		e.logger.Debug("re-encoding video",
			zap.String("video", src),
			zap.Int("quality", quality))
	}

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("re-encoding %s at quality %d: %w", src, quality, video.ErrTimeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("ffmpeg re-encode of %s at quality %d failed: %s", src, quality, msg)
	}
	return outPath, nil
}
