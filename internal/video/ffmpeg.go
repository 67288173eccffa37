package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Decoder turns video files into frame sources by shelling out to ffmpeg.
// The subprocess is an opaque boundary: the decoder only cares whether it
// produced frames or not.
type Decoder struct {
	ffmpegPath string
	logger     *zap.Logger // optional; when set, logs subprocess events
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger attaches a logger for subprocess diagnostics.
func WithLogger(l *zap.Logger) DecoderOption {
	return func(d *Decoder) { d.logger = l }
}

// NewDecoder creates a Decoder using the given ffmpeg binary (or "ffmpeg"
// from PATH when empty).
func NewDecoder(ffmpegPath string, opts ...DecoderOption) *Decoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	d := &Decoder{ffmpegPath: ffmpegPath}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open decodes the frames of a video file into a temporary directory and
// returns a Source over them. The cleanup function removes the extracted
// frames and must be called once the source is consumed. Deadlines on ctx
// bound the subprocess; on expiry the partial output is discarded and the
// error wraps ErrTimeout.
func (d *Decoder) Open(ctx context.Context, videoPath string) (Source, func(), error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, nil, fmt.Errorf("video file: %w", err)
	}

	dir, err := os.MkdirTemp("", "vidtrace-frames-")
	if err != nil {
		return nil, nil, fmt.Errorf("creating frame directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	// Frames are rescaled during extraction; feature extraction rescales
	// again to its fixed analysis plane, so this only bounds disk usage.
	pattern := filepath.Join(dir, "frame_%06d.jpg")
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vsync", "0",
		"-vf", "scale=256:-2",
		"-q:v", "2",
		pattern,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	cmd.Stderr = &stderr

	if d.logger != nil {
		d.logger.Debug("extracting frames",
			zap.String("video", videoPath),
			zap.String("ffmpeg", d.ffmpegPath))
	}

	if err := cmd.Run(); err != nil {
		cleanup()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("decoding %s: %w", videoPath, ErrTimeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, nil, fmt.Errorf("ffmpeg decode of %s failed: %s", videoPath, msg)
	}

	src, err := NewDirSource(dir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if src.FrameCount() == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("decoding %s: %w", videoPath, ErrInsufficientInput)
	}
	return src, cleanup, nil
}
