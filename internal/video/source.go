package video

import (
	"errors"
	"image"
	"io"
)

var (
	// ErrInsufficientInput is returned when a source yields no decodable frames.
	ErrInsufficientInput = errors.New("video: no decodable frames")

	// ErrTimeout is returned when an external decode or encode call exceeds
	// the caller's deadline.
	ErrTimeout = errors.New("video: external operation timed out")
)

// Source yields a decoded frame sequence. Implementations are not required to
// be safe for concurrent use; a source is consumed by one sampler at a time.
type Source interface {
	// NextFrame returns the next decoded frame. It returns io.EOF after the
	// last frame. Any other error marks a single undecodable frame; the
	// caller may skip it and continue.
	NextFrame() (image.Image, error)

	// FrameCount returns the total number of frames the source will attempt
	// to yield, including frames that later fail to decode.
	FrameCount() int
}

// SliceSource serves frames from an in-memory slice.
type SliceSource struct {
	frames []image.Image
	pos    int
}

// NewSliceSource creates a Source over already-decoded frames.
func NewSliceSource(frames []image.Image) *SliceSource {
	return &SliceSource{frames: frames}
}

func (s *SliceSource) NextFrame() (image.Image, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *SliceSource) FrameCount() int {
	return len(s.frames)
}
