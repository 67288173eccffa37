package video

import (
	"errors"
	"image"
	"io"
	"math"
)

// SampleIndices returns the frame indices selected for a clip of total frames
// with an upper bound of maxFrames. When the clip fits the bound, every index
// is returned in order. Otherwise indices are uniformly spaced across the
// whole clip, always including the first and last frame. The same inputs
// always produce the same index set.
func SampleIndices(total, maxFrames int) []int {
	if total <= 0 || maxFrames <= 0 {
		return nil
	}
	if total <= maxFrames {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	if maxFrames == 1 {
		return []int{0}
	}

	indices := make([]int, 0, maxFrames)
	step := float64(total-1) / float64(maxFrames-1)
	prev := -1
	for i := 0; i < maxFrames; i++ {
		idx := int(math.Round(float64(i) * step))
		if idx == prev {
			continue
		}
		indices = append(indices, idx)
		prev = idx
	}
	return indices
}

// Sample drains a source and returns the frames at the sampled positions in
// original order. Individual frames that fail to decode are skipped; the
// returned count reports how many were dropped. It fails with
// ErrInsufficientInput when not a single sampled frame decodes.
func Sample(src Source, maxFrames int) ([]image.Image, int, error) {
	total := src.FrameCount()
	if total == 0 {
		return nil, 0, ErrInsufficientInput
	}

	wanted := make(map[int]bool, maxFrames)
	for _, idx := range SampleIndices(total, maxFrames) {
		wanted[idx] = true
	}

	var frames []image.Image
	skipped := 0
	for pos := 0; ; pos++ {
		frame, err := src.NextFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if wanted[pos] {
				skipped++
			}
			continue
		}
		if wanted[pos] {
			frames = append(frames, frame)
		}
	}

	if len(frames) == 0 {
		return nil, skipped, ErrInsufficientInput
	}
	return frames, skipped, nil
}
