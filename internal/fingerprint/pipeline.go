package fingerprint

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/vidtrace/vidtrace/internal/features"
	"github.com/vidtrace/vidtrace/internal/video"
)

// Options bound one fingerprint computation.
type Options struct {
	Params    Params
	MaxFrames int // sampling bound; <=0 falls back to 60
	Workers   int // parallel feature extractions; <=0 falls back to 4
}

// Info reports how a fingerprint was obtained.
type Info struct {
	FramesSampled int // frames that contributed features
	FramesSkipped int // sampled frames dropped for decode failures
	BitCount      int // set bits in the resulting fingerprint
}

// Compute runs the full pipeline for one video: sample frames, extract
// features in parallel, aggregate and project. Feature extraction is a pure
// per-frame function, so frames fan out across a bounded worker pool; the
// mean aggregation makes completion order irrelevant to the result.
func Compute(ctx context.Context, src video.Source, opts Options) (*Fingerprint, *Info, error) {
	maxFrames := opts.MaxFrames
	if maxFrames <= 0 {
		maxFrames = 60
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	frames, skipped, err := video.Sample(src, maxFrames)
	if err != nil {
		return nil, nil, err
	}

	vectors, err := extractAll(ctx, frames, workers)
	if err != nil {
		return nil, nil, err
	}

	aggregate, err := Aggregate(vectors)
	if err != nil {
		return nil, nil, err
	}

	fp, err := Project(aggregate, opts.Params)
	if err != nil {
		return nil, nil, err
	}

	return fp, &Info{
		FramesSampled: len(frames),
		FramesSkipped: skipped,
		BitCount:      fp.BitCount(),
	}, nil
}

// extractAll runs feature extraction for every frame on a bounded worker
// pool. Any single extraction failure aborts the whole video.
func extractAll(ctx context.Context, frames []image.Image, workers int) ([][]float64, error) {
	vectors := make([][]float64, len(frames))
	errs := make([]error, len(frames))

	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, frame image.Image) {
			defer wg.Done()
			defer func() { <-semaphore }()
			vectors[i], errs[i] = features.Extract(frame)
		}(i, frame)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("extracting features from frame %d: %w", i, err)
		}
	}
	return vectors, nil
}
