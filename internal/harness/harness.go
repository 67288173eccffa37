package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/vidtrace/vidtrace/internal/fingerprint"
)

// FingerprintFunc fingerprints one video file. It is injected so the harness
// logic can be tested without ffmpeg.
type FingerprintFunc func(ctx context.Context, path string) (*fingerprint.Fingerprint, error)

// videoExtensions are the file types picked up when scanning a directory.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
}

// Harness measures how well fingerprints survive lossy re-encoding: every
// input video is degraded at each quality level, fingerprinted again, and
// compared against the fingerprint of the original.
type Harness struct {
	encoder     Encoder
	fingerprint FingerprintFunc
	logger      *zap.Logger
}

// Options bound one harness run.
type Options struct {
	Qualities []int // quality levels to test, higher = lossier
	Threshold int   // match threshold applied to each comparison
	Workers   int   // parallel (video, quality) items; <=0 falls back to 4
	Progress  bool  // render a terminal progress bar
}

// ItemResult is the outcome for one (video, quality) pair. A failed item
// carries its error inline instead of aborting the run.
type ItemResult struct {
	Video      string
	Quality    int
	Distance   int
	Similarity float64
	Match      bool
	Err        error
}

// QualityStats aggregates all items at one quality level.
type QualityStats struct {
	Quality      int
	Items        int // completed comparisons
	Failures     int
	Matches      int
	MatchRate    float64 // matches / items
	MinDistance  int
	MaxDistance  int
	MeanDistance float64
}

// Report is the result of one harness run.
type Report struct {
	Videos int
	Items  []ItemResult
	Stats  []QualityStats
}

func New(encoder Encoder, fp FingerprintFunc, logger *zap.Logger) *Harness {
	return &Harness{encoder: encoder, fingerprint: fp, logger: logger}
}

// ListVideos returns the video files directly inside dir, sorted by name.
func ListVideos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading video directory: %w", err)
	}

	var videos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if videoExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			videos = append(videos, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(videos)
	return videos, nil
}

// Run executes the harness over the given videos. Individual item failures
// are reported inline; only an empty input or a cancelled context fail the
// whole run.
func (h *Harness) Run(ctx context.Context, videos []string, opts Options) (*Report, error) {
	if len(videos) == 0 {
		return nil, fmt.Errorf("no videos to test")
	}
	if len(opts.Qualities) == 0 {
		return nil, fmt.Errorf("no quality levels to test")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.Default(int64(len(videos)*len(opts.Qualities)), "robustness")
	}

	items := make([]ItemResult, 0, len(videos)*len(opts.Qualities))
	var mu sync.Mutex

	semaphore := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, videoPath := range videos {
		if ctx.Err() != nil {
			break
		}

		// The original is fingerprinted once, then shared by every quality.
		original, err := h.fingerprint(ctx, videoPath)
		if err != nil {
			mu.Lock()
			for _, q := range opts.Qualities {
				items = append(items, ItemResult{Video: videoPath, Quality: q,
					Err: fmt.Errorf("fingerprinting original: %w", err)})
			}
			mu.Unlock()
			if bar != nil {
				_ = bar.Add(len(opts.Qualities))
			}
			continue
		}

		for _, quality := range opts.Qualities {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			semaphore <- struct{}{}
			go func(videoPath string, quality int, original *fingerprint.Fingerprint) {
				defer wg.Done()
				defer func() { <-semaphore }()

				item := h.runItem(ctx, videoPath, quality, original, opts.Threshold)

				mu.Lock()
				items = append(items, item)
				mu.Unlock()
				if bar != nil {
					_ = bar.Add(1)
				}
			}(videoPath, quality, original)
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Video != items[j].Video {
			return items[i].Video < items[j].Video
		}
		return items[i].Quality < items[j].Quality
	})

	return &Report{
		Videos: len(videos),
		Items:  items,
		Stats:  aggregate(items, opts.Qualities),
	}, nil
}

// runItem degrades one video at one quality and compares fingerprints.
func (h *Harness) runItem(ctx context.Context, videoPath string, quality int, original *fingerprint.Fingerprint, threshold int) ItemResult {
	item := ItemResult{Video: videoPath, Quality: quality}

	encoded, err := h.encoder.Encode(ctx, videoPath, quality)
	if err != nil {
		item.Err = err
		return item
	}
	defer os.Remove(encoded)

	degraded, err := h.fingerprint(ctx, encoded)
	if err != nil {
		item.Err = fmt.Errorf("fingerprinting re-encoded video: %w", err)
		return item
	}

	distance, err := original.Distance(degraded)
	if err != nil {
		item.Err = err
		return item
	}

	item.Distance = distance
	item.Similarity = fingerprint.Similarity(distance, original.Len())
	item.Match = distance < threshold

	if h.logger != nil {
		h.logger.Debug("robustness item done",
			zap.String("video", videoPath),
			zap.Int("quality", quality),
			zap.Int("distance", distance),
			zap.Bool("match", item.Match))
	}
	return item
}

// aggregate folds items into per-quality statistics, ordered like qualities.
func aggregate(items []ItemResult, qualities []int) []QualityStats {
	byQuality := make(map[int]*QualityStats, len(qualities))
	for _, q := range qualities {
		byQuality[q] = &QualityStats{Quality: q}
	}

	for _, item := range items {
		stats, ok := byQuality[item.Quality]
		if !ok {
			continue
		}
		if item.Err != nil {
			stats.Failures++
			continue
		}
		if stats.Items == 0 || item.Distance < stats.MinDistance {
			stats.MinDistance = item.Distance
		}
		if item.Distance > stats.MaxDistance {
			stats.MaxDistance = item.Distance
		}
		stats.MeanDistance += float64(item.Distance)
		stats.Items++
		if item.Match {
			stats.Matches++
		}
	}

	result := make([]QualityStats, 0, len(qualities))
	for _, q := range qualities {
		stats := byQuality[q]
		if stats.Items > 0 {
			stats.MeanDistance /= float64(stats.Items)
			stats.MatchRate = float64(stats.Matches) / float64(stats.Items)
		}
		result = append(result, *stats)
	}
	return result
}
