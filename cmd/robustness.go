package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vidtrace/vidtrace/internal/config"
	"github.com/vidtrace/vidtrace/internal/fingerprint"
	"github.com/vidtrace/vidtrace/internal/harness"
)

var robustnessCmd = &cobra.Command{
	Use:   "robustness [dir]",
	Short: "Measure fingerprint stability under lossy re-encoding",
	Long: `Re-encode every video in a directory at several quality levels,
fingerprint the degraded copies and compare them against the originals.

The report shows, per quality level, how far fingerprints drift and how
often they still fall below the match threshold. Useful for validating a
threshold before rolling it out.

Examples:
  # Run with the configured quality presets
  vidtrace robustness ./samples

  # Test specific CRF levels
  vidtrace robustness --qualities 23,33,43 ./samples`,
	Args: cobra.ExactArgs(1),
	RunE: runRobustness,
}

func init() {
	rootCmd.AddCommand(robustnessCmd)

	robustnessCmd.Flags().IntSlice("qualities", nil, "Quality levels to test (default from presets)")
	robustnessCmd.Flags().Int("threshold", 0, "Match threshold (default from VIDTRACE_MATCH_THRESHOLD)")
	robustnessCmd.Flags().Int("workers", 0, "Parallel items (default from VIDTRACE_WORKERS)")
	robustnessCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRobustness(cmd *cobra.Command, args []string) error {
	qualities := mustGetIntSlice(cmd, "qualities")
	threshold := mustGetInt(cmd, "threshold")
	workers := mustGetInt(cmd, "workers")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	if len(qualities) == 0 {
		qualities = cfg.Harness.Qualities
	}
	if threshold <= 0 {
		threshold = cfg.Hash.MatchThreshold
	}
	if workers <= 0 {
		workers = cfg.Harness.Workers
	}
	logger := newLogger()
	defer logger.Sync()

	videos, err := harness.ListVideos(args[0])
	if err != nil {
		return err
	}

	encoder := harness.NewFFmpegEncoder(cfg.Encoder.FFmpegPath, harness.WithLogger(logger))
	fingerprintFn := func(ctx context.Context, path string) (*fingerprint.Fingerprint, error) {
		fp, _, err := fingerprintFile(ctx, cfg, logger, path)
		return fp, err
	}

	h := harness.New(encoder, fingerprintFn, logger)
	report, err := h.Run(context.Background(), videos, harness.Options{
		Qualities: qualities,
		Threshold: threshold,
		Workers:   workers,
		Progress:  !jsonOutput,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}
		return nil
	}

	fmt.Printf("\nTested %d videos at %d quality levels (threshold %d):\n\n",
		report.Videos, len(qualities), threshold)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "QUALITY\tITEMS\tFAILURES\tMATCH RATE\tMIN\tMEAN\tMAX")
	for _, s := range report.Stats {
		fmt.Fprintf(w, "%d\t%d\t%d\t%.0f%%\t%d\t%.1f\t%d\n",
			s.Quality, s.Items, s.Failures, s.MatchRate*100,
			s.MinDistance, s.MeanDistance, s.MaxDistance)
	}
	w.Flush()

	var failed int
	for _, item := range report.Items {
		if item.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("\n%d items failed:\n", failed)
		for _, item := range report.Items {
			if item.Err != nil {
				fmt.Printf("  %s @ quality %d: %v\n", item.Video, item.Quality, item.Err)
			}
		}
	}
	return nil
}
