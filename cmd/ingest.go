package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vidtrace/vidtrace/internal/config"
	"github.com/vidtrace/vidtrace/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [video...]",
	Short: "Fingerprint videos and add them to the store",
	Long: `Fingerprint one or more videos and persist them in the configured
store. Records are immutable: ingesting the same file again creates a
new record rather than updating the old one.

Examples:
  # Ingest a single upload with its origin
  vidtrace ingest --platform youtube --note "takedown #123" clip.mp4

  # Bulk ingest a directory worth of files
  vidtrace ingest *.mp4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("platform", "", "Platform tag for the ingested videos")
	ingestCmd.Flags().String("note", "", "Free-form note stored with each record")
	ingestCmd.Flags().String("source-id", "", "Source identifier (defaults to the file path; single video only)")
	ingestCmd.Flags().Bool("json", false, "Output as JSON")
}

// IngestOutput is the JSON shape for one ingested video.
type IngestOutput struct {
	ID            string `json:"id"`
	SourceID      string `json:"source_id"`
	Platform      string `json:"platform,omitempty"`
	Fingerprint   string `json:"fingerprint"`
	FramesSampled int    `json:"frames_sampled"`
	Err           string `json:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	platform := mustGetString(cmd, "platform")
	note := mustGetString(cmd, "note")
	sourceID := mustGetString(cmd, "source-id")
	jsonOutput := mustGetBool(cmd, "json")

	if sourceID != "" && len(args) > 1 {
		return fmt.Errorf("--source-id only makes sense with a single video")
	}

	cfg := config.Load()
	logger := newLogger()
	defer logger.Sync()

	ctx := context.Background()
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	var bar *progressbar.ProgressBar
	if !jsonOutput && len(args) > 1 {
		bar = progressbar.Default(int64(len(args)), "ingesting")
	}

	var outputs []IngestOutput
	var failures int
	for _, path := range args {
		out := ingestOne(ctx, cfg, logger, s, path, platform, note, sourceID)
		if out.Err != "" {
			failures++
			logger.Warn("ingest failed", zap.String("video", path), zap.String("error", out.Err))
		}
		outputs = append(outputs, out)
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if jsonOutput {
		if err := json.NewEncoder(os.Stdout).Encode(outputs); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}
	} else {
		for _, out := range outputs {
			if out.Err != "" {
				fmt.Printf("FAILED  %s: %s\n", out.SourceID, out.Err)
				continue
			}
			fmt.Printf("Ingested %s as %s (%d frames)\n", out.SourceID, out.ID, out.FramesSampled)
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d videos failed to ingest", failures, len(args))
	}
	return nil
}

func ingestOne(ctx context.Context, cfg *config.Config, logger *zap.Logger, s store.Store, path, platform, note, sourceID string) IngestOutput {
	if sourceID == "" {
		sourceID = path
	}
	out := IngestOutput{SourceID: sourceID, Platform: platform}

	fp, info, err := fingerprintFile(ctx, cfg, logger, path)
	if err != nil {
		out.Err = err.Error()
		return out
	}

	rec := store.Record{
		SourceID:    sourceID,
		Platform:    platform,
		Note:        note,
		Fingerprint: fp,
		FrameCount:  info.FramesSampled,
	}
	if err := s.Insert(ctx, &rec); err != nil {
		out.Err = err.Error()
		return out
	}

	out.ID = rec.ID
	out.Fingerprint = fp.Hex()
	out.FramesSampled = info.FramesSampled
	return out
}
