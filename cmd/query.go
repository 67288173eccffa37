package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidtrace/vidtrace/internal/config"
	"github.com/vidtrace/vidtrace/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query [video]",
	Short: "Find stored near-duplicates of a video",
	Long: `Fingerprint a video (or parse a fingerprint string with --hash-input)
and list every stored record within the match threshold, closest first.

The default search scans the whole store and misses nothing. With
--approx an in-memory index answers faster on large stores; candidates
are still verified exactly, but a true match can occasionally be
missed.

Examples:
  # Who already uploaded this clip?
  vidtrace query suspicious.mp4

  # Restrict the search to one platform and the top 5 hits
  vidtrace query --platform youtube --limit 5 suspicious.mp4

  # Query by a stored fingerprint instead of a file
  vidtrace query --hash-input "$(cat clip.fp)"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().Int("threshold", 0, "Match threshold (default from VIDTRACE_MATCH_THRESHOLD)")
	queryCmd.Flags().String("platform", "", "Only match records from this platform")
	queryCmd.Flags().Int("limit", 0, "Maximum number of matches (0 = unlimited)")
	queryCmd.Flags().Bool("approx", false, "Use the approximate in-memory index")
	queryCmd.Flags().Bool("hash-input", false, "Treat the argument as a fingerprint string")
	queryCmd.Flags().Bool("json", false, "Output as JSON")
}

// QueryMatch is the JSON shape of one match.
type QueryMatch struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	Platform   string    `json:"platform,omitempty"`
	Note       string    `json:"note,omitempty"`
	Distance   int       `json:"distance"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueryOutput is the JSON shape of the query command.
type QueryOutput struct {
	Query     string       `json:"query"`
	Threshold int          `json:"threshold"`
	Matches   []QueryMatch `json:"matches"`
	Count     int          `json:"count"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	threshold := mustGetInt(cmd, "threshold")
	platform := mustGetString(cmd, "platform")
	limit := mustGetInt(cmd, "limit")
	approx := mustGetBool(cmd, "approx")
	hashInput := mustGetBool(cmd, "hash-input")
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	if threshold <= 0 {
		threshold = cfg.Hash.MatchThreshold
	}
	logger := newLogger()
	defer logger.Sync()

	ctx := context.Background()
	fp, err := resolveFingerprint(ctx, cfg, logger, args[0], hashInput)
	if err != nil {
		return err
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	matches, err := s.QuerySimilar(ctx, fp, threshold, store.QueryOptions{
		Platform: platform,
		Limit:    limit,
		Approx:   approx,
	})
	if err != nil {
		return err
	}

	results := make([]QueryMatch, len(matches))
	for i, m := range matches {
		results[i] = QueryMatch{
			ID:         m.Record.ID,
			SourceID:   m.Record.SourceID,
			Platform:   m.Record.Platform,
			Note:       m.Record.Note,
			Distance:   m.Distance,
			Similarity: m.Similarity,
			CreatedAt:  m.Record.CreatedAt,
		}
	}

	if jsonOutput {
		if err := json.NewEncoder(os.Stdout).Encode(QueryOutput{
			Query: args[0], Threshold: threshold, Matches: results, Count: len(results),
		}); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}
		return nil
	}

	if len(results) == 0 {
		fmt.Printf("No matches within threshold %d\n", threshold)
		return nil
	}

	fmt.Printf("Found %d matches:\n\n", len(results))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tPLATFORM\tDISTANCE\tSIMILARITY\tCREATED")
	fmt.Fprintln(w, "--\t------\t--------\t--------\t----------\t-------")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f%%\t%s\n",
			r.ID, r.SourceID, r.Platform, r.Distance, r.Similarity,
			r.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()
	return nil
}
