package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vidtrace/vidtrace/internal/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the fingerprint store",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("json", false, "Output as JSON")
}

// StatsOutput is the JSON shape of the stats command.
type StatsOutput struct {
	Total      int            `json:"total"`
	ByPlatform map[string]int `json:"by_platform"`
	Oldest     *time.Time     `json:"oldest,omitempty"`
	Newest     *time.Time     `json:"newest,omitempty"`
	Seed       string         `json:"seed"`
	HashBits   int            `json:"hash_bits"`
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg := config.Load()
	ctx := context.Background()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		out := StatsOutput{
			Total:      stats.Total,
			ByPlatform: stats.ByPlatform,
			Seed:       cfg.Hash.SeedLabel,
			HashBits:   cfg.Hash.HashBits,
		}
		if stats.Total > 0 {
			out.Oldest = &stats.Oldest
			out.Newest = &stats.Newest
		}
		if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}
		return nil
	}

	fmt.Printf("Records:   %d\n", stats.Total)
	fmt.Printf("Seed:      %s\n", cfg.Hash.SeedLabel)
	fmt.Printf("Hash bits: %d\n", cfg.Hash.HashBits)
	if stats.Total == 0 {
		return nil
	}
	fmt.Printf("Oldest:    %s\n", stats.Oldest.Format(time.RFC3339))
	fmt.Printf("Newest:    %s\n", stats.Newest.Format(time.RFC3339))

	platforms := make([]string, 0, len(stats.ByPlatform))
	for p := range stats.ByPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tRECORDS")
	for _, p := range platforms {
		name := p
		if name == "" {
			name = "(untagged)"
		}
		fmt.Fprintf(w, "%s\t%d\n", name, stats.ByPlatform[p])
	}
	w.Flush()
	return nil
}
