package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "vidtrace",
	Short: "Perceptual video fingerprinting and near-duplicate matching",
	Long: `vidtrace computes compact perceptual fingerprints of video files and
matches them against each other or a fingerprint store. Fingerprints
survive re-encoding, rescaling and mild compression artifacts, so the
same clip uploaded twice still hashes close together.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
