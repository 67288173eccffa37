package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidtrace/vidtrace/internal/config"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Remove fingerprint records from the store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, id := range args {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return nil
}
