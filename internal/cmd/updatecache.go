package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/index"
)

var updateCacheCmd = &cobra.Command{
	Use:   "update-cache",
	Short: "Re-scan the music source directory into the cache",
	RunE:  runUpdateCache,
}

func init() {
	rootCmd.AddCommand(updateCacheCmd)
	updateCacheCmd.Flags().Bool("force", false, "re-read every release, ignoring mtime shortcuts")
}

func runUpdateCache(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer st.Close()

	force, _ := cmd.Flags().GetBool("force")

	ix := index.New(cfg, st)
	if err := ix.UpdateCache(ctx, force); err != nil {
		return fmt.Errorf("update cache: %w", err)
	}

	fmt.Println("Cache updated.")
	return nil
}
