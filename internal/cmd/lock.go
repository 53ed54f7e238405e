package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nucle0tides/rosefs/internal/config"
)

// lockCmd is a debugging aid: acquire a named cache lock, then release
// it immediately, to confirm a lock isn't stuck held by a dead process.
var lockCmd = &cobra.Command{
	Use:   "lock <name>",
	Short: "Acquire and immediately release a named cache lock",
	Args:  cobra.ExactArgs(1),
	RunE:  runLock,
}

func init() {
	rootCmd.AddCommand(lockCmd)
	lockCmd.Flags().Duration("timeout", 5*time.Second, "how long to wait for the lock")
}

func runLock(cmd *cobra.Command, args []string) error {
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

	timeout, _ := cmd.Flags().GetDuration("timeout")

	unlock, err := st.Lock(ctx, args[0], timeout)
	if err != nil {
		return fmt.Errorf("lock %q: %w", args[0], err)
	}
	unlock()

	fmt.Printf("lock %q is free.\n", args[0])
	return nil
}
