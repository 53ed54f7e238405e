package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/store"
)

// openStore loads cfg's cache database, using cache_database_path if
// set and cache_dir/cache.sqlite3 otherwise.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	path := cfg.CacheDatabasePath
	if path == "" {
		path = store.DefaultDBPath(cfg.CacheDir)
	}
	return store.Open(ctx, path, cfg.Hash())
}

// debugFlag reports whether -d/--debug was set on cmd itself or
// inherited from the root command.
func debugFlag(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	if d, _ := cmd.Root().PersistentFlags().GetBool("debug"); d {
		debug = true
	}
	return debug
}
