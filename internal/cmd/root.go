package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rosefs",
	Short: "Mount a music library as a read/write filesystem",
	Long:  `rosefs synthesizes a browsable, editable FUSE view over a music library, backed by a durable cache of audio-tag and sidecar metadata.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file; not read: commands always load $XDG_CONFIG_HOME/rosefs/config.toml (or ~/.config/rosefs/config.toml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
}
