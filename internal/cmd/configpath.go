package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nucle0tides/rosefs/internal/config"
)

var configPathCmd = &cobra.Command{
	Use:   "config-path",
	Short: "Print where rosefs expects its config file",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.ConfigPath())
	},
}

func init() {
	rootCmd.AddCommand(configPathCmd)
}
