package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "discordkit",
	Short: "discordkit runs a Discord bot behind a deferred client facade",
	Long: `discordkit configures a Discord bot from a YAML file, queues presence
changes, announcements and listener registrations until the gateway
session is ready, and replays them in order once it is.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}
