// Package cli implements the staffxp command-line interface using Cobra.
// Each subcommand maps to one engine operation (act, stats, badges, etc.).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "staffxp",
	Short: "staffxp: gamification engine for hotel staff",
	Long: `staffxp turns hotel operations work into XP, levels, ranks, badges and
weekly challenges.

Run 'staffxp serve' for the HTTP API, or use the other commands to record
actions and inspect progress directly against the configured store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
