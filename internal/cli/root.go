// Package cli implements the memlens command line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memlens",
	Short: "Memory activation engine for conversational agents",
	Long: "Memlens scores stored memories against presented contexts and surfaces " +
		"the relevant ones as content-free awareness, with adaptive thresholds and " +
		"lifecycle management.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
}
