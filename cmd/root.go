// Package cmd implements the agent service command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "virtual-ppo",
	Short: "Agentic orchestration service for product and portfolio management",
	Long: `virtual-ppo routes product-management requests to specialised agents,
runs their tool loops behind an autonomy gate and grounds answers in
Confluence and ingested knowledge documents.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, chatCmd, routeCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
