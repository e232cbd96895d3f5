// Package cmd implements the agentswarm command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentswarm",
	Short: "Tool execution and observability pipeline for AI-agent tools",
	Long: `agentswarm runs a catalog of API-wrapper tools through a shared
execution pipeline: parameter validation, result caching, rate-limit
admission, and per-invocation metrics recording.

Run "agentswarm serve" to expose the catalog over MCP, or use the
metrics commands to inspect recorded invocations.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
