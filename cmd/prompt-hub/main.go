/*
Package main is the entry point for the prompt-hub CLI.

prompt-hub manages engagement with prompt registry resources: ratings,
feedback, and opt-in usage telemetry for bundles and profiles, stored
locally and optionally synced to hub discussion threads on GitHub.

Usage:
  prompt-hub [command]

Available Commands:
  rate        Rate a resource from 1 to 5 stars
  feedback    Submit, list, search, and delete feedback
  telemetry   Record, inspect, clear, and toggle usage telemetry
  stats       Show ratings, feedback, and usage for a resource
  hub         Add, remove, and list prompt hubs
  refresh     Refresh cached rating and feedback aggregates from hubs
  vote        Toggle a thumbs-up or thumbs-down on a hub discussion
  version     Print the prompt-hub version
  help        Help about any command

Examples:
  # Rate a bundle
  prompt-hub rate my-bundle 5

  # Leave feedback
  prompt-hub feedback add my-bundle "Great starting point"

  # Register a community hub
  prompt-hub hub add community --repo example/community-hub
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptreg/prompt-hub/internal/cli"
	"github.com/promptreg/prompt-hub/internal/logging"
	"github.com/promptreg/prompt-hub/internal/version"
)

// Version information (set via ldflags during build)
var (
	commit = "none"
	date   = "unknown"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "prompt-hub",
		Short: "Engagement client for prompt registry hubs",
		Long: `prompt-hub records ratings, feedback, and opt-in usage telemetry for
prompt registry resources (bundles, profiles, hubs).

Everything is stored locally under ~/.prompt-hub. Hubs backed by GitHub
Discussions additionally sync ratings as reactions and feedback as
comments, degrading to local-only storage when the network or token is
unavailable. Telemetry is off until explicitly enabled and never leaves
the machine.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(cli.NewRateCmd())
	rootCmd.AddCommand(cli.NewFeedbackCmd())
	rootCmd.AddCommand(cli.NewTelemetryCmd())
	rootCmd.AddCommand(cli.NewStatsCmd())
	rootCmd.AddCommand(cli.NewHubCmd())
	rootCmd.AddCommand(cli.NewRefreshCmd())
	rootCmd.AddCommand(cli.NewVoteCmd())
	rootCmd.AddCommand(cli.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
