package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "govern",
		Short: "CloudGovern - Infrastructure Governance Engine",
		Long: `CloudGovern evaluates infrastructure resources against governance
policies and compliance frameworks.

Features:
  - Trigger-mode policies with deny/warn/require_approval/notify actions
  - Assertion-mode compliance frameworks with scored, graded reports
  - Deny-wins aggregation across policies
  - Time-bounded waivers with expiry checked at query time
  - Bulk resource scanning with scope pre-filtering
  - Compliance trend tracking across stored reports`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newEvaluateCommand())
	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newPolicyCommand())
	rootCmd.AddCommand(newWaiverCommand())
	rootCmd.AddCommand(newReportCommand())

	return rootCmd
}
