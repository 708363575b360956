package main

import (
	"github.com/spf13/cobra"

	gitsecretlog "github.com/gitsecret/gitsecret/internal/log"
)

// Global flag values.
var (
	verbose bool
	quiet   bool
)

// rootCmd is the base command for gitsecret.
var rootCmd = &cobra.Command{
	Use:   "gitsecret",
	Short: "Find and purge leaked credentials from a git repository",
	Long: `gitsecret scans a repository's working tree and commit history for
leaked credentials - passwords, API keys, tokens, connection strings, and
private keys - aggregates them into an author-attributed inventory, and can
rewrite history to remove the ones you confirm.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		gitsecretlog.Setup(verbose, quiet)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)
}
