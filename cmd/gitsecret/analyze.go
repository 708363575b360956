package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitsecret/gitsecret/internal/analyzer"
	"github.com/gitsecret/gitsecret/internal/output"
	"github.com/gitsecret/gitsecret/internal/secret"
)

// Analyze-specific flag values.
var (
	analyzeFormat string
	analyzeOutput string
)

// analyzeCmd is the subcommand for aggregating a scan artifact into ranked
// statistics.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <scan-file>",
	Short: "Aggregate a scan artifact into ranked statistics",
	Long: `Read a scan artifact and fold it into a two-level, author-attributed
inventory with ranked statistics, rendered as text, JSON, or CSV. The
artifact is the JSONL output of 'gitsecret scan --stream', or a JSON file
holding those events as a bare array or under a "results" key.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "output format (text, json, csv)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output file path (default: stdout)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]

	formatter, err := output.GetFormatter(analyzeFormat)
	if err != nil {
		return exitError(ExitInvalidArgs, "gitsecret: %v", err)
	}

	analysis, err := loadAnalysis(path)
	if err != nil {
		return err
	}

	w, closeFn, err := openAnalyzeOutput(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := formatter.Format(analysis, w); err != nil {
		return exitError(ExitTotalFailure, "gitsecret: formatting failed (%v)", err)
	}

	slog.Info("analysis complete", "secrets", len(analysis.Secrets))
	return nil
}

// loadAnalysis dispatches to AnalyzeJSON or AnalyzeJSONL by file extension,
// defaulting to JSONL for anything not ending in ".json" (the scan
// artifact's --stream output has no fixed extension convention).
func loadAnalysis(path string) (*secret.Analysis, error) {
	opts := analyzer.Options{
		Progress: func(n int) {
			slog.Debug("analyzing", "lines", n)
		},
	}

	var (
		analysis *secret.Analysis
		err      error
	)
	if strings.HasSuffix(path, ".json") {
		analysis, err = analyzer.AnalyzeJSON(path, opts)
	} else {
		analysis, err = analyzer.AnalyzeJSONL(path, opts)
	}
	if err != nil {
		return nil, exitError(ExitInvalidArgs, "gitsecret: cannot analyze %q (%v)", path, err)
	}
	return analysis, nil
}

func openAnalyzeOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	if analyzeOutput == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := cmdFS.Create(analyzeOutput)
	if err != nil {
		return nil, nil, exitError(ExitInvalidArgs, "gitsecret: cannot create output file %q (%v)", analyzeOutput, err)
	}
	return f, func() { _ = f.Close() }, nil
}
