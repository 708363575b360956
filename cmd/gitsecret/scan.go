package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gitsecret/gitsecret/internal/repoinfo"
	"github.com/gitsecret/gitsecret/internal/scanner"
	"github.com/gitsecret/gitsecret/internal/secretconfig"
)

// Scan-specific flag values.
var (
	scanMode        string
	scanBranch      string
	scanConcurrency int
	scanConfig      string
	scanOutput      string
	scanStream      bool
)

// scanCmd is the subcommand for mining a repository for leaked credentials.
var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a repository for leaked credentials",
	Long: `Scan a repository's working tree and/or commit history for leaked
credentials and write the findings as an aggregated JSON result, or with
--stream as deduplicated JSONL. The JSONL form is what 'gitsecret analyze'
and 'gitsecret clean' read; neither accepts the aggregated JSON result.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanMode, "mode", "both", "what to scan: history, current, or both")
	scanCmd.Flags().StringVar(&scanBranch, "branch", "", "branch to mine (default: current branch's history, or --all if undetectable)")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "max concurrent keyword tasks (default: 4)")
	scanCmd.Flags().StringVar(&scanConfig, "config", "", "path to patterns.json (default: auto-discovered, falling back to built-in defaults)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "output file path (default: stdout)")
	scanCmd.Flags().BoolVar(&scanStream, "stream", false, "write deduplicated JSONL instead of an aggregated JSON result")
}

func runScan(cmd *cobra.Command, args []string) error {
	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}
	absPath, err := resolveRepoPath(repoPath)
	if err != nil {
		return err
	}

	switch scanMode {
	case "history", "current", "both":
	default:
		return exitError(ExitInvalidArgs, "gitsecret: --mode must be one of history, current, both (got %q)", scanMode)
	}

	cfg, err := loadScanConfig()
	if err != nil {
		return err
	}

	branch := scanBranch
	if branch == "" && scanMode != "current" {
		if repo, openErr := repoinfo.Open(absPath); openErr == nil {
			if b, branchErr := repo.CurrentBranch(); branchErr == nil {
				branch = b
			}
		}
	}

	opts := scanner.Options{
		Branch:        branch,
		MaxConcurrent: scanConcurrency,
		OnProgress: func(msg string) {
			slog.Debug(msg)
		},
	}

	w, closeFn, err := openScanOutput(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()

	if scanStream {
		return runScanStream(ctx, cfg, absPath, opts, w)
	}
	return runScanAggregate(ctx, cfg, absPath, opts, w)
}

func loadScanConfig() (*secretconfig.Config, error) {
	if scanConfig != "" {
		cfg, err := secretconfig.Load(scanConfig)
		if err != nil {
			return nil, exitError(ExitInvalidArgs, "gitsecret: cannot load config %q (%v)", scanConfig, err)
		}
		return cfg, nil
	}
	cfg, err := secretconfig.LoadAuto()
	if err != nil {
		return nil, exitError(ExitInvalidArgs, "gitsecret: cannot load patterns config (%v)", err)
	}
	return cfg, nil
}

// openScanOutput opens --output for writing, or falls back to the command's
// stdout. The returned close func is always safe to call.
func openScanOutput(cmd *cobra.Command) (io.Writer, func(), error) {
	if scanOutput == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := cmdFS.Create(scanOutput)
	if err != nil {
		return nil, nil, exitError(ExitInvalidArgs, "gitsecret: cannot create output file %q (%v)", scanOutput, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func runScanAggregate(ctx context.Context, cfg *secretconfig.Config, repoDir string, opts scanner.Options, w io.Writer) error {
	var (
		result interface{}
		err    error
	)
	switch scanMode {
	case "current":
		result, err = scanner.ScanCurrent(cfg, repoDir, opts)
	case "history":
		result, err = scanner.Scan(ctx, cfg, repoDir, opts)
	default:
		result, err = scanner.ScanBoth(ctx, cfg, repoDir, opts)
	}
	if err != nil {
		return exitError(ExitTotalFailure, "gitsecret: scan failed (%v)", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return exitError(ExitTotalFailure, "gitsecret: writing scan result failed (%v)", err)
	}
	slog.Info("scan complete")
	return nil
}

func runScanStream(ctx context.Context, cfg *secretconfig.Config, repoDir string, opts scanner.Options, w io.Writer) error {
	var err error
	switch scanMode {
	case "current":
		err = scanner.ScanCurrentStream(cfg, repoDir, w, opts)
	case "history":
		err = scanner.ScanStream(ctx, cfg, repoDir, w, opts)
	default:
		err = scanner.ScanBothStream(ctx, cfg, repoDir, w, opts)
	}
	if err != nil {
		return exitError(ExitTotalFailure, "gitsecret: scan failed (%v)", err)
	}
	slog.Info("scan complete")
	return nil
}
