package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitsecret/gitsecret/internal/cleaner"
	"github.com/gitsecret/gitsecret/internal/redact"
)

// Clean-specific flag values.
var (
	cleanTool      string
	cleanSource    string
	cleanDryRun    bool
	cleanForce     bool
	cleanNoBackup  bool
	cleanJSON      bool
	cleanListTools bool
)

// cleanCmd is the subcommand for purging identified secrets from a
// repository's working tree and/or history.
var cleanCmd = &cobra.Command{
	Use:   "clean <scan-file> [path]",
	Short: "Purge leaked credentials from a repository",
	Long: `Load secrets from a scan artifact (the JSONL output of 'gitsecret scan
--stream', or a JSON file holding those events under a "results" key) and
rewrite the repository to remove them, creating a backup branch
first unless --no-backup is given. Use --dry-run to preview without
mutating anything.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if cleanListTools {
			return cobra.MaximumNArgs(0)(cmd, args)
		}
		return cobra.RangeArgs(1, 2)(cmd, args)
	},
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanTool, "tool", "auto", "history rewrite backend (auto, filter-repo, bfg, filter-branch)")
	cleanCmd.Flags().StringVar(&cleanSource, "source", "", "what to clean: current, history, or both (default: inferred from the scan artifact)")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "preview the operation without mutating the repository")
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "pass --force through to filter-repo")
	cleanCmd.Flags().BoolVar(&cleanNoBackup, "no-backup", false, "skip creating a backup branch before mutation")
	cleanCmd.Flags().BoolVar(&cleanJSON, "json", false, "print the result as JSON instead of a summary line")
	cleanCmd.Flags().BoolVar(&cleanListTools, "list-tools", false, "report which history-rewrite backends are available on this machine and exit")
}

func runClean(cmd *cobra.Command, args []string) error {
	if cleanListTools {
		return runCleanListTools(cmd)
	}

	scanFile := args[0]
	repoPath := "."
	if len(args) > 1 {
		repoPath = args[1]
	}
	absPath, err := resolveRepoPath(repoPath)
	if err != nil {
		return err
	}

	loaded, err := loadCleanSecrets(scanFile)
	if err != nil {
		return err
	}
	if len(loaded.Secrets) == 0 {
		return exitError(ExitInvalidArgs, "gitsecret: %q contains no secrets to clean", scanFile)
	}
	redact.AddKnownSecrets(loaded.Secrets)

	source := cleanSource
	if source == "" {
		source = loaded.Source
	}

	opts := cleaner.Options{
		Tool:      cleanTool,
		Source:    source,
		FilePaths: loaded.FilePaths,
		DryRun:    cleanDryRun,
		Force:     cleanForce,
		NoBackup:  cleanNoBackup,
		OnProgress: func(msg string) {
			slog.Debug(msg)
		},
	}

	result, err := cleaner.Clean(cmd.Context(), absPath, loaded.Secrets, opts)
	if err != nil {
		return exitError(ExitTotalFailure, "gitsecret: clean failed (%v)", err)
	}

	if err := writeCleanResult(cmd, result); err != nil {
		return err
	}

	if !result.Success {
		return exitError(cleanExitCode(result), "")
	}
	return nil
}

// runCleanListTools reports which history-rewrite backends this machine can
// run, without touching any repository.
func runCleanListTools(cmd *cobra.Command) error {
	tools := cleaner.AvailableTools()

	if cleanJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(tools); err != nil {
			return exitError(ExitTotalFailure, "gitsecret: writing tool list failed (%v)", err)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	for _, name := range []string{"filter-repo", "bfg", "filter-branch"} {
		status := "not available"
		if tools[name] {
			status = "available"
		}
		_, _ = fmt.Fprintf(out, "%-14s %s\n", name, status)
	}
	return nil
}

func loadCleanSecrets(path string) (*cleaner.LoadResult, error) {
	var (
		loaded *cleaner.LoadResult
		err    error
	)
	if jsonlPath(path) {
		loaded, err = cleaner.LoadSecretsFromJSONL(path)
	} else {
		loaded, err = cleaner.LoadSecretsFromJSON(path)
	}
	if err != nil {
		return nil, exitError(ExitInvalidArgs, "gitsecret: cannot load %q (%v)", path, err)
	}
	return loaded, nil
}

// cleanExitCode classifies a failed *cleaner.Result by which stage of
// Clean produced its message. Backup-branch creation and the post-clean
// reflog/gc pass are bookkeeping around the actual rewrite: backup failure
// means no mutation was even attempted, and gc failure means the rewrite
// already landed, so both degrade to ExitPartialFailure. A failure in the
// rewrite itself (working tree or history) means the requested secrets were
// not actually removed, which is ExitTotalFailure.
func cleanExitCode(result *cleaner.Result) int {
	switch {
	case strings.HasPrefix(result.Message, "Failed to create backup branch:"):
		return ExitPartialFailure
	case strings.HasPrefix(result.Message, "Failed to clean up git:"):
		return ExitPartialFailure
	default:
		return ExitTotalFailure
	}
}

func jsonlPath(path string) bool {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i:] == ".jsonl"
		case '/':
			return false
		}
	}
	return false
}

func writeCleanResult(cmd *cobra.Command, result *cleaner.Result) error {
	if cleanJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return exitError(ExitTotalFailure, "gitsecret: writing result failed (%v)", err)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	if result.DryRun {
		_, _ = fmt.Fprintf(out, "gitsecret: %s\n", result.Message)
		for _, preview := range result.PreviewSecrets {
			_, _ = fmt.Fprintf(out, "  %s\n", preview)
		}
		return nil
	}
	_, _ = fmt.Fprintf(out, "gitsecret: %s\n", result.Message)
	if result.BackupBranch != "" {
		_, _ = fmt.Fprintf(out, "  backup branch: %s\n", result.BackupBranch)
	}
	return nil
}
