// Package cleaner implements the Cleaner: backup-branch creation, a
// working-tree rewrite pass, and a history-rewrite pass dispatched to one
// of three external backends (git-filter-repo, BFG, git filter-branch),
// selected automatically by capability probe or pinned by the caller.
package cleaner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gitsecret/gitsecret/internal/gitproc"
	"github.com/gitsecret/gitsecret/internal/secret"
	"github.com/gitsecret/gitsecret/internal/testable"
)

// removedPlaceholder replaces every matched secret occurrence, in both the
// working-tree pass and every history-rewrite backend.
const removedPlaceholder = "***REMOVED***"

// patternBatchSize is the maximum number of regex-escaped secrets joined
// into one alternation pattern.
const patternBatchSize = 100

// Options configures a Clean invocation.
type Options struct {
	// Tool pins the backend ("filter-repo", "bfg", "filter-branch"), or
	// "auto" (the default) to pick the first available in that order.
	Tool string
	// Source scopes the rewrite: "current", "history", or "both" (default).
	Source string
	// FilePaths restricts the working-tree pass to these paths. Empty means
	// every tracked path.
	FilePaths []string
	// DryRun previews the operation without mutating anything.
	DryRun bool
	// Force is passed through to filter-repo as --force.
	Force bool
	// NoBackup skips creating a backup branch before mutation.
	NoBackup bool
	// OnProgress, if set, reports coarse-grained progress messages.
	OnProgress func(string)
	// fs is the filesystem abstraction used by the working-tree pass,
	// overridable in tests.
	fs testable.FileSystem
}

func (o Options) fileSystem() testable.FileSystem {
	if o.fs != nil {
		return o.fs
	}
	return testable.DefaultFS
}

func (o Options) source() string {
	if o.Source == "" {
		return "both"
	}
	return o.Source
}

// Result is the outcome of a Clean invocation.
type Result struct {
	Tool           string   `json:"tool"`
	Source         string   `json:"source"`
	SecretsRemoved int      `json:"secretsRemoved"`
	PatternsUsed   int      `json:"patternsUsed"`
	FilesModified  int      `json:"filesModified"`
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	BackupBranch   string   `json:"backupBranch"`
	DryRun         bool     `json:"dryRun"`
	PreviewSecrets []string `json:"previewSecrets,omitempty"`
}

// Clean removes every occurrence of secrets from repoDir's working tree
// and/or history, per opts.Source.
func Clean(ctx context.Context, repoDir string, secrets []string, opts Options) (*Result, error) {
	if len(secrets) == 0 {
		return &Result{Success: true, Message: "No secrets to clean"}, nil
	}

	source := opts.source()
	result := &Result{Source: source, DryRun: opts.DryRun}

	tool := opts.Tool
	if tool == "" || tool == "auto" {
		tool = SelectBestTool()
	}
	result.Tool = tool

	patterns := groupSecretsIntoPatterns(secrets)
	result.PatternsUsed = len(patterns)

	if opts.DryRun {
		result.Success = true
		result.PreviewSecrets = maskPreview(secrets)
		result.Message = fmt.Sprintf("Dry run: would remove %d secrets using %s", len(secrets), tool)
		return result, nil
	}

	if !opts.NoBackup {
		branch := fmt.Sprintf("backup-before-clean-%d", os.Getpid())
		if err := gitproc.RunWithExecutor(ctx, repoDir, "git", gitproc.BackupTimeout, "branch", branch); err != nil {
			result.Message = fmt.Sprintf("Failed to create backup branch: %v", err)
			return result, nil
		}
		result.BackupBranch = branch
	}

	if source == "current" || source == "both" {
		modified, err := cleanWorkingTree(ctx, repoDir, secrets, opts)
		if err != nil {
			result.Message = fmt.Sprintf("Failed to clean working tree: %v", err)
			return result, nil
		}
		result.FilesModified = modified
	}

	if source == "history" || source == "both" {
		if err := runHistoryBackend(ctx, tool, repoDir, patterns, secrets, opts); err != nil {
			result.Message = fmt.Sprintf("Failed to clean history with %s: %v", tool, err)
			return result, nil
		}
	}

	if err := gitproc.ReflogExpireAll(ctx, repoDir); err != nil {
		result.Message = fmt.Sprintf("Failed to clean up git: %v", err)
		return result, nil
	}
	if err := gitproc.GCAggressive(ctx, repoDir); err != nil {
		result.Message = fmt.Sprintf("Failed to clean up git: %v", err)
		return result, nil
	}

	result.Success = true
	result.SecretsRemoved = len(secrets)
	result.Message = fmt.Sprintf("Successfully cleaned %d secrets from %s", len(secrets), source)
	return result, nil
}

// cleanWorkingTree replaces every occurrence of every secret with
// removedPlaceholder across opts.FilePaths (or every tracked path when
// empty), writing back only files whose content actually changed.
func cleanWorkingTree(ctx context.Context, repoDir string, secrets []string, opts Options) (int, error) {
	paths := opts.FilePaths
	if len(paths) == 0 {
		tracked, err := gitproc.LsFiles(ctx, repoDir)
		if err != nil {
			return 0, err
		}
		paths = tracked
	}

	fsys := opts.fileSystem()
	modified := 0
	for _, rel := range paths {
		full := filepath.Join(repoDir, rel)
		data, err := fsys.ReadFile(full)
		if err != nil {
			continue
		}
		original := string(data)
		content := original
		for _, s := range secrets {
			content = strings.ReplaceAll(content, s, removedPlaceholder)
		}
		if content == original {
			continue
		}
		if err := fsys.WriteFile(full, []byte(content), 0o644); err != nil {
			continue
		}
		modified++
	}
	return modified, nil
}

// groupSecretsIntoPatterns regex-escapes and batches secrets into
// alternation patterns of up to patternBatchSize each.
func groupSecretsIntoPatterns(secrets []string) []string {
	var patterns []string
	var batch []string
	for _, s := range secrets {
		batch = append(batch, regexp.QuoteMeta(s))
		if len(batch) >= patternBatchSize {
			patterns = append(patterns, strings.Join(batch, "|"))
			batch = nil
		}
	}
	if len(batch) > 0 {
		patterns = append(patterns, strings.Join(batch, "|"))
	}
	return patterns
}

// maskPreview masks up to the first 10 secrets for a dry-run preview.
func maskPreview(secrets []string) []string {
	n := len(secrets)
	if n > 10 {
		n = 10
	}
	preview := make([]string, n)
	for i := 0; i < n; i++ {
		preview[i] = secret.Mask(secrets[i])
	}
	return preview
}

// AvailableTools reports which of the three history-rewrite backends are
// usable on this machine.
func AvailableTools() map[string]bool {
	hasBFG, _ := gitproc.HasBFG()
	return map[string]bool{
		"filter-repo":   gitproc.HasFilterRepo(),
		"bfg":           hasBFG,
		"filter-branch": gitproc.HasFilterBranch(),
	}
}

// SelectBestTool returns the first available backend in priority order:
// filter-repo, bfg, filter-branch (always available whenever git is).
func SelectBestTool() string {
	if gitproc.HasFilterRepo() {
		return "filter-repo"
	}
	if ok, _ := gitproc.HasBFG(); ok {
		return "bfg"
	}
	return "filter-branch"
}
