package cleaner

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gitsecret/gitsecret/internal/gitproc"
)

// runHistoryBackend dispatches the history-rewrite pass to the named
// backend. Every backend writes its tempfile inside repoDir, since
// filter-repo and BFG both require this, and removes it on every exit
// path.
func runHistoryBackend(ctx context.Context, tool, repoDir string, patterns, secrets []string, opts Options) error {
	switch tool {
	case "filter-repo":
		return cleanWithFilterRepo(ctx, repoDir, patterns, opts)
	case "bfg":
		return cleanWithBFG(ctx, repoDir, secrets)
	default:
		return cleanWithFilterBranch(ctx, repoDir, patterns)
	}
}

// cleanWithFilterRepo writes one "regex:<pattern>===>***REMOVED***" line
// per batch to a tempfile and invokes `git filter-repo --replace-text`.
func cleanWithFilterRepo(ctx context.Context, repoDir string, patterns []string, opts Options) error {
	f, err := os.CreateTemp(repoDir, "gitsecret-replace-*.txt")
	if err != nil {
		return fmt.Errorf("create filter-repo tempfile: %w", err)
	}
	defer os.Remove(f.Name())

	var sb strings.Builder
	for _, p := range patterns {
		sb.WriteString("regex:")
		sb.WriteString(p)
		sb.WriteString("===>")
		sb.WriteString(removedPlaceholder)
		sb.WriteString("\n")
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		return fmt.Errorf("write filter-repo tempfile: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close filter-repo tempfile: %w", err)
	}

	args := []string{"filter-repo", "--replace-text", f.Name()}
	if opts.Force {
		args = append(args, "--force")
	}
	return gitproc.RunWithExecutor(ctx, repoDir, "git", gitproc.RewriteTimeout, args...)
}

// cleanWithBFG writes one raw secret per line (BFG's own replace-text
// format expects literal values, not regex patterns) and invokes bfg
// --replace-text, falling back to `java -jar bfg.jar` if the bare binary
// isn't on PATH.
func cleanWithBFG(ctx context.Context, repoDir string, secrets []string) error {
	f, err := os.CreateTemp(repoDir, "gitsecret-bfg-*.txt")
	if err != nil {
		return fmt.Errorf("create bfg tempfile: %w", err)
	}
	defer os.Remove(f.Name())

	var sb strings.Builder
	for _, s := range secrets {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		f.Close()
		return fmt.Errorf("write bfg tempfile: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close bfg tempfile: %w", err)
	}

	ok, invocation := gitproc.HasBFG()
	if !ok {
		return fmt.Errorf("bfg not available")
	}
	bin, args := invocation.Args("--replace-text", f.Name(), repoDir)
	return gitproc.RunWithExecutor(ctx, repoDir, bin, gitproc.RewriteTimeout, args...)
}

// cleanWithFilterBranch builds a sed script (one s~pattern~***REMOVED***~g
// per batch, escaping any literal "~" in the pattern) and runs it as a
// git filter-branch --tree-filter over every file outside .git.
func cleanWithFilterBranch(ctx context.Context, repoDir string, patterns []string) error {
	var exprs []string
	for _, p := range patterns {
		escaped := strings.ReplaceAll(p, "~", "\\~")
		exprs = append(exprs, fmt.Sprintf("s~%s~%s~g", escaped, removedPlaceholder))
	}
	script := strings.Join(exprs, ";")

	f, err := os.CreateTemp(repoDir, "gitsecret-filter-*.sed")
	if err != nil {
		return fmt.Errorf("create filter-branch sed script: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(script); err != nil {
		f.Close()
		return fmt.Errorf("write filter-branch sed script: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close filter-branch sed script: %w", err)
	}

	treeFilter := fmt.Sprintf(`find . -type f ! -path './.git*' -exec sed -i -f %s {} + 2>/dev/null || true`, f.Name())
	return gitproc.RunWithExecutor(ctx, repoDir, "git", gitproc.RewriteTimeout,
		"filter-branch", "-f", "--tree-filter", treeFilter, "--", "--all")
}
