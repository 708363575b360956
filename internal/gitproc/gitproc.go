// Package gitproc wraps every external git (and git-adjacent tool)
// invocation the Scanner and Cleaner need: pickaxe history mining,
// working-tree file listing, backup-branch creation, reflog/gc, and
// capability probing + invocation of the three history-rewrite backends.
// All subprocess execution goes through testable.CommandExecutor so the
// Scanner and Cleaner can be exercised in tests without a real git binary.
package gitproc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gitsecret/gitsecret/internal/testable"
)

// Probe, backup, history-rewrite, and GC timeouts, per spec.md §5's
// resource bounds.
const (
	ProbeTimeout   = 5 * time.Second
	BackupTimeout  = 30 * time.Second
	RewriteTimeout = 600 * time.Second
	GCTimeout      = 120 * time.Second
)

// executor is the package-level CommandExecutor used by every helper below.
var executor testable.CommandExecutor = testable.DefaultExecutor()

// SetExecutor replaces the package-level CommandExecutor. Pass nil to
// restore the default production executor. Intended for tests.
func SetExecutor(e testable.CommandExecutor) {
	if e == nil {
		executor = testable.DefaultExecutor()
		return
	}
	executor = e
}

// Available returns nil if git is on PATH, or an error otherwise.
func Available() error {
	_, err := executor.LookPath("git")
	if err != nil {
		return fmt.Errorf("git not found on PATH: %w", err)
	}
	return nil
}

// Exec runs git with the given arguments in repoDir and returns its stdout
// (stderr is not included), buffered entirely in memory. Use Stream instead for pickaxe log
// output, which can be large.
func Exec(ctx context.Context, repoDir string, args ...string) (string, error) {
	cmd := executor.CommandContext(ctx, "git", args...)
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// Stream runs git with the given arguments in repoDir and invokes onLine
// once per line of stdout as it is produced, rather than buffering the
// entire output in memory. This is how pickaxe log output (which can be
// many megabytes for a keyword that matches a large history) is consumed.
// Stdout is drained fully before the process is awaited, so a backend that
// blocks on a full stdout pipe buffer can never deadlock this call.
func Stream(ctx context.Context, repoDir string, onLine func(string), args ...string) error {
	cmd := executor.CommandContext(ctx, "git", args...)
	cmd.Dir = repoDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("git %s: stdout pipe: %w", strings.Join(args, " "), err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("git %s: start: %w", strings.Join(args, " "), err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		return fmt.Errorf("git %s: %w", strings.Join(args, " "), waitErr)
	}
	if scanErr != nil && scanErr != io.EOF {
		return fmt.Errorf("git %s: reading output: %w", strings.Join(args, " "), scanErr)
	}
	return nil
}

// PickaxeArgs builds the argv for the history-mining git log invocation
// spec.md §4.C and §6 specify: a pickaxe filter on keyword, the
// COMMIT_START pretty header, patch output, scoped to branch (or every
// ref with "--all"), with a pathspec excluding every extension in
// excludeExts.
func PickaxeArgs(keyword, branch string, excludeExts []string) []string {
	args := []string{"log"}
	if branch != "" {
		args = append(args, branch)
	} else {
		args = append(args, "--all")
	}
	args = append(args,
		"-S"+keyword,
		"--pretty=format:COMMIT_START|%H|%an|%aI",
		"-p",
		"--",
		".",
	)
	for _, ext := range excludeExts {
		args = append(args, ":!*"+ext)
	}
	return args
}

// LsFiles runs `git ls-files` and returns every tracked path.
func LsFiles(ctx context.Context, repoDir string) ([]string, error) {
	out, err := Exec(ctx, repoDir, "ls-files")
	if err != nil {
		return nil, err
	}
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// CreateBranch runs `git branch <name>` pointing at the current HEAD.
func CreateBranch(ctx context.Context, repoDir, name string) error {
	_, err := Exec(ctx, repoDir, "branch", name)
	return err
}

// ReflogExpireAll runs `git reflog expire --expire=now --all`.
func ReflogExpireAll(ctx context.Context, repoDir string) error {
	_, err := Exec(ctx, repoDir, "reflog", "expire", "--expire=now", "--all")
	return err
}

// GCAggressive runs `git gc --prune=now --aggressive`.
func GCAggressive(ctx context.Context, repoDir string) error {
	_, err := Exec(ctx, repoDir, "gc", "--prune=now", "--aggressive")
	return err
}

// CurrentHeadSHA runs `git rev-parse HEAD` and returns the trimmed SHA.
func CurrentHeadSHA(ctx context.Context, repoDir string) (string, error) {
	out, err := Exec(ctx, repoDir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// probe runs name with args and a ProbeTimeout bound, reporting whether it
// exited successfully. Used by the backend-capability detectors below.
func probe(name string, args ...string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
	defer cancel()
	cmd := executor.CommandContext(ctx, name, args...)
	return cmd.Run() == nil
}

// HasFilterRepo reports whether `git filter-repo --version` succeeds.
func HasFilterRepo() bool {
	return probe("git", "filter-repo", "--version")
}

// HasBFG reports whether a `bfg` binary or a `bfg.jar` runnable via `java
// -jar` is available.
func HasBFG() (bool, bfgInvocation) {
	if probe("bfg", "--version") {
		return true, bfgInvocation{bin: "bfg"}
	}
	if probe("java", "-jar", "bfg.jar", "--version") {
		return true, bfgInvocation{bin: "java", jarArgs: []string{"-jar", "bfg.jar"}}
	}
	return false, bfgInvocation{}
}

// bfgInvocation captures how to invoke bfg: either the bare binary, or a
// fallback through `java -jar bfg.jar`.
type bfgInvocation struct {
	bin     string
	jarArgs []string
}

// Args returns the full argv prefix (binary + any jar args) to prepend to
// bfg's own arguments.
func (b bfgInvocation) Args(rest ...string) (string, []string) {
	return b.bin, append(append([]string{}, b.jarArgs...), rest...)
}

// HasFilterBranch reports whether `git filter-branch` can be used. It is
// bundled with git itself, so this only checks that git is on PATH; it does
// not run filter-branch to confirm it is present.
func HasFilterBranch() bool {
	return Available() == nil
}

// RunWithExecutor runs name(args...) in dir under timeout, returning
// combined stdout+stderr on failure for error messages.
func RunWithExecutor(ctx context.Context, dir, name string, timeout time.Duration, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	cmd := executor.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), msg)
	}
	return nil
}
