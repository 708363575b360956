// Package scanner implements the Scanner: a parallel, pickaxe-driven miner
// that fans out one subprocess per keyword against the repository's
// history, parses the resulting diff stream, extracts key/value candidates,
// filters against ignore lists, and merges results into a shared index
// under concurrent mutation. Streaming variants emit deduplicated JSONL
// instead of building the index fully in memory.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gitsecret/gitsecret/internal/diffstream"
	"github.com/gitsecret/gitsecret/internal/gitproc"
	"github.com/gitsecret/gitsecret/internal/secret"
	"github.com/gitsecret/gitsecret/internal/secretconfig"
	"github.com/gitsecret/gitsecret/internal/testable"
)

// DefaultMaxConcurrent is the bounded task-pool size used when
// Options.MaxConcurrent is zero.
const DefaultMaxConcurrent = 4

// MaxFileSize is the working-tree walk's per-file size cap.
const MaxFileSize = 1024 * 1024

// Options configures a history-mining scan.
type Options struct {
	// Branch to scan, or "" for every ref ("--all").
	Branch string
	// MaxConcurrent bounds the keyword task pool. Zero means
	// DefaultMaxConcurrent.
	MaxConcurrent int
	// OnProgress, if set, is invoked once per keyword dispatched, for CLI
	// progress reporting. A keyword task's failure is logged with slog.Debug
	// and is not reported through OnProgress.
	OnProgress func(string)
	// nowFunc returns the current time, overridable in tests.
	nowFunc func() time.Time
	// fs is the filesystem abstraction used by the working-tree walk.
	fs testable.FileSystem
}

func (o Options) now() time.Time {
	if o.nowFunc != nil {
		return o.nowFunc()
	}
	return time.Now()
}

func (o Options) fileSystem() testable.FileSystem {
	if o.fs != nil {
		return o.fs
	}
	return testable.DefaultFS
}

func (o Options) concurrency() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return DefaultMaxConcurrent
}

func (o Options) branchLabel() string {
	if o.Branch == "" {
		return "--all"
	}
	return o.Branch
}

// Scan performs a full in-memory aggregation over the repository's history:
// one subprocess per keyword, fanned out up to Options.MaxConcurrent, all
// merging into one shared secret.Index.
func Scan(ctx context.Context, cfg *secretconfig.Config, repoDir string, opts Options) (*secret.ScanResult, error) {
	idx := secret.NewIndex()
	if err := mineHistory(ctx, cfg, repoDir, opts, idx); err != nil {
		return nil, err
	}
	return buildResult(repoDir, opts.branchLabel(), idx, cfg, opts), nil
}

// mineHistory fans out one goroutine per keyword, each invoking the history
// driver and merging its events into idx. Per-task failures are swallowed:
// the overall scan always succeeds with whatever was merged before the
// failing task died, per spec.md §7.
func mineHistory(ctx context.Context, cfg *secretconfig.Config, repoDir string, opts Options, idx *secret.Index) error {
	keywords := cfg.AllKeywords()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency())

	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			if opts.OnProgress != nil {
				opts.OnProgress(fmt.Sprintf("Searching keyword %d/%d: %s", i+1, len(keywords), kw))
			}
			if err := mineKeyword(gctx, cfg, repoDir, kw, opts.Branch, idx); err != nil {
				slog.Debug("keyword scan failed", "keyword", kw, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// mineKeyword invokes the pickaxe-filtered history driver for one keyword
// and merges every accepted added-line event into idx.
func mineKeyword(ctx context.Context, cfg *secretconfig.Config, repoDir, keyword, branch string, idx *secret.Index) error {
	args := gitproc.PickaxeArgs(keyword, branch, cfg.ExcludeBinaryExtensions)

	var parser diffstream.Parser
	return gitproc.Stream(ctx, repoDir, func(line string) {
		ev, ok := parser.Feed(line)
		if !ok {
			return
		}
		if !strings.Contains(ev.Content, keyword) {
			return
		}
		key, value, ok := cfg.ExtractKeyValue(ev.Content)
		if !ok {
			return
		}
		if cfg.ShouldIgnoreFile(ev.File) {
			return
		}
		idx.Merge(ev.File, key, value, secret.Mask(value), ev.Commit, ev.Author, ev.Date)
	}, args...)
}

// buildResult finalizes idx into a ScanResult.
func buildResult(repoDir, branch string, idx *secret.Index, cfg *secretconfig.Config, opts Options) *secret.ScanResult {
	secrets := idx.Build(cfg.TypeForKey)
	return &secret.ScanResult{
		Repository:   repoDir,
		Branch:       branch,
		SecretsFound: len(secrets),
		TotalValues:  idx.TotalValues(),
		Secrets:      secrets,
		ScanDate:     opts.now().Format(time.RFC3339),
	}
}

// ScanBoth runs a full history scan and a working-tree scan and unions the
// results. On a (file,key) collision the history-side secret wins outright
// — its record replaces the working-tree one entirely, rather than merging
// the two histories — since a value still present in HEAD already shows up
// in the history scan's own last commit. See DESIGN.md Open Question 1.
func ScanBoth(ctx context.Context, cfg *secretconfig.Config, repoDir string, opts Options) (*secret.ScanResult, error) {
	historyResult, err := Scan(ctx, cfg, repoDir, opts)
	if err != nil {
		return nil, err
	}
	currentResult, err := ScanCurrent(cfg, repoDir, opts)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(historyResult.Secrets))
	for _, s := range historyResult.Secrets {
		seen[s.File+"\x00"+s.Key] = true
	}

	merged := append([]*secret.Secret{}, historyResult.Secrets...)
	totalValues := historyResult.TotalValues
	for _, s := range currentResult.Secrets {
		if seen[s.File+"\x00"+s.Key] {
			continue
		}
		merged = append(merged, s)
		totalValues += len(s.History)
	}
	secret.SortSecretsByFileKey(merged)

	return &secret.ScanResult{
		Repository:   repoDir,
		Branch:       opts.branchLabel(),
		SecretsFound: len(merged),
		TotalValues:  totalValues,
		Secrets:      merged,
		ScanDate:     opts.now().Format(time.RFC3339),
	}, nil
}

// AllValues flattens every distinct value across result.Secrets, sorted by
// length descending (longer values tend to be the more interesting ones to
// eyeball first), ported from the Python original's get_all_values helper.
// No CLI command calls it; the package's tests use it.
func AllValues(result *secret.ScanResult) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range result.Secrets {
		for _, vh := range s.History {
			if seen[vh.Value] {
				continue
			}
			seen[vh.Value] = true
			out = append(out, vh.Value)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i]) > len(out[j])
	})
	return out
}
