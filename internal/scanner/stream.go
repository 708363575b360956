package scanner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gitsecret/gitsecret/internal/diffstream"
	"github.com/gitsecret/gitsecret/internal/gitproc"
	"github.com/gitsecret/gitsecret/internal/secret"
	"github.com/gitsecret/gitsecret/internal/secretconfig"
)

// ScanStream mines history keyword by keyword, sequentially (not fanned
// out, unlike Scan), emitting one JSONL line per newly observed distinct
// (file,key,value) triple as it is found. Sequential mining trades Scan's
// concurrency for a bounded, constant memory footprint: only the dedup set
// of keys seen so far is held, never the full diff output of every keyword
// at once.
func ScanStream(ctx context.Context, cfg *secretconfig.Config, repoDir string, w io.Writer, opts Options) error {
	enc := json.NewEncoder(w)
	seen := make(map[string]bool)

	keywords := cfg.AllKeywords()
	for i, kw := range keywords {
		if opts.OnProgress != nil {
			opts.OnProgress(fmt.Sprintf("Searching keyword %d/%d: %s", i+1, len(keywords), kw))
		}
		if err := streamKeyword(ctx, cfg, repoDir, kw, opts, seen, enc); err != nil {
			slog.Debug("keyword scan failed", "keyword", kw, "error", err)
		}
	}
	return nil
}

// streamKeyword drives one keyword's pickaxe output through the diff-stream
// parser, writing a StreamEntry for every triple not already in seen.
func streamKeyword(ctx context.Context, cfg *secretconfig.Config, repoDir, keyword string, opts Options, seen map[string]bool, enc *json.Encoder) error {
	args := gitproc.PickaxeArgs(keyword, opts.Branch, cfg.ExcludeBinaryExtensions)

	var parser diffstream.Parser
	var encodeErr error
	err := gitproc.Stream(ctx, repoDir, func(line string) {
		if encodeErr != nil {
			return
		}
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
		dedupKey := ev.File + "\x00" + key + "\x00" + value
		if seen[dedupKey] {
			return
		}
		seen[dedupKey] = true

		encodeErr = enc.Encode(secret.StreamEntry{
			File:        ev.File,
			Key:         key,
			Value:       value,
			MaskedValue: secret.Mask(value),
			Type:        cfg.TypeForKey(key),
			Commit:      ev.Commit,
			Author:      ev.Author,
			Date:        ev.Date,
		})
	}, args...)
	if err != nil {
		return err
	}
	return encodeErr
}

// ScanCurrentStream walks the working tree exactly as ScanCurrent does, but
// emits one JSONL StreamEntry per newly observed (file,key,value) triple
// instead of building an in-memory ScanResult.
func ScanCurrentStream(cfg *secretconfig.Config, repoDir string, w io.Writer, opts Options) error {
	enc := json.NewEncoder(w)
	seen := make(map[string]bool)
	now := opts.now()

	var encodeErr error
	err := walkWorkingTree(cfg, repoDir, opts, func(relPath, line string) {
		if encodeErr != nil {
			return
		}
		for _, kw := range cfg.AllKeywords() {
			if !strings.Contains(line, kw) {
				continue
			}
			key, value, ok := cfg.ExtractKeyValue(line)
			if !ok {
				return
			}
			dedupKey := relPath + "\x00" + key + "\x00" + value
			if seen[dedupKey] {
				return
			}
			seen[dedupKey] = true

			encodeErr = enc.Encode(secret.StreamEntry{
				File:        relPath,
				Key:         key,
				Value:       value,
				MaskedValue: secret.Mask(value),
				Type:        cfg.TypeForKey(key),
				Commit:      "HEAD",
				Author:      "",
				Date:        now.Format(time.RFC3339),
			})
			return
		}
	})
	if err != nil {
		return err
	}
	return encodeErr
}

// ScanBothStream runs the history stream, then the working-tree stream,
// both writing into the same seen-set — so a (file,key,value) triple
// already emitted by the history pass is never re-emitted by the
// working-tree pass. Unlike ScanBoth, this is a first-write-wins policy at
// the individual value level, not a history-wins-at-the-(file,key)-level
// policy: the streaming path never materializes either side fully in
// memory, so it has nothing to compare full histories against before
// emitting. See DESIGN.md Open Question 1.
func ScanBothStream(ctx context.Context, cfg *secretconfig.Config, repoDir string, w io.Writer, opts Options) error {
	enc := json.NewEncoder(w)
	seen := make(map[string]bool)

	keywords := cfg.AllKeywords()
	for i, kw := range keywords {
		if opts.OnProgress != nil {
			opts.OnProgress(fmt.Sprintf("Searching keyword %d/%d: %s", i+1, len(keywords), kw))
		}
		if err := streamKeyword(ctx, cfg, repoDir, kw, opts, seen, enc); err != nil {
			slog.Debug("keyword scan failed", "keyword", kw, "error", err)
		}
	}

	now := opts.now()
	var encodeErr error
	err := walkWorkingTree(cfg, repoDir, opts, func(relPath, line string) {
		if encodeErr != nil {
			return
		}
		for _, kw := range cfg.AllKeywords() {
			if !strings.Contains(line, kw) {
				continue
			}
			key, value, ok := cfg.ExtractKeyValue(line)
			if !ok {
				return
			}
			dedupKey := relPath + "\x00" + key + "\x00" + value
			if seen[dedupKey] {
				return
			}
			seen[dedupKey] = true

			encodeErr = enc.Encode(secret.StreamEntry{
				File:        relPath,
				Key:         key,
				Value:       value,
				MaskedValue: secret.Mask(value),
				Type:        cfg.TypeForKey(key),
				Commit:      "HEAD",
				Author:      "",
				Date:        now.Format(time.RFC3339),
			})
			return
		}
	})
	if err != nil {
		return err
	}
	return encodeErr
}

// decodeStreamJSONL reads one secret.StreamEntry per line. This package's
// tests use it to read back ScanStream output; the Analyzer has its own
// JSONL reader.
func decodeStreamJSONL(r io.Reader) ([]secret.StreamEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	var out []secret.StreamEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e secret.StreamEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("decoding stream entry: %w", err)
		}
		out = append(out, e)
	}
	return out, scanner.Err()
}
