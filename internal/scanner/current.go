package scanner

import (
	"bufio"
	"bytes"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gitsecret/gitsecret/internal/secret"
	"github.com/gitsecret/gitsecret/internal/secretconfig"
)

// ScanCurrent walks the working tree (pruning .git) and searches every
// eligible file for keyword hits, recording commit="HEAD" and the current
// time as each event's date, per spec.md §4.C.
func ScanCurrent(cfg *secretconfig.Config, repoDir string, opts Options) (*secret.ScanResult, error) {
	idx := secret.NewIndex()
	if err := walkWorkingTree(cfg, repoDir, opts, func(relPath, line string) {
		matchWorkingTreeLine(cfg, idx, relPath, line, opts.now())
	}); err != nil {
		return nil, err
	}
	return buildResult(repoDir, "HEAD", idx, cfg, opts), nil
}

// matchWorkingTreeLine extracts at most one event per line: the first
// keyword the line contains wins, per spec.md's "on first keyword hit,
// extract once and record" rule.
func matchWorkingTreeLine(cfg *secretconfig.Config, idx *secret.Index, relPath, line string, now time.Time) {
	for _, kw := range cfg.AllKeywords() {
		if !strings.Contains(line, kw) {
			continue
		}
		key, value, ok := cfg.ExtractKeyValue(line)
		if !ok {
			return
		}
		idx.Merge(relPath, key, value, secret.Mask(value), "HEAD", "", now.Format(time.RFC3339))
		return
	}
}

// walkWorkingTree recursively descends repoDir (pruning any directory named
// ".git"), rejecting ignored/binary/oversized files, and invokes onLine once
// per line of every remaining file's lossily-UTF8-decoded text.
func walkWorkingTree(cfg *secretconfig.Config, repoDir string, opts Options, onLine func(relPath, line string)) error {
	fsys := opts.fileSystem()

	return fsys.WalkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(repoDir, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if cfg.ShouldIgnoreFile(relPath) {
			return nil
		}
		if hasExcludedExtension(relPath, cfg.ExcludeBinaryExtensions) {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > MaxFileSize {
			return nil
		}

		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil
		}
		eachLine(data, func(line string) { onLine(relPath, line) })
		return nil
	})
}

func hasExcludedExtension(path string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// eachLine splits data into lines, decoding lossily so a file containing
// invalid UTF-8 (a near-binary text file, say) is still scanned rather than
// rejected outright.
func eachLine(data []byte, fn func(string)) {
	if !utf8.Valid(data) {
		data = bytes.ToValidUTF8(data, []byte("�"))
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), MaxFileSize+1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
}
