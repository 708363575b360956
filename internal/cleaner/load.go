package cleaner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// LoadResult is the secrets and provenance extracted from a scan artifact,
// ready to hand to Clean.
type LoadResult struct {
	Secrets    []string
	FilePaths  []string
	FileCounts map[string]int
	Source     string
}

type rawEntry struct {
	File   string `json:"file"`
	Value  string `json:"value"`
	Commit string `json:"commit"`
}

// loadAccumulator folds rawEntry records into a LoadResult, inferring
// Source from whether any entry carries a non-empty commit.
type loadAccumulator struct {
	secretsSeen map[string]bool
	secrets     []string
	filePaths   []string
	fileSeen    map[string]bool
	fileCounts  map[string]int
	sawHistory  bool
	sawCurrent  bool
}

func newLoadAccumulator() *loadAccumulator {
	return &loadAccumulator{
		secretsSeen: make(map[string]bool),
		fileSeen:    make(map[string]bool),
		fileCounts:  make(map[string]int),
	}
}

func (a *loadAccumulator) add(e rawEntry) {
	if e.Value != "" && !a.secretsSeen[e.Value] {
		a.secretsSeen[e.Value] = true
		a.secrets = append(a.secrets, e.Value)
	}
	if e.File != "" {
		if !a.fileSeen[e.File] {
			a.fileSeen[e.File] = true
			a.filePaths = append(a.filePaths, e.File)
		}
		a.fileCounts[e.File]++
	}
	if e.Commit != "" {
		a.sawHistory = true
	} else {
		a.sawCurrent = true
	}
}

func (a *loadAccumulator) source() string {
	switch {
	case a.sawHistory && a.sawCurrent:
		return "both"
	case a.sawHistory:
		return "history"
	default:
		return "current"
	}
}

func (a *loadAccumulator) result() *LoadResult {
	return &LoadResult{
		Secrets:    a.secrets,
		FilePaths:  a.filePaths,
		FileCounts: a.fileCounts,
		Source:     a.source(),
	}
}

// LoadSecretsFromJSONL reads a scan artifact as one JSON object per
// non-empty line.
func LoadSecretsFromJSONL(path string) (*LoadResult, error) {
	f, err := os.Open(path) //nolint:gosec // caller controls path
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	acc := newLoadAccumulator()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e rawEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		acc.add(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return acc.result(), nil
}

// LoadSecretsFromJSON reads a scan artifact in {"results": [...]} form and
// additionally sorts the secret list by length descending, so a
// history-rewrite pass replaces longer literals before any shorter one
// that happens to be a substring of it.
func LoadSecretsFromJSON(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller controls path
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var wrapper struct {
		Results []rawEntry `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	acc := newLoadAccumulator()
	for _, e := range wrapper.Results {
		acc.add(e)
	}
	result := acc.result()
	sort.SliceStable(result.Secrets, func(i, j int) bool {
		return len(result.Secrets[i]) > len(result.Secrets[j])
	})
	return result, nil
}
