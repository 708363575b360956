// Package analyzer implements the Analyzer: a two-level aggregator that
// folds a flat StreamEntry event stream (read from a JSON or JSONL scan
// artifact) into a (file,key)-indexed structure with per-value history,
// temporal bounds, author sets, and ranked statistics.
package analyzer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/gitsecret/gitsecret/internal/secret"
)

// ProgressFunc is invoked periodically while streaming a large JSONL
// artifact so a caller can report progress. n is the number of lines
// consumed so far.
type ProgressFunc func(n int)

// Options configures analysis input handling.
type Options struct {
	// Progress, if set, is invoked every 1000 JSONL lines consumed.
	Progress ProgressFunc
}

// entryAgg accumulates everything observed for one (file,key) pair while
// folding the event stream, before finalize sorts it into a secret.Secret.
type entryAgg struct {
	file, key, typ string
	values         map[string]*valueAgg
	authors        map[string]bool
	dates          []string
	changeCount    int
}

type valueAgg struct {
	occurrences int
	authors     map[string]bool
	dates       []string
}

// index folds entries keyed by "file|key", preserving first-seen order for
// deterministic (but not yet sorted) output.
type index struct {
	order   []string
	entries map[string]*entryAgg
}

func newIndex() *index {
	return &index{entries: make(map[string]*entryAgg)}
}

func (ix *index) add(e secret.StreamEntry) {
	k := e.File + "|" + e.Key
	agg, ok := ix.entries[k]
	if !ok {
		agg = &entryAgg{
			file:    e.File,
			key:     e.Key,
			typ:     e.Type,
			values:  make(map[string]*valueAgg),
			authors: make(map[string]bool),
		}
		ix.entries[k] = agg
		ix.order = append(ix.order, k)
	}
	agg.changeCount++
	if e.Author != "" {
		agg.authors[e.Author] = true
	}
	if e.Date != "" {
		agg.dates = append(agg.dates, e.Date)
	}

	v, ok := agg.values[e.Value]
	if !ok {
		v = &valueAgg{authors: make(map[string]bool)}
		agg.values[e.Value] = v
	}
	v.occurrences++
	if e.Author != "" {
		v.authors[e.Author] = true
	}
	if e.Date != "" {
		v.dates = append(v.dates, e.Date)
	}
}

// finalize builds the sorted, ranked secret.Secret slice plus the derived
// Stats from a fully-populated index.
func (ix *index) finalize() ([]*secret.Secret, secret.Stats) {
	secrets := make([]*secret.Secret, 0, len(ix.order))
	authorSecretCounts := make(map[string]int)
	fileSecretCounts := make(map[string]int)
	typeCounts := make(map[string]int)
	uniqueValues := 0

	for _, k := range ix.order {
		agg := ix.entries[k]
		s := &secret.Secret{
			File:        agg.file,
			Key:         agg.key,
			Type:        agg.typ,
			ChangeCount: agg.changeCount,
			Authors:     sortedStringSet(agg.authors),
		}
		sort.Strings(agg.dates)
		if len(agg.dates) > 0 {
			s.FirstSeen = agg.dates[0]
			s.LastSeen = agg.dates[len(agg.dates)-1]
		}

		uniqueValues += len(agg.values)
		for value, v := range agg.values {
			sort.Strings(v.dates)
			vh := secret.NewValueHistory(value, secret.Mask(value))
			vh.Occurrences = v.occurrences
			vh.Authors = sortedStringSet(v.authors)
			if len(v.dates) > 0 {
				vh.FirstSeen = v.dates[0]
				vh.LastSeen = v.dates[len(v.dates)-1]
			}
			s.History = append(s.History, vh)
			s.TotalOccurrences += vh.Occurrences
		}
		secret.SortHistory(s.History)
		secrets = append(secrets, s)

		for _, a := range s.Authors {
			authorSecretCounts[a]++
		}
		fileSecretCounts[s.File]++
		typeCounts[s.Type]++
	}

	secret.SortSecretsByChangeCount(secrets)

	stats := secret.Stats{
		TotalEntries:  totalEntries(ix),
		UniqueSecrets: len(secrets),
		UniqueValues:  uniqueValues,
		TopAuthors:    topAuthors(authorSecretCounts, 10),
		TopFiles:      topFiles(fileSecretCounts, 10),
		TypeBreakdown: topTypes(typeCounts),
	}
	return secrets, stats
}

func totalEntries(ix *index) int {
	total := 0
	for _, agg := range ix.entries {
		total += agg.changeCount
	}
	return total
}

func sortedStringSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// rankedKeys orders a name->count map descending by count, breaking ties by
// name ascending for deterministic output, and caps the result at n entries
// (n <= 0 means unbounded).
func rankedKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func topAuthors(counts map[string]int, n int) []secret.AuthorStat {
	keys := rankedKeys(counts, n)
	out := make([]secret.AuthorStat, len(keys))
	for i, k := range keys {
		out[i] = secret.AuthorStat{Author: k, Count: counts[k]}
	}
	return out
}

func topFiles(counts map[string]int, n int) []secret.FileStat {
	keys := rankedKeys(counts, n)
	out := make([]secret.FileStat, len(keys))
	for i, k := range keys {
		out[i] = secret.FileStat{File: k, Count: counts[k]}
	}
	return out
}

func topTypes(counts map[string]int) []secret.TypeStat {
	keys := rankedKeys(counts, 0)
	out := make([]secret.TypeStat, len(keys))
	for i, k := range keys {
		out[i] = secret.TypeStat{Type: k, Count: counts[k]}
	}
	return out
}

// AnalyzeJSON reads a scan artifact in JSON form: either a top-level
// {"results": [...]} object, or a bare array of StreamEntry events.
func AnalyzeJSON(path string, opts Options) (*secret.Analysis, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller controls path
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	entries, err := decodeJSONEntries(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	ix := newIndex()
	for _, e := range entries {
		ix.add(e)
	}
	secrets, stats := ix.finalize()
	return &secret.Analysis{Stats: stats, Secrets: secrets}, nil
}

func decodeJSONEntries(data []byte) ([]secret.StreamEntry, error) {
	var wrapper struct {
		Results []secret.StreamEntry `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Results != nil {
		return wrapper.Results, nil
	}
	var bare []secret.StreamEntry
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

// progressInterval is how often AnalyzeJSONL invokes opts.Progress.
const progressInterval = 1000

// AnalyzeJSONL reads a scan artifact as one StreamEntry JSON object per
// non-empty line. As with AnalyzeJSON, malformed input is returned as an
// error: the first line that fails to decode aborts the read.
func AnalyzeJSONL(path string, opts Options) (*secret.Analysis, error) {
	f, err := os.Open(path) //nolint:gosec // caller controls path
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ix := newIndex()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	n := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e secret.StreamEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, n+1, err)
		}
		ix.add(e)
		n++
		if opts.Progress != nil && n%progressInterval == 0 {
			opts.Progress(n)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	secrets, stats := ix.finalize()
	return &secret.Analysis{Stats: stats, Secrets: secrets}, nil
}

// Report renders a plain-text human-readable summary of an Analysis. It is
// the ambient stand-in for the Python original's French-language box-drawn
// terminal report: spec.md §1 scopes report rendering outside the hard
// core, so this is a thin, undecorated presentation over Analysis, not a
// translation of the original text.
func Report(w io.Writer, a *secret.Analysis) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Secrets found: %d (unique values: %d, total entries: %d)\n",
		a.Stats.UniqueSecrets, a.Stats.UniqueValues, a.Stats.TotalEntries)

	fmt.Fprintln(bw, "\nBy type:")
	for _, t := range a.Stats.TypeBreakdown {
		fmt.Fprintf(bw, "  %-20s %d\n", t.Type, t.Count)
	}

	fmt.Fprintln(bw, "\nTop authors:")
	for _, au := range a.Stats.TopAuthors {
		fmt.Fprintf(bw, "  %-20s %d\n", au.Author, au.Count)
	}

	fmt.Fprintln(bw, "\nTop files:")
	for _, fl := range a.Stats.TopFiles {
		fmt.Fprintf(bw, "  %-40s %d\n", fl.File, fl.Count)
	}

	fmt.Fprintln(bw, "\nSecrets (by change count):")
	for _, s := range a.Secrets {
		fmt.Fprintf(bw, "  %s:%s [%s] changes=%d occurrences=%d authors=%v first=%s last=%s\n",
			s.File, s.Key, s.Type, s.ChangeCount, s.TotalOccurrences, s.Authors, s.FirstSeen, s.LastSeen)
	}

	return bw.Flush()
}
