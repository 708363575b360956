package secret

import "sync"

// Index is the Scanner's shared in-memory aggregation: file -> key ->
// distinct value -> history. It is mutated only through Merge, which is
// safe for concurrent use by multiple goroutines sharing one Index — the
// whole merge critical section is guarded by a single mutex, per design
// note in DESIGN.md (contention is negligible relative to the subprocess
// I/O each caller is doing around the call).
type Index struct {
	mu    sync.Mutex
	files map[string]map[string]map[string]*ValueHistory // file -> key -> value -> history
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{files: make(map[string]map[string]map[string]*ValueHistory)}
}

// Merge folds one observed (file, key, value) tuple into the index.
func (ix *Index) Merge(file, key, value, masked, commit, author, date string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	keys, ok := ix.files[file]
	if !ok {
		keys = make(map[string]map[string]*ValueHistory)
		ix.files[file] = keys
	}
	values, ok := keys[key]
	if !ok {
		values = make(map[string]*ValueHistory)
		keys[key] = values
	}
	vh, ok := values[value]
	if !ok {
		vh = NewValueHistory(value, masked)
		values[value] = vh
	}
	vh.Observe(commit, author, date)
}

// TotalValues returns the number of distinct (file,key,value) triples
// currently in the index — spec.md invariant 2's R.totalValues.
func (ix *Index) TotalValues() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	total := 0
	for _, keys := range ix.files {
		for _, values := range keys {
			total += len(values)
		}
	}
	return total
}

// AllValues flattens the index into a plain list of every value observed,
// one entry per (file, key, value), so a value seen under two keys appears
// twice. Ported from the Python original's
// get_all_values helper, primarily useful in tests that assert invariants
// over the raw value set without re-deriving the flattening logic.
func (ix *Index) AllValues() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var out []string
	for _, keys := range ix.files {
		for _, values := range keys {
			for v := range values {
				out = append(out, v)
			}
		}
	}
	return out
}

// Build finalizes the index into a sorted slice of Secret records, typing
// each (file,key) pair via typeOf. Secrets are sorted by (file,key)
// ascending, per spec.md's Scanner ordering guarantee; each secret's
// history is sorted by occurrences descending.
func (ix *Index) Build(typeOf func(key string) string) []*Secret {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var secrets []*Secret
	for file, keys := range ix.files {
		for key, values := range keys {
			s := &Secret{File: file, Key: key, Type: typeOf(key)}

			commitsSeen := make(map[string]bool)
			authorsSeen := make(map[string]bool)
			for _, vh := range values {
				vh.Finalize()
				s.History = append(s.History, vh)
				s.TotalOccurrences += vh.Occurrences
				for _, c := range vh.Commits {
					commitsSeen[c] = true
				}
				for _, a := range vh.Authors {
					authorsSeen[a] = true
				}
				s.FirstSeen = MinISODate(s.FirstSeen, vh.FirstSeen)
				s.LastSeen = MaxISODate(s.LastSeen, vh.LastSeen)
			}
			s.ChangeCount = len(commitsSeen)
			s.Authors = sortedKeys(authorsSeen)
			SortHistory(s.History)
			secrets = append(secrets, s)
		}
	}

	SortSecretsByFileKey(secrets)
	return secrets
}
