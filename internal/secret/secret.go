// Package secret defines the data model shared by the scanner, analyzer,
// and cleaner: the flat event record emitted while mining a repository,
// and the aggregated records built from a stream of those events.
package secret

import "sort"

// StreamEntry is one observed (file, key, value) match: a single added line
// in the working tree or in a commit's diff that the pattern engine
// accepted. It is the sole unit exchanged over the JSONL wire format.
type StreamEntry struct {
	File        string `json:"file"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	MaskedValue string `json:"maskedValue"`
	Type        string `json:"type"`
	Commit      string `json:"commit"`
	Author      string `json:"author"`
	Date        string `json:"date"`
}

// ValueHistory records everything known about one distinct secret value
// seen under a given (file, key) pair: how many times it occurred, who
// touched it, and across what span of time.
type ValueHistory struct {
	Value       string   `json:"value"`
	MaskedValue string   `json:"maskedValue"`
	Occurrences int      `json:"occurrences"`
	Commits     []string `json:"commits,omitempty"`
	Authors     []string `json:"authors"`
	FirstSeen   string   `json:"firstSeen"`
	LastSeen    string   `json:"lastSeen"`

	// authorSet and commitSet back the exported Authors/Commits slices during
	// aggregation; they are not part of the wire format and are dropped once
	// Finalize sorts them into the exported fields.
	authorSet map[string]bool
	commitSet map[string]bool
}

// NewValueHistory creates a ValueHistory for the first observation of value.
// masked is the precomputed Mask(value).
func NewValueHistory(value, masked string) *ValueHistory {
	return &ValueHistory{
		Value:       value,
		MaskedValue: masked,
		authorSet:   make(map[string]bool),
		commitSet:   make(map[string]bool),
	}
}

// Observe folds one more occurrence of this value into its history. A
// commit already present in this value's commit list is not counted again
// — Occurrences tracks distinct commits, not raw Observe calls, so the same
// added line picked up by two overlapping keyword searches (e.g. "pass" and
// "password" both matching one "password=..." line) does not double-count.
func (vh *ValueHistory) Observe(commit, author, date string) {
	if commit != "" && !vh.commitSet[commit] {
		vh.commitSet[commit] = true
		vh.Commits = append(vh.Commits, commit)
	}
	if author != "" {
		vh.authorSet[author] = true
	}
	vh.FirstSeen = MinISODate(vh.FirstSeen, date)
	vh.LastSeen = MaxISODate(vh.LastSeen, date)
}

// Finalize sorts the author set into a deterministic slice and derives
// Occurrences from the distinct commit count. Called once per ValueHistory
// after all observations have been folded in.
func (vh *ValueHistory) Finalize() {
	vh.Authors = sortedKeys(vh.authorSet)
	vh.Occurrences = len(vh.Commits)
	if vh.Occurrences == 0 {
		vh.Occurrences = 1
	}
}

// Secret is the per-(file,key) aggregate: every distinct value ever seen at
// that location, ranked by how often each recurred.
type Secret struct {
	File             string          `json:"file"`
	Key              string          `json:"key"`
	Type             string          `json:"type"`
	ChangeCount      int             `json:"changeCount"`
	TotalOccurrences int             `json:"totalOccurrences"`
	Authors          []string        `json:"authors"`
	FirstSeen        string          `json:"firstSeen"`
	LastSeen         string          `json:"lastSeen"`
	History          []*ValueHistory `json:"history"`
}

// ScanResult is the top-level artifact produced by a full Scanner run.
type ScanResult struct {
	Repository   string    `json:"repository"`
	Branch       string    `json:"branch"`
	SecretsFound int       `json:"secretsFound"`
	TotalValues  int       `json:"totalValues"`
	Secrets      []*Secret `json:"secrets"`
	ScanDate     string    `json:"scanDate"`
}

// AuthorStat is one entry in Analysis.Stats.TopAuthors.
type AuthorStat struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

// FileStat is one entry in Analysis.Stats.TopFiles.
type FileStat struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// TypeStat is one entry in Analysis.Stats.TypeBreakdown.
type TypeStat struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Stats summarizes an Analysis across all aggregated secrets.
type Stats struct {
	TotalEntries  int          `json:"totalEntries"`
	UniqueSecrets int          `json:"uniqueSecrets"`
	UniqueValues  int          `json:"uniqueValues"`
	TopAuthors    []AuthorStat `json:"topAuthors"`
	TopFiles      []FileStat   `json:"topFiles"`
	TypeBreakdown []TypeStat   `json:"typeBreakdown"`
}

// Analysis is the output of folding a flat StreamEntry stream into ranked,
// two-level aggregate form.
type Analysis struct {
	Stats   Stats     `json:"stats"`
	Secrets []*Secret `json:"secrets"`
}

// Mask renders v as a human-safe string showing only its first and last two
// characters. Values of length 4 or less collapse entirely to "****".
func Mask(v string) string {
	if len(v) <= 4 {
		return "****"
	}
	stars := len(v) - 4
	if stars > 16 {
		stars = 16
	}
	return v[:2] + repeatStar(stars) + v[len(v)-2:]
}

func repeatStar(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '*'
	}
	return string(b)
}

// MinISODate returns the lexicographically smaller of a and b, treating an
// empty string as positive infinity so the first real date always wins.
//
// Dates are compared as plain ISO-8601 strings, not parsed to time.Time: a
// repository with mixed UTC offsets will compare inexactly. This is a known
// limitation, not an oversight — see DESIGN.md.
func MinISODate(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// MaxISODate returns the lexicographically larger of a and b, treating an
// empty string as negative infinity so the first real date always wins.
func MaxISODate(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// SortHistory orders history by occurrences descending, stable so that
// values with equal occurrence counts keep their insertion order.
func SortHistory(history []*ValueHistory) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Occurrences > history[j].Occurrences
	})
}

// SortSecretsByFileKey orders secrets by (file,key) ascending, the Scanner's
// ordering guarantee for ScanResult.Secrets.
func SortSecretsByFileKey(secrets []*Secret) {
	sort.Slice(secrets, func(i, j int) bool {
		if secrets[i].File != secrets[j].File {
			return secrets[i].File < secrets[j].File
		}
		return secrets[i].Key < secrets[j].Key
	})
}

// SortSecretsByChangeCount orders secrets by changeCount descending, stable
// so ties keep insertion order — the Analyzer's ordering guarantee.
func SortSecretsByChangeCount(secrets []*Secret) {
	sort.SliceStable(secrets, func(i, j int) bool {
		return secrets[i].ChangeCount > secrets[j].ChangeCount
	})
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
