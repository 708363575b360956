package analyzer

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsecret/gitsecret/internal/secret"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeJSONL_Aggregation(t *testing.T) {
	dir := t.TempDir()
	lines := []secret.StreamEntry{
		{File: ".env", Key: "api_key", Value: "AAA111", Type: "api_key", Commit: "c1", Author: "alice", Date: "2026-01-01T00:00:00Z"},
		{File: ".env", Key: "api_key", Value: "BBB222", Type: "api_key", Commit: "c2", Author: "bob", Date: "2026-01-02T00:00:00Z"},
		{File: ".env", Key: "api_key", Value: "AAA111", Type: "api_key", Commit: "c3", Author: "alice", Date: "2026-01-03T00:00:00Z"},
	}
	var buf bytes.Buffer
	for _, l := range lines {
		data, err := json.Marshal(l)
		require.NoError(t, err)
		buf.Write(data)
		buf.WriteByte('\n')
	}
	path := writeFile(t, dir, "scan.jsonl", buf.String())

	a, err := AnalyzeJSONL(path, Options{})
	require.NoError(t, err)

	require.Len(t, a.Secrets, 1)
	s := a.Secrets[0]
	assert.Equal(t, ".env", s.File)
	assert.Equal(t, "api_key", s.Key)
	assert.Equal(t, 3, s.ChangeCount)
	assert.Equal(t, 3, s.TotalOccurrences)
	assert.Equal(t, []string{"alice", "bob"}, s.Authors)

	require.Len(t, s.History, 2)
	assert.Equal(t, "AAA111", s.History[0].Value)
	assert.Equal(t, 2, s.History[0].Occurrences)
	assert.Equal(t, "BBB222", s.History[1].Value)
	assert.Equal(t, 1, s.History[1].Occurrences)

	assert.Equal(t, 3, a.Stats.TotalEntries)
	assert.Equal(t, 1, a.Stats.UniqueSecrets)
	assert.Equal(t, 2, a.Stats.UniqueValues)
}

func TestAnalyzeJSONL_MalformedLineSurfaces(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.jsonl", "{not json}\n")

	_, err := AnalyzeJSONL(path, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestAnalyzeJSONL_ProgressCallback(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	for i := 0; i < 2500; i++ {
		e := secret.StreamEntry{File: "f", Key: "k", Value: "v", Author: "a", Date: "2026-01-01T00:00:00Z"}
		data, _ := json.Marshal(e)
		buf.Write(data)
		buf.WriteByte('\n')
	}
	path := writeFile(t, dir, "big.jsonl", buf.String())

	var calls []int
	_, err := AnalyzeJSONL(path, Options{Progress: func(n int) { calls = append(calls, n) }})
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 2000}, calls)
}

func TestAnalyzeJSON_ResultsWrapper(t *testing.T) {
	dir := t.TempDir()
	doc := map[string]any{
		"results": []secret.StreamEntry{
			{File: "a.env", Key: "password", Value: "hunter2", Type: "password", Author: "alice", Date: "2026-01-01T00:00:00Z"},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := writeFile(t, dir, "scan.json", string(data))

	a, err := AnalyzeJSON(path, Options{})
	require.NoError(t, err)
	require.Len(t, a.Secrets, 1)
	assert.Equal(t, "a.env", a.Secrets[0].File)
}

func TestAnalyzeJSON_BareArray(t *testing.T) {
	dir := t.TempDir()
	entries := []secret.StreamEntry{
		{File: "a.env", Key: "password", Value: "hunter2", Type: "password", Author: "alice", Date: "2026-01-01T00:00:00Z"},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	path := writeFile(t, dir, "scan.json", string(data))

	a, err := AnalyzeJSON(path, Options{})
	require.NoError(t, err)
	require.Len(t, a.Secrets, 1)
}

func TestAnalyzeJSONL_TopAuthorsCap(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	for i := 0; i < 12; i++ {
		e := secret.StreamEntry{
			File:   "f.env",
			Key:    "key" + string(rune('a'+i)),
			Value:  "v",
			Author: "author" + string(rune('a'+i)),
			Date:   "2026-01-01T00:00:00Z",
		}
		data, _ := json.Marshal(e)
		buf.Write(data)
		buf.WriteByte('\n')
	}
	path := writeFile(t, dir, "wide.jsonl", buf.String())

	a, err := AnalyzeJSONL(path, Options{})
	require.NoError(t, err)
	assert.Len(t, a.Stats.TopAuthors, 10)
	for _, au := range a.Stats.TopAuthors {
		assert.Greater(t, au.Count, 0)
	}
}

func TestSortSecretsByChangeCountDescending(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	write := func(file, key, commit string) {
		e := secret.StreamEntry{File: file, Key: key, Value: "v", Commit: commit, Date: "2026-01-01T00:00:00Z"}
		data, _ := json.Marshal(e)
		buf.Write(data)
		buf.WriteByte('\n')
	}
	write("low.env", "k", "c1")
	write("high.env", "k", "c1")
	write("high.env", "k", "c2")
	path := writeFile(t, dir, "rank.jsonl", buf.String())

	a, err := AnalyzeJSONL(path, Options{})
	require.NoError(t, err)
	require.Len(t, a.Secrets, 2)
	assert.Equal(t, "high.env", a.Secrets[0].File)
	assert.Equal(t, "low.env", a.Secrets[1].File)
}
