package scanner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsecret/gitsecret/internal/secretconfig"
)

// initTestRepo creates a real git repository with one commit per entry in
// commits, applied in order, and returns the repository directory. Mirrors
// the teacher's gitcli test helper: exercising the real git binary beats
// mocking a subprocess whose whole job is to shell out to git.
func initTestRepo(t *testing.T, commits []map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test Author")

	for i, files := range commits {
		for relPath, content := range files {
			absPath := filepath.Join(dir, relPath)
			require.NoError(t, os.MkdirAll(filepath.Dir(absPath), 0o755))
			require.NoError(t, os.WriteFile(absPath, []byte(content), 0o644))
			runGit(t, dir, "add", relPath)
		}
		runGit(t, dir, "commit", "-m", "commit", "--allow-empty", "--date", "2024-01-0"+string(rune('1'+i))+"T00:00:00")
	}
	return dir
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...) //nolint:gosec // test helper
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
}

func TestScan_FindsSecretAcrossHistory(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\n"},
	})

	cfg := secretconfig.Default()
	result, err := Scan(context.Background(), cfg, dir, Options{})
	require.NoError(t, err)

	require.Len(t, result.Secrets, 1)
	s := result.Secrets[0]
	assert.Equal(t, "config.env", s.File)
	assert.Equal(t, "password", s.Key)
	assert.Equal(t, "password", s.Type)
	require.Len(t, s.History, 1)
	assert.Equal(t, "supersecretvalue123", s.History[0].Value)
	assert.Equal(t, 1, s.History[0].Occurrences)
}

func TestScan_IgnoresCodeFileExtension(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"main.go": "password=supersecretvalue123\n"},
	})

	cfg := secretconfig.Default()
	result, err := Scan(context.Background(), cfg, dir, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Secrets)
}

func TestScan_MultipleValuesBuildHistory(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=firstsecretvalue1\n"},
		{"config.env": "password=firstsecretvalue1\npassword=secondsecretvalue2\n"},
	})

	cfg := secretconfig.Default()
	result, err := Scan(context.Background(), cfg, dir, Options{})
	require.NoError(t, err)

	require.Len(t, result.Secrets, 1)
	s := result.Secrets[0]
	require.Len(t, s.History, 2)
	assert.Equal(t, 2, result.TotalValues)
}

func TestScan_ConcurrencyBound(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\ntoken=anothersecretvalue456\n"},
	})

	cfg := secretconfig.Default()
	result, err := Scan(context.Background(), cfg, dir, Options{MaxConcurrent: 1})
	require.NoError(t, err)
	assert.Len(t, result.Secrets, 2)
}

func TestScanCurrent_MatchesWorkingTree(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\n"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.env"), []byte("token=workingtreevalue789\n"), 0o644))

	cfg := secretconfig.Default()
	result, err := ScanCurrent(cfg, dir, Options{})
	require.NoError(t, err)

	require.Len(t, result.Secrets, 1)
	assert.Equal(t, "token", result.Secrets[0].Key)
	assert.Equal(t, "HEAD", result.Secrets[0].History[0].Commits[0])
}

func TestScanCurrent_PrunesGitDir(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\n"},
	})

	cfg := secretconfig.Default()
	result, err := ScanCurrent(cfg, dir, Options{})
	require.NoError(t, err)
	for _, s := range result.Secrets {
		assert.NotContains(t, s.File, ".git/")
	}
}

func TestScanBoth_HistoryWinsOnCollision(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\n"},
	})

	cfg := secretconfig.Default()
	result, err := ScanBoth(context.Background(), cfg, dir, Options{})
	require.NoError(t, err)

	require.Len(t, result.Secrets, 1)
	assert.Equal(t, "password", result.Secrets[0].Key)
}

func TestScanBoth_UnionsDistinctKeys(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\n"},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.env"), []byte("token=workingtreevalue789\n"), 0o644))

	cfg := secretconfig.Default()
	result, err := ScanBoth(context.Background(), cfg, dir, Options{})
	require.NoError(t, err)

	assert.Len(t, result.Secrets, 2)
}

func TestScanStream_EmitsDedupedJSONL(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\n"},
		{"config.env": "password=supersecretvalue123\n"},
	})

	cfg := secretconfig.Default()
	var buf bytes.Buffer
	err := ScanStream(context.Background(), cfg, dir, &buf, Options{})
	require.NoError(t, err)

	entries, err := decodeStreamJSONL(&buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "supersecretvalue123", entries[0].Value)
}

func TestScanCurrentStream_EmitsHeadEntry(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\n"},
	})

	cfg := secretconfig.Default()
	var buf bytes.Buffer
	err := ScanCurrentStream(cfg, dir, &buf, Options{})
	require.NoError(t, err)

	entries, err := decodeStreamJSONL(&buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "HEAD", entries[0].Commit)
}

func TestScanBothStream_FirstWriteWins(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "password=supersecretvalue123\n"},
	})

	cfg := secretconfig.Default()
	var buf bytes.Buffer
	err := ScanBothStream(context.Background(), cfg, dir, &buf, Options{})
	require.NoError(t, err)

	entries, err := decodeStreamJSONL(&buf)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, "HEAD", entries[0].Commit)
}

func TestAllValues_SortedByLengthDescending(t *testing.T) {
	dir := initTestRepo(t, []map[string]string{
		{"config.env": "token=short1\npassword=muchlongersecretvalue\n"},
	})

	cfg := secretconfig.Default()
	result, err := Scan(context.Background(), cfg, dir, Options{})
	require.NoError(t, err)

	values := AllValues(result)
	require.Len(t, values, 2)
	assert.Equal(t, "muchlongersecretvalue", values[0])
	assert.Equal(t, "short1", values[1])
}
