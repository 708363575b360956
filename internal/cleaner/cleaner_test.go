package cleaner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test Author")

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		require.NoError(t, os.MkdirAll(filepath.Dir(absPath), 0o755))
		require.NoError(t, os.WriteFile(absPath, []byte(content), 0o644))
		runGit(t, dir, "add", relPath)
	}
	runGit(t, dir, "commit", "-m", "initial commit")
	return dir
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...) //nolint:gosec // test helper
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
}

func TestClean_NoSecrets(t *testing.T) {
	result, err := Clean(context.Background(), t.TempDir(), nil, Options{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "No secrets to clean", result.Message)
}

func TestClean_DryRun(t *testing.T) {
	dir := initTestRepo(t, map[string]string{"config.env": "password=supersecretvalue123\n"})

	result, err := Clean(context.Background(), dir, []string{"supersecretvalue123"}, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.DryRun)
	assert.Empty(t, result.BackupBranch)
	require.Len(t, result.PreviewSecrets, 1)
	assert.Equal(t, "su***************23", result.PreviewSecrets[0])

	content, err := os.ReadFile(filepath.Join(dir, "config.env"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "supersecretvalue123")
}

func TestClean_CurrentSourceRewritesWorkingTree(t *testing.T) {
	dir := initTestRepo(t, map[string]string{"config.env": "password=supersecretvalue123\n"})

	result, err := Clean(context.Background(), dir, []string{"supersecretvalue123"}, Options{
		Source:   "current",
		NoBackup: true,
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Message)

	assert.Equal(t, 1, result.FilesModified)
	content, err := os.ReadFile(filepath.Join(dir, "config.env"))
	require.NoError(t, err)
	assert.Contains(t, string(content), removedPlaceholder)
	assert.NotContains(t, string(content), "supersecretvalue123")
}

func TestClean_CreatesBackupBranch(t *testing.T) {
	dir := initTestRepo(t, map[string]string{"config.env": "password=supersecretvalue123\n"})

	result, err := Clean(context.Background(), dir, []string{"supersecretvalue123"}, Options{Source: "current"})
	require.NoError(t, err)
	require.True(t, result.Success, result.Message)
	assert.NotEmpty(t, result.BackupBranch)

	cmd := exec.Command("git", "branch", "--list", result.BackupBranch) //nolint:gosec
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), result.BackupBranch)
}

func TestClean_NoBackupSkipsBranch(t *testing.T) {
	dir := initTestRepo(t, map[string]string{"config.env": "password=supersecretvalue123\n"})

	result, err := Clean(context.Background(), dir, []string{"supersecretvalue123"}, Options{
		Source:   "current",
		NoBackup: true,
	})
	require.NoError(t, err)
	require.True(t, result.Success, result.Message)
	assert.Empty(t, result.BackupBranch)
}

func TestGroupSecretsIntoPatterns_Batching(t *testing.T) {
	secrets := make([]string, 250)
	for i := range secrets {
		secrets[i] = "secret"
	}
	patterns := groupSecretsIntoPatterns(secrets)
	assert.Len(t, patterns, 3)
}

func TestGroupSecretsIntoPatterns_EscapesRegexMeta(t *testing.T) {
	patterns := groupSecretsIntoPatterns([]string{"a.b*c"})
	require.Len(t, patterns, 1)
	assert.Equal(t, `a\.b\*c`, patterns[0])
}

func TestSelectBestTool_ReturnsKnownBackend(t *testing.T) {
	tool := SelectBestTool()
	assert.Contains(t, []string{"filter-repo", "bfg", "filter-branch"}, tool)
}

func TestAvailableTools_HasAllThreeKeys(t *testing.T) {
	tools := AvailableTools()
	assert.Contains(t, tools, "filter-repo")
	assert.Contains(t, tools, "bfg")
	assert.Contains(t, tools, "filter-branch")
}
