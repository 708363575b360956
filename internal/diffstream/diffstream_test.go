package diffstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleCommitSingleFile(t *testing.T) {
	input := strings.Join([]string{
		"COMMIT_START|abc123|alice|2026-01-01T00:00:00-05:00",
		"diff --git a/.env b/.env",
		"index 0000000..1111111 100644",
		"--- a/.env",
		"+++ b/.env",
		"@@ -0,0 +1 @@",
		"+password=hunter2",
		"",
	}, "\n")

	var events []Event
	err := Parse(strings.NewReader(input), func(e Event) { events = append(events, e) })
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, ".env", events[0].File)
	assert.Equal(t, "abc123", events[0].Commit)
	assert.Equal(t, "alice", events[0].Author)
	assert.Equal(t, "2026-01-01T00:00:00-05:00", events[0].Date)
	assert.Equal(t, "password=hunter2", events[0].Content)
}

func TestParse_PlusPlusPlusLineIgnored(t *testing.T) {
	input := "COMMIT_START|a|b|c\ndiff --git a/x b/x\n+++ b/x\n+real line\n"
	var events []Event
	require.NoError(t, Parse(strings.NewReader(input), func(e Event) { events = append(events, e) }))
	require.Len(t, events, 1)
	assert.Equal(t, "real line", events[0].Content)
}

func TestParse_ContentBeforeAnyHeaderDiscarded(t *testing.T) {
	input := "+orphan line\nCOMMIT_START|a|b|c\ndiff --git a/x b/x\n+kept\n"
	var events []Event
	require.NoError(t, Parse(strings.NewReader(input), func(e Event) { events = append(events, e) }))
	require.Len(t, events, 1)
	assert.Equal(t, "kept", events[0].Content)
}

func TestParse_MultipleFilesWithinOneCommit(t *testing.T) {
	input := strings.Join([]string{
		"COMMIT_START|c1|alice|d1",
		"diff --git a/one.txt b/one.txt",
		"+line in one",
		"diff --git a/two.txt b/two.txt",
		"+line in two",
	}, "\n")
	var events []Event
	require.NoError(t, Parse(strings.NewReader(input), func(e Event) { events = append(events, e) }))
	require.Len(t, events, 2)
	assert.Equal(t, "one.txt", events[0].File)
	assert.Equal(t, "two.txt", events[1].File)
}

func TestParse_MultipleCommits(t *testing.T) {
	input := strings.Join([]string{
		"COMMIT_START|c1|alice|d1",
		"diff --git a/f b/f",
		"+v1",
		"COMMIT_START|c2|bob|d2",
		"diff --git a/f b/f",
		"+v2",
	}, "\n")
	var events []Event
	require.NoError(t, Parse(strings.NewReader(input), func(e Event) { events = append(events, e) }))
	require.Len(t, events, 2)
	assert.Equal(t, "c1", events[0].Commit)
	assert.Equal(t, "alice", events[0].Author)
	assert.Equal(t, "c2", events[1].Commit)
	assert.Equal(t, "bob", events[1].Author)
}

func TestParse_RenamePathUsesBSideAuthoritatively(t *testing.T) {
	input := "COMMIT_START|c1|a|d\ndiff --git a/old_name.txt b/new_name.txt\n+moved content\n"
	var events []Event
	require.NoError(t, Parse(strings.NewReader(input), func(e Event) { events = append(events, e) }))
	require.Len(t, events, 1)
	assert.Equal(t, "new_name.txt", events[0].File)
}

func TestParse_UnrelatedLinesIgnored(t *testing.T) {
	input := strings.Join([]string{
		"COMMIT_START|c1|a|d",
		"diff --git a/f b/f",
		"index 111..222 100644",
		"--- a/f",
		"+++ b/f",
		"@@ -1 +1 @@",
		"-old line",
		" context line",
		"+new line",
	}, "\n")
	var events []Event
	require.NoError(t, Parse(strings.NewReader(input), func(e Event) { events = append(events, e) }))
	require.Len(t, events, 1)
	assert.Equal(t, "new line", events[0].Content)
}

func TestParse_EmptyInput(t *testing.T) {
	var events []Event
	require.NoError(t, Parse(strings.NewReader(""), func(e Event) { events = append(events, e) }))
	assert.Empty(t, events)
}
