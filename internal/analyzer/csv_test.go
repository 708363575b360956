package analyzer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsecret/gitsecret/internal/secret"
)

func sampleSecret() *secret.Secret {
	vh := secret.NewValueHistory("hunter2xyz", secret.Mask("hunter2xyz"))
	vh.Observe("c1", "alice", "2026-01-01T00:00:00Z")
	vh.Finalize()
	return &secret.Secret{
		File:             ".env",
		Key:              "password",
		Type:             "password",
		ChangeCount:      1,
		TotalOccurrences: 1,
		Authors:          []string{"alice"},
		FirstSeen:        "2026-01-01T00:00:00Z",
		LastSeen:         "2026-01-05T00:00:00Z",
		History:          []*secret.ValueHistory{vh},
	}
}

func TestExportCSV_HeaderAndBOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, []*secret.Secret{sampleSecret()}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\xef\xbb\xbf"), "output should start with UTF-8 BOM")

	lines := strings.Split(strings.TrimPrefix(out, "\xef\xbb\xbf"), "\r\n")
	assert.Equal(t, "File;Key;Type;ChangeCount;TotalOccurrences;Authors;AuthorCount;FirstSeen;LastSeen;DaysActive;Values", lines[0])
}

func TestExportCSV_Row(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, []*secret.Secret{sampleSecret()}))

	out := strings.TrimPrefix(buf.String(), "\xef\xbb\xbf")
	lines := strings.Split(out, "\r\n")
	require.GreaterOrEqual(t, len(lines), 2)
	row := strings.Split(lines[1], ";")
	assert.Equal(t, ".env", row[0])
	assert.Equal(t, "password", row[1])
	assert.Equal(t, "password", row[2])
	assert.Equal(t, "1", row[3])
	assert.Equal(t, "1", row[4])
	assert.Equal(t, "alice", row[5])
	assert.Equal(t, "1", row[6])
	assert.Equal(t, "2026-01-01", row[7])
	assert.Equal(t, "2026-01-05", row[8])
	assert.Equal(t, "4", row[9])
	assert.Equal(t, secret.Mask("hunter2xyz"), row[10])
}

func TestExportCSV_EscapesSemicolon(t *testing.T) {
	s := sampleSecret()
	s.Authors = []string{"a;b", "c"}
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, []*secret.Secret{s}))
	assert.Contains(t, buf.String(), `"a;b, c"`)
}

func TestDaysActive_ParseErrorReturnsZero(t *testing.T) {
	assert.Equal(t, 0, daysActive("not-a-date", "2026-01-01T00:00:00Z"))
	assert.Equal(t, 0, daysActive("", ""))
}

func TestExportStatsCSV(t *testing.T) {
	stats := secret.Stats{
		TopAuthors:    []secret.AuthorStat{{Author: "alice", Count: 2}},
		TopFiles:      []secret.FileStat{{File: ".env", Count: 2}},
		TypeBreakdown: []secret.TypeStat{{Type: "password", Count: 2}},
	}
	var buf bytes.Buffer
	require.NoError(t, ExportStatsCSV(&buf, stats))
	out := strings.TrimPrefix(buf.String(), "\xef\xbb\xbf")
	assert.Contains(t, out, "author;alice;2")
	assert.Contains(t, out, "file;.env;2")
	assert.Contains(t, out, "type;password;2")
}
