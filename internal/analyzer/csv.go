package analyzer

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/gitsecret/gitsecret/internal/secret"
)

// csvHeader is the exact column list spec.md §6 fixes for the CSV export.
var csvHeader = []string{
	"File", "Key", "Type", "ChangeCount", "TotalOccurrences",
	"Authors", "AuthorCount", "FirstSeen", "LastSeen", "DaysActive", "Values",
}

// utf8BOM is written before the CSV body so spreadsheet tools that assume
// UTF-8-with-BOM (notably Excel) render non-ASCII authors/paths correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportCSV writes secrets as UTF-8-with-BOM, semicolon-delimited CSV to w,
// one row per secret.Secret, per spec.md §6's exact column list.
//
// encoding/csv's Writer handles the mechanical quoting (the package already
// double-quote-escapes any field containing the Comma, a quote, or a line
// break, and also any field that starts with a space or tab); the BOM,
// semicolon delimiter and CRLF row terminator are configured explicitly
// since the package defaults to none of them.
func ExportCSV(w io.Writer, secrets []*secret.Secret) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write csv bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	cw.UseCRLF = true

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, s := range secrets {
		if err := cw.Write(secretCSVRow(s)); err != nil {
			return fmt.Errorf("write csv row for %s:%s: %w", s.File, s.Key, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func secretCSVRow(s *secret.Secret) []string {
	values := make([]string, len(s.History))
	for i, vh := range s.History {
		values[i] = vh.MaskedValue
	}

	return []string{
		s.File,
		s.Key,
		s.Type,
		fmt.Sprintf("%d", s.ChangeCount),
		fmt.Sprintf("%d", s.TotalOccurrences),
		strings.Join(s.Authors, ", "),
		fmt.Sprintf("%d", len(s.Authors)),
		formatCSVDate(s.FirstSeen),
		formatCSVDate(s.LastSeen),
		fmt.Sprintf("%d", daysActive(s.FirstSeen, s.LastSeen)),
		strings.Join(values, "; "),
	}
}

// formatCSVDate renders an ISO-8601 date as YYYY-MM-DD. A value that fails
// to parse is cut to its first 10 characters, or passed through unchanged
// if it is shorter than that.
func formatCSVDate(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		if len(iso) >= 10 {
			return iso[:10]
		}
		return iso
	}
	return t.Format("2006-01-02")
}

// daysActive returns floor((lastSeen - firstSeen) in days), or 0 if either
// date fails to parse.
func daysActive(firstSeen, lastSeen string) int {
	first, err1 := time.Parse(time.RFC3339, firstSeen)
	last, err2 := time.Parse(time.RFC3339, lastSeen)
	if err1 != nil || err2 != nil {
		return 0
	}
	days := last.Sub(first).Hours() / 24
	if days < 0 {
		return 0
	}
	return int(math.Floor(days))
}

// statsCSVHeader is the column list for the stats breakdown export: one
// section each for top authors, top files, and the full type breakdown.
var statsCSVHeader = []string{"Section", "Name", "Count"}

// ExportStatsCSV writes a Stats summary as UTF-8-with-BOM, semicolon-
// delimited CSV: one row per top-author, top-file, and type-breakdown
// entry, tagged by section. This supplements spec.md §6's secret-level CSV
// with a companion export of the Analyzer's aggregate Stats, grounded in
// the Python original's generate_report summary sections.
func ExportStatsCSV(w io.Writer, stats secret.Stats) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write csv bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(statsCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, a := range stats.TopAuthors {
		if err := cw.Write([]string{"author", a.Author, fmt.Sprintf("%d", a.Count)}); err != nil {
			return fmt.Errorf("write csv author row: %w", err)
		}
	}
	for _, fl := range stats.TopFiles {
		if err := cw.Write([]string{"file", fl.File, fmt.Sprintf("%d", fl.Count)}); err != nil {
			return fmt.Errorf("write csv file row: %w", err)
		}
	}
	for _, t := range stats.TypeBreakdown {
		if err := cw.Write([]string{"type", t.Type, fmt.Sprintf("%d", t.Count)}); err != nil {
			return fmt.Errorf("write csv type row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
