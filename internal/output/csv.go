package output

import (
	"io"

	"github.com/gitsecret/gitsecret/internal/analyzer"
	"github.com/gitsecret/gitsecret/internal/secret"
)

func init() {
	RegisterFormatter(NewCSVFormatter())
}

// CSVFormatter renders an Analysis as the spec-fixed secrets CSV, delegating
// the actual column layout to analyzer.ExportCSV.
type CSVFormatter struct{}

var _ Formatter = (*CSVFormatter)(nil)

// NewCSVFormatter returns a new CSVFormatter.
func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// Name returns the format name.
func (f *CSVFormatter) Name() string {
	return "csv"
}

// Format writes a.Secrets as CSV to w.
func (f *CSVFormatter) Format(a *secret.Analysis, w io.Writer) error {
	return analyzer.ExportCSV(w, a.Secrets)
}
