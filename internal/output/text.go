package output

import (
	"io"

	"github.com/gitsecret/gitsecret/internal/analyzer"
	"github.com/gitsecret/gitsecret/internal/secret"
)

func init() {
	RegisterFormatter(NewTextFormatter())
}

// TextFormatter renders an Analysis as a plain-text human-readable summary,
// delegating to analyzer.Report.
type TextFormatter struct{}

var _ Formatter = (*TextFormatter)(nil)

// NewTextFormatter returns a new TextFormatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format writes a human-readable report of a to w.
func (f *TextFormatter) Format(a *secret.Analysis, w io.Writer) error {
	return analyzer.Report(w, a)
}
