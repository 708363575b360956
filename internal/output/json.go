package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gitsecret/gitsecret/internal/secret"
)

func init() {
	RegisterFormatter(NewJSONFormatter())
}

// JSONFormatter writes an Analysis as JSON.
type JSONFormatter struct {
	// Compact controls whether output is compact (single line) or pretty-printed.
	// When false (default), output is auto-detected: compact for an *os.File
	// that is not a terminal (a pipe or regular file), pretty otherwise.
	Compact bool
}

// Compile-time interface check.
var _ Formatter = (*JSONFormatter)(nil)

// NewJSONFormatter returns a new JSONFormatter with default settings.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format writes a as a JSON document to w. Output is compact if Compact is
// true or w is an *os.File that is not a terminal; otherwise (a terminal,
// a non-file writer, or a file whose Stat fails) it is pretty-printed.
func (f *JSONFormatter) Format(a *secret.Analysis, w io.Writer) error {
	compact := f.shouldCompact(w)

	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(a)
	} else {
		data, err = json.MarshalIndent(a, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write json trailing newline: %w", err)
	}

	return nil
}

// shouldCompact determines whether to use compact mode.
// If Compact is explicitly set, use that value.
// Otherwise, auto-detect: pretty-print for TTYs, compact for pipes.
func (f *JSONFormatter) shouldCompact(w io.Writer) bool {
	if f.Compact {
		return true
	}

	if file, ok := w.(*os.File); ok {
		fi, err := file.Stat()
		if err != nil {
			return false // default to pretty on error
		}
		if fi.Mode()&os.ModeCharDevice != 0 {
			return false // TTY -> pretty
		}
		return true // pipe/file -> compact
	}

	// For non-file writers (e.g., bytes.Buffer in tests), default to pretty.
	return false
}
