// Package diffstream implements the Diff-Stream Parser: a line-oriented
// state machine over the text produced by a pickaxe-filtered git log
// invocation with a custom pretty header and patch output enabled.
package diffstream

import (
	"bufio"
	"io"
	"strings"
)

// commitHeaderPrefix is the pretty-format marker emitted once per commit,
// e.g. "COMMIT_START|<sha>|<author>|<iso-date>".
const commitHeaderPrefix = "COMMIT_START|"

const diffGitPrefix = "diff --git "

// Event is one observed added-line within a commit's diff (or, for
// working-tree scans, a single line read directly from a file).
type Event struct {
	File    string
	Commit  string
	Author  string
	Date    string
	Content string
}

// maxLineBytes bounds the scanner's buffer so a single pathological line in
// a large diff cannot exhaust memory; it comfortably covers any plausible
// source line while still catching runaway binary-looking diffs.
const maxLineBytes = 10 * 1024 * 1024

// Parser holds the state-machine's current commit/author/date/file fields
// across a sequence of Feed calls. It lets a caller that already owns a
// per-line callback (such as gitproc.Stream, which drains a subprocess's
// stdout line by line) drive the same state machine Parse uses internally,
// without buffering the whole stream through an io.Reader first.
type Parser struct {
	commit, author, date, file string
	haveFile                   bool
}

// Feed processes one line and reports the Event it produced, if any.
func (p *Parser) Feed(line string) (Event, bool) {
	switch {
	case strings.HasPrefix(line, commitHeaderPrefix):
		fields := strings.SplitN(strings.TrimPrefix(line, commitHeaderPrefix), "|", 3)
		p.commit, p.author, p.date = "", "", ""
		if len(fields) > 0 {
			p.commit = fields[0]
		}
		if len(fields) > 1 {
			p.author = fields[1]
		}
		if len(fields) > 2 {
			p.date = fields[2]
		}

	case strings.HasPrefix(line, diffGitPrefix):
		if path, ok := extractBPath(line); ok {
			p.file = path
			p.haveFile = true
		} else {
			p.haveFile = false
		}

	case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
		if !p.haveFile || p.commit == "" {
			return Event{}, false
		}
		return Event{
			File:    p.file,
			Commit:  p.commit,
			Author:  p.author,
			Date:    p.date,
			Content: strings.TrimPrefix(line, "+"),
		}, true
	}
	return Event{}, false
}

// Parse reads lines from r and invokes emit once per added-line event, per
// the state machine documented on Parser.Feed:
//
//	starts with "COMMIT_START|"        -> update current commit/author/date
//	starts with "diff --git "          -> update current file from the b/ path
//	starts with "+" but not "+++"      -> emit an event for the stripped line
//	anything else                      -> ignored
//
// A content line seen before a commit header or a file header is
// discarded, since there is no commit or file to attribute it to. The parser never attempts to
// resolve renames: the b/ path from "diff --git a/<old> b/<new>" is always
// taken as authoritative for everything that follows until the next file
// header.
func Parse(r io.Reader, emit func(Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var p Parser
	for scanner.Scan() {
		if ev, ok := p.Feed(scanner.Text()); ok {
			emit(ev)
		}
	}
	return scanner.Err()
}

// extractBPath pulls the "b/<path>" tail out of a "diff --git a/<old>
// b/<new>" header line. When both halves name the same path, the header is
// split at its middle, so a path that itself contains " b/" is kept whole;
// otherwise the text after the last " b/" occurrence is taken.
func extractBPath(line string) (string, bool) {
	rest := strings.TrimPrefix(line, diffGitPrefix)
	if n := len(rest); n%2 == 1 && strings.HasPrefix(rest, "a/") {
		mid := n / 2
		if rest[mid] == ' ' && strings.HasPrefix(rest[mid+1:], "b/") && rest[2:mid] == rest[mid+3:] {
			return rest[mid+3:], true
		}
	}
	idx := strings.LastIndex(line, " b/")
	if idx == -1 {
		return "", false
	}
	return line[idx+len(" b/"):], true
}
