// Package repoinfo confirms a path is a git repository and reads the
// current HEAD/branch name that the scan command uses as the branch to mine
// and records in ScanResult.branch. All history traversal itself runs through
// internal/gitproc's external pickaxe subprocess, per spec.md §4.C — this
// package never walks the commit graph in-process.
package repoinfo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/gitsecret/gitsecret/internal/testable"
)

// opener is the package-level GitOpener used by Open. Tests can swap it via
// SetOpener.
var opener testable.GitOpener = testable.DefaultGitOpener

// SetOpener replaces the package-level GitOpener. Pass nil to restore the
// production go-git/v5-backed opener. Intended for tests.
func SetOpener(o testable.GitOpener) {
	if o == nil {
		opener = testable.DefaultGitOpener
		return
	}
	opener = o
}

// Repo is a confirmed git repository, opened once and queried for its
// current branch as needed.
type Repo struct {
	path string
	git  testable.GitRepository
}

// Open confirms path is a git repository (or a subdirectory of one) and
// returns a Repo handle. It returns an error if path is not inside a git
// working tree.
func Open(path string) (*Repo, error) {
	git, err := opener.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return &Repo{path: path, git: git}, nil
}

// Path returns the directory this Repo was opened against.
func (r *Repo) Path() string { return r.path }

// CurrentBranch returns the short branch name HEAD points at, or "" if HEAD
// is detached (a state plain-name callers should treat as "scan --all").
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.git.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return strings.TrimPrefix(head.Name().String(), "refs/heads/"), nil
}
