// Package testable provides interfaces for mocking external dependencies
// such as go-git operations. Production code uses the Real* implementations;
// tests can inject mock implementations to avoid hitting real git repos.
package testable

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitOpener abstracts opening a git repository. Production code uses
// RealGitOpener; tests inject a mock to avoid filesystem dependencies.
type GitOpener interface {
	PlainOpen(path string) (GitRepository, error)
}

// GitRepository abstracts the subset of *git.Repository methods repoinfo
// needs: confirming a path is a repository and reading HEAD. This interface
// was trimmed to just Head() — repoinfo never walks commit history
// in-process, since all history traversal goes through the external pickaxe
// subprocess in internal/gitproc.
type GitRepository interface {
	Head() (*plumbing.Reference, error)
}

// RealGitOpener is the production implementation of GitOpener.
// It delegates to git.PlainOpenWithOptions with DetectDotGit set, so a path
// inside a working tree opens the enclosing repository.
type RealGitOpener struct{}

// PlainOpen opens the git repository at or above path and returns a
// GitRepository.
func (RealGitOpener) PlainOpen(path string) (GitRepository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}
	return &RealGitRepository{repo: repo}, nil
}

// RealGitRepository wraps *git.Repository to satisfy GitRepository.
type RealGitRepository struct {
	repo *git.Repository
}

// Head returns the reference where HEAD is pointing to.
func (r *RealGitRepository) Head() (*plumbing.Reference, error) {
	return r.repo.Head()
}

// DefaultGitOpener is the production GitOpener used as default.
var DefaultGitOpener GitOpener = RealGitOpener{}

// Compile-time interface checks.
var _ GitOpener = RealGitOpener{}
var _ GitRepository = (*RealGitRepository)(nil)
