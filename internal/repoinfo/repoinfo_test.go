package repoinfo

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitsecret/gitsecret/internal/testable"
)

func TestOpen_Success(t *testing.T) {
	mockRepo := &testable.MockGitRepository{}
	mockOpener := &testable.MockGitOpener{Repo: mockRepo}
	SetOpener(mockOpener)
	defer SetOpener(nil)

	r, err := Open("/tmp/repo")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/repo", r.Path())
	assert.Equal(t, []string{"/tmp/repo"}, mockOpener.OpenCalls)
}

func TestOpen_NotARepository(t *testing.T) {
	mockOpener := &testable.MockGitOpener{}
	SetOpener(mockOpener)
	defer SetOpener(nil)

	_, err := Open("/tmp/not-a-repo")
	require.Error(t, err)
}

func TestCurrentBranch_OnBranch(t *testing.T) {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), plumbing.ZeroHash)
	mockRepo := &testable.MockGitRepository{HeadRef: ref}
	SetOpener(&testable.MockGitOpener{Repo: mockRepo})
	defer SetOpener(nil)

	r, err := Open("/tmp/repo")
	require.NoError(t, err)

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestCurrentBranch_Detached(t *testing.T) {
	ref := plumbing.NewHashReference(plumbing.HEAD, plumbing.ZeroHash)
	mockRepo := &testable.MockGitRepository{HeadRef: ref}
	SetOpener(&testable.MockGitOpener{Repo: mockRepo})
	defer SetOpener(nil)

	r, err := Open("/tmp/repo")
	require.NoError(t, err)

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "", branch)
}

func TestCurrentBranch_ReferenceNotFound(t *testing.T) {
	mockRepo := &testable.MockGitRepository{HeadErr: plumbing.ErrReferenceNotFound}
	SetOpener(&testable.MockGitOpener{Repo: mockRepo})
	defer SetOpener(nil)

	r, err := Open("/tmp/repo")
	require.NoError(t, err)

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "", branch)
}

func TestCurrentBranch_OtherError(t *testing.T) {
	mockRepo := &testable.MockGitRepository{HeadErr: assert.AnError}
	SetOpener(&testable.MockGitOpener{Repo: mockRepo})
	defer SetOpener(nil)

	r, err := Open("/tmp/repo")
	require.NoError(t, err)

	_, err = r.CurrentBranch()
	require.Error(t, err)
}
