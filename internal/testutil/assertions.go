package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCommitCount asserts the number of commits reachable from HEAD.
func AssertCommitCount(t *testing.T, dir string, expected int) {
	t.Helper()
	assert.Equal(t, expected, CommitCount(t, dir), "commit count mismatch")
}

// CommitCount counts the commits reachable from HEAD.
func CommitCount(t *testing.T, dir string) int {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	require.NoError(t, err)

	count := 0
	require.NoError(t, iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	}))
	return count
}

// AssertHeadMessage asserts the message of the commit at HEAD.
func AssertHeadMessage(t *testing.T, dir, expected string) {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, expected, strings.TrimSpace(commit.Message), "HEAD message mismatch")
}

// AssertClean asserts that the working tree has no changes.
func AssertClean(t *testing.T, dir string) {
	t.Helper()
	assert.True(t, isClean(t, dir), "expected a clean working tree")
}

// AssertDirty asserts that the working tree has changes.
func AssertDirty(t *testing.T, dir string) {
	t.Helper()
	assert.False(t, isClean(t, dir), "expected uncommitted changes")
}

// AssertFileContent asserts the contents of the file at path.
func AssertFileContent(t *testing.T, path, expected string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected, string(data), "content mismatch for %s", path)
}

func isClean(t *testing.T, dir string) bool {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	return status.IsClean()
}
