package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// TestAuthor signs every commit made by the helpers in this package.
var TestAuthor = object.Signature{Name: "Test", Email: "test@example.com"}

// SetupTestRepo creates a git repository in a temporary directory with a
// single commit adding README.md. The directory is removed when the test
// completes.
func SetupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	CommitFile(t, dir, "README.md", "# test\n")
	return dir
}

// CommitFile writes content to relativePath inside the repository at dir and
// commits it with a message naming the file.
func CommitFile(t *testing.T, dir, relativePath, content string) {
	t.Helper()

	WriteTestFile(t, dir, relativePath, []byte(content))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	_, err = wt.Add(relativePath)
	require.NoError(t, err)

	author := TestAuthor
	author.When = time.Now()
	_, err = wt.Commit("add "+relativePath, &git.CommitOptions{Author: &author})
	require.NoError(t, err)
}

// FindProjectRoot walks up from the current directory to the one holding
// go.mod.
func FindProjectRoot(t *testing.T) string {
	t.Helper()
	return findProjectRootNoTest()
}

// findProjectRootNoTest is the non-test version of FindProjectRoot.
func findProjectRootNoTest() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// WriteTestFile writes content to a file in the test directory.
// Creates parent directories as needed.
func WriteTestFile(t *testing.T, basePath, relativePath string, content []byte) {
	t.Helper()
	fullPath := filepath.Join(basePath, relativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
	require.NoError(t, os.WriteFile(fullPath, content, 0644))
}

// WriteFakeAgent writes an executable /bin/sh script standing in for the
// agent runtime and returns its path. The test is skipped on Windows.
func WriteFakeAgent(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake agent scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "fake-agent")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}
