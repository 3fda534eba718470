// Package progress records loop progress in the project's git repository.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultRemote is the remote Push sends to.
const DefaultRemote = "origin"

// Fallback identity for commits when git config has none.
const (
	FallbackAuthorName  = "ralph"
	FallbackAuthorEmail = "ralph@localhost"
)

// ErrNotRepository is returned when a path is not inside a git repository.
var ErrNotRepository = errors.New("not a git repository")

// Repository is the version control surface the tracker needs.
type Repository interface {
	// IsDirty reports whether the working tree differs from HEAD, including
	// untracked files that are not ignored.
	IsDirty() (bool, error)
	// CommitAll stages every change, deletions included, and commits it.
	CommitAll(message string) error
	// CommitCount returns the number of commits reachable from HEAD.
	CommitCount() (int, error)
	// HeadTime returns the committer time of HEAD. ok is false in a
	// repository with no commits.
	HeadTime() (when time.Time, ok bool, err error)
	// Push sends the current branch to the default remote.
	Push(ctx context.Context) error
}

// GitRepository implements Repository with go-git.
type GitRepository struct {
	repo   *git.Repository
	remote string
	// excludes holds the system and global ignore patterns, which go-git
	// does not read by itself.
	excludes []gitignore.Pattern
}

// Open opens the repository containing path, searching parent directories.
func Open(path string) (*GitRepository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return &GitRepository{repo: repo, remote: DefaultRemote, excludes: loadExcludes()}, nil
}

// loadExcludes reads the files named by core.excludesfile in the system and
// global git config. Missing or unreadable files contribute nothing.
func loadExcludes() []gitignore.Pattern {
	root := osfs.New("/")
	var patterns []gitignore.Pattern
	if ps, err := gitignore.LoadSystemPatterns(root); err == nil {
		patterns = append(patterns, ps...)
	}
	if ps, err := gitignore.LoadGlobalPatterns(root); err == nil {
		patterns = append(patterns, ps...)
	}
	return patterns
}

// worktree returns the worktree with the user's excludes applied.
func (r *GitRepository) worktree() (*git.Worktree, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	wt.Excludes = append(wt.Excludes, r.excludes...)
	return wt, nil
}

// Root returns the top-level directory of the working tree.
func (r *GitRepository) Root() (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to open worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// IsDirty implements Repository.
func (r *GitRepository) IsDirty() (bool, error) {
	wt, err := r.worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to read status: %w", err)
	}
	return !status.IsClean(), nil
}

// CommitAll implements Repository.
func (r *GitRepository) CommitAll(message string) error {
	wt, err := r.worktree()
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}

	author := r.author()
	if _, err := wt.Commit(message, &git.CommitOptions{All: true, Author: &author}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// CommitCount implements Repository.
func (r *GitRepository) CommitCount() (int, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return 0, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	count := 0
	err = iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count commits: %w", err)
	}
	return count, nil
}

// HeadTime implements Repository.
func (r *GitRepository) HeadTime() (time.Time, bool, error) {
	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read HEAD commit: %w", err)
	}
	return commit.Committer.When, true, nil
}

// Push implements Repository. Credentials are chosen from the remote URL by
// pushAuth. A remote that is already up to date is not an error.
func (r *GitRepository) Push(ctx context.Context) error {
	remote, err := r.repo.Remote(r.remote)
	if err != nil {
		return fmt.Errorf("failed to push to %s: %w", r.remote, err)
	}
	opts := &git.PushOptions{RemoteName: r.remote}
	if urls := remote.Config().URLs; len(urls) > 0 {
		auth, err := pushAuth(ctx, urls[0])
		if err != nil {
			return fmt.Errorf("failed to push to %s: %w", r.remote, err)
		}
		opts.Auth = auth
	}

	err = r.repo.PushContext(ctx, opts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push to %s: %w", r.remote, err)
	}
	return nil
}

// author reads user.name and user.email from git config, falling back to the
// ralph identity for whichever is missing.
func (r *GitRepository) author() object.Signature {
	sig := object.Signature{
		Name:  FallbackAuthorName,
		Email: FallbackAuthorEmail,
		When:  time.Now(),
	}
	cfg, err := r.repo.ConfigScoped(config.SystemScope)
	if err != nil {
		return sig
	}
	if cfg.User.Name != "" {
		sig.Name = cfg.User.Name
	}
	if cfg.User.Email != "" {
		sig.Email = cfg.User.Email
	}
	return sig
}
