// Package vcs commits the files sweep rewrites and exposes the little
// repository state the session loop needs.
package vcs

import (
	"context"
)

// Repository provides the git operations a session performs.
type Repository interface {
	// CommitChanges stages files and commits them, returning the new
	// commit hash. Paths may be absolute or relative to the repository root.
	CommitChanges(ctx context.Context, files []string, message string) (string, error)
	// CreateBranch creates name at HEAD and checks it out.
	CreateBranch(name string) error
	// CurrentBranch returns the branch name, or the commit hash when HEAD
	// is detached.
	CurrentBranch() (string, error)
	// Status lists files that differ from HEAD.
	Status() ([]FileStatus, error)
	// IsDirty reports whether tracked files have uncommitted changes.
	IsDirty() (bool, error)
	// Stash shelves uncommitted work, untracked files included.
	Stash(ctx context.Context, message string) error
	// RepoPath returns the root path of the repository.
	RepoPath() string
}

// FileStatus is the staging and worktree state of one path.
type FileStatus struct {
	Path     string `json:"path"`
	Staging  string `json:"staging"`
	Worktree string `json:"worktree"`
}

// Opener opens git repositories.
type Opener interface {
	// PlainOpen opens an existing git repository.
	PlainOpen(path string) (Repository, error)
	// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
	PlainOpenWithDetect(path string) (Repository, error)
}
