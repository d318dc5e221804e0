package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	// ErrNothingToCommit is returned when none of the files changed.
	ErrNothingToCommit = errors.New("nothing to commit")
	// ErrOutsideRepository is returned for paths outside the work tree.
	ErrOutsideRepository = errors.New("path outside repository")
)

// DefaultAuthor signs commits when no user is configured.
var DefaultAuthor = object.Signature{Name: "sweep", Email: "sweep@localhost"}

// GitOpener opens git repositories using go-git.
type GitOpener struct{}

// NewGitOpener creates a new GitOpener.
func NewGitOpener() *GitOpener {
	return &GitOpener{}
}

// PlainOpen opens an existing git repository.
func (o *GitOpener) PlainOpen(path string) (Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, err
	}
	return newRepository(repo)
}

// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
func (o *GitOpener) PlainOpenWithDetect(path string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, err
	}
	return newRepository(repo)
}

// gitRepository wraps go-git Repository.
type gitRepository struct {
	repo *git.Repository
	root string
}

func newRepository(repo *git.Repository) (*gitRepository, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	return &gitRepository{repo: repo, root: wt.Filesystem.Root()}, nil
}

func (r *gitRepository) RepoPath() string {
	return r.root
}

func (r *gitRepository) relative(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRepository, path)
	}
	return filepath.ToSlash(rel), nil
}

func (r *gitRepository) CommitChanges(ctx context.Context, files []string, message string) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rel, err := r.relative(f)
		if err != nil {
			return "", err
		}
		if _, err := wt.Add(rel); err != nil {
			return "", fmt.Errorf("stage %s: %w", rel, err)
		}
	}

	status, err := wt.Status()
	if err != nil {
		return "", err
	}
	staged := false
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			staged = true
			break
		}
	}
	if !staged {
		return "", ErrNothingToCommit
	}

	author := r.signature()
	hash, err := wt.Commit(message, &git.CommitOptions{Author: &author})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return hash.String(), nil
}

// signature uses the repository or global user when one is configured.
func (r *gitRepository) signature() object.Signature {
	sig := DefaultAuthor
	for _, scope := range []config.Scope{config.LocalScope, config.GlobalScope} {
		cfg, err := r.repo.ConfigScoped(scope)
		if err != nil || cfg.User.Name == "" {
			continue
		}
		sig.Name = cfg.User.Name
		if cfg.User.Email != "" {
			sig.Email = cfg.User.Email
		}
		break
	}
	sig.When = time.Now()
	return sig
}

func (r *gitRepository) Status() ([]FileStatus, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}

	out := make([]FileStatus, 0, len(status))
	for path, s := range status {
		if s.Staging == git.Unmodified && s.Worktree == git.Unmodified {
			continue
		}
		out = append(out, FileStatus{
			Path:     path,
			Staging:  statusName(s.Staging),
			Worktree: statusName(s.Worktree),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func statusName(c git.StatusCode) string {
	switch c {
	case git.Unmodified:
		return "unmodified"
	case git.Untracked:
		return "untracked"
	case git.Modified:
		return "modified"
	case git.Added:
		return "added"
	case git.Deleted:
		return "deleted"
	case git.Renamed:
		return "renamed"
	case git.Copied:
		return "copied"
	case git.UpdatedButUnmerged:
		return "unmerged"
	}
	return string(c)
}

// Default opener singleton
var defaultOpener Opener = NewGitOpener()

// DefaultOpener returns the default git opener.
func DefaultOpener() Opener {
	return defaultOpener
}

// SetDefaultOpener sets the default git opener (useful for testing).
func SetDefaultOpener(opener Opener) {
	defaultOpener = opener
}
