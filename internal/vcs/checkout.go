package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrDetachedHead is returned when the repository is in detached HEAD state.
	ErrDetachedHead = errors.New("repository is in detached HEAD state; checkout a branch first")
	// ErrBranchExists is returned when creating a branch that already exists.
	ErrBranchExists = errors.New("branch already exists")
)

// IsDirty returns true if there are uncommitted changes in the working directory.
// Untracked files are not considered dirty.
func (r *gitRepository) IsDirty() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, err
	}

	for _, s := range status {
		if s.Staging == git.Untracked && s.Worktree == git.Untracked {
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

func (r *gitRepository) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

func (r *gitRepository) CreateBranch(name string) error {
	head, err := r.repo.Head()
	if err != nil {
		return err
	}

	if name == "" || strings.ContainsAny(name, " ~^:?*[\\") {
		return fmt.Errorf("invalid branch name %q", name)
	}
	ref := plumbing.NewBranchReferenceName(name)
	if _, err := r.repo.Reference(ref, false); err == nil {
		return fmt.Errorf("%w: %s", ErrBranchExists, name)
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{
		Hash:   head.Hash(),
		Branch: ref,
		Create: true,
		Keep:   true,
	})
}

// Stash shells out to git since go-git has no stash support.
func (r *gitRepository) Stash(ctx context.Context, message string) error {
	args := []string{"stash", "push", "--include-untracked"}
	if message != "" {
		args = append(args, "-m", message)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git stash: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
