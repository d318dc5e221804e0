package vcs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestNewGitOpener(t *testing.T) {
	opener := NewGitOpener()
	if opener == nil {
		t.Fatal("NewGitOpener() returned nil")
	}
}

func TestGitOpener_PlainOpen_NonExistent(t *testing.T) {
	opener := NewGitOpener()
	_, err := opener.PlainOpen("/nonexistent/path")
	if err == nil {
		t.Error("PlainOpen() should return error for non-existent path")
	}
}

func TestGitOpener_PlainOpenWithDetect(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)

	subDir := filepath.Join(repoPath, "subdir")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	repo, err := NewGitOpener().PlainOpenWithDetect(subDir)
	if err != nil {
		t.Fatalf("PlainOpenWithDetect() error = %v", err)
	}
	if repo.RepoPath() != repoPath {
		t.Errorf("RepoPath() = %s, want %s", repo.RepoPath(), repoPath)
	}
}

func TestCommitChanges(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)
	repo := openTestRepo(t, repoPath)

	dirty, err := repo.IsDirty()
	if err != nil || dirty {
		t.Fatalf("IsDirty() = %v, %v on a clean repo", dirty, err)
	}

	file := filepath.Join(repoPath, "test.txt")
	if err := os.WriteFile(file, []byte("rewritten\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if dirty, _ := repo.IsDirty(); !dirty {
		t.Fatal("IsDirty() = false after modifying a tracked file")
	}

	hash, err := repo.CommitChanges(context.Background(), []string{file}, "sweep: add-comment in test.txt")
	if err != nil {
		t.Fatalf("CommitChanges() error = %v", err)
	}
	if len(hash) != 40 {
		t.Errorf("CommitChanges() hash = %q", hash)
	}

	g, _ := git.PlainOpen(repoPath)
	head, _ := g.Head()
	commit, err := g.CommitObject(head.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if commit.Message != "sweep: add-comment in test.txt" {
		t.Errorf("commit message = %q", commit.Message)
	}
	if commit.Author.Name == "" {
		t.Error("commit has no author")
	}
	if dirty, _ := repo.IsDirty(); dirty {
		t.Error("IsDirty() = true after commit")
	}
}

func TestCommitChanges_RelativeAndUntracked(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)
	repo := openTestRepo(t, repoPath)

	if err := os.WriteFile(filepath.Join(repoPath, "new.ts"), []byte("export {};\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CommitChanges(context.Background(), []string{"new.ts"}, "add new.ts"); err != nil {
		t.Fatalf("CommitChanges() error = %v", err)
	}

	status, err := repo.Status()
	if err != nil {
		t.Fatal(err)
	}
	if len(status) != 0 {
		t.Errorf("Status() = %v, want clean", status)
	}
}

func TestCommitChanges_NothingToCommit(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)
	repo := openTestRepo(t, repoPath)

	_, err := repo.CommitChanges(context.Background(), []string{"test.txt"}, "noop")
	if !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("CommitChanges() error = %v, want ErrNothingToCommit", err)
	}
}

func TestCommitChanges_OutsideRepository(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)
	repo := openTestRepo(t, repoPath)

	outside := filepath.Join(t.TempDir(), "x.js")
	_, err := repo.CommitChanges(context.Background(), []string{outside}, "x")
	if !errors.Is(err, ErrOutsideRepository) {
		t.Errorf("CommitChanges() error = %v, want ErrOutsideRepository", err)
	}
}

func TestCommitChanges_Cancelled(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)
	repo := openTestRepo(t, repoPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.CommitChanges(ctx, []string{"test.txt"}, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CommitChanges() error = %v, want context.Canceled", err)
	}
}

func TestStatus(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)
	repo := openTestRepo(t, repoPath)

	if err := os.WriteFile(filepath.Join(repoPath, "test.txt"), []byte("changed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repoPath, "a.js"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	status, err := repo.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("Status() returned %d entries, want 2: %v", len(status), status)
	}
	if status[0].Path != "a.js" || status[0].Worktree != "untracked" {
		t.Errorf("status[0] = %+v", status[0])
	}
	if status[1].Path != "test.txt" || status[1].Worktree != "modified" {
		t.Errorf("status[1] = %+v", status[1])
	}

	// Untracked files alone do not make the tree dirty.
	if err := os.WriteFile(filepath.Join(repoPath, "test.txt"), []byte("initial content\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if dirty, _ := repo.IsDirty(); dirty {
		t.Error("IsDirty() = true with only untracked files")
	}
}

func TestCreateBranch(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)
	repo := openTestRepo(t, repoPath)

	if err := repo.CreateBranch("sweep/session-1"); err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}
	branch, err := repo.CurrentBranch()
	if err != nil {
		t.Fatal(err)
	}
	if branch != "sweep/session-1" {
		t.Errorf("CurrentBranch() = %s", branch)
	}

	if err := repo.CreateBranch("sweep/session-1"); !errors.Is(err, ErrBranchExists) {
		t.Errorf("second CreateBranch() error = %v, want ErrBranchExists", err)
	}
	if err := repo.CreateBranch("bad name"); err == nil {
		t.Error("CreateBranch() should reject names with spaces")
	}
}

func TestCreateBranch_KeepsWorkingChanges(t *testing.T) {
	repoPath := initTestRepoWithCommit(t)
	repo := openTestRepo(t, repoPath)

	file := filepath.Join(repoPath, "test.txt")
	if err := os.WriteFile(file, []byte("work in progress\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateBranch("wip"); err != nil {
		t.Fatalf("CreateBranch() error = %v", err)
	}
	got, _ := os.ReadFile(file)
	if string(got) != "work in progress\n" {
		t.Errorf("working change lost: %q", got)
	}
}

func TestStash(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	repoPath := initTestRepoWithCommit(t)
	g, _ := git.PlainOpen(repoPath)
	cfg, err := g.Config()
	if err != nil {
		t.Fatal(err)
	}
	cfg.User.Name = "Test"
	cfg.User.Email = "test@example.com"
	if err := g.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	repo := openTestRepo(t, repoPath)

	file := filepath.Join(repoPath, "test.txt")
	if err := os.WriteFile(file, []byte("stash me\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := repo.Stash(context.Background(), "before sweep"); err != nil {
		t.Fatalf("Stash() error = %v", err)
	}
	got, _ := os.ReadFile(file)
	if string(got) != "initial content\n" {
		t.Errorf("Stash() left %q in the work tree", got)
	}
}

func TestDefaultOpener(t *testing.T) {
	if DefaultOpener() == nil {
		t.Fatal("DefaultOpener() returned nil")
	}
}

func TestSetDefaultOpener(t *testing.T) {
	original := DefaultOpener()
	defer SetDefaultOpener(original)

	custom := NewGitOpener()
	SetDefaultOpener(custom)
	if DefaultOpener() != custom {
		t.Error("SetDefaultOpener() did not set the opener")
	}
}

func openTestRepo(t *testing.T, path string) Repository {
	t.Helper()
	repo, err := NewGitOpener().PlainOpen(path)
	if err != nil {
		t.Fatalf("PlainOpen() error = %v", err)
	}
	return repo
}

func initTestRepoWithCommit(t *testing.T) string {
	t.Helper()
	repoPath := t.TempDir()
	repo, err := git.PlainInit(repoPath, false)
	if err != nil {
		t.Fatalf("Failed to init repo: %v", err)
	}

	testFile := filepath.Join(repoPath, "test.txt")
	if err := os.WriteFile(testFile, []byte("initial content\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, _ := repo.Worktree()
	w.Add("test.txt")
	_, err = w.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return repoPath
}
