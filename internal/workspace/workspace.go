// Package workspace reads and writes files under a workspace root, taking
// copy-on-write backups that serve as the only rollback mechanism.
package workspace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/panbanda/sweep/internal/cache"
)

// ErrOutsideWorkspace is returned for paths that escape the root.
var ErrOutsideWorkspace = errors.New("path outside workspace")

// backupTimeFormat is ISO 8601 with milliseconds.
const backupTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FS is a workspace-rooted file store. Paths may be absolute (under the
// root) or relative to it.
type FS struct {
	root string
	fs   billy.Filesystem
	now  func() time.Time
}

// New returns an FS over the directory root on disk.
func New(root string) *FS {
	return NewWithFS(root, osfs.New(root))
}

// NewWithFS returns an FS over an arbitrary billy filesystem rooted at root.
func NewWithFS(root string, fs billy.Filesystem) *FS {
	return &FS{root: filepath.Clean(root), fs: fs, now: time.Now}
}

// Root returns the workspace root.
func (w *FS) Root() string {
	return w.root
}

func (w *FS) rel(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, path)
	}
	return rel, nil
}

// ReadFile returns the content of path.
func (w *FS) ReadFile(path string) ([]byte, error) {
	rel, err := w.rel(path)
	if err != nil {
		return nil, err
	}
	return util.ReadFile(w.fs, rel)
}

// Checksum returns the BLAKE3 hex digest of path's content.
func (w *FS) Checksum(path string) (string, error) {
	data, err := w.ReadFile(path)
	if err != nil {
		return "", err
	}
	return cache.HashBytes(data), nil
}

// ReadContext returns up to n lines on each side of the 1-based line,
// including the line itself.
func (w *FS) ReadContext(path string, line, n int) ([]string, error) {
	data, err := w.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if line < 1 || line > len(lines) {
		return nil, fmt.Errorf("line %d outside %s (%d lines)", line, path, len(lines))
	}

	lo := max(0, line-1-n)
	hi := min(len(lines), line+n)
	return lines[lo:hi], nil
}

// BackupName is the backup path for path taken at t:
// <path>.backup-<ISO 8601 timestamp> with colons and dots replaced.
func BackupName(path string, t time.Time) string {
	stamp := t.UTC().Format(backupTimeFormat)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return path + ".backup-" + stamp
}

// WriteFile replaces path's content. With createBackup the previous content
// is first copied to a backup file whose path is returned; the path keeps the
// form (absolute or relative) that was passed in.
func (w *FS) WriteFile(path string, content []byte, createBackup bool) (string, error) {
	rel, err := w.rel(path)
	if err != nil {
		return "", err
	}

	var backup string
	if createBackup {
		backup, err = w.backup(path, rel)
		if err != nil {
			return "", fmt.Errorf("backup %s: %w", path, err)
		}
	}

	if err := w.writeAtomic(rel, content); err != nil {
		return backup, fmt.Errorf("write %s: %w", path, err)
	}
	return backup, nil
}

func (w *FS) backup(path, rel string) (string, error) {
	original, err := util.ReadFile(w.fs, rel)
	if err != nil {
		return "", err
	}

	now := w.now()
	name := BackupName(rel, now)
	for i := 1; ; i++ {
		if _, err := w.fs.Stat(name); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s-%d", BackupName(rel, now), i)
	}

	if err := util.WriteFile(w.fs, name, original, 0644); err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		return filepath.Join(w.root, name), nil
	}
	return name, nil
}

// writeAtomic writes through a temporary file in the same directory so a
// crash never leaves a half-written source file.
func (w *FS) writeAtomic(rel string, content []byte) error {
	mode := os.FileMode(0644)
	if info, err := w.fs.Stat(rel); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(rel)
	if err := w.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := w.fs.TempFile(dir, ".sweep-")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = w.fs.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = w.fs.Remove(name)
		return err
	}
	if ch, ok := w.fs.(billy.Change); ok {
		_ = ch.Chmod(name, mode)
	}
	return w.fs.Rename(name, rel)
}

// Restore copies backupPath over path and removes the backup.
func (w *FS) Restore(path, backupPath string) error {
	rel, err := w.rel(path)
	if err != nil {
		return err
	}
	brel, err := w.rel(backupPath)
	if err != nil {
		return err
	}

	data, err := util.ReadFile(w.fs, brel)
	if err != nil {
		return fmt.Errorf("read backup %s: %w", backupPath, err)
	}
	if err := w.writeAtomic(rel, data); err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}
	return w.fs.Remove(brel)
}

// RemoveBackup deletes a backup that is no longer needed.
func (w *FS) RemoveBackup(backupPath string) error {
	rel, err := w.rel(backupPath)
	if err != nil {
		return err
	}
	err = w.fs.Remove(rel)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
