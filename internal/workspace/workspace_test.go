package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func TestBackupName(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
	got := BackupName("src/a.ts", ts)
	want := "src/a.ts.backup-2026-03-04T05-06-07-890Z"
	if got != want {
		t.Errorf("BackupName() = %s, want %s", got, want)
	}
	if strings.ContainsAny(strings.TrimPrefix(got, "src/a.ts"), ":.") {
		t.Error("backup suffix must not contain colons or dots")
	}
}

func TestWriteFileWithBackupOnDisk(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "src", "a.ts")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("const a = 1;\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w := New(root)
	backup, err := w.WriteFile(path, []byte("const a = 2;\n"), true)
	if err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if !filepath.IsAbs(backup) || !strings.HasPrefix(backup, path+".backup-") {
		t.Errorf("backup path = %s", backup)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "const a = 2;\n" {
		t.Errorf("file content = %q", got)
	}
	saved, err := os.ReadFile(backup)
	if err != nil || string(saved) != "const a = 1;\n" {
		t.Errorf("backup content = %q, %v", saved, err)
	}

	if err := w.Restore(path, backup); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != "const a = 1;\n" {
		t.Errorf("restored content = %q", got)
	}
	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Error("Restore() should remove the backup")
	}
}

func TestWriteFileWithoutBackup(t *testing.T) {
	fs := memfs.New()
	if err := util.WriteFile(fs, "a.js", []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	w := NewWithFS("/ws", fs)

	backup, err := w.WriteFile("a.js", []byte("y"), false)
	if err != nil || backup != "" {
		t.Fatalf("WriteFile() = %q, %v", backup, err)
	}
	got, _ := w.ReadFile("/ws/a.js")
	if string(got) != "y" {
		t.Errorf("content = %q", got)
	}
}

func TestBackupsDoNotCollide(t *testing.T) {
	fs := memfs.New()
	_ = util.WriteFile(fs, "a.js", []byte("v1"), 0644)
	w := NewWithFS("/ws", fs)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	b1, err := w.WriteFile("a.js", []byte("v2"), true)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := w.WriteFile("a.js", []byte("v3"), true)
	if err != nil {
		t.Fatal(err)
	}
	if b1 == b2 {
		t.Fatalf("backups share a path: %s", b1)
	}
	first, _ := util.ReadFile(fs, b1)
	second, _ := util.ReadFile(fs, b2)
	if string(first) != "v1" || string(second) != "v2" {
		t.Errorf("backups = %q, %q", first, second)
	}

	if err := w.RemoveBackup(b1); err != nil {
		t.Errorf("RemoveBackup() error: %v", err)
	}
	if err := w.RemoveBackup(b1); err != nil {
		t.Errorf("second RemoveBackup() should be a no-op, got %v", err)
	}
}

func TestReadContext(t *testing.T) {
	fs := memfs.New()
	_ = util.WriteFile(fs, "a.js", []byte("1\n2\n3\n4\n5\n6\n"), 0644)
	w := NewWithFS("/ws", fs)

	tests := []struct {
		line, n int
		want    string
	}{
		{3, 1, "2,3,4"},
		{1, 2, "1,2,3"},
		{6, 2, "4,5,6"},
		{4, 0, "4"},
	}
	for _, tt := range tests {
		got, err := w.ReadContext("a.js", tt.line, tt.n)
		if err != nil {
			t.Fatalf("ReadContext(%d, %d) error: %v", tt.line, tt.n, err)
		}
		if strings.Join(got, ",") != tt.want {
			t.Errorf("ReadContext(%d, %d) = %v, want %s", tt.line, tt.n, got, tt.want)
		}
	}

	if _, err := w.ReadContext("a.js", 7, 1); err == nil {
		t.Error("ReadContext() past the end should fail")
	}
}

func TestOutsideWorkspace(t *testing.T) {
	w := NewWithFS("/ws", memfs.New())
	_, err := w.ReadFile("/elsewhere/a.js")
	if !errors.Is(err, ErrOutsideWorkspace) {
		t.Errorf("expected ErrOutsideWorkspace, got %v", err)
	}
	if _, err := w.WriteFile("/elsewhere/a.js", nil, false); !errors.Is(err, ErrOutsideWorkspace) {
		t.Errorf("expected ErrOutsideWorkspace, got %v", err)
	}
}

func TestChecksum(t *testing.T) {
	fs := memfs.New()
	_ = util.WriteFile(fs, "a.js", []byte("x"), 0644)
	w := NewWithFS("/ws", fs)

	sum, err := w.Checksum("a.js")
	if err != nil || len(sum) != 64 {
		t.Errorf("Checksum() = %q, %v", sum, err)
	}
}
