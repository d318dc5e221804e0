// Package scanner discovers candidate source files in a workspace.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/parser"
)

// Scanner finds source files in a directory.
type Scanner struct {
	config  *config.Config
	matcher gitignore.Matcher
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines configured directory and file exclusions with
// the repository's .gitignore files into a single matcher.
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(dir+"/", nil))
	}
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	// Only honour .gitignore when root is the repository root, otherwise the
	// matcher would see paths relative to the wrong directory.
	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" && sameDir(gitRoot, root) {
			if gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	s.matcher = gitignore.NewMatcher(patterns)
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && filepath.Clean(absA) == filepath.Clean(absB)
}

// isExcluded checks if a root-relative path matches any exclusion pattern.
func (s *Scanner) isExcluded(relPath string, isDir bool) bool {
	if s.matcher == nil {
		return false
	}
	return s.matcher.Match(strings.Split(relPath, string(filepath.Separator)), isDir)
}

// ScanDir recursively scans a directory for supported source files matching
// the configured file patterns. Results are sorted for stable discovery order.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	return s.ScanDirMatching(root, s.config.Scan.FilePatterns)
}

// ScanDirMatching is ScanDir with explicit doublestar patterns. An empty
// pattern list accepts every supported file.
func (s *Scanner) ScanDirMatching(root string, patterns []string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if relPath == "." {
			return nil
		}

		// Skip symlinks that resolve outside the workspace.
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) || !parser.IsSupported(path) {
			return nil
		}
		if !MatchesAny(filepath.ToSlash(relPath), patterns) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	sort.Strings(files)
	return files, walkErr
}

// MatchesAny reports whether a slash-separated relative path matches one of
// the doublestar patterns. No patterns means everything matches.
func MatchesAny(relPath string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, relPath); ok {
			return true
		}
		// "**/*.ts" should also match files at the workspace root.
		if rest, found := strings.CutPrefix(p, "**/"); found {
			if ok, _ := doublestar.Match(rest, relPath); ok {
				return true
			}
		}
	}
	return false
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// FilterBySize drops files larger than maxSize bytes.
// Returns the filtered list and the count of files that were skipped.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, skipped
}
