package todo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/panbanda/sweep/internal/cache"
	"github.com/panbanda/sweep/internal/fileproc"
	"github.com/panbanda/sweep/internal/logging"
	"github.com/panbanda/sweep/internal/scanner"
	"github.com/panbanda/sweep/pkg/config"
)

// cacheVersion changes whenever extraction output changes shape.
const cacheVersion = "todo-v1"

// Scanner lists TODO items across a workspace.
type Scanner struct {
	files     *scanner.Scanner
	extractor *Extractor
	cache     *cache.Cache
	workers   int
	progress  fileproc.ProgressFunc
}

// NewScanner builds a workspace scanner from configuration. A nil cache
// disables caching.
func NewScanner(cfg *config.Config, c *cache.Cache) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if c == nil {
		c = cache.Disabled()
	}
	return &Scanner{
		files: scanner.NewScanner(cfg),
		extractor: NewExtractor(
			WithContextLines(cfg.Scan.ContextLines),
			WithMaxFileSize(cfg.Scan.MaxFileSize),
		),
		cache:   c,
		workers: cfg.Scan.Workers,
	}
}

// NewCache opens the scan cache configured for workspace.
func NewCache(cfg *config.Config, workspace string) (*cache.Cache, error) {
	dir := cfg.Cache.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	return cache.New(dir, cacheVersion, cfg.Cache.Enabled)
}

// OnProgress registers a callback invoked once per scanned file.
func (s *Scanner) OnProgress(fn func()) {
	s.progress = fn
}

// Files returns the files a scan of workspace would read.
func (s *Scanner) Files(workspace string, filePatterns []string) ([]string, error) {
	if len(filePatterns) == 0 {
		return s.files.ScanDir(workspace)
	}
	return s.files.ScanDirMatching(workspace, filePatterns)
}

// ListTodos returns every TODO item in workspace in discovery order. The scan
// honours ctx: a deadline that expires mid-scan is returned as an error.
func (s *Scanner) ListTodos(ctx context.Context, workspace string, filePatterns []string) ([]Item, error) {
	log := logging.Component("todo")

	files, err := s.Files(workspace, filePatterns)
	if err != nil {
		return nil, fmt.Errorf("scan workspace %s: %w", workspace, err)
	}

	perFile, errs := fileproc.ForEachOrdered(ctx, files, s.workers, func(path string) ([]Item, error) {
		return s.scanFile(workspace, path)
	}, s.progress)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs != nil {
		for _, e := range errs.Errors {
			log.Warn().Str("file", e.Path).Err(e.Err).Msg("skipping unreadable file")
		}
	}

	var items []Item
	for _, fileItems := range perFile {
		items = append(items, fileItems...)
	}

	log.Debug().Int("files", len(files)).Int("todos", len(items)).Msg("workspace scanned")
	return items, nil
}

func (s *Scanner) scanFile(workspace, path string) ([]Item, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(workspace, path)
	if err != nil {
		rel = path
	}
	key := filepath.ToSlash(rel)
	hash := cache.HashBytes(content)

	var items []Item
	if s.cache.Lookup(key, hash, &items) {
		for i := range items {
			items[i].FilePath = path
		}
		return items, nil
	}

	items, err = s.extractor.Extract(path, content)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].ID = fingerprint(key, items[i].Content, occurrenceOf(items, i))
	}
	_ = s.cache.Store(key, hash, items)
	return items, nil
}

// occurrenceOf counts earlier items with the same content.
func occurrenceOf(items []Item, i int) int {
	n := 0
	for j := 0; j < i; j++ {
		if items[j].Content == items[i].Content {
			n++
		}
	}
	return n
}
