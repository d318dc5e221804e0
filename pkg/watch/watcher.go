// Package watch re-runs sweep sessions when source files in a workspace
// change.
package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/panbanda/sweep/internal/logging"
	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/parser"
)

// DefaultDebounce is how long a file must be quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// BatchFunc receives the files that settled in one debounce window.
type BatchFunc func(ctx context.Context, paths []string)

// Watcher monitors a workspace and reports changed source files in batches.
// Batches never overlap: changes seen while a batch is being handled are
// dropped, since they are normally the handler's own edits.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	path      string
	callback  BatchFunc
	out       io.Writer
	log       zerolog.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	busy    bool
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for the workspace at path.
func NewWatcher(path string, cfg *config.Config, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  debounce,
		path:      path,
		out:       os.Stdout,
		log:       logging.Component("watch"),
		pending:   make(map[string]time.Time),
	}, nil
}

// SetCallback sets the function to call with each batch of changed files.
func (w *Watcher) SetCallback(cb BatchFunc) {
	w.callback = cb
}

// SetOutput redirects the status lines printed while watching.
func (w *Watcher) SetOutput(out io.Writer) {
	w.out = out
}

// Start watches until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addDirs(); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w.out, "Watching for changes in %s...\n", w.path)
	cyan.Fprintln(w.out, "Press Ctrl+C to stop")

	go w.processDebounced(ctx)
	defer w.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) addDirs() error {
	return filepath.WalkDir(w.path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		for _, excluded := range w.config.Exclude.Dirs {
			if d.Name() == excluded && path != w.path {
				return filepath.SkipDir
			}
		}
		return w.fsWatcher.Add(path)
	})
}

// handleEvent records a write or create of a supported, non-excluded file.
// New directories are watched as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	path := event.Name
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.excludedDir(info.Name()) {
				_ = w.fsWatcher.Add(path)
			}
			return
		}
	}

	rel, err := filepath.Rel(w.path, path)
	if err != nil {
		rel = path
	}
	if w.config.ShouldExclude(rel) || !parser.IsSupported(path) {
		return
	}

	w.mu.Lock()
	if !w.busy {
		w.pending[path] = time.Now()
	}
	w.mu.Unlock()
}

func (w *Watcher) excludedDir(name string) bool {
	for _, excluded := range w.config.Exclude.Dirs {
		if name == excluded {
			return true
		}
	}
	return false
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending hands every file quiet for the debounce period to the
// callback as one sorted batch.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy {
		return
	}

	now := time.Now()
	var ready []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	if len(ready) == 0 || w.callback == nil {
		return
	}
	sort.Strings(ready)

	w.busy = true
	w.wg.Add(1)
	go w.runCallback(ctx, ready)
}

func (w *Watcher) runCallback(ctx context.Context, paths []string) {
	defer w.wg.Done()

	yellow := color.New(color.FgYellow)
	for _, p := range paths {
		rel, err := filepath.Rel(w.path, p)
		if err != nil {
			rel = p
		}
		yellow.Fprintf(w.out, "File changed: %s\n", rel)
	}

	w.callback(ctx, paths)

	w.mu.Lock()
	w.busy = false
	clear(w.pending)
	w.mu.Unlock()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
