package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/panbanda/sweep/internal/cache"
	"github.com/panbanda/sweep/internal/logging"
	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/session"
)

// Sessions is the part of the session controller the runner drives.
type Sessions interface {
	StartSession(ctx context.Context, req session.Request) (*session.Result, error)
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Runner starts a session scoped to the files in each batch. Files whose
// content is exactly what the previous session wrote are skipped, so a
// session's own edits never trigger the next one.
type Runner struct {
	sessions  Sessions
	workspace string
	template  session.Request
	out       io.Writer
	log       zerolog.Logger

	mu      sync.Mutex
	written map[string]string // path -> checksum after the last session wrote it
	results []*session.Result
}

// NewRunner creates a runner for workspace. template supplies every request
// field except WorkspacePath and FilePatterns.
func NewRunner(sessions Sessions, workspace string, template session.Request) *Runner {
	return &Runner{
		sessions:  sessions,
		workspace: workspace,
		template:  template,
		out:       os.Stdout,
		log:       logging.Component("watch"),
		written:   make(map[string]string),
	}
}

// SetOutput redirects the per-session summary lines.
func (r *Runner) SetOutput(out io.Writer) {
	r.out = out
}

// Results returns the results of every session the runner started.
func (r *Runner) Results() []*session.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*session.Result(nil), r.results...)
}

// HandleBatch is a BatchFunc.
func (r *Runner) HandleBatch(ctx context.Context, paths []string) {
	changed := r.filter(paths)
	if len(changed) == 0 {
		return
	}

	patterns := make([]string, 0, len(changed))
	for _, p := range changed {
		rel, err := filepath.Rel(r.workspace, p)
		if err != nil {
			continue
		}
		patterns = append(patterns, escapeGlob(filepath.ToSlash(rel)))
	}

	req := r.template
	req.WorkspacePath = r.workspace
	req.FilePatterns = patterns

	res, err := r.sessions.StartSession(ctx, req)
	if err != nil {
		r.log.Error().Err(err).Msg("session failed")
		color.New(color.FgRed).Fprintf(r.out, "Session failed: %v\n", err)
	}
	if res == nil {
		return
	}

	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
	r.remember(ctx, res.SessionID)

	color.New(color.FgGreen).Fprintf(r.out, "Session %s %s: %d executed, %d pending approval, %d errors\n",
		shortID(res.SessionID), res.Status, res.ActionsExecuted, res.PendingApproval, len(res.Errors))
}

// filter drops paths that still hold the content the runner last wrote.
func (r *Runner) filter(paths []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if sum, ok := r.written[p]; ok && sum == cache.HashBytes(content) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *Runner) remember(ctx context.Context, id string) {
	sess, err := r.sessions.Get(ctx, id)
	if err != nil {
		r.log.Warn().Err(err).Str("session_id", id).Msg("could not load session")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range sess.Actions {
		if a.Changes == nil || a.Changes.AfterChecksum == "" {
			continue
		}
		r.written[a.Changes.FilePath] = a.Changes.AfterChecksum
	}
}

// escapeGlob quotes the doublestar metacharacters in a literal path.
func escapeGlob(path string) string {
	var sb strings.Builder
	for _, c := range path {
		if strings.ContainsRune(`*?[]{}\`, c) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Options configures Run.
type Options struct {
	Config   *config.Config
	Debounce time.Duration
	// Request is the template for every session started.
	Request session.Request
	Out     io.Writer
}

// Run watches workspace and runs a session for every batch of changes until
// ctx is done.
func Run(ctx context.Context, sessions Sessions, workspace string, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	w, err := NewWatcher(workspace, opts.Config, opts.Debounce)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Stop()

	runner := NewRunner(sessions, workspace, opts.Request)
	if opts.Out != nil {
		w.SetOutput(opts.Out)
		runner.SetOutput(opts.Out)
	}
	w.SetCallback(runner.HandleBatch)

	err = w.Start(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
