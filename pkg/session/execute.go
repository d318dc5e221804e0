package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/panbanda/sweep/internal/cache"
	"github.com/panbanda/sweep/internal/logging"
	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/errctx"
	"github.com/panbanda/sweep/pkg/todo"
	"github.com/panbanda/sweep/pkg/transform"
)

// applied is what one execution produced, folded into the action under
// the session lock.
type applied struct {
	line    int
	output  string
	skipped bool
	changes *Changes
}

// executeAction moves a through executing to a terminal status. Any failure
// leaves the file as it was and is returned as a RecoverableError unless it
// is fatal.
func (c *Controller) executeAction(ctx context.Context, r *run, a *Action) error {
	ctx = logging.WithActionID(ctx, a.ID)

	r.mu.Lock()
	err := a.Transition(ActionExecuting)
	start := time.Now()
	a.Execution.StartTime = &start
	meta := a.Metadata
	r.mu.Unlock()
	if err != nil {
		return errctx.Recoverable("execute action", err)
	}
	c.persist(ctx, r)
	_ = r.replay.Record(EventActionStarted, a.ID, meta)

	out, err := errctx.WithTimeout(ctx, "action", config.Timeout(c.cfg.Timeouts.ActionSeconds), func(ctx context.Context) (*applied, error) {
		return c.apply(ctx, r, a)
	})

	end := time.Now()
	r.mu.Lock()
	a.Execution.EndTime = &end
	a.Execution.DurationMS = end.Sub(start).Milliseconds()
	if out != nil {
		a.Changes = out.changes
		a.Execution.Output = out.output
		if out.line > 0 {
			a.LineNumber = out.line
		}
	}
	switch {
	case err != nil:
		_ = a.Transition(ActionFailed)
		a.Execution.Error = err.Error()
	case out.skipped:
		_ = a.Transition(ActionSkipped)
	default:
		_ = a.Transition(ActionCompleted)
	}
	status := a.Status
	r.mu.Unlock()

	if err != nil {
		c.record(r, a.ID, err, errctx.Details{
			Operation:   "action",
			File:        a.FilePath,
			Line:        a.LineNumber,
			TodoContent: meta.TodoText,
			PatternID:   meta.PatternID,
			Confidence:  errctx.Float(meta.Confidence),
		})
		_ = r.replay.Record(EventActionFailed, a.ID, map[string]string{"error": err.Error()})
		c.persist(ctx, r)
		if errctx.IsFatal(err) {
			return err
		}
		return errctx.Recoverable("execute action", err)
	}

	if status == ActionCompleted {
		c.commit(ctx, r, a)
	}
	c.log.Info().Ctx(ctx).
		Str("type", string(a.Type)).
		Str("file", a.FilePath).
		Str("status", string(status)).
		Msg(out.output)
	r.mu.Lock()
	changes := a.Changes
	r.mu.Unlock()
	_ = r.replay.Record(EventActionCompleted, a.ID, changes)
	c.persist(ctx, r)
	return nil
}

// apply relocates the TODO, runs the executor, writes the result and
// validates it, restoring the original on validation failure.
func (c *Controller) apply(ctx context.Context, r *run, a *Action) (*applied, error) {
	path := a.FilePath
	content, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, errctx.Recoverable("read", err)
	}

	// Earlier actions may have shifted the TODO.
	line, ok := todo.Locate(content, a.Todo)
	if !ok {
		return nil, errctx.Recoverable("locate", fmt.Errorf("%w: %s:%d", ErrTodoMoved, path, a.Todo.Line))
	}
	item := a.Todo
	item.Line = line

	res, err := c.registry.Execute(ctx, a.Type, transform.Request{
		Path:       path,
		Content:    content,
		Todo:       item,
		Extracted:  a.Metadata.Extracted,
		Strategy:   r.strategy,
		RemoveTodo: c.cfg.Session.RemoveResolvedTodos,
	})
	if err != nil {
		return &applied{line: line}, err
	}

	out := &applied{line: line, output: res.Summary, skipped: res.Skipped || !res.Changed}
	if out.skipped {
		if out.output == "" {
			out.output = "no change needed"
		}
		return out, nil
	}
	out.changes = &Changes{
		FilePath:       path,
		BeforeChecksum: cache.HashBytes(content),
		Diff:           res.Diff,
	}
	if r.sess.Config.DryRun {
		out.skipped = true
		out.output += " (dry run)"
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	next := []byte(res.Content)
	backup, err := r.fs.WriteFile(path, next, r.sess.Config.EnableBackups)
	if err != nil {
		return out, errctx.Recoverable("write", err)
	}
	out.changes.BackupPath = backup

	if vr := c.validator.ValidateSyntax(path, next); !vr.IsValid {
		verr := &errctx.ValidationError{File: path, Issues: vr.Messages()}
		if rerr := c.rollback(r, path, backup, content); rerr != nil {
			return out, errctx.Fatal("rollback", errors.Join(verr, rerr))
		}
		out.changes.BackupPath = ""
		return out, verr
	}
	out.changes.AfterChecksum = cache.HashBytes(next)
	return out, nil
}

// rollback restores from the backup when there is one, otherwise from the
// content read before the write.
func (c *Controller) rollback(r *run, path, backup string, original []byte) error {
	if backup != "" {
		return r.fs.Restore(path, backup)
	}
	_, err := r.fs.WriteFile(path, original, false)
	return err
}

// commit records a completed action in git. A failed commit is recorded
// but leaves the action completed.
func (c *Controller) commit(ctx context.Context, r *run, a *Action) {
	if r.repo == nil || r.sess.Config.DryRun || a.Changes == nil {
		return
	}
	rel, err := filepath.Rel(r.sess.WorkspacePath, a.FilePath)
	if err != nil {
		rel = a.FilePath
	}
	msg := fmt.Sprintf("sweep: %s in %s\n\n%s\n\nSession: %s\nAction: %s\n",
		a.Type, filepath.ToSlash(rel), a.Metadata.TodoText, a.SessionID, a.ID)

	hash, err := r.repo.CommitChanges(ctx, []string{a.FilePath}, msg)
	if err != nil {
		c.record(r, a.ID, errctx.Recoverable("commit", err), errctx.Details{Operation: "commit", File: a.FilePath})
		return
	}
	r.mu.Lock()
	a.Changes.CommitHash = hash
	r.mu.Unlock()
}
