// Package transform performs the source edit behind each action type.
// Executors are pure: they receive file content and return new content,
// leaving backups and writes to the caller.
package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/panbanda/sweep/pkg/analyzer/stubs"
	"github.com/panbanda/sweep/pkg/errctx"
	"github.com/panbanda/sweep/pkg/pattern"
	"github.com/panbanda/sweep/pkg/todo"
)

var (
	// ErrUnsupportedAction is returned for an action type with no executor.
	ErrUnsupportedAction = errors.New("unsupported action type")
	// ErrMissingTarget is returned when the TODO did not name what to change.
	ErrMissingTarget = errors.New("missing target")
	// ErrLineOutOfRange is returned when the TODO line no longer exists.
	ErrLineOutOfRange = errors.New("line out of range")
)

// Request is the input to an executor.
type Request struct {
	Path    string
	Content []byte
	// Todo.Line is the TODO's current line, after any relocation.
	Todo      todo.Item
	Extracted map[string]string
	Strategy  stubs.Strategy
	// RemoveTodo deletes the TODO comment line after a successful change.
	RemoveTodo bool
}

// Result is the outcome of an executor. Content is the full new file.
type Result struct {
	Content string `json:"-"`
	Changed bool   `json:"changed"`
	Skipped bool   `json:"skipped"`
	Summary string `json:"summary"`
	Diff    string `json:"diff,omitempty"`
}

// Executor performs one kind of transformation.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req Request) (*Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Registry maps action types to executors.
type Registry struct {
	executors map[pattern.ActionType]Executor
}

// NewRegistry returns a registry with an executor for every action type.
func NewRegistry() *Registry {
	r := &Registry{executors: make(map[pattern.ActionType]Executor)}
	r.Register(pattern.ActionAddComment, ExecutorFunc(AddComment))
	r.Register(pattern.ActionRemoveUnusedImports, ExecutorFunc(RemoveUnusedImports))
	r.Register(pattern.ActionRemoveUnusedVariables, ExecutorFunc(RemoveUnusedVariables))
	r.Register(pattern.ActionRenameVariable, ExecutorFunc(Rename))
	r.Register(pattern.ActionImplementFunction, ExecutorFunc(ImplementFunction))
	r.Register(pattern.ActionFixFormatting, ExecutorFunc(FixFormatting))
	r.Register(pattern.ActionRemoveConsoleLog, ExecutorFunc(RemoveConsoleLog))
	r.Register(pattern.ActionAddTypeAnnotation, ExecutorFunc(AddTypeAnnotation))
	r.Register(pattern.ActionFlagForReview, ExecutorFunc(FlagForReview))
	return r
}

// Register installs or replaces the executor for action.
func (r *Registry) Register(action pattern.ActionType, e Executor) {
	r.executors[action] = e
}

// Supports reports whether action has an executor.
func (r *Registry) Supports(action pattern.ActionType) bool {
	_, ok := r.executors[action]
	return ok
}

type outcome struct {
	res *Result
	err error
}

// run returns as soon as ctx is done. An abandoned executor only computes
// content, so letting it finish in the background is harmless.
func run(ctx context.Context, e Executor, req Request) (*Result, error) {
	done := make(chan outcome, 1)
	go func() {
		res, err := e.Execute(ctx, req)
		done <- outcome{res: res, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.res, o.err
	}
}

// Execute runs the executor for action. An action type with no executor is
// fatal: the pattern table and the registry disagree.
func (r *Registry) Execute(ctx context.Context, action pattern.ActionType, req Request) (*Result, error) {
	e, ok := r.executors[action]
	if !ok {
		return nil, errctx.Fatal("execute", fmt.Errorf("%w: %s", ErrUnsupportedAction, action))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := run(ctx, e, req)
	if err != nil {
		return nil, err
	}
	if !res.Changed {
		res.Content = string(req.Content)
		return res, nil
	}

	if req.RemoveTodo {
		res.Content = removeTodoLine(res.Content, req.Todo)
	}
	if res.Content == string(req.Content) {
		res.Changed = false
		return res, nil
	}
	res.Diff = Diff(req.Path, string(req.Content), res.Content)
	return res, nil
}

// FlagForReview leaves the file alone; the TODO needs a human.
func FlagForReview(_ context.Context, req Request) (*Result, error) {
	return &Result{
		Content: string(req.Content),
		Skipped: true,
		Summary: "flagged for manual review",
	}, nil
}

// removeTodoLine drops the TODO's line when it holds nothing but a line
// comment. Trailing comments on code lines are left alone.
func removeTodoLine(content string, item todo.Item) string {
	line, ok := todo.Locate([]byte(content), item)
	if !ok {
		return content
	}
	lines := strings.SplitAfter(content, "\n")
	if !strings.HasPrefix(strings.TrimSpace(lines[line-1]), "//") {
		return content
	}
	return strings.Join(lines[:line-1], "") + strings.Join(lines[line:], "")
}

// indentOf returns the leading whitespace of line.
func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
