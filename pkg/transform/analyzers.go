package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/panbanda/sweep/pkg/analyzer/imports"
	"github.com/panbanda/sweep/pkg/analyzer/stubs"
	"github.com/panbanda/sweep/pkg/analyzer/variables"
)

// RemoveUnusedImports deletes every import statement holding an unused
// binding.
func RemoveUnusedImports(_ context.Context, req Request) (*Result, error) {
	out, unused, err := imports.Remove(req.Path, req.Content)
	if err != nil {
		return nil, err
	}
	if len(unused) == 0 {
		return &Result{Summary: "no unused imports"}, nil
	}

	names := make([]string, len(unused))
	for i, u := range unused {
		names[i] = u.Name
	}
	return &Result{
		Content: out,
		Changed: true,
		Summary: fmt.Sprintf("removed %d import statement(s) for unused %s",
			len(imports.Statements(unused)), strings.Join(names, ", ")),
	}, nil
}

// RemoveUnusedVariables deletes the unused variables that are safe to
// remove. Anything needing review is reported in the summary only.
func RemoveUnusedVariables(_ context.Context, req Request) (*Result, error) {
	analysis, err := variables.AnalyzeFile(req.Path, req.Content)
	if err != nil {
		return nil, err
	}
	out, removed, err := variables.RemoveUnused(req.Path, req.Content, analysis.SafeToRemove)
	if err != nil {
		return nil, err
	}

	review := ""
	if n := len(analysis.RequiresReview); n > 0 {
		review = fmt.Sprintf("; %d need review", n)
	}
	if removed == 0 {
		return &Result{Summary: "no safely removable variables" + review}, nil
	}
	return &Result{
		Content: out,
		Changed: true,
		Summary: fmt.Sprintf("removed %d unused variable(s)%s", removed, review),
	}, nil
}

// ImplementFunction synthesizes a body for the stub the TODO names, or for
// the stub at or just below the TODO when the name is missing or unknown.
func ImplementFunction(_ context.Context, req Request) (*Result, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = stubs.StrategyBalanced
	}

	var (
		impl *stubs.Implementation
		err  error
	)
	if name := req.Extracted["functionName"]; name != "" {
		impl, err = stubs.Implement(req.Path, req.Content, name, strategy)
	}
	if impl == nil && (err == nil || errors.Is(err, stubs.ErrStubNotFound)) {
		impl, err = stubs.ImplementNear(req.Path, req.Content, req.Todo.Line, strategy)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Content: impl.Content,
		Changed: true,
		Summary: fmt.Sprintf("implemented %s as %s (confidence %.2f)",
			impl.Stub.Name, impl.Suggestion.Category, impl.Suggestion.Confidence),
	}, nil
}
