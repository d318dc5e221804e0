// Package validate checks rewritten sources and caller input before they are
// acted on.
package validate

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/panbanda/sweep/pkg/parser"
)

// Severity of a syntax issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in a file.
type Issue struct {
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%d:%d %s: %s", i.Line, i.Column, i.Severity, i.Message)
}

// Result is the outcome of validating one file.
type Result struct {
	IsValid bool    `json:"is_valid"`
	Errors  []Issue `json:"errors,omitempty"`
}

// Messages returns the error-severity issues rendered as strings.
func (r Result) Messages() []string {
	var out []string
	for _, i := range r.Errors {
		if i.Severity == SeverityError {
			out = append(out, i.String())
		}
	}
	return out
}

// Validator checks that content still parses.
type Validator struct{}

// New creates a syntax validator.
func New() *Validator {
	return &Validator{}
}

// ValidateSyntax parses content with the grammar for path. Files without a
// grammar pass with a warning since nothing can be checked.
func (v *Validator) ValidateSyntax(path string, content []byte) Result {
	result, err := parser.ParseSource(path, content)
	if errors.Is(err, parser.ErrUnsupportedFile) {
		return Result{
			IsValid: true,
			Errors: []Issue{{
				Line:     0,
				Message:  "no grammar for " + path + ", syntax not checked",
				Severity: SeverityWarning,
			}},
		}
	}
	if err != nil {
		return Result{Errors: []Issue{{Message: err.Error(), Severity: SeverityError}}}
	}

	issues := parser.SyntaxIssues(result)
	out := Result{IsValid: len(issues) == 0}
	for _, is := range issues {
		out.Errors = append(out.Errors, Issue{
			Line:     is.Line,
			Column:   is.Column,
			Message:  is.Message,
			Severity: SeverityError,
		})
	}
	return out
}

// Workspace checks that path names an existing directory.
func Workspace(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("workspace path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access workspace: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// WorkspaceField returns a criterio validator for workspace paths.
func WorkspaceField(field, path string) error {
	return criterio.Run(field, path, Workspace)
}
