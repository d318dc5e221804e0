package pattern

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrDuplicateID is returned when two patterns share an ID.
	ErrDuplicateID = errors.New("duplicate pattern id")
	// ErrInvalidPattern is returned for a pattern that fails validation.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Table is an immutable, validated set of patterns in declaration order.
type Table struct {
	patterns []SafePattern
	byID     map[string]int
}

// NewTable validates patterns and builds a table. IDs must be unique, base
// confidence must lie in [0, 1], and action and risk must be known values.
func NewTable(patterns ...SafePattern) (*Table, error) {
	t := &Table{
		patterns: make([]SafePattern, 0, len(patterns)),
		byID:     make(map[string]int, len(patterns)),
	}
	for _, p := range patterns {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, dup := t.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		p.Extensions = append([]string(nil), p.Extensions...)
		t.byID[p.ID] = len(t.patterns)
		t.patterns = append(t.patterns, p)
	}
	return t, nil
}

func validate(p SafePattern) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidPattern)
	case p.Expr == nil:
		return fmt.Errorf("%w: %s has no match rule", ErrInvalidPattern, p.ID)
	case !p.Action.Valid():
		return fmt.Errorf("%w: %s has unknown action %q", ErrInvalidPattern, p.ID, p.Action)
	case !p.Risk.Valid():
		return fmt.Errorf("%w: %s has unknown risk %q", ErrInvalidPattern, p.ID, p.Risk)
	case p.BaseConfidence < 0 || p.BaseConfidence > 1:
		return fmt.Errorf("%w: %s confidence %v outside [0, 1]", ErrInvalidPattern, p.ID, p.BaseConfidence)
	case p.MaxComplexity < 0:
		return fmt.Errorf("%w: %s has negative max complexity", ErrInvalidPattern, p.ID)
	}
	return nil
}

// Len returns the number of patterns.
func (t *Table) Len() int {
	return len(t.patterns)
}

// Patterns returns a copy of the patterns in declaration order.
func (t *Table) Patterns() []SafePattern {
	out := make([]SafePattern, len(t.patterns))
	copy(out, t.patterns)
	return out
}

// IDs returns the pattern IDs in declaration order.
func (t *Table) IDs() []string {
	ids := make([]string, len(t.patterns))
	for i, p := range t.patterns {
		ids[i] = p.ID
	}
	return ids
}

// Get looks up a pattern by ID.
func (t *Table) Get(id string) (SafePattern, bool) {
	i, ok := t.byID[id]
	if !ok {
		return SafePattern{}, false
	}
	return t.patterns[i], true
}

// WithConfidence returns a new table whose base confidences are replaced by
// overrides. Unknown IDs are an error.
func (t *Table) WithConfidence(overrides map[string]float64) (*Table, error) {
	patterns := t.Patterns()
	for id, conf := range overrides {
		i, ok := t.byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown pattern %s", ErrInvalidPattern, id)
		}
		patterns[i].BaseConfidence = conf
	}
	return NewTable(patterns...)
}

const identifier = "`?(?P<%s>[A-Za-z_$][A-Za-z0-9_$]*)`?"

func ident(group string) string {
	return fmt.Sprintf(identifier, group)
}

// DefaultTable returns the built-in pattern table. The catch-all review
// pattern is last so specific patterns win confidence ties.
func DefaultTable() *Table {
	t, err := NewTable(
		SafePattern{
			ID:             "add-comment",
			Name:           "Add comment",
			Description:    "Insert an explanatory comment above the TODO",
			Expr:           regexp.MustCompile(`(?i)^(?:add|write|insert)\s+(?:a\s+|an\s+|some\s+)?(?:comments?|documentation|docs?|jsdoc|explanation)(?:\s+(?:about|for|on|to|explaining|describing)\s+(?P<topic>.+))?`),
			Action:         ActionAddComment,
			BaseConfidence: 0.85,
			Risk:           RiskLow,
			AutoApprove:    true,
		},
		SafePattern{
			ID:             "remove-unused-imports",
			Name:           "Remove unused imports",
			Description:    "Delete import statements whose bindings are never referenced",
			Expr:           regexp.MustCompile(`(?i)(?:remove|clean\s*up|delete|drop)\s+(?:the\s+|all\s+)?unused\s+imports?`),
			Action:         ActionRemoveUnusedImports,
			BaseConfidence: 0.9,
			Risk:           RiskLow,
			AutoApprove:    true,
		},
		SafePattern{
			ID:             "remove-unused-variables",
			Name:           "Remove unused variables",
			Description:    "Delete local variable statements that are never referenced",
			Expr:           regexp.MustCompile(`(?i)(?:remove|clean\s*up|delete|drop)\s+(?:the\s+|all\s+)?unused\s+(?:variables?|vars?|locals?)`),
			Action:         ActionRemoveUnusedVariables,
			BaseConfidence: 0.8,
			Risk:           RiskMedium,
			AutoApprove:    true,
			MaxComplexity:  80,
		},
		SafePattern{
			ID:             "rename-variable",
			Name:           "Rename variable",
			Description:    "Rename every reference to an identifier",
			Expr:           regexp.MustCompile(`(?i)rename\s+(?:the\s+)?(?:variable\s+|var\s+|identifier\s+)?` + ident("oldName") + `\s+(?:to|->|=>|as|into)\s+` + ident("newName")),
			Action:         ActionRenameVariable,
			BaseConfidence: 0.85,
			Risk:           RiskMedium,
			AutoApprove:    true,
			MaxComplexity:  60,
		},
		SafePattern{
			ID:             "implement-function",
			Name:           "Implement function",
			Description:    "Synthesize a body for a stub function",
			Expr:           regexp.MustCompile(`(?i)^implement\s+(?:the\s+)?(?:function\s+|method\s+)?` + ident("functionName") + `(?:\s*\(\))?`),
			Action:         ActionImplementFunction,
			BaseConfidence: 0.75,
			Risk:           RiskMedium,
			AutoApprove:    true,
			MaxComplexity:  40,
		},
		SafePattern{
			ID:             "fix-formatting",
			Name:           "Fix formatting",
			Description:    "Normalize trailing whitespace, tabs and blank lines",
			Expr:           regexp.MustCompile(`(?i)(?:fix|clean\s*up|tidy|correct)\s+(?:the\s+)?(?:formatting|indentation|whitespace|spacing|trailing\s+whitespace)`),
			Action:         ActionFixFormatting,
			BaseConfidence: 0.9,
			Risk:           RiskLow,
			AutoApprove:    true,
		},
		SafePattern{
			ID:             "remove-console-log",
			Name:           "Remove console logging",
			Description:    "Delete console.log style debugging statements",
			Expr:           regexp.MustCompile(`(?i)remove\s+(?:the\s+|all\s+)?(?:console\.log|console\s+logs?|debug\s+(?:logs?|logging|statements?)|logging\s+statements?)`),
			Action:         ActionRemoveConsoleLog,
			BaseConfidence: 0.8,
			Risk:           RiskLow,
			AutoApprove:    true,
		},
		SafePattern{
			ID:             "add-type-annotation",
			Name:           "Add type annotation",
			Description:    "Annotate an untyped declaration",
			Expr:           regexp.MustCompile(`(?i)^add\s+(?:a\s+)?(?:type\s+annotations?|typings?|types?)(?:\s+(?:for|to)\s+` + ident("target") + `)?(?:\s*:\s*(?P<typeName>\S.*))?`),
			Action:         ActionAddTypeAnnotation,
			BaseConfidence: 0.65,
			Risk:           RiskMedium,
			Extensions:     []string{".ts", ".tsx", ".mts", ".cts"},
			MaxComplexity:  40,
		},
		SafePattern{
			ID:             "generic-review",
			Name:           "Flag for review",
			Description:    "Catch-all: record the TODO for a human",
			Expr:           regexp.MustCompile(`(?s)\S`),
			Action:         ActionFlagForReview,
			BaseConfidence: 0.3,
			Risk:           RiskHigh,
		},
	)
	if err != nil {
		panic(err)
	}
	return t
}
