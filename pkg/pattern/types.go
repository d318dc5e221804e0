package pattern

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ActionType is the closed set of transformations a pattern can request.
type ActionType string

const (
	ActionAddComment            ActionType = "add-comment"
	ActionRemoveUnusedImports   ActionType = "remove-unused-imports"
	ActionRemoveUnusedVariables ActionType = "remove-unused-variables"
	ActionRenameVariable        ActionType = "rename-variable"
	ActionImplementFunction     ActionType = "implement-function"
	ActionFixFormatting         ActionType = "fix-formatting"
	ActionRemoveConsoleLog      ActionType = "remove-console-log"
	ActionAddTypeAnnotation     ActionType = "add-type-annotation"
	ActionFlagForReview         ActionType = "flag-for-review"
)

// ActionTypes lists every known action type in declaration order.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionAddComment,
		ActionRemoveUnusedImports,
		ActionRemoveUnusedVariables,
		ActionRenameVariable,
		ActionImplementFunction,
		ActionFixFormatting,
		ActionRemoveConsoleLog,
		ActionAddTypeAnnotation,
		ActionFlagForReview,
	}
}

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	for _, t := range ActionTypes() {
		if t == a {
			return true
		}
	}
	return false
}

// Risk is how much damage a wrong application of a pattern can do.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Valid reports whether r is a known risk level.
func (r Risk) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// SafePattern maps a family of TODO phrasings to one transformation.
type SafePattern struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Expr           *regexp.Regexp `json:"-"`
	Action         ActionType     `json:"action"`
	BaseConfidence float64        `json:"base_confidence"`
	Risk           Risk           `json:"risk"`
	AutoApprove    bool           `json:"auto_approve"`

	// Extensions restricts the pattern to these file extensions (empty = any).
	Extensions []string `json:"extensions,omitempty"`
	// MaxComplexity scales confidence down for files above it (0 = no limit).
	MaxComplexity int `json:"max_complexity,omitempty"`
}

// Rule returns the pattern's match expression as text.
func (p SafePattern) Rule() string {
	if p.Expr == nil {
		return ""
	}
	return p.Expr.String()
}

// AppliesTo reports whether the pattern may be used on path.
func (p SafePattern) AppliesTo(path string) bool {
	if len(p.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range p.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Match is one pattern that a TODO satisfied.
type Match struct {
	PatternID   string            `json:"pattern_id"`
	PatternName string            `json:"pattern_name"`
	Confidence  float64           `json:"confidence"`
	Action      ActionType        `json:"action"`
	Extracted   map[string]string `json:"extracted"`
	Risk        Risk              `json:"risk"`
	AutoApprove bool              `json:"auto_approve"`
}

// Input is what the matcher sees for one TODO.
type Input struct {
	TodoContent string
	FilePath    string
	FileContent []byte
}
