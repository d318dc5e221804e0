// Package pattern matches free-text TODO content against a table of safe
// transformation patterns.
package pattern

import (
	"math"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/pkg/parser"
)

// ComplexityPenalty scales confidence for files above a pattern's limit.
const ComplexityPenalty = 0.8

var markerPrefix = regexp.MustCompile(`(?i)^(?:(?:TODO|FIXME|HACK|NOTE|XXX)\b(?:\([^)]*\))?\s*:?\s*)+`)

// StripMarker removes leading TODO-style markers and owner tags.
func StripMarker(content string) string {
	return strings.TrimSpace(markerPrefix.ReplaceAllString(strings.TrimSpace(content), ""))
}

// Matcher evaluates every pattern of a table against TODO content.
type Matcher struct {
	table *Table
}

// NewMatcher creates a matcher over table. A nil table means DefaultTable.
func NewMatcher(table *Table) *Matcher {
	if table == nil {
		table = DefaultTable()
	}
	return &Matcher{table: table}
}

// Table returns the matcher's pattern table.
func (m *Matcher) Table() *Table {
	return m.table
}

// Analyze returns every pattern the TODO satisfies, in declaration order.
func (m *Matcher) Analyze(in Input) []Match {
	text := StripMarker(in.TodoContent)
	if text == "" {
		return nil
	}

	complexity := -1
	var matches []Match
	for _, p := range m.table.patterns {
		if !p.AppliesTo(in.FilePath) {
			continue
		}
		sub := p.Expr.FindStringSubmatch(text)
		if sub == nil {
			continue
		}

		conf := p.BaseConfidence
		if p.MaxComplexity > 0 && len(in.FileContent) > 0 {
			if complexity < 0 {
				complexity = Complexity(in.FilePath, in.FileContent)
			}
			if complexity > p.MaxComplexity {
				conf *= ComplexityPenalty
			}
		}

		matches = append(matches, Match{
			PatternID:   p.ID,
			PatternName: p.Name,
			Confidence:  math.Round(conf*1000) / 1000,
			Action:      p.Action,
			Extracted:   extract(p.Expr, sub),
			Risk:        p.Risk,
			AutoApprove: p.AutoApprove,
		})
	}
	return matches
}

// BestMatch returns the highest-confidence match. Ties go to the pattern
// declared first.
func (m *Matcher) BestMatch(in Input) (Match, bool) {
	return Best(m.Analyze(in))
}

// Best picks the highest-confidence match from matches, first wins ties.
func Best(matches []Match) (Match, bool) {
	if len(matches) == 0 {
		return Match{}, false
	}
	best := matches[0]
	for _, mt := range matches[1:] {
		if mt.Confidence > best.Confidence {
			best = mt
		}
	}
	return best, true
}

// extract maps every named group to its captured text, "" when it did not
// participate in the match.
func extract(expr *regexp.Regexp, sub []string) map[string]string {
	out := make(map[string]string)
	for i, name := range expr.SubexpNames() {
		if name == "" {
			continue
		}
		if i < len(sub) {
			out[name] = strings.TrimSpace(sub[i])
		} else {
			out[name] = ""
		}
	}
	return out
}

var decisionNodes = map[string]bool{
	"if_statement":       true,
	"for_statement":      true,
	"for_in_statement":   true,
	"while_statement":    true,
	"do_statement":       true,
	"switch_case":        true,
	"catch_clause":       true,
	"ternary_expression": true,
}

// Complexity is the cyclomatic complexity of a whole file: one plus the
// number of decision points. Files without a grammar score zero.
func Complexity(path string, content []byte) int {
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return 0
	}
	n := 1
	parser.WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if decisionNodes[nodeType] {
			n++
		}
		if nodeType == "binary_expression" {
			for i := range int(node.ChildCount()) {
				switch node.Child(i).Type() {
				case "&&", "||", "??":
					n++
				}
			}
		}
		return true
	})
	return n
}
