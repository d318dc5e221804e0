// Package variables finds declared bindings that are never referenced and
// classifies which of them can be removed without review.
//
// The analysis is syntactic: a name counts as used when any identifier with
// that text appears outside a declaration position anywhere in the file.
// Shadowed names therefore hide unused bindings, never the reverse.
package variables

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/internal/fileproc"
	"github.com/panbanda/sweep/pkg/analyzer"
	"github.com/panbanda/sweep/pkg/parser"
)

// patternTypes are the destructuring nodes a declared name may sit inside.
var patternTypes = map[string]bool{
	"object_pattern":            true,
	"array_pattern":             true,
	"pair_pattern":              true,
	"rest_pattern":              true,
	"assignment_pattern":        true,
	"object_assignment_pattern": true,
}

// AnalyzeFile parses content and reports its unused bindings.
func AnalyzeFile(path string, content []byte) (*Result, error) {
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return nil, err
	}
	return Analyze(result), nil
}

// Analyze reports unused bindings in a parsed file.
func Analyze(result *parser.ParseResult) *Result {
	decls := Declarations(result)
	used := References(result)

	r := &Result{Path: result.Path, TotalVariables: len(decls)}
	for _, d := range decls {
		if used[d.Name] || strings.HasPrefix(d.Name, "_") {
			continue
		}
		u := UnusedVariable{Name: d.Name, Line: d.Line, Column: d.Column, Kind: d.Kind, Scope: d.Scope}
		r.UnusedVariables = append(r.UnusedVariables, u)
		if IsSafeToRemove(u) {
			r.SafeToRemove = append(r.SafeToRemove, u)
		} else {
			r.RequiresReview = append(r.RequiresReview, u)
		}
	}
	return r
}

// IsSafeToRemove reports whether an unused binding may be deleted without
// review: only local variables qualify. Functions, classes, parameters and
// anything at file scope can change public API, hoisting or arity.
func IsSafeToRemove(u UnusedVariable) bool {
	return u.Kind == KindVariable && u.Scope != parser.GlobalScope
}

// Declarations harvests variable, function, class and parameter bindings in
// source order.
func Declarations(result *parser.ParseResult) []Declaration {
	var decls []Declaration
	parser.Walk(result.Root(), result.Source, func(node *sitter.Node, source []byte) bool {
		if !parser.IsIdentifierType(node.Type()) || !parser.IsDeclarationContext(node) {
			return true
		}
		owner := declaringNode(node)
		if owner == nil {
			return true
		}
		kind, scopeNode, ok := classify(owner, node)
		if !ok {
			return true
		}
		decls = append(decls, Declaration{
			Name:   parser.GetNodeText(node, source),
			Kind:   kind,
			Line:   parser.Line(node),
			Column: parser.Column(node),
			Scope:  parser.EnclosingScope(scopeNode, source),
		})
		return true
	})
	return decls
}

// declaringNode climbs out of destructuring patterns to the construct that
// introduces the binding.
func declaringNode(node *sitter.Node) *sitter.Node {
	p := node.Parent()
	for p != nil && patternTypes[p.Type()] {
		p = p.Parent()
	}
	return p
}

// classify maps a declaring construct to a binding kind and the node whose
// ancestors form the binding's scope.
func classify(owner, name *sitter.Node) (Kind, *sitter.Node, bool) {
	switch owner.Type() {
	case "variable_declarator":
		if value := owner.ChildByFieldName("value"); value != nil && name.StartByte() >= value.StartByte() {
			return "", nil, false
		}
		return KindVariable, owner, true
	case "function_declaration", "generator_function_declaration":
		return KindFunction, owner, true
	case "class_declaration", "abstract_class_declaration":
		return KindClass, owner, true
	case "formal_parameters", "required_parameter", "optional_parameter":
		return KindParameter, name, true
	case "arrow_function":
		return KindParameter, name, true
	}
	return "", nil, false
}

// References collects the names of identifiers used outside declaration
// positions.
func References(result *parser.ParseResult) map[string]bool {
	used := make(map[string]bool)
	parser.Walk(result.Root(), result.Source, func(node *sitter.Node, source []byte) bool {
		if parser.IsIdentifierType(node.Type()) && !parser.IsDeclarationContext(node) {
			used[parser.GetNodeText(node, source)] = true
		}
		return true
	})
	return used
}

// statement is a removable variable statement with every name it binds.
type statement struct {
	start, end uint32
	names      []string
}

// blockParents are the containers from which a whole statement can be cut
// without leaving a dangling construct behind.
var blockParents = map[string]bool{
	"program":         true,
	"statement_block": true,
	"switch_case":     true,
	"switch_default":  true,
}

func variableStatements(result *parser.ParseResult) []statement {
	var stmts []statement
	parser.Walk(result.Root(), result.Source, func(node *sitter.Node, source []byte) bool {
		t := node.Type()
		if t != "lexical_declaration" && t != "variable_declaration" {
			return true
		}
		parent := node.Parent()
		if parent == nil || !blockParents[parent.Type()] {
			return true
		}

		st := statement{start: node.StartByte(), end: node.EndByte()}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			decl := node.NamedChild(i)
			if decl.Type() != "variable_declarator" {
				continue
			}
			nameNode := decl.ChildByFieldName("name")
			parser.Walk(nameNode, source, func(n *sitter.Node, src []byte) bool {
				if parser.IsIdentifierType(n.Type()) && parser.IsDeclarationContext(n) {
					st.names = append(st.names, declKey(parser.GetNodeText(n, src), parser.Line(n)))
				}
				return true
			})
		}
		if len(st.names) > 0 {
			stmts = append(stmts, st)
		}
		return true
	})
	return stmts
}

// RemoveUnused deletes every variable statement whose declarators are all in
// toRemove, returning the new content and the number of bindings removed. A
// statement that also declares a binding outside toRemove is left untouched.
func RemoveUnused(path string, content []byte, toRemove []UnusedVariable) (string, int, error) {
	if len(toRemove) == 0 {
		return string(content), 0, nil
	}
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return "", 0, err
	}

	remove := make(map[string]bool, len(toRemove))
	for _, u := range toRemove {
		remove[u.key()] = true
	}

	var cut []statement
	for _, st := range variableStatements(result) {
		all := true
		for _, name := range st.names {
			if !remove[name] {
				all = false
				break
			}
		}
		if all {
			cut = append(cut, st)
		}
	}

	// Later edits first so earlier offsets stay valid.
	sort.Slice(cut, func(i, j int) bool { return cut[i].start > cut[j].start })

	out := content
	removed := 0
	for _, st := range cut {
		start, end := parser.ExpandToLine(out, int(st.start), int(st.end))
		out = append(out[:start:start], out[end:]...)
		removed += len(st.names)
	}
	return string(out), removed, nil
}

func declKey(name string, line int) string {
	return fmt.Sprintf("%s@%d", name, line)
}

// Analyzer reports unused variables across many files.
type Analyzer struct {
	workers int
}

var _ analyzer.FileAnalyzer[*Report] = (*Analyzer)(nil)

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithWorkers sets the number of parallel workers (0 = default).
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.workers = n
	}
}

// New creates a new unused-variable analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze checks every supported file, skipping the rest.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Report, error) {
	results, _ := fileproc.MapOrdered(ctx, analyzer.Supported(files), a.workers, func(p *parser.Parser, path string) (Result, error) {
		content, err := os.ReadFile(path)
		if err != nil {
			return Result{}, err
		}
		parsed, err := p.ParseContent(path, content)
		if err != nil {
			return Result{}, err
		}
		return *Analyze(parsed), nil
	}, nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewReport(results), nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}
