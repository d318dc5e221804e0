package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// NodeVisitor is a function that visits AST nodes.
// Returning false skips the node's children.
type NodeVisitor func(node *sitter.Node, source []byte) bool

// TypedNodeVisitor visits AST nodes with pre-cached node type to avoid CGO overhead.
type TypedNodeVisitor func(node *sitter.Node, nodeType string, source []byte) bool

// Walk traverses the AST calling visitor for each node.
func Walk(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}

	if !visitor(node, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// WalkTyped traverses the AST with cached node types to reduce CGO overhead.
func WalkTyped(node *sitter.Node, source []byte, visitor TypedNodeVisitor) {
	if node == nil {
		return
	}

	nodeType := node.Type()
	if !visitor(node, nodeType, source) {
		return
	}

	for i := range int(node.ChildCount()) {
		WalkTyped(node.Child(i), source, visitor)
	}
}

// ForEachDescendant visits every descendant of node in document order,
// excluding node itself.
func ForEachDescendant(node *sitter.Node, source []byte, visitor NodeVisitor) {
	if node == nil {
		return
	}
	for i := range int(node.ChildCount()) {
		Walk(node.Child(i), source, visitor)
	}
}

// FindNodes returns all nodes matching a predicate.
func FindNodes(root *sitter.Node, source []byte, predicate func(*sitter.Node) bool) []*sitter.Node {
	var results []*sitter.Node
	Walk(root, source, func(node *sitter.Node, _ []byte) bool {
		if predicate(node) {
			results = append(results, node)
		}
		return true
	})
	return results
}

// FindNodesByType returns all nodes of a specific type.
func FindNodesByType(root *sitter.Node, source []byte, nodeType string) []*sitter.Node {
	return FindNodes(root, source, func(n *sitter.Node) bool {
		return n.Type() == nodeType
	})
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}

// Line returns the 1-based line of the node's first byte.
func Line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1
}

// Column returns the 1-based column of the node's first byte.
func Column(node *sitter.Node) int {
	return int(node.StartPoint().Column) + 1
}

// SameNode compares nodes by type and byte range. Node wrappers returned by
// different accessors are distinct values, so pointer equality is unreliable.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// IsIdentifierType reports whether a node type names a binding or reference.
func IsIdentifierType(nodeType string) bool {
	switch nodeType {
	case "identifier", "type_identifier", "shorthand_property_identifier", "shorthand_property_identifier_pattern":
		return true
	}
	return false
}

// FindIdentifierAt returns the identifier covering the byte offset, or nil.
func FindIdentifierAt(result *ParseResult, offset uint32) *sitter.Node {
	if offset >= uint32(len(result.Source)) {
		return nil
	}
	var found *sitter.Node
	Walk(result.Root(), result.Source, func(node *sitter.Node, _ []byte) bool {
		if offset < node.StartByte() || offset >= node.EndByte() {
			return false
		}
		if IsIdentifierType(node.Type()) {
			found = node
		}
		return true
	})
	return found
}

// FindAllIdentifiersNamed returns every identifier-like node whose text is name.
func FindAllIdentifiersNamed(result *ParseResult, name string) []*sitter.Node {
	var found []*sitter.Node
	WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if IsIdentifierType(nodeType) && GetNodeText(node, source) == name {
			found = append(found, node)
		}
		return true
	})
	return found
}

// IsDeclarationContext reports whether an identifier sits in a position that
// introduces a binding rather than referencing one. It is purely syntactic.
func IsDeclarationContext(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	if node.Type() == "shorthand_property_identifier_pattern" {
		return true
	}

	parent := node.Parent()
	if parent == nil {
		return false
	}

	switch parent.Type() {
	case "variable_declarator",
		"function_declaration", "generator_function_declaration",
		"function_expression", "function", "generator_function",
		"class_declaration", "class", "abstract_class_declaration",
		"interface_declaration", "type_alias_declaration", "enum_declaration":
		return SameNode(parent.ChildByFieldName("name"), node)
	case "formal_parameters", "rest_pattern", "array_pattern",
		"import_specifier", "import_clause", "namespace_import",
		"export_specifier_alias":
		return true
	case "required_parameter", "optional_parameter":
		return SameNode(parent.ChildByFieldName("pattern"), node)
	case "arrow_function":
		return SameNode(parent.ChildByFieldName("parameter"), node)
	case "assignment_pattern", "object_assignment_pattern":
		return SameNode(parent.ChildByFieldName("left"), node)
	case "pair_pattern":
		return SameNode(parent.ChildByFieldName("value"), node)
	case "catch_clause":
		return SameNode(parent.ChildByFieldName("parameter"), node)
	case "type_parameter":
		return SameNode(parent.ChildByFieldName("name"), node)
	}
	return false
}

// IsInsideType reports whether node has an ancestor of the given type.
func IsInsideType(node *sitter.Node, nodeType string) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == nodeType {
			return true
		}
	}
	return false
}

// GlobalScope is the scope path reported for file-level declarations.
const GlobalScope = "global"

// AnonymousScope names unnamed function scopes in a scope path.
const AnonymousScope = "anonymous"

// ScopeName returns the name contributed to a scope path by node, and false
// when node does not open a function or class scope.
func ScopeName(node *sitter.Node, source []byte) (string, bool) {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration",
		"class_declaration", "abstract_class_declaration", "method_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			return GetNodeText(name, source), true
		}
		return AnonymousScope, true
	case "function_expression", "function", "generator_function", "class":
		if name := node.ChildByFieldName("name"); name != nil {
			return GetNodeText(name, source), true
		}
		return AnonymousScope, true
	case "arrow_function":
		return AnonymousScope, true
	}
	return "", false
}

// EnclosingScope builds the dotted scope path of the functions and classes
// that contain node, or GlobalScope when none do.
func EnclosingScope(node *sitter.Node, source []byte) string {
	var parts []string
	for p := node.Parent(); p != nil; p = p.Parent() {
		if name, ok := ScopeName(p, source); ok {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return GlobalScope
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// SyntaxIssue describes one ERROR or MISSING node in a tree.
type SyntaxIssue struct {
	Line    int
	Column  int
	Message string
}

// SyntaxIssues collects the error nodes tree-sitter recovered from.
func SyntaxIssues(result *ParseResult) []SyntaxIssue {
	root := result.Root()
	if !root.HasError() {
		return nil
	}
	var issues []SyntaxIssue
	Walk(root, result.Source, func(node *sitter.Node, source []byte) bool {
		switch {
		case node.IsMissing():
			issues = append(issues, SyntaxIssue{
				Line:    Line(node),
				Column:  Column(node),
				Message: "missing " + node.Type(),
			})
			return false
		case node.Type() == "ERROR":
			text := GetNodeText(node, source)
			if len(text) > 40 {
				text = text[:40] + "..."
			}
			issues = append(issues, SyntaxIssue{
				Line:    Line(node),
				Column:  Column(node),
				Message: "unexpected " + strings.TrimSpace(text),
			})
			return false
		}
		return node.HasError()
	})
	return issues
}

// ExpandToLine widens [start, end) to whole lines when nothing but whitespace
// shares the line with the statement.
func ExpandToLine(content []byte, start, end int) (int, int) {
	lineStart := start
	for lineStart > 0 && (content[lineStart-1] == ' ' || content[lineStart-1] == '\t') {
		lineStart--
	}
	lineEnd := end
	for lineEnd < len(content) && (content[lineEnd] == ' ' || content[lineEnd] == '\t') {
		lineEnd++
	}

	startsLine := lineStart == 0 || content[lineStart-1] == '\n'
	endsLine := lineEnd == len(content) || content[lineEnd] == '\n' || content[lineEnd] == '\r'
	if !startsLine || !endsLine {
		return start, lineEnd
	}
	if lineEnd < len(content) && content[lineEnd] == '\r' {
		lineEnd++
	}
	if lineEnd < len(content) && content[lineEnd] == '\n' {
		lineEnd++
	}
	return lineStart, lineEnd
}
