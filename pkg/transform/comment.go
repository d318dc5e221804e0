package transform

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/pkg/parser"
	"github.com/panbanda/sweep/pkg/pattern"
)

// AddComment inserts a comment line immediately above the TODO line, at the
// TODO's indentation. The text is the requested topic, or else a short
// description of the declaration that follows the TODO.
func AddComment(_ context.Context, req Request) (*Result, error) {
	lines := strings.SplitAfter(string(req.Content), "\n")
	idx := req.Todo.Line - 1
	if idx < 0 || idx >= len(lines) || (idx == len(lines)-1 && lines[idx] == "") {
		return nil, fmt.Errorf("%w: %s:%d", ErrLineOutOfRange, req.Path, req.Todo.Line)
	}

	text := commentText(req)
	target := lines[idx]
	indent := indentOf(target)

	var comment string
	switch trimmed := strings.TrimSpace(target); {
	case strings.HasPrefix(trimmed, "{/*"):
		comment = indent + "{/* " + text + " */}\n"
	case strings.HasPrefix(trimmed, "*") && !strings.HasPrefix(trimmed, "*/"):
		comment = indent + "* " + text + "\n"
	default:
		comment = indent + "// " + text + "\n"
	}

	var sb strings.Builder
	for _, l := range lines[:idx] {
		sb.WriteString(l)
	}
	sb.WriteString(comment)
	for _, l := range lines[idx:] {
		sb.WriteString(l)
	}

	return &Result{
		Content: sb.String(),
		Changed: true,
		Summary: fmt.Sprintf("added comment above line %d", req.Todo.Line),
	}, nil
}

func commentText(req Request) string {
	if topic := strings.TrimSpace(req.Extracted["topic"]); topic != "" {
		return upperFirst(strings.TrimRight(topic, ". "))
	}
	if desc := describeNext(req.Path, req.Content, req.Todo.Line); desc != "" {
		return desc
	}
	return upperFirst(pattern.StripMarker(req.Todo.Content))
}

// describeNext names the first declaration starting after line, e.g.
// "Function loadConfig". It returns "" when there is none or the file does
// not parse.
func describeNext(path string, content []byte, line int) string {
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return ""
	}

	var desc string
	parser.WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		if desc != "" {
			return false
		}
		if int(node.EndPoint().Row)+1 <= line {
			return false
		}
		if int(node.StartPoint().Row)+1 <= line {
			return true
		}
		if kind, name := declaration(node, nodeType, source); name != "" {
			desc = upperFirst(kind) + " " + name
			return false
		}
		return true
	})
	return desc
}

func declaration(node *sitter.Node, nodeType string, source []byte) (kind, name string) {
	switch nodeType {
	case "function_declaration", "generator_function_declaration":
		kind = "function"
	case "class_declaration", "abstract_class_declaration":
		kind = "class"
	case "method_definition":
		kind = "method"
	case "interface_declaration":
		kind = "interface"
	case "type_alias_declaration":
		kind = "type"
	case "lexical_declaration", "variable_declaration":
		for i := range int(node.NamedChildCount()) {
			decl := node.NamedChild(i)
			if decl.Type() != "variable_declarator" {
				continue
			}
			kind = "variable"
			if v := decl.ChildByFieldName("value"); v != nil && (v.Type() == "arrow_function" || v.Type() == "function_expression" || v.Type() == "function") {
				kind = "function"
			}
			if n := decl.ChildByFieldName("name"); n != nil && n.Type() == "identifier" {
				return kind, parser.GetNodeText(n, source)
			}
			return "", ""
		}
		return "", ""
	default:
		return "", ""
	}
	if n := node.ChildByFieldName("name"); n != nil {
		return kind, parser.GetNodeText(n, source)
	}
	return "", ""
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
