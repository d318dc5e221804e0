package transform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/pkg/parser"
)

// ErrCannotInfer is returned when no type was given and none can be read
// off the initializer.
var ErrCannotInfer = errors.New("cannot infer type")

// ErrInvalidType is returned when the type named in a TODO is not a plain
// type reference.
var ErrInvalidType = errors.New("invalid type")

// typeAtom is a possibly qualified, possibly generic reference with array
// suffixes; typeRe allows unions of them.
const typeAtom = `[A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*(?:<[\w$.,\s\[\]|<>]+>)?(?:\[\])*`

var typeRe = regexp.MustCompile(`^` + typeAtom + `(?:\s*\|\s*` + typeAtom + `)*$`)

var typedExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".mts": true,
	".cts": true,
}

// AddTypeAnnotation annotates a variable or parameter. The target is the
// named binding nearest the TODO, or the first binding after it when the
// TODO names none. The type is the one the TODO gave, or is inferred from a
// literal initializer or default value.
func AddTypeAnnotation(_ context.Context, req Request) (*Result, error) {
	if !typedExtensions[strings.ToLower(filepath.Ext(req.Path))] {
		return nil, fmt.Errorf("%w: %s", parser.ErrUnsupportedFile, req.Path)
	}
	result, err := parser.ParseSource(req.Path, req.Content)
	if err != nil {
		return nil, err
	}

	target := req.Extracted["target"]
	decl, name := findAnnotatable(result, target, req.Todo.Line)
	if decl == nil {
		if target == "" {
			return nil, fmt.Errorf("%w: no declaration after line %d", ErrMissingTarget, req.Todo.Line)
		}
		return nil, fmt.Errorf("%w: no declaration of %s", ErrMissingTarget, target)
	}
	label := parser.GetNodeText(name, result.Source)
	if decl.ChildByFieldName("type") != nil {
		return &Result{Summary: label + " is already annotated"}, nil
	}

	typ := strings.TrimRight(strings.TrimSpace(req.Extracted["typeName"]), ".;")
	if typ != "" && !typeRe.MatchString(typ) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	if typ == "" {
		typ = inferType(decl.ChildByFieldName("value"), result.Source)
	}
	if typ == "" {
		return nil, fmt.Errorf("%w: %s", ErrCannotInfer, label)
	}

	at := int(name.EndByte())
	out := make([]byte, 0, len(req.Content)+len(typ)+2)
	out = append(out, req.Content[:at]...)
	out = append(out, ": "+typ...)
	out = append(out, req.Content[at:]...)

	return &Result{
		Content: string(out),
		Changed: true,
		Summary: fmt.Sprintf("annotated %s as %s", label, typ),
	}, nil
}

// findAnnotatable returns the declaring node and its name identifier.
func findAnnotatable(result *parser.ParseResult, target string, line int) (*sitter.Node, *sitter.Node) {
	var (
		bestDecl, bestName *sitter.Node
		bestDist           = -1
	)
	parser.WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, source []byte) bool {
		var name *sitter.Node
		switch nodeType {
		case "variable_declarator":
			name = node.ChildByFieldName("name")
		case "required_parameter":
			name = node.ChildByFieldName("pattern")
		default:
			return true
		}
		if name == nil || name.Type() != "identifier" {
			return true
		}

		declLine := parser.Line(name)
		var dist int
		if target != "" {
			if parser.GetNodeText(name, source) != target {
				return true
			}
			dist = declLine - line
			if dist < 0 {
				dist = -dist
			}
		} else {
			if declLine < line {
				return true
			}
			dist = declLine - line
		}
		if bestDist < 0 || dist < bestDist {
			bestDecl, bestName, bestDist = node, name, dist
		}
		return true
	})
	return bestDecl, bestName
}

func inferType(value *sitter.Node, source []byte) string {
	if value == nil {
		return ""
	}
	switch value.Type() {
	case "number":
		return "number"
	case "string", "template_string":
		return "string"
	case "true", "false":
		return "boolean"
	case "unary_expression":
		if arg := value.ChildByFieldName("argument"); arg != nil && arg.Type() == "number" {
			return "number"
		}
	case "new_expression":
		if c := value.ChildByFieldName("constructor"); c != nil && c.Type() == "identifier" {
			return parser.GetNodeText(c, source)
		}
	case "array":
		var elem string
		for i := range int(value.NamedChildCount()) {
			t := inferType(value.NamedChild(i), source)
			if t == "" || (elem != "" && t != elem) {
				return ""
			}
			elem = t
		}
		if elem != "" {
			return elem + "[]"
		}
	}
	return ""
}
