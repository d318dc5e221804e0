// Package stubs detects placeholder functions, infers what they are meant to
// do and synthesizes candidate bodies for them.
package stubs

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/pkg/parser"
)

var todoInBody = regexp.MustCompile(`\b(TODO|FIXME)\b`)

var (
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// placeholderBodies are normalized bodies that do nothing useful: comments
// and whitespace removed, lower-cased, quotes unified.
var placeholderBodies = map[string]bool{
	"return":                                true,
	"returnnull":                            true,
	"returnundefined":                       true,
	"thrownewerror()":                       true,
	`thrownewerror("notimplemented")`:       true,
	`thrownewerror("notimplemented.")`:      true,
	`thrownewerror("notimplementedyet")`:    true,
	`thrownewerror("notimplementedyet.")`:   true,
	`thrownewerror("todo")`:                 true,
	`thrownewerror("methodnotimplemented")`: true,
}

// Detect returns every named function or method whose body is empty, a
// placeholder, or mentions TODO/FIXME.
func Detect(result *parser.ParseResult) []Stub {
	var stubs []Stub
	parser.Walk(result.Root(), result.Source, func(node *sitter.Node, source []byte) bool {
		if !isFunctionNode(node.Type()) {
			return true
		}
		body := node.ChildByFieldName("body")
		if body == nil || body.Type() != "statement_block" {
			return true
		}
		name := functionName(node, source)
		if name == "" {
			return true
		}
		reason, ok := stubReason(parser.GetNodeText(body, source))
		if !ok {
			return true
		}
		stubs = append(stubs, newStub(node, body, name, reason, source))
		return true
	})
	return stubs
}

// Functions returns every named function or method regardless of its body.
func Functions(result *parser.ParseResult) []Stub {
	var fns []Stub
	parser.Walk(result.Root(), result.Source, func(node *sitter.Node, source []byte) bool {
		if !isFunctionNode(node.Type()) {
			return true
		}
		body := node.ChildByFieldName("body")
		name := functionName(node, source)
		if body == nil || name == "" {
			return true
		}
		fns = append(fns, newStub(node, body, name, "", source))
		return true
	})
	return fns
}

func isFunctionNode(t string) bool {
	switch t {
	case "function_declaration", "generator_function_declaration", "method_definition",
		"function_expression", "function", "arrow_function":
		return true
	}
	return false
}

// functionName resolves a function's name from its declaration or, for
// expressions, from the binding or property it is assigned to.
func functionName(node *sitter.Node, source []byte) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return parser.GetNodeText(name, source)
	}
	parent := node.Parent()
	if parent == nil {
		return ""
	}
	switch parent.Type() {
	case "variable_declarator":
		if name := parent.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
			return parser.GetNodeText(name, source)
		}
	case "pair":
		if key := parent.ChildByFieldName("key"); key != nil {
			return strings.Trim(parser.GetNodeText(key, source), `"'`)
		}
	case "public_field_definition", "field_definition":
		if name := parent.ChildByFieldName("name"); name != nil {
			return parser.GetNodeText(name, source)
		}
		if name := parent.ChildByFieldName("property"); name != nil {
			return parser.GetNodeText(name, source)
		}
	case "assignment_expression":
		if left := parent.ChildByFieldName("left"); left != nil {
			if left.Type() == "member_expression" {
				if prop := left.ChildByFieldName("property"); prop != nil {
					return parser.GetNodeText(prop, source)
				}
			}
			return parser.GetNodeText(left, source)
		}
	}
	return ""
}

// stubReason classifies a body block's text.
func stubReason(body string) (Reason, bool) {
	if todoInBody.MatchString(body) {
		return ReasonTodo, true
	}
	inner := strings.TrimSpace(body)
	inner = strings.TrimPrefix(inner, "{")
	inner = strings.TrimSuffix(inner, "}")

	normalized := normalizeBody(inner)
	if normalized == "" {
		return ReasonEmpty, true
	}
	if placeholderBodies[normalized] {
		return ReasonPlaceholder, true
	}
	return "", false
}

func normalizeBody(inner string) string {
	s := blockComment.ReplaceAllString(inner, "")
	s = lineComment.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ";", "")
	s = strings.NewReplacer("'", `"`, "`", `"`).Replace(s)
	return strings.ToLower(s)
}

func newStub(node, body *sitter.Node, name string, reason Reason, source []byte) Stub {
	s := Stub{
		Name:      name,
		Kind:      stubKind(node),
		Line:      parser.Line(node),
		EndLine:   int(node.EndPoint().Row) + 1,
		Column:    parser.Column(node),
		Reason:    reason,
		BodyStart: body.StartByte(),
		BodyEnd:   body.EndByte(),
		Indent:    lineIndent(source, node.StartByte()),
		node:      node,
	}
	s.Signature = strings.TrimSpace(string(source[node.StartByte():body.StartByte()]))

	if params := node.ChildByFieldName("parameters"); params != nil {
		s.Params = extractParams(params, source)
	} else if param := node.ChildByFieldName("parameter"); param != nil {
		s.Params = []Param{{Name: parser.GetNodeText(param, source)}}
	}
	if rt := node.ChildByFieldName("return_type"); rt != nil {
		s.ReturnType = typeText(rt, source)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "async" {
			s.IsAsync = true
			break
		}
	}
	if class := enclosingClass(node); class != nil {
		if n := class.ChildByFieldName("name"); n != nil {
			s.ClassName = parser.GetNodeText(n, source)
		}
	}
	return s
}

func stubKind(node *sitter.Node) string {
	switch node.Type() {
	case "method_definition":
		return "method"
	case "arrow_function":
		return "arrow"
	}
	return "function"
}

func extractParams(params *sitter.Node, source []byte) []Param {
	var out []Param
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			out = append(out, Param{Name: parser.GetNodeText(p, source)})
		case "assignment_pattern":
			out = append(out, Param{Name: parser.GetNodeText(p.ChildByFieldName("left"), source), Optional: true})
		case "rest_pattern":
			out = append(out, Param{Name: strings.TrimPrefix(parser.GetNodeText(p, source), "..."), Rest: true})
		case "required_parameter", "optional_parameter":
			param := Param{Optional: p.Type() == "optional_parameter" || p.ChildByFieldName("value") != nil}
			pattern := p.ChildByFieldName("pattern")
			param.Name = parser.GetNodeText(pattern, source)
			if pattern != nil && pattern.Type() == "rest_pattern" {
				param.Name = strings.TrimPrefix(param.Name, "...")
				param.Rest = true
			}
			if t := p.ChildByFieldName("type"); t != nil {
				param.Type = typeText(t, source)
			}
			out = append(out, param)
		case "object_pattern", "array_pattern":
			out = append(out, Param{Name: parser.GetNodeText(p, source)})
		}
	}
	return out
}

// typeText strips the leading colon of a type annotation.
func typeText(node *sitter.Node, source []byte) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parser.GetNodeText(node, source)), ":"))
}

func enclosingClass(node *sitter.Node) *sitter.Node {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_declaration", "class", "abstract_class_declaration":
			return p
		case "function_declaration", "function_expression", "function", "arrow_function":
			return nil
		}
	}
	return nil
}

func lineIndent(source []byte, offset uint32) string {
	start := int(offset)
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(source) && (source[end] == ' ' || source[end] == '\t') {
		end++
	}
	return string(source[start:end])
}

// FindByName returns the first stub called name.
func FindByName(stubs []Stub, name string) (Stub, bool) {
	for _, s := range stubs {
		if s.Name == name {
			return s, true
		}
	}
	return Stub{}, false
}

// FindAtLine returns the innermost stub whose span covers line.
func FindAtLine(stubs []Stub, line int) (Stub, bool) {
	var best Stub
	found := false
	for _, s := range stubs {
		if line < s.Line || line > s.EndLine {
			continue
		}
		if !found || s.EndLine-s.Line < best.EndLine-best.Line {
			best, found = s, true
		}
	}
	return best, found
}

// FindNear returns the stub covering line or, failing that, the first stub
// declared within window lines below it. A TODO often sits just above the
// function it describes.
func FindNear(stubs []Stub, line, window int) (Stub, bool) {
	if s, ok := FindAtLine(stubs, line); ok {
		return s, true
	}
	for _, s := range stubs {
		if s.Line > line && s.Line-line <= window {
			return s, true
		}
	}
	return Stub{}, false
}
