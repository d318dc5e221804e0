package stubs

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/pkg/parser"
)

// styleSampleLines is how much of the file is sampled for style facts.
const styleSampleLines = 20

// ExtractContext gathers the enclosing class, imports, sibling functions and
// code style around a stub.
func ExtractContext(result *parser.ParseResult, stub Stub) Context {
	ctx := Context{Style: DetectStyle(result.Source)}

	if stub.node != nil {
		if class := enclosingClass(stub.node); class != nil {
			ctx.Class = classInfo(class, result.Source)
		}
	}

	for _, imp := range parser.FindNodesByType(result.Root(), result.Source, "import_statement") {
		ctx.Imports = append(ctx.Imports, strings.TrimSpace(parser.GetNodeText(imp, result.Source)))
	}

	for _, fn := range Functions(result) {
		if fn.BodyStart == stub.BodyStart {
			continue
		}
		ctx.Siblings = append(ctx.Siblings, Sibling{
			Name:      fn.Name,
			Signature: fn.Signature,
			Purpose:   InferPurpose(fn).Category,
		})
	}
	return ctx
}

func classInfo(class *sitter.Node, source []byte) *ClassInfo {
	info := &ClassInfo{}
	if name := class.ChildByFieldName("name"); name != nil {
		info.Name = parser.GetNodeText(name, source)
	}

	for i := 0; i < int(class.NamedChildCount()); i++ {
		child := class.NamedChild(i)
		if child.Type() != "class_heritage" {
			continue
		}
		parser.Walk(child, source, func(n *sitter.Node, src []byte) bool {
			switch n.Type() {
			case "extends_clause":
				if v := n.ChildByFieldName("value"); v != nil {
					info.Extends = parser.GetNodeText(v, src)
				} else if n.NamedChildCount() > 0 {
					info.Extends = parser.GetNodeText(n.NamedChild(0), src)
				}
				return false
			case "implements_clause":
				for j := 0; j < int(n.NamedChildCount()); j++ {
					info.Implements = append(info.Implements, parser.GetNodeText(n.NamedChild(j), src))
				}
				return false
			}
			return true
		})
		// JavaScript grammars put the superclass expression directly under the heritage.
		if info.Extends == "" && info.Implements == nil && child.NamedChildCount() > 0 {
			info.Extends = parser.GetNodeText(child.NamedChild(0), source)
		}
	}

	body := class.ChildByFieldName("body")
	if body == nil {
		return info
	}
	seen := make(map[string]bool)
	addProp := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			info.Properties = append(info.Properties, name)
		}
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_definition":
			if name := member.ChildByFieldName("name"); name != nil {
				info.Methods = append(info.Methods, parser.GetNodeText(name, source))
			}
		case "public_field_definition", "field_definition":
			name := member.ChildByFieldName("name")
			if name == nil {
				name = member.ChildByFieldName("property")
			}
			addProp(parser.GetNodeText(name, source))
		}
	}

	// Properties assigned in methods, e.g. this.items = [] in the constructor.
	parser.Walk(body, source, func(n *sitter.Node, src []byte) bool {
		if n.Type() != "assignment_expression" {
			return true
		}
		left := n.ChildByFieldName("left")
		if left == nil || left.Type() != "member_expression" {
			return true
		}
		obj := left.ChildByFieldName("object")
		if obj != nil && obj.Type() == "this" {
			addProp(parser.GetNodeText(left.ChildByFieldName("property"), src))
		}
		return true
	})
	return info
}

// DetectStyle samples indentation, semicolon use, arrow preference and async
// usage from the first lines of a file.
func DetectStyle(source []byte) Style {
	style := Style{IndentChar: " ", IndentWidth: 2, Semicolons: true}

	lines := strings.Split(string(source), "\n")
	if len(lines) > styleSampleLines {
		lines = lines[:styleSampleLines]
	}

	minSpaces := 0
	tabs, spaced := 0, 0
	withSemi, withoutSemi := 0, 0
	arrows, functions := 0, 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\t"):
			tabs++
		case strings.HasPrefix(line, " "):
			spaced++
			n := len(line) - len(strings.TrimLeft(line, " "))
			if minSpaces == 0 || n < minSpaces {
				minSpaces = n
			}
		}

		switch last := trimmed[len(trimmed)-1]; {
		case last == ';':
			withSemi++
		case strings.ContainsRune("{}[(,:>", rune(last)):
		default:
			withoutSemi++
		}

		arrows += strings.Count(line, "=>")
		functions += strings.Count(line, "function ")
		if strings.Contains(line, "async ") || strings.Contains(line, "await ") {
			style.UsesAsync = true
		}
	}

	if tabs > spaced {
		style.IndentChar, style.IndentWidth = "\t", 1
	} else if minSpaces > 0 {
		style.IndentWidth = minSpaces
	}
	if withSemi+withoutSemi > 0 {
		style.Semicolons = withSemi >= withoutSemi
	}
	style.PrefersArrow = arrows > functions
	return style
}
