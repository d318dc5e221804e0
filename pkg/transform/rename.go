package transform

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/pkg/parser"
)

var (
	// ErrInvalidName is returned when the new name is not a usable identifier.
	ErrInvalidName = errors.New("invalid identifier")
	// ErrNameInUse is returned when the new name already appears in the file.
	ErrNameInUse = errors.New("name already in use")
	// ErrExported is returned when the name is declared by an export, since
	// renaming it would break importers of the module.
	ErrExported = errors.New("name is exported")
)

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"import": true, "in": true, "instanceof": true, "let": true, "new": true,
	"null": true, "return": true, "super": true, "switch": true, "this": true,
	"throw": true, "true": true, "try": true, "typeof": true, "var": true,
	"void": true, "while": true, "with": true, "yield": true, "await": true,
}

// Rename replaces every identifier named oldName with newName. Property
// accesses are left alone and shorthand properties keep their key, so
// object shapes do not change. Import and export specifiers keep the name
// other modules see by gaining an alias. Renaming into a name the file
// already uses, or renaming an exported declaration, is refused.
func Rename(_ context.Context, req Request) (*Result, error) {
	oldName, newName := req.Extracted["oldName"], req.Extracted["newName"]
	if oldName == "" || newName == "" {
		return nil, fmt.Errorf("%w: rename needs an old and a new name", ErrMissingTarget)
	}
	if !identRe.MatchString(newName) || reservedWords[newName] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}
	if oldName == newName {
		return &Result{Summary: "names are identical"}, nil
	}

	result, err := parser.ParseSource(req.Path, req.Content)
	if err != nil {
		return nil, err
	}
	if len(parser.FindAllIdentifiersNamed(result, newName)) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrNameInUse, newName)
	}

	type edit struct {
		node *sitter.Node
		text string
	}
	var edits []edit
	for _, n := range parser.FindAllIdentifiersNamed(result, oldName) {
		if exportedDeclaration(n) {
			return nil, fmt.Errorf("%w: %s", ErrExported, oldName)
		}
		if text, ok := renameText(n, oldName, newName); ok {
			edits = append(edits, edit{node: n, text: text})
		}
	}
	if len(edits) == 0 {
		return &Result{Summary: fmt.Sprintf("no references to %s", oldName)}, nil
	}
	sort.Slice(edits, func(i, j int) bool { return edits[i].node.StartByte() > edits[j].node.StartByte() })

	out := append([]byte(nil), req.Content...)
	for _, e := range edits {
		start, end := int(e.node.StartByte()), int(e.node.EndByte())
		out = append(out[:start:start], append([]byte(e.text), out[end:]...)...)
	}

	return &Result{
		Content: string(out),
		Changed: true,
		Summary: fmt.Sprintf("renamed %s to %s (%d references)", oldName, newName, len(edits)),
	}, nil
}

// renameText returns the replacement for one occurrence of oldName, or false
// when the occurrence names something outside this module.
func renameText(n *sitter.Node, oldName, newName string) (string, bool) {
	switch n.Type() {
	case "shorthand_property_identifier", "shorthand_property_identifier_pattern":
		return oldName + ": " + newName, true
	}

	parent := n.Parent()
	if parent == nil {
		return newName, true
	}
	switch parent.Type() {
	case "import_specifier":
		if !isField(parent, "name", n) {
			return newName, true
		}
		if parent.ChildByFieldName("alias") != nil {
			return "", false
		}
		return oldName + " as " + newName, true
	case "export_specifier":
		if reexport(parent) {
			return "", false
		}
		if !isField(parent, "name", n) {
			return "", false
		}
		if parent.ChildByFieldName("alias") != nil {
			return newName, true
		}
		return newName + " as " + oldName, true
	}
	return newName, true
}

// exportedDeclaration reports whether n names a declaration made directly
// inside an export statement.
func exportedDeclaration(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil || !isField(parent, "name", n) {
		return false
	}
	switch parent.Type() {
	case "function_declaration", "generator_function_declaration", "class_declaration",
		"abstract_class_declaration", "interface_declaration", "type_alias_declaration", "enum_declaration":
		return isExport(parent.Parent())
	case "variable_declarator":
		return parent.Parent() != nil && isExport(parent.Parent().Parent())
	}
	return false
}

func isExport(n *sitter.Node) bool {
	return n != nil && n.Type() == "export_statement"
}

// reexport reports whether an export specifier forwards another module's
// binding (export { x } from './m').
func reexport(spec *sitter.Node) bool {
	for p := spec.Parent(); p != nil; p = p.Parent() {
		if isExport(p) {
			return p.ChildByFieldName("source") != nil
		}
	}
	return false
}

func isField(parent *sitter.Node, field string, n *sitter.Node) bool {
	c := parent.ChildByFieldName(field)
	return c != nil && c.StartByte() == n.StartByte() && c.EndByte() == n.EndByte()
}
