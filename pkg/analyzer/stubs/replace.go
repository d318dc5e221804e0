package stubs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/panbanda/sweep/pkg/parser"
)

var (
	// ErrStubNotFound is returned when no stub matches the requested function.
	ErrStubNotFound = errors.New("stub not found")
	// ErrNoSuggestion is returned when the strategy rejects every suggestion.
	ErrNoSuggestion = errors.New("no suggestion meets the strategy threshold")
	// ErrBodyNotFound is returned when a function body cannot be located.
	ErrBodyNotFound = errors.New("function body not found")
)

// FormatBody indents body statements one level deeper than indent. Leading
// tabs in body lines mark extra nesting levels.
func FormatBody(body, indent string, style Style) string {
	unit := style.Unit()
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		level := len(line) - len(strings.TrimLeft(line, "\t"))
		text := line[level:]
		if !style.Semicolons {
			text = strings.TrimSuffix(text, ";")
		}
		lines[i] = indent + strings.Repeat(unit, level+1) + text
	}
	return strings.Join(lines, "\n")
}

// ReplaceBody splices a new body into the stub's block using the byte range
// recorded from the syntax tree. content must be the source the stub was
// detected in.
func ReplaceBody(content []byte, stub Stub, body string, style Style) ([]byte, error) {
	start, end := int(stub.BodyStart), int(stub.BodyEnd)
	if end <= start || end > len(content) || content[start] != '{' || content[end-1] != '}' {
		return nil, fmt.Errorf("%w: %s", ErrBodyNotFound, stub.Name)
	}

	block := "{\n" + FormatBody(body, stub.Indent, style) + "\n" + stub.Indent + "}"

	out := make([]byte, 0, len(content)-(end-start)+len(block))
	out = append(out, content[:start]...)
	out = append(out, block...)
	out = append(out, content[end:]...)
	return out, nil
}

// ReplaceBodyAtLine is the textual fallback used when a stub carries no
// usable byte range: it finds the first '{' at or after the 1-based line and its matching
// '}' by brace counting. Braces inside strings, templates or comments
// confuse it.
func ReplaceBodyAtLine(content string, line int, body string, style Style) (string, error) {
	offset := 0
	for i := 1; i < line; i++ {
		next := strings.IndexByte(content[offset:], '\n')
		if next < 0 {
			return "", fmt.Errorf("%w: line %d out of range", ErrBodyNotFound, line)
		}
		offset += next + 1
	}
	rest := content[offset:]
	indent := rest[:len(rest)-len(strings.TrimLeft(rest, " \t"))]

	open := strings.IndexByte(content[offset:], '{')
	if open < 0 {
		return "", fmt.Errorf("%w: no opening brace after line %d", ErrBodyNotFound, line)
	}
	open += offset

	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				block := "{\n" + FormatBody(body, indent, style) + "\n" + indent + "}"
				return content[:open] + block + content[i+1:], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced braces after line %d", ErrBodyNotFound, line)
}

// Implementation is the outcome of implementing one stub.
type Implementation struct {
	Content     string       `json:"-"`
	Stub        Stub         `json:"stub"`
	Purpose     Purpose      `json:"purpose"`
	Suggestion  Suggestion   `json:"suggestion"`
	Suggestions []Suggestion `json:"suggestions"`
}

// Analyze parses content and returns its stubs.
func Analyze(path string, content []byte) ([]Stub, error) {
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return nil, err
	}
	return Detect(result), nil
}

// Implement replaces the body of the stub called name with the suggestion
// chosen by strategy.
func Implement(path string, content []byte, name string, strategy Strategy) (*Implementation, error) {
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return nil, err
	}
	stub, ok := FindByName(Detect(result), name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStubNotFound, name)
	}
	return implement(result, stub, strategy)
}

// ImplementNear implements the stub covering line, or the one declared just
// below it.
func ImplementNear(path string, content []byte, line int, strategy Strategy) (*Implementation, error) {
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return nil, err
	}
	stub, ok := FindNear(Detect(result), line, 3)
	if !ok {
		return nil, fmt.Errorf("%w: near line %d", ErrStubNotFound, line)
	}
	return implement(result, stub, strategy)
}

func implement(result *parser.ParseResult, stub Stub, strategy Strategy) (*Implementation, error) {
	ctx := ExtractContext(result, stub)
	suggestions := Synthesize(stub, ctx)
	chosen, ok := Select(suggestions, strategy)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNoSuggestion, stub.Name, strategy)
	}

	out, err := splice(result.Source, stub, chosen.Body, ctx.Style)
	if err != nil {
		return nil, err
	}
	return &Implementation{
		Content:     out,
		Stub:        stub,
		Purpose:     InferPurpose(stub),
		Suggestion:  chosen,
		Suggestions: suggestions,
	}, nil
}

// splice prefers the recorded byte range and falls back to brace counting
// from the declaration line when the range is missing or no longer points at
// a block, as with a stub decoded from JSON.
func splice(content []byte, stub Stub, body string, style Style) (string, error) {
	out, err := ReplaceBody(content, stub, body, style)
	if err == nil {
		return string(out), nil
	}
	if !errors.Is(err, ErrBodyNotFound) || stub.Line < 1 {
		return "", err
	}
	return ReplaceBodyAtLine(string(content), stub.Line, body, style)
}
