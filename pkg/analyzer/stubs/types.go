package stubs

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Reason explains why a function was classified as a stub.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonPlaceholder Reason = "placeholder"
	ReasonTodo        Reason = "todo"
)

// Param is one declared parameter of a stub.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Rest     bool   `json:"rest,omitempty"`
}

// Stub is a function or method whose body is a placeholder.
type Stub struct {
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Line       int     `json:"line"`
	EndLine    int     `json:"end_line"`
	Column     int     `json:"column"`
	Params     []Param `json:"params"`
	ReturnType string  `json:"return_type,omitempty"`
	IsAsync    bool    `json:"is_async"`
	Reason     Reason  `json:"reason"`
	ClassName  string  `json:"class_name,omitempty"`
	Signature  string  `json:"signature"`
	Indent     string  `json:"-"`

	// Byte range of the body block, braces included.
	BodyStart uint32 `json:"-"`
	BodyEnd   uint32 `json:"-"`

	node *sitter.Node
}

// Category is the inferred intent of a stub.
type Category string

const (
	CategoryGetter     Category = "getter"
	CategorySetter     Category = "setter"
	CategoryValidator  Category = "validator"
	CategoryCalculator Category = "calculator"
	CategoryFormatter  Category = "formatter"
	CategoryConverter  Category = "converter"
	CategoryProcessor  Category = "processor"
	CategoryGeneric    Category = "generic"
)

// Purpose is the result of purpose inference.
type Purpose struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}

// ClassInfo describes the class enclosing a stub.
type ClassInfo struct {
	Name       string   `json:"name"`
	Extends    string   `json:"extends,omitempty"`
	Implements []string `json:"implements,omitempty"`
	Methods    []string `json:"methods,omitempty"`
	Properties []string `json:"properties,omitempty"`
}

// Sibling is another function in the same file.
type Sibling struct {
	Name      string   `json:"name"`
	Signature string   `json:"signature"`
	Purpose   Category `json:"purpose"`
}

// Style captures formatting habits sampled from the top of a file.
type Style struct {
	IndentChar   string `json:"indent_char"`
	IndentWidth  int    `json:"indent_width"`
	Semicolons   bool   `json:"semicolons"`
	PrefersArrow bool   `json:"prefers_arrow"`
	UsesAsync    bool   `json:"uses_async"`
}

// Unit returns one level of indentation.
func (s Style) Unit() string {
	if s.IndentChar == "\t" {
		return "\t"
	}
	width := s.IndentWidth
	if width <= 0 {
		width = 2
	}
	return strings.Repeat(" ", width)
}

// Context is what the synthesizer knows about a stub's surroundings.
type Context struct {
	Class    *ClassInfo `json:"class,omitempty"`
	Imports  []string   `json:"imports,omitempty"`
	Siblings []Sibling  `json:"siblings,omitempty"`
	Style    Style      `json:"style"`
}

// Suggestion is one candidate body for a stub. Body holds the statements
// without braces or indentation, one per line.
type Suggestion struct {
	Category    Category `json:"category"`
	Body        string   `json:"body"`
	Confidence  float64  `json:"confidence"`
	Description string   `json:"description"`
}

// Strategy selects among suggestions.
type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyBalanced     Strategy = "balanced"
	StrategyCreative     Strategy = "creative"
)
