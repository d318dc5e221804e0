package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language represents a supported source dialect.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangTSX        Language = "tsx"
	LangUnknown    Language = "unknown"
)

// ErrUnsupportedFile is returned for files whose extension has no grammar.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ParseError reports source that could not be turned into a syntax tree.
// Callers treat it as recoverable: skip the file and keep going.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser wraps tree-sitter for the ECMAScript family of dialects.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// Root returns the root node of the parsed tree.
func (r *ParseResult) Root() *sitter.Node {
	return r.Tree.RootNode()
}

// New creates a new parser instance.
func New() *Parser {
	return &Parser{
		parser: sitter.NewParser(),
	}
}

// ParseFile parses a source file and returns the AST.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.ParseContent(path, source)
}

// ParseContent parses in-memory content, selecting the dialect from path.
func (p *Parser) ParseContent(path string, source []byte) (*ParseResult, error) {
	lang := DetectLanguage(path)
	if lang == LangUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	return p.Parse(source, lang, path)
}

// Parse parses source code with a specified language.
func (p *Parser) Parse(source []byte, lang Language, path string) (*ParseResult, error) {
	tsLang, err := GetTreeSitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if tree == nil || tree.RootNode() == nil {
		return nil, &ParseError{Path: path, Err: errors.New("no syntax tree produced")}
	}

	return &ParseResult{
		Tree:     tree,
		Language: lang,
		Source:   source,
		Path:     path,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// ParseSource is a one-shot helper that parses content with a throwaway parser.
func ParseSource(path string, source []byte) (*ParseResult, error) {
	p := New()
	defer p.Close()
	return p.ParseContent(path, source)
}

// GetTreeSitterLanguage returns the tree-sitter language for a Language enum.
func GetTreeSitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, lang)
	}
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	case ".js", ".mjs", ".cjs":
		return LangJavaScript
	case ".jsx":
		return LangTSX // JSX parses cleanly with the TSX grammar
	default:
		return LangUnknown
	}
}

// IsSupported reports whether path has a grammar.
func IsSupported(path string) bool {
	return DetectLanguage(path) != LangUnknown
}

// IsTypeScript reports whether the dialect accepts type annotations.
func (l Language) IsTypeScript() bool {
	return l == LangTypeScript || l == LangTSX
}
