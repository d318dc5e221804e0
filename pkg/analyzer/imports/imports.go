// Package imports finds and removes import bindings that are never referenced.
package imports

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/internal/fileproc"
	"github.com/panbanda/sweep/pkg/analyzer"
	"github.com/panbanda/sweep/pkg/parser"
)

// Bindings returns every import binding in the file together with the number
// of side-effect imports, which bind nothing and are always considered used.
func Bindings(result *parser.ParseResult) ([]Binding, int) {
	var bindings []Binding
	sideEffects := 0

	for _, stmt := range parser.FindNodesByType(result.Root(), result.Source, "import_statement") {
		source := strings.Trim(parser.GetNodeText(stmt.ChildByFieldName("source"), result.Source), `"'`)
		base := Binding{
			Source:    source,
			StartLine: int(stmt.StartPoint().Row) + 1,
			EndLine:   int(stmt.EndPoint().Row) + 1,
			StartByte: stmt.StartByte(),
			EndByte:   stmt.EndByte(),
		}

		found := collectBindings(stmt, result.Source, base)
		if len(found) == 0 {
			sideEffects++
			continue
		}
		bindings = append(bindings, found...)
	}
	return bindings, sideEffects
}

func collectBindings(stmt *sitter.Node, source []byte, base Binding) []Binding {
	var out []Binding
	add := func(node *sitter.Node, imported string, kind Kind) {
		b := base
		b.Name = parser.GetNodeText(node, source)
		b.Imported = imported
		b.Kind = kind
		b.Line = parser.Line(node)
		b.Column = parser.Column(node)
		out = append(out, b)
	}

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		switch child.Type() {
		case "import_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				part := child.NamedChild(j)
				switch part.Type() {
				case "identifier":
					add(part, "default", KindDefault)
				case "namespace_import":
					if id := firstNamedOfType(part, "identifier"); id != nil {
						add(id, "*", KindNamespace)
					}
				case "named_imports":
					for k := 0; k < int(part.NamedChildCount()); k++ {
						spec := part.NamedChild(k)
						if spec.Type() != "import_specifier" {
							continue
						}
						name := spec.ChildByFieldName("name")
						local := name
						if alias := spec.ChildByFieldName("alias"); alias != nil {
							local = alias
						}
						if local == nil {
							continue
						}
						add(local, strings.Trim(parser.GetNodeText(name, source), `"'`), KindNamed)
					}
				}
			}
		case "import_require_clause":
			if id := firstNamedOfType(child, "identifier"); id != nil {
				add(id, "require", KindRequire)
			}
		}
	}
	return out
}

func firstNamedOfType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c := node.NamedChild(i); c.Type() == nodeType {
			return c
		}
	}
	return nil
}

// References collects every identifier used outside import statements and
// outside declaration positions.
func References(result *parser.ParseResult) map[string]bool {
	used := make(map[string]bool)
	parser.Walk(result.Root(), result.Source, func(node *sitter.Node, source []byte) bool {
		if node.Type() == "import_statement" {
			return false
		}
		if parser.IsIdentifierType(node.Type()) && !parser.IsDeclarationContext(node) {
			used[parser.GetNodeText(node, source)] = true
		}
		return true
	})
	return used
}

// FindUnused returns the import bindings whose local name is never referenced.
func FindUnused(result *parser.ParseResult) []UnusedImport {
	bindings, _ := Bindings(result)
	if len(bindings) == 0 {
		return nil
	}
	used := References(result)

	var unused []UnusedImport
	for _, b := range bindings {
		if used[b.Name] {
			continue
		}
		unused = append(unused, UnusedImport{Binding: b, Scope: parser.GlobalScope})
	}
	return unused
}

// Analyze parses content and reports its unused imports. Files without a
// grammar return parser.ErrUnsupportedFile.
func Analyze(path string, content []byte) (*FileResult, error) {
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return nil, err
	}
	return analyzeResult(result), nil
}

func analyzeResult(result *parser.ParseResult) *FileResult {
	bindings, sideEffects := Bindings(result)
	return &FileResult{
		Path:          result.Path,
		TotalBindings: len(bindings),
		SideEffects:   sideEffects,
		Unused:        FindUnused(result),
	}
}

// RemoveUnused deletes every import statement that holds at least one unused
// binding. The whole statement goes, all of its lines, even when some of its
// other bindings are still referenced.
func RemoveUnused(content string, unused []UnusedImport) string {
	if len(unused) == 0 {
		return content
	}

	drop := roaring.New()
	for _, u := range unused {
		drop.AddRange(uint64(u.StartLine), uint64(u.EndLine)+1)
	}

	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if drop.Contains(uint32(i + 1)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Remove analyzes content and strips its unused imports, returning the new
// content and the bindings that triggered removal.
func Remove(path string, content []byte) (string, []UnusedImport, error) {
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return "", nil, err
	}
	unused := FindUnused(result)
	return RemoveUnused(string(content), unused), unused, nil
}

// Statements groups unused bindings by the import statement that declares them,
// in source order.
func Statements(unused []UnusedImport) [][]UnusedImport {
	byStart := make(map[int][]UnusedImport)
	for _, u := range unused {
		byStart[u.StartLine] = append(byStart[u.StartLine], u)
	}
	starts := make([]int, 0, len(byStart))
	for s := range byStart {
		starts = append(starts, s)
	}
	sort.Ints(starts)

	groups := make([][]UnusedImport, 0, len(starts))
	for _, s := range starts {
		groups = append(groups, byStart[s])
	}
	return groups
}

// Analyzer reports unused imports across many files.
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

// New creates a new unused-import analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze checks every supported file. Unsupported and unreadable files are
// skipped.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Report, error) {
	results, _ := fileproc.MapOrdered(ctx, analyzer.Supported(files), a.workers, func(p *parser.Parser, path string) (FileResult, error) {
		content, err := os.ReadFile(path)
		if err != nil {
			return FileResult{}, err
		}
		result, err := p.ParseContent(path, content)
		if err != nil {
			return FileResult{}, err
		}
		return *analyzeResult(result), nil
	}, nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewReport(results), nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}
