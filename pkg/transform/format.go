package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/sweep/pkg/parser"
)

// FixFormatting strips trailing whitespace, collapses runs of blank lines to
// one and ends the file with a single newline. Lines that end inside a
// template literal are left untouched because their whitespace is data.
func FixFormatting(_ context.Context, req Request) (*Result, error) {
	content := string(req.Content)
	protected := templateLines(req.Path, req.Content)

	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	blanks, fixed := 0, 0
	for i, line := range lines {
		if protected.Contains(uint32(i)) {
			out = append(out, line)
			blanks = 0
			continue
		}

		cr := strings.HasSuffix(line, "\r")
		trimmed := strings.TrimRight(strings.TrimSuffix(line, "\r"), " \t")
		if trimmed == "" {
			blanks++
			if blanks > 1 {
				fixed++
				continue
			}
		} else {
			blanks = 0
		}
		if cr {
			trimmed += "\r"
		}
		if trimmed != line {
			fixed++
		}
		out = append(out, trimmed)
	}

	formatted := strings.Join(out, "\n")
	if !protected.Contains(uint32(len(lines) - 1)) {
		formatted = strings.TrimRight(formatted, "\r\n") + "\n"
	}
	if formatted == "\n" {
		formatted = ""
	}

	if formatted == content {
		return &Result{Summary: "formatting already clean"}, nil
	}
	return &Result{
		Content: formatted,
		Changed: true,
		Summary: fmt.Sprintf("normalized whitespace on %d line(s)", max(fixed, 1)),
	}, nil
}

// templateLines returns the 0-based lines whose line break falls inside a
// template literal. Files that do not parse protect nothing.
func templateLines(path string, content []byte) *roaring.Bitmap {
	lines := roaring.New()
	result, err := parser.ParseSource(path, content)
	if err != nil {
		return lines
	}
	parser.WalkTyped(result.Root(), result.Source, func(node *sitter.Node, nodeType string, _ []byte) bool {
		if nodeType != "template_string" {
			return true
		}
		start, end := node.StartPoint().Row, node.EndPoint().Row
		if end > start {
			lines.AddRange(uint64(start), uint64(end))
		}
		return false
	})
	return lines
}
