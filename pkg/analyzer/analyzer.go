// Package analyzer holds what the batch cleanup analyzers share.
package analyzer

import (
	"context"

	"github.com/panbanda/sweep/pkg/parser"
)

// FileAnalyzer runs one cleanup analysis over a set of files.
type FileAnalyzer[T any] interface {
	// Analyze processes files and returns the aggregated report. Cancelling
	// ctx stops the run and returns ctx.Err().
	Analyze(ctx context.Context, files []string) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}

// Supported filters files down to the ones a tree-sitter grammar exists for,
// keeping their order.
func Supported(files []string) []string {
	var out []string
	for _, f := range files {
		if parser.IsSupported(f) {
			out = append(out, f)
		}
	}
	return out
}
