package fileproc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/panbanda/sweep/pkg/parser"
)

func TestForEachOrderedPreservesOrder(t *testing.T) {
	files := make([]string, 50)
	for i := range files {
		files[i] = fmt.Sprintf("file%02d.ts", i)
	}

	results, errs := ForEachOrdered(context.Background(), files, 8, func(path string) (string, error) {
		return filepath.Base(path), nil
	}, nil)

	if errs != nil {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(results) != len(files) {
		t.Fatalf("Expected %d results, got %d", len(files), len(results))
	}
	for i, r := range results {
		if r != files[i] {
			t.Fatalf("result %d = %s, want %s", i, r, files[i])
		}
	}
}

func TestForEachOrderedEmpty(t *testing.T) {
	results, errs := ForEachOrdered(context.Background(), nil, 0, func(path string) (int, error) {
		return 1, nil
	}, nil)
	if results != nil || errs != nil {
		t.Errorf("expected nil results and errors, got %v %v", results, errs)
	}
}

func TestForEachOrderedCollectsErrors(t *testing.T) {
	files := []string{"a.ts", "bad.ts", "c.ts"}
	var progress atomic.Int32

	results, errs := ForEachOrdered(context.Background(), files, 2, func(path string) (string, error) {
		if path == "bad.ts" {
			return "", errors.New("boom")
		}
		return path, nil
	}, func() { progress.Add(1) })

	if len(results) != 2 || results[0] != "a.ts" || results[1] != "c.ts" {
		t.Errorf("results = %v", results)
	}
	if errs == nil || len(errs.Errors) != 1 {
		t.Fatalf("expected one processing error, got %v", errs)
	}
	if errs.Errors[0].Path != "bad.ts" {
		t.Errorf("error path = %s", errs.Errors[0].Path)
	}
	if progress.Load() != 3 {
		t.Errorf("progress called %d times, want 3", progress.Load())
	}
}

func TestForEachOrderedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, errs := ForEachOrdered(ctx, []string{"a.ts", "b.ts"}, 1, func(path string) (string, error) {
		return path, nil
	}, nil)
	if len(results) != 0 {
		t.Errorf("expected no results after cancellation, got %v", results)
	}
	if errs == nil || !errors.Is(errs.Errors[0], context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", errs)
	}
}

func TestMapOrderedProvidesParser(t *testing.T) {
	results, errs := MapOrdered(context.Background(), []string{"a.ts", "b.js"}, 0, func(p *parser.Parser, path string) (string, error) {
		if p == nil {
			return "", errors.New("nil parser")
		}
		result, err := p.ParseContent(path, []byte("const x = 1;\n"))
		if err != nil {
			return "", err
		}
		return string(result.Language), nil
	}, nil)

	if errs != nil {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(results) != 2 || results[0] != "typescript" || results[1] != "javascript" {
		t.Errorf("results = %v", results)
	}
}

func TestProcessingErrors(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.HasErrors() {
		t.Error("new collection should be empty")
	}
	if errs.Error() != "no errors" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("a.ts", errors.New("one"))
	if errs.Error() != "a.ts: one" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("b.ts", errors.New("two"))
	if errs.Error() != "2 files failed to process (first: a.ts: one)" {
		t.Errorf("Error() = %q", errs.Error())
	}
}

func TestWorkers(t *testing.T) {
	if Workers(3) != 3 {
		t.Error("explicit worker count should be kept")
	}
	if Workers(0) < DefaultWorkerMultiplier {
		t.Error("default worker count should scale with NumCPU")
	}
}
