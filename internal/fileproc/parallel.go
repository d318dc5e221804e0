// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panbanda/sweep/pkg/parser"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x suits the mix of file I/O and CGO parsing.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Workers resolves a configured worker count, defaulting to 2x NumCPU.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// ForEachOrdered runs fn over files in parallel and returns successful results
// in the same order as files. Per-file failures are collected, not fatal.
// Cancellation stops scheduling new files; results gathered so far are kept.
func ForEachOrdered[T any](ctx context.Context, files []string, workers int, fn func(string) (T, error), onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	return run(ctx, files, workers, func(_ *parser.Parser, path string) (T, error) {
		return fn(path)
	}, false, onProgress)
}

// MapOrdered is ForEachOrdered with a dedicated parser per task.
func MapOrdered[T any](ctx context.Context, files []string, workers int, fn func(*parser.Parser, string) (T, error), onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	return run(ctx, files, workers, fn, true, onProgress)
}

func run[T any](ctx context.Context, files []string, workers int, fn func(*parser.Parser, string) (T, error), withParser bool, onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	slots := make([]T, len(files))
	filled := make([]bool, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(Workers(workers)).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			defer func() {
				if onProgress != nil {
					onProgress()
				}
			}()

			if err := ctx.Err(); err != nil {
				errs.Add(path, err)
				return nil
			}

			var psr *parser.Parser
			if withParser {
				psr = parser.New()
				defer psr.Close()
			}

			result, err := fn(psr, path)
			if err != nil {
				errs.Add(path, err)
				return nil
			}

			// Each goroutine owns its own index.
			slots[i] = result
			filled[i] = true
			return nil
		})
	}
	_ = p.Wait()

	results := make([]T, 0, len(files))
	for i := range slots {
		if filled[i] {
			results = append(results, slots[i])
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
