// Package errctx classifies session failures and records them with enough
// context to explain what went wrong and what to try next.
package errctx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type is the failure taxonomy used across a session.
type Type string

const (
	TypeFatal        Type = "FATAL"
	TypeRecoverable  Type = "RECOVERABLE"
	TypeValidation   Type = "VALIDATION"
	TypeSafety       Type = "SAFETY"
	TypeTimeout      Type = "TIMEOUT"
	TypePatternMatch Type = "PATTERN_MATCH"
)

// FatalError stops the session.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Op + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// RecoverableError is logged and the session moves on.
type RecoverableError struct {
	Op  string
	Err error
}

func (e *RecoverableError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *RecoverableError) Unwrap() error {
	return e.Err
}

// ValidationError reports a transformed file that no longer parses.
type ValidationError struct {
	File   string
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed for " + e.File
	}
	return fmt.Sprintf("validation failed for %s: %s", e.File, strings.Join(e.Issues, "; "))
}

// SafetyError reports a match the gate refused to act on.
type SafetyError struct {
	Reason     string
	PatternID  string
	Confidence float64
	Threshold  float64
}

func (e *SafetyError) Error() string {
	if e.Threshold > 0 {
		return fmt.Sprintf("%s: confidence %.2f below threshold %.2f", e.Reason, e.Confidence, e.Threshold)
	}
	if e.PatternID != "" {
		return e.Reason + ": " + e.PatternID
	}
	return e.Reason
}

// TimeoutError reports a bounded operation that exceeded its deadline.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// PatternMatchError reports TODO text that no pattern recognised.
type PatternMatchError struct {
	Content string
}

func (e *PatternMatchError) Error() string {
	return fmt.Sprintf("no pattern matched %q", e.Content)
}

// Fatal wraps err as a FatalError.
func Fatal(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}

// Recoverable wraps err as a RecoverableError unless it already is one.
func Recoverable(op string, err error) error {
	var re *RecoverableError
	if errors.As(err, &re) {
		return err
	}
	return &RecoverableError{Op: op, Err: err}
}

// WithTimeout runs fn under a deadline and converts an exceeded deadline
// into a TimeoutError.
func WithTimeout[T any](ctx context.Context, op string, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	v, err := fn(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		var te *TimeoutError
		if !errors.As(err, &te) {
			err = &TimeoutError{Op: op, Timeout: d}
		}
	}
	return v, err
}

// Classify returns the most specific type in err's chain. A FatalError
// anywhere in the chain wins; unknown errors are recoverable.
func Classify(err error) Type {
	var (
		fatal   *FatalError
		valid   *ValidationError
		safety  *SafetyError
		timeout *TimeoutError
		nomatch *PatternMatchError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fatal):
		return TypeFatal
	case errors.As(err, &valid):
		return TypeValidation
	case errors.As(err, &safety):
		return TypeSafety
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return TypeTimeout
	case errors.As(err, &nomatch):
		return TypePatternMatch
	default:
		return TypeRecoverable
	}
}

// IsFatal reports whether err should end the session.
func IsFatal(err error) bool {
	return Classify(err) == TypeFatal
}
