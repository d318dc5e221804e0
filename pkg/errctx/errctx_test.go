package errctx

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Type
	}{
		{"nil", nil, ""},
		{"plain", errors.New("disk hiccup"), TypeRecoverable},
		{"recoverable", Recoverable("read", errors.New("x")), TypeRecoverable},
		{"fatal", Fatal("load config", errors.New("bad")), TypeFatal},
		{"fatal wrapping timeout", Fatal("iterate", &TimeoutError{Op: "list", Timeout: time.Second}), TypeFatal},
		{"validation inside recoverable", Recoverable("execute", &ValidationError{File: "a.ts"}), TypeValidation},
		{"safety", &SafetyError{Reason: "below safety threshold", Confidence: 0.5, Threshold: 0.7}, TypeSafety},
		{"timeout", &TimeoutError{Op: "action", Timeout: time.Second}, TypeTimeout},
		{"deadline", fmt.Errorf("list: %w", context.DeadlineExceeded), TypeTimeout},
		{"no match", &PatternMatchError{Content: "TODO: ???"}, TypePatternMatch},
		{"cancelled", context.Canceled, TypeRecoverable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRecoverableDoesNotDoubleWrap(t *testing.T) {
	inner := Recoverable("read", errors.New("x"))
	assert.Same(t, inner, Recoverable("execute", inner))
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityOf(TypeFatal, 0))
	assert.Equal(t, SeverityHigh, SeverityOf(TypeValidation, 0))
	assert.Equal(t, SeverityMedium, SeverityOf(TypeSafety, 0))
	assert.Equal(t, SeverityMedium, SeverityOf(TypeTimeout, 0))
	assert.Equal(t, SeverityLow, SeverityOf(TypeRecoverable, 0))
	assert.Equal(t, SeverityMedium, SeverityOf(TypeRecoverable, 2))
	assert.Equal(t, SeverityLow, SeverityOf(TypePatternMatch, 0))
}

func TestWithTimeout(t *testing.T) {
	_, err := WithTimeout(context.Background(), "list", 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "list", te.Op)
	assert.Equal(t, TypeTimeout, Classify(err))

	v, err := WithTimeout(context.Background(), "list", time.Second, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	boom := errors.New("boom")
	_, err = WithTimeout(context.Background(), "list", time.Second, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNewSafetyRejection(t *testing.T) {
	err := &SafetyError{Reason: "below safety threshold", PatternID: "generic-review", Confidence: 0.5, Threshold: 0.7}
	ec := New("s1", "", err, Details{TodoContent: "TODO: something"})

	assert.NotEmpty(t, ec.ID)
	assert.Equal(t, "s1", ec.SessionID)
	assert.Equal(t, TypeSafety, ec.Type)
	assert.Equal(t, SeverityMedium, ec.Severity)
	require.NotNil(t, ec.Context.Confidence)
	require.NotNil(t, ec.Context.Threshold)
	assert.Equal(t, 0.5, *ec.Context.Confidence)
	assert.Equal(t, 0.7, *ec.Context.Threshold)
	assert.Equal(t, "generic-review", ec.Context.PatternID)
	assert.Contains(t, ec.Suggestions, "Lower session.safety_threshold to 0.50 to accept this match")
}

func TestNewPatternDisabled(t *testing.T) {
	ec := New("s1", "", &SafetyError{Reason: "pattern disabled", PatternID: "rename-variable"}, Details{})
	assert.Equal(t, TypeSafety, ec.Type)
	assert.Nil(t, ec.Context.Confidence)
	assert.Equal(t, "pattern disabled: rename-variable", ec.Message)
	assert.Contains(t, ec.Suggestions[0], `"rename-variable"`)
}

func TestNewFillsOperation(t *testing.T) {
	ec := New("s1", "a1", &TimeoutError{Op: "pattern", Timeout: time.Second}, Details{})
	assert.Equal(t, "pattern", ec.Context.Operation)
	assert.Equal(t, "a1", ec.ActionID)
	assert.Contains(t, ec.Suggestions, "Increase timeouts.pattern_seconds")

	ec = New("s1", "", Recoverable("write", errors.New("denied")), Details{File: "a.ts", Attempt: 1})
	assert.Equal(t, "write", ec.Context.Operation)
	assert.Equal(t, SeverityMedium, ec.Severity)
	assert.Contains(t, ec.Suggestions, "Check that a.ts is readable and writable")
}

func TestCollector(t *testing.T) {
	c := NewCollector("s1")
	c.Record("", &SafetyError{Reason: "below safety threshold", Confidence: 0.4, Threshold: 0.7}, Details{})
	c.Record("", &SafetyError{Reason: "below safety threshold", Confidence: 0.6, Threshold: 0.7}, Details{})
	c.Record("", &PatternMatchError{Content: "TODO: ?"}, Details{})
	c.Record("a1", Recoverable("execute", &ValidationError{File: "a.ts"}), Details{})

	assert.Equal(t, 4, c.Len())
	errs := c.Errors()
	require.Len(t, errs, 4)
	assert.Equal(t, TypeValidation, errs[3].Type)

	s := c.Summary()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.ByType[TypeSafety])
	assert.Equal(t, 1, s.ByType[TypePatternMatch])
	assert.Equal(t, 1, s.ByType[TypeValidation])
	assert.Equal(t, 2, s.BySeverity[SeverityMedium])
	assert.Equal(t, 1, s.BySeverity[SeverityHigh])
	assert.InDelta(t, 0.5, s.MeanRejectedConfidence, 1e-9)
	assert.Equal(t, "Rewrite the TODO to match a supported pattern more precisely", s.TopSuggestions[0])
	assert.LessOrEqual(t, len(s.TopSuggestions), maxTopSuggestions)
	assert.Len(t, s.RecommendedActions, 3)
}

func TestCollectorSeeded(t *testing.T) {
	prev := New("s1", "", errors.New("old"), Details{})
	c := NewCollector("s1", prev)
	c.Record("", errors.New("new"), Details{})
	errs := c.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, prev.ID, errs[0].ID)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Total)
	assert.Equal(t, []string{"No errors recorded"}, s.RecommendedActions)
}
