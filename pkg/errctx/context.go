package errctx

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity ranks how urgently an error needs attention.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Details is the structured context attached to an error. Confidence and
// Threshold are pointers so that a real zero is distinguishable from unset.
type Details struct {
	Operation   string   `json:"operation,omitempty"`
	File        string   `json:"file,omitempty"`
	Line        int      `json:"line,omitempty"`
	TodoContent string   `json:"todo_content,omitempty"`
	PatternID   string   `json:"pattern_id,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Threshold   *float64 `json:"safety_threshold,omitempty"`
	Attempt     int      `json:"attempt,omitempty"`
	MaxRetries  int      `json:"max_retries,omitempty"`
}

// Float returns a pointer to v for use in Details.
func Float(v float64) *float64 {
	return &v
}

// ErrorContext is one recorded failure. It is never mutated after creation.
type ErrorContext struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id"`
	ActionID    string    `json:"action_id,omitempty"`
	Type        Type      `json:"type"`
	Message     string    `json:"message"`
	Context     Details   `json:"context"`
	Suggestions []string  `json:"suggestions"`
	Severity    Severity  `json:"severity"`
}

// New classifies err and builds its ErrorContext. Fields carried by typed
// errors fill in whatever d leaves empty.
func New(sessionID, actionID string, err error, d Details) ErrorContext {
	t := Classify(err)
	d = enrich(err, d)
	return ErrorContext{
		ID:          uuid.NewString(),
		Timestamp:   time.Now(),
		SessionID:   sessionID,
		ActionID:    actionID,
		Type:        t,
		Message:     err.Error(),
		Context:     d,
		Suggestions: Suggestions(t, d),
		Severity:    SeverityOf(t, d.Attempt),
	}
}

func enrich(err error, d Details) Details {
	var (
		safety  *SafetyError
		timeout *TimeoutError
		valid   *ValidationError
		fatal   *FatalError
		rec     *RecoverableError
	)
	if errors.As(err, &safety) {
		if d.PatternID == "" {
			d.PatternID = safety.PatternID
		}
		if d.Confidence == nil && (safety.Threshold > 0 || safety.Confidence > 0) {
			d.Confidence = Float(safety.Confidence)
		}
		if d.Threshold == nil && safety.Threshold > 0 {
			d.Threshold = Float(safety.Threshold)
		}
	}
	if errors.As(err, &valid) && d.File == "" {
		d.File = valid.File
	}
	if d.Operation == "" {
		switch {
		case errors.As(err, &timeout):
			d.Operation = timeout.Op
		case errors.As(err, &fatal):
			d.Operation = fatal.Op
		case errors.As(err, &rec):
			d.Operation = rec.Op
		}
	}
	return d
}

// SeverityOf maps a type to its severity. Recoverable errors escalate to
// MEDIUM once they are being retried.
func SeverityOf(t Type, attempt int) Severity {
	switch t {
	case TypeFatal:
		return SeverityCritical
	case TypeValidation:
		return SeverityHigh
	case TypeSafety, TypeTimeout:
		return SeverityMedium
	case TypeRecoverable:
		if attempt > 0 {
			return SeverityMedium
		}
		return SeverityLow
	default:
		return SeverityLow
	}
}

// Suggestions returns short, actionable hints for an error of type t.
func Suggestions(t Type, d Details) []string {
	switch t {
	case TypeSafety:
		var out []string
		if d.Confidence != nil && d.Threshold != nil {
			out = append(out, fmt.Sprintf("Lower session.safety_threshold to %.2f to accept this match", *d.Confidence))
		} else if d.PatternID != "" {
			out = append(out, fmt.Sprintf("Enable pattern %q in patterns.enabled or remove it from patterns.disabled", d.PatternID))
		}
		return append(out, "Rewrite the TODO to match a supported pattern more precisely")
	case TypePatternMatch:
		return []string{
			"Rewrite the TODO to match a supported pattern (see `sweep patterns`)",
			"Resolve this TODO manually",
		}
	case TypeValidation:
		return []string{
			"Review the generated change for syntax errors",
			"Check that the file parses before the TODO is processed",
		}
	case TypeTimeout:
		op := d.Operation
		if op == "" {
			op = "action"
		}
		return []string{
			fmt.Sprintf("Increase timeouts.%s_seconds", op),
			"Narrow scan.file_patterns to reduce the workspace size",
		}
	case TypeFatal:
		return []string{
			"Run `sweep config validate` to check the configuration",
			"Inspect the session log and fix the cause before rerunning",
		}
	default:
		out := []string{"Rerun the session; the failure may be transient"}
		if d.File != "" {
			out = append(out, "Check that "+d.File+" is readable and writable")
		}
		return out
	}
}
