package errctx

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/panbanda/sweep/internal/logging"
)

// Collector is the per-session error log.
type Collector struct {
	mu        sync.Mutex
	sessionID string
	errors    []ErrorContext
	log       zerolog.Logger
}

// NewCollector creates a collector for sessionID, seeded with previously
// recorded errors when a session is resumed.
func NewCollector(sessionID string, existing ...ErrorContext) *Collector {
	return &Collector{
		sessionID: sessionID,
		errors:    append([]ErrorContext(nil), existing...),
		log:       logging.Component("errctx").With().Str("session_id", sessionID).Logger(),
	}
}

// Record classifies err, logs it and appends it to the session log.
func (c *Collector) Record(actionID string, err error, d Details) ErrorContext {
	ec := New(c.sessionID, actionID, err, d)

	c.mu.Lock()
	c.errors = append(c.errors, ec)
	c.mu.Unlock()

	c.log.WithLevel(logLevel(ec.Severity)).
		Str("type", string(ec.Type)).
		Str("severity", string(ec.Severity)).
		Str("action_id", actionID).
		Str("file", d.File).
		Msg(ec.Message)
	return ec
}

func logLevel(s Severity) zerolog.Level {
	switch s {
	case SeverityCritical, SeverityHigh:
		return zerolog.ErrorLevel
	case SeverityMedium:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Errors returns a copy of the recorded errors in order.
func (c *Collector) Errors() []ErrorContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ErrorContext(nil), c.errors...)
}

// Len returns the number of recorded errors.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Summary aggregates a session's errors.
type Summary struct {
	Total                  int              `json:"total"`
	ByType                 map[Type]int     `json:"by_type"`
	BySeverity             map[Severity]int `json:"by_severity"`
	MeanRejectedConfidence float64          `json:"mean_rejected_confidence,omitempty"`
	TopSuggestions         []string         `json:"top_suggestions"`
	RecommendedActions     []string         `json:"recommended_actions"`
}

// maxTopSuggestions caps Summary.TopSuggestions.
const maxTopSuggestions = 5

// Summary aggregates the recorded errors.
func (c *Collector) Summary() Summary {
	return Summarize(c.Errors())
}

// Summarize aggregates errs by type and severity and ranks suggestions by
// how often they were made.
func Summarize(errs []ErrorContext) Summary {
	s := Summary{
		Total:      len(errs),
		ByType:     make(map[Type]int),
		BySeverity: make(map[Severity]int),
	}

	counts := make(map[string]int)
	var order []string
	var rejected []float64
	for _, e := range errs {
		s.ByType[e.Type]++
		s.BySeverity[e.Severity]++
		for _, sg := range e.Suggestions {
			if counts[sg] == 0 {
				order = append(order, sg)
			}
			counts[sg]++
		}
		if e.Type == TypeSafety && e.Context.Confidence != nil {
			rejected = append(rejected, *e.Context.Confidence)
		}
	}
	if len(rejected) > 0 {
		s.MeanRejectedConfidence = stat.Mean(rejected, nil)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxTopSuggestions {
		order = order[:maxTopSuggestions]
	}
	s.TopSuggestions = order
	s.RecommendedActions = recommend(s)
	return s
}

func recommend(s Summary) []string {
	if s.Total == 0 {
		return []string{"No errors recorded"}
	}
	var out []string
	if n := s.ByType[TypeFatal]; n > 0 {
		out = append(out, "The session stopped on a fatal error; fix it before rerunning")
	}
	if n := s.ByType[TypeValidation]; n > 0 {
		out = append(out, fmt.Sprintf("%d action(s) failed validation and were rolled back; review the affected files", n))
	}
	if n := s.ByType[TypeSafety]; n > 0 {
		if s.MeanRejectedConfidence > 0 {
			out = append(out, fmt.Sprintf("%d TODO(s) were rejected by the safety gate (mean confidence %.2f); lower session.safety_threshold or rephrase them", n, s.MeanRejectedConfidence))
		} else {
			out = append(out, fmt.Sprintf("%d TODO(s) were rejected by pattern filters; review patterns.enabled and patterns.disabled", n))
		}
	}
	if n := s.ByType[TypePatternMatch]; n > 0 {
		out = append(out, fmt.Sprintf("%d TODO(s) matched no pattern; rewrite them using supported phrasing", n))
	}
	if n := s.ByType[TypeTimeout]; n > 0 {
		out = append(out, fmt.Sprintf("%d operation(s) timed out; raise the timeouts or narrow the scan", n))
	}
	if n := s.ByType[TypeRecoverable]; n > 0 {
		out = append(out, fmt.Sprintf("%d recoverable failure(s); rerun the session", n))
	}
	return out
}
