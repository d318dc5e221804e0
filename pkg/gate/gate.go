// Package gate decides what to do with a TODO once its pattern matches are
// known: execute the action, hold it for approval, or reject it.
package gate

import (
	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/errctx"
	"github.com/panbanda/sweep/pkg/pattern"
)

// Decision is the outcome of the gate for one TODO.
type Decision string

const (
	AutoExecute     Decision = "auto_execute"
	RequireApproval Decision = "require_approval"
	Reject          Decision = "reject"
)

// Reasons carried by SafetyError rejections.
const (
	ReasonBelowThreshold = "below safety threshold"
	ReasonDisabled       = "pattern disabled"
)

// Policy is the per-session gate configuration.
type Policy struct {
	SafetyThreshold      float64
	AutoApproveThreshold float64
	// Enabled lists allowed pattern IDs; empty allows every pattern.
	Enabled  []string
	Disabled []string
}

// PolicyFromConfig reads the gate settings out of cfg.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		SafetyThreshold:      cfg.Session.SafetyThreshold,
		AutoApproveThreshold: cfg.Session.AutoApproveThreshold,
		Enabled:              cfg.Patterns.Enabled,
		Disabled:             cfg.Patterns.Disabled,
	}
}

// Verdict is the gate's answer. Err is set, and typed for errctx, exactly
// when Decision is Reject.
type Verdict struct {
	Decision Decision
	Match    pattern.Match
	Matched  bool
	Err      error
}

// Gate applies a Policy to pattern matches. It never mutates the pattern
// table; the enabled set is a filter computed once.
type Gate struct {
	policy  Policy
	enabled map[string]bool
}

// New builds a gate. When policy.Enabled is empty every ID in table is
// enabled; IDs in policy.Disabled are then removed.
func New(policy Policy, table *pattern.Table) *Gate {
	ids := policy.Enabled
	if len(ids) == 0 && table != nil {
		ids = table.IDs()
	}
	enabled := make(map[string]bool, len(ids))
	for _, id := range ids {
		enabled[id] = true
	}
	for _, id := range policy.Disabled {
		delete(enabled, id)
	}
	return &Gate{policy: policy, enabled: enabled}
}

// Policy returns the gate's policy.
func (g *Gate) Policy() Policy {
	return g.policy
}

// Enabled reports whether a pattern ID passes the enable/disable filter.
func (g *Gate) Enabled(id string) bool {
	return g.enabled[id]
}

// Decide picks the best match and applies, in order: no match, safety
// threshold, enabled filter, then the auto-approve threshold. A pattern that
// does not allow auto-approval always needs approval.
func (g *Gate) Decide(todoContent string, matches []pattern.Match) Verdict {
	best, ok := pattern.Best(matches)
	if !ok {
		return Verdict{
			Decision: Reject,
			Err:      &errctx.PatternMatchError{Content: todoContent},
		}
	}

	v := Verdict{Match: best, Matched: true}
	switch {
	case best.Confidence < g.policy.SafetyThreshold:
		v.Decision = Reject
		v.Err = &errctx.SafetyError{
			Reason:     ReasonBelowThreshold,
			PatternID:  best.PatternID,
			Confidence: best.Confidence,
			Threshold:  g.policy.SafetyThreshold,
		}
	case !g.enabled[best.PatternID]:
		v.Decision = Reject
		v.Err = &errctx.SafetyError{Reason: ReasonDisabled, PatternID: best.PatternID}
	case best.Confidence >= g.policy.AutoApproveThreshold && best.AutoApprove:
		v.Decision = AutoExecute
	default:
		v.Decision = RequireApproval
	}
	return v
}
