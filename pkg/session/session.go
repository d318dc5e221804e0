// Package session runs the autonomous TODO resolution loop and keeps the
// persistent record of what each run did.
package session

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/errctx"
	"github.com/panbanda/sweep/pkg/pattern"
	"github.com/panbanda/sweep/pkg/todo"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// Finished reports whether a session in this state can no longer run.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ActionStatus is the lifecycle state of an action.
type ActionStatus string

const (
	ActionPending          ActionStatus = "pending"
	ActionExecuting        ActionStatus = "executing"
	ActionCompleted        ActionStatus = "completed"
	ActionFailed           ActionStatus = "failed"
	ActionSkipped          ActionStatus = "skipped"
	ActionRequiresApproval ActionStatus = "requires_approval"
)

// Terminal reports whether the status is final.
func (s ActionStatus) Terminal() bool {
	return s == ActionCompleted || s == ActionFailed || s == ActionSkipped
}

// transitions lists the legal moves out of each non-terminal status.
var transitions = map[ActionStatus][]ActionStatus{
	ActionPending:          {ActionExecuting, ActionRequiresApproval, ActionSkipped, ActionFailed},
	ActionRequiresApproval: {ActionExecuting, ActionSkipped},
	ActionExecuting:        {ActionCompleted, ActionFailed, ActionSkipped},
}

// ErrInvalidTransition is returned for an action status change that would
// move backwards or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid action status transition")

// Execution records when and how an action ran.
type Execution struct {
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	DurationMS int64      `json:"duration_ms,omitempty"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Changes records the file an action rewrote.
type Changes struct {
	FilePath       string `json:"file_path"`
	BeforeChecksum string `json:"before_checksum"`
	AfterChecksum  string `json:"after_checksum,omitempty"`
	BackupPath     string `json:"backup_path,omitempty"`
	Diff           string `json:"diff,omitempty"`
	CommitHash     string `json:"commit_hash,omitempty"`
}

// Metadata records why an action was created.
type Metadata struct {
	TodoText         string            `json:"todo_text"`
	PatternID        string            `json:"pattern_id"`
	Confidence       float64           `json:"confidence"`
	RiskLevel        pattern.Risk      `json:"risk_level"`
	RequiresApproval bool              `json:"requires_approval"`
	Extracted        map[string]string `json:"extracted,omitempty"`
}

// Action is one attempt to resolve one TODO.
type Action struct {
	ID          string             `json:"id"`
	SessionID   string             `json:"session_id"`
	Type        pattern.ActionType `json:"type"`
	Status      ActionStatus       `json:"status"`
	Description string             `json:"description"`
	FilePath    string             `json:"file_path"`
	LineNumber  int                `json:"line_number"`
	Todo        todo.Item          `json:"todo"`
	Execution   Execution          `json:"execution"`
	Changes     *Changes           `json:"changes,omitempty"`
	Metadata    Metadata           `json:"metadata"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Transition moves the action to status to, refusing anything that is not
// a forward step.
func (a *Action) Transition(to ActionStatus) error {
	for _, next := range transitions[a.Status] {
		if next == to {
			a.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
}

// Config is the snapshot of settings a session was started with.
type Config struct {
	MaxActions           int      `json:"max_actions"`
	TimeoutMinutes       int      `json:"timeout_minutes"`
	SafetyThreshold      float64  `json:"safety_threshold"`
	AutoApproveThreshold float64  `json:"auto_approve_threshold"`
	EnableBackups        bool     `json:"enable_backups"`
	EnableGitIntegration bool     `json:"enable_git_integration"`
	EnableReplay         bool     `json:"enable_replay"`
	EnabledPatterns      []string `json:"enabled_patterns,omitempty"`
	DisabledPatterns     []string `json:"disabled_patterns,omitempty"`
	FilePatterns         []string `json:"file_patterns,omitempty"`
	DryRun               bool     `json:"dry_run,omitempty"`
}

// ConfigFrom snapshots the session settings out of cfg.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MaxActions:           cfg.Session.MaxActionsPerSession,
		TimeoutMinutes:       cfg.Session.SessionTimeoutMinutes,
		SafetyThreshold:      cfg.Session.SafetyThreshold,
		AutoApproveThreshold: cfg.Session.AutoApproveThreshold,
		EnableBackups:        cfg.Session.EnableBackups,
		EnableGitIntegration: cfg.Session.EnableGitIntegration,
		EnableReplay:         cfg.Session.EnableReplay,
		EnabledPatterns:      cfg.Patterns.Enabled,
		DisabledPatterns:     cfg.Patterns.Disabled,
		FilePatterns:         cfg.Scan.FilePatterns,
	}
}

// Metrics summarizes a session's actions.
type Metrics struct {
	TotalActions      int            `json:"total_actions"`
	CompletedActions  int            `json:"completed_actions"`
	FailedActions     int            `json:"failed_actions"`
	SkippedActions    int            `json:"skipped_actions"`
	PendingApproval   int            `json:"pending_approval"`
	AverageConfidence float64        `json:"average_confidence"`
	RiskDistribution  map[string]int `json:"risk_distribution"`
}

// Session is the persisted record of one autonomous run.
type Session struct {
	ID            string                `json:"id"`
	Version       int                   `json:"version"`
	StartTime     time.Time             `json:"start_time"`
	EndTime       *time.Time            `json:"end_time,omitempty"`
	Status        Status                `json:"status"`
	WorkspacePath string                `json:"workspace_path"`
	Branch        string                `json:"branch,omitempty"`
	Actions       []*Action             `json:"actions"`
	Config        Config                `json:"config"`
	Metrics       Metrics               `json:"metrics"`
	Errors        []errctx.ErrorContext `json:"errors,omitempty"`
	Message       string                `json:"message,omitempty"`
}

// Action returns the action with id.
func (s *Session) Action(id string) (*Action, bool) {
	for _, a := range s.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Handled returns the fingerprints of every TODO an action was created for.
func (s *Session) Handled() map[string]bool {
	handled := make(map[string]bool, len(s.Actions))
	for _, a := range s.Actions {
		handled[a.Todo.ID] = true
	}
	return handled
}

// Executed counts actions that ran to completion or failure.
func (s *Session) Executed() int {
	n := 0
	for _, a := range s.Actions {
		if a.Status == ActionCompleted || a.Status == ActionFailed {
			n++
		}
	}
	return n
}

// Recompute derives Metrics from Actions.
func (s *Session) Recompute() {
	m := Metrics{
		TotalActions:     len(s.Actions),
		RiskDistribution: make(map[string]int),
	}
	conf := make([]float64, 0, len(s.Actions))
	for _, a := range s.Actions {
		switch a.Status {
		case ActionCompleted:
			m.CompletedActions++
		case ActionFailed:
			m.FailedActions++
		case ActionSkipped:
			m.SkippedActions++
		case ActionRequiresApproval:
			m.PendingApproval++
		}
		conf = append(conf, a.Metadata.Confidence)
		if a.Metadata.RiskLevel != "" {
			m.RiskDistribution[string(a.Metadata.RiskLevel)]++
		}
	}
	if len(conf) > 0 {
		m.AverageConfidence = stat.Mean(conf, nil)
	}
	s.Metrics = m
}

// Clone returns a deep copy that can be read without holding locks.
func (s *Session) Clone() *Session {
	out := *s
	out.Actions = make([]*Action, len(s.Actions))
	for i, a := range s.Actions {
		cp := *a
		if a.Changes != nil {
			ch := *a.Changes
			cp.Changes = &ch
		}
		out.Actions[i] = &cp
	}
	out.Errors = append([]errctx.ErrorContext(nil), s.Errors...)
	out.Metrics.RiskDistribution = make(map[string]int, len(s.Metrics.RiskDistribution))
	for k, v := range s.Metrics.RiskDistribution {
		out.Metrics.RiskDistribution[k] = v
	}
	return &out
}
