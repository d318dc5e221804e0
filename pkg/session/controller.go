package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/panbanda/sweep/internal/logging"
	"github.com/panbanda/sweep/internal/validate"
	"github.com/panbanda/sweep/internal/vcs"
	"github.com/panbanda/sweep/internal/workspace"
	"github.com/panbanda/sweep/pkg/analyzer/stubs"
	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/errctx"
	"github.com/panbanda/sweep/pkg/gate"
	"github.com/panbanda/sweep/pkg/pattern"
	"github.com/panbanda/sweep/pkg/todo"
	"github.com/panbanda/sweep/pkg/transform"
)

// NoTodosMessage is the completion message of a session that found nothing.
const NoTodosMessage = "No actionable TODOs found"

var (
	// ErrSessionRunning is returned when a session is already being driven.
	ErrSessionRunning = errors.New("session is running")
	// ErrNotRunning is returned when stopping a session this controller
	// is not driving.
	ErrNotRunning = errors.New("session is not running")
	// ErrNotResumable is returned when resuming a session that is not paused.
	ErrNotResumable = errors.New("session cannot be resumed")
	// ErrActionNotFound is returned for an unknown action ID.
	ErrActionNotFound = errors.New("action not found")
	// ErrNotAwaitingApproval is returned when approving an action that does
	// not require approval.
	ErrNotAwaitingApproval = errors.New("action is not awaiting approval")
	// ErrTodoMoved is returned when a TODO can no longer be found in its file.
	ErrTodoMoved = errors.New("todo no longer present")

	errStopped = errors.New("stop requested")
)

// Lister finds TODO items in a workspace.
type Lister interface {
	ListTodos(ctx context.Context, workspace string, filePatterns []string) ([]todo.Item, error)
}

// Validator checks rewritten content before it is kept.
type Validator interface {
	ValidateSyntax(path string, content []byte) validate.Result
}

// Request starts a session.
type Request struct {
	WorkspacePath string
	// FilePatterns overrides scan.file_patterns when set.
	FilePatterns []string
	// MaxActions overrides session.max_actions_per_session when positive.
	MaxActions int
	// DryRun computes every change without writing it.
	DryRun bool
	// Stash shelves uncommitted work first. Needs git integration.
	Stash bool
}

// Result is what a finished, paused or cancelled run reports.
type Result struct {
	SessionID        string                `json:"session_id"`
	Status           Status                `json:"status"`
	Message          string                `json:"message,omitempty"`
	Branch           string                `json:"branch,omitempty"`
	ActionsExecuted  int                   `json:"actions_executed"`
	ActionsCompleted int                   `json:"actions_completed"`
	ActionsFailed    int                   `json:"actions_failed"`
	ActionsSkipped   int                   `json:"actions_skipped"`
	PendingApproval  int                   `json:"pending_approval"`
	Errors           []errctx.ErrorContext `json:"errors,omitempty"`
	Summary          errctx.Summary        `json:"summary"`
	DurationMS       int64                 `json:"duration_ms"`
}

// Controller drives sessions. One controller may run several sessions at
// once; each session is processed by a single goroutine.
type Controller struct {
	cfg       *config.Config
	store     Store
	lister    func(workspace string) Lister
	matcher   *pattern.Matcher
	registry  *transform.Registry
	validator Validator
	opener    vcs.Opener
	limit     rate.Limit
	fsFor     func(root string) *workspace.FS
	timeout   time.Duration
	log       zerolog.Logger

	mu      sync.Mutex
	running map[string]*run
}

// Option configures a Controller.
type Option func(*Controller)

// WithStore replaces the JSON store under data_dir.
func WithStore(s Store) Option {
	return func(c *Controller) { c.store = s }
}

// WithLister replaces the workspace TODO scanner.
func WithLister(l Lister) Option {
	return func(c *Controller) {
		c.lister = func(string) Lister { return l }
	}
}

// WithMatcher replaces the pattern matcher.
func WithMatcher(m *pattern.Matcher) Option {
	return func(c *Controller) { c.matcher = m }
}

// WithRegistry replaces the action executors.
func WithRegistry(r *transform.Registry) Option {
	return func(c *Controller) { c.registry = r }
}

// WithValidator replaces the syntax validator.
func WithValidator(v Validator) Option {
	return func(c *Controller) { c.validator = v }
}

// WithOpener replaces the git opener.
func WithOpener(o vcs.Opener) Option {
	return func(c *Controller) { c.opener = o }
}

// WithRateLimit overrides rate_limiting.max_actions_per_minute.
func WithRateLimit(l rate.Limit) Option {
	return func(c *Controller) { c.limit = l }
}

// WithSessionTimeout overrides session.session_timeout_minutes.
func WithSessionTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithFS replaces how workspace file access is built.
func WithFS(fn func(root string) *workspace.FS) Option {
	return func(c *Controller) { c.fsFor = fn }
}

// New creates a controller. Pattern confidence overrides from cfg are
// applied to the default pattern table.
func New(cfg *config.Config, opts ...Option) (*Controller, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	table := pattern.DefaultTable()
	if len(cfg.Patterns.Confidence) > 0 {
		t, err := table.WithConfidence(cfg.Patterns.Confidence)
		if err != nil {
			return nil, err
		}
		table = t
	}

	limit := rate.Inf
	if n := cfg.RateLimiting.MaxActionsPerMinute; n > 0 {
		limit = rate.Limit(float64(n) / 60)
	}

	c := &Controller{
		cfg:   cfg,
		store: NewJSONStore(filepath.Join(cfg.DataDir, "sessions")),
		lister: func(ws string) Lister {
			cache, err := todo.NewCache(cfg, ws)
			if err != nil {
				cache = nil
			}
			return todo.NewScanner(cfg, cache)
		},
		matcher:   pattern.NewMatcher(table),
		registry:  transform.NewRegistry(),
		validator: validate.New(),
		opener:    vcs.DefaultOpener(),
		limit:     limit,
		fsFor:     workspace.New,
		log:       logging.Component("session"),
		running:   make(map[string]*run),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Store returns the controller's session store.
func (c *Controller) Store() Store {
	return c.store
}

// Matcher returns the controller's pattern matcher.
func (c *Controller) Matcher() *pattern.Matcher {
	return c.matcher
}

// run is the in-memory state of a session being driven.
type run struct {
	mu   sync.Mutex // guards sess
	sess *Session

	errs     *errctx.Collector
	replay   *Recorder
	fs       *workspace.FS
	gate     *gate.Gate
	repo     vcs.Repository
	limiter  *rate.Limiter
	handled  map[string]bool
	strategy stubs.Strategy

	// waitCtx interrupts throttling and back-off, never an in-flight action.
	waitCtx    context.Context
	cancelWait context.CancelFunc

	stopMu   sync.Mutex
	stopWith Status
	stopErr  error
}

func (r *run) requestStop(status Status, err error) {
	r.stopMu.Lock()
	if r.stopWith == "" {
		r.stopWith, r.stopErr = status, err
	}
	r.stopMu.Unlock()
	r.cancelWait()
}

func (r *run) stopState() (Status, error, bool) {
	r.stopMu.Lock()
	defer r.stopMu.Unlock()
	return r.stopWith, r.stopErr, r.stopWith != ""
}

func (r *run) stopped() bool {
	_, _, ok := r.stopState()
	return ok
}

// wait sleeps for d unless a stop is requested first.
func (r *run) wait(d time.Duration) bool {
	if d <= 0 {
		return r.waitCtx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.waitCtx.Done():
		return false
	}
}

func (r *run) remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess.Config.MaxActions - len(r.sess.Actions)
}

// StartSession runs a new session to completion and reports the outcome.
// Failures are reported in the Result; an error is returned only for a
// FATAL condition, in which case the Result (when non-nil) shows the
// failed session.
func (c *Controller) StartSession(ctx context.Context, req Request) (*Result, error) {
	if err := validate.WorkspaceField("workspace", req.WorkspacePath); err != nil {
		return nil, errctx.Fatal("start session", err)
	}
	root, err := filepath.Abs(req.WorkspacePath)
	if err != nil {
		return nil, errctx.Fatal("start session", err)
	}

	snap := ConfigFrom(c.cfg)
	if len(req.FilePatterns) > 0 {
		snap.FilePatterns = req.FilePatterns
	}
	if req.MaxActions > 0 {
		snap.MaxActions = req.MaxActions
	}
	snap.DryRun = req.DryRun

	sess := &Session{
		ID:            uuid.NewString(),
		StartTime:     time.Now(),
		Status:        StatusActive,
		WorkspacePath: root,
		Actions:       []*Action{},
		Config:        snap,
	}

	r, err := c.prepare(ctx, sess)
	if err != nil {
		return nil, err
	}
	if r.repo != nil && !snap.DryRun {
		c.prepareBranch(ctx, r, req.Stash)
	}
	return c.execute(ctx, r)
}

// prepareBranch optionally stashes uncommitted work and moves the session
// onto its own branch. Failures disable nothing; they are only recorded.
func (c *Controller) prepareBranch(ctx context.Context, r *run, stash bool) {
	if stash {
		if dirty, err := r.repo.IsDirty(); err == nil && dirty {
			if err := r.repo.Stash(ctx, "sweep: before session "+r.sess.ID); err != nil {
				c.record(r, "", errctx.Recoverable("stash", err), errctx.Details{Operation: "git"})
			}
		}
	}
	if c.cfg.Session.BranchPrefix == "" {
		return
	}
	name := c.cfg.Session.BranchPrefix + r.sess.ID[:8]
	if err := r.repo.CreateBranch(name); err != nil {
		c.record(r, "", errctx.Recoverable("create branch", err), errctx.Details{Operation: "git"})
		return
	}
	r.mu.Lock()
	r.sess.Branch = name
	r.mu.Unlock()
}

// ResumeSession continues a paused session with whatever budget it has left.
func (c *Controller) ResumeSession(ctx context.Context, id string) (*Result, error) {
	sess, err := c.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusPaused {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotResumable, id, sess.Status)
	}
	sess.Status = StatusActive
	sess.EndTime = nil
	sess.Message = ""

	r, err := c.prepare(ctx, sess)
	if err != nil {
		return nil, err
	}
	return c.execute(ctx, r)
}

// StopSession cancels a session. A running session finishes its in-flight
// action first; a paused one is cancelled in the store.
func (c *Controller) StopSession(ctx context.Context, id string) error {
	c.mu.Lock()
	r, ok := c.running[id]
	c.mu.Unlock()
	if ok {
		r.requestStop(StatusCancelled, nil)
		return nil
	}

	sess, err := c.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status != StatusPaused && sess.Status != StatusActive {
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, id, sess.Status)
	}
	now := time.Now()
	sess.Status = StatusCancelled
	sess.EndTime = &now
	sess.Version++
	return c.store.Save(ctx, sess)
}

// PauseSession asks a running session to stop after its in-flight action
// and keep its state for ResumeSession.
func (c *Controller) PauseSession(id string) error {
	c.mu.Lock()
	r, ok := c.running[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	r.requestStop(StatusPaused, nil)
	return nil
}

// ApproveAction executes an action that was held for approval.
func (c *Controller) ApproveAction(ctx context.Context, sessionID, actionID string) (*Action, error) {
	sess, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	a, ok := sess.Action(actionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	}
	if a.Status != ActionRequiresApproval {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotAwaitingApproval, actionID, a.Status)
	}

	r, err := c.prepare(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer c.unregister(sess.ID)
	defer r.replay.Close()

	execErr := c.executeAction(ctx, r, a)

	r.mu.Lock()
	out := *a
	r.mu.Unlock()
	return &out, execErr
}

// Get returns a session, live when it is running.
func (c *Controller) Get(ctx context.Context, id string) (*Session, error) {
	c.mu.Lock()
	r, ok := c.running[id]
	c.mu.Unlock()
	if ok {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.sess.Clone(), nil
	}
	return Resolve(ctx, c.store, id)
}

// List returns every known session, newest first.
func (c *Controller) List(ctx context.Context) ([]*Session, error) {
	stored, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range stored {
		if r, ok := c.running[s.ID]; ok {
			r.mu.Lock()
			stored[i] = r.sess.Clone()
			r.mu.Unlock()
		}
	}
	return stored, nil
}

// Running returns the IDs of sessions this controller is driving.
func (c *Controller) Running() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.running))
	for id := range c.running {
		ids = append(ids, id)
	}
	return ids
}

func (c *Controller) prepare(ctx context.Context, sess *Session) (*run, error) {
	c.mu.Lock()
	if _, busy := c.running[sess.ID]; busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSessionRunning, sess.ID)
	}
	waitCtx, cancel := context.WithCancel(ctx)
	r := &run{
		sess: sess,
		errs: errctx.NewCollector(sess.ID, sess.Errors...),
		fs:   c.fsFor(sess.WorkspacePath),
		gate: gate.New(gate.Policy{
			SafetyThreshold:      sess.Config.SafetyThreshold,
			AutoApproveThreshold: sess.Config.AutoApproveThreshold,
			Enabled:              sess.Config.EnabledPatterns,
			Disabled:             sess.Config.DisabledPatterns,
		}, c.matcher.Table()),
		limiter:    rate.NewLimiter(c.limit, 1),
		handled:    sess.Handled(),
		strategy:   stubs.Strategy(c.cfg.Synthesis.Strategy),
		waitCtx:    waitCtx,
		cancelWait: cancel,
	}
	c.running[sess.ID] = r
	c.mu.Unlock()

	if sess.Config.EnableReplay {
		rec, err := OpenRecorder(ReplayPath(c.cfg.DataDir, sess.ID), sess.ID)
		if err != nil {
			c.record(r, "", errctx.Recoverable("open replay log", err), errctx.Details{Operation: "replay"})
		} else {
			r.replay = rec
		}
	}
	if sess.Config.EnableGitIntegration {
		repo, err := c.opener.PlainOpenWithDetect(sess.WorkspacePath)
		if err != nil {
			c.record(r, "", errctx.Recoverable("open repository", err), errctx.Details{Operation: "git"})
		} else {
			r.repo = repo
		}
	}
	return r, nil
}

func (c *Controller) unregister(id string) {
	c.mu.Lock()
	if r, ok := c.running[id]; ok {
		r.cancelWait()
		delete(c.running, id)
	}
	c.mu.Unlock()
}

func (c *Controller) execute(ctx context.Context, r *run) (*Result, error) {
	started := time.Now()
	id := r.sess.ID
	ctx = logging.WithSessionID(ctx, id)
	defer c.unregister(id)

	timeout := c.timeout
	if timeout <= 0 {
		timeout = time.Duration(r.sess.Config.TimeoutMinutes) * time.Minute
	}
	timer := time.AfterFunc(timeout, func() {
		r.requestStop(StatusCancelled, &errctx.TimeoutError{Op: "session", Timeout: timeout})
	})

	c.log.Info().Ctx(ctx).Str("workspace", r.sess.WorkspacePath).Int("max_actions", r.sess.Config.MaxActions).Msg("session started")
	_ = r.replay.Record(EventSessionStarted, "", r.sess.Config)
	c.persist(ctx, r)

	fatal := c.loop(ctx, r)
	timer.Stop()

	return c.finish(ctx, r, fatal, started)
}

// loop lists TODOs and processes them until the budget is spent, nothing
// executes in a pass, a stop is requested, or a fatal error occurs.
func (c *Controller) loop(ctx context.Context, r *run) error {
	maxRetries := c.cfg.Session.MaxRetries
	listTimeout := config.Timeout(c.cfg.Timeouts.ListSeconds)
	lister := c.lister(r.sess.WorkspacePath)
	attempt := 0
	first := true

	for {
		if r.stopped() || ctx.Err() != nil || r.remaining() <= 0 {
			return nil
		}

		items, err := errctx.WithTimeout(ctx, "list", listTimeout, func(ctx context.Context) ([]todo.Item, error) {
			return lister.ListTodos(ctx, r.sess.WorkspacePath, r.sess.Config.FilePatterns)
		})
		if err != nil {
			attempt++
			d := errctx.Details{Operation: "list", Attempt: attempt, MaxRetries: maxRetries}
			c.record(r, "", err, d)
			if errctx.IsFatal(err) {
				return err
			}
			if attempt > maxRetries {
				fatal := errctx.Fatal("list todos", fmt.Errorf("giving up after %d attempts: %w", attempt, err))
				c.record(r, "", fatal, d)
				return fatal
			}
			if !r.wait(c.cfg.RetryDelay()) {
				return nil
			}
			continue
		}
		attempt = 0
		_ = r.replay.Record(EventTodosListed, "", map[string]int{"count": len(items)})

		if first && len(items) == 0 {
			r.mu.Lock()
			r.sess.Message = NoTodosMessage
			r.mu.Unlock()
			return nil
		}
		first = false

		executed := 0
		for _, item := range items {
			if r.handled[item.ID] {
				continue
			}
			if r.stopped() || ctx.Err() != nil || r.remaining() <= 0 {
				return nil
			}
			r.handled[item.ID] = true

			ran, err := c.processTodo(ctx, r, item)
			if ran {
				executed++
			}
			switch {
			case err == nil:
			case errors.Is(err, errStopped):
				return nil
			case errctx.IsFatal(err):
				return err
			}
		}
		if executed == 0 {
			return nil
		}
	}
}

// processTodo runs one TODO through the matcher and gate and, when allowed,
// executes the resulting action. ran is true when the action executed,
// successfully or not.
func (c *Controller) processTodo(ctx context.Context, r *run, item todo.Item) (ran bool, err error) {
	d := errctx.Details{File: item.FilePath, Line: item.Line, TodoContent: item.Content}

	content, err := errctx.WithTimeout(ctx, "context", config.Timeout(c.cfg.Timeouts.ContextSeconds), func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return r.fs.ReadFile(item.FilePath)
	})
	if err != nil {
		d.Operation = "context"
		c.record(r, "", errctx.Recoverable("read file", err), d)
		return false, nil
	}

	matches, err := errctx.WithTimeout(ctx, "pattern", config.Timeout(c.cfg.Timeouts.PatternSeconds), func(ctx context.Context) ([]pattern.Match, error) {
		m := c.matcher.Analyze(pattern.Input{TodoContent: item.Content, FilePath: item.FilePath, FileContent: content})
		return m, ctx.Err()
	})
	if err != nil {
		d.Operation = "pattern"
		c.record(r, "", err, d)
		return false, nil
	}

	verdict := r.gate.Decide(item.Content, matches)
	_ = r.replay.Record(EventDecision, "", decisionEvent{
		TodoID:     item.ID,
		Decision:   verdict.Decision,
		PatternID:  verdict.Match.PatternID,
		Confidence: verdict.Match.Confidence,
	})
	if verdict.Decision == gate.Reject {
		d.Operation = "pattern"
		c.record(r, "", verdict.Err, d)
		return false, nil
	}

	if verdict.Decision == gate.AutoExecute {
		if err := r.limiter.Wait(r.waitCtx); err != nil {
			return false, errStopped
		}
	}

	a := c.newAction(r, item, verdict.Match)
	if verdict.Decision == gate.RequireApproval {
		r.mu.Lock()
		_ = a.Transition(ActionRequiresApproval)
		a.Metadata.RequiresApproval = true
		r.mu.Unlock()
		c.log.Info().Ctx(ctx).Str("action_id", a.ID).Str("pattern", a.Metadata.PatternID).
			Float64("confidence", a.Metadata.Confidence).Msg("action requires approval")
		c.persist(ctx, r)
		return false, nil
	}

	err = c.executeAction(ctx, r, a)
	r.mu.Lock()
	ran = a.Status == ActionCompleted || a.Status == ActionFailed
	r.mu.Unlock()
	if err == nil && ran {
		r.wait(c.cfg.Cooldown())
	}
	return ran, err
}

type decisionEvent struct {
	TodoID     string        `json:"todo_id"`
	Decision   gate.Decision `json:"decision"`
	PatternID  string        `json:"pattern_id,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
}

func (c *Controller) newAction(r *run, item todo.Item, m pattern.Match) *Action {
	a := &Action{
		ID:          uuid.NewString(),
		SessionID:   r.sess.ID,
		Type:        m.Action,
		Status:      ActionPending,
		Description: fmt.Sprintf("%s: %s", m.PatternName, pattern.StripMarker(item.Content)),
		FilePath:    item.FilePath,
		LineNumber:  item.Line,
		Todo:        item,
		Metadata: Metadata{
			TodoText:   item.Content,
			PatternID:  m.PatternID,
			Confidence: m.Confidence,
			RiskLevel:  m.Risk,
			Extracted:  m.Extracted,
		},
		Timestamp: time.Now(),
	}
	r.mu.Lock()
	r.sess.Actions = append(r.sess.Actions, a)
	r.mu.Unlock()
	return a
}

// record logs err to the session's collector and replay log.
func (c *Controller) record(r *run, actionID string, err error, d errctx.Details) {
	if err == nil {
		return
	}
	ec := r.errs.Record(actionID, err, d)
	_ = r.replay.Record(EventError, actionID, ec)
}

// persist bumps the version and saves a snapshot. A cancelled caller
// context does not prevent the save.
func (c *Controller) persist(ctx context.Context, r *run) {
	r.mu.Lock()
	r.sess.Version++
	r.sess.Errors = r.errs.Errors()
	r.sess.Recompute()
	snap := r.sess.Clone()
	r.mu.Unlock()

	if err := c.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		c.log.Error().Ctx(ctx).Err(err).Msg("failed to persist session")
	}
}

func (c *Controller) finish(ctx context.Context, r *run, fatal error, started time.Time) (*Result, error) {
	status, stopErr, stopped := r.stopState()
	if stopErr != nil {
		c.record(r, "", stopErr, errctx.Details{Operation: "session"})
	}

	r.mu.Lock()
	switch {
	case fatal != nil:
		r.sess.Status = StatusFailed
		if r.sess.Message == "" {
			r.sess.Message = fatal.Error()
		}
	case stopped:
		r.sess.Status = status
	case ctx.Err() != nil:
		r.sess.Status = StatusCancelled
	default:
		r.sess.Status = StatusCompleted
	}
	if r.sess.Status != StatusPaused {
		now := time.Now()
		r.sess.EndTime = &now
	}
	final := r.sess.Status
	r.mu.Unlock()

	_ = r.replay.Record(EventSessionFinished, "", map[string]string{"status": string(final)})
	c.persist(ctx, r)
	_ = r.replay.Close()

	res := c.result(r, started)
	c.log.Info().Ctx(ctx).
		Str("status", string(res.Status)).
		Int("executed", res.ActionsExecuted).
		Int("errors", len(res.Errors)).
		Msg("session finished")

	if fatal != nil {
		return res, fatal
	}
	return res, nil
}

func (c *Controller) result(r *run, started time.Time) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sess
	return &Result{
		SessionID:        s.ID,
		Status:           s.Status,
		Message:          s.Message,
		Branch:           s.Branch,
		ActionsExecuted:  s.Executed(),
		ActionsCompleted: s.Metrics.CompletedActions,
		ActionsFailed:    s.Metrics.FailedActions,
		ActionsSkipped:   s.Metrics.SkippedActions,
		PendingApproval:  s.Metrics.PendingApproval,
		Errors:           r.errs.Errors(),
		Summary:          r.errs.Summary(),
		DurationMS:       time.Since(started).Milliseconds(),
	}
}
