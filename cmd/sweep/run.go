package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sweep/internal/output"
	"github.com/panbanda/sweep/pkg/errctx"
	"github.com/panbanda/sweep/pkg/session"
)

func runCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Start a session that resolves TODOs in a workspace",
		ArgsUsage: "[workspace]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "max-actions",
				Aliases: []string{"n"},
				Usage:   "Maximum actions for this session (default from config)",
			},
			&cli.StringSliceFlag{
				Name:    "pattern",
				Aliases: []string{"p"},
				Usage:   "Only scan files matching this glob (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show the changes without writing them",
			},
			&cli.BoolFlag{
				Name:  "stash",
				Usage: "Stash uncommitted changes before starting (needs git integration)",
			},
		},
		Action: runRunCmd,
	}
}

func runRunCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl, err := session.New(e.cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	res, err := ctrl.StartSession(ctx, session.Request{
		WorkspacePath: e.workspace,
		FilePatterns:  c.StringSlice("pattern"),
		MaxActions:    c.Int("max-actions"),
		DryRun:        c.Bool("dry-run"),
		Stash:         c.Bool("stash"),
	})
	if res == nil {
		return err
	}
	if outErr := emit(e.out, res, resultView(res)); outErr != nil {
		return outErr
	}
	return err
}

func resultView(res *session.Result) output.Renderable {
	var b strings.Builder
	fmt.Fprintf(&b, "Session:  %s\n", res.SessionID)
	fmt.Fprintf(&b, "Status:   %s\n", res.Status)
	if res.Branch != "" {
		fmt.Fprintf(&b, "Branch:   %s\n", res.Branch)
	}
	fmt.Fprintf(&b, "Actions:  %d executed, %d completed, %d failed, %d skipped, %d awaiting approval\n",
		res.ActionsExecuted, res.ActionsCompleted, res.ActionsFailed, res.ActionsSkipped, res.PendingApproval)
	fmt.Fprintf(&b, "Duration: %s", time.Duration(res.DurationMS)*time.Millisecond)
	if res.Message != "" {
		fmt.Fprintf(&b, "\n\n%s", res.Message)
	}

	sections := []output.Renderable{&output.Section{Title: "Summary", Content: b.String()}}
	if len(res.Errors) > 0 {
		sections = append(sections, errorsTable(res.Errors))
	}
	if recs := res.Summary.RecommendedActions; len(recs) > 0 {
		sections = append(sections, &output.Section{
			Title:   "Recommended",
			Content: "- " + strings.Join(recs, "\n- "),
		})
	}
	return &output.Report{Title: "Sweep session", Sections: sections, Data: res}
}

func errorsTable(errs []errctx.ErrorContext) *output.Table {
	rows := make([][]string, 0, len(errs))
	for _, ec := range errs {
		loc := ec.Context.File
		if loc != "" && ec.Context.Line > 0 {
			loc += ":" + strconv.Itoa(ec.Context.Line)
		}
		rows = append(rows, []string{
			string(ec.Type),
			string(ec.Severity),
			loc,
			truncate(ec.Message, 70),
		})
	}
	return output.NewTable("Errors", []string{"Type", "Severity", "Location", "Message"}, rows, nil, errs)
}

// sessionRow is one line of `sweep sessions list`.
type sessionRow struct {
	ID        string         `json:"id"`
	Status    session.Status `json:"status"`
	Started   time.Time      `json:"started"`
	Actions   int            `json:"actions"`
	Errors    int            `json:"errors"`
	Workspace string         `json:"workspace"`
}

func workspaceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "workspace",
		Aliases: []string{"w"},
		Value:   ".",
		Usage:   "Workspace whose sessions to use",
	}
}

func setupSessions(c *cli.Context) (*env, *session.Controller, error) {
	ws, err := filepath.Abs(c.String("workspace"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid workspace: %w", err)
	}
	e, err := setupAt(c, ws)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := session.New(e.cfg)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	return e, ctrl, nil
}

func sessionsCmd() *cli.Command {
	return &cli.Command{
		Name:    "sessions",
		Aliases: []string{"s"},
		Usage:   "Inspect and control recorded sessions",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List sessions, newest first",
				Flags:  []cli.Flag{workspaceFlag()},
				Action: runSessionsList,
			},
			{
				Name:      "show",
				Usage:     "Show a session's actions and errors",
				ArgsUsage: "<session-id>",
				Flags:     []cli.Flag{workspaceFlag()},
				Action:    runSessionsShow,
			},
			{
				Name:      "stop",
				Usage:     "Cancel a paused session",
				ArgsUsage: "<session-id>",
				Flags:     []cli.Flag{workspaceFlag()},
				Action:    runSessionsStop,
			},
			{
				Name:      "resume",
				Usage:     "Continue a paused session",
				ArgsUsage: "<session-id>",
				Flags:     []cli.Flag{workspaceFlag()},
				Action:    runSessionsResume,
			},
		},
	}
}

func runSessionsList(c *cli.Context) error {
	e, ctrl, err := setupSessions(c)
	if err != nil {
		return err
	}
	defer e.Close()

	all, err := ctrl.List(c.Context)
	if err != nil {
		return err
	}

	rows := make([]sessionRow, 0, len(all))
	cells := make([][]string, 0, len(all))
	for _, s := range all {
		row := sessionRow{
			ID:        s.ID,
			Status:    s.Status,
			Started:   s.StartTime,
			Actions:   len(s.Actions),
			Errors:    len(s.Errors),
			Workspace: s.WorkspacePath,
		}
		rows = append(rows, row)
		cells = append(cells, []string{
			shortID(row.ID),
			string(row.Status),
			row.Started.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(row.Actions),
			strconv.Itoa(row.Errors),
		})
	}
	return e.out.Output(output.NewTable("Sessions", []string{"ID", "Status", "Started", "Actions", "Errors"}, cells, nil, rows))
}

// sessionArg resolves the first positional argument as a session reference.
func sessionArg(c *cli.Context, ctrl *session.Controller) (*session.Session, error) {
	if c.Args().Len() < 1 {
		return nil, fmt.Errorf("session ID required")
	}
	return ctrl.Get(c.Context, c.Args().First())
}

func runSessionsShow(c *cli.Context) error {
	e, ctrl, err := setupSessions(c)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := sessionArg(c, ctrl)
	if err != nil {
		return err
	}
	return emit(e.out, sess, sessionView(sess))
}

func sessionView(sess *session.Session) output.Renderable {
	var b strings.Builder
	fmt.Fprintf(&b, "Session:    %s\n", sess.ID)
	fmt.Fprintf(&b, "Status:     %s\n", sess.Status)
	fmt.Fprintf(&b, "Workspace:  %s\n", sess.WorkspacePath)
	if sess.Branch != "" {
		fmt.Fprintf(&b, "Branch:     %s\n", sess.Branch)
	}
	fmt.Fprintf(&b, "Started:    %s\n", sess.StartTime.Local().Format(time.RFC3339))
	if sess.EndTime != nil {
		fmt.Fprintf(&b, "Ended:      %s\n", sess.EndTime.Local().Format(time.RFC3339))
	}
	m := sess.Metrics
	fmt.Fprintf(&b, "Actions:    %d total, %d completed, %d failed, %d skipped, %d awaiting approval\n",
		m.TotalActions, m.CompletedActions, m.FailedActions, m.SkippedActions, m.PendingApproval)
	fmt.Fprintf(&b, "Confidence: %.2f average", m.AverageConfidence)
	if sess.Message != "" {
		fmt.Fprintf(&b, "\n\n%s", sess.Message)
	}

	rows := make([][]string, 0, len(sess.Actions))
	for _, a := range sess.Actions {
		rows = append(rows, []string{
			shortID(a.ID),
			string(a.Status),
			string(a.Type),
			fmt.Sprintf("%s:%d", a.FilePath, a.LineNumber),
			fmt.Sprintf("%.2f", a.Metadata.Confidence),
			truncate(a.Metadata.TodoText, 50),
		})
	}

	sections := []output.Renderable{
		&output.Section{Title: "Summary", Content: b.String()},
		output.NewTable("Actions", []string{"ID", "Status", "Type", "Location", "Confidence", "TODO"}, rows, nil, nil),
	}
	if len(sess.Errors) > 0 {
		sections = append(sections, errorsTable(sess.Errors))
	}
	return &output.Report{Title: "Sweep session", Sections: sections, Data: sess}
}

func runSessionsStop(c *cli.Context) error {
	e, ctrl, err := setupSessions(c)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := sessionArg(c, ctrl)
	if err != nil {
		return err
	}
	if err := ctrl.StopSession(c.Context, sess.ID); err != nil {
		return err
	}
	e.out.Success("Cancelled session %s", shortID(sess.ID))
	return nil
}

func runSessionsResume(c *cli.Context) error {
	e, ctrl, err := setupSessions(c)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := sessionArg(c, ctrl)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(c)
	defer stop()

	res, err := ctrl.ResumeSession(ctx, sess.ID)
	if res == nil {
		return err
	}
	if outErr := emit(e.out, res, resultView(res)); outErr != nil {
		return outErr
	}
	return err
}

func approveCmd() *cli.Command {
	return &cli.Command{
		Name:      "approve",
		Usage:     "Execute actions held for approval",
		ArgsUsage: "<session-id> [action-id...]",
		Flags: []cli.Flag{
			workspaceFlag(),
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Approve every action awaiting approval",
			},
		},
		Action: runApproveCmd,
	}
}

// findAction resolves an action ID or unique prefix within sess.
func findAction(sess *session.Session, ref string) (*session.Action, error) {
	var match *session.Action
	for _, a := range sess.Actions {
		if a.ID == ref {
			return a, nil
		}
		if strings.HasPrefix(a.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("action prefix %q is ambiguous", ref)
			}
			match = a
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", session.ErrActionNotFound, ref)
	}
	return match, nil
}

func runApproveCmd(c *cli.Context) error {
	e, ctrl, err := setupSessions(c)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := sessionArg(c, ctrl)
	if err != nil {
		return err
	}

	var ids []string
	if c.Bool("all") {
		for _, a := range sess.Actions {
			if a.Status == session.ActionRequiresApproval {
				ids = append(ids, a.ID)
			}
		}
	} else {
		for _, ref := range c.Args().Tail() {
			a, err := findAction(sess, ref)
			if err != nil {
				return err
			}
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		e.out.Warning("No actions to approve")
		return nil
	}

	ctx, stop := signalContext(c)
	defer stop()

	var (
		approved []*session.Action
		failed   int
	)
	for _, id := range ids {
		a, err := ctrl.ApproveAction(ctx, sess.ID, id)
		if a == nil {
			return err
		}
		approved = append(approved, a)
		if err != nil || a.Status != session.ActionCompleted {
			failed++
		}
	}

	rows := make([][]string, 0, len(approved))
	for _, a := range approved {
		rows = append(rows, []string{
			shortID(a.ID),
			string(a.Status),
			fmt.Sprintf("%s:%d", a.FilePath, a.LineNumber),
			truncate(a.Execution.Error, 60),
		})
	}
	if err := e.out.Output(output.NewTable("Approved actions", []string{"ID", "Status", "Location", "Error"}, rows, nil, approved)); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d approved actions failed", failed, len(approved))
	}
	return nil
}

func replayCmd() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Print a session's replay log",
		ArgsUsage: "<session-id>",
		Flags:     []cli.Flag{workspaceFlag()},
		Action:    runReplayCmd,
	}
}

func runReplayCmd(c *cli.Context) error {
	e, ctrl, err := setupSessions(c)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := sessionArg(c, ctrl)
	if err != nil {
		return err
	}
	events, err := session.ReadReplay(session.ReplayPath(e.cfg.DataDir, sess.ID))
	if err != nil {
		return fmt.Errorf("read replay for %s (is session.enable_replay on?): %w", shortID(sess.ID), err)
	}

	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.Time.Local().Format("15:04:05.000"),
			string(ev.Kind),
			shortID(ev.ActionID),
			truncate(string(ev.Data), 80),
		})
	}
	return e.out.Output(output.NewTable("Replay "+shortID(sess.ID), []string{"Time", "Event", "Action", "Data"}, rows, nil, events))
}
