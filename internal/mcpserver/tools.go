package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/sweep/internal/output"
	"github.com/panbanda/sweep/internal/validate"
	"github.com/panbanda/sweep/internal/workspace"
	"github.com/panbanda/sweep/pkg/analyzer/imports"
	"github.com/panbanda/sweep/pkg/analyzer/stubs"
	"github.com/panbanda/sweep/pkg/analyzer/variables"
	"github.com/panbanda/sweep/pkg/errctx"
	"github.com/panbanda/sweep/pkg/gate"
	"github.com/panbanda/sweep/pkg/pattern"
	"github.com/panbanda/sweep/pkg/session"
	"github.com/panbanda/sweep/pkg/todo"
	"github.com/panbanda/sweep/pkg/transform"
)

// FormatInput is embedded by every tool input.
type FormatInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml or markdown."`
}

// StartSessionInput is the input for start_session.
type StartSessionInput struct {
	FormatInput
	Workspace    string   `json:"workspace,omitempty" jsonschema:"Workspace root. Defaults to the server's workspace."`
	FilePatterns []string `json:"file_patterns,omitempty" jsonschema:"Glob patterns (relative to the workspace) restricting which files are scanned."`
	MaxActions   int      `json:"max_actions,omitempty" jsonschema:"Maximum actions this session may create. Defaults to the configured limit."`
	DryRun       bool     `json:"dry_run,omitempty" jsonschema:"Compute diffs without writing any file."`
}

// SessionStatusInput is the input for session_status.
type SessionStatusInput struct {
	FormatInput
	SessionID string `json:"session_id,omitempty" jsonschema:"Session ID or unique prefix. Empty lists every session."`
}

// ApproveActionInput is the input for approve_action.
type ApproveActionInput struct {
	FormatInput
	SessionID string `json:"session_id" jsonschema:"Session ID or unique prefix."`
	ActionID  string `json:"action_id" jsonschema:"ID of the action awaiting approval."`
}

// ListTodosInput is the input for list_todos.
type ListTodosInput struct {
	FormatInput
	Workspace    string   `json:"workspace,omitempty" jsonschema:"Workspace root. Defaults to the server's workspace."`
	FilePatterns []string `json:"file_patterns,omitempty" jsonschema:"Glob patterns restricting which files are scanned."`
}

// MatchTodoInput is the input for match_todo.
type MatchTodoInput struct {
	FormatInput
	Todo     string `json:"todo" jsonschema:"TODO comment text, with or without the marker."`
	FilePath string `json:"file_path,omitempty" jsonschema:"File the TODO lives in. Enables file-aware patterns."`
}

// FileInput is the input for tools that work on a single source file.
type FileInput struct {
	FormatInput
	Path string `json:"path" jsonschema:"Source file path, absolute or relative to the workspace."`
}

// RemoveInput is the input for remove_unused_imports.
type RemoveInput struct {
	FileInput
	DryRun bool `json:"dry_run,omitempty" jsonschema:"Return the diff without writing the file."`
}

// ImplementStubInput is the input for implement_stub.
type ImplementStubInput struct {
	FileInput
	Name     string `json:"name,omitempty" jsonschema:"Function name of the stub. Either name or line is required."`
	Line     int    `json:"line,omitempty" jsonschema:"Line inside or near the stub."`
	Strategy string `json:"strategy,omitempty" jsonschema:"conservative, balanced (default) or creative."`
	Apply    bool   `json:"apply,omitempty" jsonschema:"Write the implementation into the file."`
}

func getFormat(format string) output.Format {
	switch strings.ToLower(format) {
	case "json":
		return output.FormatJSON
	case "yaml", "yml":
		return output.FormatYAML
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format string) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(getFormat(format), &buf, false).Output(data); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func toolResult(data any, format string) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return toolError(err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + msg}},
		IsError: true,
	}, nil, nil
}

func (s *Server) resolve(path string) string {
	if path == "" {
		return s.workspace
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.workspace, path)
}

func (s *Server) readSource(path string) (string, []byte, error) {
	if path == "" {
		return "", nil, errors.New("path is required")
	}
	abs := s.resolve(path)
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", nil, err
	}
	return abs, content, nil
}

// writeSource validates content before writing it next to a backup.
func (s *Server) writeSource(path string, content string) (string, error) {
	if res := validate.New().ValidateSyntax(path, []byte(content)); !res.IsValid {
		return "", fmt.Errorf("result has syntax errors: %s", strings.Join(res.Messages(), "; "))
	}
	ws := workspace.New(filepath.Dir(path))
	return ws.WriteFile(path, []byte(content), s.cfg.Session.EnableBackups)
}

func (s *Server) handleStartSession(ctx context.Context, req *mcp.CallToolRequest, input StartSessionInput) (*mcp.CallToolResult, any, error) {
	res, err := s.sessions.StartSession(ctx, session.Request{
		WorkspacePath: s.resolve(input.Workspace),
		FilePatterns:  input.FilePatterns,
		MaxActions:    input.MaxActions,
		DryRun:        input.DryRun,
	})
	if err != nil && res == nil {
		return toolError(err.Error())
	}
	return toolResult(res, input.Format)
}

type sessionStatus struct {
	Session *session.Session `json:"session"`
	Errors  errctx.Summary   `json:"error_summary"`
	Running bool             `json:"running"`
}

type sessionListing struct {
	ID        string         `json:"id"`
	Status    session.Status `json:"status"`
	Workspace string         `json:"workspace"`
	Actions   int            `json:"actions"`
	Errors    int            `json:"errors"`
	Started   string         `json:"started"`
}

func (s *Server) handleSessionStatus(ctx context.Context, req *mcp.CallToolRequest, input SessionStatusInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" {
		all, err := s.sessions.List(ctx)
		if err != nil {
			return toolError(err.Error())
		}
		rows := make([]sessionListing, 0, len(all))
		for _, sess := range all {
			rows = append(rows, sessionListing{
				ID:        sess.ID,
				Status:    sess.Status,
				Workspace: sess.WorkspacePath,
				Actions:   len(sess.Actions),
				Errors:    len(sess.Errors),
				Started:   sess.StartTime.Format(time.RFC3339),
			})
		}
		return toolResult(rows, input.Format)
	}

	sess, err := s.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return toolError(err.Error())
	}
	running := false
	for _, id := range s.sessions.Running() {
		if id == sess.ID {
			running = true
		}
	}
	return toolResult(sessionStatus{
		Session: sess,
		Errors:  errctx.Summarize(sess.Errors),
		Running: running,
	}, input.Format)
}

func (s *Server) handleApproveAction(ctx context.Context, req *mcp.CallToolRequest, input ApproveActionInput) (*mcp.CallToolResult, any, error) {
	if input.SessionID == "" || input.ActionID == "" {
		return toolError("session_id and action_id are required")
	}
	sess, err := s.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return toolError(err.Error())
	}
	action, err := s.sessions.ApproveAction(ctx, sess.ID, input.ActionID)
	if err != nil && action == nil {
		return toolError(err.Error())
	}
	return toolResult(action, input.Format)
}

type todoListing struct {
	Items   []todo.Item  `json:"items"`
	Summary todo.Summary `json:"summary"`
}

func (s *Server) handleListTodos(ctx context.Context, req *mcp.CallToolRequest, input ListTodosInput) (*mcp.CallToolResult, any, error) {
	ws := s.resolve(input.Workspace)
	info, err := os.Stat(ws)
	if err != nil || !info.IsDir() {
		return toolError(fmt.Sprintf("workspace %q is not a directory", ws))
	}

	cache, err := todo.NewCache(s.cfg, ws)
	if err != nil {
		cache = nil
	}
	scanner := todo.NewScanner(s.cfg, cache)
	files, err := scanner.Files(ws, input.FilePatterns)
	if err != nil {
		return toolError(err.Error())
	}
	items, err := scanner.ListTodos(ctx, ws, input.FilePatterns)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(todoListing{Items: items, Summary: todo.Summarize(items, len(files))}, input.Format)
}

type matchVerdict struct {
	Decision gate.Decision   `json:"decision"`
	Best     *pattern.Match  `json:"best,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Matches  []pattern.Match `json:"matches"`
}

func (s *Server) handleMatchTodo(ctx context.Context, req *mcp.CallToolRequest, input MatchTodoInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Todo) == "" {
		return toolError("todo is required")
	}

	in := pattern.Input{TodoContent: input.Todo}
	if input.FilePath != "" {
		in.FilePath = input.FilePath
		if content, err := os.ReadFile(s.resolve(input.FilePath)); err == nil {
			in.FileContent = content
		}
	}

	matcher := s.sessions.Matcher()
	matches := matcher.Analyze(in)
	verdict := gate.New(gate.PolicyFromConfig(s.cfg), matcher.Table()).Decide(input.Todo, matches)

	out := matchVerdict{Decision: verdict.Decision, Matches: matches}
	if verdict.Matched {
		best := verdict.Match
		out.Best = &best
	}
	if verdict.Err != nil {
		out.Reason = verdict.Err.Error()
	}
	if out.Matches == nil {
		out.Matches = []pattern.Match{}
	}
	return toolResult(out, input.Format)
}

func (s *Server) handleFindUnusedImports(ctx context.Context, req *mcp.CallToolRequest, input FileInput) (*mcp.CallToolResult, any, error) {
	path, content, err := s.readSource(input.Path)
	if err != nil {
		return toolError(err.Error())
	}
	res, err := imports.Analyze(path, content)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(res, input.Format)
}

type removal struct {
	Path    string                 `json:"path"`
	Removed []imports.UnusedImport `json:"removed"`
	Written bool                   `json:"written"`
	Backup  string                 `json:"backup,omitempty"`
	Diff    string                 `json:"diff,omitempty"`
}

func (s *Server) handleRemoveUnusedImports(ctx context.Context, req *mcp.CallToolRequest, input RemoveInput) (*mcp.CallToolResult, any, error) {
	path, content, err := s.readSource(input.Path)
	if err != nil {
		return toolError(err.Error())
	}
	after, removed, err := imports.Remove(path, content)
	if err != nil {
		return toolError(err.Error())
	}

	out := removal{Path: path, Removed: removed}
	if out.Removed == nil {
		out.Removed = []imports.UnusedImport{}
	}
	if len(removed) == 0 {
		return toolResult(out, input.Format)
	}
	out.Diff = transform.Diff(filepath.Base(path), string(content), after)
	if input.DryRun {
		return toolResult(out, input.Format)
	}

	backup, err := s.writeSource(path, after)
	if err != nil {
		return toolError(err.Error())
	}
	out.Written = true
	out.Backup = backup
	return toolResult(out, input.Format)
}

func (s *Server) handleAnalyzeUnusedVariables(ctx context.Context, req *mcp.CallToolRequest, input FileInput) (*mcp.CallToolResult, any, error) {
	path, content, err := s.readSource(input.Path)
	if err != nil {
		return toolError(err.Error())
	}
	res, err := variables.AnalyzeFile(path, content)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(res, input.Format)
}

func (s *Server) handleFindStubs(ctx context.Context, req *mcp.CallToolRequest, input FileInput) (*mcp.CallToolResult, any, error) {
	path, content, err := s.readSource(input.Path)
	if err != nil {
		return toolError(err.Error())
	}
	found, err := stubs.Analyze(path, content)
	if err != nil {
		return toolError(err.Error())
	}
	if found == nil {
		found = []stubs.Stub{}
	}
	return toolResult(found, input.Format)
}

type implementation struct {
	*stubs.Implementation
	Written bool   `json:"written"`
	Backup  string `json:"backup,omitempty"`
	Diff    string `json:"diff"`
}

func (s *Server) handleImplementStub(ctx context.Context, req *mcp.CallToolRequest, input ImplementStubInput) (*mcp.CallToolResult, any, error) {
	if input.Name == "" && input.Line <= 0 {
		return toolError("name or line is required")
	}
	path, content, err := s.readSource(input.Path)
	if err != nil {
		return toolError(err.Error())
	}

	strategy := stubs.Strategy(input.Strategy)
	if strategy == "" {
		strategy = stubs.Strategy(s.cfg.Synthesis.Strategy)
	}

	var impl *stubs.Implementation
	if input.Name != "" {
		impl, err = stubs.Implement(path, content, input.Name, strategy)
	} else {
		impl, err = stubs.ImplementNear(path, content, input.Line, strategy)
	}
	if err != nil {
		return toolError(err.Error())
	}

	out := implementation{
		Implementation: impl,
		Diff:           transform.Diff(filepath.Base(path), string(content), impl.Content),
	}
	if input.Apply {
		backup, err := s.writeSource(path, impl.Content)
		if err != nil {
			return toolError(err.Error())
		}
		out.Written = true
		out.Backup = backup
	}
	return toolResult(out, input.Format)
}
