package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/sweep/pkg/analyzer/imports"
	"github.com/panbanda/sweep/pkg/analyzer/stubs"
	"github.com/panbanda/sweep/pkg/analyzer/variables"
	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/gate"
	"github.com/panbanda/sweep/pkg/session"
)

const initSource = "function init() {\n  // TODO: add comment about initialization\n  setup();\n}\n"

func newTestServer(t *testing.T, ws string) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Cache.Enabled = false
	cfg.RateLimiting.CooldownSeconds = 0
	cfg.Session.RetryDelaySeconds = 0

	s, err := NewServer("1.0.0-test", cfg, ws)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	return s
}

func writeSource(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func decode[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("tool returned error: %s", text)
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, text)
	}
	return v
}

var jsonOut = FormatInput{Format: "json"}

func TestServerCreation(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	if s.server == nil {
		t.Fatal("NewServer().server is nil")
	}
	if s.sessions == nil {
		t.Fatal("NewServer().sessions is nil")
	}
	if !filepath.IsAbs(s.workspace) {
		t.Errorf("workspace %q should be absolute", s.workspace)
	}
}

func TestServerCreationDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	s, err := NewServer("", cfg, "")
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	wd, _ := os.Getwd()
	if s.workspace != wd {
		t.Errorf("workspace = %q, want %q", s.workspace, wd)
	}
}

func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"start_session":            describeStartSession,
		"session_status":           describeSessionStatus,
		"approve_action":           describeApproveAction,
		"list_todos":               describeListTodos,
		"match_todo":               describeMatchTodo,
		"find_unused_imports":      describeFindUnusedImports,
		"remove_unused_imports":    describeRemoveUnusedImports,
		"analyze_unused_variables": describeAnalyzeUnusedVariables,
		"find_stubs":               describeFindStubs,
		"implement_stub":           describeImplementStub,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s section", name, section)
				}
			}
		})
	}
}

func TestGetFormat(t *testing.T) {
	tests := map[string]string{
		"":         "toon",
		"toon":     "toon",
		"JSON":     "json",
		"yml":      "yaml",
		"markdown": "markdown",
		"bogus":    "toon",
	}
	for in, want := range tests {
		if got := string(getFormat(in)); got != want {
			t.Errorf("getFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToolError(t *testing.T) {
	result, _, err := toolError("something went wrong")
	if err != nil {
		t.Fatalf("toolError returned error: %v", err)
	}
	if !result.IsError {
		t.Error("IsError should be true")
	}
	if got := resultText(t, result); got != "Error: something went wrong" {
		t.Errorf("text = %q", got)
	}
}

func TestToolResult(t *testing.T) {
	data := map[string]int{"count": 3}

	result, _, err := toolResult(data, "json")
	if err != nil {
		t.Fatalf("toolResult returned error: %v", err)
	}
	if result.IsError {
		t.Error("IsError should be false")
	}
	if got := resultText(t, result); got != "{\n  \"count\": 3\n}" {
		t.Errorf("json text = %q", got)
	}

	result, _, _ = toolResult(data, "")
	if text := resultText(t, result); !strings.Contains(text, "count") || strings.Contains(text, "{") {
		t.Errorf("toon text = %q", text)
	}
}

func TestHandleListTodos(t *testing.T) {
	ws := t.TempDir()
	writeSource(t, ws, "src/app.ts", initSource)
	writeSource(t, ws, "src/clean.ts", "export const x = 1;\n")
	s := newTestServer(t, ws)

	result, _, _ := s.handleListTodos(context.Background(), nil, ListTodosInput{FormatInput: jsonOut})
	got := decode[todoListing](t, result)
	if len(got.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(got.Items))
	}
	if filepath.Base(got.Items[0].FilePath) != "app.ts" || got.Items[0].Line != 2 {
		t.Errorf("item = %+v", got.Items[0])
	}
	if got.Summary.FilesScanned != 2 {
		t.Errorf("files scanned = %d, want 2", got.Summary.FilesScanned)
	}
}

func TestHandleListTodosBadWorkspace(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	result, _, _ := s.handleListTodos(context.Background(), nil, ListTodosInput{Workspace: "does-not-exist"})
	if !result.IsError {
		t.Error("expected error for missing workspace")
	}
}

func TestHandleMatchTodo(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	ctx := context.Background()

	t.Run("auto execute", func(t *testing.T) {
		result, _, _ := s.handleMatchTodo(ctx, nil, MatchTodoInput{
			FormatInput: jsonOut,
			Todo:        "TODO: add comment about initialization",
			FilePath:    "src/app.ts",
		})
		got := decode[matchVerdict](t, result)
		if got.Decision != gate.AutoExecute {
			t.Errorf("decision = %q, want %q", got.Decision, gate.AutoExecute)
		}
		if got.Best == nil || got.Best.PatternID != "add-comment" {
			t.Errorf("best = %+v", got.Best)
		}
		if len(got.Matches) < 2 {
			t.Errorf("matches = %d, want at least 2", len(got.Matches))
		}
	})

	t.Run("reject", func(t *testing.T) {
		result, _, _ := s.handleMatchTodo(ctx, nil, MatchTodoInput{
			FormatInput: jsonOut,
			Todo:        "TODO: rethink the whole architecture",
		})
		got := decode[matchVerdict](t, result)
		if got.Decision != gate.Reject {
			t.Errorf("decision = %q, want %q", got.Decision, gate.Reject)
		}
		if got.Reason == "" {
			t.Error("rejection should carry a reason")
		}
	})

	t.Run("empty", func(t *testing.T) {
		result, _, _ := s.handleMatchTodo(ctx, nil, MatchTodoInput{Todo: "  "})
		if !result.IsError {
			t.Error("expected error for empty todo")
		}
	})
}

const importSource = "import fs from 'fs';\nimport path from 'path';\nfs.stat('.');\n"

func TestHandleFindUnusedImports(t *testing.T) {
	ws := t.TempDir()
	writeSource(t, ws, "a.js", importSource)
	s := newTestServer(t, ws)

	result, _, _ := s.handleFindUnusedImports(context.Background(), nil, FileInput{FormatInput: jsonOut, Path: "a.js"})
	got := decode[imports.FileResult](t, result)
	if got.TotalBindings != 2 {
		t.Errorf("total bindings = %d, want 2", got.TotalBindings)
	}
	if len(got.Unused) != 1 || got.Unused[0].Name != "path" {
		t.Errorf("unused = %+v", got.Unused)
	}
}

func TestHandleRemoveUnusedImports(t *testing.T) {
	ws := t.TempDir()
	path := writeSource(t, ws, "a.js", importSource)
	s := newTestServer(t, ws)
	ctx := context.Background()

	result, _, _ := s.handleRemoveUnusedImports(ctx, nil, RemoveInput{FileInput: FileInput{FormatInput: jsonOut, Path: "a.js"}, DryRun: true})
	dry := decode[removal](t, result)
	if dry.Written || len(dry.Removed) != 1 || dry.Diff == "" {
		t.Errorf("dry run = %+v", dry)
	}
	if data, _ := os.ReadFile(path); string(data) != importSource {
		t.Error("dry run must not write the file")
	}

	result, _, _ = s.handleRemoveUnusedImports(ctx, nil, RemoveInput{FileInput: FileInput{FormatInput: jsonOut, Path: path}})
	applied := decode[removal](t, result)
	if !applied.Written || applied.Backup == "" {
		t.Errorf("apply = %+v", applied)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "path") || !strings.Contains(string(data), "fs.stat") {
		t.Errorf("content after removal = %q", data)
	}
	if backup, _ := os.ReadFile(applied.Backup); string(backup) != importSource {
		t.Errorf("backup = %q", backup)
	}
}

func TestHandleAnalyzeUnusedVariables(t *testing.T) {
	ws := t.TempDir()
	writeSource(t, ws, "v.js", "function f() {\n  const used = 1;\n  const unused = 2;\n  return used;\n}\nf();\n")
	s := newTestServer(t, ws)

	result, _, _ := s.handleAnalyzeUnusedVariables(context.Background(), nil, FileInput{FormatInput: jsonOut, Path: "v.js"})
	got := decode[variables.Result](t, result)
	found := false
	for _, u := range got.UnusedVariables {
		if u.Name == "unused" {
			found = true
		}
		if u.Name == "used" {
			t.Error("used variable reported as unused")
		}
	}
	if !found {
		t.Errorf("unused variables = %+v", got.UnusedVariables)
	}
}

const stubSource = "export function validateEmail(email: string): boolean {\n  // TODO: implement validateEmail\n}\n"

func TestHandleFindStubs(t *testing.T) {
	ws := t.TempDir()
	writeSource(t, ws, "email.ts", stubSource)
	s := newTestServer(t, ws)

	result, _, _ := s.handleFindStubs(context.Background(), nil, FileInput{FormatInput: jsonOut, Path: "email.ts"})
	got := decode[[]stubs.Stub](t, result)
	if len(got) != 1 || got[0].Name != "validateEmail" {
		t.Errorf("stubs = %+v", got)
	}
}

func TestHandleImplementStub(t *testing.T) {
	ws := t.TempDir()
	path := writeSource(t, ws, "email.ts", stubSource)
	s := newTestServer(t, ws)
	ctx := context.Background()

	result, _, _ := s.handleImplementStub(ctx, nil, ImplementStubInput{FileInput: FileInput{FormatInput: jsonOut, Path: "email.ts"}})
	if !result.IsError {
		t.Error("expected error without name or line")
	}

	result, _, _ = s.handleImplementStub(ctx, nil, ImplementStubInput{
		FileInput: FileInput{FormatInput: jsonOut, Path: "email.ts"},
		Name:      "validateEmail",
		Apply:     true,
	})
	got := decode[implementation](t, result)
	if !got.Written {
		t.Error("implementation should be written")
	}
	if got.Suggestion.Body != "return email != null;" {
		t.Errorf("body = %q", got.Suggestion.Body)
	}
	want := "export function validateEmail(email: string): boolean {\n  return email != null;\n}\n"
	if data, _ := os.ReadFile(path); string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestHandleMissingFile(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	ctx := context.Background()

	checks := map[string]func() (*mcp.CallToolResult, any, error){
		"find_unused_imports": func() (*mcp.CallToolResult, any, error) {
			return s.handleFindUnusedImports(ctx, nil, FileInput{Path: "missing.js"})
		},
		"analyze_unused_variables": func() (*mcp.CallToolResult, any, error) {
			return s.handleAnalyzeUnusedVariables(ctx, nil, FileInput{})
		},
		"find_stubs": func() (*mcp.CallToolResult, any, error) {
			return s.handleFindStubs(ctx, nil, FileInput{Path: "missing.ts"})
		},
	}
	for name, call := range checks {
		t.Run(name, func(t *testing.T) {
			result, _, err := call()
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if !result.IsError {
				t.Error("expected IsError")
			}
		})
	}
}

func TestHandleStartSessionAndStatus(t *testing.T) {
	ws := t.TempDir()
	path := writeSource(t, ws, "src/app.ts", initSource)
	s := newTestServer(t, ws)
	ctx := context.Background()

	result, _, _ := s.handleStartSession(ctx, nil, StartSessionInput{FormatInput: jsonOut, DryRun: true})
	res := decode[session.Result](t, result)
	if res.Status != session.StatusCompleted {
		t.Errorf("status = %q, want %q", res.Status, session.StatusCompleted)
	}
	if data, _ := os.ReadFile(path); string(data) != initSource {
		t.Error("dry run must not modify files")
	}

	result, _, _ = s.handleSessionStatus(ctx, nil, SessionStatusInput{FormatInput: jsonOut})
	rows := decode[[]sessionListing](t, result)
	if len(rows) != 1 || rows[0].ID != res.SessionID {
		t.Errorf("listing = %+v", rows)
	}

	result, _, _ = s.handleSessionStatus(ctx, nil, SessionStatusInput{FormatInput: jsonOut, SessionID: res.SessionID[:8]})
	status := decode[sessionStatus](t, result)
	if status.Session == nil || status.Session.ID != res.SessionID {
		t.Errorf("status = %+v", status)
	}
	if status.Running {
		t.Error("finished session should not be running")
	}

	result, _, _ = s.handleSessionStatus(ctx, nil, SessionStatusInput{SessionID: "nope"})
	if !result.IsError {
		t.Error("expected error for unknown session")
	}
}

func TestHandleApproveActionValidation(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	result, _, _ := s.handleApproveAction(context.Background(), nil, ApproveActionInput{SessionID: "abc"})
	if !result.IsError {
		t.Error("expected error without action_id")
	}
}

func TestLoadPrompts(t *testing.T) {
	prompts := loadPrompts()
	if len(prompts) == 0 {
		t.Fatal("no prompts embedded")
	}
	for _, p := range prompts {
		if p.description == "" {
			t.Errorf("prompt %s has no description", p.name)
		}
		if strings.HasPrefix(p.body, "---") {
			t.Errorf("prompt %s body still has frontmatter", p.name)
		}
	}
}

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantDesc string
		wantBody string
	}{
		{"with frontmatter", "---\ndescription: Do it\n---\nBody\n", "Do it", "Body\n"},
		{"no frontmatter", "Body only\n", "", "Body only\n"},
		{"unterminated", "---\ndescription: x\nBody\n", "", "---\ndescription: x\nBody\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, body := parseFrontmatter([]byte(tt.content))
			if desc != tt.wantDesc || body != tt.wantBody {
				t.Errorf("parseFrontmatter() = (%q, %q), want (%q, %q)", desc, body, tt.wantDesc, tt.wantBody)
			}
		})
	}
}

func TestPromptHandler(t *testing.T) {
	h := makePromptHandler("desc", "body text")
	res, err := h(context.Background(), nil)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.Description != "desc" || len(res.Messages) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if text := res.Messages[0].Content.(*mcp.TextContent).Text; text != "body text" {
		t.Errorf("text = %q", text)
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatalf("GenerateManifest() error: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if m.Name != "io.github.panbanda/sweep" || m.Version != "1.2.3" {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Packages) != 1 || m.Packages[0].Identifier != "ghcr.io/panbanda/sweep:1.2.3" {
		t.Errorf("packages = %+v", m.Packages)
	}

	data, _ = GenerateManifest("dev")
	if !strings.Contains(string(data), `"version": "0.0.0"`) {
		t.Errorf("dev version should become 0.0.0:\n%s", data)
	}
}
