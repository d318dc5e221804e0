package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/gate"
	"github.com/panbanda/sweep/pkg/session"
)

const initSource = "function init() {\n  // TODO: add comment about initialization\n  setup();\n}\n"

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runApp runs the CLI with a JSON output file and returns what was written.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out.json")
	full := append([]string{"sweep", "--no-color", "--format", "json", "--output", out}, args...)
	err := newApp().Run(full)
	data, _ := os.ReadFile(out)
	return string(data), err
}

func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"no args defaults to current dir", []string{}, []string{"."}},
		{"single path", []string{"/foo/bar"}, []string{"/foo/bar"}},
		{"multiple paths", []string{"/foo", "/bar"}, []string{"/foo", "/bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			app := &cli.App{
				Action: func(c *cli.Context) error {
					got = getPaths(c)
					return nil
				},
			}
			require.NoError(t, app.Run(append([]string{"test"}, tt.args...)))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))
}

func TestRelPath(t *testing.T) {
	ws := filepath.Join(string(filepath.Separator), "repo")
	assert.Equal(t, "src/a.ts", relPath(ws, filepath.Join(ws, "src", "a.ts")))
	outside := filepath.Join(string(filepath.Separator), "other", "b.ts")
	assert.Equal(t, outside, relPath(ws, outside))
}

func TestFindAction(t *testing.T) {
	sess := &session.Session{Actions: []*session.Action{
		{ID: "aaaa-1111"},
		{ID: "aaaa-2222"},
		{ID: "bbbb-3333"},
	}}

	a, err := findAction(sess, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, "bbbb-3333", a.ID)

	a, err = findAction(sess, "aaaa-2222")
	require.NoError(t, err)
	assert.Equal(t, "aaaa-2222", a.ID)

	_, err = findAction(sess, "aaaa")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = findAction(sess, "cccc")
	assert.ErrorIs(t, err, session.ErrActionNotFound)
}

func TestGenerateDefaultConfig(t *testing.T) {
	content, err := generateDefaultConfig()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "# sweep configuration\n"))

	path := writeFile(t, t.TempDir(), "sweep.toml", content)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultConfig().Session, cfg.Session)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sweep", "sweep.toml")

	require.NoError(t, newApp().Run([]string{"sweep", "init", "--output", path}))
	assert.FileExists(t, path)

	err := newApp().Run([]string{"sweep", "init", "--output", path})
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, newApp().Run([]string{"sweep", "init", "--output", path, "--force"}))
}

func TestConfigValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.toml", "[session]\nmax_actions_per_session = 5\n")
	bad := writeFile(t, dir, "bad.toml", "[synthesis]\nstrategy = \"wild\"\n")

	assert.NoError(t, newApp().Run([]string{"sweep", "config", "validate", "-c", good}))
	assert.Error(t, newApp().Run([]string{"sweep", "config", "validate", "-c", bad}))
}

func TestLoadConfigAnchorsDataDir(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "sweep.toml", "data_dir = \"state\"\n[log]\nfile = \"logs/sweep.log\"\n")

	var cfg *config.Config
	app := &cli.App{
		Flags: []cli.Flag{&cli.StringFlag{Name: "config"}, &cli.BoolFlag{Name: "no-cache"}},
		Action: func(c *cli.Context) error {
			var err error
			cfg, _, err = loadConfig(c, ws)
			return err
		},
	}
	require.NoError(t, app.Run([]string{"test", "--no-cache"}))
	assert.Equal(t, filepath.Join(ws, "state"), cfg.DataDir)
	assert.Equal(t, filepath.Join(ws, "logs", "sweep.log"), cfg.Log.File)
	assert.False(t, cfg.Cache.Enabled)
}

func TestScanCommand(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "src/app.ts", initSource)
	writeFile(t, ws, "src/clean.ts", "export const x = 1;\n")

	out, err := runApp(t, "--no-cache", "scan", ws)
	require.NoError(t, err)

	var report scanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Items, 1)
	assert.Equal(t, 2, report.Items[0].Line)
	assert.Equal(t, 2, report.Summary.FilesScanned)
}

func TestMatchCommand(t *testing.T) {
	out, err := runApp(t, "match", "TODO: add comment about initialization")
	require.NoError(t, err)

	var report matchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, gate.AutoExecute, report.Decision)
	require.NotEmpty(t, report.Matches)
	assert.Equal(t, "add-comment", report.Matches[0].PatternID)

	_, err = runApp(t, "match")
	assert.Error(t, err)
}

func TestPatternsCommand(t *testing.T) {
	out, err := runApp(t, "patterns")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r["id"].(string))
		assert.NotEmpty(t, r["rule"])
	}
	assert.Contains(t, ids, "add-comment")
	assert.Contains(t, ids, "generic-review")
}

func TestRunAndSessionsCommands(t *testing.T) {
	ws := t.TempDir()
	path := writeFile(t, ws, "src/app.ts", initSource)
	writeFile(t, ws, "sweep.toml", "[rate_limiting]\ncooldown_seconds = 0\n")

	out, err := runApp(t, "run", "--dry-run", ws)
	require.NoError(t, err)

	var res session.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, session.StatusCompleted, res.Status)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, initSource, string(data), "dry run must not write")
	assert.DirExists(t, filepath.Join(ws, ".sweep", "sessions"))

	out, err = runApp(t, "sessions", "list", "-w", ws)
	require.NoError(t, err)
	var rows []sessionRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, res.SessionID, rows[0].ID)

	out, err = runApp(t, "sessions", "show", "-w", ws, res.SessionID[:8])
	require.NoError(t, err)
	var sess session.Session
	require.NoError(t, json.Unmarshal([]byte(out), &sess))
	assert.Equal(t, res.SessionID, sess.ID)

	_, err = runApp(t, "sessions", "stop", "-w", ws, res.SessionID)
	assert.ErrorIs(t, err, session.ErrNotRunning)

	_, err = runApp(t, "approve", "-w", ws, res.SessionID, "missing")
	assert.ErrorIs(t, err, session.ErrActionNotFound)
}

func TestImportsCommand(t *testing.T) {
	ws := t.TempDir()
	path := writeFile(t, ws, "a.js", "import fs from 'fs';\nimport path from 'path';\nfs.stat('.');\n")

	out, err := runApp(t, "imports", ws)
	require.NoError(t, err)
	var report struct {
		Summary struct {
			TotalUnused int `json:"total_unused"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Summary.TotalUnused)

	_, err = runApp(t, "imports", "--fix", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "path")
	assert.Contains(t, string(data), "fs.stat")
}

func TestStubsCommand(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "email.ts", "export function validateEmail(email: string): boolean {\n  // TODO: implement validateEmail\n}\n")

	out, err := runApp(t, "stubs", ws)
	require.NoError(t, err)
	var reports []stubReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "validateEmail", reports[0].Stub.Name)
	require.NotNil(t, reports[0].Suggestion)
	assert.Equal(t, "return email != null;", reports[0].Suggestion.Body)
}
