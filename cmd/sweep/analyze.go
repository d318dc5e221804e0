package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sweep/internal/output"
	"github.com/panbanda/sweep/internal/validate"
	"github.com/panbanda/sweep/internal/workspace"
	"github.com/panbanda/sweep/pkg/analyzer/imports"
	"github.com/panbanda/sweep/pkg/analyzer/stubs"
	"github.com/panbanda/sweep/pkg/analyzer/variables"
	"github.com/panbanda/sweep/pkg/parser"
	"github.com/panbanda/sweep/pkg/todo"
	"github.com/panbanda/sweep/pkg/transform"
)

func fixFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "fix",
			Usage: "Rewrite the files (validated, with backups when enabled)",
		},
		&cli.BoolFlag{
			Name:  "diff",
			Usage: "Print the diff for every fix instead of writing it",
		},
	}
}

// collectFiles expands directories with the configured scanner and keeps
// supported files named directly.
func collectFiles(e *env, paths []string) ([]string, error) {
	scanner := todo.NewScanner(e.cfg, nil)
	var files []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if parser.IsSupported(abs) {
				files = append(files, abs)
			}
			continue
		}
		found, err := scanner.Files(abs, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", p, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

// applyFix validates after and writes it over path, or prints the diff when
// only a preview was asked for. It reports whether the file changed.
func applyFix(c *cli.Context, e *env, path string, before []byte, after string) (bool, error) {
	if string(before) == after {
		return false, nil
	}
	if c.Bool("diff") {
		fmt.Fprint(e.out.Writer(), transform.Diff(relPath(e.workspace, path), string(before), after))
		return false, nil
	}
	if res := validate.New().ValidateSyntax(path, []byte(after)); !res.IsValid {
		return false, fmt.Errorf("%s: result has syntax errors: %s", path, strings.Join(res.Messages(), "; "))
	}
	if _, err := workspace.New(filepath.Dir(path)).WriteFile(path, []byte(after), e.cfg.Session.EnableBackups); err != nil {
		return false, err
	}
	return true, nil
}

func importsCmd() *cli.Command {
	return &cli.Command{
		Name:      "imports",
		Usage:     "Find unused imports",
		ArgsUsage: "[path...]",
		Flags:     fixFlags(),
		Action:    runImportsCmd,
	}
}

func runImportsCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	files, err := collectFiles(e, getPaths(c))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		e.out.Warning("No source files found")
		return nil
	}

	ctx, stop := signalContext(c)
	defer stop()

	analyzer := imports.New(imports.WithWorkers(e.cfg.Scan.Workers))
	defer analyzer.Close()
	report, err := analyzer.Analyze(ctx, files)
	if err != nil {
		return err
	}

	if c.Bool("fix") || c.Bool("diff") {
		fixed := 0
		for _, f := range report.Files {
			if len(f.Unused) == 0 {
				continue
			}
			before, err := os.ReadFile(f.Path)
			if err != nil {
				return err
			}
			after := imports.RemoveUnused(string(before), f.Unused)
			changed, err := applyFix(c, e, f.Path, before, after)
			if err != nil {
				e.out.Error("%v", err)
				continue
			}
			if changed {
				fixed++
			}
		}
		if c.Bool("fix") {
			e.out.Success("Removed unused imports from %d file(s)", fixed)
		}
		return nil
	}

	var rows [][]string
	for _, f := range report.Files {
		for _, u := range f.Unused {
			rows = append(rows, []string{
				fmt.Sprintf("%s:%d", relPath(e.workspace, f.Path), u.Line),
				u.Name,
				string(u.Kind),
				u.Source,
			})
		}
	}
	s := report.Summary
	footer := []string{
		fmt.Sprintf("%d files (%d with unused)", s.TotalFiles, s.FilesWithUnused),
		fmt.Sprintf("%d unused", s.TotalUnused),
		"",
		fmt.Sprintf("%d bindings", s.TotalBindings),
	}
	return e.out.Output(output.NewTable("Unused imports", []string{"Location", "Name", "Kind", "Source"}, rows, footer, report))
}

func varsCmd() *cli.Command {
	return &cli.Command{
		Name:      "vars",
		Usage:     "Find unused variables",
		ArgsUsage: "[path...]",
		Flags:     fixFlags(),
		Action:    runVarsCmd,
	}
}

func runVarsCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	files, err := collectFiles(e, getPaths(c))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		e.out.Warning("No source files found")
		return nil
	}

	ctx, stop := signalContext(c)
	defer stop()

	analyzer := variables.New(variables.WithWorkers(e.cfg.Scan.Workers))
	defer analyzer.Close()
	report, err := analyzer.Analyze(ctx, files)
	if err != nil {
		return err
	}

	if c.Bool("fix") || c.Bool("diff") {
		removed := 0
		for _, f := range report.Files {
			if len(f.SafeToRemove) == 0 {
				continue
			}
			before, err := os.ReadFile(f.Path)
			if err != nil {
				return err
			}
			after, n, err := variables.RemoveUnused(f.Path, before, f.SafeToRemove)
			if err != nil {
				e.out.Error("%s: %v", f.Path, err)
				continue
			}
			changed, err := applyFix(c, e, f.Path, before, after)
			if err != nil {
				e.out.Error("%v", err)
				continue
			}
			if changed {
				removed += n
			}
		}
		if c.Bool("fix") {
			e.out.Success("Removed %d unused variable(s)", removed)
		}
		return nil
	}

	var rows [][]string
	for _, f := range report.Files {
		safe := make(map[string]bool, len(f.SafeToRemove))
		for _, u := range f.SafeToRemove {
			safe[u.Name+":"+strconv.Itoa(u.Line)] = true
		}
		for _, u := range f.UnusedVariables {
			verdict := "review"
			if safe[u.Name+":"+strconv.Itoa(u.Line)] {
				verdict = "safe"
			}
			rows = append(rows, []string{
				fmt.Sprintf("%s:%d", relPath(e.workspace, f.Path), u.Line),
				u.Name,
				string(u.Kind),
				u.Scope,
				verdict,
			})
		}
	}
	s := report.Summary
	footer := []string{
		fmt.Sprintf("%d files", s.TotalFiles),
		fmt.Sprintf("%d unused", s.TotalUnused),
		"",
		"",
		fmt.Sprintf("%d safe", s.SafeToRemove),
	}
	return e.out.Output(output.NewTable("Unused variables", []string{"Location", "Name", "Kind", "Scope", "Removal"}, rows, footer, report))
}

func stubsCmd() *cli.Command {
	return &cli.Command{
		Name:      "stubs",
		Usage:     "Find stub functions and suggest implementations",
		ArgsUsage: "[path...]",
		Flags: append(fixFlags(),
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Synthesis strategy: conservative, balanced, creative (default from config)",
			},
		),
		Action: runStubsCmd,
	}
}

type stubReport struct {
	Path        string            `json:"path"`
	Stub        stubs.Stub        `json:"stub"`
	Purpose     *stubs.Purpose    `json:"purpose,omitempty"`
	Suggestion  *stubs.Suggestion `json:"suggestion,omitempty"`
	Unavailable string            `json:"unavailable,omitempty"`
}

func runStubsCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	files, err := collectFiles(e, getPaths(c))
	if err != nil {
		return err
	}

	strategy := stubs.Strategy(e.cfg.Synthesis.Strategy)
	if s := c.String("strategy"); s != "" {
		strategy = stubs.Strategy(s)
	}

	var reports []stubReport
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		found, err := stubs.Analyze(path, content)
		if err != nil {
			e.out.Error("%s: %v", path, err)
			continue
		}
		for _, st := range found {
			r := stubReport{Path: path, Stub: st}
			impl, err := stubs.Implement(path, content, st.Name, strategy)
			if err != nil {
				r.Unavailable = err.Error()
			} else {
				r.Purpose = &impl.Purpose
				r.Suggestion = &impl.Suggestion
			}
			reports = append(reports, r)
		}
	}

	if c.Bool("fix") || c.Bool("diff") {
		return implementStubs(c, e, reports, strategy)
	}

	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		purpose, body := "-", r.Unavailable
		if r.Suggestion != nil {
			purpose = string(r.Purpose.Category)
			body = strings.ReplaceAll(r.Suggestion.Body, "\n", " ")
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", relPath(e.workspace, r.Path), r.Stub.Line),
			r.Stub.Name,
			string(r.Stub.Reason),
			purpose,
			truncate(body, 50),
		})
	}
	if reports == nil {
		reports = []stubReport{}
	}
	return e.out.Output(output.NewTable("Stubs", []string{"Location", "Name", "Reason", "Purpose", "Suggestion"}, rows, nil, reports))
}

// implementStubs rewrites one stub at a time, re-reading the file between
// edits because every body replacement shifts later offsets.
func implementStubs(c *cli.Context, e *env, reports []stubReport, strategy stubs.Strategy) error {
	done := 0
	for _, r := range reports {
		if r.Suggestion == nil {
			continue
		}
		before, err := os.ReadFile(r.Path)
		if err != nil {
			return err
		}
		impl, err := stubs.Implement(r.Path, before, r.Stub.Name, strategy)
		if err != nil {
			e.out.Error("%s: %s: %v", relPath(e.workspace, r.Path), r.Stub.Name, err)
			continue
		}
		changed, err := applyFix(c, e, r.Path, before, impl.Content)
		if err != nil {
			e.out.Error("%v", err)
			continue
		}
		if changed {
			done++
		}
	}
	if c.Bool("fix") {
		e.out.Success("Implemented %d stub(s)", done)
	}
	return nil
}
