package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sweep/internal/output"
	"github.com/panbanda/sweep/internal/progress"
	"github.com/panbanda/sweep/pkg/gate"
	"github.com/panbanda/sweep/pkg/pattern"
	"github.com/panbanda/sweep/pkg/session"
	"github.com/panbanda/sweep/pkg/todo"
)

func scanCmd() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Aliases:   []string{"ls"},
		Usage:     "List TODO comments without changing anything",
		ArgsUsage: "[workspace]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "pattern",
				Aliases: []string{"p"},
				Usage:   "Only scan files matching this glob (repeatable)",
			},
		},
		Action: runScanCmd,
	}
}

type scanReport struct {
	Items   []todo.Item  `json:"items"`
	Summary todo.Summary `json:"summary"`
}

func runScanCmd(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	cache, err := todo.NewCache(e.cfg, e.workspace)
	if err != nil {
		e.out.Warning("scan cache disabled: %v", err)
		cache = nil
	}
	scanner := todo.NewScanner(e.cfg, cache)
	patterns := c.StringSlice("pattern")

	files, err := scanner.Files(e.workspace, patterns)
	if err != nil {
		return err
	}

	var tracker *progress.Tracker
	if progress.Enabled() {
		tracker = progress.NewTracker("Scanning", len(files))
		scanner.OnProgress(tracker.Tick)
	}

	ctx, stop := signalContext(c)
	defer stop()

	items, err := scanner.ListTodos(ctx, e.workspace, patterns)
	if err != nil {
		tracker.Fail(err)
		return err
	}
	tracker.Done()

	report := scanReport{Items: items, Summary: todo.Summarize(items, len(files))}
	if report.Items == nil {
		report.Items = []todo.Item{}
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%s:%d", relPath(e.workspace, it.FilePath), it.Line),
			string(it.Type),
			fmt.Sprintf("%.2f", it.Confidence),
			truncate(it.Content, 60),
		})
	}
	footer := []string{
		fmt.Sprintf("%d files", report.Summary.FilesScanned),
		byTypeSummary(report.Summary.ByType),
		"",
		fmt.Sprintf("%d TODOs", report.Summary.TotalItems),
	}
	return e.out.Output(output.NewTable("TODOs", []string{"Location", "Type", "Confidence", "Content"}, rows, footer, report))
}

func byTypeSummary(byType map[string]int) string {
	keys := make([]string, 0, len(byType))
	for k := range byType {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, byType[k]))
	}
	return strings.Join(parts, " ")
}

func matchCmd() *cli.Command {
	return &cli.Command{
		Name:      "match",
		Usage:     "Show which safe patterns match a TODO and what the gate decides",
		ArgsUsage: "<todo text>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Source file the TODO lives in, for file-aware patterns",
			},
		},
		Action: runMatchCmd,
	}
}

type matchReport struct {
	Todo     string          `json:"todo"`
	Decision gate.Decision   `json:"decision"`
	Reason   string          `json:"reason,omitempty"`
	Matches  []pattern.Match `json:"matches"`
}

func runMatchCmd(c *cli.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" {
		return fmt.Errorf("TODO text required")
	}

	e, err := setupAt(c, ".")
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl, err := session.New(e.cfg)
	if err != nil {
		return err
	}
	matcher := ctrl.Matcher()

	in := pattern.Input{TodoContent: text}
	if path := c.String("file"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		in.FilePath = path
		in.FileContent = content
	}

	matches := matcher.Analyze(in)
	verdict := gate.New(gate.PolicyFromConfig(e.cfg), matcher.Table()).Decide(text, matches)

	report := matchReport{Todo: text, Decision: verdict.Decision, Matches: matches}
	if verdict.Err != nil {
		report.Reason = verdict.Err.Error()
	}
	if report.Matches == nil {
		report.Matches = []pattern.Match{}
	}

	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{
			m.PatternID,
			string(m.Action),
			fmt.Sprintf("%.2f", m.Confidence),
			string(m.Risk),
			strconv.FormatBool(m.AutoApprove),
		})
	}
	decision := "Decision: " + string(report.Decision)
	if report.Reason != "" {
		decision += " (" + report.Reason + ")"
	}
	view := &output.Report{
		Title: "Match",
		Sections: []output.Renderable{
			output.NewTable("Matches", []string{"Pattern", "Action", "Confidence", "Risk", "Auto"}, rows, nil, nil),
			&output.Section{Title: "Gate", Content: decision},
		},
	}
	return emit(e.out, report, view)
}

func patternsCmd() *cli.Command {
	return &cli.Command{
		Name:   "patterns",
		Usage:  "List the safe pattern table with configured overrides",
		Action: runPatternsCmd,
	}
}

type patternRow struct {
	pattern.SafePattern
	Rule    string `json:"rule"`
	Enabled bool   `json:"enabled"`
}

func runPatternsCmd(c *cli.Context) error {
	e, err := setupAt(c, ".")
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl, err := session.New(e.cfg)
	if err != nil {
		return err
	}
	table := ctrl.Matcher().Table()
	g := gate.New(gate.PolicyFromConfig(e.cfg), table)

	var (
		data  []patternRow
		cells [][]string
	)
	for _, p := range table.Patterns() {
		row := patternRow{SafePattern: p, Rule: p.Rule(), Enabled: g.Enabled(p.ID)}
		data = append(data, row)
		cells = append(cells, []string{
			p.ID,
			string(p.Action),
			fmt.Sprintf("%.2f", p.BaseConfidence),
			string(p.Risk),
			strconv.FormatBool(p.AutoApprove),
			strconv.FormatBool(row.Enabled),
		})
	}
	footer := []string{
		"Thresholds",
		"",
		fmt.Sprintf("safety %.2f", e.cfg.Session.SafetyThreshold),
		fmt.Sprintf("auto %.2f", e.cfg.Session.AutoApproveThreshold),
		"",
		"",
	}
	return e.out.Output(output.NewTable("Safe patterns", []string{"ID", "Action", "Confidence", "Risk", "Auto", "Enabled"}, cells, footer, data))
}
