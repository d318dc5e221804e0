package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"yaml", FormatYAML},
		{"yml", FormatYAML},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"", FormatText},
		{"invalid", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseFormat(tt.input)
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter(FormatText, "", true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	defer f.Close()

	if f.file != nil {
		t.Error("file should be nil for stdout")
	}
	if !f.colored {
		t.Error("stdout formatter should keep color")
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "output.json")

	f, err := NewFormatter(FormatJSON, outputPath, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.colored {
		t.Error("file output should never be colored")
	}
	if err := f.Output(map[string]int{"count": 2}); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.Contains(string(data), `"count": 2`) {
		t.Errorf("file content = %q", data)
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	_, err := NewFormatter(FormatText, filepath.Join(t.TempDir(), "missing", "dir", "out.txt"), false)
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestStructured(t *testing.T) {
	for format, want := range map[Format]bool{
		FormatText:     false,
		FormatMarkdown: false,
		FormatJSON:     true,
		FormatYAML:     true,
		FormatTOON:     true,
	} {
		if got := NewWriterFormatter(format, &bytes.Buffer{}, false).Structured(); got != want {
			t.Errorf("%s.Structured() = %v, want %v", format, got, want)
		}
	}
}

func sampleTable() *Table {
	return NewTable(
		"Unused imports",
		[]string{"File", "Line", "Name"},
		[][]string{
			{"src/a.ts", "1", "useState"},
			{"src/b.ts", "3", "lodash"},
		},
		[]string{"Total", "", "2"},
		nil,
	)
}

func TestTableRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleTable().RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Unused imports", "==============", "src/a.ts", "useState", "lodash"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableRenderTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("Sessions", []string{"ID"}, nil, nil, nil)
	if err := tbl.RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	if !strings.Contains(buf.String(), "(none)") {
		t.Errorf("empty table should say so:\n%s", buf.String())
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTable("T", []string{"A", "B"}, [][]string{{"x|y", "z"}}, nil, nil)
	if err := tbl.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	want := "## T\n\n| A | B |\n| --- | --- |\n| x\\|y | z |\n\n"
	if buf.String() != want {
		t.Errorf("RenderMarkdown() = %q, want %q", buf.String(), want)
	}
}

func TestTableRenderData(t *testing.T) {
	data := sampleTable().RenderData().([]map[string]string)
	if len(data) != 2 {
		t.Fatalf("len = %d, want 2", len(data))
	}
	if data[1]["Name"] != "lodash" {
		t.Errorf("row 1 = %v", data[1])
	}

	wrapped := NewTable("", nil, nil, nil, []int{1, 2})
	if got, ok := wrapped.RenderData().([]int); !ok || len(got) != 2 {
		t.Errorf("RenderData() with Data = %v", wrapped.RenderData())
	}
}

func TestSectionRender(t *testing.T) {
	s := &Section{Title: "Recommended", Content: "- review errors"}

	var text bytes.Buffer
	if err := s.RenderText(&text, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	if text.String() != "Recommended\n-----------\n- review errors\n" {
		t.Errorf("RenderText() = %q", text.String())
	}

	var md bytes.Buffer
	if err := s.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if md.String() != "## Recommended\n\n- review errors\n\n" {
		t.Errorf("RenderMarkdown() = %q", md.String())
	}

	if s.RenderData() != s {
		t.Error("RenderData() should return the section")
	}
}

func TestReportRenderText(t *testing.T) {
	r := &Report{
		Title:    "Sweep",
		Sections: []Renderable{&Section{Title: "Summary", Content: "ok"}, NewTable("Errors", []string{"Type"}, nil, nil, nil)},
	}
	var buf bytes.Buffer
	if err := r.RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error: %v", err)
	}
	want := "Sweep\n=====\n\nSummary\n-------\nok\n\nErrors\n======\n\n(none)\n"
	if buf.String() != want {
		t.Errorf("RenderText() = %q, want %q", buf.String(), want)
	}
}

func TestReportRender(t *testing.T) {
	r := &Report{
		Title:    "Sweep",
		Sections: []Renderable{&Section{Title: "One"}, sampleTable()},
	}

	var md bytes.Buffer
	if err := r.RenderMarkdown(&md); err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.HasPrefix(md.String(), "# Sweep\n\n## One\n\n") {
		t.Errorf("RenderMarkdown() = %q", md.String())
	}

	data := r.RenderData().(map[string]any)
	if data["title"] != "Sweep" {
		t.Errorf("title = %v", data["title"])
	}
	if parts := data["sections"].([]any); len(parts) != 2 {
		t.Errorf("sections = %d, want 2", len(parts))
	}
}

type record struct {
	SessionID string `json:"session_id"`
	Executed  int    `json:"actions_executed"`
}

func TestFormatterOutputStructured(t *testing.T) {
	data := []record{{SessionID: "abc", Executed: 2}}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewWriterFormatter(FormatJSON, &buf, false).Output(data); err != nil {
			t.Fatalf("Output() error: %v", err)
		}
		var got []record
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got[0] != data[0] {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("yaml uses json keys", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewWriterFormatter(FormatYAML, &buf, false).Output(data); err != nil {
			t.Fatalf("Output() error: %v", err)
		}
		var got []map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if got[0]["session_id"] != "abc" || got[0]["actions_executed"] != 2 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("toon", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewWriterFormatter(FormatTOON, &buf, false).Output(data); err != nil {
			t.Fatalf("Output() error: %v", err)
		}
		if !strings.Contains(buf.String(), "abc") {
			t.Errorf("TOON output missing value:\n%s", buf.String())
		}
	})

	t.Run("renderable uses RenderData", func(t *testing.T) {
		var buf bytes.Buffer
		tbl := NewTable("T", []string{"ID"}, [][]string{{"x"}}, nil, data)
		if err := NewWriterFormatter(FormatJSON, &buf, false).Output(tbl); err != nil {
			t.Fatalf("Output() error: %v", err)
		}
		if !strings.Contains(buf.String(), `"session_id": "abc"`) {
			t.Errorf("output = %s", buf.String())
		}
	})
}

func TestFormatterMarkdownRawData(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriterFormatter(FormatMarkdown, &buf, false).Output(map[string]int{"n": 1}); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "```json\n") || !strings.HasSuffix(out, "```\n") {
		t.Errorf("raw markdown output = %q", out)
	}
}

func TestFormatterMessageMethods(t *testing.T) {
	tests := []struct {
		name string
		call func(f *Formatter)
		want string
	}{
		{"success", func(f *Formatter) { f.Success("done %d", 1) }, "done 1\n"},
		{"warning", func(f *Formatter) { f.Warning("careful") }, "WARNING: careful\n"},
		{"error", func(f *Formatter) { f.Error("bad %s", "thing") }, "ERROR: bad thing\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.call(NewWriterFormatter(FormatText, &buf, false))
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
