package todo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, e *Extractor, path string, content []byte) []Item {
	t.Helper()
	items, err := e.Extract(path, content)
	require.NoError(t, err)
	return items
}

func TestExtractLineComment(t *testing.T) {
	src := "const config = load();\n// TODO: add comment about initialization\ninit(config);\n"

	items := extract(t, NewExtractor(), "src/app.ts", []byte(src))
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "TODO: add comment about initialization", item.Content)
	assert.Equal(t, TypeTODO, item.Type)
	assert.Equal(t, 2, item.Line)
	assert.Equal(t, 4, item.Column)
	assert.Equal(t, "src/app.ts", item.FilePath)
	assert.InDelta(t, 0.9, item.Confidence, 0.001)
	assert.Len(t, item.Context, 3)
	assert.NotEmpty(t, item.ID)
}

func TestExtractMarkers(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantType Type
		wantText string
	}{
		{"fixme", "  // FIXME: handle null input", TypeFIXME, "FIXME: handle null input"},
		{"hack", "x++; // HACK work around parser bug", TypeHACK, "HACK work around parser bug"},
		{"note", "/* NOTE: order matters here */", TypeNOTE, "NOTE: order matters here"},
		{"owner tag", "// TODO(alice): rename tmp to buffer", TypeTODO, "TODO(alice): rename tmp to buffer"},
		{"block continuation", " * TODO: document return value", TypeTODO, "TODO: document return value"},
		{"jsx", "      {/* TODO: extract header component */}", TypeTODO, "TODO: extract header component"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := extract(t, NewExtractor(), "a.tsx", []byte(tt.line))
			require.Len(t, items, 1)
			assert.Equal(t, tt.wantType, items[0].Type)
			assert.Equal(t, tt.wantText, items[0].Content)
		})
	}
}

func TestExtractIgnoresNonComments(t *testing.T) {
	src := strings.Join([]string{
		`const TODO = "not a comment";`,
		`const url = "https://example.com/TODO";`,
		`const msg = "// TODO: inside a string";`,
		`// todo lowercase is ignored`,
		`// TODOS are not markers`,
		`// TODO: skip me sweep:ignore`,
	}, "\n")

	items := extract(t, NewExtractor(), "a.ts", []byte(src))
	assert.Empty(t, items)
}

func TestExtractCommentAfterString(t *testing.T) {
	src := `const s = "//"; // TODO: tidy this constant`
	items := extract(t, NewExtractor(), "a.js", []byte(src))
	require.Len(t, items, 1)
	assert.Equal(t, "TODO: tidy this constant", items[0].Content)
	assert.Equal(t, strings.Index(src, "TODO")+1, items[0].Column)
}

func TestExtractConfidence(t *testing.T) {
	tests := []struct {
		line string
		want float64
	}{
		{"// TODO: add comment about initialization", 0.9},
		{"// TODO add comment about initialization", 0.8},
		{"// TODO: fix", 0.7},
		{"// TODO:", 0.6},
		{"// NOTE", 0.2},
		{"// FIXME: handle the empty list case", 0.8},
	}
	for _, tt := range tests {
		items := extract(t, NewExtractor(), "a.ts", []byte(tt.line))
		require.Len(t, items, 1, tt.line)
		assert.InDelta(t, tt.want, items[0].Confidence, 0.001, tt.line)
	}
}

func TestExtractStableIDs(t *testing.T) {
	src := "// TODO: same\n// TODO: same\n"
	first := extract(t, NewExtractor(), "a.ts", []byte(src))
	require.Len(t, first, 2)
	assert.NotEqual(t, first[0].ID, first[1].ID)

	shifted := extract(t, NewExtractor(), "a.ts", []byte("\n\n"+src))
	require.Len(t, shifted, 2)
	assert.Equal(t, first[0].ID, shifted[0].ID)
	assert.Equal(t, first[1].ID, shifted[1].ID)
}

func TestExtractContextWindow(t *testing.T) {
	src := "a\nb\n// TODO: middle line here\nc\nd\ne\n"

	items := extract(t, NewExtractor(WithContextLines(1)), "a.ts", []byte(src))
	require.Len(t, items, 1)
	assert.Equal(t, []string{"b", "// TODO: middle line here", "c"}, items[0].Context)

	items = extract(t, NewExtractor(WithContextLines(0)), "a.ts", []byte(src))
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Context)
}

func TestExtractMaxFileSize(t *testing.T) {
	src := []byte("// TODO: too big to scan\n")
	assert.Empty(t, extract(t, NewExtractor(WithMaxFileSize(4)), "a.ts", src))
	assert.Len(t, extract(t, NewExtractor(WithMaxFileSize(0)), "a.ts", src), 1)
}

func TestLocate(t *testing.T) {
	item := Item{Line: 2, Content: "TODO: add comment about initialization"}

	line, ok := Locate([]byte("// header\n// TODO: add comment about initialization\n"), item)
	require.True(t, ok)
	assert.Equal(t, 2, line)

	line, ok = Locate([]byte("// header\n// added\n// more\n// TODO: add comment about initialization\n"), item)
	require.True(t, ok)
	assert.Equal(t, 4, line)

	_, ok = Locate([]byte("// resolved\n"), item)
	assert.False(t, ok)
}

func TestSummarize(t *testing.T) {
	items := []Item{
		{FilePath: "a.ts", Type: TypeTODO},
		{FilePath: "a.ts", Type: TypeFIXME},
		{FilePath: "b.ts", Type: TypeTODO},
	}
	s := Summarize(items, 5)
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, 5, s.FilesScanned)
	assert.Equal(t, 2, s.FilesWithTodo)
	assert.Equal(t, 2, s.ByType[string(TypeTODO)])
	assert.Equal(t, 2, s.ByFile["a.ts"])
}

func TestExtractReportsOverlongLine(t *testing.T) {
	src := "// TODO: first\nconst bundle = \"" + strings.Repeat("x", maxLineSize+1) + "\";\n// TODO: after\n"
	_, err := NewExtractor().Extract("bundle.js", []byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bundle.js")
}
