package todo

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultContextLines is the number of lines captured on each side of a TODO.
const DefaultContextLines = 3

// Extractor scans comment lines for TODO, FIXME, HACK and NOTE markers.
type Extractor struct {
	contextLines int
	maxFileSize  int64
}

// Option is a functional option for configuring Extractor.
type Option func(*Extractor)

// WithContextLines sets how many surrounding lines are captured per item.
func WithContextLines(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.contextLines = n
		}
	}
}

// WithMaxFileSize skips content larger than maxSize bytes (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(e *Extractor) {
		e.maxFileSize = maxSize
	}
}

// NewExtractor creates an extractor with default options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{contextLines: DefaultContextLines}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// markerRegex matches an upper-case marker with an optional owner tag and colon.
var markerRegex = regexp.MustCompile(`(?:^|[^A-Za-z0-9_])(TODO|FIXME|HACK|NOTE)\b(?:\([^)]*\))?(:?)`)

// ignoreDirective suppresses extraction on a line.
const ignoreDirective = "sweep:ignore"

// Extract returns the TODO items in content in line order.
func (e *Extractor) Extract(path string, content []byte) ([]Item, error) {
	if e.maxFileSize > 0 && int64(len(content)) > e.maxFileSize {
		return nil, nil
	}

	lines, err := splitLines(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	seen := make(map[string]int)
	var items []Item

	for idx, line := range lines {
		start := commentStart(line)
		if start < 0 || strings.Contains(line, ignoreDirective) {
			continue
		}

		comment := line[start:]
		loc := markerRegex.FindStringSubmatchIndex(comment)
		if loc == nil {
			continue
		}
		markerStart := loc[2]
		marker := Type(comment[loc[2]:loc[3]])
		hasColon := loc[5] > loc[4]

		text := cleanCommentText(comment[markerStart:])
		description := strings.TrimSpace(comment[loc[1]:])
		description = cleanCommentText(description)

		occurrence := seen[text]
		seen[text]++

		items = append(items, Item{
			ID:         fingerprint(path, text, occurrence),
			FilePath:   path,
			Line:       idx + 1,
			Column:     start + markerStart + 1,
			Content:    text,
			Type:       marker,
			Confidence: score(marker, hasColon, description),
			Context:    contextWindow(lines, idx, e.contextLines),
		})
	}

	return items, nil
}

// commentStart returns the byte index where a comment begins on the line, or -1.
func commentStart(line string) int {
	trimmed := strings.TrimLeft(line, " \t")
	indent := len(line) - len(trimmed)
	if strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "//") {
		return indent
	}

	best := -1
	for _, delim := range []string{"//", "/*"} {
		offset := 0
		for {
			i := strings.Index(line[offset:], delim)
			if i < 0 {
				break
			}
			pos := offset + i
			// skip URL schemes like https://
			if delim == "//" && pos > 0 && line[pos-1] == ':' {
				offset = pos + 2
				continue
			}
			if insideString(line[:pos]) {
				offset = pos + 2
				continue
			}
			if best < 0 || pos < best {
				best = pos
			}
			break
		}
	}
	return best
}

// insideString reports whether prefix leaves an unterminated quote open.
func insideString(prefix string) bool {
	var quote rune
	escaped := false
	for _, r := range prefix {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\'' || r == '`'):
			quote = r
		}
	}
	return quote != 0
}

// cleanCommentText strips block-comment terminators and JSX wrappers.
func cleanCommentText(s string) string {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"*/}", "*/", "-->"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	return s
}

// score pre-rates how actionable a comment looks.
func score(t Type, hasColon bool, description string) float64 {
	conf := t.Weight()
	if hasColon {
		conf += 0.1
	}
	switch n := len(description); {
	case n == 0:
		conf -= 0.3
	case n < 10:
		conf -= 0.2
	}
	conf = math.Max(0.1, math.Min(1, conf))
	return math.Round(conf*100) / 100
}

func contextWindow(lines []string, idx, n int) []string {
	if n <= 0 {
		return nil
	}
	lo := max(0, idx-n)
	hi := min(len(lines), idx+n+1)
	window := make([]string, hi-lo)
	copy(window, lines[lo:hi])
	return window
}

// maxLineSize bounds a single source line; minified bundles beyond it are
// reported rather than silently truncated.
const maxLineSize = 4 * 1024 * 1024

func splitLines(content []byte) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// fingerprint is a stable ID for a TODO: path, text and occurrence number of
// that text within the file. It survives line shifts from earlier edits.
func fingerprint(path, text string, occurrence int) string {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strings.TrimSpace(text))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.Itoa(occurrence))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Locate finds the current 1-based line of item in content. Earlier edits may
// have shifted it, so the occurrence nearest the recorded line wins.
func Locate(content []byte, item Item) (int, bool) {
	lines, err := splitLines(content)
	if err != nil {
		return 0, false
	}
	best, bestDist := 0, math.MaxInt
	for i, line := range lines {
		if !strings.Contains(line, item.Content) {
			continue
		}
		dist := i + 1 - item.Line
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist = i+1, dist
		}
	}
	return best, best > 0
}
