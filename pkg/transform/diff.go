package transform

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders a line diff of before and after: removed lines prefixed with
// "-", added lines with "+", one line of context around each change.
func Diff(name, before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	added, removed := DiffStats(diffs)
	fmt.Fprintf(&sb, "%s +%d -%d\n", name, added, removed)

	for i, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		ls := strings.Split(text, "\n")
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, l := range ls {
				sb.WriteString("- " + l + "\n")
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range ls {
				sb.WriteString("+ " + l + "\n")
			}
		case diffmatchpatch.DiffEqual:
			last := len(ls) - 1
			if i > 0 {
				sb.WriteString("  " + ls[0] + "\n")
			}
			if i < len(diffs)-1 && (i == 0 || last > 0) {
				if i > 0 && last > 1 {
					sb.WriteString("  ...\n")
				}
				sb.WriteString("  " + ls[last] + "\n")
			}
		}
	}
	return sb.String()
}

// DiffStats counts added and removed lines in line-mode diffs.
func DiffStats(diffs []diffmatchpatch.Diff) (added, removed int) {
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if !strings.HasSuffix(d.Text, "\n") && d.Text != "" {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return added, removed
}
