// Package progress draws scan progress on stderr.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar. The zero value and a nil *Tracker are
// silent.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
	out   io.Writer
}

// Enabled reports whether stderr is a terminal worth drawing on.
func Enabled() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewSpinner creates a spinner for a scan whose file count is not known up
// front.
func NewSpinner(label string) *Tracker {
	return newSpinner(label, os.Stderr)
}

func newSpinner(label string, out io.Writer) *Tracker {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &Tracker{bar: bar, label: label, out: out}
}

// NewTracker creates a bar for total files.
func NewTracker(label string, total int) *Tracker {
	return newTracker(label, total, os.Stderr)
}

func newTracker(label string, total int, out io.Writer) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, out: out}
}

// Tick advances by one file. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t == nil || t.bar == nil {
		return
	}
	_ = t.bar.Add(1)
}

// Count returns the number of ticks so far.
func (t *Tracker) Count() int {
	if t == nil || t.bar == nil {
		return 0
	}
	return int(t.bar.State().CurrentNum)
}

// Done clears the bar without printing anything.
func (t *Tracker) Done() {
	if t == nil || t.bar == nil {
		return
	}
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// Fail clears the bar and reports err.
func (t *Tracker) Fail(err error) {
	if t == nil || t.bar == nil {
		return
	}
	t.Done()
	fmt.Fprintf(t.out, "  %s failed: %v\n", t.label, err)
}
