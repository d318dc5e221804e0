// Package output renders command results as text tables, JSON, YAML,
// Markdown or TOON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	toon "github.com/toon-format/toon-go"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

var formatNames = map[string]Format{
	"text":     FormatText,
	"json":     FormatJSON,
	"yaml":     FormatYAML,
	"yml":      FormatYAML,
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"toon":     FormatTOON,
}

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	if f, ok := formatNames[strings.ToLower(s)]; ok {
		return f
	}
	return FormatText
}

type encoder func(w io.Writer, data any) error

// encoders covers the machine-readable formats.
var encoders = map[Format]encoder{
	FormatJSON: encodeJSON,
	FormatYAML: encodeYAML,
	FormatTOON: encodeTOON,
}

// Renderable is a view that has a human layout besides its data.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns what the structured formats serialize.
	RenderData() any
}

// Formatter writes command results to stdout or a file.
type Formatter struct {
	format  Format
	writer  io.Writer
	file    *os.File
	colored bool
}

// NewFormatter creates a formatter writing to stdout, or to the file at
// output when it is set. File output is never colored.
func NewFormatter(format Format, output string, colored bool) (*Formatter, error) {
	if output == "" {
		return NewWriterFormatter(format, os.Stdout, colored), nil
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, err
	}
	return &Formatter{format: format, writer: f, file: f}, nil
}

// NewWriterFormatter creates a formatter over an arbitrary writer.
func NewWriterFormatter(format Format, w io.Writer, colored bool) *Formatter {
	return &Formatter{format: format, writer: w, colored: colored}
}

// Close closes the output file, if any.
func (f *Formatter) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}

// Writer returns the underlying writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// Structured reports whether the format is meant for machines.
func (f *Formatter) Structured() bool {
	_, ok := encoders[f.format]
	return ok
}

// Output writes data in the configured format. Plain values have no text
// layout and are written as JSON in text mode.
func (f *Formatter) Output(data any) error {
	if enc, ok := encoders[f.format]; ok {
		if r, isView := data.(Renderable); isView {
			data = r.RenderData()
		}
		return enc(f.writer, data)
	}

	r, isView := data.(Renderable)
	switch {
	case isView && f.format == FormatMarkdown:
		return r.RenderMarkdown(f.writer)
	case isView:
		return r.RenderText(f.writer, f.colored)
	case f.format == FormatMarkdown:
		fmt.Fprintln(f.writer, "```json")
		if err := encodeJSON(f.writer, data); err != nil {
			return err
		}
		_, err := fmt.Fprintln(f.writer, "```")
		return err
	default:
		return encodeJSON(f.writer, data)
	}
}

func encodeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// encodeYAML goes through JSON first so that json struct tags, not Go field
// names, become the YAML keys.
func encodeYAML(w io.Writer, data any) error {
	generic, err := toGeneric(data)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func encodeTOON(w io.Writer, data any) error {
	generic, err := toGeneric(data)
	if err != nil {
		return err
	}
	out, err := toon.Marshal(generic, toon.WithIndent(2))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func toGeneric(data any) (any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var generic any
	err = json.Unmarshal(raw, &generic)
	return generic, err
}

// Success prints a confirmation line.
func (f *Formatter) Success(format string, args ...any) {
	f.say(color.FgGreen, "", format, args)
}

// Warning prints a non-fatal problem.
func (f *Formatter) Warning(format string, args ...any) {
	f.say(color.FgYellow, "WARNING: ", format, args)
}

func (f *Formatter) Error(format string, args ...any) {
	f.say(color.FgRed, "ERROR: ", format, args)
}

// say colors the line when enabled and falls back to a textual prefix
// otherwise.
func (f *Formatter) say(attr color.Attribute, prefix, format string, args []any) {
	msg := fmt.Sprintf(format, args...)
	if f.colored {
		color.New(attr).Fprintln(f.writer, msg)
		return
	}
	fmt.Fprintln(f.writer, prefix+msg)
}
