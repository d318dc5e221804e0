// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger construction.
type Options struct {
	Level      string
	File       string // rotating JSON log file; empty disables it
	MaxSizeMB  int
	MaxBackups int
	Console    io.Writer // human-readable sink, usually stderr; nil disables it
	NoColor    bool
}

// New returns a logger writing to the console sink and, when File is set, a
// rotating JSON file. The returned closer releases the file.
func New(opts Options) (zerolog.Logger, func(), error) {
	closer := func() {}

	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	var writers []io.Writer
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.Console,
			NoColor:    opts.NoColor,
			TimeFormat: "15:04:05",
		})
	}
	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     28,
		}
		closer = func() { _ = rotating.Close() }
		writers = append(writers, rotating)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	l := zerolog.New(out).
		Hook(ContextHook{}).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}

// Setup installs a logger built from opts as the global logger.
func Setup(opts Options) (func(), error) {
	l, closer, err := New(opts)
	if err != nil {
		return closer, err
	}
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return closer, nil
}

// Component creates a new logger with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
