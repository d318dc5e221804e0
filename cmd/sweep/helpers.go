package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/sweep/internal/logging"
	"github.com/panbanda/sweep/internal/output"
	"github.com/panbanda/sweep/pkg/config"
)

// env is what every command needs once flags and config are resolved.
type env struct {
	cfg       *config.Config
	source    string
	workspace string
	out       *output.Formatter
	closers   []func()
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// getPaths returns paths from positional args, defaulting to ["."].
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// loadConfig reads --config or the first config file found under dir. A
// relative data_dir or log file is anchored at dir.
func loadConfig(c *cli.Context, dir string) (*config.Config, string, error) {
	var (
		cfg    *config.Config
		source string
		err    error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
		source = path
	} else {
		cfg, source, err = config.LoadOrDefault(dir)
	}
	if err != nil {
		return nil, source, fmt.Errorf("load config %s: %w", source, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, source, err
	}

	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(dir, cfg.DataDir)
	}
	if cfg.Log.File != "" && !filepath.IsAbs(cfg.Log.File) {
		cfg.Log.File = filepath.Join(dir, cfg.Log.File)
	}
	return cfg, source, nil
}

// setup resolves the workspace from the first positional argument (a file
// stands for its directory), then loads config, installs the logger and
// opens the output formatter.
func setup(c *cli.Context) (*env, error) {
	ws, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if info, err := os.Stat(ws); err == nil && !info.IsDir() {
		ws = filepath.Dir(ws)
	}
	return setupAt(c, ws)
}

func setupAt(c *cli.Context, ws string) (*env, error) {
	cfg, source, err := loadConfig(c, ws)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, source: source, workspace: ws}

	level := cfg.Log.Level
	if c.Bool("verbose") {
		level = "debug"
	}
	closeLog, err := logging.Setup(logging.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    os.Stderr,
		NoColor:    color.NoColor,
	})
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closeLog)

	format := cfg.Output.Format
	if f := c.String("format"); f != "" {
		format = f
	}
	colored := cfg.Output.Color && !color.NoColor
	out, err := output.NewFormatter(output.ParseFormat(format), c.String("output"), colored)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.closers = append(e.closers, func() { _ = out.Close() })
	e.out = out
	return e, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// emit writes data as-is for structured formats and view otherwise.
func emit(out *output.Formatter, data any, view output.Renderable) error {
	if out.Structured() {
		return out.Output(data)
	}
	return out.Output(view)
}

// relPath shows path relative to the workspace when it lies inside it.
func relPath(ws, path string) string {
	rel, err := filepath.Rel(ws, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.ToSlash(rel)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
