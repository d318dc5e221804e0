package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/sweep/internal/logging"
	"github.com/panbanda/sweep/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:      "mcp",
		Usage:     "Start MCP (Model Context Protocol) server for LLM tool integration",
		ArgsUsage: "[workspace]",
		Description: `Starts an MCP server over stdio transport that exposes sweep's scanner,
analyzers and session controller as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "sweep": {
        "command": "sweep",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - start_session             Resolve TODOs in a workspace
  - session_status            Inspect one session or list all of them
  - approve_action            Execute an action held for approval
  - list_todos                List TODO comments
  - match_todo                Match a TODO against the safe patterns
  - find_unused_imports       Unused import bindings in a file
  - remove_unused_imports     Remove them, validated and backed up
  - analyze_unused_variables  Unused variables in a file
  - find_stubs                Empty or placeholder functions
  - implement_stub            Synthesize a stub's body`,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry server.json",
				Action: runMCPManifest,
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	ws, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	cfg, _, err := loadConfig(c, ws)
	if err != nil {
		return err
	}

	// stdout carries the protocol, so logs only go to the configured file.
	closeLog, err := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	server, err := mcpserver.NewServer(version, cfg, ws)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(c)
	defer stop()
	return server.Run(ctx)
}

func runMCPManifest(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}
