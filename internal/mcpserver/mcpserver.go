// Package mcpserver exposes sweep's scanner, analyzers and session
// controller as Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/sweep/pkg/config"
	"github.com/panbanda/sweep/pkg/session"
)

// Server wraps the MCP server and the session controller its tools drive.
type Server struct {
	server    *mcp.Server
	cfg       *config.Config
	sessions  *session.Controller
	workspace string
}

// NewServer creates an MCP server with every sweep tool registered.
// Relative tool paths resolve against workspace.
func NewServer(version string, cfg *config.Config, workspace string) (*Server, error) {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if workspace == "" {
		workspace = "."
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, err
	}
	sessions, err := session.New(cfg)
	if err != nil {
		return nil, err
	}

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "sweep",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, cfg: cfg, sessions: sessions, workspace: abs}
	s.registerTools()
	s.registerPrompts()
	return s, nil
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_session",
		Description: describeStartSession(),
	}, s.handleStartSession)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_status",
		Description: describeSessionStatus(),
	}, s.handleSessionStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "approve_action",
		Description: describeApproveAction(),
	}, s.handleApproveAction)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_todos",
		Description: describeListTodos(),
	}, s.handleListTodos)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "match_todo",
		Description: describeMatchTodo(),
	}, s.handleMatchTodo)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_unused_imports",
		Description: describeFindUnusedImports(),
	}, s.handleFindUnusedImports)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_unused_imports",
		Description: describeRemoveUnusedImports(),
	}, s.handleRemoveUnusedImports)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_unused_variables",
		Description: describeAnalyzeUnusedVariables(),
	}, s.handleAnalyzeUnusedVariables)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_stubs",
		Description: describeFindStubs(),
	}, s.handleFindStubs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "implement_stub",
		Description: describeImplementStub(),
	}, s.handleImplementStub)
}
