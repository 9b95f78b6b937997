package mcp

import (
	"context"
	"io"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/vdmctl/internal/registry"
)

const (
	ServerName    = "vdmctl"
	ServerVersion = "0.1.0"
)

// Server exposes the virtual monitor commands as MCP tools. Every tool call
// opens its own session with the driver host.
type Server struct {
	mcpServer *mcpsdk.Server
	dial      registry.Dialer
	logger    *slog.Logger
}

// NewServer creates an MCP server that reaches the driver host through dial.
func NewServer(dial registry.Dialer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		dial:   dial,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_monitors",
		Description: "List every virtual monitor registered with the driver host, sorted by ID, with its enabled state, name and modes.",
	}, s.handleListMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "add_monitor",
		Description: "Create a virtual monitor. Pass id to request a specific ID (fails if taken); otherwise the smallest unused ID is allocated. Returns the ID.",
	}, s.handleAddMonitor)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "add_modes",
		Description: "Merge modes into an existing virtual monitor. Refresh rates of a resolution that already exists are unioned.",
	}, s.handleAddModes)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "remove_mode",
		Description: "Remove a resolution, or selected refresh rates of a resolution, from a virtual monitor. Fails without changing anything if a named rate is absent.",
	}, s.handleRemoveMode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "enable_monitor",
		Description: "Enable a virtual monitor. toggled is false when it was already enabled.",
	}, s.handleEnableMonitor)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "disable_monitor",
		Description: "Disable a virtual monitor. toggled is false when it was already disabled.",
	}, s.handleDisableMonitor)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "remove_monitors",
		Description: "Remove virtual monitors by ID as one batch. If any ID is unknown, nothing is removed and the error names every unknown ID.",
	}, s.handleRemoveMonitors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "remove_all_monitors",
		Description: "Remove every virtual monitor.",
	}, s.handleRemoveAll)
}
