package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/winlink/internal/ipc"
	"github.com/1broseidon/winlink/internal/platform"
	"github.com/1broseidon/winlink/internal/window"
)

const (
	ServerName    = "winlink"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools call. *ipc.Client
// satisfies it.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() ([]window.Snapshot, error)
	GetWindow(id platform.Identity) (*window.Snapshot, error)
	ApplyOverride(payload ipc.OverridePayload) error
	ResetOverride(id platform.Identity, fields ...string) error
	Snap(ids ...platform.Identity) error
	Unsnap(id platform.Identity) error
	Reload() error
}

var _ Daemon = (*ipc.Client)(nil)

// Server exposes the daemon's window commands as MCP tools.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates a new MCP server that forwards to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{daemon: daemon, logger: logger}
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
		Name:        "get_status",
		Description: "Report the winlink daemon status: backend, number of managed windows, snap groups and in-flight transactions.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every window the daemon manages with its geometry, state, snap group and active overrides. Window ids are in owner/name form.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_window",
		Description: "Describe one managed window.",
	}, s.handleGetWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "snap_windows",
		Description: "Group two or more windows into one snap group so they move together. Runs as a single transaction in the daemon.",
	}, s.handleSnapWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "unsnap_window",
		Description: "Take a window out of its snap group.",
	}, s.handleUnsnapWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_override",
		Description: "Apply a temporary override (opacity, always_on_top, hidden) to a window. The application's own value is kept and restored by reset_overrides.",
	}, s.handleSetOverride)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reset_overrides",
		Description: "Restore overridden fields of a window to the values the application last set.",
	}, s.handleResetOverrides)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reload_config",
		Description: "Ask the daemon to re-read its configuration file.",
	}, s.handleReloadConfig)
}
