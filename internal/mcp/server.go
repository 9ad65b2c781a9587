// Package mcp exposes the running multiplexer to MCP clients. Every tool
// is a thin wrapper over the IPC control socket, so the server needs a
// live gridmux process and never touches multiplexer state directly.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/gridmux/internal/ipc"
)

const (
	ServerName    = "gridmux"
	ServerVersion = "0.1.0"
)

// controlClient is the IPC surface the tools need. ipc.Client implements
// it; tests substitute a fake.
type controlClient interface {
	GetStatus() (*ipc.StatusData, error)
	ListCells() ([]ipc.CellInfo, error)
	AddCell() (*ipc.CellInfo, error)
	RemoveCell(cellID string) error
	NewTab(cellID string) (*ipc.TabInfo, error)
	ListSessions() ([]string, error)
	WriteSession(sessionID, text string, enter bool) error
	KillSession(sessionID string) error
}

// Server is the MCP front-end for a running multiplexer.
type Server struct {
	mcpServer *mcpsdk.Server
	client    controlClient
}

// NewServer creates an MCP server talking to the default control socket.
func NewServer() *Server {
	return newServer(ipc.NewClient())
}

func newServer(client controlClient) *Server {
	s := &Server{client: client}
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

// Run serves MCP on stdio, blocking until the transport closes.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Report cell, tab, and session counts plus uptime for the running multiplexer.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_cells",
		Description: "List every grid cell with its geometry and tabs. Tab session_id is empty until a terminal is bound.",
	}, s.handleListCells)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "add_cell",
		Description: "Add a new cell below the existing grid. The cell opens with one tab whose terminal starts immediately.",
	}, s.handleAddCell)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "remove_cell",
		Description: "Remove a cell by id. Every tab in the cell is closed and its session terminated.",
	}, s.handleRemoveCell)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "new_tab",
		Description: "Open a new tab in an existing cell. The tab becomes active and its terminal starts immediately.",
	}, s.handleNewTab)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_sessions",
		Description: "List the ids of all live terminal sessions.",
	}, s.handleListSessions)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "send_text",
		Description: "Write text to a session's terminal. Set enter to true to submit it as a command.",
	}, s.handleSendText)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "kill_session",
		Description: "Terminate a session by id. The owning tab stays open and shows the exit notice.",
	}, s.handleKillSession)
}
