package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/gridmux/internal/ipc"
)

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("failed to query multiplexer: %w", err)
	}
	return nil, StatusOutput{
		CellCount:     status.CellCount,
		TabCount:      status.TabCount,
		SessionCount:  status.SessionCount,
		UptimeSeconds: status.UptimeSeconds,
	}, nil
}

func (s *Server) handleListCells(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListCellsInput) (*mcpsdk.CallToolResult, ListCellsOutput, error) {
	cells, err := s.client.ListCells()
	if err != nil {
		return nil, ListCellsOutput{}, fmt.Errorf("failed to list cells: %w", err)
	}
	out := ListCellsOutput{Cells: make([]CellSummary, 0, len(cells))}
	for _, c := range cells {
		out.Cells = append(out.Cells, cellSummary(c))
	}
	return nil, out, nil
}

func cellSummary(c ipc.CellInfo) CellSummary {
	sum := CellSummary{ID: c.ID, X: c.X, Y: c.Y, W: c.W, H: c.H}
	for _, t := range c.Tabs {
		sum.Tabs = append(sum.Tabs, TabSummary{
			ID:        t.ID,
			Title:     t.Title,
			SessionID: t.SessionID,
			Active:    t.Active,
		})
	}
	return sum
}

func (s *Server) handleAddCell(_ context.Context, _ *mcpsdk.CallToolRequest, _ AddCellInput) (*mcpsdk.CallToolResult, AddCellOutput, error) {
	cell, err := s.client.AddCell()
	if err != nil {
		return nil, AddCellOutput{}, fmt.Errorf("failed to add cell: %w", err)
	}
	return nil, AddCellOutput{Cell: cellSummary(*cell)}, nil
}

func (s *Server) handleRemoveCell(_ context.Context, _ *mcpsdk.CallToolRequest, args RemoveCellInput) (*mcpsdk.CallToolResult, RemoveCellOutput, error) {
	if args.CellID == "" {
		return nil, RemoveCellOutput{}, fmt.Errorf("cell_id is required")
	}
	if err := s.client.RemoveCell(args.CellID); err != nil {
		return nil, RemoveCellOutput{}, fmt.Errorf("failed to remove cell: %w", err)
	}
	return nil, RemoveCellOutput{Removed: true}, nil
}

func (s *Server) handleNewTab(_ context.Context, _ *mcpsdk.CallToolRequest, args NewTabInput) (*mcpsdk.CallToolResult, NewTabOutput, error) {
	if args.CellID == "" {
		return nil, NewTabOutput{}, fmt.Errorf("cell_id is required")
	}
	tab, err := s.client.NewTab(args.CellID)
	if err != nil {
		return nil, NewTabOutput{}, fmt.Errorf("failed to open tab: %w", err)
	}
	return nil, NewTabOutput{TabID: tab.ID, Title: tab.Title}, nil
}

func (s *Server) handleListSessions(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListSessionsInput) (*mcpsdk.CallToolResult, ListSessionsOutput, error) {
	sessions, err := s.client.ListSessions()
	if err != nil {
		return nil, ListSessionsOutput{}, fmt.Errorf("failed to list sessions: %w", err)
	}
	return nil, ListSessionsOutput{Sessions: sessions}, nil
}

func (s *Server) handleSendText(_ context.Context, _ *mcpsdk.CallToolRequest, args SendTextInput) (*mcpsdk.CallToolResult, SendTextOutput, error) {
	if args.SessionID == "" {
		return nil, SendTextOutput{}, fmt.Errorf("session_id is required")
	}
	if err := s.client.WriteSession(args.SessionID, args.Text, args.Enter); err != nil {
		return nil, SendTextOutput{}, fmt.Errorf("failed to send text: %w", err)
	}
	return nil, SendTextOutput{Sent: true}, nil
}

func (s *Server) handleKillSession(_ context.Context, _ *mcpsdk.CallToolRequest, args KillSessionInput) (*mcpsdk.CallToolResult, KillSessionOutput, error) {
	if args.SessionID == "" {
		return nil, KillSessionOutput{}, fmt.Errorf("session_id is required")
	}
	if err := s.client.KillSession(args.SessionID); err != nil {
		return nil, KillSessionOutput{}, fmt.Errorf("failed to kill session: %w", err)
	}
	return nil, KillSessionOutput{Killed: true}, nil
}
