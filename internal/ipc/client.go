package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/gridmux/internal/runtimepath"
)

// Client handles IPC communication with a running multiplexer.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// NewClientWithSocket creates a client against an explicit socket path.
func NewClientWithSocket(socketPath string) *Client {
	return &Client{socketPath: socketPath, timeout: 5 * time.Second}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gridmux: %w (is gridmux running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("gridmux error: %s", resp.Error)
	}

	return &resp, nil
}

func requestWithPayload(command CommandType, payload interface{}) (*Request, error) {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}
	return req, nil
}

// GetStatus returns the running multiplexer's status.
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}
	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status: %w", err)
	}
	return &status, nil
}

// ListCells returns the current cells with their tabs.
func (c *Client) ListCells() ([]CellInfo, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListCells})
	if err != nil {
		return nil, err
	}
	var cells CellsData
	if err := json.Unmarshal(resp.Data, &cells); err != nil {
		return nil, fmt.Errorf("failed to parse cells: %w", err)
	}
	return cells.Cells, nil
}

// AddCell adds a new grid cell.
func (c *Client) AddCell() (*CellInfo, error) {
	resp, err := c.sendRequest(&Request{Command: CommandAddCell})
	if err != nil {
		return nil, err
	}
	var cell CellInfo
	if err := json.Unmarshal(resp.Data, &cell); err != nil {
		return nil, fmt.Errorf("failed to parse cell: %w", err)
	}
	return &cell, nil
}

// RemoveCell removes a grid cell and its sessions.
func (c *Client) RemoveCell(cellID string) error {
	req, err := requestWithPayload(CommandRemoveCell, RemoveCellPayload{CellID: cellID})
	if err != nil {
		return err
	}
	_, err = c.sendRequest(req)
	return err
}

// NewTab opens a new tab in the given cell.
func (c *Client) NewTab(cellID string) (*TabInfo, error) {
	req, err := requestWithPayload(CommandNewTab, NewTabPayload{CellID: cellID})
	if err != nil {
		return nil, err
	}
	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}
	var tab TabInfo
	if err := json.Unmarshal(resp.Data, &tab); err != nil {
		return nil, fmt.Errorf("failed to parse tab: %w", err)
	}
	return &tab, nil
}

// ListSessions returns the ids of all live sessions.
func (c *Client) ListSessions() ([]string, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListSessions})
	if err != nil {
		return nil, err
	}
	var sessions SessionsData
	if err := json.Unmarshal(resp.Data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	return sessions.SessionIDs, nil
}

// WriteSession sends text to a session, optionally followed by Enter.
func (c *Client) WriteSession(sessionID, text string, enter bool) error {
	req, err := requestWithPayload(CommandWriteSession, WriteSessionPayload{
		SessionID: sessionID,
		Data:      text,
		Enter:     enter,
	})
	if err != nil {
		return err
	}
	_, err = c.sendRequest(req)
	return err
}

// KillSession terminates a session.
func (c *Client) KillSession(sessionID string) error {
	req, err := requestWithPayload(CommandKillSession, KillSessionPayload{SessionID: sessionID})
	if err != nil {
		return err
	}
	_, err = c.sendRequest(req)
	return err
}
