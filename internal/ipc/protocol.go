package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus    CommandType = "GET_STATUS"
	CommandListCells    CommandType = "LIST_CELLS"
	CommandAddCell      CommandType = "ADD_CELL"
	CommandRemoveCell   CommandType = "REMOVE_CELL"
	CommandNewTab       CommandType = "NEW_TAB"
	CommandListSessions CommandType = "LIST_SESSIONS"
	CommandWriteSession CommandType = "WRITE_SESSION"
	CommandKillSession  CommandType = "KILL_SESSION"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	CellCount     int   `json:"cell_count"`
	TabCount      int   `json:"tab_count"`
	SessionCount  int   `json:"session_count"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// TabInfo describes one tab of a cell.
type TabInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SessionID string `json:"session_id,omitempty"`
	Active    bool   `json:"active,omitempty"`
}

// CellInfo describes one grid cell.
type CellInfo struct {
	ID   string    `json:"id"`
	X    int       `json:"x"`
	Y    int       `json:"y"`
	W    int       `json:"w"`
	H    int       `json:"h"`
	Tabs []TabInfo `json:"tabs,omitempty"`
}

// CellsData represents the data returned by LIST_CELLS
type CellsData struct {
	Cells []CellInfo `json:"cells"`
}

// SessionsData represents the data returned by LIST_SESSIONS
type SessionsData struct {
	SessionIDs []string `json:"session_ids"`
}

// RemoveCellPayload represents the payload for REMOVE_CELL
type RemoveCellPayload struct {
	CellID string `json:"cell_id"`
}

// NewTabPayload represents the payload for NEW_TAB
type NewTabPayload struct {
	CellID string `json:"cell_id"`
}

// WriteSessionPayload represents the payload for WRITE_SESSION
type WriteSessionPayload struct {
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
	// Enter appends a carriage return after Data.
	Enter bool `json:"enter,omitempty"`
}

// KillSessionPayload represents the payload for KILL_SESSION
type KillSessionPayload struct {
	SessionID string `json:"session_id"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
