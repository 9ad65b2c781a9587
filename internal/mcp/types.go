package mcp

// StatusInput is the input for the status tool.
type StatusInput struct{}

// StatusOutput is the output for the status tool.
type StatusOutput struct {
	CellCount     int   `json:"cell_count"`
	TabCount      int   `json:"tab_count"`
	SessionCount  int   `json:"session_count"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// ListCellsInput is the input for the list_cells tool.
type ListCellsInput struct{}

// TabSummary describes one tab of a cell.
type TabSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SessionID string `json:"session_id,omitempty"`
	Active    bool   `json:"active,omitempty"`
}

// CellSummary describes one grid cell and its tabs.
type CellSummary struct {
	ID   string       `json:"id"`
	X    int          `json:"x"`
	Y    int          `json:"y"`
	W    int          `json:"w"`
	H    int          `json:"h"`
	Tabs []TabSummary `json:"tabs,omitempty"`
}

// ListCellsOutput is the output for the list_cells tool.
type ListCellsOutput struct {
	Cells []CellSummary `json:"cells"`
}

// AddCellInput is the input for the add_cell tool.
type AddCellInput struct{}

// AddCellOutput is the output for the add_cell tool.
type AddCellOutput struct {
	Cell CellSummary `json:"cell"`
}

// RemoveCellInput is the input for the remove_cell tool.
type RemoveCellInput struct {
	CellID string `json:"cell_id" jsonschema:"required,Cell id to remove. All tabs and their sessions are closed."`
}

// RemoveCellOutput is the output for the remove_cell tool.
type RemoveCellOutput struct {
	Removed bool `json:"removed"`
}

// NewTabInput is the input for the new_tab tool.
type NewTabInput struct {
	CellID string `json:"cell_id" jsonschema:"required,Cell id to add the tab to"`
}

// NewTabOutput is the output for the new_tab tool.
type NewTabOutput struct {
	TabID string `json:"tab_id"`
	Title string `json:"title"`
}

// ListSessionsInput is the input for the list_sessions tool.
type ListSessionsInput struct{}

// ListSessionsOutput is the output for the list_sessions tool.
type ListSessionsOutput struct {
	Sessions []string `json:"sessions"`
}

// SendTextInput is the input for the send_text tool.
type SendTextInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session id to write to"`
	Text      string `json:"text" jsonschema:"required,Text to write to the session's terminal"`
	Enter     bool   `json:"enter,omitempty" jsonschema:"When true, a carriage return is appended after the text"`
}

// SendTextOutput is the output for the send_text tool.
type SendTextOutput struct {
	Sent bool `json:"sent"`
}

// KillSessionInput is the input for the kill_session tool.
type KillSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"required,Session id to terminate"`
}

// KillSessionOutput is the output for the kill_session tool.
type KillSessionOutput struct {
	Killed bool `json:"killed"`
}
