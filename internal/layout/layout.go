// Package layout owns the ordered list of grid cells, drives persistence of
// the layout blob, and reconstructs a session-less layout on load.
package layout

import (
	"github.com/google/uuid"
)

// Default geometry for new cells, in grid units.
const (
	DefaultCellW = 6
	DefaultCellH = 6
)

// Tab is a named slot within a cell. SessionID is empty until a terminal
// binding successfully creates a backend session; it is the foreign key
// into the session registry and never survives a restart.
type Tab struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	SessionID        string `json:"session_id,omitempty"`
	WorkingDirectory string `json:"working_directory,omitempty"`
}

// Cell is a positioned, resizable panel holding an ordered list of tabs.
// Position and size are in grid units.
type Cell struct {
	ID   string `json:"id"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
	Tabs []Tab  `json:"tabs"`
}

// NewTab creates an unbound tab with a fresh id.
func NewTab(title, workingDirectory string) Tab {
	return Tab{
		ID:               uuid.NewString(),
		Title:            title,
		WorkingDirectory: workingDirectory,
	}
}

// NextPosition computes the insertion position for a new cell: below the
// current maximum occupied row, or the origin if no cells exist.
func NextPosition(cells []Cell) (x, y int) {
	if len(cells) == 0 {
		return 0, 0
	}
	maxBottom := 0
	for _, c := range cells {
		if bottom := c.Y + c.H; bottom > maxBottom {
			maxBottom = bottom
		}
	}
	return 0, maxBottom
}
