package layout

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/1broseidon/gridmux/internal/grid"
)

// SessionKiller is the subset of the session registry the store needs to
// cascade session teardown when a cell is removed.
type SessionKiller interface {
	Kill(id string)
}

// Store owns the ordered cell list and its single durable blob. The blob
// has one writer (the running process) and is read once at startup.
type Store struct {
	path   string
	killer SessionKiller
	cells  []Cell
}

// NewStore creates a store persisting to path. killer may be nil when no
// session cascade is wanted (load-only tooling).
func NewStore(path string, killer SessionKiller) *Store {
	return &Store{path: path, killer: killer}
}

// DefaultPath returns the layout blob location under the user config dir.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "gridmux", "layout.json"), nil
}

// Load reads the persisted blob. Session ids from a previous process
// lifetime are never valid, so every tab's SessionID is cleared
// unconditionally. A missing, corrupt, or empty blob reinitializes the
// layout with one default cell holding one default tab; corruption is
// logged, never propagated.
func (s *Store) Load() {
	s.cells = nil

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("layout: failed to read %s: %v", s.path, err)
		}
	} else {
		var cells []Cell
		if err := json.Unmarshal(data, &cells); err != nil {
			log.Printf("layout: discarding corrupt blob %s: %v", s.path, err)
		} else {
			s.cells = cells
		}
	}

	for i := range s.cells {
		s.cells[i].W, s.cells[i].H = grid.ClampSize(s.cells[i].W, s.cells[i].H)
		for j := range s.cells[i].Tabs {
			s.cells[i].Tabs[j].SessionID = ""
		}
	}

	if len(s.cells) == 0 {
		s.cells = []Cell{defaultCell()}
	}
}

func defaultCell() Cell {
	return Cell{
		ID:   uuid.NewString(),
		X:    0,
		Y:    0,
		W:    DefaultCellW,
		H:    DefaultCellH,
		Tabs: []Tab{NewTab("Terminal 1", "")},
	}
}

// Cells returns a copy of the ordered cell list.
func (s *Store) Cells() []Cell {
	out := make([]Cell, len(s.cells))
	copy(out, s.cells)
	return out
}

// Cell returns the cell with the given id.
func (s *Store) Cell(id string) (Cell, bool) {
	for _, c := range s.cells {
		if c.ID == id {
			return c, true
		}
	}
	return Cell{}, false
}

// AddCell appends a new empty cell below the current maximum occupied row
// and persists.
func (s *Store) AddCell() Cell {
	x, y := NextPosition(s.cells)
	c := Cell{
		ID: uuid.NewString(),
		X:  x,
		Y:  y,
		W:  DefaultCellW,
		H:  DefaultCellH,
	}
	s.cells = append(s.cells, c)
	s.persist()
	return c
}

// RemoveCell removes the cell with the given id, cascading a kill of every
// bound session among its tabs, and persists. Unknown ids are ignored.
func (s *Store) RemoveCell(id string) {
	for i, c := range s.cells {
		if c.ID != id {
			continue
		}
		if s.killer != nil {
			for _, tab := range c.Tabs {
				if tab.SessionID != "" {
					s.killer.Kill(tab.SessionID)
				}
			}
		}
		s.cells = append(s.cells[:i], s.cells[i+1:]...)
		s.persist()
		return
	}
}

// SetTabs replaces a cell's tab list and persists. This is the integration
// point where tab controller mutations become durable.
func (s *Store) SetTabs(cellID string, tabs []Tab) {
	for i := range s.cells {
		if s.cells[i].ID != cellID {
			continue
		}
		s.cells[i].Tabs = make([]Tab, len(tabs))
		copy(s.cells[i].Tabs, tabs)
		s.persist()
		return
	}
}

// SetGeometry updates a cell's position and size (the grid engine's
// collision response output) and persists. Sizes below the grid minimums
// are clamped, never stored.
func (s *Store) SetGeometry(cellID string, x, y, w, h int) {
	w, h = grid.ClampSize(w, h)
	for i := range s.cells {
		if s.cells[i].ID != cellID {
			continue
		}
		s.cells[i].X, s.cells[i].Y = x, y
		s.cells[i].W, s.cells[i].H = w, h
		s.persist()
		return
	}
}

// Save serializes the full ordered cell list, session ids included as-is,
// and writes one blob to durable storage.
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create layout directory: %w", err)
	}
	data, err := json.MarshalIndent(s.cells, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write layout: %w", err)
	}
	return nil
}

func (s *Store) persist() {
	if err := s.Save(); err != nil {
		log.Printf("layout: %v", err)
	}
}
