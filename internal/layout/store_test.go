package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/1broseidon/gridmux/internal/grid"
)

type recordingKiller struct {
	killed []string
}

func (k *recordingKiller) Kill(id string) { k.killed = append(k.killed, id) }

func tempStore(t *testing.T, killer SessionKiller) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "layout.json"), killer)
}

func TestFirstLoadSynthesizesDefaultLayout(t *testing.T) {
	s := tempStore(t, nil)
	s.Load()

	cells := s.Cells()
	if len(cells) != 1 {
		t.Fatalf("expected exactly one cell, got %d", len(cells))
	}
	c := cells[0]
	if c.X != 0 || c.Y != 0 || c.W != DefaultCellW || c.H != DefaultCellH {
		t.Errorf("default cell geometry = (%d,%d,%d,%d), want (0,0,%d,%d)",
			c.X, c.Y, c.W, c.H, DefaultCellW, DefaultCellH)
	}
	if len(c.Tabs) != 1 {
		t.Fatalf("expected exactly one tab, got %d", len(c.Tabs))
	}
	if c.Tabs[0].Title != "Terminal 1" {
		t.Errorf("default tab title = %q, want %q", c.Tabs[0].Title, "Terminal 1")
	}
}

func TestLoadClearsSessionIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")

	src := NewStore(path, nil)
	src.Load()
	cells := src.Cells()
	tabs := cells[0].Tabs
	tabs[0].SessionID = "stale-session"
	tabs = append(tabs, Tab{ID: "t2", Title: "Terminal 2", SessionID: "also-stale"})
	src.SetTabs(cells[0].ID, tabs)

	dst := NewStore(path, nil)
	dst.Load()
	reloaded := dst.Cells()
	if len(reloaded) == 0 {
		t.Fatal("reloaded layout is empty")
	}
	for _, c := range reloaded {
		for _, tab := range c.Tabs {
			if tab.SessionID != "" {
				t.Errorf("tab %q kept stale session id %q", tab.ID, tab.SessionID)
			}
		}
	}
}

func TestLoadCorruptBlobReinitializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, nil)
	s.Load()

	cells := s.Cells()
	if len(cells) != 1 || len(cells[0].Tabs) != 1 {
		t.Fatalf("corrupt blob should reinitialize to one cell/one tab, got %+v", cells)
	}
}

func TestSetGeometryClampsBelowMinimums(t *testing.T) {
	s := tempStore(t, nil)
	s.Load()
	id := s.Cells()[0].ID

	s.SetGeometry(id, 0, 0, 1, 0)

	c, ok := s.Cell(id)
	if !ok {
		t.Fatal("cell disappeared")
	}
	if c.W != grid.MinCellW || c.H != grid.MinCellH {
		t.Errorf("stored size = %dx%d, want clamped %dx%d", c.W, c.H, grid.MinCellW, grid.MinCellH)
	}
}

func TestLoadClampsBelowMinimumCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	blob := `[{"id":"c1","x":0,"y":0,"w":1,"h":0,"tabs":[{"id":"t1","title":"Terminal 1"}]}]`
	if err := os.WriteFile(path, []byte(blob), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore(path, nil)
	s.Load()

	c, ok := s.Cell("c1")
	if !ok {
		t.Fatal("cell c1 not loaded")
	}
	if c.W < grid.MinCellW || c.H < grid.MinCellH {
		t.Errorf("loaded size = %dx%d, below minimum %dx%d", c.W, c.H, grid.MinCellW, grid.MinCellH)
	}
}

func TestAddCellBelowMaxOccupiedRow(t *testing.T) {
	s := tempStore(t, nil)
	s.Load()

	second := s.AddCell()
	if second.X != 0 || second.Y != DefaultCellH {
		t.Errorf("second cell at (%d,%d), want (0,%d)", second.X, second.Y, DefaultCellH)
	}

	third := s.AddCell()
	if third.Y != 2*DefaultCellH {
		t.Errorf("third cell row = %d, want %d", third.Y, 2*DefaultCellH)
	}
}

func TestRemoveCellCascadesBoundSessionsOnly(t *testing.T) {
	killer := &recordingKiller{}
	s := tempStore(t, killer)
	s.Load()

	doomed := s.AddCell()
	s.SetTabs(doomed.ID, []Tab{
		{ID: "a", Title: "Terminal 1", SessionID: "sA"},
		{ID: "b", Title: "Terminal 2"},
	})
	other := s.AddCell()
	otherBefore, _ := s.Cell(other.ID)

	s.RemoveCell(doomed.ID)

	if len(killer.killed) != 1 || killer.killed[0] != "sA" {
		t.Fatalf("expected exactly one kill of sA, got %v", killer.killed)
	}
	if _, ok := s.Cell(doomed.ID); ok {
		t.Error("removed cell still present")
	}
	otherAfter, ok := s.Cell(other.ID)
	if !ok {
		t.Fatal("unrelated cell disappeared")
	}
	if otherAfter.X != otherBefore.X || otherAfter.Y != otherBefore.Y {
		t.Errorf("unrelated cell moved from (%d,%d) to (%d,%d)",
			otherBefore.X, otherBefore.Y, otherAfter.X, otherAfter.Y)
	}
}

func TestRemoveUnknownCellIsNoOp(t *testing.T) {
	killer := &recordingKiller{}
	s := tempStore(t, killer)
	s.Load()

	before := len(s.Cells())
	s.RemoveCell("does-not-exist")
	if len(s.Cells()) != before {
		t.Error("cell count changed on unknown removal")
	}
	if len(killer.killed) != 0 {
		t.Errorf("unexpected kills: %v", killer.killed)
	}
}

func TestSaveRoundTripPreservesOrderAndGeometry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")

	src := NewStore(path, nil)
	src.Load()
	src.AddCell()
	first := src.Cells()[0].ID
	src.SetGeometry(first, 2, 3, 8, 4)

	dst := NewStore(path, nil)
	dst.Load()

	cells := dst.Cells()
	if len(cells) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(cells))
	}
	if cells[0].ID != first {
		t.Error("cell order not preserved across save/load")
	}
	c := cells[0]
	if c.X != 2 || c.Y != 3 || c.W != 8 || c.H != 4 {
		t.Errorf("geometry = (%d,%d,%d,%d), want (2,3,8,4)", c.X, c.Y, c.W, c.H)
	}
}

func TestNextPosition(t *testing.T) {
	tests := []struct {
		name  string
		cells []Cell
		wantX int
		wantY int
	}{
		{"empty", nil, 0, 0},
		{"single", []Cell{{Y: 0, H: 6}}, 0, 6},
		{"tallest wins", []Cell{{Y: 0, H: 6}, {Y: 6, H: 4}, {Y: 2, H: 12}}, 0, 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := NextPosition(tt.cells)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("NextPosition = (%d,%d), want (%d,%d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}
