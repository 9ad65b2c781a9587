package grid

import "testing"

func TestResolveFullWidthCell(t *testing.T) {
	g := Geometry{UnitsX: 12, UnitsY: 12, Gap: 1}
	// canvas 121 wide: unitW = (121 - 13) / 12 = 9
	canvas := Rect{X: 0, Y: 0, Width: 121, Height: 121}

	r := g.Resolve(canvas, 0, 0, 12, 12)

	if r.X != 1 || r.Y != 1 {
		t.Errorf("origin = (%d,%d), want (1,1)", r.X, r.Y)
	}
	// 12 units of 9 plus 11 interior gaps = 119
	if r.Width != 119 || r.Height != 119 {
		t.Errorf("size = %dx%d, want 119x119", r.Width, r.Height)
	}
}

func TestResolveAdjacentCellsDoNotOverlap(t *testing.T) {
	g := Geometry{UnitsX: 12, UnitsY: 12, Gap: 1}
	canvas := Rect{X: 0, Y: 0, Width: 121, Height: 121}

	left := g.Resolve(canvas, 0, 0, 6, 6)
	right := g.Resolve(canvas, 6, 0, 6, 6)

	if left.X+left.Width >= right.X {
		t.Errorf("cells overlap: left ends at %d, right starts at %d",
			left.X+left.Width, right.X)
	}
}

func TestResolveClampsOutOfRangeCells(t *testing.T) {
	g := Geometry{UnitsX: 12, UnitsY: 12, Gap: 1}
	canvas := Rect{X: 0, Y: 0, Width: 121, Height: 121}

	tests := []struct {
		name       string
		x, y, w, h int
	}{
		{"negative position", -3, -3, 6, 6},
		{"position past range", 20, 20, 6, 6},
		{"span past range", 10, 10, 6, 6},
		{"zero span", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := g.Resolve(canvas, tt.x, tt.y, tt.w, tt.h)
			if r.Width < 1 || r.Height < 1 {
				t.Errorf("degenerate rect %+v", r)
			}
			if r.X < canvas.X || r.Y < canvas.Y {
				t.Errorf("rect %+v escapes canvas origin", r)
			}
			if r.X+r.Width > canvas.X+canvas.Width || r.Y+r.Height > canvas.Y+canvas.Height {
				t.Errorf("rect %+v escapes canvas bounds", r)
			}
		})
	}
}

func TestResolveTinyCanvasNeverDegenerate(t *testing.T) {
	g := DefaultGeometry()
	canvas := Rect{X: 0, Y: 0, Width: 10, Height: 4}

	r := g.Resolve(canvas, 0, 0, 6, 6)
	if r.Width < 1 || r.Height < 1 {
		t.Errorf("tiny canvas produced %+v", r)
	}
}

func TestClampSize(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{6, 6, 6, 6},
		{1, 6, MinCellW, 6},
		{6, 0, 6, MinCellH},
		{-1, -1, MinCellW, MinCellH},
	}
	for _, tt := range tests {
		w, h := ClampSize(tt.w, tt.h)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("ClampSize(%d,%d) = (%d,%d), want (%d,%d)",
				tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestInnerRect(t *testing.T) {
	r := InnerRect(Rect{X: 5, Y: 5, Width: 20, Height: 10})
	if r.X != 6 || r.Y != 6 || r.Width != 18 || r.Height != 8 {
		t.Errorf("inner = %+v", r)
	}

	tiny := InnerRect(Rect{X: 0, Y: 0, Width: 2, Height: 1})
	if tiny.Width < 1 || tiny.Height < 1 {
		t.Errorf("tiny inner rect degenerate: %+v", tiny)
	}
}
