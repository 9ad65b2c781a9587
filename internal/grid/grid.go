// Package grid maps grid-unit cell geometry onto a character canvas. The
// drag/resize engine runs elsewhere; this package only consumes its output
// (cell position and size in grid units) and produces drawable rectangles.
package grid

// Rect is a rectangle in character cells.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Minimum cell size in grid units. The layout store refuses to shrink a
// cell below these.
const (
	MinCellW = 2
	MinCellH = 2
)

// Geometry describes the unit system of the canvas: how many grid units
// span its width and height, and the gap in characters between cells.
type Geometry struct {
	UnitsX int
	UnitsY int
	Gap    int
}

// DefaultGeometry matches the persisted layout's 12-column convention with
// a one-character gutter.
func DefaultGeometry() Geometry {
	return Geometry{UnitsX: 12, UnitsY: 12, Gap: 1}
}

// Resolve converts a cell's grid-unit geometry into a character rectangle
// inside the canvas. Cells partially outside the unit range are clamped;
// a resolved rectangle is never smaller than 1x1 so a panel can always
// paint its border.
func (g Geometry) Resolve(canvas Rect, x, y, w, h int) Rect {
	if g.UnitsX < 1 || g.UnitsY < 1 {
		return Rect{X: canvas.X, Y: canvas.Y, Width: 1, Height: 1}
	}
	x, w = clampSpan(x, w, g.UnitsX)
	y, h = clampSpan(y, h, g.UnitsY)

	// Character width of one unit, after reserving gutters between and
	// around the unit columns.
	unitW := (canvas.Width - g.Gap*(g.UnitsX+1)) / g.UnitsX
	unitH := (canvas.Height - g.Gap*(g.UnitsY+1)) / g.UnitsY

	out := Rect{
		X:      canvas.X + g.Gap + x*(unitW+g.Gap),
		Y:      canvas.Y + g.Gap + y*(unitH+g.Gap),
		Width:  w*unitW + (w-1)*g.Gap,
		Height: h*unitH + (h-1)*g.Gap,
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

// ClampSize enforces the minimum cell size in grid units.
func ClampSize(w, h int) (int, int) {
	if w < MinCellW {
		w = MinCellW
	}
	if h < MinCellH {
		h = MinCellH
	}
	return w, h
}

// clampSpan keeps [pos, pos+span) inside [0, units), preserving as much of
// the span as fits.
func clampSpan(pos, span, units int) (int, int) {
	if span < 1 {
		span = 1
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= units {
		pos = units - 1
	}
	if pos+span > units {
		span = units - pos
	}
	return pos, span
}

// InnerRect shrinks a rectangle by a one-character border on each side,
// the area available to a panel's terminal content.
func InnerRect(r Rect) Rect {
	inner := Rect{X: r.X + 1, Y: r.Y + 1, Width: r.Width - 2, Height: r.Height - 2}
	if inner.Width < 1 {
		inner.Width = 1
	}
	if inner.Height < 1 {
		inner.Height = 1
	}
	return inner
}
