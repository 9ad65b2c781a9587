package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/1broseidon/gridmux/internal/grid"
	"github.com/1broseidon/gridmux/internal/layout"
	"github.com/1broseidon/gridmux/internal/tabs"
)

var (
	borderStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	focusedBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("39"))
	tabStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeTabStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	noticeStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// View renders the whole canvas: the popout surface when one is open,
// otherwise the cell grid with a one-line status bar.
func (a *App) View() string {
	if a.width == 0 || a.height == 0 {
		return ""
	}
	if a.popoutTab != nil {
		return a.viewPopout()
	}

	canvas := grid.Rect{X: 0, Y: 0, Width: a.width, Height: a.height - 1}
	var rows []string
	for _, rowCells := range a.cellRows() {
		var boxes []string
		for _, cell := range rowCells {
			boxes = append(boxes, a.renderCell(cell, canvas))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	body := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return body + "\n" + a.statusBar()
}

// cellRows groups cells into visual rows by their grid Y, ordered top to
// bottom and left to right.
func (a *App) cellRows() [][]layout.Cell {
	cells := a.store.Cells()
	byRow := make(map[int][]layout.Cell)
	var ys []int
	for _, c := range cells {
		if _, ok := byRow[c.Y]; !ok {
			ys = append(ys, c.Y)
		}
		byRow[c.Y] = append(byRow[c.Y], c)
	}
	sort.Ints(ys)

	out := make([][]layout.Cell, 0, len(ys))
	for _, y := range ys {
		row := byRow[y]
		sort.Slice(row, func(i, j int) bool { return row[i].X < row[j].X })
		out = append(out, row)
	}
	return out
}

// renderCell draws one bordered panel: tab bar, then the active binding's
// screen cropped to the panel interior.
func (a *App) renderCell(cell layout.Cell, canvas grid.Rect) string {
	rect := a.geometry.Resolve(canvas, cell.X, cell.Y, cell.W, cell.H)
	inner := grid.InnerRect(rect)

	ctrl := a.controllers[cell.ID]
	content := a.cellContent(ctrl, inner.Width, inner.Height-1)

	style := borderStyle
	if cell.ID == a.focusedCell {
		style = focusedBorderStyle
	}
	return style.Width(inner.Width).Height(inner.Height).
		Render(a.tabBar(ctrl, inner.Width) + "\n" + content)
}

func (a *App) tabBar(ctrl *tabs.Controller, width int) string {
	if ctrl == nil {
		return ""
	}
	var parts []string
	active := ctrl.ActiveID()
	for _, tab := range ctrl.Tabs() {
		if tab.ID == active {
			parts = append(parts, activeTabStyle.Render("["+tab.Title+"]"))
		} else {
			parts = append(parts, tabStyle.Render(" "+tab.Title+" "))
		}
	}
	return ansi.Truncate(strings.Join(parts, ""), width, "…")
}

// cellContent returns the active binding's screen fitted to the given
// area; the inline notice replaces the bottom line when set.
func (a *App) cellContent(ctrl *tabs.Controller, width, height int) string {
	if ctrl == nil || height < 1 {
		return ""
	}
	tab, ok := ctrl.Active()
	if !ok {
		return tabStyle.Render("(no tabs)")
	}
	b := a.bindings[tab.ID]
	if b == nil {
		return ""
	}
	return fitScreen(b.Render(), b.Notice(), width, height)
}

func (a *App) viewPopout() string {
	tab := a.popoutTab
	b := a.bindings[tab.ID]
	rows, cols := a.popoutInnerSize()

	var content string
	if b != nil {
		content = fitScreen(b.Render(), b.Notice(), cols, rows)
	}
	title := activeTabStyle.Render("["+tab.Title+"]") +
		statusStyle.Render("  detached: C-a o reattach, C-a x close")
	box := focusedBorderStyle.Width(cols).Height(rows + 1).
		Render(ansi.Truncate(title, cols, "…") + "\n" + content)
	return box + "\n" + a.statusBar()
}

// fitScreen crops emulator output to width x height and overlays the
// notice, if any, on the last line.
func fitScreen(screen, notice string, width, height int) string {
	lines := strings.Split(strings.ReplaceAll(screen, "\r\n", "\n"), "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i := range lines {
		lines[i] = ansi.Truncate(lines[i], width, "")
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	if notice != "" {
		lines[len(lines)-1] = ansi.Truncate(noticeStyle.Render(notice), width, "…")
	}
	return strings.Join(lines, "\n")
}

func (a *App) statusBar() string {
	status := "gridmux  C-a c:new-tab x:close n/p:cycle a:add-cell r:remove-cell o:popout h/l:focus q:quit"
	return ansi.Truncate(statusStyle.Render(status), a.width, "")
}
