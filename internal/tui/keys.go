package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/gridmux/internal/actionlog"
)

// keyMap holds the leader and the leader-prefixed command bindings.
// Pressing the leader once arms the next keystroke as a command;
// pressing it twice sends a literal ctrl+a to the session.
type keyMap struct {
	Leader     key.Binding
	NewTab     key.Binding
	CloseTab   key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	AddCell    key.Binding
	RemoveCell key.Binding
	Popout     key.Binding
	FocusPrev  key.Binding
	FocusNext  key.Binding
	Retry      key.Binding
	Quit       key.Binding
	// Reattach applies only while the detached surface is open.
	Reattach key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Leader: key.NewBinding(
			key.WithKeys("ctrl+a"),
		),
		NewTab: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "new tab"),
		),
		CloseTab: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close tab"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous tab"),
		),
		AddCell: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add cell"),
		),
		RemoveCell: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "remove cell"),
		),
		Popout: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "popout tab"),
		),
		FocusPrev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("h/left", "focus previous"),
		),
		FocusNext: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("l/right", "focus next"),
		),
		Retry: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "retry sessions"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Reattach: key.NewBinding(
			key.WithKeys("o", "b"),
			key.WithHelp("o/b", "reattach"),
		),
	}
}

// handleKey routes one keystroke: leader commands mutate the grid, all
// other input is encoded to bytes and forwarded to the focused binding.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.prefix {
		a.prefix = false
		return a.handleCommand(msg)
	}
	if key.Matches(msg, a.keys.Leader) {
		a.prefix = true
		return a, nil
	}

	if b := a.focusedBinding(); b != nil {
		b.SendKeys(encodeKey(msg))
	}
	return a, nil
}

// handleCommand executes a leader-prefixed command key.
func (a *App) handleCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Detached surface: only reattach, close, and quit apply.
	if a.popoutTab != nil {
		switch {
		case key.Matches(msg, a.keys.Reattach):
			a.reattachPopout()
			return a, a.startSessions()
		case key.Matches(msg, a.keys.CloseTab):
			a.closePopout()
		case key.Matches(msg, a.keys.Quit):
			return a.quit()
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Leader):
		// Literal leader byte for the session.
		if b := a.focusedBinding(); b != nil {
			b.SendKeys([]byte{0x01})
		}

	case key.Matches(msg, a.keys.NewTab):
		return a, a.newTab()

	case key.Matches(msg, a.keys.CloseTab):
		return a, a.closeActiveTab()

	case key.Matches(msg, a.keys.NextTab):
		return a, a.cycleTab(1)

	case key.Matches(msg, a.keys.PrevTab):
		return a, a.cycleTab(-1)

	case key.Matches(msg, a.keys.AddCell):
		return a, a.addCell()

	case key.Matches(msg, a.keys.RemoveCell):
		a.removeFocusedCell()

	case key.Matches(msg, a.keys.Popout):
		return a, a.popoutActiveTab()

	case key.Matches(msg, a.keys.FocusPrev):
		a.moveFocus(-1)

	case key.Matches(msg, a.keys.FocusNext):
		a.moveFocus(1)

	case key.Matches(msg, a.keys.Retry):
		// Explicit retry after a spawn failure.
		return a, a.startSessions()

	case key.Matches(msg, a.keys.Quit):
		return a.quit()
	}
	return a, nil
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.Shutdown()
	return a, tea.Quit
}

func (a *App) newTab() tea.Cmd {
	ctrl, ok := a.controllers[a.focusedCell]
	if !ok {
		return nil
	}
	tab := ctrl.AddTab()
	a.actions.Log(actionlog.ActionAddTab, a.focusedCell, tab.ID, nil)
	a.ensureBinding(tab)
	a.applyGeometry()
	return a.startTabSession(tab)
}

// closeActiveTab closes the focused cell's active tab. The tab promoted
// in its place may have been restored inactive and never shown, so its
// session start is kicked here too.
func (a *App) closeActiveTab() tea.Cmd {
	ctrl, ok := a.controllers[a.focusedCell]
	if !ok {
		return nil
	}
	tab, ok := ctrl.Active()
	if !ok {
		return nil
	}
	ctrl.CloseTab(tab.ID)
	a.dropBinding(tab.ID)
	a.actions.Log(actionlog.ActionCloseTab, a.focusedCell, tab.ID, nil)

	next, ok := ctrl.Active()
	if !ok {
		return nil
	}
	return a.startTabSession(next)
}

// cycleTab selects the next/previous tab. Selecting a tab restored from
// disk may be its first time on screen, so its session starts now.
func (a *App) cycleTab(dir int) tea.Cmd {
	ctrl, ok := a.controllers[a.focusedCell]
	if !ok {
		return nil
	}
	ts := ctrl.Tabs()
	if len(ts) < 2 {
		return nil
	}
	active := ctrl.ActiveID()
	for i, tab := range ts {
		if tab.ID == active {
			next := (i + dir + len(ts)) % len(ts)
			ctrl.SelectTab(ts[next].ID)
			a.actions.Log(actionlog.ActionSelectTab, a.focusedCell, ts[next].ID, nil)
			return a.startTabSession(ts[next])
		}
	}
	return nil
}

func (a *App) addCell() tea.Cmd {
	cell := a.store.AddCell()
	a.adoptCell(cell)
	a.focusedCell = cell.ID
	a.actions.Log(actionlog.ActionAddCell, cell.ID, "", nil)

	ctrl := a.controllers[cell.ID]
	tab := ctrl.AddTab()
	a.ensureBinding(tab)
	a.applyGeometry()
	return a.startTabSession(tab)
}

func (a *App) removeFocusedCell() {
	cellID := a.focusedCell
	ctrl, ok := a.controllers[cellID]
	if !ok {
		return
	}
	for _, tab := range ctrl.Tabs() {
		a.dropBinding(tab.ID)
	}
	delete(a.controllers, cellID)
	a.store.RemoveCell(cellID)
	a.actions.Log(actionlog.ActionRemoveCell, cellID, "", nil)

	if cells := a.store.Cells(); len(cells) > 0 {
		a.focusedCell = cells[0].ID
	} else {
		a.focusedCell = ""
	}
}

func (a *App) popoutActiveTab() tea.Cmd {
	ctrl, ok := a.controllers[a.focusedCell]
	if !ok {
		return nil
	}
	tab, ok := ctrl.Active()
	if !ok {
		return nil
	}
	if err := a.coordinator.Popout(ctrl, tab.ID); err != nil {
		return nil
	}
	a.actions.Log(actionlog.ActionPopout, a.focusedCell, tab.ID, nil)
	a.applyGeometry()
	return a.startSessions()
}

// reattachPopout returns the detached tab to the focused cell.
func (a *App) reattachPopout() {
	if a.popoutTab == nil {
		return
	}
	tab := *a.popoutTab
	a.popoutTab = nil

	ctrl, ok := a.controllers[a.focusedCell]
	if !ok {
		if cells := a.store.Cells(); len(cells) > 0 {
			a.focusedCell = cells[0].ID
			ctrl = a.controllers[a.focusedCell]
		}
	}
	if ctrl != nil {
		ctrl.Restore(tab)
	}
	a.applyGeometry()
}

// closePopout closes the detached tab and its session.
func (a *App) closePopout() {
	if a.popoutTab == nil {
		return
	}
	tab := *a.popoutTab
	a.popoutTab = nil
	if tab.SessionID != "" {
		a.registry.Kill(tab.SessionID)
	}
	a.dropBinding(tab.ID)
	a.actions.Log(actionlog.ActionCloseTab, "", tab.ID, map[string]interface{}{"surface": "popout"})
	a.applyGeometry()
}

func (a *App) dropBinding(tabID string) {
	if b, ok := a.bindings[tabID]; ok {
		b.Close()
		delete(a.bindings, tabID)
	}
}

// moveFocus shifts input focus to the previous/next cell in layout order.
func (a *App) moveFocus(dir int) {
	cells := a.store.Cells()
	if len(cells) == 0 {
		return
	}
	idx := 0
	for i, c := range cells {
		if c.ID == a.focusedCell {
			idx = i
			break
		}
	}
	idx = (idx + dir + len(cells)) % len(cells)
	a.focusedCell = cells[idx].ID
}

// encodeKey converts a bubbletea key message into the byte sequence a
// shell expects on its PTY.
func encodeKey(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyRunes:
		return []byte(string(msg.Runes))
	case tea.KeySpace:
		return []byte{' '}
	case tea.KeyEnter:
		return []byte{'\r'}
	case tea.KeyTab:
		return []byte{'\t'}
	case tea.KeyShiftTab:
		return []byte("\x1b[Z")
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyDelete:
		return []byte("\x1b[3~")
	case tea.KeyEsc:
		return []byte{0x1b}
	case tea.KeyUp:
		return []byte("\x1b[A")
	case tea.KeyDown:
		return []byte("\x1b[B")
	case tea.KeyRight:
		return []byte("\x1b[C")
	case tea.KeyLeft:
		return []byte("\x1b[D")
	case tea.KeyHome:
		return []byte("\x1b[H")
	case tea.KeyEnd:
		return []byte("\x1b[F")
	case tea.KeyPgUp:
		return []byte("\x1b[5~")
	case tea.KeyPgDown:
		return []byte("\x1b[6~")
	case tea.KeyCtrlA:
		return []byte{0x01}
	case tea.KeyCtrlB:
		return []byte{0x02}
	case tea.KeyCtrlC:
		return []byte{0x03}
	case tea.KeyCtrlD:
		return []byte{0x04}
	case tea.KeyCtrlE:
		return []byte{0x05}
	case tea.KeyCtrlF:
		return []byte{0x06}
	case tea.KeyCtrlG:
		return []byte{0x07}
	case tea.KeyCtrlK:
		return []byte{0x0b}
	case tea.KeyCtrlL:
		return []byte{0x0c}
	case tea.KeyCtrlN:
		return []byte{0x0e}
	case tea.KeyCtrlO:
		return []byte{0x0f}
	case tea.KeyCtrlP:
		return []byte{0x10}
	case tea.KeyCtrlQ:
		return []byte{0x11}
	case tea.KeyCtrlR:
		return []byte{0x12}
	case tea.KeyCtrlS:
		return []byte{0x13}
	case tea.KeyCtrlT:
		return []byte{0x14}
	case tea.KeyCtrlU:
		return []byte{0x15}
	case tea.KeyCtrlV:
		return []byte{0x16}
	case tea.KeyCtrlW:
		return []byte{0x17}
	case tea.KeyCtrlX:
		return []byte{0x18}
	case tea.KeyCtrlY:
		return []byte{0x19}
	case tea.KeyCtrlZ:
		return []byte{0x1a}
	}
	return nil
}
