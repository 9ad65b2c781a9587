package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/gridmux/internal/actionlog"
	"github.com/1broseidon/gridmux/internal/ipc"
	"github.com/1broseidon/gridmux/internal/layout"
)

// ipcCallMsg carries one IPC handler body onto the Update loop. The
// returned command is scheduled like any other loop-originated command.
type ipcCallMsg struct {
	run func(a *App) tea.Cmd
}

// ipcGateway implements ipc.Handler by marshalling every call onto the
// Update loop and blocking the IPC connection goroutine until the loop
// has run it. Handlers therefore see the same single-threaded state as
// keystrokes do.
type ipcGateway struct {
	send func(tea.Msg)
}

// IPCHandler exposes the gateway for wiring into an ipc.Server.
func (a *App) IPCHandler() ipc.Handler { return &a.ipc }

// SetProgram connects the gateway to the running program. IPC calls made
// before this fail cleanly.
func (a *App) SetProgram(p *tea.Program) {
	a.ipc.send = p.Send
}

// call runs fn on the Update loop and waits for it to finish.
func (g *ipcGateway) call(fn func(a *App) tea.Cmd) error {
	if g.send == nil {
		return fmt.Errorf("multiplexer not running")
	}
	done := make(chan struct{})
	g.send(ipcCallMsg{run: func(a *App) tea.Cmd {
		defer close(done)
		return fn(a)
	}})
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("event loop did not respond")
	}
}

func (g *ipcGateway) Status() ipc.StatusData {
	var out ipc.StatusData
	g.call(func(a *App) tea.Cmd {
		tabCount := 0
		for _, ctrl := range a.controllers {
			tabCount += len(ctrl.Tabs())
		}
		if a.popoutTab != nil {
			tabCount++
		}
		out = ipc.StatusData{
			CellCount:     len(a.store.Cells()),
			TabCount:      tabCount,
			SessionCount:  a.registry.Count(),
			UptimeSeconds: int64(time.Since(a.started).Seconds()),
		}
		return nil
	})
	return out
}

func (g *ipcGateway) Cells() []ipc.CellInfo {
	var out []ipc.CellInfo
	g.call(func(a *App) tea.Cmd {
		for _, cell := range a.store.Cells() {
			out = append(out, cellInfo(a, cell))
		}
		return nil
	})
	return out
}

func cellInfo(a *App, cell layout.Cell) ipc.CellInfo {
	info := ipc.CellInfo{ID: cell.ID, X: cell.X, Y: cell.Y, W: cell.W, H: cell.H}
	activeID := ""
	if ctrl, ok := a.controllers[cell.ID]; ok {
		activeID = ctrl.ActiveID()
	}
	for _, tab := range cell.Tabs {
		info.Tabs = append(info.Tabs, ipc.TabInfo{
			ID:        tab.ID,
			Title:     tab.Title,
			SessionID: tab.SessionID,
			Active:    tab.ID == activeID,
		})
	}
	return info
}

func (g *ipcGateway) AddCell() (ipc.CellInfo, error) {
	var out ipc.CellInfo
	err := g.call(func(a *App) tea.Cmd {
		cell := a.store.AddCell()
		a.adoptCell(cell)
		a.actions.Log(actionlog.ActionAddCell, cell.ID, "", map[string]interface{}{"via": "ipc"})

		ctrl := a.controllers[cell.ID]
		tab := ctrl.AddTab()
		a.ensureBinding(tab)
		a.applyGeometry()
		cmd := a.startTabSession(tab)

		refreshed, _ := a.store.Cell(cell.ID)
		out = cellInfo(a, refreshed)
		return cmd
	})
	return out, err
}

func (g *ipcGateway) RemoveCell(cellID string) error {
	var opErr error
	err := g.call(func(a *App) tea.Cmd {
		ctrl, ok := a.controllers[cellID]
		if !ok {
			opErr = fmt.Errorf("no cell with id %s", cellID)
			return nil
		}
		for _, tab := range ctrl.Tabs() {
			a.dropBinding(tab.ID)
		}
		delete(a.controllers, cellID)
		a.store.RemoveCell(cellID)
		a.actions.Log(actionlog.ActionRemoveCell, cellID, "", map[string]interface{}{"via": "ipc"})

		if a.focusedCell == cellID {
			a.focusedCell = ""
			if cells := a.store.Cells(); len(cells) > 0 {
				a.focusedCell = cells[0].ID
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return opErr
}

func (g *ipcGateway) NewTab(cellID string) (ipc.TabInfo, error) {
	var out ipc.TabInfo
	var opErr error
	err := g.call(func(a *App) tea.Cmd {
		ctrl, ok := a.controllers[cellID]
		if !ok {
			opErr = fmt.Errorf("no cell with id %s", cellID)
			return nil
		}
		tab := ctrl.AddTab()
		a.actions.Log(actionlog.ActionAddTab, cellID, tab.ID, map[string]interface{}{"via": "ipc"})
		a.ensureBinding(tab)
		a.applyGeometry()
		out = ipc.TabInfo{ID: tab.ID, Title: tab.Title, Active: true}
		return a.startTabSession(tab)
	})
	if err != nil {
		return out, err
	}
	return out, opErr
}

func (g *ipcGateway) Sessions() []string {
	var out []string
	g.call(func(a *App) tea.Cmd {
		out = a.registry.IDs()
		return nil
	})
	return out
}

func (g *ipcGateway) WriteSession(sessionID string, data []byte) error {
	var opErr error
	err := g.call(func(a *App) tea.Cmd {
		if !hasSession(a, sessionID) {
			opErr = fmt.Errorf("no session with id %s", sessionID)
			return nil
		}
		a.registry.Write(sessionID, data)
		return nil
	})
	if err != nil {
		return err
	}
	return opErr
}

func (g *ipcGateway) KillSession(sessionID string) error {
	var opErr error
	err := g.call(func(a *App) tea.Cmd {
		if !hasSession(a, sessionID) {
			opErr = fmt.Errorf("no session with id %s", sessionID)
			return nil
		}
		a.registry.Kill(sessionID)
		return nil
	})
	if err != nil {
		return err
	}
	return opErr
}

func hasSession(a *App, id string) bool {
	for _, known := range a.registry.IDs() {
		if known == id {
			return true
		}
	}
	return false
}
