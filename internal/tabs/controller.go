// Package tabs manages the ordered tab list of a single grid cell: active
// tab selection, tab creation and closure, and detach for popout.
package tabs

import (
	"fmt"

	"github.com/1broseidon/gridmux/internal/layout"
)

// Killer is the subset of the session registry a controller needs when
// closing a tab with a bound session.
type Killer interface {
	Kill(id string)
}

// Callbacks connect a controller to its owners. TabsChanged feeds the
// layout store so mutations become durable; Focus asks the UI to move
// input focus to a tab's binding. Either may be nil.
type Callbacks struct {
	TabsChanged func(cellID string, tabs []layout.Tab)
	Focus       func(tabID string)
}

// Controller owns one cell's tab list. There is exactly one controller per
// live cell, looked up through the app's cellID -> controller map.
type Controller struct {
	cellID   string
	workDir  string
	killer   Killer
	cb       Callbacks
	tabs     []layout.Tab
	activeID string
}

// New creates a controller seeded with a cell's persisted tabs. The first
// tab, if any, becomes active.
func New(cellID, workDir string, tabs []layout.Tab, killer Killer, cb Callbacks) *Controller {
	c := &Controller{
		cellID:  cellID,
		workDir: workDir,
		killer:  killer,
		cb:      cb,
		tabs:    make([]layout.Tab, len(tabs)),
	}
	copy(c.tabs, tabs)
	if len(c.tabs) > 0 {
		c.activeID = c.tabs[0].ID
	}
	return c
}

// CellID returns the id of the cell this controller owns.
func (c *Controller) CellID() string { return c.cellID }

// Tabs returns a copy of the ordered tab list.
func (c *Controller) Tabs() []layout.Tab {
	out := make([]layout.Tab, len(c.tabs))
	copy(out, c.tabs)
	return out
}

// ActiveID returns the active tab id, or "" when the cell has no tabs.
func (c *Controller) ActiveID() string { return c.activeID }

// Active returns the active tab.
func (c *Controller) Active() (layout.Tab, bool) {
	return c.find(c.activeID)
}

// AddTab appends a new unbound tab titled "Terminal {n+1}", binds the
// cell's working directory, marks it active, and requests focus.
func (c *Controller) AddTab() layout.Tab {
	tab := layout.NewTab(fmt.Sprintf("Terminal %d", len(c.tabs)+1), c.workDir)
	c.tabs = append(c.tabs, tab)
	c.activeID = tab.ID
	c.notify()
	c.focus(tab.ID)
	return tab
}

// CloseTab removes the tab with the given id. A bound session is killed
// strictly before removal; kill failures are the registry's to log and
// never block closure. When the closed tab was active, the tab at
// min(closedIndex, newLength-1) becomes active, or none if the list is
// now empty.
func (c *Controller) CloseTab(id string) {
	idx := c.indexOf(id)
	if idx < 0 {
		return
	}
	if sid := c.tabs[idx].SessionID; sid != "" && c.killer != nil {
		c.killer.Kill(sid)
	}
	c.removeAt(idx, id)
	c.notify()
	if c.activeID != "" {
		c.focus(c.activeID)
	}
}

// SelectTab makes the tab with the given id active and requests focus on
// its binding. Unknown ids are ignored.
func (c *Controller) SelectTab(id string) {
	if c.indexOf(id) < 0 {
		return
	}
	c.activeID = id
	c.notify()
	c.focus(id)
}

// SetSession records a tab's bound session id (or clears it on exit) and
// persists via the tabs-changed notification.
func (c *Controller) SetSession(tabID, sessionID string) {
	idx := c.indexOf(tabID)
	if idx < 0 {
		return
	}
	c.tabs[idx].SessionID = sessionID
	c.notify()
}

// Detach removes a tab from this controller without killing its session
// and returns it. This is the popout handoff: the tab keeps its session
// id so the re-hosted binding can resume the same backend stream.
func (c *Controller) Detach(id string) (layout.Tab, bool) {
	idx := c.indexOf(id)
	if idx < 0 {
		return layout.Tab{}, false
	}
	tab := c.tabs[idx]
	c.removeAt(idx, id)
	c.notify()
	return tab, true
}

// Restore re-appends a previously detached tab and makes it active. Used
// when a popout handoff fails after removal.
func (c *Controller) Restore(tab layout.Tab) {
	c.tabs = append(c.tabs, tab)
	c.activeID = tab.ID
	c.notify()
	c.focus(tab.ID)
}

func (c *Controller) indexOf(id string) int {
	for i, t := range c.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) find(id string) (layout.Tab, bool) {
	if idx := c.indexOf(id); idx >= 0 {
		return c.tabs[idx], true
	}
	return layout.Tab{}, false
}

// removeAt drops the tab at idx and reassigns the active tab when the
// removed one was active.
func (c *Controller) removeAt(idx int, id string) {
	c.tabs = append(c.tabs[:idx], c.tabs[idx+1:]...)
	if c.activeID != id {
		return
	}
	if len(c.tabs) == 0 {
		c.activeID = ""
		return
	}
	next := idx
	if next > len(c.tabs)-1 {
		next = len(c.tabs) - 1
	}
	c.activeID = c.tabs[next].ID
}

func (c *Controller) notify() {
	if c.cb.TabsChanged == nil {
		return
	}
	c.cb.TabsChanged(c.cellID, c.Tabs())
}

func (c *Controller) focus(tabID string) {
	if c.cb.Focus == nil {
		return
	}
	c.cb.Focus(tabID)
}
