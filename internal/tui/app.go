// Package tui hosts the multiplexer grid in a terminal UI: it renders the
// cell grid, routes keystrokes to the focused binding, emits geometry
// changes on resize, and hosts the popout surface.
package tui

import (
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/gridmux/internal/actionlog"
	"github.com/1broseidon/gridmux/internal/binding"
	"github.com/1broseidon/gridmux/internal/config"
	"github.com/1broseidon/gridmux/internal/grid"
	"github.com/1broseidon/gridmux/internal/layout"
	"github.com/1broseidon/gridmux/internal/popout"
	"github.com/1broseidon/gridmux/internal/session"
	"github.com/1broseidon/gridmux/internal/tabs"
)

// sessionEventMsg wraps one event from the registry's shared stream.
type sessionEventMsg struct {
	ev session.Event
}

// sessionCreatedMsg resolves an in-flight create for a tab.
type sessionCreatedMsg struct {
	tabID     string
	sessionID string
	err       error
}

// App is the bubbletea model owning all multiplexer state. Everything
// runs on the single Update loop; backend calls resume it via messages.
type App struct {
	cfg      *config.Config
	registry *session.Registry
	store    *layout.Store
	actions  *actionlog.Logger

	controllers map[string]*tabs.Controller // cellID -> controller
	bindings    map[string]*binding.Binding // tabID -> binding
	coordinator *popout.Coordinator

	// Detached surface state. While popoutTab is set the detached tab
	// covers the whole canvas and receives all input.
	popoutTab *layout.Tab

	geometry    grid.Geometry
	width       int
	height      int
	focusedCell string
	prefix      bool // leader key pressed, next key is a command
	keys        keyMap
	started     time.Time

	ipc ipcGateway
}

// New assembles the app from its collaborators. The store must already be
// loaded.
func New(cfg *config.Config, registry *session.Registry, store *layout.Store, actions *actionlog.Logger) *App {
	a := &App{
		cfg:      cfg,
		registry: registry,
		store:    store,
		actions:  actions,
		geometry: grid.Geometry{
			UnitsX: cfg.Grid.UnitsX,
			UnitsY: cfg.Grid.UnitsY,
			Gap:    cfg.Grid.Gap,
		},
		controllers: make(map[string]*tabs.Controller),
		bindings:    make(map[string]*binding.Binding),
		keys:        defaultKeyMap(),
		started:     time.Now(),
	}
	a.coordinator = popout.NewCoordinator(&detachedHost{app: a})

	for _, cell := range store.Cells() {
		a.adoptCell(cell)
	}
	if cells := store.Cells(); len(cells) > 0 {
		a.focusedCell = cells[0].ID
	}
	return a
}

// adoptCell creates the controller for a cell and bindings for its tabs.
func (a *App) adoptCell(cell layout.Cell) {
	ctrl := tabs.New(cell.ID, workingDirectory(cell), cell.Tabs, a.registry, tabs.Callbacks{
		TabsChanged: func(cellID string, ts []layout.Tab) {
			a.store.SetTabs(cellID, ts)
		},
		Focus: func(tabID string) {
			// Focus follows the owning cell.
			a.focusedCell = cell.ID
		},
	})
	a.controllers[cell.ID] = ctrl
	for _, tab := range cell.Tabs {
		a.ensureBinding(tab)
	}
}

func workingDirectory(cell layout.Cell) string {
	for _, tab := range cell.Tabs {
		if tab.WorkingDirectory != "" {
			return tab.WorkingDirectory
		}
	}
	return ""
}

// ensureBinding mounts a binding for a tab if none exists yet.
func (a *App) ensureBinding(tab layout.Tab) *binding.Binding {
	if b, ok := a.bindings[tab.ID]; ok {
		return b
	}
	rows, cols := a.bindingSize(tab.ID)
	b := binding.New(tab.ID, tab.WorkingDirectory, rows, cols, a.registry, a.onSessionExit)
	a.bindings[tab.ID] = b
	return b
}

func (a *App) onSessionExit(tabID string, exitCode *int) {
	a.actions.Log(actionlog.ActionSessionExit, a.cellOfTab(tabID), tabID, nil)
}

// Init starts the event pump.
func (a *App) Init() tea.Cmd {
	return tea.Batch(waitForEvent(a.registry), tea.EnterAltScreen)
}

// waitForEvent blocks on the shared stream and resumes the loop with the
// next event. Re-issued after every delivery so order is preserved.
func waitForEvent(r *session.Registry) tea.Cmd {
	return func() tea.Msg {
		return sessionEventMsg{ev: <-r.Events()}
	}
}

// createSession runs the backend create off the loop and resumes with the
// result.
func (a *App) createSession(tabID string, rows, cols uint16, cwd string) tea.Cmd {
	registry := a.registry
	return func() tea.Msg {
		id, err := registry.Create(rows, cols, cwd)
		return sessionCreatedMsg{tabID: tabID, sessionID: id, err: err}
	}
}

// Update is the single-threaded event loop.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		first := a.width == 0 && a.height == 0
		a.width, a.height = msg.Width, msg.Height
		a.applyGeometry()
		if first {
			// Auto-create waits for the first render geometry so new
			// sessions start with real dimensions.
			return a, a.startSessions()
		}
		return a, nil

	case sessionEventMsg:
		a.dispatchEvent(msg.ev)
		return a, waitForEvent(a.registry)

	case sessionCreatedMsg:
		return a, a.completeCreate(msg)

	case ipcCallMsg:
		return a, msg.run(a)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

// dispatchEvent routes one shared-stream event to whichever binding
// currently claims the id. Bindings filter by bound id, so an event for
// session X is never rendered by a binding bound to Y.
func (a *App) dispatchEvent(ev session.Event) {
	for _, b := range a.bindings {
		if b.HandleEvent(ev) {
			break
		}
	}
	if exit, ok := ev.(session.ExitEvent); ok {
		a.clearSessionRef(exit.SessionID)
	}
}

// clearSessionRef drops a dead session id from the persisted tab state.
func (a *App) clearSessionRef(sessionID string) {
	for _, ctrl := range a.controllers {
		for _, tab := range ctrl.Tabs() {
			if tab.SessionID == sessionID {
				ctrl.SetSession(tab.ID, "")
				return
			}
		}
	}
	if a.popoutTab != nil && a.popoutTab.SessionID == sessionID {
		a.popoutTab.SessionID = ""
	}
}

// startSessions requests creates for every visible tab that has none.
// Subscription to the event stream is already live (Init), so output
// produced between creation and the first delivery is not lost.
func (a *App) startSessions() tea.Cmd {
	var cmds []tea.Cmd
	for _, ctrl := range a.controllers {
		tab, ok := ctrl.Active()
		if !ok {
			continue
		}
		cmds = append(cmds, a.startTabSession(tab))
	}
	if a.popoutTab != nil {
		cmds = append(cmds, a.startTabSession(*a.popoutTab))
	}
	return tea.Batch(cmds...)
}

// startTabSession begins a create for one tab when it is unbound, not
// exited, and has no create in flight.
func (a *App) startTabSession(tab layout.Tab) tea.Cmd {
	b := a.ensureBinding(tab)
	if tab.SessionID != "" && b.State() == binding.Unbound && !b.Exited() {
		// Externally supplied id (popout re-host): bind, no create.
		b.BindTo(tab.SessionID)
		return nil
	}
	rows, cols, cwd, ok := b.BeginCreate()
	if !ok {
		return nil
	}
	return a.createSession(tab.ID, rows, cols, cwd)
}

func (a *App) completeCreate(msg sessionCreatedMsg) tea.Cmd {
	b, ok := a.bindings[msg.tabID]
	if !ok {
		// Tab closed while the create was in flight: reap the orphan.
		if msg.err == nil {
			a.registry.Kill(msg.sessionID)
		}
		return nil
	}
	b.CompleteCreate(msg.sessionID, msg.err)
	if msg.err != nil {
		log.Printf("tui: session create for tab %s failed: %v", msg.tabID, msg.err)
		a.actions.Log(actionlog.ActionSpawnFailed, a.cellOfTab(msg.tabID), msg.tabID,
			map[string]interface{}{"error": msg.err.Error()})
		return nil
	}
	if cellID := a.cellOfTab(msg.tabID); cellID != "" {
		a.controllers[cellID].SetSession(msg.tabID, msg.sessionID)
	} else if a.popoutTab != nil && a.popoutTab.ID == msg.tabID {
		a.popoutTab.SessionID = msg.sessionID
		a.store.Save()
	}
	return nil
}

func (a *App) cellOfTab(tabID string) string {
	for cellID, ctrl := range a.controllers {
		for _, tab := range ctrl.Tabs() {
			if tab.ID == tabID {
				return cellID
			}
		}
	}
	return ""
}

// applyGeometry recomputes every visible binding's rows/cols from the
// current canvas. This is the "geometry changed" event the bindings
// consume.
func (a *App) applyGeometry() {
	if a.width == 0 || a.height == 0 {
		return
	}
	if a.popoutTab != nil {
		if b, ok := a.bindings[a.popoutTab.ID]; ok {
			rows, cols := a.popoutInnerSize()
			b.SetGeometry(rows, cols)
		}
		return
	}
	for _, cell := range a.store.Cells() {
		ctrl, ok := a.controllers[cell.ID]
		if !ok {
			continue
		}
		rows, cols := a.cellInnerSize(cell)
		for _, tab := range ctrl.Tabs() {
			if b, ok := a.bindings[tab.ID]; ok {
				b.SetGeometry(rows, cols)
			}
		}
	}
}

// bindingSize returns the rows/cols a tab's binding should use right now.
func (a *App) bindingSize(tabID string) (rows, cols int) {
	if a.popoutTab != nil && a.popoutTab.ID == tabID {
		return a.popoutInnerSize()
	}
	if cellID := a.cellOfTab(tabID); cellID != "" {
		if cell, ok := a.store.Cell(cellID); ok {
			return a.cellInnerSize(cell)
		}
	}
	return 24, 80
}

// cellInnerSize resolves a cell's content area in character cells: the
// resolved rect minus the border, minus one line for the tab bar.
func (a *App) cellInnerSize(cell layout.Cell) (rows, cols int) {
	if a.width == 0 || a.height == 0 {
		return 24, 80
	}
	canvas := grid.Rect{X: 0, Y: 0, Width: a.width, Height: a.height - 1}
	rect := a.geometry.Resolve(canvas, cell.X, cell.Y, cell.W, cell.H)
	inner := grid.InnerRect(rect)
	rows = inner.Height - 1
	if rows < 1 {
		rows = 1
	}
	return rows, inner.Width
}

func (a *App) popoutInnerSize() (rows, cols int) {
	if a.width == 0 || a.height == 0 {
		return 24, 80
	}
	rows = a.height - 3
	if rows < 1 {
		rows = 1
	}
	cols = a.width - 2
	if cols < 1 {
		cols = 1
	}
	return rows, cols
}

// focusedBinding returns the binding receiving input, if any.
func (a *App) focusedBinding() *binding.Binding {
	if a.popoutTab != nil {
		return a.bindings[a.popoutTab.ID]
	}
	ctrl, ok := a.controllers[a.focusedCell]
	if !ok {
		return nil
	}
	tab, ok := ctrl.Active()
	if !ok {
		return nil
	}
	return a.bindings[tab.ID]
}

// Shutdown persists the layout and kills every remaining session.
func (a *App) Shutdown() {
	if err := a.store.Save(); err != nil {
		log.Printf("tui: final save failed: %v", err)
	}
	a.registry.Shutdown()
}
