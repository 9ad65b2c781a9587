// Package binding associates one tab with one terminal-emulator instance
// and, optionally, one backend session. It forwards keystrokes downstream
// and filtered output events upstream, and owns the Unbound/Bound state
// machine around session creation.
package binding

import (
	"fmt"

	"github.com/charmbracelet/x/vt"

	"github.com/1broseidon/gridmux/internal/session"
)

// State of a binding with respect to its backend session.
type State int

const (
	// Unbound: no live session. Keystrokes stay in the emulator's local
	// echo, geometry changes are dropped (except the create-in-flight
	// window, see SetGeometry).
	Unbound State = iota
	// Bound: keystrokes and geometry changes are forwarded to the session.
	Bound
)

// Backend is the subset of the session registry a binding drives.
type Backend interface {
	Create(rows, cols uint16, cwd string) (string, error)
	Write(id string, data []byte)
	Resize(id string, rows, cols uint16)
}

// Binding ties a tab to a terminal emulator and a session id. All methods
// are called from the event loop; the binding holds no locks.
type Binding struct {
	tabID   string
	cwd     string
	backend Backend
	term    *vt.Emulator

	state     State
	sessionID string
	rows      int
	cols      int

	createInFlight bool
	pendingResize  bool
	pendRows       int
	pendCols       int

	exited bool
	notice string

	// onExit notifies the owning tab controller of a session-exit.
	onExit func(tabID string, exitCode *int)
}

// New mounts a binding for a tab: the emulator is instantiated sized to
// the current container. No session exists yet; callers either BindTo an
// externally supplied id (popout re-host) or drive create through
// BeginCreate/CompleteCreate.
func New(tabID, cwd string, rows, cols int, backend Backend, onExit func(tabID string, exitCode *int)) *Binding {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	return &Binding{
		tabID:   tabID,
		cwd:     cwd,
		backend: backend,
		term:    vt.NewEmulator(cols, rows),
		rows:    rows,
		cols:    cols,
		onExit:  onExit,
	}
}

// TabID returns the id of the tab this binding serves.
func (b *Binding) TabID() string { return b.tabID }

// State returns the binding's current state.
func (b *Binding) State() State { return b.state }

// SessionID returns the bound session id, or "" while Unbound.
func (b *Binding) SessionID() string {
	if b.state != Bound {
		return ""
	}
	return b.sessionID
}

// Size returns the emulator geometry.
func (b *Binding) Size() (rows, cols int) { return b.rows, b.cols }

// Exited reports whether the bound session has terminated. An exited
// binding stays mounted but is permanently Unbound.
func (b *Binding) Exited() bool { return b.exited }

// Notice returns the inline message shown in the panel: a spawn failure
// or a termination notice. Empty when the panel is healthy.
func (b *Binding) Notice() string { return b.notice }

// BindTo binds an externally supplied session id (the popout re-host
// path). The session survives the handoff; output continuity resumes as
// soon as events for this id are routed here.
func (b *Binding) BindTo(sessionID string) {
	if b.exited || sessionID == "" {
		return
	}
	b.sessionID = sessionID
	b.state = Bound
	b.createInFlight = false
	b.notice = ""
}

// BeginCreate marks a session create as in flight and returns the
// geometry to create with. Returns ok=false when a create is already
// pending, the binding is bound, or the session has exited: create is
// never automatic after failure or exit, only an explicit user action
// re-enters here.
func (b *Binding) BeginCreate() (rows, cols uint16, cwd string, ok bool) {
	if b.state == Bound || b.createInFlight || b.exited {
		return 0, 0, "", false
	}
	b.createInFlight = true
	b.pendingResize = false
	b.notice = ""
	return uint16(b.rows), uint16(b.cols), b.cwd, true
}

// CompleteCreate resolves an in-flight create. On success the binding
// becomes Bound and the most recent geometry observed during the flight,
// if any, is applied exactly once. On failure the SpawnError text is
// surfaced inline and the binding stays Unbound.
func (b *Binding) CompleteCreate(sessionID string, err error) {
	if !b.createInFlight {
		return
	}
	b.createInFlight = false
	if err != nil {
		b.notice = err.Error()
		return
	}
	b.sessionID = sessionID
	b.state = Bound
	b.notice = ""
	if b.pendingResize {
		b.pendingResize = false
		b.backend.Resize(sessionID, uint16(b.pendRows), uint16(b.pendCols))
	}
}

// SendKeys forwards input bytes to the session. While Unbound the input
/// goes nowhere beyond the emulator's own echo: no backend call is made.
func (b *Binding) SendKeys(data []byte) {
	if b.state != Bound || len(data) == 0 {
		return
	}
	b.backend.Write(b.sessionID, data)
}

// SetGeometry recomputes the desired rows/cols after a container resize.
// The emulator always follows. Backend resize is forwarded only while
// Bound; while Unbound the request is dropped, except that the latest
// geometry observed while a create is in flight is retained and applied
// once binding completes.
func (b *Binding) SetGeometry(rows, cols int) {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	if rows == b.rows && cols == b.cols {
		return
	}
	b.rows, b.cols = rows, cols
	b.term.Resize(cols, rows)

	switch {
	case b.state == Bound:
		b.backend.Resize(b.sessionID, uint16(rows), uint16(cols))
	case b.createInFlight:
		b.pendingResize = true
		b.pendRows, b.pendCols = rows, cols
	}
}

// HandleEvent routes a shared-stream event to this binding. Events are
// filtered by the currently bound id: an event for another session is
// never rendered here. Returns true when the event was consumed.
func (b *Binding) HandleEvent(ev session.Event) bool {
	if b.state != Bound || ev.Session() != b.sessionID {
		return false
	}
	switch ev := ev.(type) {
	case session.OutputEvent:
		_, _ = b.term.Write(ev.Data)
		return true
	case session.ExitEvent:
		b.state = Unbound
		b.exited = true
		b.notice = exitNotice(ev.ExitCode)
		if b.onExit != nil {
			b.onExit(b.tabID, ev.ExitCode)
		}
		return true
	}
	return false
}

// Render returns the emulator's current screen contents.
func (b *Binding) Render() string {
	return b.term.Render()
}

// CursorPosition returns the emulator cursor location.
func (b *Binding) CursorPosition() (x, y int) {
	pos := b.term.CursorPosition()
	return pos.X, pos.Y
}

// Close releases the emulator. The session, if any, is not touched: tab
// closure cascades the kill through the tab controller instead.
func (b *Binding) Close() {
	_ = b.term.Close()
}

func exitNotice(code *int) string {
	if code == nil {
		return "[session terminated]"
	}
	return fmt.Sprintf("[session exited with code %d]", *code)
}
