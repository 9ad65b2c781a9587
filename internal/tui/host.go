package tui

import (
	"fmt"

	"github.com/1broseidon/gridmux/internal/layout"
)

// detachedHost is the window-hosting collaborator for popout: it mounts a
// detached tab as a full-canvas top-level surface inside the same
// terminal. The tab keeps its session id, and the re-hosted binding
// resumes filtering the shared event stream, so the backend stream
// survives the handoff.
type detachedHost struct {
	app *App
}

func (h *detachedHost) HostTab(tab layout.Tab) error {
	if h.app.popoutTab != nil {
		return fmt.Errorf("a detached surface is already open")
	}
	h.app.popoutTab = &tab
	b := h.app.ensureBinding(tab)
	if tab.SessionID != "" {
		b.BindTo(tab.SessionID)
	}
	return nil
}
