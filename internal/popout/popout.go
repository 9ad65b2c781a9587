// Package popout extracts a tab from its grid cell and hands it to a
// window-hosting collaborator that mounts an equivalent binding in a new
// top-level surface.
//
// The detached tab keeps its backend session: the re-hosted binding is
// constructed against the same session id and resumes filtering the shared
// event stream, so output continuity is preserved across the handoff.
package popout

import (
	"fmt"
	"log"

	"github.com/1broseidon/gridmux/internal/layout"
	"github.com/1broseidon/gridmux/internal/tabs"
)

// WindowHost mounts a detached tab in a new top-level surface.
type WindowHost interface {
	HostTab(tab layout.Tab) error
}

// Coordinator moves tabs between tab controllers and the window host.
type Coordinator struct {
	host WindowHost
}

// NewCoordinator creates a coordinator backed by the given host.
func NewCoordinator(host WindowHost) *Coordinator {
	return &Coordinator{host: host}
}

// Popout removes the tab from its controller and hands it to the host.
// The removal is part of the handoff: once this returns nil the tab no
// longer belongs to the cell. When hosting fails the tab is restored to
// the controller so no session is orphaned.
func (c *Coordinator) Popout(ctrl *tabs.Controller, tabID string) error {
	if c.host == nil {
		return fmt.Errorf("no window host configured")
	}
	tab, ok := ctrl.Detach(tabID)
	if !ok {
		return fmt.Errorf("tab %s not found in cell %s", tabID, ctrl.CellID())
	}
	if err := c.host.HostTab(tab); err != nil {
		log.Printf("popout: hosting tab %s failed, restoring: %v", tabID, err)
		ctrl.Restore(tab)
		return fmt.Errorf("failed to host tab %s: %w", tabID, err)
	}
	return nil
}
