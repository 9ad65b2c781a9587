package binding

import (
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/gridmux/internal/session"
)

// fakeBackend records every registry call a binding makes.
type fakeBackend struct {
	writes  []string
	resizes [][2]uint16
}

func (f *fakeBackend) Create(rows, cols uint16, cwd string) (string, error) {
	return "unused", nil
}
func (f *fakeBackend) Write(id string, data []byte) {
	f.writes = append(f.writes, id+":"+string(data))
}
func (f *fakeBackend) Resize(id string, rows, cols uint16) {
	f.resizes = append(f.resizes, [2]uint16{rows, cols})
}

func TestInitialStateIsUnbound(t *testing.T) {
	b := New("tab", "", 24, 80, &fakeBackend{}, nil)
	if b.State() != Unbound {
		t.Fatal("new binding must be Unbound")
	}
	if b.SessionID() != "" {
		t.Errorf("unbound binding has session id %q", b.SessionID())
	}
}

func TestKeystrokesOnlyForwardedWhileBound(t *testing.T) {
	backend := &fakeBackend{}
	b := New("tab", "", 24, 80, backend, nil)

	b.SendKeys([]byte("early"))
	if len(backend.writes) != 0 {
		t.Fatalf("unbound binding wrote to backend: %v", backend.writes)
	}

	b.BindTo("s1")
	b.SendKeys([]byte("ls\n"))
	if len(backend.writes) != 1 || backend.writes[0] != "s1:ls\n" {
		t.Fatalf("writes = %v", backend.writes)
	}
}

func TestEventFilteringByBoundID(t *testing.T) {
	backendA := &fakeBackend{}
	backendB := &fakeBackend{}
	a := New("tabA", "", 24, 80, backendA, nil)
	b := New("tabB", "", 24, 80, backendB, nil)
	a.BindTo("s1")
	b.BindTo("s2")

	ev := session.OutputEvent{SessionID: "s2", Data: []byte("x")}
	if a.HandleEvent(ev) {
		t.Error("binding bound to s1 consumed an s2 event")
	}
	if !b.HandleEvent(ev) {
		t.Error("binding bound to s2 rejected its own event")
	}
	if !strings.Contains(b.Render(), "x") {
		t.Error("s2 output not rendered by its binding")
	}
	if strings.Contains(a.Render(), "x") {
		t.Error("s2 output leaked into the s1 binding")
	}
}

func TestResizeDuringCreateInFlightAppliedOnce(t *testing.T) {
	backend := &fakeBackend{}
	b := New("tab", "", 24, 80, backend, nil)

	if _, _, _, ok := b.BeginCreate(); !ok {
		t.Fatal("BeginCreate refused on a fresh binding")
	}
	// Two geometry changes while create is in flight: only the latest
	// may be applied, exactly once, after binding completes.
	b.SetGeometry(30, 100)
	b.SetGeometry(40, 120)
	if len(backend.resizes) != 0 {
		t.Fatalf("resize forwarded before create resolved: %v", backend.resizes)
	}

	b.CompleteCreate("s1", nil)

	if len(backend.resizes) != 1 {
		t.Fatalf("expected exactly one resize, got %d", len(backend.resizes))
	}
	if got := backend.resizes[0]; got != [2]uint16{40, 120} {
		t.Errorf("resize used %v, want latest geometry [40 120]", got)
	}
}

func TestResizeWhileIdleUnboundIsDropped(t *testing.T) {
	backend := &fakeBackend{}
	b := New("tab", "", 24, 80, backend, nil)

	b.SetGeometry(30, 100)
	if len(backend.resizes) != 0 {
		t.Fatalf("idle unbound resize reached backend: %v", backend.resizes)
	}

	// A later successful create must not replay the dropped request.
	b.BeginCreate()
	b.CompleteCreate("s1", nil)
	if len(backend.resizes) != 0 {
		t.Fatalf("dropped resize was replayed: %v", backend.resizes)
	}
}

func TestResizeWhileBoundForwards(t *testing.T) {
	backend := &fakeBackend{}
	b := New("tab", "", 24, 80, backend, nil)
	b.BindTo("s1")

	b.SetGeometry(50, 160)
	if len(backend.resizes) != 1 || backend.resizes[0] != [2]uint16{50, 160} {
		t.Fatalf("resizes = %v", backend.resizes)
	}

	// Unchanged geometry is not re-sent.
	b.SetGeometry(50, 160)
	if len(backend.resizes) != 1 {
		t.Fatalf("duplicate resize sent: %v", backend.resizes)
	}
}

func TestCreateFailureSurfacesInlineAndStaysUnbound(t *testing.T) {
	b := New("tab", "", 24, 80, &fakeBackend{}, nil)

	b.BeginCreate()
	b.CompleteCreate("", errors.New("failed to spawn /bin/zsh: no such file"))

	if b.State() != Unbound {
		t.Error("failed create left binding bound")
	}
	if !strings.Contains(b.Notice(), "failed to spawn") {
		t.Errorf("notice = %q, want spawn error text", b.Notice())
	}

	// The user may retry explicitly; nothing retries for them.
	if _, _, _, ok := b.BeginCreate(); !ok {
		t.Error("explicit retry refused after spawn failure")
	}
}

func TestExitEventUnbindsPermanently(t *testing.T) {
	backend := &fakeBackend{}
	var exitedTab string
	var exitedCode *int
	b := New("tab", "", 24, 80, backend, func(tabID string, code *int) {
		exitedTab = tabID
		exitedCode = code
	})
	b.BindTo("s1")

	code := 0
	if !b.HandleEvent(session.ExitEvent{SessionID: "s1", ExitCode: &code}) {
		t.Fatal("exit event for bound id not consumed")
	}
	if b.State() != Unbound || !b.Exited() {
		t.Error("binding not permanently unbound after exit")
	}
	if !strings.Contains(b.Notice(), "exited with code 0") {
		t.Errorf("notice = %q", b.Notice())
	}
	if exitedTab != "tab" || exitedCode == nil || *exitedCode != 0 {
		t.Errorf("owner notified with (%q, %v)", exitedTab, exitedCode)
	}

	// No auto-restart: create is refused, writes go nowhere.
	if _, _, _, ok := b.BeginCreate(); ok {
		t.Error("create allowed on an exited binding")
	}
	b.SendKeys([]byte("x"))
	if len(backend.writes) != 0 {
		t.Errorf("writes after exit: %v", backend.writes)
	}
	b.BindTo("s2")
	if b.State() != Unbound {
		t.Error("rebind allowed on an exited binding")
	}
}

func TestDuplicateBeginCreateRefused(t *testing.T) {
	b := New("tab", "", 24, 80, &fakeBackend{}, nil)
	if _, _, _, ok := b.BeginCreate(); !ok {
		t.Fatal("first BeginCreate refused")
	}
	if _, _, _, ok := b.BeginCreate(); ok {
		t.Error("second BeginCreate allowed while first in flight")
	}
}

func TestBeginCreateReportsGeometryAndCwd(t *testing.T) {
	b := New("tab", "/srv/work", 24, 80, &fakeBackend{}, nil)
	rows, cols, cwd, ok := b.BeginCreate()
	if !ok {
		t.Fatal("BeginCreate refused")
	}
	if rows != 24 || cols != 80 || cwd != "/srv/work" {
		t.Errorf("BeginCreate = (%d, %d, %q)", rows, cols, cwd)
	}
}
