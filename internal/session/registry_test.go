package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestUnknownIDsAreIgnored(t *testing.T) {
	r := NewRegistry("/bin/sh")

	// None of these may panic or error for an id that was never issued.
	r.Write("nope", []byte("ls\n"))
	r.Resize("nope", 24, 80)
	r.Kill("nope")
	r.Kill("nope") // idempotent

	if r.Count() != 0 {
		t.Fatalf("expected 0 sessions, got %d", r.Count())
	}
}

func TestCreateSpawnErrorForMissingShell(t *testing.T) {
	r := NewRegistry("/nonexistent/shell-binary")

	_, err := r.Create(24, 80, "")
	if err == nil {
		t.Fatal("expected spawn error for missing shell")
	}
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected *SpawnError, got %T: %v", err, err)
	}
	if !strings.Contains(spawnErr.Error(), "/nonexistent/shell-binary") {
		t.Errorf("spawn error should name the shell: %v", spawnErr)
	}
	if r.Count() != 0 {
		t.Fatalf("failed create must not register a session, got %d", r.Count())
	}
}

func TestCreateKillLifecycle(t *testing.T) {
	r := NewRegistry("/bin/sh")

	id, err := r.Create(24, 80, t.TempDir())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("create returned empty id")
	}
	if r.Count() != 1 {
		t.Fatalf("expected 1 live session, got %d", r.Count())
	}

	r.Kill(id)

	// The PTY hangup must end the shell well before the SIGKILL
	// escalation window; a shell lingering past it means Kill relied on
	// SIGTERM alone.
	if ev := waitForExit(t, r, id, 3*time.Second); ev.SessionID != id {
		t.Fatalf("exit event for %q, want %q", ev.SessionID, id)
	}
	if r.Count() != 0 {
		t.Fatalf("session not reaped after exit, count=%d", r.Count())
	}

	// Post-exit calls are no-ops.
	r.Write(id, []byte("echo hi\n"))
	r.Resize(id, 30, 100)
	r.Kill(id)
}

func TestOutputEventsCarrySessionID(t *testing.T) {
	r := NewRegistry("/bin/sh")

	id, err := r.Create(24, 80, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	r.Write(id, []byte("echo gridmux-marker\n"))

	deadline := time.After(5 * time.Second)
	var collected []byte
	for {
		select {
		case ev := <-r.Events():
			out, ok := ev.(OutputEvent)
			if !ok {
				continue
			}
			if out.SessionID != id {
				t.Fatalf("output event for unknown session %q", out.SessionID)
			}
			collected = append(collected, out.Data...)
			if strings.Contains(string(collected), "gridmux-marker") {
				r.Kill(id)
				return
			}
		case <-deadline:
			t.Fatalf("marker not seen in output; collected %q", collected)
		}
	}
}

func TestShutdownKillsEverything(t *testing.T) {
	r := NewRegistry("/bin/sh")

	for i := 0; i < 3; i++ {
		if _, err := r.Create(24, 80, ""); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	// Drain events so reader goroutines never block on the channel.
	go func() {
		for range r.Events() {
		}
	}()

	r.Shutdown()
	if r.Count() != 0 {
		t.Fatalf("expected 0 sessions after shutdown, got %d", r.Count())
	}
}

func waitForExit(t *testing.T, r *Registry, id string, timeout time.Duration) ExitEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-r.Events():
			if exit, ok := ev.(ExitEvent); ok && exit.SessionID == id {
				return exit
			}
		case <-deadline:
			t.Fatalf("no exit event for %s within %v", id, timeout)
		}
	}
}
