// Package session owns the mapping from opaque session ids to live
// PTY-backed shell processes. The registry is the only component that
// talks to the PTY layer; everything above it addresses sessions by id.
package session

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

const readBufferSize = 32 * 1024

// eventBuffer bounds the fan-in channel. Reader goroutines block once the
// consumer falls this far behind, which preserves per-session ordering
// without unbounded memory growth.
const eventBuffer = 256

// Event is an output or exit notification pushed by the backend.
type Event interface {
	// Session returns the id of the session that produced the event.
	Session() string
}

// OutputEvent carries bytes produced by a session, in production order.
type OutputEvent struct {
	SessionID string
	Data      []byte
}

func (e OutputEvent) Session() string { return e.SessionID }

// ExitEvent is delivered exactly once per session lifetime. ExitCode is nil
// when the process was terminated by a signal.
type ExitEvent struct {
	SessionID string
	ExitCode  *int
}

func (e ExitEvent) Session() string { return e.SessionID }

// SpawnError indicates the backend could not start a shell.
type SpawnError struct {
	Shell string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Shell, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

type liveSession struct {
	id   string
	ptmx *os.File
	cmd  *exec.Cmd
	done chan struct{}
}

// Registry owns all live sessions. Create/Write/Resize/Kill are called from
// the event loop; reader and waiter goroutines dispatch output and exit
// events concurrently, so the id map is mutex-guarded.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*liveSession
	events   chan Event
	shell    string
	env      []string
}

// NewRegistry creates an empty registry that spawns the given shell.
func NewRegistry(shell string) *Registry {
	return &Registry{
		sessions: make(map[string]*liveSession),
		events:   make(chan Event, eventBuffer),
		shell:    shell,
		env:      append(os.Environ(), "TERM=xterm-256color"),
	}
}

// Events returns the shared event stream. Multiple bindings read dispatched
// events from this single stream and filter by their own bound id.
func (r *Registry) Events() <-chan Event {
	return r.events
}

// Create spawns a new shell on a fresh PTY sized to rows x cols, started in
// cwd when non-empty. The returned id is routable for all subsequent calls
// and for output/exit events until the session is reaped.
func (r *Registry) Create(rows, cols uint16, cwd string) (string, error) {
	cmd := exec.Command(r.shell)
	cmd.Env = r.env
	if cwd != "" {
		if info, err := os.Stat(cwd); err == nil && info.IsDir() {
			cmd.Dir = cwd
		}
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return "", &SpawnError{Shell: r.shell, Err: err}
	}

	s := &liveSession{
		id:   uuid.NewString(),
		ptmx: ptmx,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	go r.readLoop(s)
	go r.waitLoop(s)

	log.Printf("session: created %s (shell=%s cwd=%q %dx%d)", s.id, r.shell, cwd, cols, rows)
	return s.id, nil
}

// Write forwards bytes to the session's input stream. Unknown ids are
// ignored: the session may already have been reaped.
func (r *Registry) Write(id string, data []byte) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	if _, err := s.ptmx.Write(data); err != nil {
		log.Printf("session: write to %s failed: %v", id, err)
	}
}

// Resize updates the PTY's terminal geometry. Unknown ids are ignored.
func (r *Registry) Resize(id string, rows, cols uint16) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		log.Printf("session: resize of %s failed: %v", id, err)
	}
}

// Kill terminates a session. Idempotent: unknown or already-dead ids are
// ignored. The exit event is still delivered by the waiter goroutine.
func (r *Registry) Kill(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	if s.cmd.Process == nil {
		return
	}
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Printf("session: kill of %s failed: %v", id, err)
		return
	}
	// An interactive shell on a PTY ignores SIGTERM. Hanging up its
	// controlling terminal ends it promptly and unblocks the reader.
	s.ptmx.Close()
	// Escalate if the process survives the hangup too.
	go func() {
		select {
		case <-s.done:
		case <-time.After(5 * time.Second):
			_ = s.cmd.Process.Kill()
		}
	}()
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the ids of all live sessions.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown kills every remaining session and waits briefly for them to
// reap. Called on app exit.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	live := make([]*liveSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.Unlock()

	for _, s := range live {
		r.Kill(s.id)
	}
	deadline := time.After(10 * time.Second)
	for _, s := range live {
		select {
		case <-s.done:
		case <-deadline:
			return
		}
	}
}

func (r *Registry) readLoop(s *liveSession) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			r.events <- OutputEvent{SessionID: s.id, Data: data}
		}
		if err != nil {
			// EOF and EIO both mean the slave side is gone; waitLoop
			// reports the exit.
			return
		}
	}
}

func (r *Registry) waitLoop(s *liveSession) {
	err := s.cmd.Wait()

	var exitCode *int
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if code := exitErr.ExitCode(); code >= 0 {
				exitCode = &code
			}
		}
	} else {
		code := 0
		exitCode = &code
	}

	s.ptmx.Close()

	r.mu.Lock()
	delete(r.sessions, s.id)
	r.mu.Unlock()
	close(s.done)

	log.Printf("session: %s exited (code=%v)", s.id, formatExitCode(exitCode))
	r.events <- ExitEvent{SessionID: s.id, ExitCode: exitCode}
}

func formatExitCode(code *int) string {
	if code == nil {
		return "signal"
	}
	return fmt.Sprintf("%d", *code)
}
