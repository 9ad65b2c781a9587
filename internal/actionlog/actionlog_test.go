package actionlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledLoggerDiscards(t *testing.T) {
	l, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Log(ActionAddTab, "c1", "t1", nil)
	if err := l.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestLogFormatsEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	l, err := New(Config{Enabled: true, Level: LevelDebug, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer l.Close()

	l.Log(ActionCloseTab, "cell-1", "tab-9", map[string]interface{}{
		"session": "s1",
		"reason":  "user",
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{"[CLOSE-TAB]", "cell=cell-1", "tab=tab-9", `reason="user"`, `session="s1"`} {
		if !strings.Contains(line, want) {
			t.Errorf("entry %q missing %q", line, want)
		}
	}
	// Sorted detail keys: reason before session.
	if strings.Index(line, "reason=") > strings.Index(line, "session=") {
		t.Errorf("details not sorted: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	l, err := New(Config{Enabled: true, Level: LevelInfo, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer l.Close()

	l.Log(ActionSelectTab, "c", "t", nil) // debug, filtered
	l.Log(ActionAddTab, "c", "t", nil)    // info, kept

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "SELECT-TAB") {
		t.Error("debug action logged at info level")
	}
	if !strings.Contains(string(data), "ADD-TAB") {
		t.Error("info action missing")
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	l, err := New(Config{Enabled: true, Level: LevelDebug, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer l.Close()

	// Force the size counter over the limit, then log once to trigger
	// rotation.
	l.mu.Lock()
	l.currentSize = 2 * 1024 * 1024
	l.mu.Unlock()

	l.Log(ActionAddCell, "c", "", nil)

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("rotated file missing: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ADD-CELL") {
		t.Error("entry not written to fresh file after rotation")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
