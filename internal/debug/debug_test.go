package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogf(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		verbose    bool
		wantOutput string
	}{
		{"outputs when enabled", true, false, "test message: hello\n"},
		{"outputs in verbose mode", false, true, "test message: hello\n"},
		{"no output when disabled", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled, oldVerbose := enabled, verboseMode.Load()
			var buf bytes.Buffer
			prev := SetOutput(&buf)
			defer func() {
				enabled = oldEnabled
				SetVerbose(oldVerbose)
				SetOutput(prev)
			}()

			enabled = tt.enabled
			SetVerbose(tt.verbose)

			Logf("test message: %s\n", "hello")

			if got := buf.String(); got != tt.wantOutput {
				t.Errorf("Logf() output = %q, want %q", got, tt.wantOutput)
			}
		})
	}
}

func TestLogEvent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "local")

	LogEvent(dir, "add", "01JABCDEF", "alice", "Fix bug")
	LogEvent(dir, "undo", "", "alice", "multi\nline")

	data, err := os.ReadFile(filepath.Join(dir, EventLogName))
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}

	fields := strings.Split(lines[0], "|")
	if len(fields) != 5 {
		t.Fatalf("expected 5 fields, got %d: %q", len(fields), lines[0])
	}
	if fields[1] != "add" || fields[2] != "01JABCDEF" || fields[3] != "alice" || fields[4] != "Fix bug" {
		t.Errorf("unexpected entry %q", lines[0])
	}

	fields = strings.Split(lines[1], "|")
	if fields[2] != "none" {
		t.Errorf("empty ticket id should log as none, got %q", fields[2])
	}
	if fields[4] != "multi line" {
		t.Errorf("newlines in details should be flattened, got %q", fields[4])
	}
}

func TestLogEventReportsUnwritableDir(t *testing.T) {
	// A regular file where the log directory should be.
	blocker := filepath.Join(t.TempDir(), "local")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	oldVerbose := verboseMode.Load()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	SetVerbose(true)
	defer func() {
		SetVerbose(oldVerbose)
		SetOutput(prev)
	}()

	LogEvent(blocker, "add", "", "alice", "x")
	if !strings.Contains(buf.String(), "event log:") {
		t.Errorf("expected event log error to be reported, got %q", buf.String())
	}
}
