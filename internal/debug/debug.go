// Package debug holds tix's diagnostic output: stderr tracing gated by
// TIX_DEBUG or verbose mode, and the per-workspace event log.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	enabled     = os.Getenv("TIX_DEBUG") != ""
	verboseMode atomic.Bool
	out         io.Writer = os.Stderr
	logMutex    sync.Mutex
)

func Enabled() bool {
	return enabled || verboseMode.Load()
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	verboseMode.Store(verbose)
}

// SetOutput redirects Logf and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	logMutex.Lock()
	defer logMutex.Unlock()
	prev := out
	out = w
	return prev
}

func Logf(format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	logMutex.Lock()
	defer logMutex.Unlock()
	fmt.Fprintf(out, format, args...)
}

// EventLogName is the event log's file name inside a workspace's local dir.
const EventLogName = "events.log"

// LogEvent appends one line to <dir>/events.log.
// Format: TIMESTAMP|EVENT|TICKET|ACTOR|DETAILS
//
// Logging never fails the caller; write errors are reported through Logf.
func LogEvent(dir, event, ticketID, actor, details string) {
	if ticketID == "" {
		ticketID = "none"
	}
	if actor == "" {
		actor = os.Getenv("USER")
		if actor == "" {
			actor = "unknown"
		}
	}
	details = strings.ReplaceAll(details, "\n", " ")

	entry := fmt.Sprintf("%s|%s|%s|%s|%s\n",
		time.Now().UTC().Format(time.RFC3339), event, ticketID, actor, details)

	if err := appendEvent(dir, entry); err != nil {
		Logf("event log: %v\n", err)
	}
}

func appendEvent(dir, entry string) error {
	logMutex.Lock()
	defer logMutex.Unlock()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	file, err := os.OpenFile(filepath.Join(dir, EventLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 - dir is the workspace local dir
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(entry)
	return err
}
