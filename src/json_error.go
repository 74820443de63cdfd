package app

import (
	"fmt"
	"io"
	"os"
)

func hasJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

func writeJSONError(errorCode, message string, details map[string]any) {
	payload := map[string]any{
		"ok":        false,
		"errorCode": errorCode,
		"error":     message,
	}
	for k, v := range details {
		payload[k] = v
	}
	writeJSON(payload)
}

func commandError(jsonOut bool, errorCode, message string) int {
	if jsonOut {
		writeJSONError(errorCode, message, nil)
		return 1
	}
	fmt.Fprintln(os.Stderr, message)
	return 1
}

func commandErrorf(jsonOut bool, errorCode, format string, args ...any) int {
	return commandError(jsonOut, errorCode, fmt.Sprintf(format, args...))
}

// notifier is the sink for user-visible session notices (went offline,
// reconnected, mode changed). Components never print directly; the caller
// decides how notices are displayed. Verbose carries the chatty tier
// (per-retry-attempt progress) that only --verbose runs show.
type notifier interface {
	Notify(format string, args ...any)
	Verbose(format string, args ...any)
}

type consoleNotifier struct {
	verbose bool
	out     io.Writer
}

func (n consoleNotifier) writer() io.Writer {
	if n.out != nil {
		return n.out
	}
	return os.Stderr
}

func (n consoleNotifier) Notify(format string, args ...any) {
	fmt.Fprintf(n.writer(), "happier: "+format+"\n", args...)
}

func (n consoleNotifier) Verbose(format string, args ...any) {
	if !n.verbose {
		return
	}
	n.Notify(format, args...)
}

// nopNotifier discards notices. Used by tests and by --json runs where
// stderr chatter would corrupt machine-readable output.
type nopNotifier struct{}

func (nopNotifier) Notify(string, ...any)  {}
func (nopNotifier) Verbose(string, ...any) {}
