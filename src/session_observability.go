package app

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
)

func sessionEventLogFile(dir, tag string) string {
	return filepath.Join(dir, tag+"-events.jsonl")
}

// appendSessionEvent records one notable state change (mode handoff, agent
// exit, reconnect) in the session's JSONL event log. Logging is
// best-effort; a failed append never disturbs orchestration.
func appendSessionEvent(dir, tag string, event sessionEvent) {
	if dir == "" {
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return
	}
	f, err := os.OpenFile(sessionEventLogFile(dir, tag), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(raw, '\n'))
}

// readSessionEventTail returns the last n events, skipping lines that do
// not parse.
func readSessionEventTail(dir, tag string, n int) ([]sessionEvent, error) {
	f, err := os.Open(sessionEventLogFile(dir, tag))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []sessionEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	for scanner.Scan() {
		var event sessionEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}
