package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var codexReasoningProfile = reasoningProfile{ToolName: "Reasoning", LogPrefix: "[codex]"}

type codexSessionHeader struct {
	Payload struct {
		ID  string `json:"id"`
		Cwd string `json:"cwd"`
	} `json:"payload"`
}

// findCodexResumeID locates the most recent codex rollout for the working
// directory. Rollouts live under ~/.codex/sessions/YYYY/MM/DD/; the first
// line of each file records the session id and cwd.
func findCodexResumeID(workDir string) (string, error) {
	home, err := userHomeDirFn()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	pattern := filepath.Join(home, ".codex", "sessions", "*", "*", "*", "*.jsonl")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}

	best := ""
	var bestTime time.Time
	for _, path := range matches {
		info, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}
		if best != "" && !info.ModTime().After(bestTime) {
			continue
		}
		id, cwd, headErr := readCodexSessionHeader(path)
		if headErr != nil || id == "" {
			continue
		}
		if cwd != "" && cwd != workDir {
			continue
		}
		best = id
		bestTime = info.ModTime()
	}
	if best == "" {
		return "", fmt.Errorf("no codex session found for %s", workDir)
	}
	return best, nil
}

func readCodexSessionHeader(path string) (id, cwd string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	if !scanner.Scan() {
		return "", "", fmt.Errorf("empty session file: %s", path)
	}
	var header codexSessionHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(header.Payload.ID), strings.TrimSpace(header.Payload.Cwd), nil
}

// findResumeID dispatches resume discovery by agent family.
func findResumeID(agent, workDir string) (string, error) {
	if agent == "codex" {
		return findCodexResumeID(workDir)
	}
	return findClaudeResumeID(workDir)
}
