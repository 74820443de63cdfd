package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var claudeReasoningProfile = reasoningProfile{ToolName: "Thinking", LogPrefix: "[claude]"}

var userHomeDirFn = os.UserHomeDir

func encodeClaudePath(absPath string) string {
	return strings.NewReplacer("/", "-", ".", "-").Replace(absPath)
}

func claudeProjectDir(workDir string) (string, error) {
	home, err := userHomeDirFn()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects", encodeClaudePath(workDir)), nil
}

// findClaudeResumeID locates the most recent native claude session for the
// working directory, for --resume semantics. Each session is one
// <id>.jsonl transcript under the encoded project dir; newest mtime wins.
func findClaudeResumeID(workDir string) (string, error) {
	projDir, err := claudeProjectDir(workDir)
	if err != nil {
		return "", err
	}
	matches, err := filepath.Glob(filepath.Join(projDir, "*.jsonl"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no claude session found in %s", projDir)
	}

	best := ""
	var bestTime time.Time
	for _, path := range matches {
		info, statErr := os.Stat(path)
		if statErr != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = path
			bestTime = info.ModTime()
		}
	}
	if best == "" {
		return "", fmt.Errorf("no readable claude session found in %s", projDir)
	}
	return strings.TrimSuffix(filepath.Base(best), ".jsonl"), nil
}
