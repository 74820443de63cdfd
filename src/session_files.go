package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// generateSessionTag builds the stable tag the relay uses to match this
// CLI instance with a server-side session across restarts.
func generateSessionTag(workDir, agent string) string {
	return fmt.Sprintf("happier-%s-%s-%s", projectSlug(workDir), projectHash(workDir), agent)
}

func newSessionID() string {
	return uuid.NewString()
}

func projectSlug(workDir string) string {
	return sanitizeID(filepath.Base(workDir), 10)
}

func sanitizeID(s string, max int) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = "project"
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func projectHash(workDir string) string {
	return md5Hex8(workDir)
}

// runtimeDir holds per-session artifacts (meta, event logs) under the
// happier home.
func runtimeDir() (string, error) {
	home, err := happierHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, "runtime")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func sessionMetaFile(dir, tag string) string {
	return filepath.Join(dir, tag+"-meta.json")
}

func saveSessionMeta(dir, tag string, meta sessionMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(sessionMetaFile(dir, tag), data)
}

func loadSessionMeta(dir, tag string) (sessionMeta, error) {
	raw, err := os.ReadFile(sessionMetaFile(dir, tag))
	if err != nil {
		return sessionMeta{}, err
	}
	var meta sessionMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return sessionMeta{}, err
	}
	return meta, nil
}

func newSessionMeta(tag, agent, mode, workDir, permissionMode, model, machine string) sessionMeta {
	return sessionMeta{
		Session:        tag,
		Agent:          agent,
		Mode:           mode,
		WorkDir:        workDir,
		PermissionMode: permissionMode,
		Model:          model,
		MachineID:      machine,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}
}
