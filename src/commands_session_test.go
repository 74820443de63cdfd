package app

import (
	"testing"
)

func seedSessionArtifacts(t *testing.T, tag string) string {
	t.Helper()
	t.Setenv("HAPPIER_HOME", t.TempDir())
	rtDir, err := runtimeDir()
	if err != nil {
		t.Fatalf("runtimeDir failed: %v", err)
	}
	if err := saveSessionMeta(rtDir, tag, newSessionMeta(tag, "claude", modeLocal, "/tmp/project", "default", "opus", "m1")); err != nil {
		t.Fatalf("saveSessionMeta failed: %v", err)
	}
	appendSessionEvent(rtDir, tag, sessionEvent{At: "2026-08-31T10:00:00Z", Type: "session-ready", Mode: modeLocal})
	appendSessionEvent(rtDir, tag, sessionEvent{At: "2026-08-31T10:05:00Z", Type: "mode-change", Mode: modeRemote})
	return rtDir
}

func TestCmdSessionTailReadsEventLog(t *testing.T) {
	seedSessionArtifacts(t, "happier-proj-abc12345-claude")

	if code := cmdSessionTail([]string{"--tag", "happier-proj-abc12345-claude"}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if code := cmdSessionTail([]string{"--tag", "happier-proj-abc12345-claude", "-n", "1", "--json"}); code != 0 {
		t.Fatalf("json tail exit code = %d, want 0", code)
	}
}

func TestCmdSessionTailMissingLogFails(t *testing.T) {
	t.Setenv("HAPPIER_HOME", t.TempDir())
	if code := cmdSessionTail([]string{"--tag", "no-such-session", "--json"}); code != 1 {
		t.Fatalf("exit code = %d, want 1 for missing log", code)
	}
}

func TestCmdSessionShowReadsMeta(t *testing.T) {
	seedSessionArtifacts(t, "happier-proj-abc12345-claude")

	if code := cmdSessionShow([]string{"--tag", "happier-proj-abc12345-claude", "--json"}); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
}

func TestCmdSessionShowMissingMetaFails(t *testing.T) {
	t.Setenv("HAPPIER_HOME", t.TempDir())
	if code := cmdSessionShow([]string{"--tag", "no-such-session", "--json"}); code != 1 {
		t.Fatalf("exit code = %d, want 1 for missing metadata", code)
	}
}

func TestCmdSessionRejectsInvalidFlags(t *testing.T) {
	if code := cmdSessionTail([]string{"--tag"}); code != 1 {
		t.Fatalf("exit code = %d, want 1 for dangling --tag", code)
	}
	if code := cmdSessionTail([]string{"-n", "nope", "--json"}); code != 1 {
		t.Fatalf("exit code = %d, want 1 for bad -n", code)
	}
	if code := cmdSession([]string{"bogus"}); code != 1 {
		t.Fatalf("exit code = %d, want 1 for unknown subcommand", code)
	}
}

func TestResolveSessionTagDerivesFromDirAndAgent(t *testing.T) {
	t.Setenv("HAPPIER_HOME", t.TempDir())

	explicit, err := resolveSessionTag("explicit-tag", "", "")
	if err != nil || explicit != "explicit-tag" {
		t.Fatalf("tag = %q err = %v, explicit --tag must win", explicit, err)
	}

	derived, err := resolveSessionTag("", "/tmp/project", "codex")
	if err != nil {
		t.Fatalf("resolveSessionTag failed: %v", err)
	}
	if want := generateSessionTag("/tmp/project", "codex"); derived != want {
		t.Fatalf("tag = %q, want %q", derived, want)
	}

	if _, err := resolveSessionTag("", "/tmp/project", "weird"); err == nil {
		t.Fatal("expected error for invalid agent")
	}
}
