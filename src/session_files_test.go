package app

import (
	"strings"
	"testing"
)

func TestGenerateSessionTag(t *testing.T) {
	tag := generateSessionTag("/home/user/My.Project", "claude")
	if !strings.HasPrefix(tag, "happier-myproject-") {
		t.Fatalf("tag = %q, want sanitized slug prefix", tag)
	}
	if !strings.HasSuffix(tag, "-claude") {
		t.Fatalf("tag = %q, want agent suffix", tag)
	}

	again := generateSessionTag("/home/user/My.Project", "claude")
	if tag != again {
		t.Fatalf("tag not stable: %q vs %q", tag, again)
	}

	other := generateSessionTag("/home/other/My.Project", "claude")
	if tag == other {
		t.Fatal("same basename in different locations must produce distinct tags")
	}
}

func TestSanitizeID(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"My-Project", 10, "myproject"},
		{"veryverylongname", 10, "veryverylo"},
		{"___", 10, "project"},
		{"  Mixed Case 42  ", 20, "mixedcase42"},
	}
	for _, tc := range cases {
		if got := sanitizeID(tc.in, tc.max); got != tc.want {
			t.Fatalf("sanitizeID(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestSessionMetaRoundTrip(t *testing.T) {
	dir := t.TempDir()
	meta := newSessionMeta("happier-proj-abcd1234-claude", "claude", modeRemote, "/work", "plan", "opus", "machine-1")

	if err := saveSessionMeta(dir, meta.Session, meta); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := loadSessionMeta(dir, meta.Session)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded != meta {
		t.Fatalf("loaded = %+v, want %+v", loaded, meta)
	}
}

func TestNewSessionIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := newSessionID()
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty session id: %q", id)
		}
		seen[id] = true
	}
}
