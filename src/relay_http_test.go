package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestGetOrCreateSessionDecodesServerResponse(t *testing.T) {
	var gotAuth, gotTag string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/sessions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotTag, _ = body["tag"].(string)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(relaySession{ID: "s-1", Tag: gotTag})
	}))
	defer srv.Close()

	relay := newHTTPRelay(srv.URL, "secret")
	sess, ok, err := relay.GetOrCreateSession(context.Background(), "happier-proj-abcd1234-claude", nil, nil)
	if err != nil || !ok {
		t.Fatalf("GetOrCreateSession = ok=%v err=%v", ok, err)
	}
	if sess.ID != "s-1" {
		t.Fatalf("session id = %q", sess.ID)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotTag != "happier-proj-abcd1234-claude" {
		t.Fatalf("tag = %q", gotTag)
	}
}

func TestGetOrCreateSessionUnreachableIsRecoverable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	relay := newHTTPRelay(srv.URL, "")
	sess, ok, err := relay.GetOrCreateSession(context.Background(), "tag", nil, nil)
	if err != nil {
		t.Fatalf("unreachable server must not be fatal: %v", err)
	}
	if ok || sess != nil {
		t.Fatalf("ok=%v sess=%v, want offline signal", ok, sess)
	}
}

func TestGetOrCreateSessionRejectionIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	relay := newHTTPRelay(srv.URL, "bad-token")
	_, _, err := relay.GetOrCreateSession(context.Background(), "tag", nil, nil)
	if err == nil {
		t.Fatal("4xx must surface as a fatal error, not offline mode")
	}
}

func TestLiveBackendSendsToSessionScopedPaths(t *testing.T) {
	var mu sync.Mutex
	paths := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	relay := newHTTPRelay(srv.URL, "")
	b := &liveBackend{relay: relay, session: &relaySession{ID: "s-7"}, inbox: make(chan inboundEnvelope, 1)}
	ctx := context.Background()

	if err := b.SendMessage(ctx, normalizedPayload{Type: payloadText, Text: "hi"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if err := b.SendEvent(ctx, "ready", nil); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}
	if err := b.UpdateState(ctx, map[string]any{"mode": modeRemote}); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	if err := b.KeepAlive(ctx); err != nil {
		t.Fatalf("KeepAlive failed: %v", err)
	}
	if err := b.SendDeath(ctx); err != nil {
		t.Fatalf("SendDeath failed: %v", err)
	}

	want := []string{
		"/v1/sessions/s-7/messages",
		"/v1/sessions/s-7/events",
		"/v1/sessions/s-7/state",
		"/v1/sessions/s-7/keepalive",
		"/v1/sessions/s-7/death",
	}
	mu.Lock()
	defer mu.Unlock()
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("path %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestLiveBackendSendReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	relay := newHTTPRelay(srv.URL, "")
	b := &liveBackend{relay: relay, session: &relaySession{ID: "s-7"}, inbox: make(chan inboundEnvelope, 1)}
	if err := b.SendMessage(context.Background(), normalizedPayload{Type: payloadText}); err == nil {
		t.Fatal("expected error for 5xx response")
	}
}

func TestLiveBackendFetchInboxAdvancesCursor(t *testing.T) {
	var mu sync.Mutex
	cursors := []string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		cursors = append(cursors, r.URL.Query().Get("cursor"))
		n := len(cursors)
		mu.Unlock()
		resp := inboxResponse{Cursor: "c1"}
		if n == 1 {
			resp.Envelopes = []inboundEnvelope{{Kind: inboundMessage, Message: &userMessage{Text: "hello"}}}
		} else {
			resp.Cursor = "c2"
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	relay := newHTTPRelay(srv.URL, "")
	b := &liveBackend{relay: relay, session: &relaySession{ID: "s-7"}, inbox: make(chan inboundEnvelope, 1)}

	envelopes, err := b.fetchInbox(context.Background())
	if err != nil {
		t.Fatalf("fetchInbox failed: %v", err)
	}
	if len(envelopes) != 1 || envelopes[0].Kind != inboundMessage || envelopes[0].Message.Text != "hello" {
		t.Fatalf("envelopes = %+v", envelopes)
	}

	if _, err := b.fetchInbox(context.Background()); err != nil {
		t.Fatalf("second fetchInbox failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if cursors[0] != "" || cursors[1] != "c1" {
		t.Fatalf("cursors = %v, want empty then c1", cursors)
	}
}

func TestConnectDeliversInboxEnvelopes(t *testing.T) {
	t.Setenv("HAPPIER_INBOX_POLL_SECONDS", "1")

	var mu sync.Mutex
	served := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := inboxResponse{Cursor: "c1"}
		mu.Lock()
		if !served {
			served = true
			resp.Envelopes = []inboundEnvelope{{Kind: inboundSwitch}}
		}
		mu.Unlock()
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	relay := newHTTPRelay(srv.URL, "")
	backend := relay.Connect(ctx, &relaySession{ID: "s-7"})
	if !backend.Online() {
		t.Fatal("live backend must report online")
	}

	select {
	case env := <-backend.Inbox():
		if env.Kind != inboundSwitch {
			t.Fatalf("envelope kind = %q", env.Kind)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("inbox envelope never delivered")
	}
}

func TestIsUnreachable(t *testing.T) {
	if isUnreachable(nil) {
		t.Fatal("nil error is not unreachable")
	}
	if isUnreachable(context.Canceled) {
		t.Fatal("cancellation is not a connectivity failure")
	}
}
