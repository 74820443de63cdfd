package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// relayClient creates sessions against the session-sync server.
// getOrCreateSession returns ok=false when the server is unreachable; that
// is the recoverable signal that starts background reconnection. Any error
// is fatal and is not retried here.
type relayClient interface {
	GetOrCreateSession(ctx context.Context, tag string, metadata, state map[string]any) (*relaySession, bool, error)
	Connect(ctx context.Context, sess *relaySession) sessionBackend
}

type httpRelay struct {
	baseURL string
	token   string
	client  *http.Client
}

func newHTTPRelay(baseURL, token string) *httpRelay {
	timeout := time.Duration(getIntEnv("HAPPIER_HTTP_TIMEOUT_SECONDS", defaultHTTPTimeoutSeconds)) * time.Second
	return &httpRelay{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *httpRelay) GetOrCreateSession(ctx context.Context, tag string, metadata, state map[string]any) (*relaySession, bool, error) {
	body := map[string]any{"tag": tag, "metadata": metadata, "state": state}
	resp, err := r.post(ctx, "/v1/sessions", body)
	if err != nil {
		if isUnreachable(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, false, fmt.Errorf("relay rejected session create: %s", resp.Status)
	}
	var sess relaySession
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, false, fmt.Errorf("decode session response: %w", err)
	}
	return &sess, true, nil
}

// Connect builds the live handle and starts its inbox poll loop. The loop
// stops when ctx is cancelled.
func (r *httpRelay) Connect(ctx context.Context, sess *relaySession) sessionBackend {
	lb := &liveBackend{relay: r, session: sess, inbox: make(chan inboundEnvelope, 16)}
	go lb.pollInbox(ctx)
	return lb
}

func (r *httpRelay) post(ctx context.Context, path string, body any) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	return r.client.Do(req)
}

// isUnreachable distinguishes "server not there" (recoverable, enters
// offline mode) from everything else (fatal).
func isUnreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isUnreachable(urlErr.Err) || errors.Is(urlErr.Err, context.DeadlineExceeded)
	}
	return false
}

// liveBackend sends through the relay over JSON/HTTP. Sends are
// fire-and-forget: an HTTP failure is returned but callers treat delivery
// as best-effort.
type liveBackend struct {
	relay   *httpRelay
	session *relaySession
	inbox   chan inboundEnvelope

	mu     sync.Mutex
	cursor string
}

func (b *liveBackend) path(suffix string) string {
	return "/v1/sessions/" + url.PathEscape(b.session.ID) + suffix
}

func (b *liveBackend) send(ctx context.Context, suffix string, body any) error {
	resp, err := b.relay.post(ctx, b.path(suffix), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("relay %s: %s", suffix, resp.Status)
	}
	return nil
}

func (b *liveBackend) SendMessage(ctx context.Context, payload normalizedPayload) error {
	return b.send(ctx, "/messages", payload)
}

func (b *liveBackend) SendEvent(ctx context.Context, name string, payload any) error {
	return b.send(ctx, "/events", map[string]any{"name": name, "payload": payload})
}

func (b *liveBackend) SendDeath(ctx context.Context) error {
	return b.send(ctx, "/death", map[string]any{"at": time.Now().UTC().Format(time.RFC3339)})
}

func (b *liveBackend) UpdateMetadata(ctx context.Context, metadata map[string]any) error {
	return b.send(ctx, "/metadata", metadata)
}

func (b *liveBackend) UpdateState(ctx context.Context, state map[string]any) error {
	return b.send(ctx, "/state", state)
}

func (b *liveBackend) KeepAlive(ctx context.Context) error {
	return b.send(ctx, "/keepalive", map[string]any{"at": time.Now().Unix()})
}

func (b *liveBackend) RequestControl(ctx context.Context, target string) error {
	return b.send(ctx, "/control", map[string]any{"target": target})
}

func (b *liveBackend) Inbox() <-chan inboundEnvelope { return b.inbox }

func (b *liveBackend) Online() bool { return true }

type inboxResponse struct {
	Cursor    string            `json:"cursor"`
	Envelopes []inboundEnvelope `json:"envelopes"`
}

// pollInbox repeatedly fetches pending envelopes. Poll failures are
// tolerated; the next tick retries.
func (b *liveBackend) pollInbox(ctx context.Context) {
	interval := time.Duration(getIntEnv("HAPPIER_INBOX_POLL_SECONDS", defaultInboxPollSeconds)) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		envelopes, err := b.fetchInbox(ctx)
		if err != nil {
			continue
		}
		for _, env := range envelopes {
			select {
			case b.inbox <- env:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *liveBackend) fetchInbox(ctx context.Context) ([]inboundEnvelope, error) {
	b.mu.Lock()
	cursor := b.cursor
	b.mu.Unlock()

	target := b.relay.baseURL + b.path("/inbox") + "?cursor=" + url.QueryEscape(cursor) + "&limit=" + strconv.Itoa(32)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if b.relay.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.relay.token)
	}
	resp, err := b.relay.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay inbox: %s", resp.Status)
	}
	var decoded inboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	b.mu.Lock()
	if decoded.Cursor != "" {
		b.cursor = decoded.Cursor
	}
	b.mu.Unlock()
	return decoded.Envelopes, nil
}
