package app

import (
	"context"
	"encoding/json"
)

// relaySession is the server's record of one logical conversation.
type relaySession struct {
	ID       string         `json:"id"`
	Tag      string         `json:"tag"`
	Token    string         `json:"token,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	State    map[string]any `json:"state,omitempty"`
}

// Inbound envelope kinds delivered by the relay.
const (
	inboundMessage        = "message"
	inboundSwitch         = "switch"
	inboundPermissionMode = "permission-mode-changed"
	inboundReady          = "ready"
)

type inboundEnvelope struct {
	Kind    string          `json:"kind"`
	Message *userMessage    `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// sessionBackend is the closed set of relay-session implementations the
// orchestrator sends through: offlineBackend (every send is a no-op) and
// liveBackend (HTTP relay client). All operations are best-effort; there is
// no delivery acknowledgment beyond "accepted for send".
type sessionBackend interface {
	SendMessage(ctx context.Context, payload normalizedPayload) error
	SendEvent(ctx context.Context, name string, payload any) error
	SendDeath(ctx context.Context) error
	UpdateMetadata(ctx context.Context, metadata map[string]any) error
	UpdateState(ctx context.Context, state map[string]any) error
	KeepAlive(ctx context.Context) error
	RequestControl(ctx context.Context, target string) error

	// Inbox delivers mobile-originated messages and session events. The
	// channel never delivers on an offline backend.
	Inbox() <-chan inboundEnvelope

	Online() bool
}

// offlineBackend is the null-object session handle used while the relay
// server is unreachable. Agent output is dropped, not lost to errors.
type offlineBackend struct{}

func (offlineBackend) SendMessage(context.Context, normalizedPayload) error { return nil }
func (offlineBackend) SendEvent(context.Context, string, any) error         { return nil }
func (offlineBackend) SendDeath(context.Context) error                      { return nil }
func (offlineBackend) UpdateMetadata(context.Context, map[string]any) error { return nil }
func (offlineBackend) UpdateState(context.Context, map[string]any) error    { return nil }
func (offlineBackend) KeepAlive(context.Context) error                      { return nil }
func (offlineBackend) RequestControl(context.Context, string) error         { return nil }
func (offlineBackend) Online() bool                                         { return false }

var _ sessionBackend = offlineBackend{}

// neverInbox blocks forever; offline sessions receive nothing.
var neverInbox = make(chan inboundEnvelope)

func (offlineBackend) Inbox() <-chan inboundEnvelope { return neverInbox }
