package app

import (
	"context"
	"sync"
	"time"
)

// sessionFactory attempts to establish a real relay session. ok=false means
// the server is still unreachable; err aborts the retry loop.
type sessionFactory func(ctx context.Context) (sessionBackend, bool, error)

const (
	reconnectDisconnected = "disconnected"
	reconnectRetrying     = "retrying"
	reconnectConnected    = "connected"
)

// reconnectionManager keeps retrying session creation in the background
// while the orchestrator runs against an offline stub. The first successful
// factory call triggers onSwap exactly once, then the manager retires
// itself. A manager is never reused; a later disconnect starts a new one.
type reconnectionManager struct {
	endpoint string
	interval time.Duration
	factory  sessionFactory
	onSwap   func(sessionBackend)
	notify   notifier

	mu          sync.Mutex
	state       string
	attempts    int
	lastAttempt time.Time
	swapped     bool

	cancel context.CancelFunc
	done   chan struct{}
}

type reconnectSnapshot struct {
	State       string
	Attempts    int
	LastAttempt time.Time
}

// startReconnectionManager spawns the retry loop. The loop stops the
// instant a swap succeeds or ctx is cancelled; no timer outlives it.
func startReconnectionManager(ctx context.Context, endpoint string, interval time.Duration, factory sessionFactory, onSwap func(sessionBackend), notify notifier) *reconnectionManager {
	if notify == nil {
		notify = nopNotifier{}
	}
	runCtx, cancel := context.WithCancel(ctx)
	m := &reconnectionManager{
		endpoint: endpoint,
		interval: interval,
		factory:  factory,
		onSwap:   onSwap,
		notify:   notify,
		state:    reconnectDisconnected,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	m.notify.Notify("relay unreachable at %s, continuing offline", endpoint)
	go m.run(runCtx)
	return m
}

func (m *reconnectionManager) run(ctx context.Context) {
	defer close(m.done)
	defer m.cancel()

	m.setState(reconnectRetrying)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		m.attempts++
		attempt := m.attempts
		m.lastAttempt = time.Now()
		m.mu.Unlock()

		backend, ok, err := m.factory(ctx)
		if err != nil {
			m.notify.Notify("reconnect attempt %d failed: %v", attempt, err)
			return
		}
		if !ok {
			m.notify.Verbose("reconnect attempt %d: relay still unreachable", attempt)
			continue
		}

		m.mu.Lock()
		if m.swapped {
			m.mu.Unlock()
			return
		}
		m.swapped = true
		m.state = reconnectConnected
		m.mu.Unlock()

		m.notify.Notify("reconnected to relay after %d attempts", attempt)
		m.onSwap(backend)
		return
	}
}

// Stop cancels the retry loop and waits for it to finish.
func (m *reconnectionManager) Stop() {
	m.cancel()
	<-m.done
}

func (m *reconnectionManager) setState(state string) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

func (m *reconnectionManager) Snapshot() reconnectSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return reconnectSnapshot{State: m.state, Attempts: m.attempts, LastAttempt: m.lastAttempt}
}
