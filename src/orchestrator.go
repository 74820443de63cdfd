package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// session identifies one continuous logical conversation with an agent
// process. The relay backend is the only field touched by two actors
// (orchestrator sends, reconnection manager swaps); it is replaced as a
// whole reference, never partially mutated.
type session struct {
	ID      string
	Tag     string
	Agent   string
	WorkDir string

	backend atomic.Pointer[backendBox]

	mu              sync.Mutex
	mode            string
	permissionMode  string
	model           string
	systemPrompt    string
	appendPrompt    string
	allowedTools    []string
	disallowedTools []string
}

type backendBox struct {
	backend sessionBackend
}

func newSession(id, tag, agent, workDir, mode, permissionMode, model string, backend sessionBackend) *session {
	s := &session{
		ID:             id,
		Tag:            tag,
		Agent:          agent,
		WorkDir:        workDir,
		mode:           mode,
		permissionMode: permissionMode,
		model:          model,
	}
	s.backend.Store(&backendBox{backend: backend})
	return s
}

func (s *session) Backend() sessionBackend {
	return s.backend.Load().backend
}

// SwapBackend atomically replaces the relay handle. An in-flight send
// completes against either the old or the new handle, never a mix.
func (s *session) SwapBackend(b sessionBackend) {
	s.backend.Store(&backendBox{backend: b})
}

func (s *session) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *session) setMode(mode string) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

func (s *session) Config() (permissionMode, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permissionMode, s.model
}

// promptConfig returns the prompt and tool-policy overrides applied by
// mode change requests.
func (s *session) promptConfig() promptOverrides {
	s.mu.Lock()
	defer s.mu.Unlock()
	return promptOverrides{
		SystemPrompt:    s.systemPrompt,
		AppendPrompt:    s.appendPrompt,
		AllowedTools:    append([]string(nil), s.allowedTools...),
		DisallowedTools: append([]string(nil), s.disallowedTools...),
	}
}

// applyConfig applies the non-mode fields of a dequeued request. Empty
// fields leave the current value in place.
func (s *session) applyConfig(req modeChangeRequest) {
	s.mu.Lock()
	if req.PermissionMode != "" {
		s.permissionMode = req.PermissionMode
	}
	if req.Model != "" {
		s.model = req.Model
	}
	if req.SystemPrompt != "" {
		s.systemPrompt = req.SystemPrompt
	}
	if req.AppendPrompt != "" {
		s.appendPrompt = req.AppendPrompt
	}
	if len(req.AllowedTools) > 0 {
		s.allowedTools = append([]string(nil), req.AllowedTools...)
	}
	if len(req.DisallowedTools) > 0 {
		s.disallowedTools = append([]string(nil), req.DisallowedTools...)
	}
	s.mu.Unlock()
}

// modeEvent is emitted on the orchestrator's event channel before the
// newly selected sub-loop starts.
type modeEvent struct {
	Mode string
	At   time.Time
}

// subLoopFunc runs one mode until it decides to hand off or exit. A
// returned error is fatal and propagates to the process boundary.
type subLoopFunc func(ctx context.Context, s *session, queue *modeQueue) (loopReason, error)

// orchestrator owns the local/remote state machine. All collaborators are
// injected at construction; exactly one sub-loop is active at any time.
type orchestrator struct {
	session     *session
	queue       *modeQueue
	initialMode string

	runLocal  subLoopFunc
	runRemote subLoopFunc

	onSessionReady func(*session)
	modeEvents     chan modeEvent
	notify         notifier
}

func newOrchestrator(s *session, queue *modeQueue, initialMode string, runLocal, runRemote subLoopFunc, onReady func(*session), notify notifier) *orchestrator {
	if initialMode != modeRemote {
		initialMode = modeLocal
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &orchestrator{
		session:        s,
		queue:          queue,
		initialMode:    initialMode,
		runLocal:       runLocal,
		runRemote:      runRemote,
		onSessionReady: onReady,
		modeEvents:     make(chan modeEvent, 8),
		notify:         notify,
	}
}

// ModeEvents exposes mode transitions as a typed event stream. Every
// transition is delivered; a consumer that stops draining before Run
// returns stalls the handoff once the buffer fills.
func (o *orchestrator) ModeEvents() <-chan modeEvent {
	return o.modeEvents
}

// Run drives the state machine until a sub-loop returns reasonExit or a
// fatal error. Handoff between modes is synchronous and unconditional:
// any non-exit reason flips the mode and immediately starts the other
// sub-loop.
func (o *orchestrator) Run(ctx context.Context) error {
	defer close(o.modeEvents)

	if o.onSessionReady != nil {
		o.onSessionReady(o.session)
	}

	mode := o.initialMode
	o.session.setMode(mode)

	for {
		loop := o.runLocal
		if mode == modeRemote {
			loop = o.runRemote
		}

		reason, err := loop(ctx, o.session, o.queue)
		if err != nil {
			return fmt.Errorf("%s loop: %w", mode, err)
		}
		if reason == reasonExit {
			return nil
		}

		mode = otherMode(mode)
		o.session.setMode(mode)
		o.emitModeEvent(mode)
		o.notify.Notify("switched to %s mode (%s)", mode, reason)
	}
}

// emitModeEvent blocks until the transition is accepted. Dropping one
// would desync the relay's mode state from the session's.
func (o *orchestrator) emitModeEvent(mode string) {
	o.modeEvents <- modeEvent{Mode: mode, At: time.Now()}
}

func otherMode(mode string) string {
	if mode == modeLocal {
		return modeRemote
	}
	return modeLocal
}
