package app

import (
	"context"
	"time"
)

const stopGrace = 5 * time.Second

// loopRunner holds the collaborators shared by both sub-loops. Terminal
// capabilities are explicit state passed in at construction, not a hidden
// first-call-wins cache.
type loopRunner struct {
	cfg        settings
	caps       terminalCaps
	notify     notifier
	runtimeDir string
	resume     string
}

// runLocal runs the agent attached to the user's terminal until the agent
// exits or a dequeued request targets remote mode. Configuration-only
// requests restart the agent with the new flags while staying local.
func (r *loopRunner) runLocal(ctx context.Context, s *session, queue *modeQueue) (loopReason, error) {
	for {
		spec, err := buildAgentSpec(s, modeLocal, r.resume)
		if err != nil {
			return reasonExit, err
		}

		cmd, exitCh, err := runAgentInteractiveFn(ctx, spec)
		if err != nil {
			return reasonExit, err
		}

		watchCtx, stopWatch := context.WithCancel(ctx)
		reqCh := watchQueue(watchCtx, queue)

		reason, restart, err := func() (loopReason, bool, error) {
			defer stopWatch()
			for {
				select {
				case <-ctx.Done():
					stopProcess(cmd, exitCh, stopGrace)
					return reasonExit, false, ctx.Err()

				case st := <-exitCh:
					if ctx.Err() != nil {
						return reasonExit, false, ctx.Err()
					}
					if st.Code == 0 {
						return reasonExit, false, nil
					}
					// Abnormal exit hands off; the remote side may be
					// able to recover the conversation.
					r.logEvent(s, "agent-exit", string(reasonAgentExit), st.errDetail())
					return reasonAgentExit, false, nil

				case req := <-reqCh:
					if req.TargetMode == modeRemote {
						stopProcess(cmd, exitCh, stopGrace)
						_ = s.Backend().RequestControl(ctx, modeRemote)
						r.logEvent(s, "mode-request", string(reasonSwitch), "")
						return reasonSwitch, false, nil
					}
					s.applyConfig(req)
					r.pushSessionConfig(ctx, s)
					stopProcess(cmd, exitCh, stopGrace)
					return "", true, nil
				}
			}
		}()
		if restart {
			continue
		}
		return reason, err
	}
}

// watchQueue forwards dequeued requests until ctx is cancelled. The
// watcher is torn down and recreated on every agent restart, so a request
// caught in flight at cancellation goes back to the queue head for the
// next watcher instead of being lost.
func watchQueue(ctx context.Context, queue *modeQueue) <-chan modeChangeRequest {
	out := make(chan modeChangeRequest)
	go func() {
		defer close(out)
		for {
			req, err := queue.Dequeue(ctx)
			if err != nil {
				return
			}
			select {
			case out <- req:
			case <-ctx.Done():
				queue.requeueFront(req)
				return
			}
		}
	}()
	return out
}

// pushSessionConfig mirrors the session's current configuration to the
// relay, best-effort.
func (r *loopRunner) pushSessionConfig(ctx context.Context, s *session) {
	permissionMode, model := s.Config()
	_ = s.Backend().UpdateMetadata(ctx, map[string]any{
		"permissionMode": permissionMode,
		"model":          model,
		"mode":           s.Mode(),
	})
}

func (r *loopRunner) logEvent(s *session, eventType, reason, detail string) {
	appendSessionEvent(r.runtimeDir, s.Tag, sessionEvent{
		At:     time.Now().UTC().Format(time.RFC3339),
		Type:   eventType,
		Mode:   s.Mode(),
		Reason: reason,
		Detail: detail,
	})
}

func (st exitStatus) errDetail() string {
	if st.Err == nil {
		return ""
	}
	return st.Err.Error()
}
