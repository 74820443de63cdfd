package app

import (
	"context"
	"encoding/json"
	"time"
)

// runRemote drives the agent headlessly and relays its output to the
// mobile client. It returns when the mobile client or a dequeued request
// hands control back to local, when the agent dies, or on abort.
func (r *loopRunner) runRemote(ctx context.Context, s *session, queue *modeQueue) (loopReason, error) {
	for {
		spec, err := buildAgentSpec(s, modeRemote, r.resume)
		if err != nil {
			return reasonExit, err
		}

		handle, err := spawnAgentStreamFn(ctx, spec)
		if err != nil {
			return reasonExit, err
		}

		reason, restart, err := r.runRemoteTurns(ctx, s, queue, handle)
		if restart {
			continue
		}
		return reason, err
	}
}

func (r *loopRunner) runRemoteTurns(ctx context.Context, s *session, queue *modeQueue, handle *agentHandle) (loopReason, bool, error) {
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	reqCh := watchQueue(watchCtx, queue)

	keepAliveInterval := time.Duration(r.cfg.KeepAliveSeconds) * time.Second
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	acc := newReasoningAccumulator(reasoningProfileFor(s.Agent))
	events := handle.events

	for {
		// The backend reference may have been swapped by the reconnection
		// manager; re-read it every iteration.
		backend := s.Backend()

		select {
		case <-ctx.Done():
			// The death notice is the session teardown's responsibility.
			handle.Stop(stopGrace)
			return reasonExit, false, ctx.Err()

		case st := <-handle.exit:
			if ctx.Err() != nil {
				return reasonExit, false, ctx.Err()
			}
			r.flushReasoning(ctx, s, acc)
			if st.Code == 0 {
				r.logEvent(s, "agent-exit", string(reasonExit), "")
				return reasonExit, false, nil
			}
			r.notify.Notify("%s agent exited with code %d", reasoningProfileFor(s.Agent).LogPrefix, st.Code)
			r.logEvent(s, "agent-exit", string(reasonAgentExit), st.errDetail())
			return reasonAgentExit, false, nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.relayAgentEvent(ctx, s, acc, ev)

		case env := <-backend.Inbox():
			done, reason := r.handleInbound(ctx, s, queue, handle, env)
			if done {
				return reason, false, nil
			}

		case req := <-reqCh:
			if req.TargetMode == modeLocal {
				handle.Stop(stopGrace)
				_ = backend.RequestControl(ctx, modeLocal)
				r.logEvent(s, "mode-request", string(reasonSwitch), "")
				return reasonSwitch, false, nil
			}
			s.applyConfig(req)
			r.pushSessionConfig(ctx, s)
			handle.Stop(stopGrace)
			return "", true, nil

		case <-keepAlive.C:
			_ = backend.KeepAlive(ctx)
		}
	}
}

// relayAgentEvent feeds reasoning deltas through the accumulator and sends
// every other event through the normalizer. A non-reasoning event while a
// segment is open implies the segment completed.
func (r *loopRunner) relayAgentEvent(ctx context.Context, s *session, acc *reasoningAccumulator, ev agentEvent) {
	switch ev.Kind {
	case agentEventReasoningDelta:
		acc.ProcessInput(ev.Text)
		return
	case agentEventReasoningDone:
		completed := false
		if ev.Text != "" {
			completed = acc.CompleteWith(ev.Text)
		} else {
			completed = acc.Complete()
		}
		if completed {
			r.sendReasoningSegment(ctx, s, acc)
		}
		return
	}

	r.flushReasoning(ctx, s, acc)
	_ = s.Backend().SendMessage(ctx, normalizeAgentEvent(ev))
}

func (r *loopRunner) flushReasoning(ctx context.Context, s *session, acc *reasoningAccumulator) {
	if acc.Complete() {
		r.sendReasoningSegment(ctx, s, acc)
	}
}

func (r *loopRunner) sendReasoningSegment(ctx context.Context, s *session, acc *reasoningAccumulator) {
	segments := acc.Segments()
	seg := segments[len(segments)-1]
	_ = s.Backend().SendMessage(ctx, normalizedPayload{
		Type:     payloadReasoning,
		Text:     seg.Text,
		ToolName: seg.Tool,
	})
}

// handleInbound applies one envelope from the mobile client. Mode and
// configuration changes go through the queue so they serialize with every
// other producer.
func (r *loopRunner) handleInbound(ctx context.Context, s *session, queue *modeQueue, handle *agentHandle, env inboundEnvelope) (bool, loopReason) {
	switch env.Kind {
	case inboundMessage:
		if env.Message == nil {
			return false, ""
		}
		if env.Message.Meta.PermissionMode != "" || env.Message.Meta.Model != "" {
			queue.Enqueue(modeChangeRequest{
				TargetMode:     modeRemote,
				PermissionMode: env.Message.Meta.PermissionMode,
				Model:          env.Message.Meta.Model,
			})
		}
		if err := handle.WriteMessage(*env.Message); err != nil {
			r.notify.Notify("failed to deliver message to agent: %v", err)
		}
		return false, ""

	case inboundSwitch:
		handle.Stop(stopGrace)
		_ = s.Backend().RequestControl(ctx, modeLocal)
		r.logEvent(s, "control-transfer", string(reasonRemoteRequest), "")
		return true, reasonRemoteRequest

	case inboundPermissionMode:
		var body struct {
			PermissionMode string `json:"permissionMode"`
		}
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &body); err == nil && body.PermissionMode != "" {
				queue.Enqueue(modeChangeRequest{TargetMode: modeRemote, PermissionMode: body.PermissionMode})
			}
		}
		return false, ""

	case inboundReady:
		_ = s.Backend().SendEvent(ctx, "ready-ack", map[string]any{"session": s.ID})
		return false, ""

	default:
		// Unknown envelope kinds are surfaced, never dropped silently.
		_ = s.Backend().SendEvent(ctx, "unhandled-inbound", map[string]any{"kind": env.Kind})
		return false, ""
	}
}
