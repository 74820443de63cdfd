package app

import "encoding/json"

// Agent event kinds produced by the subprocess stream. The mapping table in
// normalizeAgentEvent is closed and total over this set; any other kind
// degrades to a generic event payload so no information is lost.
const (
	agentEventText = "assistant_text"
	// Reasoning deltas are accumulated by the active sub-loop before they
	// reach the normalizer; only completed segments normalize directly.
	agentEventReasoningDelta = "reasoning_delta"
	agentEventReasoningDone  = "reasoning_done"
	agentEventReasoning      = "reasoning"
	agentEventToolUse        = "tool_use"
	agentEventToolResult     = "tool_result"
	agentEventPermission     = "permission_request"
	agentEventFileEdit       = "file_edit"
	agentEventTerminal       = "terminal_output"
	agentEventTurnDone       = "turn_complete"
	agentEventError          = "error"
	agentEventLog            = "log"
)

// agentEvent is one decoded line from the agent's stdout stream. Raw keeps
// the original bytes for diagnostics.
type agentEvent struct {
	Kind    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Text    string          `json:"text,omitempty"`
	Tool    string          `json:"tool,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
	Result  string          `json:"result,omitempty"`
	Path    string          `json:"path,omitempty"`
	Diff    string          `json:"diff,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// normalizedPayload is the canonical outbound message. Exactly one shape is
// populated per Type; the mobile client never sees agent-specific shapes.
type normalizedPayload struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	ToolName     string          `json:"toolName,omitempty"`
	ToolArgs     json.RawMessage `json:"toolArgs,omitempty"`
	ToolResult   string          `json:"toolResult,omitempty"`
	Permission   json.RawMessage `json:"permission,omitempty"`
	FilePath     string          `json:"filePath,omitempty"`
	FileDiff     string          `json:"fileDiff,omitempty"`
	Terminal     string          `json:"terminal,omitempty"`
	EventName    string          `json:"eventName,omitempty"`
	EventPayload json.RawMessage `json:"eventPayload,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

const (
	payloadText       = "text"
	payloadReasoning  = "reasoning"
	payloadToolCall   = "tool-call"
	payloadToolResult = "tool-result"
	payloadPermission = "permission-request"
	payloadFileEdit   = "file-edit"
	payloadTerminal   = "terminal"
	payloadTurnDone   = "turn-complete"
	payloadError      = "error"
	payloadEvent      = "event"
)

// normalizeAgentEvent maps every agent event to exactly one canonical
// payload. Unmapped kinds are not dropped: they become a generic event
// carrying the original kind and payload unchanged.
func normalizeAgentEvent(ev agentEvent) normalizedPayload {
	switch ev.Kind {
	case agentEventText:
		return normalizedPayload{Type: payloadText, Text: ev.Text, Raw: ev.Raw}
	case agentEventReasoning:
		return normalizedPayload{Type: payloadReasoning, Text: ev.Text, ToolName: ev.Tool, Raw: ev.Raw}
	case agentEventToolUse:
		return normalizedPayload{Type: payloadToolCall, ToolName: ev.Tool, ToolArgs: ev.Args, Raw: ev.Raw}
	case agentEventToolResult:
		return normalizedPayload{Type: payloadToolResult, ToolName: ev.Tool, ToolResult: ev.Result, Raw: ev.Raw}
	case agentEventPermission:
		return normalizedPayload{Type: payloadPermission, Permission: ev.Payload, ToolName: ev.Tool, Raw: ev.Raw}
	case agentEventFileEdit:
		return normalizedPayload{Type: payloadFileEdit, FilePath: ev.Path, FileDiff: ev.Diff, Raw: ev.Raw}
	case agentEventTerminal:
		return normalizedPayload{Type: payloadTerminal, Terminal: ev.Text, Raw: ev.Raw}
	case agentEventTurnDone:
		return normalizedPayload{Type: payloadTurnDone, Raw: ev.Raw}
	case agentEventError:
		return normalizedPayload{Type: payloadError, Text: ev.Text, Raw: ev.Raw}
	case agentEventLog:
		return normalizedPayload{Type: payloadEvent, EventName: agentEventLog, Text: ev.Text, Raw: ev.Raw}
	default:
		return normalizedPayload{Type: payloadEvent, EventName: ev.Kind, EventPayload: ev.Payload, Raw: ev.Raw}
	}
}

// userMessage is an inbound text message from the mobile client.
type userMessage struct {
	Text     string          `json:"text"`
	LocalKey string          `json:"localKey,omitempty"`
	Meta     userMessageMeta `json:"meta,omitempty"`
}

type userMessageMeta struct {
	PermissionMode string `json:"permissionMode,omitempty"`
	Model          string `json:"model,omitempty"`
	Sender         string `json:"sender,omitempty"`
}

// encodeUserMessage maps a mobile-originated message into the canonical
// inbound wire shape fed to the agent's stdin.
func encodeUserMessage(msg userMessage) ([]byte, error) {
	wire := struct {
		Type string `json:"type"`
		Role string `json:"role"`
		Text string `json:"text"`
	}{
		Type: "user_message",
		Role: "user",
		Text: msg.Text,
	}
	return json.Marshal(wire)
}
