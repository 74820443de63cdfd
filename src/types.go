package app

const (
	modeLocal  = "local"
	modeRemote = "remote"

	defaultServerURL            = "https://relay.happier.dev"
	defaultRetryIntervalSeconds = 5
	defaultKeepAliveSeconds     = 20
	defaultHTTPTimeoutSeconds   = 10
	defaultInboxPollSeconds     = 2
)

// Loop reasons returned by sub-loops. reasonExit is the only terminal
// reason; every other value hands control to the opposite mode.
type loopReason string

const (
	reasonExit          loopReason = "exit"
	reasonSwitch        loopReason = "switch"
	reasonAgentExit     loopReason = "agent-exit"
	reasonRemoteRequest loopReason = "remote-request"
)

// modeChangeRequest is immutable once enqueued and consumed exactly once,
// in FIFO order, by the active sub-loop.
type modeChangeRequest struct {
	TargetMode      string   `json:"targetMode"`
	PermissionMode  string   `json:"permissionMode,omitempty"`
	Model           string   `json:"model,omitempty"`
	SystemPrompt    string   `json:"systemPrompt,omitempty"`
	AppendPrompt    string   `json:"appendPrompt,omitempty"`
	AllowedTools    []string `json:"allowedTools,omitempty"`
	DisallowedTools []string `json:"disallowedTools,omitempty"`
}

type sessionMeta struct {
	Session        string `json:"session"`
	Agent          string `json:"agent"`
	Mode           string `json:"mode"`
	WorkDir        string `json:"workDir"`
	PermissionMode string `json:"permissionMode,omitempty"`
	Model          string `json:"model,omitempty"`
	MachineID      string `json:"machineId,omitempty"`
	CreatedAt      string `json:"createdAt"`
}

type sessionEvent struct {
	At     string `json:"at"`
	Type   string `json:"type"`
	Mode   string `json:"mode,omitempty"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}
