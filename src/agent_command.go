package app

import (
	"fmt"
	"os"
	"strings"
)

func parseAgent(agent string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(agent)) {
	case "", "claude":
		return "claude", nil
	case "codex":
		return "codex", nil
	default:
		return "", fmt.Errorf("invalid agent: %s (expected claude|codex)", agent)
	}
}

func parseRunMode(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", modeLocal:
		return modeLocal, nil
	case modeRemote:
		return modeRemote, nil
	default:
		return "", fmt.Errorf("invalid mode: %s (expected local|remote)", mode)
	}
}

func parsePermissionMode(mode string) (string, error) {
	switch strings.TrimSpace(mode) {
	case "":
		return "default", nil
	case "default", "acceptEdits", "plan", "bypassPermissions":
		return strings.TrimSpace(mode), nil
	default:
		return "", fmt.Errorf("invalid permission mode: %s (expected default|acceptEdits|plan|bypassPermissions)", mode)
	}
}

// promptOverrides are the optional prompt and tool-policy settings a mode
// change request can carry. Only claude exposes matching flags; codex
// invocations ignore them.
type promptOverrides struct {
	SystemPrompt    string
	AppendPrompt    string
	AllowedTools    []string
	DisallowedTools []string
}

// buildAgentSpec constructs the subprocess invocation for the session's
// agent in the given mode. Local attaches the agent's own terminal UI;
// remote runs the streaming wire protocol.
func buildAgentSpec(s *session, mode, resume string) (agentSpec, error) {
	permissionMode, model := s.Config()
	switch s.Agent {
	case "claude":
		return buildClaudeSpec(s.WorkDir, mode, permissionMode, model, resume, s.promptConfig()), nil
	case "codex":
		return buildCodexSpec(s.WorkDir, mode, permissionMode, model, resume), nil
	default:
		return agentSpec{}, fmt.Errorf("invalid agent: %s", s.Agent)
	}
}

func buildClaudeSpec(workDir, mode, permissionMode, model, resume string, prompts promptOverrides) agentSpec {
	var args []string
	if mode == modeRemote {
		args = append(args,
			"--input-format", "stream-json",
			"--output-format", "stream-json",
			"--verbose",
		)
	}
	if permissionMode != "" && permissionMode != "default" {
		args = append(args, "--permission-mode", permissionMode)
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	if resume != "" {
		args = append(args, "--resume", resume)
	}
	if prompts.SystemPrompt != "" {
		args = append(args, "--system-prompt", prompts.SystemPrompt)
	}
	if prompts.AppendPrompt != "" {
		args = append(args, "--append-system-prompt", prompts.AppendPrompt)
	}
	if len(prompts.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(prompts.AllowedTools, ","))
	}
	if len(prompts.DisallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(prompts.DisallowedTools, ","))
	}
	return agentSpec{Binary: "claude", Args: args, Env: os.Environ(), Dir: workDir}
}

func buildCodexSpec(workDir, mode, permissionMode, model, resume string) agentSpec {
	var args []string
	if mode == modeRemote {
		args = append(args, "exec", "--json")
	}
	if resume != "" {
		args = append(args, "resume", resume)
	}
	if model != "" {
		args = append(args, "-m", model)
	}
	if sandbox := codexSandboxFlag(permissionMode); sandbox != "" {
		args = append(args, "--sandbox", sandbox)
	}
	return agentSpec{Binary: "codex", Args: args, Env: os.Environ(), Dir: workDir}
}

// codexSandboxFlag maps the canonical permission modes onto codex's
// sandbox policies.
func codexSandboxFlag(permissionMode string) string {
	switch permissionMode {
	case "acceptEdits":
		return "workspace-write"
	case "bypassPermissions":
		return "danger-full-access"
	case "plan":
		return "read-only"
	default:
		return ""
	}
}

func reasoningProfileFor(agent string) reasoningProfile {
	if agent == "codex" {
		return codexReasoningProfile
	}
	return claudeReasoningProfile
}
