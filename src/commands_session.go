package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

func cmdSession(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: happier session <tail|show>")
		return 1
	}
	switch args[0] {
	case "tail":
		return cmdSessionTail(args[1:])
	case "show":
		return cmdSessionShow(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown session subcommand: %s\n", args[0])
		return 1
	}
}

// resolveSessionTag picks the runtime tag: an explicit --tag wins,
// otherwise the tag is recomputed from directory and agent the same way
// run derives it.
func resolveSessionTag(tag, dir, agent string) (string, error) {
	if tag != "" {
		return tag, nil
	}
	if agent == "" {
		cfg, err := loadSettings()
		if err != nil {
			return "", err
		}
		agent = cfg.DefaultAgent
	}
	agent, err := parseAgent(agent)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return generateSessionTag(dir, agent), nil
}

// cmdSessionTail prints the last recorded session events (mode handoffs,
// reconnects, agent exits) for diagnosing what a run did.
func cmdSessionTail(args []string) int {
	tag := ""
	dir := ""
	agent := ""
	n := 20
	jsonOut := hasJSONFlag(args)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--tag":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --tag")
			}
			tag = args[i+1]
			i++
		case "--dir":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --dir")
			}
			dir = args[i+1]
			i++
		case "--agent":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --agent")
			}
			agent = args[i+1]
			i++
		case "-n":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for -n")
			}
			v, err := strconv.Atoi(args[i+1])
			if err != nil || v < 0 {
				return commandErrorf(jsonOut, "invalid_flag_value", "invalid -n: %s", args[i+1])
			}
			n = v
			i++
		case "--json":
			jsonOut = true
		default:
			return commandErrorf(jsonOut, "unknown_flag", "unknown flag: %s", args[i])
		}
	}

	tag, err := resolveSessionTag(tag, dir, agent)
	if err != nil {
		return commandErrorf(jsonOut, "invalid_session", "cannot resolve session: %v", err)
	}
	rtDir, err := runtimeDir()
	if err != nil {
		return commandErrorf(jsonOut, "runtime_dir_failed", "cannot open runtime dir: %v", err)
	}
	events, err := readSessionEventTail(rtDir, tag, n)
	if err != nil {
		return commandErrorf(jsonOut, "no_event_log", "no event log for %s: %v", tag, err)
	}

	if jsonOut {
		writeJSON(map[string]any{"ok": true, "tag": tag, "events": events})
		return 0
	}
	for _, ev := range events {
		line := fmt.Sprintf("%s %-16s %s", ev.At, ev.Type, ev.Mode)
		if ev.Reason != "" {
			line += " " + ev.Reason
		}
		if ev.Detail != "" {
			line += " " + ev.Detail
		}
		fmt.Println(line)
	}
	return 0
}

// cmdSessionShow prints the persisted session metadata.
func cmdSessionShow(args []string) int {
	tag := ""
	dir := ""
	agent := ""
	jsonOut := hasJSONFlag(args)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--tag":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --tag")
			}
			tag = args[i+1]
			i++
		case "--dir":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --dir")
			}
			dir = args[i+1]
			i++
		case "--agent":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --agent")
			}
			agent = args[i+1]
			i++
		case "--json":
			jsonOut = true
		default:
			return commandErrorf(jsonOut, "unknown_flag", "unknown flag: %s", args[i])
		}
	}

	tag, err := resolveSessionTag(tag, dir, agent)
	if err != nil {
		return commandErrorf(jsonOut, "invalid_session", "cannot resolve session: %v", err)
	}
	rtDir, err := runtimeDir()
	if err != nil {
		return commandErrorf(jsonOut, "runtime_dir_failed", "cannot open runtime dir: %v", err)
	}
	meta, err := loadSessionMeta(rtDir, tag)
	if err != nil {
		return commandErrorf(jsonOut, "no_session_meta", "no session metadata for %s: %v", tag, err)
	}

	if jsonOut {
		writeJSON(map[string]any{"ok": true, "session": meta})
		return 0
	}
	fmt.Printf("session   %s\n", meta.Session)
	fmt.Printf("agent     %s\n", meta.Agent)
	fmt.Printf("mode      %s\n", meta.Mode)
	fmt.Printf("workDir   %s\n", meta.WorkDir)
	if meta.PermissionMode != "" {
		fmt.Printf("perm      %s\n", meta.PermissionMode)
	}
	if meta.Model != "" {
		fmt.Printf("model     %s\n", meta.Model)
	}
	fmt.Printf("created   %s\n", meta.CreatedAt)
	return 0
}
