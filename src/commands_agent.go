package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"
)

type doctorCheck struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
}

func doctorReady(results []doctorCheck) bool {
	agentOK := false
	settingsOK := false
	for _, r := range results {
		if (r.Name == "claude" || r.Name == "codex") && r.Available {
			agentOK = true
		}
		if r.Name == "settings" && r.Available {
			settingsOK = true
		}
	}
	return agentOK && settingsOK
}

func cmdDoctor(args []string) int {
	server := ""
	jsonOut := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--server":
			if i+1 >= len(args) {
				return flagValueError("--server")
			}
			server = args[i+1]
			i++
		case "--json":
			jsonOut = true
		default:
			return unknownFlagError(args[i])
		}
	}

	results := []doctorCheck{}
	for _, bin := range []string{"claude", "codex"} {
		path, err := exec.LookPath(bin)
		if err != nil {
			results = append(results, doctorCheck{Name: bin, Available: false, Error: err.Error()})
			continue
		}
		results = append(results, doctorCheck{Name: bin, Available: true, Path: path})
	}

	cfg, err := loadSettings()
	if err != nil {
		results = append(results, doctorCheck{Name: "settings", Available: false, Error: err.Error()})
	} else {
		results = append(results, doctorCheck{Name: "settings", Available: true, Detail: cfg.ServerURL})
	}
	if server == "" {
		server = cfg.ServerURL
	}
	results = append(results, checkRelayReachable(server))

	caps := detectTerminalCaps()
	terminalDetail := "not a tty"
	if caps.Interactive {
		terminalDetail = fmt.Sprintf("%dx%d", caps.Width, caps.Height)
	}
	results = append(results, doctorCheck{Name: "terminal", Available: caps.Interactive, Detail: terminalDetail})

	allOK := doctorReady(results)

	if jsonOut {
		writeJSON(map[string]any{
			"ok":      allOK,
			"checks":  results,
			"version": BuildVersion,
			"commit":  BuildCommit,
			"date":    BuildDate,
		})
		return boolExit(allOK)
	}

	for _, r := range results {
		status := "missing"
		detail := r.Error
		if r.Available {
			status = "ok"
			detail = r.Path
			if detail == "" {
				detail = r.Detail
			}
		}
		fmt.Printf("%-7s %-9s %s\n", status, r.Name, detail)
	}
	if allOK {
		fmt.Println("doctor: ready")
		return 0
	}
	fmt.Println("doctor: missing prerequisites")
	return 1
}

// checkRelayReachable is advisory only; an unreachable relay still allows
// offline operation.
func checkRelayReachable(server string) doctorCheck {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(server, "/")+"/v1/health", nil)
	if err != nil {
		return doctorCheck{Name: "relay", Available: false, Error: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return doctorCheck{Name: "relay", Available: false, Detail: server, Error: err.Error()}
	}
	defer resp.Body.Close()
	return doctorCheck{Name: "relay", Available: resp.StatusCode < 500, Detail: server}
}

func cmdAgent(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: happier agent <subcommand>")
		return 1
	}
	switch args[0] {
	case "build-cmd":
		return cmdAgentBuildCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown agent subcommand: %s\n", args[0])
		return 1
	}
}

// cmdAgentBuildCmd prints the subprocess invocation the orchestrator would
// use, for debugging adapter changes without starting a session.
func cmdAgentBuildCmd(args []string) int {
	agent := "claude"
	mode := modeLocal
	permissionMode := ""
	model := ""
	resume := ""
	jsonOut := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--agent":
			if i+1 >= len(args) {
				return flagValueError("--agent")
			}
			agent = args[i+1]
			i++
		case "--mode":
			if i+1 >= len(args) {
				return flagValueError("--mode")
			}
			mode = args[i+1]
			i++
		case "--permission-mode":
			if i+1 >= len(args) {
				return flagValueError("--permission-mode")
			}
			permissionMode = args[i+1]
			i++
		case "--model":
			if i+1 >= len(args) {
				return flagValueError("--model")
			}
			model = args[i+1]
			i++
		case "--resume":
			if i+1 >= len(args) {
				return flagValueError("--resume")
			}
			resume = args[i+1]
			i++
		case "--json":
			jsonOut = true
		default:
			return unknownFlagError(args[i])
		}
	}

	agent, err := parseAgent(agent)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	mode, err = parseRunMode(mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	permissionMode, err = parsePermissionMode(permissionMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	wd, _ := os.Getwd()
	s := newSession(newSessionID(), "debug", agent, wd, mode, permissionMode, model, offlineBackend{})
	spec, err := buildAgentSpec(s, mode, resume)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	if jsonOut {
		writeJSON(map[string]any{
			"agent":   agent,
			"mode":    mode,
			"binary":  spec.Binary,
			"args":    spec.Args,
			"command": strings.Join(append([]string{spec.Binary}, spec.Args...), " "),
		})
		return 0
	}
	fmt.Println(strings.Join(append([]string{spec.Binary}, spec.Args...), " "))
	return 0
}
