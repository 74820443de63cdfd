package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

func cmdRun(args []string) int {
	agent := ""
	mode := ""
	dir := ""
	server := ""
	resume := false
	permissionMode := ""
	model := ""
	verbose := false
	jsonOut := hasJSONFlag(args)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--agent":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --agent")
			}
			agent = args[i+1]
			i++
		case "--mode":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --mode")
			}
			mode = args[i+1]
			i++
		case "--dir":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --dir")
			}
			dir = args[i+1]
			i++
		case "--server":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --server")
			}
			server = args[i+1]
			i++
		case "--resume":
			resume = true
		case "--permission-mode":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --permission-mode")
			}
			permissionMode = args[i+1]
			i++
		case "--model":
			if i+1 >= len(args) {
				return commandError(jsonOut, "missing_flag_value", "missing value for --model")
			}
			model = args[i+1]
			i++
		case "--verbose":
			verbose = true
		case "--json":
			jsonOut = true
		default:
			return commandErrorf(jsonOut, "unknown_flag", "unknown flag: %s", args[i])
		}
	}

	cfg, err := loadSettings()
	if err != nil {
		return commandErrorf(jsonOut, "invalid_settings", "cannot load settings: %v", err)
	}
	if agent == "" {
		agent = cfg.DefaultAgent
	}
	agent, err = parseAgent(agent)
	if err != nil {
		return commandError(jsonOut, "invalid_agent", err.Error())
	}
	mode, err = parseRunMode(mode)
	if err != nil {
		return commandError(jsonOut, "invalid_mode", err.Error())
	}
	if permissionMode == "" {
		permissionMode = cfg.DefaultPermissionMode
	}
	permissionMode, err = parsePermissionMode(permissionMode)
	if err != nil {
		return commandError(jsonOut, "invalid_permission_mode", err.Error())
	}
	if model == "" {
		model = cfg.DefaultModel
	}
	if server != "" {
		cfg.ServerURL = server
	}

	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return commandErrorf(jsonOut, "invalid_dir", "cannot determine working directory: %v", err)
		}
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return commandErrorf(jsonOut, "invalid_dir", "invalid --dir: %v", err)
	}

	var notify notifier = consoleNotifier{verbose: verbose}
	if jsonOut {
		notify = nopNotifier{}
	}

	caps := detectTerminalCaps()
	if mode == modeLocal && !caps.Interactive {
		notify.Notify("no interactive terminal detected, starting in remote mode")
		mode = modeRemote
	}

	machine, err := machineID()
	if err != nil {
		return commandErrorf(jsonOut, "machine_id_failed", "cannot establish machine id: %v", err)
	}
	rtDir, err := runtimeDir()
	if err != nil {
		return commandErrorf(jsonOut, "runtime_dir_failed", "cannot create runtime dir: %v", err)
	}

	tag := generateSessionTag(dir, agent)
	meta := newSessionMeta(tag, agent, mode, dir, permissionMode, model, machine)
	if err := saveSessionMeta(rtDir, tag, meta); err != nil {
		return commandErrorf(jsonOut, "meta_write_failed", "cannot persist session metadata: %v", err)
	}

	resumeID := ""
	if resume {
		resumeID, err = findResumeID(agent, dir)
		if err != nil {
			notify.Notify("no prior %s session to resume: %v", agent, err)
			resumeID = ""
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exit, err := runOrchestration(ctx, cfg, caps, notify, rtDir, tag, agent, dir, mode, permissionMode, model, machine, resumeID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return commandErrorf(jsonOut, "orchestration_failed", "fatal: %v", err)
	}
	return exit
}

// runOrchestration wires the relay connection, the reconnection manager
// and the orchestrator, then blocks until the session ends.
func runOrchestration(ctx context.Context, cfg settings, caps terminalCaps, notify notifier, rtDir, tag, agent, dir, mode, permissionMode, model, machine, resumeID string) (int, error) {
	relay := newHTTPRelay(cfg.ServerURL, cfg.Token)
	metadata := map[string]any{
		"agent":          agent,
		"workDir":        dir,
		"machineId":      machine,
		"permissionMode": permissionMode,
		"model":          model,
	}
	state := map[string]any{"mode": mode}

	rs, ok, err := relay.GetOrCreateSession(ctx, tag, metadata, state)
	if err != nil {
		return 1, err
	}

	queue := newModeQueue()
	s := newSession(newSessionID(), tag, agent, dir, mode, permissionMode, model, offlineBackend{})

	var mgr *reconnectionManager
	if ok {
		s.SwapBackend(relay.Connect(ctx, rs))
	} else {
		factory := func(fctx context.Context) (sessionBackend, bool, error) {
			created, reachable, ferr := relay.GetOrCreateSession(fctx, tag, metadata, state)
			if ferr != nil || !reachable {
				return nil, false, ferr
			}
			return relay.Connect(ctx, created), true, nil
		}
		onSwap := func(b sessionBackend) {
			s.SwapBackend(b)
			appendSessionEvent(rtDir, tag, sessionEvent{
				At:   time.Now().UTC().Format(time.RFC3339),
				Type: "reconnected",
				Mode: s.Mode(),
			})
		}
		interval := time.Duration(cfg.RetryIntervalSeconds) * time.Second
		mgr = startReconnectionManager(ctx, cfg.ServerURL, interval, factory, onSwap, notify)
	}

	runner := &loopRunner{cfg: cfg, caps: caps, notify: notify, runtimeDir: rtDir, resume: resumeID}
	onReady := func(sess *session) {
		_ = sess.Backend().SendEvent(ctx, "ready", map[string]any{"session": sess.ID, "mode": sess.Mode()})
		appendSessionEvent(rtDir, tag, sessionEvent{
			At:   time.Now().UTC().Format(time.RFC3339),
			Type: "session-ready",
			Mode: sess.Mode(),
		})
	}
	orch := newOrchestrator(s, queue, mode, runner.runLocal, runner.runRemote, onReady, notify)

	go func() {
		for ev := range orch.ModeEvents() {
			_ = s.Backend().UpdateState(ctx, map[string]any{"mode": ev.Mode})
			appendSessionEvent(rtDir, tag, sessionEvent{
				At:   ev.At.UTC().Format(time.RFC3339),
				Type: "mode-change",
				Mode: ev.Mode,
			})
		}
	}()

	runErr := orch.Run(ctx)
	if mgr != nil {
		mgr.Stop()
		snap := mgr.Snapshot()
		appendSessionEvent(rtDir, tag, sessionEvent{
			At:     time.Now().UTC().Format(time.RFC3339),
			Type:   "reconnect-state",
			Mode:   s.Mode(),
			Reason: snap.State,
			Detail: fmt.Sprintf("%d attempts", snap.Attempts),
		})
	}

	deathCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.Backend().SendDeath(deathCtx)

	if runErr != nil {
		return 1, runErr
	}
	return 0, nil
}
