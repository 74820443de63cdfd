package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// agentSpec is everything needed to start the agent subprocess.
type agentSpec struct {
	Binary string
	Args   []string
	Env    []string
	Dir    string
}

type exitStatus struct {
	Code int
	Err  error
}

var spawnAgentStreamFn = spawnAgentStream
var runAgentInteractiveFn = runAgentInteractive

// agentHandle is a headless agent subprocess with a decoded event stream.
// events closes on stdout EOF; exit delivers exactly once.
type agentHandle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan agentEvent
	exit   chan exitStatus
}

// spawnAgentStream starts the agent in streaming mode: stdout is a JSONL
// event stream, stdin accepts canonical user messages. A missing binary is
// a fatal spawn error, not a recoverable condition.
func spawnAgentStream(ctx context.Context, spec agentSpec) (*agentHandle, error) {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", spec.Binary, err)
	}

	h := &agentHandle{
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan agentEvent, 32),
		exit:   make(chan exitStatus, 1),
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		h.readEvents(stdout)
	}()
	go func() {
		// os/exec requires all reads from StdoutPipe to complete before
		// Wait, which closes the pipe.
		<-readDone
		err := cmd.Wait()
		h.exit <- exitStatus{Code: cmd.ProcessState.ExitCode(), Err: err}
	}()
	return h, nil
}

// readEvents decodes one agent event per stdout line. Lines that are not
// JSON objects become log events so nothing is silently dropped.
func (h *agentHandle) readEvents(stdout io.Reader) {
	defer close(h.events)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		raw := json.RawMessage([]byte(line))
		var ev agentEvent
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Kind == "" {
			h.events <- agentEvent{Kind: agentEventLog, Text: line, Raw: raw}
			continue
		}
		ev.Raw = raw
		h.events <- ev
	}
}

// WriteMessage delivers one canonical inbound message to the agent.
func (h *agentHandle) WriteMessage(msg userMessage) error {
	wire, err := encodeUserMessage(msg)
	if err != nil {
		return err
	}
	_, err = h.stdin.Write(append(wire, '\n'))
	return err
}

// Stop interrupts the agent and waits for exit, escalating to kill after
// the grace period. Returns the final exit status.
func (h *agentHandle) Stop(grace time.Duration) exitStatus {
	return stopProcess(h.cmd, h.exit, grace)
}

// runAgentInteractive starts the agent attached to the caller's terminal.
// The returned channel delivers the exit status exactly once.
func runAgentInteractive(ctx context.Context, spec agentSpec) (*exec.Cmd, <-chan exitStatus, error) {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("spawn %s: %w", spec.Binary, err)
	}

	exit := make(chan exitStatus, 1)
	go func() {
		err := cmd.Wait()
		exit <- exitStatus{Code: cmd.ProcessState.ExitCode(), Err: err}
	}()
	return cmd, exit, nil
}

func stopProcess(cmd *exec.Cmd, exit <-chan exitStatus, grace time.Duration) exitStatus {
	if cmd.Process == nil {
		return exitStatus{Code: -1}
	}
	_ = cmd.Process.Signal(os.Interrupt)
	select {
	case st := <-exit:
		return st
	case <-time.After(grace):
	}
	_ = cmd.Process.Kill()
	return <-exit
}
