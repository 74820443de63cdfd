package app

import (
	"fmt"
	"os"
)

func Run(args []string) int {
	if len(args) < 1 {
		usage()
		return 1
	}

	cmd := args[0]
	rest := args[1:]

	switch cmd {
	case "run":
		return cmdRun(rest)
	case "doctor":
		return cmdDoctor(rest)
	case "agent":
		return cmdAgent(rest)
	case "session":
		return cmdSession(rest)
	case "version", "--version", "-version", "-v":
		fmt.Printf("happier %s (commit %s, built %s)\n", BuildVersion, BuildCommit, BuildDate)
		return 0
	case "help", "--help", "-h":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		return 1
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "happier <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run [--agent claude|codex] [--mode local|remote] [--dir PATH] [--server URL]")
	fmt.Fprintln(os.Stderr, "      [--resume] [--permission-mode MODE] [--model NAME] [--verbose] [--json]")
	fmt.Fprintln(os.Stderr, "  doctor [--server URL] [--json]")
	fmt.Fprintln(os.Stderr, "  session tail [--tag TAG | --dir PATH --agent NAME] [-n N] [--json]")
	fmt.Fprintln(os.Stderr, "  session show [--tag TAG | --dir PATH --agent NAME] [--json]")
	fmt.Fprintln(os.Stderr, "  agent build-cmd --agent claude|codex --mode local|remote [--permission-mode MODE]")
	fmt.Fprintln(os.Stderr, "      [--model NAME] [--resume ID] [--json]")
	fmt.Fprintln(os.Stderr, "  version (also: --version, -version, -v)")
}
