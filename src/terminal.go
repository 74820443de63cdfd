package app

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// terminalCaps is explicit process-scoped state describing the terminal
// the CLI was started from. It is detected once at startup and passed to
// the components that need it; nothing caches it behind a global.
type terminalCaps struct {
	Interactive bool
	Width       int
	Height      int
}

func detectTerminalCaps() terminalCaps {
	caps := terminalCaps{}
	stdinFd := os.Stdin.Fd()
	stdoutFd := os.Stdout.Fd()

	stdinTTY := isatty.IsTerminal(stdinFd) || isatty.IsCygwinTerminal(stdinFd)
	stdoutTTY := isatty.IsTerminal(stdoutFd) || isatty.IsCygwinTerminal(stdoutFd)
	caps.Interactive = stdinTTY && stdoutTTY

	if caps.Interactive {
		if width, height, err := term.GetSize(int(stdoutFd)); err == nil {
			caps.Width = width
			caps.Height = height
		}
	}
	return caps
}
