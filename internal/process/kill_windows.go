//go:build windows

package process

import (
	"log/slog"
	"os"
	"os/exec"
	"slices"
)

func configureCommand(*exec.Cmd) {}

// killTree kills every descendant of p, deepest first, and then p.
func killTree(p *os.Process, logger *slog.Logger) error {
	if p == nil {
		return nil
	}

	procs := descendants(p.Pid)
	slices.Reverse(procs)
	killProcesses(procs, logger)

	if err := p.Kill(); !isProcessDone(err) {
		return err
	}
	return nil
}
