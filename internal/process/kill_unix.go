//go:build !windows

package process

import (
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureCommand starts the child in its own process group so the whole
// group can be signalled at once.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killTree kills the process group led by p, then any descendants that moved
// to another group, then p itself.
func killTree(p *os.Process, logger *slog.Logger) error {
	if p == nil {
		return nil
	}

	procs := descendants(p.Pid)

	if err := unix.Kill(-p.Pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
		logger.Debug("failed to kill process group", "pgid", p.Pid, "error", err)
	}
	killProcesses(procs, logger)

	if err := p.Kill(); !isProcessDone(err) {
		return err
	}
	return nil
}
