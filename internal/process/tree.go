package process

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	psprocess "github.com/shirou/gopsutil/v4/process"
)

const treeWalkTimeout = 2 * time.Second

// descendants returns every process below pid, parents before children.
// Processes that exit during the walk are skipped.
func descendants(pid int) []*psprocess.Process {
	ctx, cancel := context.WithTimeout(context.Background(), treeWalkTimeout)
	defer cancel()

	root, err := psprocess.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil
	}

	var out []*psprocess.Process
	seen := map[int32]bool{root.Pid: true}
	queue := []*psprocess.Process{root}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		children, err := p.ChildrenWithContext(ctx)
		if err != nil {
			continue
		}
		for _, child := range children {
			if seen[child.Pid] {
				continue
			}
			seen[child.Pid] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// killProcesses kills each process, ignoring ones that already exited.
func killProcesses(procs []*psprocess.Process, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), treeWalkTimeout)
	defer cancel()

	for _, p := range procs {
		if err := p.KillWithContext(ctx); err != nil {
			logger.Debug("failed to kill descendant", "pid", p.Pid, "error", err)
		}
	}
}

func isProcessDone(err error) bool {
	return err == nil || errors.Is(err, os.ErrProcessDone)
}
