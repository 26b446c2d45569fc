package executor

import (
	"errors"
	"math"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// descendantPIDs walks the process table breadth-first from pid.
func descendantPIDs(pid int) []int32 {
	if pid <= 0 || pid > math.MaxInt32 {
		return nil
	}
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}

	var out []int32
	seen := map[int32]struct{}{root.Pid: {}}
	queue := []*process.Process{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children, err := cur.Children()
		if err != nil {
			continue
		}
		for _, child := range children {
			if _, ok := seen[child.Pid]; ok {
				continue
			}
			seen[child.Pid] = struct{}{}
			out = append(out, child.Pid)
			queue = append(queue, child)
		}
	}
	return out
}

// killProcessTree kills proc, its process group and any descendant that
// escaped the group. Descendants are collected first because they are
// reparented once their parent dies.
func killProcessTree(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	descendants := descendantPIDs(proc.Pid)
	err := killProcessGroup(proc)

	for _, pid := range descendants {
		p, perr := process.NewProcess(pid)
		if perr != nil {
			continue
		}
		if kerr := p.Kill(); kerr != nil && !errors.Is(kerr, process.ErrorProcessNotRunning) {
			logDebug("failed to kill descendant", "pid", pid, "error", kerr.Error())
		}
	}
	return err
}
