//go:build !unix

package executor

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func killProcessGroup(proc *os.Process) error {
	return proc.Kill()
}

func exitCodeOf(state *os.ProcessState) int {
	return state.ExitCode()
}
