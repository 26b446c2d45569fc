package executor

import (
	"context"
	"os/exec"
)

// SetCommandContextFn swaps the exec.CommandContext used by Runner. Passing
// nil restores the default.
func SetCommandContextFn(fn func(context.Context, string, ...string) *exec.Cmd) (restore func()) {
	prev := commandContext
	if fn != nil {
		commandContext = fn
	} else {
		commandContext = exec.CommandContext
	}
	return func() { commandContext = prev }
}
