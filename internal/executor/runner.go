package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"smartfix-harness/internal/backend"
	"smartfix-harness/internal/utils"
)

// DefaultWaitDelay bounds how long Wait keeps reading pipes after the tool
// exits or is killed.
const DefaultWaitDelay = 5 * time.Second

var commandContext = exec.CommandContext

// RunnerConfig carries everything fixed for a batch. Timeouts are explicit
// so tests can inject short ones.
type RunnerConfig struct {
	Tool backend.Tool
	// Command overrides Tool.Command() when set.
	Command      string
	Dir          string
	Env          []string
	Timeout      time.Duration
	ToolTimeouts backend.Timeouts
	WaitDelay    time.Duration
}

// Runner executes the external tool for one task at a time. It holds no
// per-task state and is safe for concurrent use.
type Runner struct {
	cfg     RunnerConfig
	command string
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Tool == nil {
		return nil, errors.New("runner: tool is nil")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("runner: timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		command = cfg.Tool.Command()
	}
	return &Runner{cfg: cfg, command: command}, nil
}

// Command returns the executable the runner launches.
func (r *Runner) Command() string { return r.command }

// Args returns the argument list the tool receives for task.
func (r *Runner) Args(task Task, outDir string) []string {
	return r.cfg.Tool.BuildArgs(backend.Invocation{
		InputPath: task.InputPath,
		OutDir:    outDir,
		Target:    task.Target,
		Timeouts:  r.cfg.ToolTimeouts,
	})
}

// Run makes exactly one attempt at task and always returns a Result. A
// timeout, launch error or interrupt is reported through Outcome, never as a
// panic or error return.
func (r *Runner) Run(ctx context.Context, task Task, outDir string) Result {
	res := Result{Task: task}
	fields := []any{"index", task.Index, "key", task.Key.String()}

	if err := ctx.Err(); err != nil {
		res.Outcome = OutcomeInterrupted
		res.Err = err
		return res
	}

	taskCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := r.Args(task, outDir)
	cmd := commandContext(taskCtx, r.command, args...)
	cmd.Dir = r.cfg.Dir
	if len(r.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), r.cfg.Env...)
	}
	setProcessGroup(cmd)
	// killed is set only when the context fired while the tool was still
	// running. A tool that exits on its own keeps its real exit status even
	// if the deadline passes while its pipes drain.
	var killed atomic.Bool
	cmd.Cancel = func() error {
		killed.Store(true)
		return killProcessTree(cmd.Process)
	}
	cmd.WaitDelay = r.cfg.WaitDelay

	var stdout, stderr bytes.Buffer
	tail := &tailBuffer{limit: stderrTailBytes}
	mirror := newLogWriter("stderr: ", stderrLogLineLimit, fields...)
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(&stderr, tail, mirror)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("start %s: %w", r.command, err)
		logError("failed to start tool", append(fields, "error", res.Err.Error())...)
		return res
	}
	logDebug("tool started", append(fields, "pid", cmd.Process.Pid, "args", strings.Join(args, " "))...)

	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	mirror.Flush()

	switch {
	case killed.Load() && ctx.Err() != nil:
		res.Outcome = OutcomeInterrupted
		res.Err = ctx.Err()
		logWarn("task interrupted", fields...)
		return res
	case killed.Load():
		res.Outcome = OutcomeTimedOut
		logWarn(fmt.Sprintf("task timed out after %s", r.cfg.Timeout),
			append(fields, "stderr_tail", strings.Join(utils.TailLines(utils.SanitizeOutput(tail.String()), 3), " | "))...)
		return res
	}

	if cmd.ProcessState == nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("wait %s: %w", r.command, waitErr)
		logError("tool did not report an exit status", append(fields, "error", res.Err.Error())...)
		return res
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			logWarn("tool output may be incomplete", append(fields, "error", waitErr.Error())...)
		}
	}

	res.Outcome = OutcomeCompleted
	res.ExitCode = exitCodeOf(cmd.ProcessState)
	res.Elapsed = elapsed
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	logDebug("tool exited", append(fields, "exit_code", res.ExitCode, "elapsed", elapsed.String())...)
	return res
}
