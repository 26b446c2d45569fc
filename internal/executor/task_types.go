package executor

import (
	"fmt"
	"time"
)

// LogicalKey places a task's outputs: Group is the input's parent directory
// name, Stem its file name without extension.
type LogicalKey struct {
	Group string `json:"group"`
	Stem  string `json:"stem"`
}

func (k LogicalKey) String() string { return k.Group + "/" + k.Stem }

// Task is one unit of work: one input artifact and the target the tool must
// repair inside it.
type Task struct {
	Index     int        `json:"index"`
	InputPath string     `json:"input_path"`
	Target    string     `json:"target"`
	Key       LogicalKey `json:"key"`
}

// Outcome tags how a task attempt ended.
type Outcome int

const (
	// OutcomeCompleted means the tool exited on its own; ExitCode is real.
	OutcomeCompleted Outcome = iota
	// OutcomeTimedOut means the hard timeout fired and the process tree was killed.
	OutcomeTimedOut
	// OutcomeFailed means the tool could not be run at all.
	OutcomeFailed
	// OutcomeInterrupted means the harness itself was asked to stop.
	OutcomeInterrupted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeFailed:
		return "failed"
	case OutcomeInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// SentinelValue is what the summary shows for both elapsed time and exit
// code when a task did not complete.
const SentinelValue = -1

// Result is the single, immutable record of one task attempt.
type Result struct {
	Task     Task
	Outcome  Outcome
	ExitCode int
	Elapsed  time.Duration
	Stdout   string
	Stderr   string
	Err      error
}

// Sentinel reports whether the result renders as the "did not complete" row.
func (r Result) Sentinel() bool { return r.Outcome != OutcomeCompleted }

// ReportedExitCode is the exit code as written to the summary.
func (r Result) ReportedExitCode() int {
	if r.Sentinel() {
		return SentinelValue
	}
	return r.ExitCode
}

// ReportedElapsed is the wall-clock time in seconds as written to the summary.
func (r Result) ReportedElapsed() float64 {
	if r.Sentinel() {
		return SentinelValue
	}
	return r.Elapsed.Seconds()
}

// FailedResult builds an OutcomeFailed result for task.
func FailedResult(task Task, err error) Result {
	return Result{Task: task, Outcome: OutcomeFailed, Err: err}
}
