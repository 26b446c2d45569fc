package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// TaskFunc produces the Result for one task.
type TaskFunc func(ctx context.Context, task Task) Result

// Pool applies a TaskFunc to every task with bounded parallelism. There is
// no early exit: Run returns only after every task has a Result.
type Pool struct {
	workers int
	fn      TaskFunc
}

// NewPool returns a pool running at most workers tasks at once. Values below
// one are treated as one.
func NewPool(workers int, fn TaskFunc) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, fn: fn}
}

func (p *Pool) Workers() int { return p.workers }

// Run executes every task and returns results in submission order:
// results[i] always belongs to tasks[i], whatever the completion order.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	total := len(tasks)
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, task := range tasks {
		g.Go(func() error {
			res := p.runOne(ctx, task)
			results[i] = res

			n := done.Add(1)
			logInfo(fmt.Sprintf("[%d/%d] %s %s", n, total, task.Key, describe(res)),
				"index", task.Index, "outcome", res.Outcome.String())
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runOne confines a panic in the task function to that task's Result.
func (p *Pool) runOne(ctx context.Context, task Task) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = FailedResult(task, fmt.Errorf("task panicked: %v", r))
			logError("recovered panic in task", "index", task.Index, "key", task.Key.String(),
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	res = p.fn(ctx, task)
	res.Task = task
	return res
}

func describe(res Result) string {
	switch res.Outcome {
	case OutcomeCompleted:
		return fmt.Sprintf("exit=%d in %.1fs", res.ExitCode, res.Elapsed.Seconds())
	case OutcomeFailed, OutcomeInterrupted:
		if res.Err != nil {
			return fmt.Sprintf("%s: %v", res.Outcome, res.Err)
		}
	}
	return res.Outcome.String()
}
