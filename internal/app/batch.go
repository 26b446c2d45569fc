package harness

import (
	"context"
	"fmt"
	"io"

	"smartfix-harness/internal/backend"
	"smartfix-harness/internal/config"
	"smartfix-harness/internal/corpus"
	"smartfix-harness/internal/executor"
	"smartfix-harness/internal/layout"
	"smartfix-harness/internal/report"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

var selectToolFn = backend.Select

func newRunner(cfg *config.Config) (*executor.Runner, error) {
	tool, err := selectToolFn(cfg.Tool)
	if err != nil {
		return nil, err
	}
	return executor.NewRunner(executor.RunnerConfig{
		Tool:    tool,
		Command: cfg.ToolPath,
		Dir:     cfg.ToolDir,
		Timeout: cfg.Timeout,
		ToolTimeouts: backend.Timeouts{
			RepairLoop: cfg.RepairLoopTimeout,
			RepairTool: cfg.RepairToolTimeout,
			Solver:     cfg.Z3Timeout,
		},
	})
}

// runBatch loads the manifest, runs every task and publishes the results.
// The summary is only written when every task got a chance to finish.
func runBatch(ctx context.Context, cfg *config.Config, out io.Writer) int {
	runner, err := newRunner(cfg)
	if err != nil {
		logError(err.Error())
		return 1
	}

	tasks, err := corpus.Load(cfg.CorpusDir, cfg.Manifest, cfg.OnCollision)
	if err != nil {
		logError(err.Error())
		return 1
	}

	placer := layout.NewPlacer(cfg.OutputDir)
	logInfo(fmt.Sprintf("Running %d tasks with %d workers", len(tasks), cfg.Workers),
		"corpus", cfg.CorpusDir, "output", cfg.OutputDir, "tool", runner.Command(), "timeout", cfg.Timeout.String())

	pool := executor.NewPool(cfg.Workers, func(ctx context.Context, task executor.Task) executor.Result {
		dir, err := placer.Ensure(task)
		if err != nil {
			logError(err.Error(), "key", task.Key.String())
			return executor.FailedResult(task, err)
		}
		return runner.Run(ctx, task, dir)
	})
	results := pool.Run(ctx, tasks)

	if ctx.Err() != nil {
		var finished []executor.Result
		for _, res := range results {
			if res.Outcome != executor.OutcomeInterrupted {
				finished = append(finished, res)
			}
		}
		if err := report.WriteArtifacts(placer, finished); err != nil {
			logError(err.Error())
		}
		logWarn(fmt.Sprintf("Interrupted, %s not written", placer.SummaryPath()))
		return exitInterrupted
	}

	if err := report.WriteArtifacts(placer, results); err != nil {
		logError(fmt.Sprintf("write task artifacts: %v", err))
		return 1
	}
	summaryPath := placer.SummaryPath()
	if err := report.WriteSummary(summaryPath, results, cfg.CSVHeader); err != nil {
		logError(fmt.Sprintf("write summary: %v", err))
		return 1
	}

	fmt.Fprint(out, report.FormatStats(report.Summarize(results), results))
	fmt.Fprintf(out, "Summary: %s\n", summaryPath)
	return 0
}
