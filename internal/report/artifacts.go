// Package report persists per-task artifacts and the batch summary.
package report

import (
	"errors"
	"fmt"
	"os"

	"smartfix-harness/internal/executor"
	"smartfix-harness/internal/layout"
	ilogger "smartfix-harness/internal/logger"
)

// WriteArtifacts stores every result's stdout in <stem>.out and stderr in
// <stem>.log, truncating what a previous run left. A failed launch has its
// cause written to the .log instead. A task whose output directory could
// not be created during the run has nowhere to put artifacts and is skipped
// with a warning; its summary row still shows the failure. All results are
// attempted; the returned error joins every write failure.
func WriteArtifacts(placer layout.Placer, results []executor.Result) error {
	var errs []error
	for _, res := range results {
		if err := writeArtifact(placer, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeArtifact(placer layout.Placer, res executor.Result) error {
	if res.Outcome == executor.OutcomeFailed && errors.Is(res.Err, layout.ErrPlace) {
		ilogger.LogWarn(fmt.Sprintf("skipping artifacts for %s: %v", res.Task.Key, res.Err),
			"index", res.Task.Index)
		return nil
	}
	if _, err := placer.Ensure(res.Task); err != nil {
		return err
	}

	stderr := res.Stderr
	if res.Outcome == executor.OutcomeFailed && res.Err != nil {
		stderr = fmt.Sprintf("harness: %v\n", res.Err)
	}

	if err := writeFile(placer.StdoutPath(res.Task), res.Stdout); err != nil {
		return err
	}
	return writeFile(placer.StderrPath(res.Task), stderr)
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { // #nosec G306 -- artifacts are meant to be shared
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
