package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"smartfix-harness/internal/executor"
)

// SummaryHeader is written as the first row when a header is requested.
var SummaryHeader = []string{"path", "contract", "elapsed_time", "return_code"}

// WriteSummary writes one CSV row per result, in result order, to path. The
// rows go to a temporary file next to path which is then renamed over it,
// so readers see either the previous summary or the complete new one.
func WriteSummary(path string, results []executor.Result, header bool) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create summary dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".results-*.csv")
	if err != nil {
		return fmt.Errorf("create summary temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(tmp)
	if header {
		if err := w.Write(SummaryHeader); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
	}
	for _, res := range results {
		if err := w.Write(SummaryRow(res)); err != nil {
			return fmt.Errorf("write summary row for %s: %w", res.Task.Key, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync summary: %w", err)
	}
	if err := errors.Join(tmp.Chmod(0o644), tmp.Close()); err != nil {
		return fmt.Errorf("close summary: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("publish summary %s: %w", path, err)
	}
	return nil
}

// SummaryRow renders one result as path, contract, elapsed seconds, exit
// code. Results that did not complete show -1 in both numeric columns.
func SummaryRow(res executor.Result) []string {
	return []string{
		res.Task.InputPath,
		res.Task.Target,
		formatElapsed(res),
		strconv.Itoa(res.ReportedExitCode()),
	}
}

func formatElapsed(res executor.Result) string {
	if res.Sentinel() {
		return strconv.Itoa(executor.SentinelValue)
	}
	return strconv.FormatFloat(res.ReportedElapsed(), 'f', -1, 64)
}
