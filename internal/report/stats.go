package report

import (
	"fmt"
	"strings"

	"smartfix-harness/internal/executor"
	"smartfix-harness/internal/utils"
)

const errorDetailLen = 160

// Stats counts batch outcomes.
type Stats struct {
	Total       int
	Succeeded   int // completed with exit code 0
	NonZero     int // completed with any other exit code
	TimedOut    int
	Failed      int
	Interrupted int
	// Elapsed sums the wall-clock time of completed tasks, in seconds.
	Elapsed float64
}

func Summarize(results []executor.Result) Stats {
	s := Stats{Total: len(results)}
	for _, res := range results {
		switch res.Outcome {
		case executor.OutcomeCompleted:
			if res.ExitCode == 0 {
				s.Succeeded++
			} else {
				s.NonZero++
			}
			s.Elapsed += res.Elapsed.Seconds()
		case executor.OutcomeTimedOut:
			s.TimedOut++
		case executor.OutcomeFailed:
			s.Failed++
		case executor.OutcomeInterrupted:
			s.Interrupted++
		}
	}
	return s
}

// FormatStats renders the console summary: a totals line followed by one
// line per task that did not exit 0.
func FormatStats(stats Stats, results []executor.Result) string {
	var sb strings.Builder
	sb.WriteString("=== Batch Summary ===\n")
	fmt.Fprintf(&sb, "%d tasks | %d ok | %d non-zero | %d timed out | %d failed",
		stats.Total, stats.Succeeded, stats.NonZero, stats.TimedOut, stats.Failed)
	if stats.Interrupted > 0 {
		fmt.Fprintf(&sb, " | %d interrupted", stats.Interrupted)
	}
	fmt.Fprintf(&sb, " | tool time %.1fs\n", stats.Elapsed)

	for _, res := range results {
		if res.Outcome == executor.OutcomeCompleted && res.ExitCode == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  %s (%s): ", res.Task.Key, res.Task.Target)
		switch res.Outcome {
		case executor.OutcomeCompleted:
			fmt.Fprintf(&sb, "exit %d", res.ExitCode)
		default:
			sb.WriteString(res.Outcome.String())
		}
		if detail := failureDetail(res); detail != "" {
			sb.WriteString(" | ")
			sb.WriteString(detail)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func failureDetail(res executor.Result) string {
	if res.Err != nil {
		return utils.SafeTruncate(utils.SanitizeOutput(res.Err.Error()), errorDetailLen)
	}
	return extractErrorDetail(utils.SanitizeOutput(res.Stderr), errorDetailLen)
}

// extractErrorDetail picks the lines of tool output that look like errors,
// falling back to the last few lines.
func extractErrorDetail(output string, maxLen int) string {
	if output == "" || maxLen <= 0 {
		return ""
	}

	var picked []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") ||
			strings.Contains(lower, "fail") ||
			strings.Contains(lower, "exception") ||
			strings.Contains(lower, "timeout") ||
			strings.Contains(lower, "not found") ||
			strings.Contains(lower, "cannot") ||
			strings.Contains(lower, "fatal") {
			picked = append(picked, line)
		}
	}
	if len(picked) == 0 {
		picked = utils.TailLines(output, 3)
	}
	return utils.SafeTruncate(strings.Join(picked, " | "), maxLen)
}
