package harness

import (
	"fmt"
	"io"
)

func runCleanupMode(stdout, stderr io.Writer) int {
	stats, err := cleanupOldLogsFn()
	if err != nil {
		fmt.Fprintf(stderr, "Cleanup failed: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "Cleanup completed")
	fmt.Fprintf(stdout, "Files scanned: %d\n", stats.Scanned)
	fmt.Fprintf(stdout, "Files deleted: %d\n", stats.Deleted)
	for _, f := range stats.DeletedFiles {
		fmt.Fprintf(stdout, "  - %s\n", f)
	}
	fmt.Fprintf(stdout, "Files kept: %d\n", stats.Kept)
	for _, f := range stats.KeptFiles {
		fmt.Fprintf(stdout, "  - %s\n", f)
	}
	if stats.Errors > 0 {
		fmt.Fprintf(stdout, "Deletion errors: %d\n", stats.Errors)
	}
	return 0
}

// runStartupCleanup removes logs of dead runs before a batch starts.
// Failures are logged and never block the batch.
func runStartupCleanup() {
	stats, err := cleanupOldLogsFn()
	if err != nil {
		logWarn(fmt.Sprintf("cleanup of old logs failed: %v", err))
		return
	}
	if stats.Deleted > 0 {
		logDebug(fmt.Sprintf("removed %d stale log files", stats.Deleted), "files", stats.DeletedFiles)
	}
}
