package logger

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// CleanupStats reports what CleanupOldLogs did.
type CleanupStats struct {
	Scanned      int
	Deleted      int
	Kept         int
	Errors       int
	DeletedFiles []string
	KeptFiles    []string
}

var (
	processRunningCheck = isProcessRunning
	processStartTimeFn  = getProcessStartTime
	removeLogFileFn     = os.Remove
	globLogFiles        = filepath.Glob
	fileStatFn          = os.Lstat
	evalSymlinksFn      = filepath.EvalSymlinks
)

// CleanupOldLogs removes harness log files in os.TempDir() whose owning
// process is gone.
func CleanupOldLogs() (CleanupStats, error) { return cleanupOldLogs() }

func cleanupOldLogs() (CleanupStats, error) {
	var stats CleanupStats
	tempDir := os.TempDir()

	var matches []string
	for _, prefix := range LogPrefixes() {
		pattern := filepath.Join(tempDir, prefix+"-*.log")
		found, err := globLogFiles(pattern)
		if err != nil {
			LogWarn(fmt.Sprintf("cleanupOldLogs: failed to list %s: %v", pattern, err))
			return stats, fmt.Errorf("cleanupOldLogs: %w", err)
		}
		matches = append(matches, found...)
	}

	var errs []error
	for _, path := range matches {
		pid, ok := parsePIDFromLog(path)
		if !ok {
			continue
		}
		stats.Scanned++

		if pid == os.Getpid() {
			stats.Kept++
			stats.KeptFiles = append(stats.KeptFiles, path)
			continue
		}

		if unsafe, reason := isUnsafeFile(path, tempDir); unsafe {
			stats.Errors++
			LogWarn(fmt.Sprintf("cleanupOldLogs: skipping %s: %s", path, reason))
			continue
		}

		if processRunningCheck(pid) && !isPIDReused(path, pid) {
			stats.Kept++
			stats.KeptFiles = append(stats.KeptFiles, path)
			continue
		}

		if err := removeLogFileFn(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			stats.Errors++
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		stats.Deleted++
		stats.DeletedFiles = append(stats.DeletedFiles, path)
	}

	if len(errs) > 0 {
		return stats, fmt.Errorf("cleanupOldLogs: %w", errors.Join(errs...))
	}
	return stats, nil
}

// parsePIDFromLog extracts the pid from "<prefix>-<pid>[-suffix].log".
func parsePIDFromLog(path string) (int, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".log") {
		return 0, false
	}
	base = strings.TrimSuffix(base, ".log")

	for _, prefix := range LogPrefixes() {
		rest, found := strings.CutPrefix(base, prefix+"-")
		if !found {
			continue
		}
		pidPart, _, _ := strings.Cut(rest, "-")
		pid, err := strconv.Atoi(pidPart)
		if err != nil || pid <= 0 {
			return 0, false
		}
		return pid, true
	}
	return 0, false
}

// isUnsafeFile refuses symlinks, non-regular files and anything that
// resolves outside tempDir.
func isUnsafeFile(path, tempDir string) (bool, string) {
	info, err := fileStatFn(path)
	if err != nil {
		return true, fmt.Sprintf("stat failed: %v", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return true, "refusing to delete symlink"
	}
	if !info.Mode().IsRegular() {
		return true, "not a regular file"
	}

	resolved, err := evalSymlinksFn(path)
	if err != nil {
		return true, fmt.Sprintf("path resolution failed: %v", err)
	}
	base, err := filepath.EvalSymlinks(tempDir)
	if err != nil {
		base = tempDir
	}
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(resolved))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return true, "file is outside tempDir"
	}
	return false, ""
}

// staleLogAge is how old a log must be before an unknown process start time
// is treated as a reused pid.
const staleLogAge = 7 * 24 * time.Hour

// isPIDReused reports whether pid belongs to a process started after the log
// file was last written, which means the original owner is gone.
func isPIDReused(path string, pid int) bool {
	info, err := fileStatFn(path)
	if err != nil {
		return false
	}
	started := processStartTimeFn(pid)
	if started.IsZero() {
		return time.Since(info.ModTime()) > staleLogAge
	}
	return started.After(info.ModTime().Add(time.Second))
}

func pidToInt32(pid int) (int32, bool) {
	if pid <= 0 || pid > math.MaxInt32 {
		return 0, false
	}
	return int32(pid), true
}

// isProcessRunning treats inspection failures other than "not running" as
// alive.
func isProcessRunning(pid int) bool {
	pid32, ok := pidToInt32(pid)
	if !ok {
		return false
	}
	exists, err := process.PidExists(pid32)
	if err == nil {
		return exists
	}
	return !errors.Is(err, process.ErrorProcessNotRunning)
}

func getProcessStartTime(pid int) time.Time {
	pid32, ok := pidToInt32(pid)
	if !ok {
		return time.Time{}
	}
	proc, err := process.NewProcess(pid32)
	if err != nil {
		return time.Time{}
	}
	ms, err := proc.CreateTime()
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
