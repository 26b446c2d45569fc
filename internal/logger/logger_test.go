package logger

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoggerCreatesFileWithPID(t *testing.T) {
	tempDir := setTempDirEnv(t, t.TempDir())

	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	expectedPath := filepath.Join(tempDir, fmt.Sprintf("smartfix-harness-%d.log", os.Getpid()))
	if logger.Path() != expectedPath {
		t.Fatalf("logger path = %s, want %s", logger.Path(), expectedPath)
	}
	if _, err := os.Stat(expectedPath); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}

func TestLoggerWritesLevelsAndFields(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	logger, err := NewLogger(WithField("run_id", "run-42"))
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	logger.Info("info message", "task", 3)
	logger.Warn("warn message")
	logger.Debug("debug message")
	logger.Error("error message")
	logger.Flush()

	data, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	for _, c := range []string{"info message", "warn message", "debug message", "error message", `"run_id":"run-42"`, `"task":3`} {
		if !strings.Contains(content, c) {
			t.Fatalf("log file missing %q, content: %s", c, content)
		}
	}
}

func TestLoggerConsoleRespectsLevel(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	var console strings.Builder
	logger, err := NewLogger(WithConsole(&console, zerolog.InfoLevel))
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	logger.Debug("hidden detail")
	logger.Info("visible progress")
	logger.Flush()

	out := console.String()
	if strings.Contains(out, "hidden detail") {
		t.Fatalf("console should not contain debug records: %q", out)
	}
	if !strings.Contains(out, "visible progress") {
		t.Fatalf("console missing info record: %q", out)
	}

	data, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hidden detail") {
		t.Fatalf("file should keep debug records: %s", data)
	}
}

func TestLoggerCloseKeepsFileAndStopsWriting(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Info("before close")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() returned error: %v", err)
	}
	logger.Info("after close")

	data, err := os.ReadFile(logger.Path())
	if err != nil {
		t.Fatalf("log file should exist after Close: %v", err)
	}
	if strings.Contains(string(data), "after close") {
		t.Fatalf("records written after Close: %s", data)
	}
}

func TestLoggerConcurrentWritesSafe(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer logger.Close()

	const goroutines = 10
	const perGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				logger.Debug(fmt.Sprintf("g%d-%d", id, j))
			}
		}(i)
	}
	wg.Wait()
	logger.Flush()

	f, err := os.Open(logger.Path())
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}
	if count != goroutines*perGoroutine {
		t.Fatalf("unexpected log line count: got %d, want %d", count, goroutines*perGoroutine)
	}
}

func TestLoggerExtractRecentErrors(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	logger, err := NewLoggerWithSuffix("extract-test")
	if err != nil {
		t.Fatalf("NewLoggerWithSuffix() error = %v", err)
	}
	defer logger.Close()

	if got := logger.ExtractRecentErrors(10); got != nil {
		t.Fatalf("fresh logger should have no errors, got %v", got)
	}

	logger.Info("ignored")
	logger.Warn("first warning")
	logger.Error("first error")
	logger.Error("second error")

	got := logger.ExtractRecentErrors(2)
	want := []string{"[ERROR] first error", "[ERROR] second error"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("ExtractRecentErrors(2) = %v, want %v", got, want)
	}
	if got := logger.ExtractRecentErrors(10); len(got) != 3 || got[0] != "[WARN] first warning" {
		t.Fatalf("ExtractRecentErrors(10) = %v", got)
	}
	if got := logger.ExtractRecentErrors(0); got != nil {
		t.Fatalf("ExtractRecentErrors(0) should return nil, got %v", got)
	}

	var nilLogger *Logger
	if got := nilLogger.ExtractRecentErrors(10); got != nil {
		t.Fatalf("nil logger ExtractRecentErrors() should return nil, got %v", got)
	}
}

func TestErrorEntriesMaxLimit(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	logger, err := NewLoggerWithSuffix("max-limit-test")
	if err != nil {
		t.Fatalf("NewLoggerWithSuffix() error = %v", err)
	}
	defer logger.Close()

	for i := 0; i < maxErrorEntries+20; i++ {
		logger.Error(fmt.Sprintf("error-%d", i))
	}
	got := logger.ExtractRecentErrors(maxErrorEntries * 2)
	if len(got) != maxErrorEntries {
		t.Fatalf("kept %d entries, want %d", len(got), maxErrorEntries)
	}
	if got[len(got)-1] != fmt.Sprintf("[ERROR] error-%d", maxErrorEntries+19) {
		t.Fatalf("last entry = %q", got[len(got)-1])
	}
}

func TestLoggerPathAndRemove(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	logger, err := NewLoggerWithSuffix("sample")
	if err != nil {
		t.Fatalf("NewLoggerWithSuffix() error = %v", err)
	}
	path := logger.Path()
	if !strings.HasSuffix(path, fmt.Sprintf("smartfix-harness-%d-sample.log", os.Getpid())) {
		t.Fatalf("unexpected path %s", path)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.RemoveLogFile(); err != nil {
		t.Fatalf("RemoveLogFile() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected log file to be removed, err=%v", err)
	}
	if err := logger.RemoveLogFile(); err != nil {
		t.Fatalf("second RemoveLogFile() should ignore missing file, got %v", err)
	}

	var nilLogger *Logger
	if nilLogger.Path() != "" {
		t.Fatalf("nil logger Path() should be empty")
	}
	if err := nilLogger.RemoveLogFile(); err != nil {
		t.Fatalf("nil logger RemoveLogFile() should return nil, got %v", err)
	}
}

func TestSanitizeLogSuffix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"batch", "batch"},
		{"a b  c", "a-b-c"},
		{"../../etc", "etc"},
		{"run_01.v2", "run_01.v2"},
		{"--x--", "x"},
		{strings.Repeat("a", 80), strings.Repeat("a", 64)},
	}
	for _, tt := range tests {
		if got := SanitizeLogSuffix(tt.in); got != tt.want {
			t.Errorf("SanitizeLogSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestActiveLoggerHelpers(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	LogInfo("dropped before SetLogger")

	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	SetLogger(logger)
	t.Cleanup(func() { _ = CloseLogger() })

	if ActiveLogger() != logger {
		t.Fatalf("ActiveLogger() did not return installed logger")
	}
	LogWarn("via helper", "k", "v")
	if got := logger.ExtractRecentErrors(1); len(got) != 1 || got[0] != "[WARN] via helper" {
		t.Fatalf("helper did not reach logger: %v", got)
	}

	if err := CloseLogger(); err != nil {
		t.Fatalf("CloseLogger() error = %v", err)
	}
	if ActiveLogger() != nil {
		t.Fatalf("ActiveLogger() should be nil after CloseLogger")
	}
}

func TestLoggerCleanupOldLogsRemovesOrphans(t *testing.T) {
	tempDir := setTempDirEnv(t, t.TempDir())

	orphan1 := createTempLog(t, tempDir, "smartfix-harness-111.log")
	orphan2 := createTempLog(t, tempDir, "smartfix-harness-222-suffix.log")
	running1 := createTempLog(t, tempDir, "smartfix-harness-333.log")
	running2 := createTempLog(t, tempDir, "smartfix-harness-444-extra-info.log")
	untouched := createTempLog(t, tempDir, "unrelated.log")

	runningPIDs := map[int]bool{333: true, 444: true}
	stubProcessRunning(t, func(pid int) bool { return runningPIDs[pid] })
	stubProcessStartTime(t, func(pid int) time.Time {
		if runningPIDs[pid] {
			return time.Now().Add(-1 * time.Hour)
		}
		return time.Time{}
	})

	stats, err := cleanupOldLogs()
	if err != nil {
		t.Fatalf("cleanupOldLogs() unexpected error: %v", err)
	}
	if stats.Scanned != 4 || stats.Deleted != 2 || stats.Kept != 2 || stats.Errors != 0 {
		t.Fatalf("cleanup stats mismatch: got %+v", stats)
	}

	for _, gone := range []string{orphan1, orphan2} {
		if _, err := os.Stat(gone); !os.IsNotExist(err) {
			t.Fatalf("expected orphan %s to be removed, err=%v", gone, err)
		}
	}
	for _, kept := range []string{running1, running2, untouched} {
		if _, err := os.Stat(kept); err != nil {
			t.Fatalf("expected %s to remain, err=%v", kept, err)
		}
	}
}

func TestLoggerCleanupOldLogsKeepsCurrentProcessLog(t *testing.T) {
	tempDir := setTempDirEnv(t, t.TempDir())

	currentLog := createTempLog(t, tempDir, fmt.Sprintf("smartfix-harness-%d.log", os.Getpid()))
	stubProcessRunning(t, func(pid int) bool {
		t.Fatalf("unexpected pid check: %d", pid)
		return false
	})

	stats, err := cleanupOldLogs()
	if err != nil {
		t.Fatalf("cleanupOldLogs() unexpected error: %v", err)
	}
	if stats.Scanned != 1 || stats.Kept != 1 {
		t.Fatalf("cleanup stats mismatch: got %+v", stats)
	}
	if _, err := os.Stat(currentLog); err != nil {
		t.Fatalf("expected current process log to remain, err=%v", err)
	}
}

func TestLoggerCleanupOldLogsHandlesGlobAndRemoveFailures(t *testing.T) {
	setTempDirEnv(t, t.TempDir())

	t.Run("glob", func(t *testing.T) {
		prev := globLogFiles
		t.Cleanup(func() { globLogFiles = prev })
		globLogFiles = func(string) ([]string, error) { return nil, errors.New("glob boom") }

		if _, err := cleanupOldLogs(); err == nil || !strings.Contains(err.Error(), "glob boom") {
			t.Fatalf("expected glob error, got %v", err)
		}
	})

	t.Run("remove", func(t *testing.T) {
		tempDir := os.TempDir()
		createTempLog(t, tempDir, "smartfix-harness-777.log")
		stubProcessRunning(t, func(int) bool { return false })

		prev := removeLogFileFn
		t.Cleanup(func() { removeLogFileFn = prev })
		removeLogFileFn = func(string) error { return os.ErrPermission }

		stats, err := cleanupOldLogs()
		if err == nil || !errors.Is(err, os.ErrPermission) {
			t.Fatalf("expected permission error, got %v", err)
		}
		if stats.Errors != 1 || stats.Deleted != 0 {
			t.Fatalf("cleanup stats mismatch: got %+v", stats)
		}
	})
}

func TestLoggerIsPIDReusedScenarios(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		statErr   error
		modTime   time.Time
		startTime time.Time
		want      bool
	}{
		{"stat error", errors.New("stat failed"), time.Time{}, time.Time{}, false},
		{"old file unknown start", nil, now.Add(-8 * 24 * time.Hour), time.Time{}, true},
		{"recent file unknown start", nil, now.Add(-2 * time.Hour), time.Time{}, false},
		{"pid reused", nil, now.Add(-2 * time.Hour), now.Add(-30 * time.Minute), true},
		{"pid active", nil, now.Add(-30 * time.Minute), now.Add(-2 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubFileStat(t, func(string) (os.FileInfo, error) {
				if tt.statErr != nil {
					return nil, tt.statErr
				}
				return fakeFileInfo{modTime: tt.modTime}, nil
			})
			stubProcessStartTime(t, func(int) time.Time { return tt.startTime })
			if got := isPIDReused("log", 1234); got != tt.want {
				t.Fatalf("isPIDReused() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoggerIsUnsafeFileSecurityChecks(t *testing.T) {
	tempDir := t.TempDir()
	absTempDir, err := filepath.EvalSymlinks(tempDir)
	if err != nil {
		t.Fatalf("EvalSymlinks() error = %v", err)
	}

	t.Run("symlink", func(t *testing.T) {
		stubFileStat(t, func(string) (os.FileInfo, error) {
			return fakeFileInfo{mode: os.ModeSymlink}, nil
		})
		unsafe, reason := isUnsafeFile(filepath.Join(absTempDir, "smartfix-harness-1.log"), tempDir)
		if !unsafe || reason != "refusing to delete symlink" {
			t.Fatalf("expected symlink to be rejected, got unsafe=%v reason=%q", unsafe, reason)
		}
	})

	t.Run("outside temp dir", func(t *testing.T) {
		stubFileStat(t, func(string) (os.FileInfo, error) {
			return fakeFileInfo{}, nil
		})
		otherDir := t.TempDir()
		stubEvalSymlinks(t, func(string) (string, error) {
			return filepath.Join(otherDir, "smartfix-harness-9.log"), nil
		})
		unsafe, reason := isUnsafeFile(filepath.Join(otherDir, "smartfix-harness-9.log"), tempDir)
		if !unsafe || reason != "file is outside tempDir" {
			t.Fatalf("expected outside file to be rejected, got unsafe=%v reason=%q", unsafe, reason)
		}
	})

	t.Run("inside temp dir", func(t *testing.T) {
		path := createTempLog(t, absTempDir, "smartfix-harness-5.log")
		if unsafe, reason := isUnsafeFile(path, tempDir); unsafe {
			t.Fatalf("expected regular file to be accepted, reason=%q", reason)
		}
	})
}

func TestLoggerParsePIDFromLog(t *testing.T) {
	hugePID := strconv.FormatInt(math.MaxInt64, 10) + "0"
	tests := []struct {
		name string
		pid  int
		ok   bool
	}{
		{"smartfix-harness-123.log", 123, true},
		{"smartfix-harness-999-extra.log", 999, true},
		{"smartfix-harness-.log", 0, false},
		{"invalid-name.log", 0, false},
		{"smartfix-harness--5.log", 0, false},
		{"smartfix-harness-0.log", 0, false},
		{"smartfix-harness-12.txt", 0, false},
		{fmt.Sprintf("smartfix-harness-%s.log", hugePID), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parsePIDFromLog(filepath.Join("/tmp", tt.name))
			if ok != tt.ok {
				t.Fatalf("parsePIDFromLog ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.pid {
				t.Fatalf("pid = %d, want %d", got, tt.pid)
			}
		})
	}
}

func TestIsProcessRunning(t *testing.T) {
	if isProcessRunning(0) || isProcessRunning(-1) {
		t.Fatalf("non-positive pids should never be treated as running")
	}
	if !isProcessRunning(os.Getpid()) {
		t.Fatalf("expected current process (pid=%d) to be running", os.Getpid())
	}
	if isProcessRunning(1 << 30) {
		t.Fatalf("expected pid %d to be reported as not running", 1<<30)
	}
	if getProcessStartTime(os.Getpid()).IsZero() {
		t.Fatalf("expected a start time for the current process")
	}
}

func createTempLog(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("test"), 0o644); err != nil {
		t.Fatalf("failed to create temp log %s: %v", path, err)
	}
	return path
}

func setTempDirEnv(t *testing.T, dir string) string {
	t.Helper()
	resolved := dir
	if eval, err := filepath.EvalSymlinks(dir); err == nil {
		resolved = eval
	}
	t.Setenv("TMPDIR", resolved)
	t.Setenv("TEMP", resolved)
	t.Setenv("TMP", resolved)
	return resolved
}

func stubProcessRunning(t *testing.T, fn func(int) bool) {
	t.Helper()
	t.Cleanup(SetProcessRunningCheck(fn))
}

func stubProcessStartTime(t *testing.T, fn func(int) time.Time) {
	t.Helper()
	t.Cleanup(SetProcessStartTimeFn(fn))
}

func stubFileStat(t *testing.T, fn func(string) (os.FileInfo, error)) {
	t.Helper()
	prev := fileStatFn
	fileStatFn = fn
	t.Cleanup(func() { fileStatFn = prev })
}

func stubEvalSymlinks(t *testing.T, fn func(string) (string, error)) {
	t.Helper()
	prev := evalSymlinksFn
	evalSymlinksFn = fn
	t.Cleanup(func() { evalSymlinksFn = prev })
}

type fakeFileInfo struct {
	modTime time.Time
	mode    os.FileMode
}

func (f fakeFileInfo) Name() string       { return "fake" }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() os.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return f.modTime }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() interface{}   { return nil }
