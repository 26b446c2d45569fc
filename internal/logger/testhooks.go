package logger

import "time"

// SetProcessRunningCheck swaps the liveness probe used by CleanupOldLogs.
// Passing nil restores the gopsutil probe.
func SetProcessRunningCheck(fn func(int) bool) (restore func()) {
	prev := processRunningCheck
	if fn != nil {
		processRunningCheck = fn
	} else {
		processRunningCheck = isProcessRunning
	}
	return func() { processRunningCheck = prev }
}

// SetProcessStartTimeFn swaps the process start time probe used for PID
// reuse detection. Passing nil restores the gopsutil probe.
func SetProcessStartTimeFn(fn func(int) time.Time) (restore func()) {
	prev := processStartTimeFn
	if fn != nil {
		processStartTimeFn = fn
	} else {
		processStartTimeFn = getProcessStartTime
	}
	return func() { processStartTimeFn = prev }
}
