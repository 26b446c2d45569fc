package logger

import "sync/atomic"

var loggerPtr atomic.Pointer[Logger]

func setLogger(l *Logger) {
	loggerPtr.Store(l)
}

func closeLogger() error {
	logger := loggerPtr.Swap(nil)
	if logger == nil {
		return nil
	}
	return logger.Close()
}

func activeLogger() *Logger {
	return loggerPtr.Load()
}

// The package-level helpers are no-ops until SetLogger is called, so library
// packages can log unconditionally.

func LogDebug(msg string, fields ...any) { activeLogger().Debug(msg, fields...) }

func LogInfo(msg string, fields ...any) { activeLogger().Info(msg, fields...) }

func LogWarn(msg string, fields ...any) { activeLogger().Warn(msg, fields...) }

func LogError(msg string, fields ...any) { activeLogger().Error(msg, fields...) }

func SetLogger(l *Logger) { setLogger(l) }

func CloseLogger() error { return closeLogger() }

func ActiveLogger() *Logger { return activeLogger() }
