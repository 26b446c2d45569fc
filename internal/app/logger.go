package harness

import ilogger "smartfix-harness/internal/logger"

type Logger = ilogger.Logger
type CleanupStats = ilogger.CleanupStats

func setLogger(l *Logger) { ilogger.SetLogger(l) }

func closeLogger() error { return ilogger.CloseLogger() }

func activeLogger() *Logger { return ilogger.ActiveLogger() }

func logDebug(msg string, fields ...any) { ilogger.LogDebug(msg, fields...) }

func logInfo(msg string, fields ...any) { ilogger.LogInfo(msg, fields...) }

func logWarn(msg string, fields ...any) { ilogger.LogWarn(msg, fields...) }

func logError(msg string, fields ...any) { ilogger.LogError(msg, fields...) }

var cleanupOldLogsFn = ilogger.CleanupOldLogs
