package executor

import ilogger "smartfix-harness/internal/logger"

func logDebug(msg string, fields ...any) { ilogger.LogDebug(msg, fields...) }

func logInfo(msg string, fields ...any) { ilogger.LogInfo(msg, fields...) }

func logWarn(msg string, fields ...any) { ilogger.LogWarn(msg, fields...) }

func logError(msg string, fields ...any) { ilogger.LogError(msg, fields...) }
