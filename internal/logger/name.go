package logger

// HarnessName is the fixed program name used for log file prefixes.
const HarnessName = "smartfix-harness"

// LogPrefixes returns the log file name prefixes cleanup looks for.
func LogPrefixes() []string { return []string{HarnessName} }

// PrimaryLogPrefix returns the filename prefix for new log files.
func PrimaryLogPrefix() string { return HarnessName }
