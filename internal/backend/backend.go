package backend

import "strconv"

// Tool describes how to drive one external analysis/repair executable.
// Implementations only build the command line; execution belongs to the
// executor package.
type Tool interface {
	Name() string
	// Command is the executable used when no explicit tool path is configured.
	Command() string
	BuildArgs(inv Invocation) []string
}

// Timeouts are advisory budgets handed to the tool itself. They are
// independent of the harness's hard per-task timeout.
type Timeouts struct {
	RepairLoop int // seconds
	RepairTool int // seconds
	Solver     int // milliseconds
}

// Invocation is everything a Tool needs for one task.
type Invocation struct {
	InputPath string
	OutDir    string
	Target    string
	Timeouts  Timeouts
}

func itoa(n int) string { return strconv.Itoa(n) }
