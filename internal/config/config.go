package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultManifestName      = "vulnerabilities.json"
	DefaultTool              = "smartfix"
	DefaultToolPath          = "./main.native"
	DefaultTimeout           = 20 * time.Minute
	DefaultRepairLoopTimeout = 5400
	DefaultRepairToolTimeout = 150
	DefaultZ3Timeout         = 20000
	DefaultOnCollision       = CollisionError

	// MaxWorkersLimit caps the positional worker count.
	MaxWorkersLimit = 256
)

// Collision policies for manifest entries that map to the same output
// directory.
const (
	CollisionError  = "error"
	CollisionSuffix = "suffix"
)

// Config holds the fully resolved settings for one harness run.
type Config struct {
	CorpusDir string
	OutputDir string
	Workers   int

	Manifest string
	Tool     string
	ToolPath string
	ToolDir  string

	Timeout           time.Duration
	RepairLoopTimeout int
	RepairToolTimeout int
	Z3Timeout         int

	OnCollision string
	CSVHeader   bool
	KeepLog     bool
	Verbose     bool
}

// Validate checks every field that has a constrained domain.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CorpusDir) == "" {
		return fmt.Errorf("corpus directory is empty")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output directory is empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.Workers)
	}
	if strings.TrimSpace(c.Manifest) == "" {
		return fmt.Errorf("manifest name is empty")
	}
	if strings.TrimSpace(c.ToolPath) == "" {
		return fmt.Errorf("tool path is empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	for name, v := range map[string]int{
		"repair-loop-timeout": c.RepairLoopTimeout,
		"repair-tool-timeout": c.RepairToolTimeout,
		"z3-timeout":          c.Z3Timeout,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if _, err := ParseCollisionPolicy(c.OnCollision); err != nil {
		return err
	}
	return nil
}

// ParseWorkers parses the positional worker count. Values above
// MaxWorkersLimit are clamped and reported through clamped.
func ParseWorkers(raw string) (workers int, clamped bool, err error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false, fmt.Errorf("invalid worker count %q: must be a positive integer", raw)
	}
	if value <= 0 {
		return 0, false, fmt.Errorf("invalid worker count %d: must be a positive integer", value)
	}
	if value > MaxWorkersLimit {
		return MaxWorkersLimit, true, nil
	}
	return value, false, nil
}

// ParseCollisionPolicy normalizes an on-collision value.
func ParseCollisionPolicy(raw string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "":
		return DefaultOnCollision, nil
	case CollisionError, CollisionSuffix:
		return v, nil
	default:
		return "", fmt.Errorf("unsupported collision policy %q (want %q or %q)", raw, CollisionError, CollisionSuffix)
	}
}
