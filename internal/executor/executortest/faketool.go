// Package executortest provides a scriptable stand-in for the repair tool.
package executortest

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// fakeTool parses the SmartFix flags and then sources the input file, so
// every corpus entry scripts its own behavior (output, exit code, sleep).
const fakeTool = `#!/bin/sh
while [ $# -gt 1 ]; do
  case "$1" in
    -input) INPUT="$2" ;;
    -mode) MODE="$2" ;;
    -outdir) OUTDIR="$2" ;;
    -main) TARGET="$2" ;;
    -repair_loop_timeout) LOOP_TIMEOUT="$2" ;;
    -repair_tool_timeout) TOOL_TIMEOUT="$2" ;;
    -z3timeout) Z3_TIMEOUT="$2" ;;
  esac
  shift 2
done
. "$INPUT"
`

// RequireShell skips t when /bin/sh is unavailable.
func RequireShell(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
}

// WriteFakeTool writes the fake tool into dir and returns its path.
func WriteFakeTool(t testing.TB, dir string) string {
	t.Helper()
	RequireShell(t)
	path := filepath.Join(dir, "fake-smartfix.sh")
	if err := os.WriteFile(path, []byte(fakeTool), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return path
}

// WriteInput writes a corpus entry whose body is the shell snippet the fake
// tool will run. Parent directories are created.
func WriteInput(t testing.TB, path, script string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(script+"\n"), 0o644); err != nil {
		t.Fatalf("write input %s: %v", path, err)
	}
}
