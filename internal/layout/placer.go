// Package layout maps tasks to their on-disk output locations.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"smartfix-harness/internal/executor"
)

// SummaryFileName is the batch summary written under the output root.
const SummaryFileName = "results.csv"

// ErrPlace matches every error returned by Ensure.
var ErrPlace = errors.New("output placement failed")

// PlaceError reports an output directory that could not be created.
type PlaceError struct {
	Dir string
	Err error
}

func (e *PlaceError) Error() string {
	return fmt.Sprintf("create output dir %s: %v", e.Dir, e.Err)
}

func (e *PlaceError) Unwrap() error { return e.Err }

func (e *PlaceError) Is(target error) bool { return target == ErrPlace }

// Placer places every task under Root/<group>/<stem>/.
type Placer struct {
	Root string
}

func NewPlacer(root string) Placer {
	return Placer{Root: filepath.Clean(root)}
}

// Dir returns the task's output directory without touching the filesystem.
func (p Placer) Dir(task executor.Task) string {
	return filepath.Join(p.Root, task.Key.Group, task.Key.Stem)
}

// Ensure creates the task's output directory. Existing directories are
// reused, so concurrent or repeated calls are safe.
func (p Placer) Ensure(task executor.Task) (string, error) {
	dir := p.Dir(task)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &PlaceError{Dir: dir, Err: err}
	}
	return dir, nil
}

// StdoutPath is where the task's captured stdout is stored.
func (p Placer) StdoutPath(task executor.Task) string {
	return filepath.Join(p.Dir(task), task.Key.Stem+".out")
}

// StderrPath is where the task's captured stderr is stored.
func (p Placer) StderrPath(task executor.Task) string {
	return filepath.Join(p.Dir(task), task.Key.Stem+".log")
}

func (p Placer) SummaryPath() string {
	return filepath.Join(p.Root, SummaryFileName)
}
