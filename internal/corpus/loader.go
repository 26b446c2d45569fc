// Package corpus turns a SmartBugs-style manifest into executor tasks.
package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"smartfix-harness/internal/config"
	"smartfix-harness/internal/executor"
	ilogger "smartfix-harness/internal/logger"
)

// ErrManifest matches every error returned by Load.
var ErrManifest = errors.New("invalid manifest")

// ManifestError reports a manifest that cannot produce a task list. Entry is
// the 0-based array index of the offending entry, or -1 when the problem is
// not tied to a single entry.
type ManifestError struct {
	Path  string
	Entry int
	Err   error
}

func (e *ManifestError) Error() string {
	if e.Entry >= 0 {
		return fmt.Sprintf("manifest %s: entry #%d: %v", e.Path, e.Entry, e.Err)
	}
	return fmt.Sprintf("manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

func (e *ManifestError) Is(target error) bool { return target == ErrManifest }

type manifestEntry struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	ContractNames []string `json:"contract_names"`
}

// Load reads root/manifestName and returns one task per entry in manifest
// order. Only the first contract name of each entry becomes the target.
func Load(root, manifestName, policy string) ([]executor.Task, error) {
	if strings.TrimSpace(manifestName) == "" {
		manifestName = config.DefaultManifestName
	}
	manifestPath := filepath.Join(root, manifestName)

	data, err := os.ReadFile(manifestPath) // #nosec G304 -- manifest path comes from the operator
	if err != nil {
		return nil, &ManifestError{Path: manifestPath, Entry: -1, Err: err}
	}

	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &ManifestError{Path: manifestPath, Entry: -1, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(entries) == 0 {
		return nil, &ManifestError{Path: manifestPath, Entry: -1, Err: errors.New("manifest has no entries")}
	}

	tasks := make([]executor.Task, 0, len(entries))
	for i, entry := range entries {
		task, err := buildTask(root, i, entry)
		if err != nil {
			return nil, &ManifestError{Path: manifestPath, Entry: i, Err: err}
		}
		tasks = append(tasks, task)
	}

	if err := resolveCollisions(tasks, policy); err != nil {
		return nil, &ManifestError{Path: manifestPath, Entry: -1, Err: err}
	}
	return tasks, nil
}

func buildTask(root string, index int, entry manifestEntry) (executor.Task, error) {
	rel := strings.TrimSpace(entry.Path)
	if rel == "" {
		return executor.Task{}, errors.New("path is empty")
	}
	if len(entry.ContractNames) == 0 || strings.TrimSpace(entry.ContractNames[0]) == "" {
		return executor.Task{}, fmt.Errorf("%s: contract_names is empty", rel)
	}
	if extra := len(entry.ContractNames) - 1; extra > 0 {
		ilogger.LogDebug("ignoring extra contract names",
			"index", index, "path", rel, "used", entry.ContractNames[0], "ignored", extra)
	}

	inputPath := filepath.Join(root, rel)
	if !isWithinDir(inputPath, root) {
		ilogger.LogWarn(fmt.Sprintf("manifest entry points outside the corpus root: %s", inputPath), "index", index)
	}

	return executor.Task{
		Index:     index,
		InputPath: inputPath,
		Target:    strings.TrimSpace(entry.ContractNames[0]),
		Key: executor.LogicalKey{
			Group: filepath.Base(filepath.Dir(inputPath)),
			Stem:  Stem(inputPath),
		},
	}, nil
}

// Stem is the file name up to its first dot. A name starting with a dot is
// kept whole.
func Stem(path string) string {
	name := filepath.Base(path)
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}

func isWithinDir(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	rel = filepath.Clean(rel)
	if rel == "." {
		return true
	}
	if rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// resolveCollisions applies policy to tasks sharing a LogicalKey. Under
// "suffix" the second and later holders of a key are renamed <stem>-2,
// <stem>-3, ... in manifest order, skipping names already taken.
func resolveCollisions(tasks []executor.Task, policy string) error {
	policy, err := config.ParseCollisionPolicy(policy)
	if err != nil {
		return err
	}

	holders := make(map[executor.LogicalKey][]int, len(tasks))
	for i, task := range tasks {
		holders[task.Key] = append(holders[task.Key], i)
	}

	var dups []executor.LogicalKey
	for key, idx := range holders {
		if len(idx) > 1 {
			dups = append(dups, key)
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Slice(dups, func(i, j int) bool { return holders[dups[i]][0] < holders[dups[j]][0] })

	if policy == config.CollisionError {
		errs := make([]error, 0, len(dups))
		for _, key := range dups {
			errs = append(errs, fmt.Errorf("output key %s shared by entries %s", key, joinInts(holders[key])))
		}
		return errors.Join(errs...)
	}

	for _, key := range dups {
		n := 2
		for _, i := range holders[key][1:] {
			for {
				candidate := executor.LogicalKey{Group: key.Group, Stem: fmt.Sprintf("%s-%d", key.Stem, n)}
				n++
				if _, taken := holders[candidate]; taken {
					continue
				}
				holders[candidate] = []int{i}
				ilogger.LogWarn(fmt.Sprintf("output key %s renamed to %s", key, candidate), "index", i)
				tasks[i].Key = candidate
				break
			}
		}
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("#%d", v)
	}
	return strings.Join(parts, ", ")
}
