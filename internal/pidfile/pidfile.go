// Package pidfile owns the on-disk liveness record for the warden daemon.
//
// The pid file holds the bare decimal process id of the instance that
// believes itself running. Probe combines the file contents with a
// zero-effect liveness signal to classify the instance as stopped, running,
// or stale. Probe never deletes a stale file; cleanup belongs to the owning
// process on exit and to the stop verb's unreachable-process path.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// State describes the liveness conclusion drawn from a pid file.
type State string

const (
	// StateStopped means no pid file exists.
	StateStopped State = "stopped"
	// StateRunning means the recorded pid answered the liveness probe.
	StateRunning State = "running"
	// StateStale means a pid file exists but no live process backs it.
	StateStale State = "stale"
)

// ErrNotRecorded reports that no pid file exists at the probed path.
var ErrNotRecorded = errors.New("pid file not present")

// Read returns the process id recorded at path. A missing file is reported
// as ErrNotRecorded; unreadable or non-numeric contents are their own errors.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotRecorded
		}
		return 0, fmt.Errorf("read pid file %q: %w", path, err)
	}
	value := strings.TrimSpace(string(data))
	pid, convErr := strconv.Atoi(value)
	if convErr != nil || pid <= 0 {
		return 0, fmt.Errorf("pid file %q holds %q, not a process id", path, value)
	}
	return pid, nil
}

// Probe classifies the instance recorded at path. Any pid that cannot be
// read, parsed, or signalled counts as not running so a new start may
// proceed; the stale file itself is left in place.
func Probe(path string) (State, int) {
	pid, err := Read(path)
	if err != nil {
		if errors.Is(err, ErrNotRecorded) {
			return StateStopped, 0
		}
		return StateStale, 0
	}
	if alive(pid) {
		return StateRunning, pid
	}
	return StateStale, pid
}

// Write records pid at path as a bare decimal, replacing any previous record.
func Write(path string, pid int) error {
	if pid <= 0 {
		return fmt.Errorf("refusing to record invalid pid %d", pid)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("write pid file %q: %w", path, err)
	}
	return nil
}

// Remove deletes the pid file. A file that is already gone is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file %q: %w", path, err)
	}
	return nil
}
