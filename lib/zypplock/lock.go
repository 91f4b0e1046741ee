// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package zypplock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultPath is libzypp's well-known lock file location.
const DefaultPath = "/run/zypp.pid"

// ErrLocked reports that the lock file names a live process matching
// the tool name. The holder's claim is legitimate and must not be
// overwritten.
var ErrLocked = errors.New("zypp lock held by a running process")

// LiveProbe reports whether pid is a live process whose command name
// matches tool. Injectable for tests.
type LiveProbe func(pid int, tool string) bool

// Lock is a handle on the tool's single-instance lock file.
type Lock struct {
	path   string
	tool   string
	probe  LiveProbe
	logger *slog.Logger

	held bool
}

// Options configures a Lock.
type Options struct {
	// Path is the lock file location. Defaults to DefaultPath.
	Path string

	// Tool is the command name a live holder must match (e.g.
	// "zypper"). Required.
	Tool string

	// Probe overrides process liveness detection. Defaults to
	// checking signal delivery and /proc/<pid>/comm.
	Probe LiveProbe

	// Logger for lock operations.
	Logger *slog.Logger
}

// New creates a lock handle. No filesystem access happens until
// Acquire.
func New(opts Options) (*Lock, error) {
	if opts.Tool == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	probe := opts.Probe
	if probe == nil {
		probe = procLive
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Lock{path: path, tool: opts.Tool, probe: probe, logger: logger}, nil
}

// Acquire claims the lock for pid, normally os.Getpid(). When the file
// already names a live process matching the tool name, Acquire returns
// ErrLocked without modifying the file. Stale content (dead pid,
// unrelated process, garbage) is overwritten in place so the file's
// ownership and permissions survive.
func (l *Lock) Acquire(pid int) error {
	file, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening lock file %s: %w", l.path, err)
	}
	defer file.Close()

	// A short read (including EOF on an empty file) just yields less
	// content to parse; read errors degrade to treating the file as
	// unclaimed, which is safe because a live holder would still be
	// running under its own pid.
	data := make([]byte, 32)
	n, _ := file.Read(data)
	content := strings.TrimSpace(string(data[:n]))

	if holder, err := strconv.Atoi(content); err == nil && holder > 0 && holder != pid {
		if l.probe(holder, l.tool) {
			return fmt.Errorf("%w: pid %d in %s", ErrLocked, holder, l.path)
		}
		l.logger.Debug("overwriting stale lock", "path", l.path, "stale_pid", holder)
	}

	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating lock file %s: %w", l.path, err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(pid)), 0); err != nil {
		return fmt.Errorf("writing lock file %s: %w", l.path, err)
	}

	l.held = true
	l.logger.Debug("acquired zypp lock", "path", l.path, "pid", pid)
	return nil
}

// Release clears the lock file's content. The file itself is never
// unlinked: libzypp expects it to exist, and unlinking would race with
// another instance opening it. Idempotent; releasing an unheld lock is
// a no-op.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false

	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return fmt.Errorf("clearing lock file %s: %w", l.path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing lock file %s: %w", l.path, err)
	}
	l.logger.Debug("released zypp lock", "path", l.path)
	return nil
}

// Held reports whether this handle currently holds the lock.
func (l *Lock) Held() bool {
	return l.held
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// procLive is the default liveness probe: pid must accept signal 0 and
// /proc/<pid>/comm must match the tool's command name.
func procLive(pid int, tool string) bool {
	if err := unix.Kill(pid, 0); err != nil {
		// ESRCH means no such process. EPERM means the process exists
		// but belongs to someone else; still treat it as live.
		if !errors.Is(err, unix.EPERM) {
			return false
		}
	}
	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(comm)) == tool
}
