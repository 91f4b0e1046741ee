// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/pavinjosdev/zypperoni/lib/pool"
	"github.com/pavinjosdev/zypperoni/lib/zypplock"
)

// NewTempRoot creates the run's private temp root under parent:
// uniquely named, owner-only, holding every slot's sandbox subtree.
// It never collides with a concurrently running instance and is fully
// removed by the Cleaner.
func NewTempRoot(parent string) (string, error) {
	dir, err := os.MkdirTemp(parent, "zypperoni-")
	if err != nil {
		return "", fmt.Errorf("creating private temp root: %w", err)
	}
	return dir, nil
}

// Cleaner unwinds a run's residue. It runs exactly once regardless of
// how many exit paths invoke it, in fixed order: sandbox teardown,
// temp root removal, lock release. Every step is attempted even when
// an earlier one reported an error; an early failure must not abandon
// later cleanup.
type Cleaner struct {
	once sync.Once

	// Pool holds the slots whose sandboxes need teardown. By the time
	// the Cleaner runs, all tasks have finished and every slot is
	// back in the pool.
	Pool *pool.Pool

	// Provisioner tears the sandboxes down.
	Provisioner Provisioner

	// TempRoot is the run's private temp root, removed recursively.
	TempRoot string

	// Lock is released (content cleared) last, so no window exists
	// where another instance starts while our mounts linger. Nil when
	// the lock was never acquired.
	Lock *zypplock.Lock

	// Logger for cleanup progress.
	Logger *slog.Logger
}

// Run performs the cleanup. Safe to call from multiple deferred paths;
// only the first call does work. Errors are logged, never returned:
// no caller of a finalizer could react to them.
func (c *Cleaner) Run() {
	c.once.Do(c.run)
}

func (c *Cleaner) run() {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Cleanup must proceed even when the run was cancelled, so it
	// gets a fresh context.
	ctx := context.Background()

	if c.Pool != nil && c.Provisioner != nil {
		for _, slot := range c.Pool.Drain() {
			if err := c.Provisioner.Teardown(ctx, slot); err != nil {
				logger.Warn("sandbox teardown incomplete", "slot", slot.ID, "error", err)
			}
		}
	}

	if c.TempRoot != "" {
		if err := os.RemoveAll(c.TempRoot); err != nil {
			logger.Warn("removing private temp root failed", "path", c.TempRoot, "error", err)
		}
	}

	if c.Lock != nil {
		if err := c.Lock.Release(); err != nil {
			logger.Warn("releasing zypp lock failed", "path", c.Lock.Path(), "error", err)
		}
	}
}
