// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"path/filepath"
)

// mountStep is one mount(8) invocation plus the directories that must
// exist before it can succeed. Target is recorded separately from the
// argv so teardown can unmount in reverse order.
type mountStep struct {
	// Target is the mount point inside the sandbox.
	Target string

	// Argv is the full mount helper invocation establishing it.
	Argv []string

	// MkdirTargets are directories created (inside an already-mounted
	// writable layer) before Argv runs.
	MkdirTargets []string

	// Recursive marks a target whose unmount must detach the whole
	// subtree: the root rbind carries the host's child mounts along.
	Recursive bool
}

// unmountTarget is one teardown step derived from the mount plan.
type unmountTarget struct {
	Path      string
	Recursive bool
}

// Paths are the host locations woven into every sandbox.
type Paths struct {
	// CacheDir is the shared package cache, bound read-write.
	CacheDir string

	// StateDir is the shared package state database, bound read-write.
	StateDir string

	// TrustStore is the generated CA certificate directory, bound
	// read-only.
	TrustStore string

	// ResolvConf is the host resolver configuration.
	ResolvConf string
}

// mountPlan returns the ordered mount steps for a sandbox rooted at
// dir. The order is a dependency chain; executing out of order leaves
// later steps with no mount point to land on.
func mountPlan(dir string, paths Paths) []mountStep {
	inside := func(hostPath string) string {
		return filepath.Join(dir, hostPath)
	}

	steps := []mountStep{
		// Recursive bind of the real root, so hosts with a separate
		// /usr or /etc mount still present them inside the sandbox.
		// Made a slave first: an unmount inside the sandbox must not
		// propagate back to the host. The read-only remount applies
		// to the top mount; the writable layers below shadow the
		// paths the tool mutates.
		{Target: dir, Argv: []string{"mount", "--rbind", "/", dir}, Recursive: true},
		{Target: dir, Argv: []string{"mount", "--make-rslave", dir}, Recursive: true},
		{Target: dir, Argv: []string{"mount", "-o", "remount,bind,ro", dir}, Recursive: true},

		// Virtual filesystems.
		{Target: inside("/proc"), Argv: []string{"mount", "-t", "proc", "proc", inside("/proc")}},
		{Target: inside("/dev"), Argv: []string{"mount", "-t", "devtmpfs", "devtmpfs", inside("/dev")}},
		{Target: inside("/tmp"), Argv: []string{"mount", "-t", "tmpfs", "tmpfs", inside("/tmp")}},

		// Writable layers. These shadow the read-only root, so every
		// host path under /run or /var the tool needs must be
		// re-established afterwards.
		{Target: inside("/run"), Argv: []string{"mount", "-t", "tmpfs", "tmpfs", inside("/run")}},
		{Target: inside("/var"), Argv: []string{"mount", "-t", "tmpfs", "tmpfs", inside("/var")}},

		// Shared cache and state, read-write. Mutating these from
		// concurrent sandboxes is safe because libzypp's cache writes
		// are per-package files; it is exactly this sharing that makes
		// prefetched packages visible to the final transaction.
		{
			Target:       inside(paths.CacheDir),
			Argv:         []string{"mount", "--bind", paths.CacheDir, inside(paths.CacheDir)},
			MkdirTargets: []string{inside(paths.CacheDir)},
		},
		{
			Target:       inside(paths.StateDir),
			Argv:         []string{"mount", "--bind", paths.StateDir, inside(paths.StateDir)},
			MkdirTargets: []string{inside(paths.StateDir)},
		},

		// Certificate trust store, read-only: it lives under /var and
		// was just shadowed by the tmpfs.
		{
			Target:       inside(paths.TrustStore),
			Argv:         []string{"mount", "--bind", paths.TrustStore, inside(paths.TrustStore)},
			MkdirTargets: []string{inside(paths.TrustStore)},
		},
		{Target: inside(paths.TrustStore), Argv: []string{"mount", "-o", "remount,bind,ro", inside(paths.TrustStore)}},
	}

	return steps
}

// unmountTargets returns the distinct mount targets of a plan in
// reverse establishment order. Remount steps share a target with the
// bind they modify and collapse into a single unmount.
func unmountTargets(steps []mountStep) []unmountTarget {
	var targets []unmountTarget
	seen := make(map[string]bool)
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if seen[step.Target] {
			continue
		}
		seen[step.Target] = true
		targets = append(targets, unmountTarget{Path: step.Target, Recursive: step.Recursive})
	}
	return targets
}
