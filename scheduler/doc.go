// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs a batch of zypper prefetch invocations
// concurrently, each inside a sandbox slot.
//
// [Scheduler.Dispatch] pulls work items in input order, acquires a slot
// from the bounded pool for each, and launches the task without waiting
// for it to finish; completion order is unconstrained. Slots lazily
// provision their sandbox on first use and keep it across items. A
// single item's non-zero exit is recorded and the batch continues; only
// every slot failing to provision aborts the run. Joining is a
// WaitGroup over the spawned tasks, so "all done" is a deterministic
// convergence signal rather than a polling loop.
//
// Cancellation is cooperative: a cancelled context stops new slot
// acquisitions, in-flight tasks observe it through their child process
// contexts and are marked cancelled, and the [Cleaner], a finalizer
// that runs exactly once on every exit path, unwinds the sandboxes,
// removes the private temp root, and releases the exclusivity lock, in
// that order, each step proceeding regardless of earlier failures.
package scheduler
