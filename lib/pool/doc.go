// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides a fixed-size pool of sandbox slots.
//
// A [Slot] is a reusable concurrency unit: a stable identifier plus the
// directory its chroot sandbox lives in. The pool hands slots out
// through a buffered token channel, so at most N callers hold a slot at
// any moment for a pool of size N. Slots carry their provisioning state
// across hand-outs: a sandbox mounted for one work item is reused by
// the next item assigned to the same slot.
//
// The pool never grows or shrinks after [New]; the concurrency bound of
// a run is fixed at scheduler start.
package pool
