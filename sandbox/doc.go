// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox builds and tears down the isolated filesystem view
// each concurrent zypper invocation runs in.
//
// libzypp permits a single instance per root filesystem. Giving every
// invocation its own chroot (a read-only bind of the real root with
// private virtual filesystems layered on top) satisfies that check
// per-invocation while the package cache stays shared. Mount order is
// load-bearing: the root bind must exist before the virtual
// filesystems can be layered on it, the /var tmpfs must exist before
// the cache and trust-store binds can be re-established inside it, and
// the /run tmpfs must exist before the resolver configuration can be
// materialized into it.
//
// All mount work is performed by exec'ing the mount(8) and umount(8)
// helpers rather than raw syscalls; [Provisioner] assembles the helper
// argument vectors ([Provisioner.Plan] exposes them for inspection
// without touching the system) and runs them through an injectable
// [CommandRunner]. Teardown tolerates transiently busy mounts, since a
// just-terminated child can hold one open, by retrying with exponential
// backoff and falling back to a lazy unmount at the ceiling.
//
// [Capabilities] probes the preconditions (root privilege, helper
// binaries present) so the scheduler can refuse to run before any
// mount is attempted.
package sandbox
