// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// zypperoni runs zypper's download phase in parallel.
//
// Usage:
//
//	zypperoni dup [flags]
//	zypperoni in [flags] <package>...
//	zypperoni ref [flags]
//	zypperoni version
//
// Each concurrent zypper invocation runs inside its own chroot sandbox
// so libzypp's single-instance check is satisfied per invocation while
// the package cache stays shared. After prefetching, dup and in hand
// off to a normal sequential zypper transaction that installs from the
// now-warm cache.
package main
