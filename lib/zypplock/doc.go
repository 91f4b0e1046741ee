// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// Package zypplock coordinates with zypper's single-instance lock file.
//
// libzypp refuses to run when /run/zypp.pid names a live zypper
// process. zypperoni claims that lock once, on behalf of every sandboxed
// child it spawns: the scheduler writes its own pid into the lock file
// on the real root, while each child, running inside its own chroot
// with a private /run, independently passes libzypp's internal check.
//
// A [Lock] is an explicit handle threaded through the scheduler rather
// than ambient filesystem access, so tests can point it at a temp file
// and inject the process-liveness probe. On release the file content is
// truncated but the file itself is preserved with its permissions
// intact, mirroring what zypper does with its own lock.
package zypplock
