// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers: fatal error
// reporting to stderr before the structured logger is initialized, and
// the exit-code taxonomy shared between main() and the scheduler.
//
// Fatal preconditions each map to a distinct exit code so scripts
// wrapping the binary can tell "zypper already holds its lock" apart
// from "not running as root" without parsing stderr. Per-item prefetch
// failures do not affect the exit code: the run exits zero when the
// batch completed, regardless of individual download failures.
package process
