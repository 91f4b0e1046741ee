// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"os/exec"
)

// CommandRunner executes a helper binary and returns its combined
// output. Provisioning and teardown route every mount(8)/umount(8)
// invocation through this so tests can assert on the exact helper
// commands without touching real mounts.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner is the default CommandRunner, backed by os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
