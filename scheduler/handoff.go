// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// singleTransactionEnv enables libzypp's single-rpm-transaction commit
// path. It is applied ONLY to the hand-off invocation: prefetch runs
// never receive it, and never run a mutating verb in the first place.
const singleTransactionEnv = "ZYPP_SINGLE_RPMTRANS=1"

// Handoff is the final, necessarily-sequential invocation that performs
// the real transaction on the real root once prefetching filled the
// shared cache.
type Handoff struct {
	// Tool is the package manager binary.
	Tool string

	// Args is the full argument list, e.g. ["dist-upgrade"] or
	// ["install", "vim", "htop"].
	Args []string

	// NonInteractive adds the tool's non-interactive flag, for
	// unattended runs.
	NonInteractive bool

	// Logger for the invocation trace.
	Logger *slog.Logger
}

// Run executes the hand-off with stdio inherited, so the user interacts
// with the real tool directly. The sandboxes and the exclusivity lock
// must already be gone: the tool performs its own locking here.
func (h *Handoff) Run(ctx context.Context) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := h.Args
	if h.NonInteractive {
		args = append([]string{"--non-interactive"}, args...)
	}

	cmd := exec.CommandContext(ctx, h.Tool, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), singleTransactionEnv)

	logger.Info("handing off to the package manager", "tool", h.Tool, "args", args)

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("hand-off transaction exited with status %d", exitErr.ExitCode())
		}
		return fmt.Errorf("running hand-off transaction: %w", err)
	}
	return nil
}
