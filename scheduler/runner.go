// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"syscall"

	"github.com/pavinjosdev/zypperoni/lib/pool"
)

// TaskResult is the outcome of one sandboxed invocation.
type TaskResult struct {
	Item   WorkItem
	Code   int
	Stdout []byte
	Stderr []byte

	// Err is set when the invocation could not run at all (helper
	// missing, context cancelled). A non-zero exit is reported via
	// Code, not Err.
	Err error
}

// OK reports whether the invocation ran and exited zero.
func (r TaskResult) OK() bool {
	return r.Err == nil && r.Code == 0
}

// TaskRunner executes one tool invocation inside a slot's sandbox.
// Injectable so scheduler tests run without chroot or zypper.
type TaskRunner interface {
	Run(ctx context.Context, slot *pool.Slot, op Operation, item WorkItem) TaskResult
}

// ChrootRunner runs the tool inside a slot's sandbox via chroot(1).
type ChrootRunner struct {
	// Tool is the package manager binary name, resolved inside the
	// chroot (the sandbox sees the real root's /usr).
	Tool string

	// Logger for invocation traces.
	Logger *slog.Logger
}

// sandboxEnv is the entire environment a prefetch invocation sees. The
// parent environment is never inherited: prefetch runs only download
// and refresh verbs, and must not receive the single-transaction
// override reserved for the final hand-off.
var sandboxEnv = []string{
	"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
}

// Run executes the operation for one item inside the slot's chroot,
// capturing both output streams. The child gets its own process group
// so cancellation kills the whole helper tree.
func (r *ChrootRunner) Run(ctx context.Context, slot *pool.Slot, op Operation, item WorkItem) TaskResult {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	argv := append([]string{slot.Dir, r.Tool}, op.Args(item.ID)...)
	cmd := exec.CommandContext(ctx, "chroot", argv...)
	cmd.Env = sandboxEnv
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("running sandboxed invocation",
		"slot", slot.ID, "op", op.String(), "item", item.ID, "ordinal", item.Ordinal)

	result := TaskResult{Item: item}
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.Code = exitErr.ExitCode()
		} else {
			result.Err = err
		}
	}
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()
	return result
}
