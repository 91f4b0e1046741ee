// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pavinjosdev/zypperoni/lib/config"
	"github.com/pavinjosdev/zypperoni/lib/pool"
	"github.com/pavinjosdev/zypperoni/lib/process"
	"github.com/pavinjosdev/zypperoni/lib/progress"
	"github.com/pavinjosdev/zypperoni/lib/zypplock"
	"github.com/pavinjosdev/zypperoni/sandbox"
	"github.com/pavinjosdev/zypperoni/scheduler"
)

// prefetchSpec describes what one subcommand prefetches and whether it
// hands off to a real transaction afterward.
type prefetchSpec struct {
	op       scheduler.Operation
	verbArgs []string
	refresh  bool
	handoff  bool
}

// runPrefetch is the shared body of dup, in and ref: check
// preconditions, derive the work items, claim the lock, run the
// sandboxed batch, clean up, and optionally hand off the real
// transaction.
func runPrefetch(ctx context.Context, logger *slog.Logger, flags commonFlags, spec prefetchSpec) error {
	if err := flags.validate(); err != nil {
		return err
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	// Fatal preconditions, checked before any mount work.
	caps := sandbox.DetectCapabilities(cfg.Tool)
	if !caps.Root {
		return process.Exitf(process.ExitNotRoot, "root privilege required for bind mounts and chroot")
	}
	if missing := caps.MissingHelpers(); len(missing) > 0 {
		return process.Exitf(process.ExitMissingHelper,
			"required helpers not found: %s", strings.Join(missing, ", "))
	}

	// Derive the work items before claiming the lock: the planning
	// invocations run on the real root and do the tool's own locking.
	items, err := deriveItems(ctx, cfg, logger, spec)
	if err != nil {
		return err
	}

	if flags.dryRun {
		for _, item := range items {
			fmt.Println(item.ID)
		}
		return nil
	}

	if len(items) == 0 {
		// Nothing required fetching; there is nothing to hand off
		// either.
		fmt.Println("Nothing to do.")
		return nil
	}

	lock, err := zypplock.New(zypplock.Options{
		Path:   cfg.Paths.LockFile,
		Tool:   cfg.Tool,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := lock.Acquire(os.Getpid()); err != nil {
		if errors.Is(err, zypplock.ErrLocked) {
			return &process.ExitError{Code: process.ExitLocked, Err: err}
		}
		return err
	}

	// Guaranteed finalizer: every exit path below, including panics,
	// unwinds whatever got set up so far, exactly once. Fields are
	// filled in as the resources come into existence.
	cleaner := &scheduler.Cleaner{Lock: lock, Logger: logger}
	defer cleaner.Run()

	tempRoot, err := scheduler.NewTempRoot(cfg.Paths.TempParent)
	if err != nil {
		return err
	}
	cleaner.TempRoot = tempRoot

	slots, err := pool.New(flags.jobs, tempRoot)
	if err != nil {
		return err
	}

	provisioner := sandbox.NewProvisioner(sandbox.Options{
		Paths: sandbox.Paths{
			CacheDir:   cfg.Paths.CacheDir,
			StateDir:   cfg.Paths.StateDir,
			TrustStore: cfg.Paths.TrustStore,
			ResolvConf: cfg.Paths.ResolvConf,
		},
		Retries: cfg.Teardown.Retries,
		Backoff: cfg.Teardown.BackoffDuration(),
		Logger:  logger,
	})
	cleaner.Pool = slots
	cleaner.Provisioner = provisioner

	printer := progress.NewPrinter(os.Stdout, len(items))
	sched, err := scheduler.New(scheduler.Config{
		Pool:        slots,
		Provisioner: provisioner,
		Runner:      &scheduler.ChrootRunner{Tool: cfg.Tool, Logger: logger},
		Reporter:    printer,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	summary, err := sched.Dispatch(ctx, spec.op, items)
	printer.Summary(summary)
	if err != nil {
		return fmt.Errorf("prefetch aborted: %w", err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("cancelled after %d of %d items", summary.Succeeded+summary.Failed+summary.Cancelled, summary.Total)
	}

	if !spec.handoff {
		return nil
	}

	// The hand-off needs the lock free and the sandboxes gone; run the
	// finalizer now rather than on return.
	cleaner.Run()

	handoff := &scheduler.Handoff{
		Tool:           cfg.Tool,
		Args:           spec.verbArgs,
		NonInteractive: flags.nonInteractive,
		Logger:         logger,
	}
	return handoff.Run(ctx)
}
