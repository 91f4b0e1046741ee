// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pavinjosdev/zypperoni/lib/pool"
)

// ErrProvisioning reports that every slot failed to provision its
// sandbox. One slot failing is a per-item problem; all of them failing
// means the host cannot mount sandboxes at all, and the batch aborts.
var ErrProvisioning = errors.New("sandbox provisioning failed on every slot")

// Provisioner is the sandbox lifecycle the scheduler depends on,
// satisfied by sandbox.Provisioner.
type Provisioner interface {
	Provision(ctx context.Context, slot *pool.Slot) error
	Teardown(ctx context.Context, slot *pool.Slot) error
}

// Scheduler dispatches work items across sandbox slots.
type Scheduler struct {
	pool     *pool.Pool
	prov     Provisioner
	runner   TaskRunner
	reporter Reporter
	logger   *slog.Logger
}

// Config wires a Scheduler.
type Config struct {
	Pool        *pool.Pool
	Provisioner Provisioner
	Runner      TaskRunner

	// Reporter receives per-item events. Optional.
	Reporter Reporter

	// Logger for dispatch traces.
	Logger *slog.Logger
}

// New creates a Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Pool == nil {
		return nil, errors.New("pool is required")
	}
	if cfg.Provisioner == nil {
		return nil, errors.New("provisioner is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("runner is required")
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = ReporterFunc(func(Event) {})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		pool:     cfg.Pool,
		prov:     cfg.Provisioner,
		runner:   cfg.Runner,
		reporter: reporter,
		logger:   logger,
	}, nil
}

// Dispatch runs op for every item, bounded by the pool size. Items are
// dequeued in input order and complete in whatever order the host
// schedules them. The call returns once every spawned task has
// finished. A cancelled context stops new dispatches; in-flight tasks
// are marked cancelled and never retried.
//
// Per-item failures are reported and counted, never fatal. The only
// batch-level error is ErrProvisioning, raised when consecutive tasks
// covering every slot (at least two) failed to provision without a
// single success in between.
func (s *Scheduler) Dispatch(ctx context.Context, op Operation, items []WorkItem) (Summary, error) {
	// Batch-internal cancellation for the provisioning abort, layered
	// over the caller's cancellation.
	ctx, abort := context.WithCancel(ctx)
	defer abort()

	summary := Summary{Total: len(items)}
	var succeeded, failed, cancelled atomic.Int64

	// Consecutive provisioning failures across tasks. Reset by any
	// slot that provisions cleanly. A streak covering every slot means
	// the host cannot mount sandboxes; a single slot's failure is not
	// a signal, so the threshold never drops below two.
	var provisionStreak atomic.Int64
	var provisionAbort atomic.Bool
	abortThreshold := int64(s.pool.Size())
	if abortThreshold < 2 {
		abortThreshold = 2
	}

	var wg sync.WaitGroup
	dispatched := 0
	for _, item := range items {
		slot, err := s.pool.Acquire(ctx)
		if err != nil {
			// Cancelled while waiting: remaining items never start.
			break
		}
		dispatched++

		wg.Add(1)
		go func(slot *pool.Slot, item WorkItem) {
			defer wg.Done()
			defer s.pool.Release(slot)

			s.reporter.Report(Event{Kind: EventStart, Item: item, Op: op})

			if err := s.prov.Provision(ctx, slot); err != nil {
				if ctx.Err() != nil {
					cancelled.Add(1)
					s.reporter.Report(Event{Kind: EventCancelled, Item: item, Op: op})
					return
				}
				failed.Add(1)
				s.reporter.Report(Event{Kind: EventFailure, Item: item, Op: op, Detail: err.Error()})
				s.logger.Error("sandbox provisioning failed",
					"slot", slot.ID, "item", item.ID, "error", err)
				if provisionStreak.Add(1) >= abortThreshold {
					provisionAbort.Store(true)
					abort()
				}
				return
			}
			provisionStreak.Store(0)

			result := s.runner.Run(ctx, slot, op, item)
			switch {
			case result.OK():
				succeeded.Add(1)
				s.reporter.Report(Event{Kind: EventSuccess, Item: item, Op: op})
			case ctx.Err() != nil:
				cancelled.Add(1)
				s.reporter.Report(Event{Kind: EventCancelled, Item: item, Op: op})
			default:
				failed.Add(1)
				detail := ""
				if result.Err != nil {
					detail = result.Err.Error()
				}
				s.reporter.Report(Event{
					Kind: EventFailure, Item: item, Op: op,
					Code: result.Code, Detail: detail,
				})
				s.logger.Warn("prefetch item failed",
					"item", item.ID, "ordinal", item.Ordinal,
					"code", result.Code, "stderr", string(result.Stderr))
			}
		}(slot, item)
	}

	wg.Wait()

	summary.Succeeded = int(succeeded.Load())
	summary.Failed = int(failed.Load())
	summary.Cancelled = int(cancelled.Load())
	summary.Skipped = len(items) - dispatched

	if provisionAbort.Load() {
		return summary, ErrProvisioning
	}
	return summary, nil
}
