// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"fmt"
	"path/filepath"
)

// Slot is one reusable concurrency unit. Its sandbox directory is a
// subdirectory of the run's private temp root, named after the slot ID.
type Slot struct {
	// ID is the slot's index, stable for the run. Used in sandbox
	// directory names and log lines.
	ID int

	// Dir is the root of this slot's sandbox.
	Dir string

	// Provisioned is true once the sandbox mounts are established.
	// Owned by whichever task currently holds the slot; the pool
	// itself never touches it.
	Provisioned bool
}

// Pool is a fixed-size set of slots handed out one at a time per slot.
type Pool struct {
	slots chan *Slot
	size  int
}

// New creates a pool of size slots whose sandbox directories live under
// tempRoot. All slots start free and unprovisioned.
func New(size int, tempRoot string) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	slots := make(chan *Slot, size)
	for i := 0; i < size; i++ {
		slots <- &Slot{
			ID:  i,
			Dir: filepath.Join(tempRoot, fmt.Sprintf("slot-%d", i)),
		}
	}

	return &Pool{slots: slots, size: size}, nil
}

// Size returns the fixed slot count.
func (p *Pool) Size() int {
	return p.size
}

// Acquire blocks until a slot is free, then returns it exclusively.
// Returns the context's error when ctx is cancelled first.
func (p *Pool) Acquire(ctx context.Context) (*Slot, error) {
	select {
	case slot := <-p.slots:
		return slot, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a slot to the pool, unblocking one waiter. The slot's
// sandbox is retained for reuse by the next holder.
func (p *Pool) Release(slot *Slot) {
	select {
	case p.slots <- slot:
	default:
		// A release without a matching acquire is a programming error;
		// panic rather than silently grow the pool.
		panic(fmt.Sprintf("pool: release of slot %d without acquire", slot.ID))
	}
}

// Drain collects every slot currently free in the pool without
// blocking. The cleanup coordinator uses it to enumerate sandboxes
// after all tasks have finished.
func (p *Pool) Drain() []*Slot {
	var out []*Slot
	for {
		select {
		case slot := <-p.slots:
			out = append(out, slot)
		default:
			return out
		}
	}
}
