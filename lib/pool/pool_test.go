// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRejectsInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size, t.TempDir()); err == nil {
			t.Errorf("New(%d) succeeded, want error", size)
		}
	}
}

func TestSlotDirectories(t *testing.T) {
	root := t.TempDir()
	p, err := New(3, root)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	seen := make(map[int]bool)
	for i := 0; i < 3; i++ {
		slot, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		if seen[slot.ID] {
			t.Errorf("slot %d handed out twice", slot.ID)
		}
		seen[slot.ID] = true

		want := filepath.Join(root, fmt.Sprintf("slot-%d", slot.ID))
		if slot.Dir != want {
			t.Errorf("slot %d dir = %q, want %q", slot.ID, slot.Dir, want)
		}
		if slot.Provisioned {
			t.Errorf("slot %d starts provisioned", slot.ID)
		}
	}
}

func TestAcquireBound(t *testing.T) {
	const size = 3
	const workers = 20

	p, err := New(size, t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot, err := p.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			n := current.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
			p.Release(slot)
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > size {
		t.Errorf("observed %d concurrent holders, bound is %d", got, size)
	}
}

func TestAcquireObservesCancellation(t *testing.T) {
	p, err := New(1, t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Exhaust the pool.
	slot, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer p.Release(slot)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire on cancelled context returned %v, want context.Canceled", err)
	}
}

func TestReleaseWithoutAcquirePanics(t *testing.T) {
	p, err := New(1, t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Release without Acquire did not panic")
		}
	}()
	p.Release(&Slot{ID: 99})
}

func TestDrain(t *testing.T) {
	p, err := New(4, t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	held, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	free := p.Drain()
	if len(free) != 3 {
		t.Fatalf("Drain returned %d slots, want 3", len(free))
	}
	p.Release(held)
	if got := len(p.Drain()); got != 1 {
		t.Errorf("second Drain returned %d slots, want 1", got)
	}
}
