// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pavinjosdev/zypperoni/lib/pool"
)

// Provisioner builds and tears down per-slot sandboxes.
type Provisioner struct {
	paths   Paths
	run     CommandRunner
	retries int
	backoff time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	mounted map[int][]unmountTarget // slot ID -> unmount targets, reverse order
}

// Options configures a Provisioner.
type Options struct {
	// Paths are the host locations bound into every sandbox.
	Paths Paths

	// Runner executes mount helper commands. Defaults to ExecRunner.
	Runner CommandRunner

	// Retries is the unmount retry ceiling per mount point.
	Retries int

	// Backoff is the initial unmount retry delay; doubles per attempt.
	Backoff time.Duration

	// Logger for provisioning operations.
	Logger *slog.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(opts Options) *Provisioner {
	run := opts.Runner
	if run == nil {
		run = ExecRunner
	}
	retries := opts.Retries
	if retries < 1 {
		retries = 5
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		paths:   opts.Paths,
		run:     run,
		retries: retries,
		backoff: backoff,
		logger:  logger,
		mounted: make(map[int][]unmountTarget),
	}
}

// Plan returns the mount helper invocations Provision would execute for
// slot, without touching the system.
func (p *Provisioner) Plan(slot *pool.Slot) [][]string {
	steps := mountPlan(slot.Dir, p.paths)
	argvs := make([][]string, 0, len(steps))
	for _, step := range steps {
		argvs = append(argvs, step.Argv)
	}
	return argvs
}

// Provision establishes the sandbox for slot. Idempotent: a slot whose
// sandbox is already mounted is a no-op. On failure the partial mounts
// are unwound and the slot stays unprovisioned, so a later task may
// retry from scratch.
func (p *Provisioner) Provision(ctx context.Context, slot *pool.Slot) error {
	if slot.Provisioned {
		return nil
	}

	if err := os.MkdirAll(slot.Dir, 0o700); err != nil {
		return fmt.Errorf("creating sandbox root for slot %d: %w", slot.ID, err)
	}

	steps := mountPlan(slot.Dir, p.paths)
	var established []mountStep
	for _, step := range steps {
		for _, dir := range step.MkdirTargets {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				p.unwind(established)
				return fmt.Errorf("slot %d: creating mount point %s: %w", slot.ID, dir, err)
			}
		}
		if output, err := p.run(ctx, step.Argv[0], step.Argv[1:]...); err != nil {
			p.unwind(established)
			return fmt.Errorf("slot %d: %s: %w (output: %s)",
				slot.ID, strings.Join(step.Argv, " "), err, strings.TrimSpace(string(output)))
		}
		established = append(established, step)
	}

	if err := p.materializeResolvConf(slot.Dir); err != nil {
		p.unwind(established)
		return fmt.Errorf("slot %d: %w", slot.ID, err)
	}

	p.mu.Lock()
	p.mounted[slot.ID] = unmountTargets(steps)
	p.mu.Unlock()
	slot.Provisioned = true

	p.logger.Debug("sandbox provisioned", "slot", slot.ID, "dir", slot.Dir)
	return nil
}

// Teardown unmounts the sandbox for slot in reverse mount order. Busy
// mounts are retried with exponential backoff up to the ceiling, then
// lazily unmounted. Errors for individual mounts are joined, not
// short-circuited: every target gets an unmount attempt.
func (p *Provisioner) Teardown(ctx context.Context, slot *pool.Slot) error {
	if !slot.Provisioned {
		return nil
	}

	p.mu.Lock()
	targets := p.mounted[slot.ID]
	delete(p.mounted, slot.ID)
	p.mu.Unlock()

	var errs []error
	for _, target := range targets {
		if err := p.unmount(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	slot.Provisioned = false

	if len(errs) > 0 {
		return fmt.Errorf("slot %d teardown: %w", slot.ID, errors.Join(errs...))
	}
	p.logger.Debug("sandbox torn down", "slot", slot.ID, "dir", slot.Dir)
	return nil
}

// unmount removes one mount point, retrying EBUSY with backoff. A
// just-terminated chroot child can transiently hold the mount open;
// the ceiling keeps a genuinely wedged mount from stalling cleanup
// forever, with a lazy unmount as the last resort. Recursive targets
// use umount -R so the root rbind's child mounts detach with it; the
// lazy fallback detaches the subtree in either case.
func (p *Provisioner) unmount(ctx context.Context, target unmountTarget) error {
	args := []string{target.Path}
	if target.Recursive {
		args = []string{"-R", target.Path}
	}

	delay := p.backoff
	var lastOutput []byte
	var lastErr error
	for attempt := 0; attempt < p.retries; attempt++ {
		output, err := p.run(ctx, "umount", args...)
		if err == nil {
			return nil
		}
		if notMounted(output) {
			return nil
		}
		lastOutput, lastErr = output, err

		p.logger.Debug("unmount busy, retrying", "target", target.Path, "attempt", attempt+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}

	// Ceiling reached: detach lazily so the mount disappears once the
	// last holder exits.
	if output, err := p.run(ctx, "umount", "-l", target.Path); err != nil {
		return fmt.Errorf("unmounting %s: %w (last: %v, output: %s)",
			target.Path, err, lastErr, strings.TrimSpace(string(lastOutput)+string(output)))
	}
	p.logger.Warn("mount still busy after retries, detached lazily", "target", target.Path)
	return nil
}

// notMounted matches umount's complaint about an already-unmounted
// target, which teardown treats as success.
func notMounted(output []byte) bool {
	s := string(output)
	return strings.Contains(s, "not mounted") || strings.Contains(s, "no mount point specified")
}

// materializeResolvConf copies the host's resolver configuration into
// the sandbox's private /run. openSUSE symlinks /etc/resolv.conf into
// /run/netconfig, and the sandbox's /run tmpfs just shadowed that, so
// without this step name resolution inside the chroot is dead. A host
// with no resolver configuration at all is tolerated.
func (p *Provisioner) materializeResolvConf(dir string) error {
	data, err := os.ReadFile(p.paths.ResolvConf)
	if err != nil {
		if os.IsNotExist(err) {
			p.logger.Warn("host resolver configuration missing, sandbox will have no DNS",
				"path", p.paths.ResolvConf)
			return nil
		}
		return fmt.Errorf("reading resolver configuration: %w", err)
	}

	target := filepath.Join(dir, "run", "netconfig", "resolv.conf")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating resolver directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("materializing resolver configuration: %w", err)
	}
	return nil
}

// unwind tears down partially-established mounts after a provisioning
// failure, best-effort. The context is fresh: the unwind must run even
// when the provisioning context was cancelled mid-mount.
func (p *Provisioner) unwind(established []mountStep) {
	targets := unmountTargets(established)
	for _, target := range targets {
		if err := p.unmount(context.Background(), target); err != nil {
			p.logger.Warn("unwinding partial sandbox failed", "target", target, "error", err)
		}
	}
}
