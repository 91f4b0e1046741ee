// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// Capabilities describes whether this system can run sandboxed
// prefetches at all. Probed once, before any mount work, so a doomed
// run fails before it touches the filesystem.
type Capabilities struct {
	// Root is true when running with euid 0. Bind mounts and chroot
	// require it.
	Root bool

	// MountPath, UmountPath and ChrootPath are the resolved helper
	// binaries, empty when absent.
	MountPath  string
	UmountPath string
	ChrootPath string

	// ToolPath is the resolved package manager binary, empty when
	// absent.
	ToolPath string
}

// DetectCapabilities probes the host for the given tool binary name.
func DetectCapabilities(tool string) *Capabilities {
	caps := &Capabilities{
		Root: unix.Geteuid() == 0,
	}
	if path, err := exec.LookPath("mount"); err == nil {
		caps.MountPath = path
	}
	if path, err := exec.LookPath("umount"); err == nil {
		caps.UmountPath = path
	}
	if path, err := exec.LookPath("chroot"); err == nil {
		caps.ChrootPath = path
	}
	if path, err := exec.LookPath(tool); err == nil {
		caps.ToolPath = path
	}
	return caps
}

// MissingHelpers lists the required helper binaries that were not
// found.
func (c *Capabilities) MissingHelpers() []string {
	var missing []string
	if c.MountPath == "" {
		missing = append(missing, "mount")
	}
	if c.UmountPath == "" {
		missing = append(missing, "umount")
	}
	if c.ChrootPath == "" {
		missing = append(missing, "chroot")
	}
	if c.ToolPath == "" {
		missing = append(missing, "the package manager binary")
	}
	return missing
}

// Check returns an error describing the first unmet precondition, or
// nil when sandboxing can proceed.
func (c *Capabilities) Check() error {
	if !c.Root {
		return fmt.Errorf("root privilege required for bind mounts and chroot")
	}
	if missing := c.MissingHelpers(); len(missing) > 0 {
		return fmt.Errorf("required helpers not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SkipReason returns a human-readable reason why sandbox tests cannot
// run on this host, or empty string when they can.
func (c *Capabilities) SkipReason() string {
	if err := c.Check(); err != nil {
		return err.Error()
	}
	return ""
}
