// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tool != "zypper" {
		t.Errorf("Tool = %q, want zypper", cfg.Tool)
	}
	if cfg.Paths.LockFile != "/run/zypp.pid" {
		t.Errorf("LockFile = %q, want /run/zypp.pid", cfg.Paths.LockFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadPartialFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zypperoni.yaml")
	content := `
tool: zypper-test
teardown:
  retries: 9
  backoff: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tool != "zypper-test" {
		t.Errorf("Tool = %q, want zypper-test", cfg.Tool)
	}
	if cfg.Teardown.Retries != 9 {
		t.Errorf("Teardown.Retries = %d, want 9", cfg.Teardown.Retries)
	}
	if cfg.Teardown.BackoffDuration() != 250*time.Millisecond {
		t.Errorf("Backoff = %v, want 250ms", cfg.Teardown.Backoff)
	}
	// Unnamed fields keep their defaults.
	if cfg.Paths.CacheDir != "/var/cache/zypp" {
		t.Errorf("CacheDir = %q, want default", cfg.Paths.CacheDir)
	}
}

func TestLoadEnvVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zypperoni.yaml")
	if err := os.WriteFile(path, []byte("tool: from-env\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Tool != "from-env" {
		t.Errorf("Tool = %q, want from-env", cfg.Tool)
	}
}

func TestLoadMissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of a missing explicit file succeeded, want error")
	}
}

func TestValidateRejectsBrokenValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty tool", func(c *Config) { c.Tool = "" }},
		{"empty lock file", func(c *Config) { c.Paths.LockFile = "" }},
		{"empty cache dir", func(c *Config) { c.Paths.CacheDir = "" }},
		{"empty state dir", func(c *Config) { c.Paths.StateDir = "" }},
		{"empty trust store", func(c *Config) { c.Paths.TrustStore = "" }},
		{"empty resolv conf", func(c *Config) { c.Paths.ResolvConf = "" }},
		{"empty temp parent", func(c *Config) { c.Paths.TempParent = "" }},
		{"zero retries", func(c *Config) { c.Teardown.Retries = 0 }},
		{"negative backoff", func(c *Config) { c.Teardown.Backoff = "-1s" }},
		{"garbage backoff", func(c *Config) { c.Teardown.Backoff = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted a broken config")
			}
		})
	}
}
