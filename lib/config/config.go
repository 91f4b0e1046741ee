// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is the environment variable naming the config file.
const EnvConfigPath = "ZYPPERONI_CONFIG"

// Config is the master configuration for zypperoni.
type Config struct {
	// Tool is the package manager binary invoked inside sandboxes and
	// for the final hand-off transaction.
	Tool string `yaml:"tool"`

	// Paths configures filesystem locations.
	Paths PathsConfig `yaml:"paths"`

	// Teardown configures sandbox unmount retry behavior.
	Teardown TeardownConfig `yaml:"teardown"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// LockFile is the tool's single-instance lock file.
	LockFile string `yaml:"lock_file"`

	// CacheDir is the shared package cache, bind-mounted read-write
	// into every sandbox. The final hand-off transaction consults the
	// same directory, which is what makes prefetching useful.
	CacheDir string `yaml:"cache_dir"`

	// StateDir is the tool's state database directory, also shared.
	StateDir string `yaml:"state_dir"`

	// TrustStore is the generated CA certificate directory. It lives
	// under /var, which the sandbox shadows with a tmpfs, so it must
	// be bind-mounted back in for TLS verification to work.
	TrustStore string `yaml:"trust_store"`

	// ResolvConf is the host resolver configuration materialized into
	// each sandbox's private /run.
	ResolvConf string `yaml:"resolv_conf"`

	// TempParent is the directory under which the run's private temp
	// root is created.
	TempParent string `yaml:"temp_parent"`
}

// TeardownConfig configures sandbox unmount retry behavior. A child
// process that just exited can transiently hold a mount open, so
// unmounts retry EBUSY with exponential backoff before falling back to
// a lazy unmount.
type TeardownConfig struct {
	// Retries is the retry ceiling per mount point.
	Retries int `yaml:"retries"`

	// Backoff is the initial retry delay as a Go duration string
	// ("100ms", "1s"); it doubles per attempt.
	Backoff string `yaml:"backoff"`
}

// BackoffDuration returns the parsed initial retry delay. Validate has
// already rejected unparseable values.
func (t TeardownConfig) BackoffDuration() time.Duration {
	d, err := time.ParseDuration(t.Backoff)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// Default returns the configuration for a stock openSUSE installation.
func Default() *Config {
	return &Config{
		Tool: "zypper",
		Paths: PathsConfig{
			LockFile:   "/run/zypp.pid",
			CacheDir:   "/var/cache/zypp",
			StateDir:   "/var/lib/zypp",
			TrustStore: "/var/lib/ca-certificates",
			ResolvConf: "/etc/resolv.conf",
			TempParent: os.TempDir(),
		},
		Teardown: TeardownConfig{
			Retries: 5,
			Backoff: "100ms",
		},
	}
}

// Load resolves and loads the configuration. Resolution order:
//
//  1. explicit path (--config flag), if non-empty
//  2. ZYPPERONI_CONFIG environment variable
//  3. built-in defaults
//
// A named file that does not exist or fails to parse is an error.
func Load(explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	// Start from defaults so a partial file only overrides what it
	// names.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Tool == "" {
		return fmt.Errorf("tool must not be empty")
	}
	// An empty path would surface much later as a mount or chroot
	// invocation with a blank argument; reject it at load time.
	paths := []struct {
		name  string
		value string
	}{
		{"paths.lock_file", c.Paths.LockFile},
		{"paths.cache_dir", c.Paths.CacheDir},
		{"paths.state_dir", c.Paths.StateDir},
		{"paths.trust_store", c.Paths.TrustStore},
		{"paths.resolv_conf", c.Paths.ResolvConf},
		{"paths.temp_parent", c.Paths.TempParent},
	}
	for _, p := range paths {
		if p.value == "" {
			return fmt.Errorf("%s must not be empty", p.name)
		}
	}
	if c.Teardown.Retries < 1 {
		return fmt.Errorf("teardown.retries must be at least 1, got %d", c.Teardown.Retries)
	}
	backoff, err := time.ParseDuration(c.Teardown.Backoff)
	if err != nil {
		return fmt.Errorf("teardown.backoff: %w", err)
	}
	if backoff <= 0 {
		return fmt.Errorf("teardown.backoff must be positive, got %v", backoff)
	}
	return nil
}
