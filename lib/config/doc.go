// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for zypperoni.
//
// Configuration is loaded from a single YAML file specified by:
//   - ZYPPERONI_CONFIG environment variable, or
//   - --config flag passed to the command
//
// When neither is set, built-in defaults matching a stock openSUSE
// installation are used. There is no automatic discovery of config
// files; the defaults are the only fallback, so an explicitly named
// file that fails to load is an error rather than silently ignored.
package config
