// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

// Package plan derives the list of work items by querying zypper's
// machine-readable output. The scheduler core never parses the tool's
// format; this package is the translation boundary.
//
// Two producers exist: the repository listing (for refresh batches)
// and the dry-run install summary (for download batches). When the
// dry-run cannot produce a clean summary (the resolver raised a
// problem or a prompt, which in --non-interactive mode surfaces as
// marker text in the output) the producer falls back to the plainer
// list-updates listing. The marker matching is confined to
// [needsFallback]; nothing outside this package inspects zypper
// output text.
package plan
