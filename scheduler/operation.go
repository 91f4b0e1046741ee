// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import "fmt"

// Operation is the closed set of non-interactive tool verbs a prefetch
// task can run. Each kind carries its own command and message
// templates; the kind is chosen once per batch, not re-dispatched on
// strings.
type Operation int

const (
	// OpRefresh refreshes one repository's metadata.
	OpRefresh Operation = iota

	// OpForceRefresh refreshes one repository's metadata, discarding
	// whatever is cached.
	OpForceRefresh

	// OpDownload downloads one package into the shared cache without
	// installing it.
	OpDownload
)

// String returns the verb name for logs.
func (op Operation) String() string {
	switch op {
	case OpRefresh:
		return "refresh"
	case OpForceRefresh:
		return "force-refresh"
	case OpDownload:
		return "download"
	default:
		return fmt.Sprintf("operation(%d)", int(op))
	}
}

// Args returns the tool arguments for one work item. Every kind runs
// non-interactively; prefetch verbs never mutate installed state.
func (op Operation) Args(item string) []string {
	switch op {
	case OpRefresh:
		return []string{"--non-interactive", "refresh", item}
	case OpForceRefresh:
		return []string{"--non-interactive", "refresh", "--force", item}
	case OpDownload:
		return []string{"--non-interactive", "download", item}
	default:
		panic(fmt.Sprintf("unknown operation %d", int(op)))
	}
}

// Describe renders the progress message for one work item.
func (op Operation) Describe(item string) string {
	switch op {
	case OpRefresh:
		return "refreshing repository " + item
	case OpForceRefresh:
		return "force refreshing repository " + item
	case OpDownload:
		return "downloading package " + item
	default:
		return op.String() + " " + item
	}
}
