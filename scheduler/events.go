// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

// WorkItem is one indivisible unit of parallelizable work: a repository
// alias or a package spec. The identifier is opaque to the scheduler;
// the ordinal is carried only so log lines can be correlated with the
// input order.
type WorkItem struct {
	ID      string
	Ordinal int
}

// EventKind classifies per-item events.
type EventKind int

const (
	// EventStart fires when an item is assigned a slot.
	EventStart EventKind = iota

	// EventSuccess fires when an item's invocation exits zero.
	EventSuccess

	// EventFailure fires when an item's invocation exits non-zero or
	// its sandbox could not be provisioned.
	EventFailure

	// EventCancelled fires for in-flight items interrupted by
	// cancellation. Cancelled work is never retried automatically.
	EventCancelled
)

// Event is one entry in the per-item progress stream.
type Event struct {
	Kind EventKind
	Item WorkItem
	Op   Operation

	// Code is the invocation's exit status, meaningful for
	// EventFailure.
	Code int

	// Detail carries a short explanation for failures that have no
	// exit status, such as provisioning errors.
	Detail string
}

// Reporter consumes the event stream. Implementations must be safe for
// concurrent use; tasks report from their own goroutines.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Event)

// Report calls f.
func (f ReporterFunc) Report(e Event) { f(e) }

// Summary aggregates a batch's outcome.
type Summary struct {
	// Total is the number of work items supplied.
	Total int

	// Succeeded and Failed count completed items.
	Succeeded int
	Failed    int

	// Cancelled counts in-flight items interrupted by cancellation.
	Cancelled int

	// Skipped counts items never dispatched because cancellation
	// arrived first.
	Skipped int
}
