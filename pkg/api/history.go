package api

import "time"

// EventKind classifies a recorded dispatch event.
type EventKind string

const (
	// EventTriggered records one trigger entry published to a topic.
	EventTriggered EventKind = "TRIGGERED"

	// EventTaskCompleted records a task handler returning successfully.
	EventTaskCompleted EventKind = "TASK_COMPLETED"

	// EventTaskFailed records a contained task failure (returned error
	// or recovered panic).
	EventTaskFailed EventKind = "TASK_FAILED"

	// EventStartupFailed records a contained startup hook failure.
	EventStartupFailed EventKind = "STARTUP_FAILED"
)

// DispatchEvent is one entry in the dispatch history. History is an
// append-only audit record of what the engine dispatched; it is not a
// delivery log and provides no durability or redelivery semantics.
type DispatchEvent struct {
	// ID is a globally unique identifier assigned when the event is recorded.
	ID string

	// Seq is a store-assigned, strictly increasing sequence number.
	// Within one engine's single control flow it reflects dispatch order.
	Seq int64

	// Topic is the qualified task topic (or the workflow name for
	// EventStartupFailed).
	Topic string

	Kind EventKind

	// Error holds the contained failure message for failure kinds.
	Error string

	At time.Time
}

// HistoryFilter selects dispatch events. Zero values mean "no filter".
type HistoryFilter struct {
	// Topic, if non-empty, limits results to events for the given topic.
	Topic string

	// Kind, if non-empty, limits results to events of the given kind.
	Kind EventKind
}

// HistoryStore is an append-only store of dispatch events.
type HistoryStore interface {
	// Append records one event, assigning its Seq.
	Append(ev *DispatchEvent) error

	// List returns events matching the filter in append order.
	List(filter HistoryFilter) ([]*DispatchEvent, error)
}
