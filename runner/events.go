package runner

import "time"

// EventKind names a published lifecycle event.
type EventKind string

const (
	EventPreparing EventKind = "preparing"
	EventPrepared  EventKind = "prepared"
	EventRunning   EventKind = "running"
	EventStopping  EventKind = "stopping"
	EventReleasing EventKind = "releasing"
	EventReleased  EventKind = "released"
	EventSucceeded EventKind = "succeeded"
	EventFailed    EventKind = "failed"
	EventStopped   EventKind = "stopped"
	EventTimedOut  EventKind = "timed-out"
	EventSkipped   EventKind = "skipped"
	EventError     EventKind = "error"
	EventWarning   EventKind = "warning"
)

// Critical reports whether an event of kind k must be observed by at least
// one subscriber. An undelivered critical event is surfaced to the caller of
// the offending operation instead of being dropped.
func (k EventKind) Critical() bool {
	return k == EventWarning
}

// Terminal reports whether k announces a terminal status.
func (k EventKind) Terminal() bool {
	switch k {
	case EventSucceeded, EventFailed, EventStopped, EventTimedOut, EventSkipped:
		return true
	}
	return false
}

// Event is the payload published on every lifecycle transition.
// Fields are only meaningful for the kinds noted.
type Event struct {
	Kind EventKind
	// RunID identifies the lifecycle invocation the event belongs to.
	// Empty for skipped and for warnings raised before a run started.
	RunID string

	// Set on every kind once the lifecycle has started.
	StartedAt time.Time
	// Set on prepared and released (phase end time) and on every terminal
	// kind (lifecycle end time).
	FinishedAt time.Time
	// Only set on stopping.
	StoppingAt time.Time
	// Only set on stopping, failed, stopped and skipped.
	Reason string
	// Only set on error.
	Err error
	// Only set on error and warning.
	Message string
	// Elapsed run measurement. Only set on succeeded, failed and stopped.
	Measurement time.Duration
}

// Handler is a synchronous event subscriber callback.
type Handler func(Event)
