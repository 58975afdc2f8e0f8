package runner

import "fmt"

// Status is the lifecycle state of a runner.
type Status int

const (
	// An unambiguous 0-value. The runner has not been driven yet.
	StatusIdle Status = iota
	// The prepare hook is executing.
	StatusPreparing
	// The run hook is executing.
	StatusRunning
	// A stop has been dispatched against the in-flight run.
	StatusStopping
	// The release hook is executing.
	StatusReleasing

	// Statuses below are terminal.
	// A runner in a terminal status will not execute further phases
	// without an explicit multi-run reset.

	// The run hook finished without a failure reason.
	StatusSucceeded
	// The run hook reported a failure reason, or Fail was called.
	StatusFailed
	// A hook returned an error or panicked.
	StatusError
	// A stop request preempted normal completion.
	StatusStopped
	// The timeout fired before the run hook finished.
	StatusTimedOut
	// Skip was called before the lifecycle started.
	StatusSkipped
)

// IsFinished reports whether s is a terminal status.
func (s Status) IsFinished() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusError ||
		s == StatusStopped || s == StatusTimedOut || s == StatusSkipped
}

// IsActive reports whether a lifecycle invocation is in flight.
func (s Status) IsActive() bool {
	return s == StatusPreparing || s == StatusRunning || s == StatusStopping || s == StatusReleasing
}

// Level buckets statuses by lifecycle progress. Waiters compare levels, not
// exact statuses, so a waiter for Succeeded also resolves on Failed.
//
//	0 Idle
//	1 Preparing
//	2 Running, Stopping
//	3 Releasing
//	4 terminals
func (s Status) Level() int {
	switch s {
	case StatusIdle:
		return 0
	case StatusPreparing:
		return 1
	case StatusRunning, StatusStopping:
		return 2
	case StatusReleasing:
		return 3
	case StatusSucceeded, StatusFailed, StatusError, StatusStopped, StatusTimedOut, StatusSkipped:
		return 4
	default:
		panic(fmt.Sprintf("unexpected Status %v", int(s)))
	}
}

// StatusMask describes a set of Statuses as a bitmask, for filtering recorded
// run summaries.
type StatusMask uint64

const MaskAll StatusMask = ^StatusMask(0)

// MaskFinished matches every terminal status.
const MaskFinished = StatusMask(1<<uint(StatusSucceeded) |
	1<<uint(StatusFailed) |
	1<<uint(StatusError) |
	1<<uint(StatusStopped) |
	1<<uint(StatusTimedOut) |
	1<<uint(StatusSkipped))

// MaskForStatus builds a mask matching exactly the given statuses.
func MaskForStatus(status ...Status) StatusMask {
	var m StatusMask
	for _, s := range status {
		m |= 1 << uint(s)
	}
	return m
}

// Matches reports whether s is in the set m describes.
func (m StatusMask) Matches(s Status) bool {
	return MaskForStatus(s)&m != 0
}

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusPreparing:
		return "PREPARING"
	case StatusRunning:
		return "RUNNING"
	case StatusStopping:
		return "STOPPING"
	case StatusReleasing:
		return "RELEASING"
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusFailed:
		return "FAILED"
	case StatusError:
		return "ERROR"
	case StatusStopped:
		return "STOPPED"
	case StatusTimedOut:
		return "TIMEDOUT"
	case StatusSkipped:
		return "SKIPPED"
	default:
		panic(fmt.Sprintf("unexpected Status %v", int(s)))
	}
}
