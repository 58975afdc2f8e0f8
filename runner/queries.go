package runner

// Convenience helpers in terms of the more general WaitForStatus.

// StatusWaiter is the subset of a runner the wait helpers need.
type StatusWaiter interface {
	// WaitForStatus blocks until the runner's status has progressed to at
	// least the level of target, and returns the first status reached at
	// that level. It resolves immediately if already at or past the level.
	WaitForStatus(target Status) Status
}

// WaitForFinished blocks until w reaches any terminal status and returns it.
func WaitForFinished(w StatusWaiter) Status {
	return w.WaitForStatus(StatusSucceeded)
}

// WaitForRunning blocks until w has at least started running (or stopping).
func WaitForRunning(w StatusWaiter) Status {
	return w.WaitForStatus(StatusRunning)
}
