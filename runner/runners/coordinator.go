package runners

import (
	"context"
	"time"

	"github.com/universal-packages/universal-base-runner/common/log"
	"github.com/universal-packages/universal-base-runner/runner"
)

// coordinator.go: reconciles an external stop request or the internal timeout
// against work that may already be finished, not yet started, or mid-flight.

type runResult struct {
	failure string
	err     error
}

// awaitRun drives the Running phase. The run hook executes on its own
// goroutine while this one races its completion against the configured
// timeout and an explicit stop dispatch.
func (r *BaseRunner) awaitRun(st *lifecycleState) (runResult, bool) {
	r.transition(runner.StatusRunning)
	r.bus.emit(runner.Event{Kind: runner.EventRunning, RunID: st.runID, StartedAt: st.startedAt})

	doneCh := make(chan runResult, 1)
	go func() {
		failure, err := invokeRunHook(st.ctx, r.work.Run)
		doneCh <- runResult{failure: failure, err: err}
	}()

	var timeoutCh <-chan time.Time
	if r.opts.Timeout > 0 {
		timer := r.clock.NewTimer(r.opts.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C()
	}
	stopCh := st.stopCh

	for {
		select {
		case res := <-doneCh:
			// Completion bookkeeping is atomic with the state a Stop
			// caller inspects, so a stop arriving after this point is
			// rejected as "run already finished" with no window where
			// the two disagree.
			r.mu.Lock()
			st.runFinished = true
			st.failureReason = res.failure
			st.err = res.err
			r.mu.Unlock()
			return res, false
		case <-stopCh:
			// An explicit stop clears the pending timeout but still
			// waits for the run hook to wind down cooperatively.
			timeoutCh = nil
			stopCh = nil
		case <-timeoutCh:
			r.preempt(st, doneCh)
			return runResult{}, true
		}
	}
}

// preempt enforces the timeout. The lifecycle must never hang waiting for
// user code that may not cooperate with interruption, so it proceeds to
// Releasing immediately and the run hook keeps executing in the background as
// a detached run.
func (r *BaseRunner) preempt(st *lifecycleState, doneCh <-chan runResult) {
	r.mu.Lock()
	st.timedOut = true
	alreadyStopping := st.stoppingActive
	st.stoppingActive = true
	attempted := st.stopAttempted
	st.stopAttempted = true
	r.mu.Unlock()

	log.Debugf("runner %s timed out after %v", st.runID, r.opts.Timeout)
	st.cancel()
	if !alreadyStopping {
		r.emitStopping(st)
	}
	if !attempted {
		r.attemptStop(st)
	}
	r.detached.watch(st.runID, doneCh)
}

// Stop requests that the in-flight work be interrupted.
//
// While Running it dispatches the stop: the user stop hook fires once, the
// pending timeout is cleared, and the lifecycle proceeds through Stopping and
// Releasing into Stopped. During Preparing the stop is marked pending and
// honored the instant Running would begin. Anywhere else the request is
// redundant or impossible and is reported as misuse.
func (r *BaseRunner) Stop(reason string) error {
	r.mu.Lock()
	st := r.st
	switch {
	case st.status == runner.StatusIdle:
		r.mu.Unlock()
		return r.misuse("runner is not running")
	case st.status == runner.StatusPreparing:
		if st.markedAsStopping {
			r.mu.Unlock()
			return r.misuse("runner is already stopping")
		}
		st.markedAsStopping = true
		st.stoppingReason = reason
		r.mu.Unlock()
		return nil
	case st.status == runner.StatusStopping || st.stoppingActive:
		r.mu.Unlock()
		return r.misuse("runner is already stopping")
	case st.status == runner.StatusReleasing:
		r.mu.Unlock()
		return r.misuse("runner is releasing")
	case st.status.IsFinished():
		r.mu.Unlock()
		return r.misuse("runner already finished")
	case st.runFinished:
		r.mu.Unlock()
		return r.misuse("run already finished")
	}

	// Running: dispatch the stop.
	st.stoppingActive = true
	st.stopAttempted = true
	st.stoppingReason = reason
	stopCh := st.stopCh
	r.mu.Unlock()

	// The stopping event and the stop hook fire before the run is unblocked
	// by cancellation, so subscribers observe Stopping before Releasing.
	r.emitStopping(st)
	r.attemptStop(st)
	st.cancel()
	close(stopCh)
	return nil
}

func (r *BaseRunner) emitStopping(st *lifecycleState) {
	r.mu.Lock()
	reason := st.stoppingReason
	r.transitionLocked(runner.StatusStopping)
	r.mu.Unlock()
	r.bus.emit(runner.Event{
		Kind:       runner.EventStopping,
		RunID:      st.runID,
		StartedAt:  st.startedAt,
		StoppingAt: r.clock.Now(),
		Reason:     reason,
	})
}

// attemptStop fires the user stop hook as a best-effort interrupt signal. A
// failing hook is reported but the lifecycle still proceeds as if the stop
// attempt had succeeded structurally.
func (r *BaseRunner) attemptStop(st *lifecycleState) {
	if err := invokeHook(context.Background(), r.work.Stop); err != nil {
		r.bus.emit(runner.Event{
			Kind:    runner.EventError,
			RunID:   st.runID,
			Err:     err,
			Message: "Attempt to stop runner failed",
		})
	}
}
