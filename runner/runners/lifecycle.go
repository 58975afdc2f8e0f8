package runners

import (
	"context"
	"time"

	"github.com/universal-packages/universal-base-runner/common/log"
	"github.com/universal-packages/universal-base-runner/common/stats"
	"github.com/universal-packages/universal-base-runner/runner"
)

// lifecycle.go: the phase sequencer. Run drives Idle through Preparing,
// Running and Releasing into exactly one terminal status, invoking the work
// hooks at the right points and translating their outcomes.

// Run drives one full lifecycle invocation and returns once the terminal
// status is fully settled: events emitted, finalize run and, in multi mode,
// the machine reset back to Idle.
//
// Run returns the captured hook error when the lifecycle ends in Error, a
// misuse error when called while active or finished (unless a warning
// subscriber absorbs it), and nil for every other terminal.
func (r *BaseRunner) Run() error {
	r.mu.Lock()
	st := r.st
	// Admission is claimed inside this critical section, so a concurrent
	// Run, Skip or Fail is rejected even though the status has not left
	// Idle yet.
	if st.status != runner.StatusIdle || st.admitted {
		finished := st.status.IsFinished()
		r.mu.Unlock()
		if finished {
			return r.misuse("runner already finished")
		}
		return r.misuse("runner is already active")
	}
	st.admitted = true
	st.runID = newRunID()
	st.err = nil
	st.failureReason = ""
	st.skipReason = ""
	st.startedAt = r.clock.Now()
	st.finishedAt = time.Time{}
	st.measurement = 0
	st.watch = stats.StartStopwatch(r.clock)
	marked := st.markedAsStopping
	if marked {
		st.stoppingActive = true
	}
	r.mu.Unlock()

	r.stat.Counter("runs").Inc(1)
	log.Debugf("runner %s starting", st.runID)

	// A stop already marked pending is honored without invoking any
	// lifecycle hook: straight to Stopped.
	if marked {
		return r.finish(st, runner.StatusStopped, "")
	}

	if r.shouldPrepare() {
		if err := r.preparePhase(st); err != nil {
			return r.finishError(st, err, "Runner preparation failed")
		}
	}

	// A stop requested during Preparing short-circuits before the run hook
	// ever executes. Preparation succeeded, so release still runs.
	r.mu.Lock()
	marked = st.markedAsStopping
	if marked {
		st.stoppingActive = true
		st.stopAttempted = true
	}
	r.mu.Unlock()
	if marked {
		r.emitStopping(st)
		if err := r.releasePhase(st); err != nil {
			return r.finishError(st, err, "Release failed")
		}
		return r.finish(st, runner.StatusStopped, "")
	}

	res, preempted := r.awaitRun(st)
	if !preempted && res.err != nil {
		// A run error skips Releasing entirely; cleanup of a faulted run
		// is the work's own business inside its error path.
		return r.finishError(st, res.err, "Run failed")
	}

	if err := r.releasePhase(st); err != nil {
		return r.finishError(st, err, "Release failed")
	}

	return r.finish(st, r.terminalFor(st), "")
}

// Skip marks the lifecycle as deliberately not run. Only legal from Idle; no
// lifecycle hook runs, but finalize still does.
func (r *BaseRunner) Skip(reason string) error {
	r.mu.Lock()
	st := r.st
	if st.status != runner.StatusIdle || st.admitted {
		skipped := st.status == runner.StatusSkipped
		finished := st.status.IsFinished()
		r.mu.Unlock()
		if skipped {
			return r.misuse("runner already skipped")
		}
		if finished {
			return r.misuse("runner already finished")
		}
		return r.misuse("runner is already active")
	}
	st.admitted = true
	st.skipReason = reason
	r.mu.Unlock()
	return r.finish(st, runner.StatusSkipped, "")
}

// Fail settles the lifecycle as Failed without running any hook except
// finalize. Intended for precondition checks performed before real work.
func (r *BaseRunner) Fail(reason string) error {
	r.mu.Lock()
	st := r.st
	if st.status != runner.StatusIdle || st.admitted {
		finished := st.status.IsFinished()
		r.mu.Unlock()
		if finished {
			return r.misuse("runner already finished")
		}
		return r.misuse("runner is already active")
	}
	st.admitted = true
	now := r.clock.Now()
	st.failureReason = reason
	st.startedAt = now
	st.finishedAt = now
	r.mu.Unlock()
	return r.finish(st, runner.StatusFailed, "")
}

func (r *BaseRunner) shouldPrepare() bool {
	if r.opts.RunMode != runner.RunModeMulti {
		return true
	}
	switch r.opts.PrepareOnMulti {
	case runner.PrepareNever:
		return false
	case runner.PrepareOnFirstRun:
		r.mu.Lock()
		defer r.mu.Unlock()
		return !r.prepared
	default:
		return true
	}
}

func (r *BaseRunner) shouldRelease() bool {
	return r.opts.RunMode != runner.RunModeMulti || r.opts.ReleaseOnMulti != runner.ReleaseNever
}

func (r *BaseRunner) preparePhase(st *lifecycleState) error {
	r.transition(runner.StatusPreparing)
	r.bus.emit(runner.Event{Kind: runner.EventPreparing, RunID: st.runID, StartedAt: st.startedAt})
	if err := invokeHook(st.ctx, r.work.Prepare); err != nil {
		return err
	}
	r.mu.Lock()
	r.prepared = true
	r.mu.Unlock()
	r.bus.emit(runner.Event{
		Kind:       runner.EventPrepared,
		RunID:      st.runID,
		StartedAt:  st.startedAt,
		FinishedAt: r.clock.Now(),
	})
	return nil
}

// releasePhase runs the release hook unless the multi-mode release policy
// defers cleanup to process shutdown.
func (r *BaseRunner) releasePhase(st *lifecycleState) error {
	if !r.shouldRelease() {
		return nil
	}
	r.transition(runner.StatusReleasing)
	r.bus.emit(runner.Event{Kind: runner.EventReleasing, RunID: st.runID, StartedAt: st.startedAt})
	// Release runs after a possible cancellation, so it gets a fresh
	// context rather than the invocation's canceled one.
	if err := invokeHook(context.Background(), r.work.Release); err != nil {
		return err
	}
	r.bus.emit(runner.Event{
		Kind:       runner.EventReleased,
		RunID:      st.runID,
		StartedAt:  st.startedAt,
		FinishedAt: r.clock.Now(),
	})
	return nil
}

// terminalFor picks the terminal status for a lifecycle whose run and release
// phases completed, in priority order: timeout over stop over soft failure
// over success.
func (r *BaseRunner) terminalFor(st *lifecycleState) runner.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case st.stoppingActive && st.timedOut:
		return runner.StatusTimedOut
	case st.stoppingActive:
		return runner.StatusStopped
	case st.failureReason != "":
		return runner.StatusFailed
	default:
		return runner.StatusSucceeded
	}
}

func (r *BaseRunner) finishError(st *lifecycleState, err error, message string) error {
	r.mu.Lock()
	st.err = err
	r.mu.Unlock()
	return r.finish(st, runner.StatusError, message)
}

// finish settles the terminal status: it stamps finishedAt and the
// measurement atomically with the status change, runs the finalize hook
// exactly once, publishes the terminal event and, in multi mode, resets the
// machine back to Idle.
func (r *BaseRunner) finish(st *lifecycleState, terminal runner.Status, errMessage string) error {
	r.mu.Lock()
	if st.finishedAt.IsZero() {
		st.finishedAt = r.clock.Now()
	}
	if st.watch != nil {
		st.measurement = st.watch.Finish()
	}
	r.transitionLocked(terminal)
	err := st.err
	r.mu.Unlock()
	log.Debugf("runner %s settled as %v", st.runID, terminal)

	// Finalize runs after the terminal status is assigned but before the
	// terminal event is published. Its failure never overturns the
	// already-decided outcome.
	if ferr := invokeHook(context.Background(), r.work.Finally); ferr != nil {
		r.bus.emit(runner.Event{
			Kind:    runner.EventError,
			RunID:   st.runID,
			Err:     ferr,
			Message: "Internal finally failed",
		})
	}

	r.emitTerminal(st, terminal, errMessage)
	r.recordStats(st, terminal)
	r.record(st, terminal)
	r.maybeReset()

	if terminal == runner.StatusError {
		return err
	}
	return nil
}

func (r *BaseRunner) emitTerminal(st *lifecycleState, terminal runner.Status, errMessage string) {
	r.mu.Lock()
	e := runner.Event{
		RunID:       st.runID,
		StartedAt:   st.startedAt,
		FinishedAt:  st.finishedAt,
		Measurement: st.measurement,
	}
	switch terminal {
	case runner.StatusSucceeded:
		e.Kind = runner.EventSucceeded
	case runner.StatusFailed:
		e.Kind = runner.EventFailed
		e.Reason = st.failureReason
	case runner.StatusStopped:
		e.Kind = runner.EventStopped
		e.Reason = st.stoppingReason
	case runner.StatusTimedOut:
		e.Kind = runner.EventTimedOut
		e.Measurement = 0
	case runner.StatusSkipped:
		e.Kind = runner.EventSkipped
		e.Reason = st.skipReason
		e.Measurement = 0
	case runner.StatusError:
		e = runner.Event{Kind: runner.EventError, RunID: st.runID, Err: st.err, Message: errMessage}
	}
	r.mu.Unlock()
	r.bus.emit(e)
}

func (r *BaseRunner) recordStats(st *lifecycleState, terminal runner.Status) {
	var name string
	switch terminal {
	case runner.StatusSucceeded:
		name = "succeeded"
	case runner.StatusFailed:
		name = "failed"
	case runner.StatusError:
		name = "errored"
	case runner.StatusStopped:
		name = "stopped"
	case runner.StatusTimedOut:
		name = "timed_out"
	case runner.StatusSkipped:
		name = "skipped"
	}
	r.stat.Counter(name).Inc(1)
	r.mu.Lock()
	watched := st.watch != nil
	measurement := st.measurement
	r.mu.Unlock()
	if watched {
		r.stat.Latency("run_latency").Record(measurement)
	}
}

// record appends the invocation outcome to the bounded run history.
func (r *BaseRunner) record(st *lifecycleState, terminal runner.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	limit := r.opts.HistoryLimit
	if limit <= 0 {
		limit = runner.DefaultHistoryLimit
	}
	r.history = append(r.history, runner.RunSummary{
		RunID:         st.runID,
		Status:        terminal,
		FailureReason: st.failureReason,
		Err:           st.err,
		SkipReason:    st.skipReason,
		StopReason:    st.stoppingReason,
		StartedAt:     st.startedAt,
		FinishedAt:    st.finishedAt,
		Measurement:   st.measurement,
	})
	if len(r.history) > limit {
		r.history = r.history[len(r.history)-limit:]
	}
}
