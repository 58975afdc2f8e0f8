// Package runners implements the lifecycle controller declared by the runner
// package: a single-instance state machine that drives a unit of work through
// prepare, run and release, reconciles stops and timeouts against the
// in-flight run, and guarantees the finalize hook fires exactly once per
// invocation.
package runners

import (
	"context"
	"fmt"
	"sync"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"

	"github.com/universal-packages/universal-base-runner/common/log"
	"github.com/universal-packages/universal-base-runner/common/stats"
	"github.com/universal-packages/universal-base-runner/runner"
)

// lifecycleState is the transient state of one lifecycle invocation. Multi
// mode swaps in a fresh record on reset instead of clearing fields in place.
type lifecycleState struct {
	runID  string
	status runner.Status

	startedAt   time.Time
	finishedAt  time.Time
	measurement time.Duration

	err            error
	failureReason  string
	skipReason     string
	stoppingReason string

	// Run, Skip or Fail has claimed this invocation; a second entry point
	// is rejected even before the status has left Idle.
	admitted bool
	// A stop arrived during Preparing and must be honored the instant
	// Running would begin.
	markedAsStopping bool
	// A stop attempt has been dispatched against this invocation.
	stoppingActive bool
	// The run hook resolved; later stops are redundant.
	runFinished bool
	// The timeout preempted normal completion.
	timedOut bool
	// The user stop hook has been invoked (dedupes an explicit stop
	// against a concurrent timeout).
	stopAttempted bool

	ctx    context.Context
	cancel context.CancelFunc
	// Closed when an explicit stop is dispatched; clears the pending
	// timeout in the Running select.
	stopCh chan struct{}
	watch  stats.Stopwatch
}

func newLifecycleState() *lifecycleState {
	ctx, cancel := context.WithCancel(context.Background())
	return &lifecycleState{ctx: ctx, cancel: cancel, stopCh: make(chan struct{})}
}

type waiter struct {
	level int
	ch    chan runner.Status
}

// BaseRunner drives a runner.Work through the lifecycle. One invocation is
// active at a time, enforced by the status check at the top of Run.
type BaseRunner struct {
	work runner.Work
	opts runner.Options

	clock    stats.StatsTime
	stat     stats.Receiver
	bus      *eventBus
	detached *detachedRuns

	mu       sync.Mutex
	st       *lifecycleState
	prepared bool
	history  []runner.RunSummary
	waiters  []waiter
}

// NewBaseRunner wraps work in a lifecycle controller configured by opts.
func NewBaseRunner(work runner.Work, opts runner.Options) *BaseRunner {
	clock := opts.Clock
	if clock == nil {
		clock = stats.DefaultStatsTime()
	}
	stat := opts.Stats
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	stat = stat.Scope("runner")
	return &BaseRunner{
		work:     work,
		opts:     opts,
		clock:    clock,
		stat:     stat,
		bus:      newEventBus(),
		detached: newDetachedRuns(stat.Gauge("detached_runs")),
		st:       newLifecycleState(),
	}
}

// Subscribe registers fn for events of the given kind. Dispatch is
// synchronous and in subscription order.
func (r *BaseRunner) Subscribe(kind runner.EventKind, fn runner.Handler) {
	r.bus.subscribe(kind, fn)
}

// SubscribeAll registers fn for every event kind.
func (r *BaseRunner) SubscribeAll(fn runner.Handler) {
	r.bus.subscribeAll(fn)
}

// WaitForStatus blocks until the status has progressed to at least the level
// of target and returns the first status reached there. A waiter for
// Succeeded therefore also resolves on Failed, since terminals share a level.
func (r *BaseRunner) WaitForStatus(target runner.Status) runner.Status {
	r.mu.Lock()
	cur := r.st.status
	if cur.Level() >= target.Level() {
		r.mu.Unlock()
		return cur
	}
	ch := make(chan runner.Status, 1)
	r.waiters = append(r.waiters, waiter{level: target.Level(), ch: ch})
	r.mu.Unlock()
	return <-ch
}

// transitionLocked assigns the status and wakes every waiter whose level has
// been reached. Callers hold r.mu so any accompanying mutation lands
// atomically with the status change.
func (r *BaseRunner) transitionLocked(s runner.Status) {
	r.st.status = s
	keep := r.waiters[:0]
	for _, w := range r.waiters {
		if s.Level() >= w.level {
			w.ch <- s
			close(w.ch)
		} else {
			keep = append(keep, w)
		}
	}
	r.waiters = keep
}

func (r *BaseRunner) transition(s runner.Status) {
	r.mu.Lock()
	r.transitionLocked(s)
	r.mu.Unlock()
	log.Debugf("runner is now %v", s)
}

// misuse reports an operation called in a state that forbids it. The misuse
// is published as a warning event; warnings are critical, so when no
// subscriber observed it the error surfaces to the caller instead.
func (r *BaseRunner) misuse(format string, args ...interface{}) error {
	err := errors.Errorf(format, args...)
	delivered := r.bus.emit(runner.Event{Kind: runner.EventWarning, Message: err.Error()})
	if !delivered && runner.EventWarning.Critical() {
		return err
	}
	return nil
}

func newRunID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return id.String()
}

// Accessors. All state is read under the lock so a reader never observes a
// half-written outcome (finishedAt and measurement land together).

func (r *BaseRunner) Status() runner.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.status
}

// RunID identifies the current (or last) lifecycle invocation. Empty until
// the first Run.
func (r *BaseRunner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.runID
}

// Err is the last hook error captured from any phase.
func (r *BaseRunner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.err
}

// FailureReason is the value the run hook returned to signal a non-erroring
// failure, or the reason passed to Fail.
func (r *BaseRunner) FailureReason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.failureReason
}

func (r *BaseRunner) SkipReason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.skipReason
}

func (r *BaseRunner) StoppingReason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.stoppingReason
}

// StartedAt is zero while idle or skipped.
func (r *BaseRunner) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.startedAt
}

// FinishedAt is zero until a terminal status is reached.
func (r *BaseRunner) FinishedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.finishedAt
}

// Measurement is the elapsed-duration snapshot taken at terminal entry.
func (r *BaseRunner) Measurement() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.measurement
}

// History returns the recorded summaries of completed lifecycle invocations,
// oldest first.
func (r *BaseRunner) History() []runner.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]runner.RunSummary, len(r.history))
	copy(out, r.history)
	return out
}

// HistoryMatching returns the recorded summaries whose terminal status is in
// the set mask describes, oldest first.
func (r *BaseRunner) HistoryMatching(mask runner.StatusMask) []runner.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []runner.RunSummary
	for _, sum := range r.history {
		if mask.Matches(sum.Status) {
			out = append(out, sum)
		}
	}
	return out
}

// DetachedRuns is the number of run hooks still executing in the background
// after their lifecycle was preempted by a timeout.
func (r *BaseRunner) DetachedRuns() int {
	return r.detached.count()
}

func (r *BaseRunner) IsIdle() bool      { return r.Status() == runner.StatusIdle }
func (r *BaseRunner) IsPreparing() bool { return r.Status() == runner.StatusPreparing }
func (r *BaseRunner) IsRunning() bool   { return r.Status() == runner.StatusRunning }
func (r *BaseRunner) IsStopping() bool  { return r.Status() == runner.StatusStopping }
func (r *BaseRunner) IsReleasing() bool { return r.Status() == runner.StatusReleasing }
func (r *BaseRunner) IsSucceeded() bool { return r.Status() == runner.StatusSucceeded }
func (r *BaseRunner) IsFailed() bool    { return r.Status() == runner.StatusFailed }
func (r *BaseRunner) IsError() bool     { return r.Status() == runner.StatusError }
func (r *BaseRunner) IsStopped() bool   { return r.Status() == runner.StatusStopped }
func (r *BaseRunner) IsTimedOut() bool  { return r.Status() == runner.StatusTimedOut }
func (r *BaseRunner) IsSkipped() bool   { return r.Status() == runner.StatusSkipped }
func (r *BaseRunner) IsActive() bool    { return r.Status().IsActive() }
func (r *BaseRunner) IsFinished() bool  { return r.Status().IsFinished() }
