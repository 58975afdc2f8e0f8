package runners

import (
	"github.com/universal-packages/universal-base-runner/common/log"
	"github.com/universal-packages/universal-base-runner/runner"
)

// maybeReset recycles the machine back to Idle after a completed lifecycle in
// multi mode. A fresh state record is built rather than clearing fields in
// place, so no stale flag can survive a reset. The last outcome is carried
// over so accessors keep reporting it until the next invocation overwrites
// it; the prepared flag lives on the runner itself and survives naturally.
func (r *BaseRunner) maybeReset() {
	if r.opts.RunMode != runner.RunModeMulti {
		return
	}
	r.mu.Lock()
	old := r.st
	next := newLifecycleState()
	next.runID = old.runID
	next.err = old.err
	next.failureReason = old.failureReason
	next.skipReason = old.skipReason
	next.stoppingReason = old.stoppingReason
	next.startedAt = old.startedAt
	next.measurement = old.measurement
	r.st = next
	r.mu.Unlock()
	log.Debugf("runner %s reset to %v", old.runID, runner.StatusIdle)
}
