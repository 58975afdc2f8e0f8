package runners

import (
	"sync"

	"github.com/universal-packages/universal-base-runner/common/log"
	"github.com/universal-packages/universal-base-runner/common/stats"
)

// detachedRuns tracks run hooks the lifecycle has detached from after a
// timeout. Their eventual outcome is observed and logged instead of being
// swallowed silently.
type detachedRuns struct {
	gauge stats.Gauge

	mu sync.Mutex
	n  int
}

func newDetachedRuns(gauge stats.Gauge) *detachedRuns {
	return &detachedRuns{gauge: gauge}
}

func (d *detachedRuns) watch(runID string, doneCh <-chan runResult) {
	d.add(1)
	go func() {
		res := <-doneCh
		d.add(-1)
		switch {
		case res.err != nil:
			log.Debugf("detached run %s finished with error: %v", runID, res.err)
		case res.failure != "":
			log.Debugf("detached run %s finished with failure: %s", runID, res.failure)
		default:
			log.Debugf("detached run %s finished", runID)
		}
	}()
}

func (d *detachedRuns) add(delta int) {
	d.mu.Lock()
	d.n += delta
	d.gauge.Update(int64(d.n))
	d.mu.Unlock()
}

func (d *detachedRuns) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}
