package runners

import (
	"sync"

	"github.com/universal-packages/universal-base-runner/common/log"
	"github.com/universal-packages/universal-base-runner/runner"
)

// eventBus holds subscriber callbacks per event kind and dispatches events to
// them synchronously, in subscription order. Absent subscribers are
// tolerated; emit reports delivery so the runner can decide whether an
// unobserved critical event must surface to the caller instead.
type eventBus struct {
	mu       sync.Mutex
	handlers map[runner.EventKind][]runner.Handler
	all      []runner.Handler
}

func newEventBus() *eventBus {
	return &eventBus{handlers: make(map[runner.EventKind][]runner.Handler)}
}

func (b *eventBus) subscribe(kind runner.EventKind, fn runner.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], fn)
}

func (b *eventBus) subscribeAll(fn runner.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, fn)
}

// emit delivers e to every matching subscriber before returning, so events
// are fully observed in lifecycle order before the next phase begins.
func (b *eventBus) emit(e runner.Event) bool {
	b.mu.Lock()
	hs := make([]runner.Handler, 0, len(b.handlers[e.Kind])+len(b.all))
	hs = append(hs, b.handlers[e.Kind]...)
	hs = append(hs, b.all...)
	b.mu.Unlock()

	log.Debugf("emitting %s to %d subscribers", e.Kind, len(hs))
	for _, h := range hs {
		h(e)
	}
	return len(hs) > 0
}
