package runners

import (
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/universal-packages/universal-base-runner/runner"
)

// eventRecorder captures every published event in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []runner.Event
}

func recordEvents(r *BaseRunner) *eventRecorder {
	rec := &eventRecorder{}
	r.SubscribeAll(func(e runner.Event) {
		rec.mu.Lock()
		rec.events = append(rec.events, e)
		rec.mu.Unlock()
	})
	return rec
}

func (rec *eventRecorder) kinds() []runner.EventKind {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]runner.EventKind, len(rec.events))
	for i, e := range rec.events {
		out[i] = e.Kind
	}
	return out
}

func (rec *eventRecorder) all() []runner.Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]runner.Event, len(rec.events))
	copy(out, rec.events)
	return out
}

// last returns the most recent event of the given kind, if any.
func (rec *eventRecorder) last(kind runner.EventKind) (runner.Event, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i := len(rec.events) - 1; i >= 0; i-- {
		if rec.events[i].Kind == kind {
			return rec.events[i], true
		}
	}
	return runner.Event{}, false
}

func (rec *eventRecorder) count(kind runner.EventKind) int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	n := 0
	for _, e := range rec.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func assertKinds(t *testing.T, rec *eventRecorder, expected ...runner.EventKind) {
	t.Helper()
	actual := rec.kinds()
	if len(actual) != len(expected) {
		t.Fatalf("expected events %v; got %s", expected, spew.Sdump(rec.all()))
	}
	for i := range expected {
		if actual[i] != expected[i] {
			t.Fatalf("expected events %v; got %s", expected, spew.Sdump(rec.all()))
		}
	}
}

func assertStatus(t *testing.T, r *BaseRunner, expected runner.Status) {
	t.Helper()
	if st := r.Status(); st != expected {
		t.Fatalf("expected status %v; got %v", expected, st)
	}
}
