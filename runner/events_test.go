package runner

import "testing"

var allEventKinds = []EventKind{
	EventPreparing, EventPrepared, EventRunning, EventStopping,
	EventReleasing, EventReleased, EventSucceeded, EventFailed,
	EventStopped, EventTimedOut, EventSkipped, EventError, EventWarning,
}

func TestEventKindCritical(t *testing.T) {
	if !EventWarning.Critical() {
		t.Fatal("warnings must be critical; undelivered misuse has to surface")
	}
	for _, k := range allEventKinds {
		if k != EventWarning && k.Critical() {
			t.Fatalf("%s must be informational", k)
		}
	}
}

func TestEventKindTerminal(t *testing.T) {
	terminal := map[EventKind]bool{
		EventSucceeded: true,
		EventFailed:    true,
		EventStopped:   true,
		EventTimedOut:  true,
		EventSkipped:   true,
	}
	for _, k := range allEventKinds {
		if k.Terminal() != terminal[k] {
			t.Fatalf("%s: Terminal()=%v", k, k.Terminal())
		}
	}
}
