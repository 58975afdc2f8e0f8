package runner

import "testing"

func TestStatusLevels(t *testing.T) {
	levels := map[Status]int{
		StatusIdle:      0,
		StatusPreparing: 1,
		StatusRunning:   2,
		StatusStopping:  2,
		StatusReleasing: 3,
		StatusSucceeded: 4,
		StatusFailed:    4,
		StatusError:     4,
		StatusStopped:   4,
		StatusTimedOut:  4,
		StatusSkipped:   4,
	}
	for st, want := range levels {
		if got := st.Level(); got != want {
			t.Fatalf("%v: expected level %d; got %d", st, want, got)
		}
		if st.IsFinished() != (want == 4) {
			t.Fatalf("%v: IsFinished disagrees with level", st)
		}
	}
}

func TestStatusActive(t *testing.T) {
	active := map[Status]bool{
		StatusIdle:      false,
		StatusPreparing: true,
		StatusRunning:   true,
		StatusStopping:  true,
		StatusReleasing: true,
		StatusSucceeded: false,
		StatusStopped:   false,
	}
	for st, want := range active {
		if st.IsActive() != want {
			t.Fatalf("%v: expected IsActive=%v", st, want)
		}
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusIdle:      "IDLE",
		StatusPreparing: "PREPARING",
		StatusRunning:   "RUNNING",
		StatusStopping:  "STOPPING",
		StatusReleasing: "RELEASING",
		StatusSucceeded: "SUCCEEDED",
		StatusFailed:    "FAILED",
		StatusError:     "ERROR",
		StatusStopped:   "STOPPED",
		StatusTimedOut:  "TIMEDOUT",
		StatusSkipped:   "SKIPPED",
	}
	for st, want := range cases {
		if st.String() != want {
			t.Fatalf("expected %q; got %q", want, st.String())
		}
	}
}

func TestStatusMask(t *testing.T) {
	m := MaskForStatus(StatusFailed, StatusError)
	if !m.Matches(StatusFailed) || !m.Matches(StatusError) {
		t.Fatal("mask must match its own statuses")
	}
	if m.Matches(StatusSucceeded) {
		t.Fatal("mask must not match other statuses")
	}
	for _, st := range []Status{StatusSucceeded, StatusFailed, StatusError,
		StatusStopped, StatusTimedOut, StatusSkipped} {
		if !MaskFinished.Matches(st) {
			t.Fatalf("MaskFinished must match %v", st)
		}
	}
	if MaskFinished.Matches(StatusRunning) {
		t.Fatal("MaskFinished must not match an active status")
	}
	if !MaskAll.Matches(StatusIdle) {
		t.Fatal("MaskAll must match everything")
	}
}

func TestStatusUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown status")
		}
	}()
	_ = Status(99).String()
}
