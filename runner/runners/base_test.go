package runners

import (
	"strings"
	"testing"
	"time"

	"github.com/luci/go-render/render"

	"github.com/universal-packages/universal-base-runner/common/stats"
	"github.com/universal-packages/universal-base-runner/runner"
	"github.com/universal-packages/universal-base-runner/runner/works"
)

func TestRunSucceeds(t *testing.T) {
	work := works.NewSimWork("complete")
	r := NewBaseRunner(work, runner.Options{})
	rec := recordEvents(r)

	if err := r.Run(); err != nil {
		t.Fatal(err)
	}

	assertStatus(t, r, runner.StatusSucceeded)
	assertKinds(t, rec,
		runner.EventPreparing, runner.EventPrepared, runner.EventRunning,
		runner.EventReleasing, runner.EventReleased, runner.EventSucceeded)
	if calls := work.Calls(); !equalCalls(calls, []string{"prepare", "run", "release", "finally"}) {
		t.Fatalf("unexpected hook calls: %v", calls)
	}
	if r.StartedAt().IsZero() || r.FinishedAt().IsZero() {
		t.Fatalf("expected both timestamps set; got %v %v", r.StartedAt(), r.FinishedAt())
	}
	if r.FinishedAt().Before(r.StartedAt()) {
		t.Fatalf("finishedAt %v is before startedAt %v", r.FinishedAt(), r.StartedAt())
	}
	if r.Measurement() < 0 {
		t.Fatalf("negative measurement %v", r.Measurement())
	}
	if r.RunID() == "" {
		t.Fatal("expected a run id")
	}
}

func TestRunFailsSoft(t *testing.T) {
	work := works.NewSimWork("fail disk full")
	r := NewBaseRunner(work, runner.Options{})
	rec := recordEvents(r)

	if err := r.Run(); err != nil {
		t.Fatal(err)
	}

	assertStatus(t, r, runner.StatusFailed)
	if r.FailureReason() != "disk full" {
		t.Fatalf("expected failure reason %q; got %q", "disk full", r.FailureReason())
	}
	// release still runs on a soft failure
	assertKinds(t, rec,
		runner.EventPreparing, runner.EventPrepared, runner.EventRunning,
		runner.EventReleasing, runner.EventReleased, runner.EventFailed)
	failed, ok := rec.last(runner.EventFailed)
	if !ok || failed.Reason != "disk full" {
		t.Fatalf("unexpected failed event: %s", render.Render(failed))
	}
}

func TestSkip(t *testing.T) {
	work := works.NewSimWork("complete")
	r := NewBaseRunner(work, runner.Options{})
	rec := recordEvents(r)

	if err := r.Skip("not needed"); err != nil {
		t.Fatal(err)
	}

	assertStatus(t, r, runner.StatusSkipped)
	if r.SkipReason() != "not needed" {
		t.Fatalf("expected skip reason; got %q", r.SkipReason())
	}
	if !r.StartedAt().IsZero() {
		t.Fatalf("skip must not set startedAt; got %v", r.StartedAt())
	}
	if r.FinishedAt().IsZero() {
		t.Fatal("skip must set finishedAt")
	}
	assertKinds(t, rec, runner.EventSkipped)
	// no lifecycle hook ran, but finalize did
	if calls := work.Calls(); !equalCalls(calls, []string{"finally"}) {
		t.Fatalf("unexpected hook calls: %v", calls)
	}
}

func TestFail(t *testing.T) {
	work := works.NewSimWork("complete")
	r := NewBaseRunner(work, runner.Options{})
	rec := recordEvents(r)

	if err := r.Fail("precondition unmet"); err != nil {
		t.Fatal(err)
	}

	assertStatus(t, r, runner.StatusFailed)
	if r.FailureReason() != "precondition unmet" {
		t.Fatalf("expected failure reason; got %q", r.FailureReason())
	}
	if !r.StartedAt().Equal(r.FinishedAt()) {
		t.Fatalf("fail must stamp both timestamps at the moment of the call; got %v %v",
			r.StartedAt(), r.FinishedAt())
	}
	assertKinds(t, rec, runner.EventFailed)
	if calls := work.Calls(); !equalCalls(calls, []string{"finally"}) {
		t.Fatalf("unexpected hook calls: %v", calls)
	}
}

func TestMisuse(t *testing.T) {
	t.Run("run after skip", func(t *testing.T) {
		r := NewBaseRunner(works.NewSimWork("complete"), runner.Options{})
		if err := r.Skip(""); err != nil {
			t.Fatal(err)
		}
		err := r.Run()
		if err == nil || !strings.Contains(err.Error(), "already finished") {
			t.Fatalf("expected already finished; got %v", err)
		}
	})
	t.Run("skip twice", func(t *testing.T) {
		r := NewBaseRunner(works.NewSimWork("complete"), runner.Options{})
		if err := r.Skip(""); err != nil {
			t.Fatal(err)
		}
		err := r.Skip("")
		if err == nil || !strings.Contains(err.Error(), "already skipped") {
			t.Fatalf("expected already skipped; got %v", err)
		}
	})
	t.Run("run twice single mode", func(t *testing.T) {
		r := NewBaseRunner(works.NewSimWork("complete"), runner.Options{})
		if err := r.Run(); err != nil {
			t.Fatal(err)
		}
		err := r.Run()
		if err == nil || !strings.Contains(err.Error(), "already finished") {
			t.Fatalf("expected already finished; got %v", err)
		}
	})
	t.Run("run while active", func(t *testing.T) {
		work := works.NewSimWork("pause")
		r := NewBaseRunner(work, runner.Options{})
		errCh := make(chan error, 1)
		go func() { errCh <- r.Run() }()
		r.WaitForStatus(runner.StatusRunning)

		err := r.Run()
		if err == nil || !strings.Contains(err.Error(), "already active") {
			t.Fatalf("expected already active; got %v", err)
		}

		work.Resume()
		if err := <-errCh; err != nil {
			t.Fatal(err)
		}
	})
	t.Run("fail after finished", func(t *testing.T) {
		r := NewBaseRunner(works.NewSimWork("complete"), runner.Options{})
		if err := r.Run(); err != nil {
			t.Fatal(err)
		}
		err := r.Fail("late")
		if err == nil || !strings.Contains(err.Error(), "already finished") {
			t.Fatalf("expected already finished; got %v", err)
		}
	})
}

func TestMisuseBecomesWarningWhenObserved(t *testing.T) {
	r := NewBaseRunner(works.NewSimWork("complete"), runner.Options{})
	var warnings []runner.Event
	r.Subscribe(runner.EventWarning, func(e runner.Event) { warnings = append(warnings, e) })

	// stop while idle is misuse, but the registered warning subscriber
	// absorbs it and the call returns normally
	if err := r.Stop("early"); err != nil {
		t.Fatalf("expected warning instead of error; got %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "not running") {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	assertStatus(t, r, runner.StatusIdle)
}

func TestMeasurementUsesClock(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := stats.NewTestTime(now, 5*time.Second, nil)
	r := NewBaseRunner(works.NewSimWork("complete"), runner.Options{Clock: clock})

	if err := r.Run(); err != nil {
		t.Fatal(err)
	}

	if r.Measurement() != 5*time.Second {
		t.Fatalf("expected measurement 5s; got %v", r.Measurement())
	}
	if !r.StartedAt().Equal(now) || !r.FinishedAt().Equal(now) {
		t.Fatalf("expected clock timestamps; got %v %v", r.StartedAt(), r.FinishedAt())
	}
}

func TestStatsRecorded(t *testing.T) {
	stat := stats.DefaultStatsReceiver()
	r := NewBaseRunner(works.NewSimWork("complete"), runner.Options{Stats: stat, RunMode: runner.RunModeMulti})
	if err := r.Run(); err != nil {
		t.Fatal(err)
	}
	if err := r.Run(); err != nil {
		t.Fatal(err)
	}

	if n := stat.Scope("runner").Counter("runs").Count(); n != 2 {
		t.Fatalf("expected 2 runs counted; got %d", n)
	}
	if n := stat.Scope("runner").Counter("succeeded").Count(); n != 2 {
		t.Fatalf("expected 2 successes counted; got %d", n)
	}
	if n := stat.Scope("runner").Latency("run_latency").Count(); n != 2 {
		t.Fatalf("expected 2 latency samples; got %d", n)
	}
}

// gatedStats parks the lifecycle inside its first counter bump, holding Run
// in the window after admission but before any status transition.
type gatedStats struct {
	inner   stats.Receiver
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStats) Scope(...string) stats.Receiver { return g }
func (g *gatedStats) Gauge(name ...string) stats.Gauge {
	return g.inner.Gauge(name...)
}
func (g *gatedStats) Latency(name ...string) stats.Latency {
	return g.inner.Latency(name...)
}
func (g *gatedStats) Render() []byte { return g.inner.Render() }
func (g *gatedStats) Counter(name ...string) stats.Counter {
	if name[len(name)-1] == "runs" {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.inner.Counter(name...)
}

func TestOnlyOneInvocationIsAdmitted(t *testing.T) {
	gate := &gatedStats{
		inner:   stats.NilStatsReceiver(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	work := works.NewSimWork("complete")
	r := NewBaseRunner(work, runner.Options{Stats: gate})

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run() }()
	<-gate.entered

	// the first invocation owns the machine even though no phase has
	// started yet, so every other entry point is rejected
	if err := r.Run(); err == nil || !strings.Contains(err.Error(), "already active") {
		t.Fatalf("expected already active; got %v", err)
	}
	if err := r.Skip("late"); err == nil || !strings.Contains(err.Error(), "already active") {
		t.Fatalf("expected already active; got %v", err)
	}
	if err := r.Fail("late"); err == nil || !strings.Contains(err.Error(), "already active") {
		t.Fatalf("expected already active; got %v", err)
	}

	close(gate.release)
	if err := <-errCh; err != nil {
		t.Fatal(err)
	}
	assertStatus(t, r, runner.StatusSucceeded)
	if calls := work.Calls(); !equalCalls(calls, []string{"prepare", "run", "release", "finally"}) {
		t.Fatalf("each hook must run exactly once; got %v", calls)
	}
}

func equalCalls(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if actual[i] != expected[i] {
			return false
		}
	}
	return true
}
