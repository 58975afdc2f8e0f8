package stats

import "time"

// Timer wraps the stdlib time.Timer so tests can substitute a controlled
// firing channel.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

type stdTimer struct {
	*time.Timer
}

func (t *stdTimer) C() <-chan time.Time { return t.Timer.C }

func NewTimer(d time.Duration) Timer {
	return &stdTimer{time.NewTimer(d)}
}

// StatsTime defines the calls made to the stdlib time package, so tests can
// control timestamps and timeout firing without sleeping.
type StatsTime interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTimer(d time.Duration) Timer
}

type defaultStatsTime struct{}

func (defaultStatsTime) Now() time.Time                  { return time.Now() }
func (defaultStatsTime) Since(t time.Time) time.Duration { return time.Since(t) }
func (defaultStatsTime) NewTimer(d time.Duration) Timer  { return NewTimer(d) }

var stdlibStatsTime = defaultStatsTime{}

// DefaultStatsTime returns a StatsTime backed by the stdlib time package.
func DefaultStatsTime() StatsTime { return stdlibStatsTime }

// Testing

type testStatsTime struct {
	now   time.Time
	since time.Duration
	ch    <-chan time.Time
}

type testTimer struct {
	ch <-chan time.Time
}

func (t testStatsTime) Now() time.Time                { return t.now }
func (t testStatsTime) Since(time.Time) time.Duration { return t.since }
func (t testStatsTime) NewTimer(time.Duration) Timer  { return &testTimer{ch: t.ch} }
func (t *testTimer) C() <-chan time.Time              { return t.ch }
func (t *testTimer) Stop() bool                       { return true }

// NewTestTime returns a StatsTime with a fixed now, a fixed elapsed duration
// and timers firing from ch.
func NewTestTime(now time.Time, since time.Duration, ch <-chan time.Time) StatsTime {
	return testStatsTime{now, since, ch}
}

// DefaultTestTime is NewTestTime at the epoch with timers that never fire.
func DefaultTestTime() StatsTime {
	return testStatsTime{time.Unix(0, 0), 0, make(chan time.Time)}
}
