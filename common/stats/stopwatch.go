package stats

import "time"

// Stopwatch measures elapsed time between its creation and Finish.
// Finish may be called more than once; each call reports the elapsed time
// since the start.
type Stopwatch interface {
	Finish() time.Duration
}

type stopwatch struct {
	time  StatsTime
	start time.Time
}

// StartStopwatch starts a stopwatch on the given clock. A nil clock uses the
// stdlib time package.
func StartStopwatch(t StatsTime) Stopwatch {
	if t == nil {
		t = DefaultStatsTime()
	}
	return &stopwatch{time: t, start: t.Now()}
}

func (s *stopwatch) Finish() time.Duration {
	return s.time.Since(s.start)
}
