package runner

import "time"

// RunSummary is the recorded outcome of one lifecycle invocation. Runners in
// multi mode keep a bounded history of these.
type RunSummary struct {
	RunID  string
	Status Status

	FailureReason string
	Err           error
	SkipReason    string
	StopReason    string

	StartedAt   time.Time
	FinishedAt  time.Time
	Measurement time.Duration
}
