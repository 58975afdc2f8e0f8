package runner

import (
	"time"

	"github.com/universal-packages/universal-base-runner/common/stats"
)

// RunMode decides what happens after a terminal status is reached.
type RunMode int

const (
	// RunModeSingle makes terminal statuses permanent; a second Run is
	// rejected.
	RunModeSingle RunMode = iota
	// RunModeMulti resets the runner to Idle after every completed
	// lifecycle so the same instance can be driven again.
	RunModeMulti
)

// PreparePolicy decides whether the prepare hook runs on subsequent runs in
// multi mode. Single mode always prepares.
type PreparePolicy int

const (
	PrepareAlways PreparePolicy = iota
	// PrepareOnFirstRun prepares only if the prepare hook has never run on
	// this instance.
	PrepareOnFirstRun
	PrepareNever
)

// ReleasePolicy decides whether the release hook runs in multi mode.
// Single mode always releases. ReleaseNever defers all cleanup to process
// shutdown, e.g. for a long-lived pooled resource.
type ReleasePolicy int

const (
	ReleaseAlways ReleasePolicy = iota
	ReleaseNever
)

// Options configures a runner. The zero value is a single-run runner with no
// timeout.
type Options struct {
	// Timeout bounds the Running phase only. Zero disables it. When it
	// fires, the lifecycle proceeds to Releasing immediately and the run
	// hook is left executing detached in the background.
	Timeout time.Duration

	RunMode        RunMode
	PrepareOnMulti PreparePolicy
	ReleaseOnMulti ReleasePolicy

	// HistoryLimit bounds the per-run summaries kept in multi mode.
	// Zero means DefaultHistoryLimit.
	HistoryLimit int

	// Stats receives terminal-status counters and the run latency.
	// Nil drops them.
	Stats stats.Receiver

	// Clock overrides timestamps and the timeout timer, for tests.
	// Nil uses the stdlib time package.
	Clock stats.StatsTime
}

// DefaultHistoryLimit is the run history bound when Options.HistoryLimit is
// zero.
const DefaultHistoryLimit = 32
