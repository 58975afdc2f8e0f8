package runner

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotImplemented is returned by the default Run and Stop hooks.
var ErrNotImplemented = errors.New("not implemented")

// Work is the set of extension points a runner drives. Every hook may block;
// the runner invokes them one at a time in lifecycle order and recovers
// panics into errors.
//
// The ctx handed to Prepare and Run is canceled when the run is stopped or
// times out. Release and Finally always receive a fresh context since they
// run after cancellation.
type Work interface {
	// Prepare runs before the work starts. An error aborts the lifecycle.
	Prepare(ctx context.Context) error

	// Run performs the work. A non-empty failureReason marks the lifecycle
	// Failed without aborting release. An error marks it Error and skips
	// release.
	Run(ctx context.Context) (failureReason string, err error)

	// Release cleans up after Run. It executes whether the run succeeded,
	// failed soft, was stopped or timed out.
	Release(ctx context.Context) error

	// Stop is a best-effort interrupt signal for an in-flight Run.
	Stop(ctx context.Context) error

	// Finally runs exactly once per lifecycle invocation, after the terminal
	// status is decided but before the terminal event is published.
	Finally(ctx context.Context) error
}

// WorkBase supplies the default hook behavior: Prepare, Release and Finally
// are no-ops; Run and Stop report ErrNotImplemented. Embed it so a concrete
// Work only overrides the hooks it cares about.
type WorkBase struct{}

func (WorkBase) Prepare(context.Context) error { return nil }

func (WorkBase) Run(context.Context) (string, error) { return "", ErrNotImplemented }

func (WorkBase) Release(context.Context) error { return nil }

func (WorkBase) Stop(context.Context) error { return ErrNotImplemented }

func (WorkBase) Finally(context.Context) error { return nil }

// WorkFuncs adapts plain functions to Work. Nil fields fall back to the
// WorkBase defaults.
type WorkFuncs struct {
	PrepareFn func(ctx context.Context) error
	RunFn     func(ctx context.Context) (string, error)
	ReleaseFn func(ctx context.Context) error
	StopFn    func(ctx context.Context) error
	FinallyFn func(ctx context.Context) error
}

func (w WorkFuncs) Prepare(ctx context.Context) error {
	if w.PrepareFn == nil {
		return nil
	}
	return w.PrepareFn(ctx)
}

func (w WorkFuncs) Run(ctx context.Context) (string, error) {
	if w.RunFn == nil {
		return "", ErrNotImplemented
	}
	return w.RunFn(ctx)
}

func (w WorkFuncs) Release(ctx context.Context) error {
	if w.ReleaseFn == nil {
		return nil
	}
	return w.ReleaseFn(ctx)
}

func (w WorkFuncs) Stop(ctx context.Context) error {
	if w.StopFn == nil {
		return ErrNotImplemented
	}
	return w.StopFn(ctx)
}

func (w WorkFuncs) Finally(ctx context.Context) error {
	if w.FinallyFn == nil {
		return nil
	}
	return w.FinallyFn(ctx)
}
