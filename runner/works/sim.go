// Package works holds concrete runner.Work implementations: a scripted
// simulator used by tests and a command work that wraps os/exec.
package works

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// SimWork simulates a unit of work by executing scripted steps in order.
// Valid steps are:
//
//	complete            finish successfully
//	fail <reason>       finish with a soft failure reason
//	err <message>       finish with an error
//	panic <message>     panic mid-run
//	sleep <millis>      block without observing cancellation (simulates a
//	                    non-cooperating blocking operation)
//	pause               block until Resume, a Stop, or ctx cancellation
//
// Every hook invocation is recorded and queryable through Calls, so tests can
// assert how the lifecycle drove the work.
type SimWork struct {
	// Set these to make the corresponding hook fail.
	PrepareErr error
	ReleaseErr error
	StopErr    error
	FinallyErr error

	steps    []string
	resumeCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	calls []string
}

func NewSimWork(steps ...string) *SimWork {
	return &SimWork{
		steps:    steps,
		resumeCh: make(chan struct{}),
		stopCh:   make(chan struct{}),
	}
}

// Resume unblocks a paused run.
func (w *SimWork) Resume() {
	w.resumeCh <- struct{}{}
}

// Calls returns the hook invocations recorded so far, in order.
func (w *SimWork) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.calls))
	copy(out, w.calls)
	return out
}

// CallCount counts recorded invocations of the named hook.
func (w *SimWork) CallCount(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (w *SimWork) record(name string) {
	w.mu.Lock()
	w.calls = append(w.calls, name)
	w.mu.Unlock()
}

func (w *SimWork) Prepare(context.Context) error {
	w.record("prepare")
	return w.PrepareErr
}

func (w *SimWork) Run(ctx context.Context) (string, error) {
	w.record("run")
	for _, step := range w.steps {
		splits := strings.SplitN(step, " ", 2)
		opcode, rest := splits[0], ""
		if len(splits) == 2 {
			rest = splits[1]
		}
		switch opcode {
		case "complete":
			return "", nil
		case "fail":
			return rest, nil
		case "err":
			return "", errors.New(rest)
		case "panic":
			panic(rest)
		case "sleep":
			millis, err := strconv.Atoi(rest)
			if err != nil {
				return "", errors.Errorf("error parsing <n> in sleep <n>: %v", err)
			}
			time.Sleep(time.Duration(millis) * time.Millisecond)
		case "pause":
			select {
			case <-w.resumeCh:
			case <-w.stopCh:
				return "", nil
			case <-ctx.Done():
				return "", nil
			}
		default:
			return "", errors.Errorf("can't simulate step: %v", step)
		}
	}
	return "", nil
}

func (w *SimWork) Release(context.Context) error {
	w.record("release")
	return w.ReleaseErr
}

func (w *SimWork) Stop(context.Context) error {
	w.record("stop")
	if w.StopErr != nil {
		return w.StopErr
	}
	w.stopOnce.Do(func() { close(w.stopCh) })
	return nil
}

func (w *SimWork) Finally(context.Context) error {
	w.record("finally")
	return w.FinallyErr
}
