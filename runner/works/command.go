package works

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"github.com/universal-packages/universal-base-runner/common/log"
	"github.com/universal-packages/universal-base-runner/runner"
)

// CommandWork runs an external command through the lifecycle. Prepare builds
// the process, Run waits for it, Stop kills it through context cancellation,
// Release frees the process context.
//
// A non-zero exit is reported as a soft failure reason; failing to start at
// all is an error. The command is rebuilt on every Prepare, so multi-run use
// requires a prepare policy that prepares on every run.
type CommandWork struct {
	runner.WorkBase

	Argv []string
	Dir  string
	Env  []string

	mu       sync.Mutex
	cmd      *exec.Cmd
	cancel   context.CancelFunc
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	exitCode int
}

func NewCommandWork(argv ...string) *CommandWork {
	return &CommandWork{Argv: argv}
}

func (w *CommandWork) Prepare(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.Argv) == 0 {
		return errors.New("no command to run")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, w.Argv[0], w.Argv[1:]...)
	cmd.Dir = w.Dir
	cmd.Env = w.Env
	w.stdout.Reset()
	w.stderr.Reset()
	cmd.Stdout = &w.stdout
	cmd.Stderr = &w.stderr
	w.cmd = cmd
	w.cancel = cancel
	w.exitCode = 0
	return nil
}

func (w *CommandWork) Run(context.Context) (string, error) {
	w.mu.Lock()
	cmd := w.cmd
	w.mu.Unlock()
	if cmd == nil {
		return "", errors.New("command was not prepared")
	}
	log.Debugf("running command %v", w.Argv)
	err := cmd.Run()
	if err == nil {
		return "", nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		w.mu.Lock()
		w.exitCode = exitErr.ExitCode()
		w.mu.Unlock()
		return fmt.Sprintf("exit status %d", exitErr.ExitCode()), nil
	}
	return "", errors.Wrapf(err, "could not run %v", w.Argv)
}

func (w *CommandWork) Stop(context.Context) error {
	w.mu.Lock()
	cancel := w.cancel
	w.mu.Unlock()
	if cancel == nil {
		return errors.New("command was not prepared")
	}
	cancel()
	return nil
}

func (w *CommandWork) Release(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	log.Debugf("command released, captured %d stdout bytes, %d stderr bytes",
		w.stdout.Len(), w.stderr.Len())
	return nil
}

// Stdout is the captured standard output of the last run.
func (w *CommandWork) Stdout() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stdout.String()
}

// Stderr is the captured standard error of the last run.
func (w *CommandWork) Stderr() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stderr.String()
}

// ExitCode is the exit code of the last run; zero on success.
func (w *CommandWork) ExitCode() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exitCode
}
