package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Command describes one process launch.
// Env entries are appended to the parent environment.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// Result holds what the process wrote on each stream and how it exited.
// ExitCode is -1 when the process was killed or never started.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExitError is returned when the process ran but did not exit cleanly.
type ExitError struct {
	Name     string
	ExitCode int
	Err      error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command '%s' exited with code %d: %v", e.Name, e.ExitCode, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

type implExecutor struct {
	waitDelay time.Duration
}

// New creates a new Executor instance.
// On context cancellation the child gets SIGTERM, then SIGKILL after waitDelay.
func New(waitDelay time.Duration) Executor {
	if waitDelay <= 0 {
		waitDelay = 5 * time.Second
	}
	return &implExecutor{waitDelay: waitDelay}
}

// Run starts the command, captures stdout and stderr into separate buffers
// and waits for it to terminate.
func (e *implExecutor) Run(ctx context.Context, c Command) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, &ExitError{Name: c.Name, ExitCode: res.ExitCode, Err: fmt.Errorf("%w: %v", ctxErr, err)}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, &ExitError{Name: c.Name, ExitCode: res.ExitCode, Err: err}
		}
		return res, fmt.Errorf("command '%s' failed to start: %w", c.Name, err)
	}

	return res, nil
}
