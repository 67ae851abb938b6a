// Package command is the single process-execution boundary of tagmint.
// Every external tool invocation goes through a Runner.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result carries the outcome of a finished command.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// ExecError is returned when a command exits with a code other than the
// expected one, or cannot be started at all.
type ExecError struct {
	Cmd    []string
	Code   int
	Stdout string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %s failed with exit code %d", strings.Join(e.Cmd, " "), e.Code)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg = fmt.Sprintf("%s: %s", msg, s)
	}
	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Runner runs a command to completion and captures both output streams.
type Runner interface {
	Run(ctx context.Context, dir string, expect *int, name string, args ...string) (Result, error)
}

// Expect returns a pointer to the exit code a Run call should require.
func Expect(code int) *int {
	return &code
}

// Any accepts every exit code; the caller inspects Result.Code itself.
func Any() *int {
	return nil
}

// Exec is the os/exec backed Runner.
type Exec struct{}

// Run executes name with args in dir and waits for it to finish. When
// expect is non-nil and the exit code differs, an ExecError carrying the
// captured output is returned.
func (Exec) Run(ctx context.Context, dir string, expect *int, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var xerr *exec.ExitError
		if !errors.As(err, &xerr) {
			return res, &ExecError{
				Cmd:    append([]string{name}, args...),
				Code:   -1,
				Stdout: res.Stdout,
				Stderr: res.Stderr,
				Err:    err,
			}
		}
		res.Code = xerr.ExitCode()
	}

	if expect != nil && res.Code != *expect {
		return res, &ExecError{
			Cmd:    append([]string{name}, args...),
			Code:   res.Code,
			Stdout: res.Stdout,
			Stderr: res.Stderr,
		}
	}

	return res, nil
}
