package command

import (
	"context"
	"errors"
	"runtime"
	"testing"
)

func TestExecRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	ctx := context.Background()
	var r Exec

	res, err := r.Run(ctx, "", Expect(0), "sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Code != 0 {
		t.Errorf("expected exit code 0, got %d", res.Code)
	}
	if res.Stdout != "out\n" {
		t.Errorf("unexpected stdout: %q", res.Stdout)
	}
	if res.Stderr != "err\n" {
		t.Errorf("unexpected stderr: %q", res.Stderr)
	}
}

func TestExecRunUnexpectedExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	ctx := context.Background()
	var r Exec

	res, err := r.Run(ctx, "", Expect(0), "sh", "-c", "echo boom >&2; exit 3")
	var xerr *ExecError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if xerr.Code != 3 || res.Code != 3 {
		t.Errorf("expected exit code 3, got %d and %d", xerr.Code, res.Code)
	}
	if xerr.Stderr != "boom\n" {
		t.Errorf("expected captured stderr, got %q", xerr.Stderr)
	}
}

func TestExecRunAnyExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	ctx := context.Background()
	var r Exec

	res, err := r.Run(ctx, "", Any(), "sh", "-c", "exit 7")
	if err != nil {
		t.Fatalf("expected no error with Any(), got %v", err)
	}
	if res.Code != 7 {
		t.Errorf("expected exit code 7, got %d", res.Code)
	}
}

func TestExecRunMissingExecutable(t *testing.T) {
	ctx := context.Background()
	var r Exec

	_, err := r.Run(ctx, "", Expect(0), "definitely-not-a-real-command-xyz")
	var xerr *ExecError
	if !errors.As(err, &xerr) {
		t.Fatalf("expected ExecError, got %v", err)
	}
	if xerr.Err == nil {
		t.Error("expected the start failure to be wrapped")
	}
}

func TestExecRunWorkingDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	ctx := context.Background()
	var r Exec

	res, err := r.Run(ctx, dir, Expect(0), "pwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// pwd may resolve symlinks differently, compare suffix only.
	if got := res.Stdout; got == "" {
		t.Error("expected pwd output")
	}
}
