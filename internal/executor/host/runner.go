package host

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// runSpec describes one external process invocation.
type runSpec struct {
	argv    []string
	dir     string
	timeout time.Duration
	stdin   io.Reader // nil means the process sees an empty input stream
}

// runResult carries the captured output of a finished (or killed) process.
// exitCode is meaningful only when timedOut is false.
type runResult struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
}

// runProcess spawns exactly one process and waits for it under a hard
// wall-clock deadline. The argv is passed as a discrete vector — user
// content never goes through a shell. Stdout and stderr are buffered in
// full until the process exits.
//
// The child is started in its own process group, and on deadline expiry the
// whole group gets SIGKILL. Killing just the direct child would leave
// anything the program forked still running; the group kill takes the tree
// down with it. The child is reaped by Wait before this function returns.
//
// A non-nil error means no process produced a classifiable result (spawn
// failure, caller cancellation); expected endings, timeout included, come
// back in runResult.
func runProcess(ctx context.Context, spec runSpec) (runResult, error) {
	ctx, cancel := context.WithTimeout(ctx, spec.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.argv[0], spec.argv[1:]...)
	cmd.Dir = spec.dir
	cmd.Stdin = spec.stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid addresses the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	// Should a grandchild survive the group kill while holding our pipes,
	// stop waiting on it rather than hanging.
	cmd.WaitDelay = time.Second

	err := cmd.Run()

	res := runResult{
		stdout: stdout.String(),
		stderr: stderr.String(),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.timedOut = true
		return res, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.exitCode = exitErr.ExitCode()
			return res, nil
		}
		return runResult{}, err
	}

	return res, nil
}
