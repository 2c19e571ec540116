// Package process runs reference and candidate implementations as
// subprocesses and captures their output channels.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/ports/secondary"
)

// Invoker implements secondary.ProcessInvoker with os/exec.
// Inputs passed by path are staged under a scratch directory owned by the
// invoker; call Close to remove it.
type Invoker struct {
	scratchDir string
	env        []string
}

// NewInvoker creates an invoker with a fresh scratch directory under
// baseDir (os.TempDir when empty).
func NewInvoker(baseDir string) (*Invoker, error) {
	dir, err := os.MkdirTemp(baseDir, "parity-scratch-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return &Invoker{scratchDir: dir, env: os.Environ()}, nil
}

// ScratchDir returns the directory staged inputs are written to.
func (inv *Invoker) ScratchDir() string {
	return inv.scratchDir
}

// Close removes the scratch directory.
func (inv *Invoker) Close() error {
	return os.RemoveAll(inv.scratchDir)
}

// Invoke runs one implementation against one fixture/mode. Launch failures,
// timeouts and cancellation come back as *execution.RunError.
func (inv *Invoker) Invoke(ctx context.Context, in secondary.Invocation) (execution.Result, error) {
	runErr := func(kind execution.ErrorKind, format string, args ...any) (execution.Result, error) {
		return execution.Result{}, &execution.RunError{Key: in.Key, Kind: kind, Message: fmt.Sprintf(format, args...)}
	}

	if err := ctx.Err(); err != nil {
		return runErr(execution.ErrCancelled, "run cancelled before start")
	}

	args := in.Mode.Flags
	var stdin []byte
	if in.Mode.UsesInputFile() {
		path, err := inv.stage(in)
		if err != nil {
			return runErr(execution.ErrLaunchFailure, "failed to stage input: %v", err)
		}
		args = in.Mode.Args(path)
	} else {
		stdin = in.Input
	}

	invokeCtx := ctx
	if in.Timeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, in.Timeout)
		defer cancel()
	}

	cmd := exec.Command(in.Binary, args...)
	cmd.Env = inv.env
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return runErr(execution.ErrLaunchFailure, "%v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-invokeCtx.Done():
		// Kill the whole process group, then wait for it to be reaped.
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		if ctx.Err() != nil {
			return runErr(execution.ErrCancelled, "killed after %s: run cancelled", time.Since(start).Round(time.Millisecond))
		}
		return runErr(execution.ErrTimeout, "killed after exceeding %s timeout", in.Timeout)
	case waitErr = <-done:
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return runErr(execution.ErrLaunchFailure, "%v", waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	return execution.Result{
		Key:      in.Key,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: time.Since(start),
	}, nil
}

// stage writes the fixture input to a per-key scratch file so reference and
// candidate never share a path.
func (inv *Invoker) stage(in secondary.Invocation) (string, error) {
	dir := filepath.Join(inv.scratchDir, string(in.Key.Origin), sanitize(in.Key.Mode))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitize(in.Key.Fixture))
	if err := os.WriteFile(path, in.Input, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "_", "..", "_").Replace(name)
}

// Ensure Invoker implements the interface
var _ secondary.ProcessInvoker = (*Invoker)(nil)
