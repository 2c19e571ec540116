package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/core/fixture"
	"github.com/example/parity/internal/ports/secondary"
)

// writeScript creates an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "impl.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
	return path
}

func newInvoker(t *testing.T) *Invoker {
	t.Helper()
	inv, err := NewInvoker(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { inv.Close() })
	return inv
}

func invocation(binary string, mode fixture.Mode, input string) secondary.Invocation {
	return secondary.Invocation{
		Key:     execution.Key{Fixture: "basic", Mode: mode.Name, Origin: execution.OriginCandidate},
		Binary:  binary,
		Mode:    mode,
		Input:   []byte(input),
		Timeout: 5 * time.Second,
	}
}

func runErrorKind(t *testing.T, err error) execution.ErrorKind {
	t.Helper()
	var runErr *execution.RunError
	require.True(t, errors.As(err, &runErr), "expected *execution.RunError, got %v", err)
	return runErr.Kind
}

func TestInvoker_CapturesChannelsFromStdin(t *testing.T) {
	script := writeScript(t, `tr a-z A-Z; echo "warn: $1" >&2; exit 3`)
	inv := newInvoker(t)

	res, err := inv.Invoke(context.Background(), invocation(script, fixture.Mode{Name: "default", Flags: []string{"--x"}}, "hello\n"))
	require.NoError(t, err)

	assert.Equal(t, "HELLO\n", string(res.Stdout))
	assert.Equal(t, "warn: --x\n", string(res.Stderr))
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, execution.OriginCandidate, res.Origin)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestInvoker_StagesInputFile(t *testing.T) {
	script := writeScript(t, `cat "$2"`)
	inv := newInvoker(t)

	mode := fixture.Mode{Name: "semantic", Flags: []string{"--semantic", fixture.InputPlaceholder}}
	res, err := inv.Invoke(context.Background(), invocation(script, mode, "from file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from file\n", string(res.Stdout))
	assert.FileExists(t, filepath.Join(inv.ScratchDir(), "candidate", "semantic", "basic"))
}

func TestInvoker_MissingBinaryIsLaunchFailure(t *testing.T) {
	inv := newInvoker(t)

	_, err := inv.Invoke(context.Background(), invocation(filepath.Join(t.TempDir(), "absent"), fixture.Mode{Name: "default"}, ""))
	assert.Equal(t, execution.ErrLaunchFailure, runErrorKind(t, err))
}

func TestInvoker_NonExecutableIsLaunchFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(path, []byte("not a program"), 0644))
	inv := newInvoker(t)

	_, err := inv.Invoke(context.Background(), invocation(path, fixture.Mode{Name: "default"}, ""))
	assert.Equal(t, execution.ErrLaunchFailure, runErrorKind(t, err))
}

func TestInvoker_Timeout(t *testing.T) {
	script := writeScript(t, "sleep 10")
	inv := newInvoker(t)

	in := invocation(script, fixture.Mode{Name: "default"}, "")
	in.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := inv.Invoke(context.Background(), in)
	assert.Equal(t, execution.ErrTimeout, runErrorKind(t, err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestInvoker_Cancelled(t *testing.T) {
	script := writeScript(t, "sleep 10")
	inv := newInvoker(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := inv.Invoke(ctx, invocation(script, fixture.Mode{Name: "default"}, ""))
	assert.Equal(t, execution.ErrCancelled, runErrorKind(t, err))
}

func TestInvoker_CancelledBeforeStart(t *testing.T) {
	inv := newInvoker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Invoke(ctx, invocation("/bin/true", fixture.Mode{Name: "default"}, ""))
	assert.Equal(t, execution.ErrCancelled, runErrorKind(t, err))
}

func TestInvoker_CloseRemovesScratch(t *testing.T) {
	inv, err := NewInvoker(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, inv.Close())
	assert.NoDirExists(t, inv.ScratchDir())
}
