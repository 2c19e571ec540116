// Package execution defines the records produced by running one
// implementation against one fixture/mode pair.
package execution

import (
	"fmt"
	"time"
)

// Origin identifies which implementation produced a result.
type Origin string

const (
	OriginReference Origin = "reference"
	OriginCandidate Origin = "candidate"
)

// Origins lists both origins in the order they are scheduled.
var Origins = []Origin{OriginReference, OriginCandidate}

// Key identifies one invocation. Each key is written exactly once per run.
type Key struct {
	Fixture string `json:"fixture"`
	Mode    string `json:"mode"`
	Origin  Origin `json:"origin"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s/%s", k.Fixture, k.Mode, k.Origin)
}

// PairKey drops the origin: it identifies a fixture/mode pair.
func (k Key) PairKey() PairKey {
	return PairKey{Fixture: k.Fixture, Mode: k.Mode}
}

// PairKey identifies a fixture/mode pair.
type PairKey struct {
	Fixture string
	Mode    string
}

func (k PairKey) String() string {
	return k.Fixture + "@" + k.Mode
}

// Result is the captured output of a single invocation.
type Result struct {
	Key
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Summary returns the reportable view of r.
func (r Result) Summary() Summary {
	return Summary{
		Key:         r.Key,
		ExitCode:    r.ExitCode,
		DurationMs:  r.Duration.Milliseconds(),
		StdoutBytes: len(r.Stdout),
		StderrBytes: len(r.Stderr),
	}
}

// Summary records one invocation by exit code, wall-clock duration and
// channel sizes. Output bytes are not kept past diffing.
type Summary struct {
	Key
	ExitCode    int   `json:"exit_code"`
	DurationMs  int64 `json:"duration_ms"`
	StdoutBytes int   `json:"stdout_bytes"`
	StderrBytes int   `json:"stderr_bytes"`
}

// ErrorKind classifies why an invocation produced no result.
type ErrorKind string

const (
	ErrLaunchFailure ErrorKind = "launch-failure"
	ErrTimeout       ErrorKind = "timeout"
	ErrCancelled     ErrorKind = "cancelled"
)

// RunError is fatal to one fixture/mode/origin combination only.
type RunError struct {
	Key
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Key, e.Kind, e.Message)
}
