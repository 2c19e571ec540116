package secondary

import (
	"context"
	"time"

	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/core/fixture"
	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/core/workaround"
)

// FixtureStore is read-only access to a fixture corpus.
type FixtureStore interface {
	// Root returns the corpus location.
	Root() string

	// ListFixtures returns every fixture, sorted by name. Returns a
	// *fixture.CorpusError when the corpus is malformed or incomplete.
	ListFixtures(ctx context.Context) ([]fixture.Fixture, error)

	// ModesFor returns the modes a fixture runs under.
	ModesFor(ctx context.Context, fixtureName string) ([]fixture.Mode, error)

	// Provenance returns the reference version the expected outputs came from.
	Provenance(ctx context.Context) (fixture.Provenance, error)
}

// Invocation is one run of one implementation against one fixture/mode.
type Invocation struct {
	Key     execution.Key
	Binary  string
	Mode    fixture.Mode
	Input   []byte
	Timeout time.Duration
}

// ProcessInvoker runs an implementation. A failure to produce a result is
// returned as a *execution.RunError; a non-zero exit code is a result, not
// an error.
type ProcessInvoker interface {
	Invoke(ctx context.Context, inv Invocation) (execution.Result, error)
}

// ReportWriter persists the machine-readable report of a sealed run.
type ReportWriter interface {
	WriteReport(ctx context.Context, r *run.ValidationRun, path string) error
}

// WorkaroundFile exchanges workaround records with a structured file kept
// beside the corpus.
type WorkaroundFile interface {
	Export(ctx context.Context, path string, records []*workaround.Record) error
	Import(ctx context.Context, path string) ([]*workaround.Record, error)
}
