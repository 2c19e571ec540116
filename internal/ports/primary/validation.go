// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces the CLI drives.
package primary

import (
	"context"
	"time"

	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/fixture"
	"github.com/example/parity/internal/core/run"
)

// ValidationService defines the primary port for parity validation runs.
type ValidationService interface {
	// CheckCorpus loads and validates the fixture corpus without executing anything.
	CheckCorpus(ctx context.Context) (*fixture.Corpus, error)

	// Validate runs both implementations over the corpus, diffs, replays
	// recorded classifications, evaluates the gate and persists the sealed run.
	Validate(ctx context.Context, req ValidateRequest) (*run.ValidationRun, error)

	// GetRun retrieves a sealed run by ID.
	GetRun(ctx context.Context, runID string) (*run.ValidationRun, error)

	// LatestRun retrieves the most recently sealed run.
	LatestRun(ctx context.Context) (*run.ValidationRun, error)

	// ListRuns lists sealed runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*RunSummary, error)
}

// ValidateRequest contains parameters for a validation run.
type ValidateRequest struct {
	ReferenceBinary string
	CandidateBinary string
	StderrPolicy    diff.StderrPolicy
	Timeout         time.Duration
	Jobs            int
	SwitchThreshold int
	ReportPath      string // Empty skips the machine-readable report
}

// RunSummary represents a run at the port boundary without its diffs.
type RunSummary struct {
	ID           string
	StartedAt    string
	SealedAt     string
	Outcome      string
	StderrPolicy string
	Provenance   string
	Pairs        int
	Results      int
	Diffs        int
	Errors       int
}
