// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"

	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/core/workaround"
)

// WorkaroundRepository defines the secondary port for workaround persistence.
// Records outlive runs; they are part of the corpus's permanent record.
type WorkaroundRepository interface {
	// Create persists a new workaround record.
	Create(ctx context.Context, record *workaround.Record) error

	// GetByID retrieves a workaround by its ID.
	GetByID(ctx context.Context, id string) (*workaround.Record, error)

	// List retrieves workarounds matching the given filters.
	List(ctx context.Context, filters WorkaroundFilters) ([]*workaround.Record, error)

	// Update replaces the mutable fields of an existing workaround.
	Update(ctx context.Context, record *workaround.Record) error

	// Delete removes a workaround.
	Delete(ctx context.Context, id string) error

	// GetNextID returns the next available workaround ID.
	GetNextID(ctx context.Context) (string, error)

	// CountClassifications returns how many recorded classifications cite the workaround.
	CountClassifications(ctx context.Context, id string) (int, error)

	// DeleteWithClassifications removes the workaround and every recorded
	// classification citing it in one transaction, returning how many
	// classifications were removed.
	DeleteWithClassifications(ctx context.Context, id string) (int, error)

	// Import creates and updates records in one transaction. Nothing is
	// written when any record fails.
	Import(ctx context.Context, create, update []*workaround.Record) error
}

// WorkaroundFilters contains filter options for querying workarounds.
type WorkaroundFilters struct {
	Category   string
	Dependency string
}

// ClassificationRepository persists classification decisions keyed by the
// divergence they were made for, so an unchanged re-run reproduces them.
type ClassificationRepository interface {
	// Save records a decision. Saving the same key twice is rejected.
	Save(ctx context.Context, record *ClassificationRecord) error

	// Lookup returns the decision for an exact divergence, or nil when none exists.
	Lookup(ctx context.Context, fixture, mode, fingerprint string) (*ClassificationRecord, error)

	// List retrieves decisions matching the given filters.
	List(ctx context.Context, filters ClassificationFilters) ([]*ClassificationRecord, error)

	// Delete removes the decision for an exact divergence.
	Delete(ctx context.Context, fixture, mode, fingerprint string) error
}

// ClassificationRecord represents a classification decision as stored in persistence.
type ClassificationRecord struct {
	Fixture      string
	Mode         string
	Fingerprint  string
	Category     string
	WorkaroundID string // Empty string means null
	ClassifiedBy string
	RunID        string // Run the decision was made against
	CreatedAt    string
}

// ClassificationFilters contains filter options for querying classifications.
type ClassificationFilters struct {
	Fixture      string
	Category     string
	WorkaroundID string
}

// RunRepository persists sealed validation runs and their diffs.
type RunRepository interface {
	// Save persists a sealed run with its diffs, run errors and advisories.
	Save(ctx context.Context, r *run.ValidationRun) error

	// GetByID retrieves a run by its ID.
	GetByID(ctx context.Context, id string) (*run.ValidationRun, error)

	// Latest retrieves the most recently sealed run.
	Latest(ctx context.Context) (*run.ValidationRun, error)

	// List retrieves run summaries, newest first.
	List(ctx context.Context, limit int) ([]*RunSummaryRecord, error)
}

// RunSummaryRecord is a run row without its diffs.
type RunSummaryRecord struct {
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
