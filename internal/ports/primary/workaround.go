package primary

import (
	"context"

	"github.com/example/parity/internal/core/workaround"
)

// WorkaroundService defines the primary port for the workaround registry.
type WorkaroundService interface {
	// RegisterWorkaround validates and stores a new record.
	RegisterWorkaround(ctx context.Context, req RegisterWorkaroundRequest) (*workaround.Record, error)

	// GetWorkaround retrieves a record by ID.
	GetWorkaround(ctx context.Context, id string) (*workaround.Record, error)

	// ListWorkarounds lists records with optional filters.
	ListWorkarounds(ctx context.Context, filters WorkaroundFilters) ([]*workaround.Record, error)

	// UpdateWorkaround changes justification, dependency, decision or scope.
	UpdateWorkaround(ctx context.Context, req UpdateWorkaroundRequest) (*workaround.Record, error)

	// DeleteWorkaround removes a record. A record cited by recorded
	// classifications is refused unless the request prunes them, and pruning
	// is refused while the latest run still explains a diff with the record.
	DeleteWorkaround(ctx context.Context, req DeleteWorkaroundRequest) (*DeleteWorkaroundResult, error)

	// ExportWorkarounds writes every record to a structured file.
	ExportWorkarounds(ctx context.Context, path string) (int, error)

	// ImportWorkarounds loads records from a structured file. Records whose
	// ID already exists are updated; new IDs are created as given.
	ImportWorkarounds(ctx context.Context, path string) (*ImportResult, error)
}

// RegisterWorkaroundRequest contains parameters for registering a workaround.
type RegisterWorkaroundRequest struct {
	Description   string
	Category      string
	Impact        string
	Justification string
	Dependency    string
	Decision      string
	Scope         []string
}

// UpdateWorkaroundRequest contains parameters for updating a workaround.
// Nil fields are left unchanged.
type UpdateWorkaroundRequest struct {
	ID            string
	Justification *string
	Dependency    *string
	Decision      *string
	Scope         []string
	ReplaceScope  bool
}

// DeleteWorkaroundRequest contains parameters for deleting a workaround.
type DeleteWorkaroundRequest struct {
	ID                   string
	PruneClassifications bool
}

// DeleteWorkaroundResult reports what a delete removed.
type DeleteWorkaroundResult struct {
	ID     string
	Pruned int // Classifications removed with the record
}

// WorkaroundFilters contains filter options for listing workarounds.
type WorkaroundFilters struct {
	Category   string
	Dependency string
}

// ImportResult reports what an import changed.
type ImportResult struct {
	Created int
	Updated int
}
