package primary

import "context"

// ClassificationService defines the primary port for classifying diffs.
// It is the only place judgment enters the pipeline; it never picks a
// category on its own.
type ClassificationService interface {
	// Classify records a decision for one diff of a sealed run. The decision
	// applies to that exact divergence in every later run.
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error)

	// Revoke withdraws a recorded decision. The next validation run sees
	// the divergence as unclassified again. Sealed runs are not modified.
	Revoke(ctx context.Context, req RevokeRequest) (*RevokeResponse, error)

	// ListClassifications lists recorded decisions with optional filters.
	ListClassifications(ctx context.Context, filters ClassificationFilters) ([]*Classification, error)
}

// ClassifyRequest contains parameters for classifying a diff.
type ClassifyRequest struct {
	RunID        string // Empty means the latest run
	Fixture      string
	Mode         string
	Category     string
	WorkaroundID string
}

// ClassifyResponse contains the result of a classification.
type ClassifyResponse struct {
	RunID       string
	Fingerprint string
	Unchanged   bool // The identical decision already existed
}

// RevokeRequest identifies the decision to withdraw. With Fingerprint empty
// the divergence is taken from the diff in the given (or latest) run; a
// fingerprint prefix selects a decision whose divergence no longer occurs.
type RevokeRequest struct {
	RunID       string
	Fixture     string
	Mode        string
	Fingerprint string
}

// RevokeResponse describes the withdrawn decision.
type RevokeResponse struct {
	Fingerprint  string
	Category     string
	WorkaroundID string
}

// Classification represents a recorded decision at the port boundary.
type Classification struct {
	Fixture      string
	Mode         string
	Fingerprint  string
	Category     string
	WorkaroundID string
	ClassifiedBy string
	RunID        string
	CreatedAt    string
}

// ClassificationFilters contains filter options for listing decisions.
type ClassificationFilters struct {
	Fixture      string
	Category     string
	WorkaroundID string
}
