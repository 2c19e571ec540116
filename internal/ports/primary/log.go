package primary

import "context"

// LogService defines the primary port for the audit trail of registry and
// classification changes.
type LogService interface {
	// ListLogs retrieves log entries matching the given filters, newest first.
	ListLogs(ctx context.Context, filters LogFilters) ([]*LogEntry, error)
}

// LogEntry represents an audit entry at the port boundary.
type LogEntry struct {
	ID         string
	Timestamp  string
	ActorID    string
	EntityType string // 'workaround', 'classification'
	EntityID   string
	Action     string // 'create', 'update', 'delete'
	FieldName  string // For updates only
	OldValue   string
	NewValue   string
}

// LogFilters contains filter options for querying logs.
type LogFilters struct {
	EntityType string
	// EntityID is a workaround ID, a classification ID, or a fixture@mode
	// pair matching every classification recorded for that pair.
	EntityID string
	ActorID  string
	Limit    int // 0 means DefaultLogLimit
}

// DefaultLogLimit caps a listing when no limit is given.
const DefaultLogLimit = 50
