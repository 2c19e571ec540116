package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/ports/secondary"
)

// LogServiceImpl reads the audit trail of registry and ledger changes.
type LogServiceImpl struct {
	logRepo secondary.AuditLogRepository
}

// NewLogService creates a new LogService with injected dependencies.
func NewLogService(logRepo secondary.AuditLogRepository) *LogServiceImpl {
	return &LogServiceImpl{
		logRepo: logRepo,
	}
}

// ListLogs retrieves audit entries, newest first. A fixture@mode pair
// selects the history of every classification recorded for that pair,
// including revoked ones.
func (s *LogServiceImpl) ListLogs(ctx context.Context, filters primary.LogFilters) ([]*primary.LogEntry, error) {
	query := secondary.AuditLogFilters{
		EntityType: filters.EntityType,
		ActorID:    filters.ActorID,
		Limit:      filters.Limit,
	}
	if query.Limit <= 0 {
		query.Limit = primary.DefaultLogLimit
	}
	if isPair(filters.EntityID) {
		query.EntityType = "classification"
		query.EntityIDPrefix = filters.EntityID + "#"
	} else {
		query.EntityID = filters.EntityID
	}

	records, err := s.logRepo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}

	entries := make([]*primary.LogEntry, len(records))
	for i, r := range records {
		entries[i] = &primary.LogEntry{
			ID:         r.ID,
			Timestamp:  r.Timestamp,
			ActorID:    r.ActorID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			FieldName:  r.FieldName,
			OldValue:   r.OldValue,
			NewValue:   r.NewValue,
		}
	}
	return entries, nil
}

// isPair reports whether id names a fixture@mode pair rather than a
// single classification (pair#fingerprint).
func isPair(id string) bool {
	return strings.Contains(id, "@") && !strings.Contains(id, "#")
}

// Ensure LogServiceImpl implements the interface
var _ primary.LogService = (*LogServiceImpl)(nil)
