package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/parity/internal/core/workaround"
	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/ports/secondary"
)

// WorkaroundServiceImpl implements the WorkaroundService interface.
type WorkaroundServiceImpl struct {
	workaroundRepo secondary.WorkaroundRepository
	runRepo        secondary.RunRepository
	file           secondary.WorkaroundFile
	logWriter      secondary.LogWriter
}

// NewWorkaroundService creates a new WorkaroundService with injected dependencies.
func NewWorkaroundService(
	workaroundRepo secondary.WorkaroundRepository,
	runRepo secondary.RunRepository,
	file secondary.WorkaroundFile,
	logWriter secondary.LogWriter,
) *WorkaroundServiceImpl {
	return &WorkaroundServiceImpl{
		workaroundRepo: workaroundRepo,
		runRepo:        runRepo,
		file:           file,
		logWriter:      logWriter,
	}
}

// RegisterWorkaround validates and stores a new record.
func (s *WorkaroundServiceImpl) RegisterWorkaround(ctx context.Context, req primary.RegisterWorkaroundRequest) (*workaround.Record, error) {
	record := &workaround.Record{
		Description:   strings.TrimSpace(req.Description),
		Category:      workaround.Category(req.Category),
		Impact:        workaround.Impact(req.Impact),
		Justification: strings.TrimSpace(req.Justification),
		Dependency:    strings.TrimSpace(req.Dependency),
		Decision:      workaround.Decision(req.Decision),
		Scope:         normalizeScope(req.Scope),
	}

	// Guard check
	if err := workaround.CanRegister(*record).Error(); err != nil {
		return nil, err
	}

	nextID, err := s.workaroundRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate workaround ID: %w", err)
	}
	record.ID = nextID

	if err := s.workaroundRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create workaround: %w", err)
	}
	_ = s.logWriter.LogCreate(ctx, "workaround", nextID)

	return s.workaroundRepo.GetByID(ctx, nextID)
}

// GetWorkaround retrieves a record by ID.
func (s *WorkaroundServiceImpl) GetWorkaround(ctx context.Context, id string) (*workaround.Record, error) {
	return s.workaroundRepo.GetByID(ctx, id)
}

// ListWorkarounds lists records with optional filters.
func (s *WorkaroundServiceImpl) ListWorkarounds(ctx context.Context, filters primary.WorkaroundFilters) ([]*workaround.Record, error) {
	records, err := s.workaroundRepo.List(ctx, secondary.WorkaroundFilters{
		Category:   filters.Category,
		Dependency: filters.Dependency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list workarounds: %w", err)
	}
	return records, nil
}

// UpdateWorkaround changes justification, dependency, decision or scope.
// The updated record must still pass registration rules.
func (s *WorkaroundServiceImpl) UpdateWorkaround(ctx context.Context, req primary.UpdateWorkaroundRequest) (*workaround.Record, error) {
	current, err := s.workaroundRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	updated := *current
	type change struct{ field, before, after string }
	var changes []change

	if req.Justification != nil {
		updated.Justification = strings.TrimSpace(*req.Justification)
		changes = append(changes, change{"justification", current.Justification, updated.Justification})
	}
	if req.Dependency != nil {
		updated.Dependency = strings.TrimSpace(*req.Dependency)
		changes = append(changes, change{"dependency", current.Dependency, updated.Dependency})
	}
	if req.Decision != nil {
		updated.Decision = workaround.Decision(*req.Decision)
		changes = append(changes, change{"decision", string(current.Decision), string(updated.Decision)})
	}
	if req.ReplaceScope {
		updated.Scope = normalizeScope(req.Scope)
	} else if len(req.Scope) > 0 {
		updated.Scope = normalizeScope(append(append([]string{}, current.Scope...), req.Scope...))
	}
	if req.ReplaceScope || len(req.Scope) > 0 {
		changes = append(changes, change{"scope", strings.Join(current.Scope, ","), strings.Join(updated.Scope, ",")})
	}

	if len(changes) == 0 {
		return nil, fmt.Errorf("no changes requested for workaround %s", req.ID)
	}

	// Guard check
	if err := workaround.CanRegister(updated).Error(); err != nil {
		return nil, err
	}

	if err := s.workaroundRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update workaround: %w", err)
	}
	for _, c := range changes {
		if c.before != c.after {
			_ = s.logWriter.LogUpdate(ctx, "workaround", req.ID, c.field, c.before, c.after)
		}
	}

	return s.workaroundRepo.GetByID(ctx, req.ID)
}

// DeleteWorkaround removes a record. Cited records need PruneClassifications,
// which removes the citing ledger entries in the same transaction.
func (s *WorkaroundServiceImpl) DeleteWorkaround(ctx context.Context, req primary.DeleteWorkaroundRequest) (*primary.DeleteWorkaroundResult, error) {
	if _, err := s.workaroundRepo.GetByID(ctx, req.ID); err != nil {
		return nil, err
	}

	count, err := s.workaroundRepo.CountClassifications(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	guardCtx := workaround.DeleteContext{
		WorkaroundID:         req.ID,
		ClassificationCount:  count,
		PruneClassifications: req.PruneClassifications,
	}
	if count > 0 && req.PruneClassifications {
		latest, err := s.runRepo.Latest(ctx)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			guardCtx.LatestRunID = latest.ID
			for _, d := range latest.Diffs {
				if d.Classified() && d.Classification.WorkaroundID == req.ID {
					guardCtx.LatestRunCitations++
				}
			}
		}
	}

	// Guard check
	if err := workaround.CanDelete(guardCtx).Error(); err != nil {
		return nil, err
	}

	result := &primary.DeleteWorkaroundResult{ID: req.ID}
	if count == 0 {
		if err := s.workaroundRepo.Delete(ctx, req.ID); err != nil {
			return nil, fmt.Errorf("failed to delete workaround: %w", err)
		}
	} else {
		pruned, err := s.workaroundRepo.DeleteWithClassifications(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		result.Pruned = pruned
		_ = s.logWriter.LogUpdate(ctx, "workaround", req.ID, "classifications", fmt.Sprintf("%d", count), "pruned")
	}
	_ = s.logWriter.LogDelete(ctx, "workaround", req.ID)

	return result, nil
}

// ExportWorkarounds writes every record to path.
func (s *WorkaroundServiceImpl) ExportWorkarounds(ctx context.Context, path string) (int, error) {
	records, err := s.workaroundRepo.List(ctx, secondary.WorkaroundFilters{})
	if err != nil {
		return 0, fmt.Errorf("failed to list workarounds: %w", err)
	}
	if err := s.file.Export(ctx, path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// ImportWorkarounds loads records from path. Every record is validated
// before any is written, and the writes share one transaction.
func (s *WorkaroundServiceImpl) ImportWorkarounds(ctx context.Context, path string) (*primary.ImportResult, error) {
	records, err := s.file.Import(ctx, path)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		r.Scope = normalizeScope(r.Scope)
		if err := workaround.CanRegister(*r).Error(); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, r.ID, err)
		}
	}

	existing, err := s.workaroundRepo.List(ctx, secondary.WorkaroundFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list workarounds: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[r.ID] = true
	}

	var create, update []*workaround.Record
	for _, r := range records {
		if known[r.ID] {
			update = append(update, r)
			continue
		}
		create = append(create, r)
	}

	if err := s.workaroundRepo.Import(ctx, create, update); err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}

	for _, r := range update {
		_ = s.logWriter.LogUpdate(ctx, "workaround", r.ID, "import", "", path)
	}
	for _, r := range create {
		_ = s.logWriter.LogCreate(ctx, "workaround", r.ID)
	}

	return &primary.ImportResult{Created: len(create), Updated: len(update)}, nil
}

// normalizeScope trims entries and drops blanks and duplicates, keeping order.
func normalizeScope(scope []string) []string {
	var out []string
	seen := make(map[string]bool, len(scope))
	for _, s := range scope {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Ensure WorkaroundServiceImpl implements the interface
var _ primary.WorkaroundService = (*WorkaroundServiceImpl)(nil)
