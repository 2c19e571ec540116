package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/parity/internal/core/classify"
	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/workaround"
	"github.com/example/parity/internal/ctxutil"
	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/ports/secondary"
)

// ClassificationServiceImpl implements the ClassificationService interface.
// Sealed runs are never modified: a decision is written to the ledger and
// takes effect when the same divergence is seen by the next validation run.
type ClassificationServiceImpl struct {
	runRepo            secondary.RunRepository
	classificationRepo secondary.ClassificationRepository
	workaroundRepo     secondary.WorkaroundRepository
	logWriter          secondary.LogWriter
}

// NewClassificationService creates a new ClassificationService with injected dependencies.
func NewClassificationService(
	runRepo secondary.RunRepository,
	classificationRepo secondary.ClassificationRepository,
	workaroundRepo secondary.WorkaroundRepository,
	logWriter secondary.LogWriter,
) *ClassificationServiceImpl {
	return &ClassificationServiceImpl{
		runRepo:            runRepo,
		classificationRepo: classificationRepo,
		workaroundRepo:     workaroundRepo,
		logWriter:          logWriter,
	}
}

// Classify records a decision for one diff. Illegal transitions come back
// as *classify.Error and nothing is written.
func (s *ClassificationServiceImpl) Classify(ctx context.Context, req primary.ClassifyRequest) (*primary.ClassifyResponse, error) {
	vr, err := resolveRun(ctx, s.runRepo, req.RunID)
	if err != nil {
		return nil, err
	}

	sealed := vr.Diff(req.Fixture, req.Mode)
	if sealed == nil {
		return nil, fmt.Errorf("run %s has no diff for %s@%s", vr.ID, req.Fixture, req.Mode)
	}

	var wa *workaround.Record
	if req.WorkaroundID != "" {
		wa, err = s.workaroundRepo.GetByID(ctx, req.WorkaroundID)
		if err != nil {
			return nil, err
		}
	}

	// Evaluate against a copy carrying the newest known decision for this
	// divergence: the one the run was sealed with, or a later ledger entry.
	candidate := *sealed
	if candidate.Classification == nil {
		existing, err := s.classificationRepo.Lookup(ctx, sealed.Fixture, sealed.Mode, sealed.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("failed to look up classification: %w", err)
		}
		if existing != nil {
			candidate.Classification = &diff.Classification{
				Category:     diff.Category(existing.Category),
				WorkaroundID: existing.WorkaroundID,
				ClassifiedBy: existing.ClassifiedBy,
			}
		}
	}

	category := diff.Category(req.Category)
	if err := classify.Check(&candidate, category, wa); err != nil {
		return nil, err
	}

	resp := &primary.ClassifyResponse{RunID: vr.ID, Fingerprint: sealed.Fingerprint}
	if candidate.Classified() {
		resp.Unchanged = true
		return resp, nil
	}

	record := &secondary.ClassificationRecord{
		Fixture:      sealed.Fixture,
		Mode:         sealed.Mode,
		Fingerprint:  sealed.Fingerprint,
		Category:     string(category),
		WorkaroundID: req.WorkaroundID,
		ClassifiedBy: ctxutil.ActorFromContext(ctx),
		RunID:        vr.ID,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.classificationRepo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record classification: %w", err)
	}

	value := string(category)
	if req.WorkaroundID != "" {
		value = fmt.Sprintf("%s (%s)", category, req.WorkaroundID)
	}
	_ = s.logWriter.LogUpdate(ctx, "classification", classificationEntityID(sealed.Fixture, sealed.Mode, sealed.Fingerprint), "category", "unclassified", value)

	return resp, nil
}

// Revoke withdraws a recorded decision so the next run treats the divergence
// as unclassified. Sealed runs keep the classification they were sealed with.
func (s *ClassificationServiceImpl) Revoke(ctx context.Context, req primary.RevokeRequest) (*primary.RevokeResponse, error) {
	var (
		rec *secondary.ClassificationRecord
		err error
	)
	if req.Fingerprint == "" {
		rec, err = s.recordForRunDiff(ctx, req)
	} else {
		rec, err = s.recordForFingerprint(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if err := s.classificationRepo.Delete(ctx, rec.Fixture, rec.Mode, rec.Fingerprint); err != nil {
		return nil, err
	}

	old := rec.Category
	if rec.WorkaroundID != "" {
		old = fmt.Sprintf("%s (%s)", rec.Category, rec.WorkaroundID)
	}
	_ = s.logWriter.LogUpdate(ctx, "classification", classificationEntityID(rec.Fixture, rec.Mode, rec.Fingerprint), "category", old, "unclassified")

	return &primary.RevokeResponse{
		Fingerprint:  rec.Fingerprint,
		Category:     rec.Category,
		WorkaroundID: rec.WorkaroundID,
	}, nil
}

func (s *ClassificationServiceImpl) recordForRunDiff(ctx context.Context, req primary.RevokeRequest) (*secondary.ClassificationRecord, error) {
	vr, err := resolveRun(ctx, s.runRepo, req.RunID)
	if err != nil {
		return nil, err
	}
	d := vr.Diff(req.Fixture, req.Mode)
	if d == nil {
		return nil, fmt.Errorf("run %s has no diff for %s@%s; pass --fingerprint to revoke a decision for a divergence that no longer occurs", vr.ID, req.Fixture, req.Mode)
	}

	rec, err := s.classificationRepo.Lookup(ctx, d.Fixture, d.Mode, d.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to look up classification: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("no classification recorded for %s (%s)", d.Key(), d.ShortFingerprint())
	}
	return rec, nil
}

func (s *ClassificationServiceImpl) recordForFingerprint(ctx context.Context, req primary.RevokeRequest) (*secondary.ClassificationRecord, error) {
	records, err := s.classificationRepo.List(ctx, secondary.ClassificationFilters{Fixture: req.Fixture})
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}

	var matches []*secondary.ClassificationRecord
	for _, r := range records {
		if r.Mode == req.Mode && strings.HasPrefix(r.Fingerprint, req.Fingerprint) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no classification recorded for %s@%s with fingerprint %s", req.Fixture, req.Mode, req.Fingerprint)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("fingerprint %s matches %d classifications for %s@%s; give more characters", req.Fingerprint, len(matches), req.Fixture, req.Mode)
	}
}

// ListClassifications lists recorded decisions with optional filters.
func (s *ClassificationServiceImpl) ListClassifications(ctx context.Context, filters primary.ClassificationFilters) ([]*primary.Classification, error) {
	records, err := s.classificationRepo.List(ctx, secondary.ClassificationFilters{
		Fixture:      filters.Fixture,
		Category:     filters.Category,
		WorkaroundID: filters.WorkaroundID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}

	out := make([]*primary.Classification, len(records))
	for i, r := range records {
		out[i] = &primary.Classification{
			Fixture:      r.Fixture,
			Mode:         r.Mode,
			Fingerprint:  r.Fingerprint,
			Category:     r.Category,
			WorkaroundID: r.WorkaroundID,
			ClassifiedBy: r.ClassifiedBy,
			RunID:        r.RunID,
			CreatedAt:    r.CreatedAt,
		}
	}
	return out, nil
}

// classificationEntityID names a ledger entry in the audit log.
func classificationEntityID(fixture, mode, fingerprint string) string {
	short := fingerprint
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s@%s#%s", fixture, mode, short)
}

// Ensure ClassificationServiceImpl implements the interface
var _ primary.ClassificationService = (*ClassificationServiceImpl)(nil)
