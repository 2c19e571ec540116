package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/parity/internal/core/classify"
	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/core/fixture"
	"github.com/example/parity/internal/core/gate"
	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/core/workaround"
	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/ports/secondary"
)

// ValidationServiceImpl implements the ValidationService interface.
type ValidationServiceImpl struct {
	store              secondary.FixtureStore
	runner             *DualRunner
	runRepo            secondary.RunRepository
	classificationRepo secondary.ClassificationRepository
	workaroundRepo     secondary.WorkaroundRepository
	reports            secondary.ReportWriter
	logger             *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewValidationService creates a new ValidationService with injected dependencies.
func NewValidationService(
	store secondary.FixtureStore,
	runner *DualRunner,
	runRepo secondary.RunRepository,
	classificationRepo secondary.ClassificationRepository,
	workaroundRepo secondary.WorkaroundRepository,
	reports secondary.ReportWriter,
	logger *zap.Logger,
) *ValidationServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationServiceImpl{
		store:              store,
		runner:             runner,
		runRepo:            runRepo,
		classificationRepo: classificationRepo,
		workaroundRepo:     workaroundRepo,
		reports:            reports,
		logger:             logger,
		now:                func() time.Time { return time.Now().UTC() },
		newID:              func() string { return uuid.NewString() },
	}
}

// CheckCorpus loads and validates the corpus without executing anything.
func (s *ValidationServiceImpl) CheckCorpus(ctx context.Context) (*fixture.Corpus, error) {
	fixtures, err := s.store.ListFixtures(ctx)
	if err != nil {
		return nil, err
	}
	prov, err := s.store.Provenance(ctx)
	if err != nil {
		return nil, err
	}
	return &fixture.Corpus{Root: s.store.Root(), Provenance: prov, Fixtures: fixtures}, nil
}

// Validate runs both implementations over the corpus and seals a run.
// A *fixture.CorpusError aborts before anything executes. Run errors do not
// abort: they are recorded and fail the verdict.
func (s *ValidationServiceImpl) Validate(ctx context.Context, req primary.ValidateRequest) (*run.ValidationRun, error) {
	policy, err := diff.ParseStderrPolicy(string(req.StderrPolicy))
	if err != nil {
		return nil, err
	}
	if req.ReferenceBinary == "" || req.CandidateBinary == "" {
		return nil, fmt.Errorf("both reference and candidate binaries are required")
	}

	corpus, err := s.CheckCorpus(ctx)
	if err != nil {
		return nil, err
	}

	vr := &run.ValidationRun{
		ID:           s.newID(),
		StartedAt:    s.now(),
		CorpusRoot:   corpus.Root,
		Provenance:   corpus.Provenance.String(),
		StderrPolicy: policy,
		Pairs:        corpus.Pairs(),
		Results:      []execution.Summary{},
		Errors:       []execution.RunError{},
		Diffs:        []*diff.Diff{},
		Advisories:   []run.Advisory{},
	}

	s.logger.Info("validation started",
		zap.String("run", vr.ID),
		zap.String("corpus", vr.CorpusRoot),
		zap.Int("fixtures", len(corpus.Fixtures)),
		zap.Int("pairs", vr.Pairs),
		zap.String("stderr_policy", string(policy)))

	collection := s.runner.Run(ctx, RunPlan{
		Fixtures:        corpus.Fixtures,
		ReferenceBinary: req.ReferenceBinary,
		CandidateBinary: req.CandidateBinary,
		Timeout:         req.Timeout,
		Jobs:            req.Jobs,
	})

	// Interruption must still produce a sealed, persisted run.
	ctx = context.WithoutCancel(ctx)

	drift := s.compare(vr, corpus, collection)

	records, err := s.workaroundRepo.List(ctx, secondary.WorkaroundFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to load workarounds: %w", err)
	}
	byID := make(map[string]*workaround.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	if err := s.replayClassifications(ctx, vr, byID); err != nil {
		return nil, err
	}

	vr.Advisories = append(vr.Advisories, classify.Advise(vr.Diffs, records, req.SwitchThreshold)...)
	if drift != nil {
		vr.Advisories = append(vr.Advisories, *drift)
	}

	verdict := gate.Evaluate(vr, func(id string) bool {
		_, ok := byID[id]
		return ok
	})
	if err := vr.Seal(verdict, s.now()); err != nil {
		return nil, err
	}

	if err := s.runRepo.Save(ctx, vr); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	if req.ReportPath != "" {
		if err := s.reports.WriteReport(ctx, vr, req.ReportPath); err != nil {
			return nil, err
		}
	}

	counts := vr.Counts()
	s.logger.Info("validation sealed",
		zap.String("run", vr.ID),
		zap.String("outcome", string(verdict.Outcome)),
		zap.Int("matched", counts.Matched),
		zap.Int("diffs", counts.Diffed),
		zap.Int("errors", counts.Errored))

	return vr, nil
}

// compare pairs results, records diffs and run errors on vr, and returns a
// reference-drift advisory when reference output no longer matches the
// corpus expected artifacts.
func (s *ValidationServiceImpl) compare(vr *run.ValidationRun, corpus *fixture.Corpus, collection *Collection) *run.Advisory {
	var drifted []string

	for _, f := range corpus.Fixtures {
		for _, m := range f.Modes {
			refKey := execution.Key{Fixture: f.Name, Mode: m.Name, Origin: execution.OriginReference}
			candKey := execution.Key{Fixture: f.Name, Mode: m.Name, Origin: execution.OriginCandidate}

			ref, refOK := collection.Result(refKey)
			cand, candOK := collection.Result(candKey)
			if refOK {
				vr.Results = append(vr.Results, ref.Summary())
				if cd, differs := diff.DescribeBytes(diff.ChannelStdout, f.Expected[m.Name], ref.Stdout); differs {
					drifted = append(drifted, refKey.PairKey().String())
					s.logger.Debug("reference drift", zap.Stringer("pair", refKey.PairKey()), zap.String("summary", cd.Summary))
				}
			}
			if candOK {
				vr.Results = append(vr.Results, cand.Summary())
			}
			if !refOK || !candOK {
				continue
			}

			if d := diff.Compare(ref, cand, vr.StderrPolicy); d != nil {
				vr.Diffs = append(vr.Diffs, d)
			}
		}
	}

	vr.Errors = append(vr.Errors, collection.Errors...)
	run.SortResults(vr.Results)
	run.SortDiffs(vr.Diffs)
	run.SortErrors(vr.Errors)

	if len(drifted) == 0 {
		return nil
	}
	return &run.Advisory{
		Kind: run.AdvisoryReferenceDrift,
		Message: fmt.Sprintf("reference output differs from the expected artifact for %d pair(s); provenance %q may be stale",
			len(drifted), vr.Provenance),
		Fixtures: drifted,
	}
}

// replayClassifications re-applies recorded decisions to diffs whose exact
// divergence was classified before. Each decision passes the same legality
// check as a fresh one; a decision that no longer holds leaves the diff
// unclassified.
func (s *ValidationServiceImpl) replayClassifications(ctx context.Context, vr *run.ValidationRun, byID map[string]*workaround.Record) error {
	for _, d := range vr.Diffs {
		rec, err := s.classificationRepo.Lookup(ctx, d.Fixture, d.Mode, d.Fingerprint)
		if err != nil {
			return fmt.Errorf("failed to look up classification for %s: %w", d.Key(), err)
		}
		if rec == nil {
			continue
		}

		var wa *workaround.Record
		if rec.WorkaroundID != "" {
			wa = byID[rec.WorkaroundID]
			if wa == nil {
				s.logger.Warn("recorded classification cites a missing workaround",
					zap.Stringer("pair", d.Key()),
					zap.String("workaround", rec.WorkaroundID))
				continue
			}
		}

		classifiedAt, _ := time.Parse(time.RFC3339, rec.CreatedAt)
		if err := classify.Apply(d, diff.Category(rec.Category), wa, rec.ClassifiedBy, classifiedAt); err != nil {
			s.logger.Warn("recorded classification no longer applies",
				zap.Stringer("pair", d.Key()),
				zap.Error(err))
		}
	}
	return nil
}

// GetRun retrieves a sealed run by ID.
func (s *ValidationServiceImpl) GetRun(ctx context.Context, runID string) (*run.ValidationRun, error) {
	return s.runRepo.GetByID(ctx, runID)
}

// LatestRun retrieves the most recently sealed run.
func (s *ValidationServiceImpl) LatestRun(ctx context.Context) (*run.ValidationRun, error) {
	return resolveRun(ctx, s.runRepo, "")
}

// ListRuns lists sealed runs, newest first.
func (s *ValidationServiceImpl) ListRuns(ctx context.Context, limit int) ([]*primary.RunSummary, error) {
	records, err := s.runRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	summaries := make([]*primary.RunSummary, len(records))
	for i, r := range records {
		summaries[i] = &primary.RunSummary{
			ID:           r.ID,
			StartedAt:    r.StartedAt,
			SealedAt:     r.SealedAt,
			Outcome:      r.Outcome,
			StderrPolicy: r.StderrPolicy,
			Provenance:   r.Provenance,
			Pairs:        r.Pairs,
			Results:      r.Results,
			Diffs:        r.Diffs,
			Errors:       r.Errors,
		}
	}
	return summaries, nil
}

// resolveRun loads runID, or the latest run when runID is empty.
func resolveRun(ctx context.Context, repo secondary.RunRepository, runID string) (*run.ValidationRun, error) {
	if strings.TrimSpace(runID) != "" {
		return repo.GetByID(ctx, runID)
	}
	vr, err := repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if vr == nil {
		return nil, fmt.Errorf("no validation runs recorded; run 'parity validate' first")
	}
	return vr, nil
}

// Ensure ValidationServiceImpl implements the interface
var _ primary.ValidationService = (*ValidationServiceImpl)(nil)
