package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/ports/secondary"
)

// RunRepository implements secondary.RunRepository with SQLite.
// Execution results are persisted as summaries; output bytes are not kept.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save persists a sealed run in a single transaction.
func (r *RunRepository) Save(ctx context.Context, vr *run.ValidationRun) error {
	if !vr.Sealed() {
		return fmt.Errorf("cannot persist unsealed run %s", vr.ID)
	}

	reasons, err := json.Marshal(vr.Verdict.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode verdict reasons: %w", err)
	}
	advisories, err := json.Marshal(vr.Advisories)
	if err != nil {
		return fmt.Errorf("failed to encode advisories: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, sealed_at, corpus, provenance, stderr_policy, pairs, outcome, reasons, advisories) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		vr.ID,
		vr.StartedAt.UTC(),
		vr.SealedAt.UTC(),
		vr.CorpusRoot,
		nullString(vr.Provenance),
		string(vr.StderrPolicy),
		vr.Pairs,
		string(vr.Verdict.Outcome),
		string(reasons),
		string(advisories),
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	for _, d := range vr.Diffs {
		channels, err := json.Marshal(d.Channels)
		if err != nil {
			return fmt.Errorf("failed to encode channels for %s: %w", d.Key(), err)
		}

		var category, workaroundID, classifiedBy sql.NullString
		var classifiedAt sql.NullTime
		if c := d.Classification; c != nil {
			category = nullString(string(c.Category))
			workaroundID = nullString(c.WorkaroundID)
			classifiedBy = nullString(c.ClassifiedBy)
			classifiedAt = sql.NullTime{Time: c.ClassifiedAt.UTC(), Valid: !c.ClassifiedAt.IsZero()}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO diffs (run_id, fixture, mode, fingerprint, channels, category, workaround_id, classified_by, classified_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			vr.ID, d.Fixture, d.Mode, d.Fingerprint, string(channels),
			category, workaroundID, classifiedBy, classifiedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create diff %s: %w", d.Key(), err)
		}
	}

	for _, res := range vr.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO results (run_id, fixture, mode, origin, exit_code, duration_ms, stdout_bytes, stderr_bytes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			vr.ID, res.Fixture, res.Mode, string(res.Origin), res.ExitCode, res.DurationMs, res.StdoutBytes, res.StderrBytes,
		)
		if err != nil {
			return fmt.Errorf("failed to create result %s: %w", res.Key, err)
		}
	}

	for _, e := range vr.Errors {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_errors (run_id, fixture, mode, origin, kind, message) VALUES (?, ?, ?, ?, ?, ?)`,
			vr.ID, e.Fixture, e.Mode, string(e.Origin), string(e.Kind), nullString(e.Message),
		)
		if err != nil {
			return fmt.Errorf("failed to create run error %s: %w", e.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// GetByID retrieves a run with its results, diffs and run errors.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*run.ValidationRun, error) {
	var (
		provenance sql.NullString
		policy     string
		outcome    string
		reasons    sql.NullString
		advisories sql.NullString
	)

	vr := &run.ValidationRun{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, sealed_at, corpus, provenance, stderr_policy, pairs, outcome, reasons, advisories FROM runs WHERE id = ?`,
		id,
	).Scan(&vr.ID, &vr.StartedAt, &vr.SealedAt, &vr.CorpusRoot, &provenance, &policy, &vr.Pairs, &outcome, &reasons, &advisories)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	vr.Provenance = provenance.String
	vr.StderrPolicy = diff.StderrPolicy(policy)

	verdict := run.Verdict{Outcome: run.Outcome(outcome)}
	if err := decodeJSONColumn(reasons, &verdict.Reasons); err != nil {
		return nil, fmt.Errorf("run %s has corrupt reasons: %w", id, err)
	}
	vr.Verdict = &verdict

	if err := decodeJSONColumn(advisories, &vr.Advisories); err != nil {
		return nil, fmt.Errorf("run %s has corrupt advisories: %w", id, err)
	}

	if vr.Diffs, err = r.loadDiffs(ctx, id); err != nil {
		return nil, err
	}
	if vr.Errors, err = r.loadErrors(ctx, id); err != nil {
		return nil, err
	}
	if vr.Results, err = r.loadResults(ctx, id); err != nil {
		return nil, err
	}

	return vr, nil
}

// Latest retrieves the most recently sealed run, or nil when none exists.
func (r *RunRepository) Latest(ctx context.Context) (*run.ValidationRun, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM runs ORDER BY sealed_at DESC, rowid DESC LIMIT 1",
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return r.GetByID(ctx, id)
}

// List retrieves run summaries, newest first. A limit of zero lists all runs.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*secondary.RunSummaryRecord, error) {
	query := `SELECT r.id, r.started_at, r.sealed_at, r.outcome, r.stderr_policy, r.provenance, r.pairs,
		(SELECT COUNT(*) FROM results x WHERE x.run_id = r.id),
		(SELECT COUNT(*) FROM diffs d WHERE d.run_id = r.id),
		(SELECT COUNT(*) FROM run_errors e WHERE e.run_id = r.id)
		FROM runs r ORDER BY r.sealed_at DESC, r.rowid DESC`
	args := []any{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []*secondary.RunSummaryRecord
	for rows.Next() {
		var (
			startedAt  time.Time
			sealedAt   time.Time
			provenance sql.NullString
		)

		record := &secondary.RunSummaryRecord{}
		err := rows.Scan(&record.ID,
			&startedAt,
			&sealedAt,
			&record.Outcome,
			&record.StderrPolicy,
			&provenance,
			&record.Pairs,
			&record.Results,
			&record.Diffs,
			&record.Errors)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		record.StartedAt = startedAt.Format(time.RFC3339)
		record.SealedAt = sealedAt.Format(time.RFC3339)
		record.Provenance = provenance.String

		summaries = append(summaries, record)
	}

	return summaries, rows.Err()
}

func (r *RunRepository) loadDiffs(ctx context.Context, runID string) ([]*diff.Diff, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT fixture, mode, fingerprint, channels, category, workaround_id, classified_by, classified_at FROM diffs WHERE run_id = ? ORDER BY fixture ASC, mode ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list diffs: %w", err)
	}
	defer rows.Close()

	var diffs []*diff.Diff
	for rows.Next() {
		var (
			channels     string
			category     sql.NullString
			workaroundID sql.NullString
			classifiedBy sql.NullString
			classifiedAt sql.NullTime
		)

		d := &diff.Diff{}
		if err := rows.Scan(&d.Fixture, &d.Mode, &d.Fingerprint, &channels, &category, &workaroundID, &classifiedBy, &classifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan diff: %w", err)
		}
		if err := json.Unmarshal([]byte(channels), &d.Channels); err != nil {
			return nil, fmt.Errorf("diff %s has corrupt channels: %w", d.Key(), err)
		}
		if category.Valid {
			d.Classification = &diff.Classification{
				Category:     diff.Category(category.String),
				WorkaroundID: workaroundID.String,
				ClassifiedBy: classifiedBy.String,
				ClassifiedAt: classifiedAt.Time,
			}
		}

		diffs = append(diffs, d)
	}

	return diffs, rows.Err()
}

func (r *RunRepository) loadErrors(ctx context.Context, runID string) ([]execution.RunError, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT fixture, mode, origin, kind, message FROM run_errors WHERE run_id = ? ORDER BY fixture ASC, mode ASC, origin ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run errors: %w", err)
	}
	defer rows.Close()

	var errs []execution.RunError
	for rows.Next() {
		var (
			origin  string
			kind    string
			message sql.NullString
		)

		e := execution.RunError{}
		if err := rows.Scan(&e.Fixture, &e.Mode, &origin, &kind, &message); err != nil {
			return nil, fmt.Errorf("failed to scan run error: %w", err)
		}
		e.Origin = execution.Origin(origin)
		e.Kind = execution.ErrorKind(kind)
		e.Message = message.String

		errs = append(errs, e)
	}

	return errs, rows.Err()
}

func (r *RunRepository) loadResults(ctx context.Context, runID string) ([]execution.Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT fixture, mode, origin, exit_code, duration_ms, stdout_bytes, stderr_bytes FROM results WHERE run_id = ? ORDER BY fixture ASC, mode ASC, origin ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []execution.Summary
	for rows.Next() {
		var origin string

		res := execution.Summary{}
		if err := rows.Scan(&res.Fixture, &res.Mode, &origin, &res.ExitCode, &res.DurationMs, &res.StdoutBytes, &res.StderrBytes); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.Origin = execution.Origin(origin)

		results = append(results, res)
	}

	return results, rows.Err()
}

func decodeJSONColumn(col sql.NullString, dest any) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dest)
}

// Ensure RunRepository implements the interface
var _ secondary.RunRepository = (*RunRepository)(nil)
