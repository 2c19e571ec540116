package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/parity/internal/ports/secondary"
)

// ClassificationRepository implements secondary.ClassificationRepository with SQLite.
type ClassificationRepository struct {
	db *sql.DB
}

// NewClassificationRepository creates a new SQLite classification repository.
func NewClassificationRepository(db *sql.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

// Save records a decision. A second decision for the same divergence fails
// on the primary key.
func (r *ClassificationRepository) Save(ctx context.Context, record *secondary.ClassificationRecord) error {
	createdAt := parseTimestamp(record.CreatedAt, time.Now().UTC())

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO classifications (fixture, mode, fingerprint, category, workaround_id, classified_by, run_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Fixture,
		record.Mode,
		record.Fingerprint,
		record.Category,
		nullString(record.WorkaroundID),
		nullString(record.ClassifiedBy),
		record.RunID,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}

	return nil
}

// Lookup returns the decision for an exact divergence, or nil when none exists.
func (r *ClassificationRepository) Lookup(ctx context.Context, fixture, mode, fingerprint string) (*secondary.ClassificationRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT fixture, mode, fingerprint, category, workaround_id, classified_by, run_id, created_at FROM classifications WHERE fixture = ? AND mode = ? AND fingerprint = ?`,
		fixture, mode, fingerprint,
	)

	record, err := scanClassification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up classification: %w", err)
	}

	return record, nil
}

// Delete removes the decision for an exact divergence.
func (r *ClassificationRepository) Delete(ctx context.Context, fixture, mode, fingerprint string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM classifications WHERE fixture = ? AND mode = ? AND fingerprint = ?",
		fixture, mode, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("failed to delete classification: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no classification recorded for %s@%s", fixture, mode)
	}

	return nil
}

// List retrieves decisions matching the given filters.
func (r *ClassificationRepository) List(ctx context.Context, filters secondary.ClassificationFilters) ([]*secondary.ClassificationRecord, error) {
	query := `SELECT fixture, mode, fingerprint, category, workaround_id, classified_by, run_id, created_at FROM classifications WHERE 1=1`
	args := []any{}

	if filters.Fixture != "" {
		query += " AND fixture = ?"
		args = append(args, filters.Fixture)
	}

	if filters.Category != "" {
		query += " AND category = ?"
		args = append(args, filters.Category)
	}

	if filters.WorkaroundID != "" {
		query += " AND workaround_id = ?"
		args = append(args, filters.WorkaroundID)
	}

	query += " ORDER BY fixture ASC, mode ASC, created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	defer rows.Close()

	var records []*secondary.ClassificationRecord
	for rows.Next() {
		record, err := scanClassification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classification: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func scanClassification(row rowScanner) (*secondary.ClassificationRecord, error) {
	var (
		workaroundID sql.NullString
		classifiedBy sql.NullString
		createdAt    time.Time
	)

	record := &secondary.ClassificationRecord{}
	err := row.Scan(&record.Fixture,
		&record.Mode,
		&record.Fingerprint,
		&record.Category,
		&workaroundID,
		&classifiedBy,
		&record.RunID,
		&createdAt)
	if err != nil {
		return nil, err
	}

	record.WorkaroundID = workaroundID.String
	record.ClassifiedBy = classifiedBy.String
	record.CreatedAt = createdAt.Format(time.RFC3339)

	return record, nil
}

// Ensure ClassificationRepository implements the interface
var _ secondary.ClassificationRepository = (*ClassificationRepository)(nil)
