// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/parity/internal/core/workaround"
	"github.com/example/parity/internal/ports/secondary"
)

// WorkaroundRepository implements secondary.WorkaroundRepository with SQLite.
type WorkaroundRepository struct {
	db *sql.DB
}

// NewWorkaroundRepository creates a new SQLite workaround repository.
func NewWorkaroundRepository(db *sql.DB) *WorkaroundRepository {
	return &WorkaroundRepository{db: db}
}

const workaroundColumns = "id, description, category, impact, justification, dependency, decision, scope, created_at, updated_at"

// Create persists a new workaround. Empty timestamps default to now.
func (r *WorkaroundRepository) Create(ctx context.Context, record *workaround.Record) error {
	return insertWorkaround(ctx, r.db, record)
}

// GetByID retrieves a workaround by its ID.
func (r *WorkaroundRepository) GetByID(ctx context.Context, id string) (*workaround.Record, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+workaroundColumns+" FROM workarounds WHERE id = ?",
		id,
	)

	record, err := scanWorkaround(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workaround %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workaround: %w", err)
	}

	return record, nil
}

// List retrieves workarounds matching the given filters, ordered by ID.
func (r *WorkaroundRepository) List(ctx context.Context, filters secondary.WorkaroundFilters) ([]*workaround.Record, error) {
	query := "SELECT " + workaroundColumns + " FROM workarounds WHERE 1=1"
	args := []any{}

	if filters.Category != "" {
		query += " AND category = ?"
		args = append(args, filters.Category)
	}

	if filters.Dependency != "" {
		query += " AND dependency = ?"
		args = append(args, filters.Dependency)
	}

	query += " ORDER BY id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workarounds: %w", err)
	}
	defer rows.Close()

	var records []*workaround.Record
	for rows.Next() {
		record, err := scanWorkaround(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workaround: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Update replaces the mutable fields of an existing workaround.
func (r *WorkaroundRepository) Update(ctx context.Context, record *workaround.Record) error {
	return updateWorkaround(ctx, r.db, record)
}

// Delete removes a workaround.
func (r *WorkaroundRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workarounds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete workaround: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("workaround %s not found", id)
	}

	return nil
}

// GetNextID returns the next available workaround ID.
func (r *WorkaroundRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	prefixLen := len("WA-") + 1
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(CAST(SUBSTR(id, %d) AS INTEGER)), 0) FROM workarounds WHERE id LIKE 'WA-%%'", prefixLen),
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next workaround ID: %w", err)
	}

	return fmt.Sprintf("WA-%03d", maxID+1), nil
}

// CountClassifications returns how many ledger entries cite the workaround.
func (r *WorkaroundRepository) CountClassifications(ctx context.Context, id string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM classifications WHERE workaround_id = ?",
		id,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count classifications: %w", err)
	}
	return count, nil
}

// DeleteWithClassifications removes the workaround and the recorded
// classifications citing it in one transaction.
func (r *WorkaroundRepository) DeleteWithClassifications(ctx context.Context, id string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM classifications WHERE workaround_id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("failed to prune classifications: %w", err)
	}
	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	result, err = tx.ExecContext(ctx, "DELETE FROM workarounds WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete workaround: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return 0, fmt.Errorf("workaround %s not found", id)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return int(pruned), nil
}

// Import creates and updates records in one transaction.
func (r *WorkaroundRepository) Import(ctx context.Context, create, update []*workaround.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range update {
		if err := updateWorkaround(ctx, tx, record); err != nil {
			return err
		}
	}
	for _, record := range create {
		if err := insertWorkaround(ctx, tx, record); err != nil {
			return fmt.Errorf("%s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertWorkaround(ctx context.Context, ex execer, record *workaround.Record) error {
	scope, err := encodeScope(record.Scope)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := parseTimestamp(record.CreatedAt, now)
	updatedAt := parseTimestamp(record.UpdatedAt, createdAt)

	_, err = ex.ExecContext(ctx,
		"INSERT INTO workarounds ("+workaroundColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		record.ID,
		record.Description,
		string(record.Category),
		string(record.Impact),
		record.Justification,
		nullString(record.Dependency),
		nullString(string(record.Decision)),
		scope,
		createdAt,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workaround: %w", err)
	}

	return nil
}

func updateWorkaround(ctx context.Context, ex execer, record *workaround.Record) error {
	scope, err := encodeScope(record.Scope)
	if err != nil {
		return err
	}

	result, err := ex.ExecContext(ctx,
		`UPDATE workarounds SET description = ?, category = ?, impact = ?, justification = ?, dependency = ?, decision = ?, scope = ?, updated_at = ? WHERE id = ?`,
		record.Description,
		string(record.Category),
		string(record.Impact),
		record.Justification,
		nullString(record.Dependency),
		nullString(string(record.Decision)),
		scope,
		time.Now().UTC(),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update workaround: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("workaround %s not found", record.ID)
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkaround(row rowScanner) (*workaround.Record, error) {
	var (
		category   string
		impact     string
		dependency sql.NullString
		decision   sql.NullString
		scope      sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
	)

	record := &workaround.Record{}
	err := row.Scan(&record.ID,
		&record.Description,
		&category,
		&impact,
		&record.Justification,
		&dependency,
		&decision,
		&scope,
		&createdAt,
		&updatedAt)
	if err != nil {
		return nil, err
	}

	record.Category = workaround.Category(category)
	record.Impact = workaround.Impact(impact)
	record.Dependency = dependency.String
	record.Decision = workaround.Decision(decision.String)
	if scope.Valid && scope.String != "" {
		if err := json.Unmarshal([]byte(scope.String), &record.Scope); err != nil {
			return nil, fmt.Errorf("workaround %s has corrupt scope: %w", record.ID, err)
		}
	}
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)

	return record, nil
}

func encodeScope(scope []string) (sql.NullString, error) {
	if len(scope) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(scope)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode scope: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// nullString maps the empty string to NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// parseTimestamp parses an RFC3339 string, returning fallback when s is
// empty or malformed.
func parseTimestamp(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

// Ensure WorkaroundRepository implements the interface
var _ secondary.WorkaroundRepository = (*WorkaroundRepository)(nil)
