package db

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is recorded in schema_version after the schema is applied.
// Bump it when SchemaSQL changes shape.
const SchemaVersion = 2

// SchemaSQL is the complete schema for the parity state database.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. Repository
// tests load it via GetSchemaSQL() instead of declaring their own tables, so
// a column referenced by repository code but missing here fails immediately
// with "no such column".
const SchemaSQL = `
-- Workarounds (registry of documented mitigations; outlive runs)
CREATE TABLE IF NOT EXISTS workarounds (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	category TEXT NOT NULL CHECK(category IN ('pre-processing', 'post-processing', 'accept-and-document', 'vendor-or-fork', 'switch-implementation')),
	impact TEXT NOT NULL CHECK(impact IN ('cosmetic', 'functional', 'critical')),
	justification TEXT NOT NULL,
	dependency TEXT,
	decision TEXT CHECK(decision IS NULL OR decision IN ('replicate-for-parity', 'diverge-intentionally')),
	scope TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_workarounds_category ON workarounds(category);
CREATE INDEX IF NOT EXISTS idx_workarounds_dependency ON workarounds(dependency);

-- Classifications (decisions keyed by the exact divergence they explain)
CREATE TABLE IF NOT EXISTS classifications (
	fixture TEXT NOT NULL,
	mode TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	category TEXT NOT NULL CHECK(category IN ('porting-bug', 'library-difference', 'upstream-bug', 'intentional-improvement')),
	workaround_id TEXT,
	classified_by TEXT,
	run_id TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (fixture, mode, fingerprint),
	FOREIGN KEY (workaround_id) REFERENCES workarounds(id)
);

CREATE INDEX IF NOT EXISTS idx_classifications_workaround ON classifications(workaround_id);

-- Runs (sealed validation runs)
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	sealed_at DATETIME NOT NULL,
	corpus TEXT NOT NULL,
	provenance TEXT,
	stderr_policy TEXT NOT NULL CHECK(stderr_policy IN ('strict', 'presence', 'ignore')),
	pairs INTEGER NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL CHECK(outcome IN ('pass', 'fail')),
	reasons TEXT,
	advisories TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_sealed ON runs(sealed_at);

-- Diffs (divergences recorded by a run, with the classification they were sealed with)
CREATE TABLE IF NOT EXISTS diffs (
	run_id TEXT NOT NULL,
	fixture TEXT NOT NULL,
	mode TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	channels TEXT NOT NULL,
	category TEXT,
	workaround_id TEXT,
	classified_by TEXT,
	classified_at DATETIME,
	PRIMARY KEY (run_id, fixture, mode),
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_diffs_category ON diffs(category);

-- Results (one summary per fixture/mode/origin invocation that completed)
CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL,
	fixture TEXT NOT NULL,
	mode TEXT NOT NULL,
	origin TEXT NOT NULL CHECK(origin IN ('reference', 'candidate')),
	exit_code INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	stdout_bytes INTEGER NOT NULL DEFAULT 0,
	stderr_bytes INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, fixture, mode, origin),
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

-- Run errors (per fixture/mode/origin failures)
CREATE TABLE IF NOT EXISTS run_errors (
	run_id TEXT NOT NULL,
	fixture TEXT NOT NULL,
	mode TEXT NOT NULL,
	origin TEXT NOT NULL CHECK(origin IN ('reference', 'candidate')),
	kind TEXT NOT NULL CHECK(kind IN ('launch-failure', 'timeout', 'cancelled')),
	message TEXT,
	PRIMARY KEY (run_id, fixture, mode, origin),
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

-- Audit log (who registered, changed or classified what)
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	actor_id TEXT,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK(action IN ('create', 'update', 'delete')),
	field_name TEXT,
	old_value TEXT,
	new_value TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_log_entity ON audit_log(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_actor ON audit_log(actor_id);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// InitSchema creates the schema on a fresh database and refuses one written
// by a newer parity.
func InitSchema(conn *sql.DB) error {
	if _, err := conn.Exec(SchemaSQL); err != nil {
		return err
	}

	var current int
	if err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	switch {
	case current > SchemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion)
	case current < SchemaVersion:
		if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}

	return nil
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
