package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations[i] brings the database from version i to version i+1.
var migrations = []string{
	// 1: session snapshots and the evaluation log.
	`
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

-- state holds the encoded SessionState; the scalar columns exist for
-- listing without decoding.
CREATE TABLE IF NOT EXISTS session_state (
    session_id TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    confidence INTEGER NOT NULL,
    turn_count INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pass_history (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    turn INTEGER NOT NULL,
    recorded_at TEXT NOT NULL,
    event TEXT,
    tool TEXT,
    old_confidence INTEGER NOT NULL,
    new_confidence INTEGER NOT NULL,
    applied INTEGER NOT NULL,
    tier TEXT NOT NULL,
    triggered TEXT NOT NULL  -- JSON array
);
CREATE INDEX IF NOT EXISTS idx_history_session ON pass_history(session_id, turn);
`,
}

// SchemaVersion is the version a fully migrated database reports.
var SchemaVersion = len(migrations)

// InitSchema creates or upgrades the schema. Existing databases are
// integrity-checked before any migration runs.
func InitSchema(ctx context.Context, db *sql.DB) error {
	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > 0 {
		if err := ValidateIntegrity(ctx, db); err != nil {
			return fmt.Errorf("database integrity check failed: %w", err)
		}
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion)
	}
	for v := current; v < SchemaVersion; v++ {
		if err := migrate(ctx, db, v+1, migrations[v]); err != nil {
			return fmt.Errorf("failed to apply schema version %d: %w", v+1, err)
		}
	}
	return nil
}

// schemaVersion returns 0 for a database that has never been initialized.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func migrate(ctx context.Context, db *sql.DB, version int, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, version); err != nil {
		return err
	}
	return tx.Commit()
}

// ValidateIntegrity runs PRAGMA integrity_check on the database.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			return fmt.Errorf("integrity_check failed: %s", result)
		}
	}
	return rows.Err()
}
