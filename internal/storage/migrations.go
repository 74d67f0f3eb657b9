package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the schema version this build requires.
// Bump it together with every new entry in migrations.
const ExpectedSchemaVersion = 4

// migration is one schema step. Statements run inside a single
// transaction together with the user_version bump.
type migration struct {
	description string
	statements  []string
	version     int
}

var migrations = []migration{
	{
		version:     1,
		description: "class records and transfer rules",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS class_records (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				class_name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				identity_hash TEXT NOT NULL,
				source_system TEXT NOT NULL DEFAULT '',
				batch_id TEXT NOT NULL,
				parent_class TEXT NOT NULL DEFAULT '',
				created_by TEXT NOT NULL DEFAULT '',
				table_map TEXT NOT NULL DEFAULT '',
				object_count INTEGER NOT NULL DEFAULT 0,
				priznak TEXT,
				confidence_score REAL NOT NULL DEFAULT 0,
				classified_by TEXT,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_class_records_batch ON class_records(batch_id)`,
			`CREATE INDEX IF NOT EXISTS idx_class_records_identity ON class_records(identity_hash)`,
			`CREATE TABLE IF NOT EXISTS transfer_rules (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				category TEXT NOT NULL,
				condition_type TEXT NOT NULL,
				condition_field TEXT NOT NULL DEFAULT '',
				condition_value TEXT NOT NULL DEFAULT '',
				transfer_action TEXT NOT NULL DEFAULT '',
				priznak_value TEXT,
				priority INTEGER NOT NULL DEFAULT 0,
				is_active INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transfer_rules_priority ON transfer_rules(priority, id)`,
		},
	},
	{
		version:     2,
		description: "discrepancies and analysis results",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS discrepancies (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				identity_hash TEXT NOT NULL,
				class_name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				priznaks TEXT NOT NULL,
				source_systems TEXT NOT NULL,
				resolved INTEGER NOT NULL DEFAULT 0,
				resolution_note TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_discrepancies_identity ON discrepancies(identity_hash)`,
			`CREATE TABLE IF NOT EXISTS analysis_results (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				batch_id TEXT NOT NULL,
				identity_hash TEXT NOT NULL,
				class_name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				priznak TEXT,
				confidence_score REAL NOT NULL DEFAULT 0,
				discrepancies TEXT NOT NULL DEFAULT '{}',
				status TEXT NOT NULL DEFAULT 'pending',
				analyzed_by TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_analysis_results_batch_identity ON analysis_results(batch_id, identity_hash)`,
		},
	},
	{
		version:     3,
		description: "seed baseline transfer rules",
		statements: []string{
			`INSERT INTO transfer_rules (category, condition_type, condition_field, condition_value, transfer_action, priority, is_active)
				SELECT 'Системные классы', 'STARTS_WITH', 'MSSQL_SXCLASS_NAME', 'SX', 'Transfer', 50, 1
				WHERE NOT EXISTS (SELECT 1 FROM transfer_rules)`,
			`INSERT INTO transfer_rules (category, condition_type, condition_field, condition_value, transfer_action, priority, is_active)
				SELECT 'Без маппинга', 'IS_EMPTY', 'MSSQL_SXCLASS_MAP', '', 'Transfer', 100, 1
				WHERE (SELECT COUNT(*) FROM transfer_rules) = 1`,
			`INSERT INTO transfer_rules (category, condition_type, condition_field, condition_value, transfer_action, priority, is_active)
				SELECT 'Прочее', 'ALWAYS_TRUE', '', '', 'DoNotTransfer', 999, 1
				WHERE (SELECT COUNT(*) FROM transfer_rules) = 2`,
		},
	},
	{
		version:     4,
		description: "classified record and open discrepancy indexes",
		statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_class_records_priznak ON class_records(priznak) WHERE priznak IS NOT NULL`,
			`CREATE INDEX IF NOT EXISTS idx_discrepancies_open ON discrepancies(resolved) WHERE resolved = 0`,
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	if current > ExpectedSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than expected %d; upgrade the binary", current, ExpectedSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		slog.Info("applying migration", "version", m.version, "description", m.description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}

		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
		}

		// PRAGMA does not accept bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

// schemaVersion reads the current PRAGMA user_version.
func (s *SQLiteStorage) schemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
