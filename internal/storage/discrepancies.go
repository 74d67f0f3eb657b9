package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// SaveDiscrepancy upserts a discrepancy keyed by class identity.
// Re-detecting an unchanged conflict refreshes the observed values but
// never duplicates the row or clears a resolution.
func (s *SQLiteStorage) SaveDiscrepancy(ctx context.Context, d *model.Discrepancy) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDiscrepancy(d); err != nil {
		return err
	}
	return s.saveDiscrepancyTx(ctx, s.db, d)
}

func (s *SQLiteStorage) saveDiscrepancyTx(ctx context.Context, q dbtx, d *model.Discrepancy) error {
	priznaks, err := json.Marshal(d.Priznaks)
	if err != nil {
		return fmt.Errorf("failed to encode priznaks: %w", err)
	}
	sources, err := json.Marshal(d.SourceSystems)
	if err != nil {
		return fmt.Errorf("failed to encode source systems: %w", err)
	}

	query := `INSERT INTO discrepancies (identity_hash, class_name, description, priznaks, source_systems)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identity_hash) DO UPDATE SET
			priznaks = excluded.priznaks,
			source_systems = excluded.source_systems`

	result, err := q.ExecContext(ctx, query,
		d.Identity.Hash(),
		d.Identity.ClassName,
		d.Identity.Description,
		string(priznaks),
		string(sources),
	)
	if err != nil {
		return fmt.Errorf("failed to save discrepancy for %s: %w", d.Identity, err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		d.ID = id
	}
	return nil
}

// GetOpenDiscrepancies returns unresolved discrepancies ordered by
// class name.
func (s *SQLiteStorage) GetOpenDiscrepancies(ctx context.Context) ([]model.Discrepancy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getOpenDiscrepanciesTx(ctx, s.db)
}

func (s *SQLiteStorage) getOpenDiscrepanciesTx(ctx context.Context, q dbtx) ([]model.Discrepancy, error) {
	query := `SELECT id, class_name, description, priznaks, source_systems,
			resolved, resolution_note, created_at
		FROM discrepancies
		WHERE resolved = 0
		ORDER BY class_name, description`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query discrepancies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var discrepancies []model.Discrepancy
	for rows.Next() {
		var (
			d        model.Discrepancy
			priznaks string
			sources  string
		)
		err := rows.Scan(&d.ID, &d.Identity.ClassName, &d.Identity.Description,
			&priznaks, &sources, &d.Resolved, &d.ResolutionNote, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discrepancy: %w", err)
		}
		if err := json.Unmarshal([]byte(priznaks), &d.Priznaks); err != nil {
			return nil, fmt.Errorf("failed to decode priznaks for %s: %w", d.Identity, err)
		}
		if err := json.Unmarshal([]byte(sources), &d.SourceSystems); err != nil {
			return nil, fmt.Errorf("failed to decode source systems for %s: %w", d.Identity, err)
		}
		discrepancies = append(discrepancies, d)
	}
	return discrepancies, rows.Err()
}

// ResolveDiscrepancy marks a discrepancy resolved with an operator note.
func (s *SQLiteStorage) ResolveDiscrepancy(ctx context.Context, id int64, note string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.resolveDiscrepancyTx(ctx, s.db, id, note)
}

func (s *SQLiteStorage) resolveDiscrepancyTx(ctx context.Context, q dbtx, id int64, note string) error {
	query := `UPDATE discrepancies
		SET resolved = 1, resolution_note = ?
		WHERE id = ?`

	result, err := q.ExecContext(ctx, query, note, id)
	if err != nil {
		return fmt.Errorf("failed to resolve discrepancy %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check discrepancy resolution: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("discrepancy %d: %w", id, common.ErrNotFound)
	}
	return nil
}
