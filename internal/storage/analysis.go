package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// SaveAnalysisResult upserts the decision record for one identity in
// one batch. Re-running analysis overwrites the previous decision.
func (s *SQLiteStorage) SaveAnalysisResult(ctx context.Context, result *model.AnalysisResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAnalysisResult(result); err != nil {
		return err
	}
	return s.saveAnalysisResultTx(ctx, s.db, result)
}

func (s *SQLiteStorage) saveAnalysisResultTx(ctx context.Context, q dbtx, result *model.AnalysisResult) error {
	discrepancies := "{}"
	if len(result.Discrepancies) > 0 {
		encoded, err := json.Marshal(result.Discrepancies)
		if err != nil {
			return fmt.Errorf("failed to encode discrepancies: %w", err)
		}
		discrepancies = string(encoded)
	}

	query := `INSERT INTO analysis_results (batch_id, identity_hash, class_name,
		description, priznak, confidence_score, discrepancies, status, analyzed_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id, identity_hash) DO UPDATE SET
			priznak = excluded.priznak,
			confidence_score = excluded.confidence_score,
			discrepancies = excluded.discrepancies,
			status = excluded.status,
			analyzed_by = excluded.analyzed_by,
			updated_at = CURRENT_TIMESTAMP`

	res, err := q.ExecContext(ctx, query,
		result.BatchID,
		result.Identity.Hash(),
		result.Identity.ClassName,
		result.Identity.Description,
		nullPriznak(result.Priznak),
		result.ConfidenceScore,
		discrepancies,
		string(result.Status),
		result.AnalyzedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis result for %s: %w", result.Identity, err)
	}

	if id, err := res.LastInsertId(); err == nil && id > 0 {
		result.ID = id
	}
	return nil
}

// GetAnalysisResultsByBatch returns all decisions of one batch.
func (s *SQLiteStorage) GetAnalysisResultsByBatch(ctx context.Context, batchID string) ([]model.AnalysisResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}
	return s.getAnalysisResultsByBatchTx(ctx, s.db, batchID)
}

func (s *SQLiteStorage) getAnalysisResultsByBatchTx(ctx context.Context, q dbtx, batchID string) ([]model.AnalysisResult, error) {
	query := `SELECT id, batch_id, class_name, description, priznak,
			confidence_score, discrepancies, status, analyzed_by,
			created_at, updated_at
		FROM analysis_results
		WHERE batch_id = ?
		ORDER BY class_name, description`

	rows, err := q.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis results for batch %s: %w", batchID, err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.AnalysisResult
	for rows.Next() {
		var (
			r             model.AnalysisResult
			priznak       sql.NullString
			discrepancies string
		)
		err := rows.Scan(&r.ID, &r.BatchID, &r.Identity.ClassName, &r.Identity.Description,
			&priznak, &r.ConfidenceScore, &discrepancies, &r.Status, &r.AnalyzedBy,
			&r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis result: %w", err)
		}
		if priznak.Valid && priznak.String != "" {
			p := model.Priznak(priznak.String)
			r.Priznak = &p
		}
		if discrepancies != "" && discrepancies != "{}" {
			if err := json.Unmarshal([]byte(discrepancies), &r.Discrepancies); err != nil {
				return nil, fmt.Errorf("failed to decode discrepancies for %s: %w", r.Identity, err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ConfirmAnalysisResult marks an analyzed decision as operator-confirmed.
func (s *SQLiteStorage) ConfirmAnalysisResult(ctx context.Context, id int64, analyzedBy string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.confirmAnalysisResultTx(ctx, s.db, id, analyzedBy)
}

func (s *SQLiteStorage) confirmAnalysisResultTx(ctx context.Context, q dbtx, id int64, analyzedBy string) error {
	query := `UPDATE analysis_results
		SET status = ?, analyzed_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	result, err := q.ExecContext(ctx, query, string(model.AnalysisConfirmed), analyzedBy, id)
	if err != nil {
		return fmt.Errorf("failed to confirm analysis result %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check analysis confirmation: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("analysis result %d: %w", id, common.ErrNotFound)
	}
	return nil
}
