package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
	"github.com/koren85/mstopostgres-sub000/internal/service"
)

const recordColumns = `id, class_name, description, source_system, batch_id,
	parent_class, created_by, table_map, object_count, priznak,
	confidence_score, classified_by, created_at`

// SaveRecords stores a batch of class records.
func (s *SQLiteStorage) SaveRecords(ctx context.Context, records []model.ClassRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}
	return s.saveRecordsTx(ctx, s.db, records)
}

func (s *SQLiteStorage) saveRecordsTx(ctx context.Context, q dbtx, records []model.ClassRecord) error {
	query := `INSERT INTO class_records (class_name, description, identity_hash,
		source_system, batch_id, parent_class, created_by, table_map,
		object_count, priznak, confidence_score, classified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i := range records {
		r := &records[i]
		result, err := q.ExecContext(ctx, query,
			r.ClassName,
			r.Description,
			r.Identity().Hash(),
			r.SourceSystem,
			r.BatchID,
			r.ParentClass,
			r.CreatedBy,
			r.TableMap,
			r.ObjectCount,
			nullPriznak(r.Priznak),
			r.ConfidenceScore,
			nullClassifiedBy(r.ClassifiedBy),
		)
		if err != nil {
			return fmt.Errorf("failed to save record %q: %w", r.ClassName, err)
		}
		if id, err := result.LastInsertId(); err == nil {
			r.ID = id
		}
	}

	return nil
}

// GetRecordByID fetches a single record.
func (s *SQLiteStorage) GetRecordByID(ctx context.Context, id int64) (*model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRecordByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getRecordByIDTx(ctx context.Context, q dbtx, id int64) (*model.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records WHERE id = ?", recordColumns)

	record, err := scanRecord(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	return record, nil
}

// GetRecordsByBatch returns all records of one upload batch.
func (s *SQLiteStorage) GetRecordsByBatch(ctx context.Context, batchID string) ([]model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}
	return s.getRecordsByBatchTx(ctx, s.db, batchID)
}

func (s *SQLiteStorage) getRecordsByBatchTx(ctx context.Context, q dbtx, batchID string) ([]model.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records WHERE batch_id = ? ORDER BY id", recordColumns)

	rows, err := q.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch %s: %w", batchID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// GetAllRecords returns every stored record.
func (s *SQLiteStorage) GetAllRecords(ctx context.Context) ([]model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getAllRecordsTx(ctx, s.db)
}

func (s *SQLiteStorage) getAllRecordsTx(ctx context.Context, q dbtx) ([]model.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records ORDER BY id", recordColumns)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// FindByIdentity returns records sharing the given identity, optionally
// excluding one batch. Used by historical matching, where a record must
// never vote for itself.
func (s *SQLiteStorage) FindByIdentity(ctx context.Context, className, description, excludeBatchID string) ([]model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.findByIdentityTx(ctx, s.db, className, description, excludeBatchID)
}

func (s *SQLiteStorage) findByIdentityTx(ctx context.Context, q dbtx, className, description, excludeBatchID string) ([]model.ClassRecord, error) {
	hash := model.ClassIdentity{ClassName: className, Description: description}.Hash()

	query := fmt.Sprintf("SELECT %s FROM class_records WHERE identity_hash = ?", recordColumns)
	args := []any{hash}
	if excludeBatchID != "" {
		query += " AND batch_id != ?"
		args = append(args, excludeBatchID)
	}
	query += " ORDER BY id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query identity %s: %w", className, err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// FindAllWithPriznak returns every record that carries a disposition.
func (s *SQLiteStorage) FindAllWithPriznak(ctx context.Context) ([]model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.findAllWithPriznakTx(ctx, s.db)
}

func (s *SQLiteStorage) findAllWithPriznakTx(ctx context.Context, q dbtx) ([]model.ClassRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM class_records WHERE priznak IS NOT NULL AND priznak != '' ORDER BY id", recordColumns)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query classified records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// SaveClassification writes a classification decision onto a record.
// An unclassified decision clears the record's disposition.
func (s *SQLiteStorage) SaveClassification(ctx context.Context, recordID int64, c model.Classification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassification(c); err != nil {
		return err
	}
	return s.saveClassificationTx(ctx, s.db, recordID, c)
}

func (s *SQLiteStorage) saveClassificationTx(ctx context.Context, q dbtx, recordID int64, c model.Classification) error {
	query := `UPDATE class_records
		SET priznak = ?, confidence_score = ?, classified_by = ?
		WHERE id = ?`

	var origin any
	if c.Classified() {
		origin = string(c.Origin())
	}

	result, err := q.ExecContext(ctx, query, nullPriznak(c.Priznak), c.Confidence, origin, recordID)
	if err != nil {
		return fmt.Errorf("failed to save classification for record %d: %w", recordID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check classification update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %d: %w", recordID, common.ErrNotFound)
	}

	return nil
}

// UpdatePriznakByBatch assigns one disposition to every record of a
// batch. Returns the number of records updated.
func (s *SQLiteStorage) UpdatePriznakByBatch(ctx context.Context, batchID string, priznak model.Priznak, origin model.ClassifiedBy) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return 0, err
	}
	return s.updatePriznakByBatchTx(ctx, s.db, batchID, priznak, origin)
}

func (s *SQLiteStorage) updatePriznakByBatchTx(ctx context.Context, q dbtx, batchID string, priznak model.Priznak, origin model.ClassifiedBy) (int64, error) {
	query := `UPDATE class_records
		SET priznak = ?, confidence_score = 1.0, classified_by = ?
		WHERE batch_id = ?`

	result, err := q.ExecContext(ctx, query, string(priznak), string(origin), batchID)
	if err != nil {
		return 0, fmt.Errorf("failed to update batch %s: %w", batchID, err)
	}
	return result.RowsAffected()
}

// UpdatePriznakByIdentity assigns one disposition to every record of a
// class identity across all batches. Returns the number updated.
func (s *SQLiteStorage) UpdatePriznakByIdentity(ctx context.Context, identity model.ClassIdentity, priznak model.Priznak, origin model.ClassifiedBy) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.updatePriznakByIdentityTx(ctx, s.db, identity, priznak, origin)
}

func (s *SQLiteStorage) updatePriznakByIdentityTx(ctx context.Context, q dbtx, identity model.ClassIdentity, priznak model.Priznak, origin model.ClassifiedBy) (int64, error) {
	query := `UPDATE class_records
		SET priznak = ?, confidence_score = 1.0, classified_by = ?
		WHERE identity_hash = ?`

	result, err := q.ExecContext(ctx, query, string(priznak), string(origin), identity.Hash())
	if err != nil {
		return 0, fmt.Errorf("failed to update identity %s: %w", identity, err)
	}
	return result.RowsAffected()
}

// DeleteBatch removes a batch and its analysis results.
func (s *SQLiteStorage) DeleteBatch(ctx context.Context, batchID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return err
	}
	return s.deleteBatchTx(ctx, s.db, batchID)
}

func (s *SQLiteStorage) deleteBatchTx(ctx context.Context, q dbtx, batchID string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM class_records WHERE batch_id = ?", batchID)
	if err != nil {
		return fmt.Errorf("failed to delete batch %s: %w", batchID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check batch deletion: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %s: %w", batchID, common.ErrNotFound)
	}

	if _, err := q.ExecContext(ctx, "DELETE FROM analysis_results WHERE batch_id = ?", batchID); err != nil {
		return fmt.Errorf("failed to delete analysis results for batch %s: %w", batchID, err)
	}

	return nil
}

// ListBatches summarizes the stored upload batches, newest first.
func (s *SQLiteStorage) ListBatches(ctx context.Context) ([]service.BatchInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listBatchesTx(ctx, s.db)
}

func (s *SQLiteStorage) listBatchesTx(ctx context.Context, q dbtx) ([]service.BatchInfo, error) {
	query := `SELECT batch_id, MIN(source_system), MIN(created_at), COUNT(*),
			SUM(CASE WHEN priznak IS NOT NULL AND priznak != '' THEN 1 ELSE 0 END)
		FROM class_records
		GROUP BY batch_id
		ORDER BY MIN(created_at) DESC`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []service.BatchInfo
	for rows.Next() {
		var b service.BatchInfo
		if err := rows.Scan(&b.BatchID, &b.SourceSystem, &b.CreatedAt, &b.RecordCount, &b.ClassifiedCount); err != nil {
			return nil, fmt.Errorf("failed to scan batch info: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// rowScanner lets scanRecord work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.ClassRecord, error) {
	var (
		r            model.ClassRecord
		priznak      sql.NullString
		classifiedBy sql.NullString
	)

	err := row.Scan(
		&r.ID,
		&r.ClassName,
		&r.Description,
		&r.SourceSystem,
		&r.BatchID,
		&r.ParentClass,
		&r.CreatedBy,
		&r.TableMap,
		&r.ObjectCount,
		&priznak,
		&r.ConfidenceScore,
		&classifiedBy,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if priznak.Valid && priznak.String != "" {
		p := model.Priznak(priznak.String)
		r.Priznak = &p
	}
	if classifiedBy.Valid && classifiedBy.String != "" {
		cb := model.ClassifiedBy(classifiedBy.String)
		r.ClassifiedBy = &cb
	}

	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]model.ClassRecord, error) {
	var records []model.ClassRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func nullPriznak(p *model.Priznak) any {
	if p == nil || *p == "" {
		return nil
	}
	return string(*p)
}

func nullClassifiedBy(cb *model.ClassifiedBy) any {
	if cb == nil || *cb == "" {
		return nil
	}
	return string(*cb)
}
