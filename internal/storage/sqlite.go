package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/koren85/mstopostgres-sub000/internal/model"
	"github.com/koren85/mstopostgres-sub000/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// dbtx is the query surface shared by *sql.DB and *sql.Tx, so every
// statement is written once and runs both standalone and inside a
// transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return &sqliteTransaction{
		tx:      tx,
		storage: s,
	}, nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTransaction) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Record operations delegate to the shared implementations with the
// transaction as the query target.

func (t *sqliteTransaction) SaveRecords(ctx context.Context, records []model.ClassRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}
	return t.storage.saveRecordsTx(ctx, t.tx, records)
}

func (t *sqliteTransaction) GetRecordByID(ctx context.Context, id int64) (*model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getRecordByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) GetRecordsByBatch(ctx context.Context, batchID string) ([]model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}
	return t.storage.getRecordsByBatchTx(ctx, t.tx, batchID)
}

func (t *sqliteTransaction) GetAllRecords(ctx context.Context) ([]model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getAllRecordsTx(ctx, t.tx)
}

func (t *sqliteTransaction) FindByIdentity(ctx context.Context, className, description, excludeBatchID string) ([]model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.findByIdentityTx(ctx, t.tx, className, description, excludeBatchID)
}

func (t *sqliteTransaction) FindAllWithPriznak(ctx context.Context) ([]model.ClassRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.findAllWithPriznakTx(ctx, t.tx)
}

func (t *sqliteTransaction) SaveClassification(ctx context.Context, recordID int64, c model.Classification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClassification(c); err != nil {
		return err
	}
	return t.storage.saveClassificationTx(ctx, t.tx, recordID, c)
}

func (t *sqliteTransaction) UpdatePriznakByBatch(ctx context.Context, batchID string, priznak model.Priznak, origin model.ClassifiedBy) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return 0, err
	}
	return t.storage.updatePriznakByBatchTx(ctx, t.tx, batchID, priznak, origin)
}

func (t *sqliteTransaction) UpdatePriznakByIdentity(ctx context.Context, identity model.ClassIdentity, priznak model.Priznak, origin model.ClassifiedBy) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return t.storage.updatePriznakByIdentityTx(ctx, t.tx, identity, priznak, origin)
}

func (t *sqliteTransaction) DeleteBatch(ctx context.Context, batchID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return err
	}
	return t.storage.deleteBatchTx(ctx, t.tx, batchID)
}

func (t *sqliteTransaction) ListBatches(ctx context.Context) ([]service.BatchInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.listBatchesTx(ctx, t.tx)
}

// Rule operations.

func (t *sqliteTransaction) GetRulesOrderedByPriority(ctx context.Context) ([]model.TransferRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getRulesOrderedByPriorityTx(ctx, t.tx)
}

func (t *sqliteTransaction) GetRuleByID(ctx context.Context, id int64) (*model.TransferRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getRuleByIDTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) CreateRule(ctx context.Context, rule *model.TransferRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return t.storage.createRuleTx(ctx, t.tx, rule)
}

func (t *sqliteTransaction) UpdateRule(ctx context.Context, rule *model.TransferRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return t.storage.updateRuleTx(ctx, t.tx, rule)
}

func (t *sqliteTransaction) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.deleteRuleTx(ctx, t.tx, id)
}

func (t *sqliteTransaction) RenumberRulePriorities(ctx context.Context, minPriority, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.renumberRulePrioritiesTx(ctx, t.tx, minPriority, delta)
}

func (t *sqliteTransaction) InsertRuleAt(ctx context.Context, rule *model.TransferRule, priority int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	// Already inside a transaction; run the renumber-then-insert steps directly.
	if err := t.storage.renumberRulePrioritiesTx(ctx, t.tx, priority, priorityShift); err != nil {
		return err
	}
	rule.Priority = priority
	return t.storage.createRuleTx(ctx, t.tx, rule)
}

// Discrepancy operations.

func (t *sqliteTransaction) SaveDiscrepancy(ctx context.Context, d *model.Discrepancy) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDiscrepancy(d); err != nil {
		return err
	}
	return t.storage.saveDiscrepancyTx(ctx, t.tx, d)
}

func (t *sqliteTransaction) GetOpenDiscrepancies(ctx context.Context) ([]model.Discrepancy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return t.storage.getOpenDiscrepanciesTx(ctx, t.tx)
}

func (t *sqliteTransaction) ResolveDiscrepancy(ctx context.Context, id int64, note string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.resolveDiscrepancyTx(ctx, t.tx, id, note)
}

// Analysis result operations.

func (t *sqliteTransaction) SaveAnalysisResult(ctx context.Context, result *model.AnalysisResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAnalysisResult(result); err != nil {
		return err
	}
	return t.storage.saveAnalysisResultTx(ctx, t.tx, result)
}

func (t *sqliteTransaction) GetAnalysisResultsByBatch(ctx context.Context, batchID string) ([]model.AnalysisResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}
	return t.storage.getAnalysisResultsByBatchTx(ctx, t.tx, batchID)
}

func (t *sqliteTransaction) ConfirmAnalysisResult(ctx context.Context, id int64, analyzedBy string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return t.storage.confirmAnalysisResultTx(ctx, t.tx, id, analyzedBy)
}

func (t *sqliteTransaction) Migrate(_ context.Context) error {
	// Migrations should not be run within a transaction
	return fmt.Errorf("migrations cannot be run within a transaction")
}

func (t *sqliteTransaction) BeginTx(_ context.Context) (service.Transaction, error) {
	// Nested transactions not supported
	return nil, fmt.Errorf("nested transactions not supported")
}

func (t *sqliteTransaction) Close() error {
	// Transactions should be committed or rolled back, not closed
	return fmt.Errorf("transactions must be committed or rolled back, not closed")
}
