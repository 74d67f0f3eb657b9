// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// BatchInfo summarizes one upload batch.
type BatchInfo struct {
	CreatedAt       time.Time
	BatchID         string
	SourceSystem    string
	RecordCount     int
	ClassifiedCount int
}

// BatchReport aggregates the outcome of a batch classification run.
// One bad record never aborts the batch; it is counted here instead.
type BatchReport struct {
	ByMethod       map[model.ClassificationMethod]int
	BatchID        string
	Processed      int
	Failed         int
	Unclassifiable int
	Duration       time.Duration
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Record operations
	SaveRecords(ctx context.Context, records []model.ClassRecord) error
	GetRecordByID(ctx context.Context, id int64) (*model.ClassRecord, error)
	GetRecordsByBatch(ctx context.Context, batchID string) ([]model.ClassRecord, error)
	GetAllRecords(ctx context.Context) ([]model.ClassRecord, error)
	FindByIdentity(ctx context.Context, className, description, excludeBatchID string) ([]model.ClassRecord, error)
	FindAllWithPriznak(ctx context.Context) ([]model.ClassRecord, error)
	SaveClassification(ctx context.Context, recordID int64, c model.Classification) error
	UpdatePriznakByBatch(ctx context.Context, batchID string, priznak model.Priznak, origin model.ClassifiedBy) (int64, error)
	UpdatePriznakByIdentity(ctx context.Context, identity model.ClassIdentity, priznak model.Priznak, origin model.ClassifiedBy) (int64, error)
	DeleteBatch(ctx context.Context, batchID string) error
	ListBatches(ctx context.Context) ([]BatchInfo, error)

	// Rule operations
	GetRulesOrderedByPriority(ctx context.Context) ([]model.TransferRule, error)
	GetRuleByID(ctx context.Context, id int64) (*model.TransferRule, error)
	CreateRule(ctx context.Context, rule *model.TransferRule) error
	UpdateRule(ctx context.Context, rule *model.TransferRule) error
	DeleteRule(ctx context.Context, id int64) error
	RenumberRulePriorities(ctx context.Context, minPriority, delta int) error
	InsertRuleAt(ctx context.Context, rule *model.TransferRule, priority int) error

	// Discrepancy operations
	SaveDiscrepancy(ctx context.Context, d *model.Discrepancy) error
	GetOpenDiscrepancies(ctx context.Context) ([]model.Discrepancy, error)
	ResolveDiscrepancy(ctx context.Context, id int64, note string) error

	// Analysis result operations
	SaveAnalysisResult(ctx context.Context, result *model.AnalysisResult) error
	GetAnalysisResultsByBatch(ctx context.Context, batchID string) ([]model.AnalysisResult, error)
	ConfirmAnalysisResult(ctx context.Context, id int64, analyzedBy string) error

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
