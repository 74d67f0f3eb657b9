// Package engine implements the core classification and reconciliation
// engine for migration class records.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/koren85/mstopostgres-sub000/internal/model"
	"github.com/koren85/mstopostgres-sub000/internal/service"
)

// priorityStep is the gap left between rule priorities so new rules can
// usually be inserted without renumbering.
const priorityStep = 10

// Engine orchestrates classification, historical matching and
// discrepancy detection over the record store.
type Engine struct {
	storage      service.Storage
	showProgress bool
}

// Config holds configuration options for the engine.
type Config struct {
	ShowProgress bool
}

// New creates a new engine with default configuration.
func New(storage service.Storage) *Engine {
	return NewWithConfig(storage, Config{})
}

// NewWithConfig creates a new engine with custom configuration.
func NewWithConfig(storage service.Storage, config Config) *Engine {
	return &Engine{
		storage:      storage,
		showProgress: config.ShowProgress,
	}
}

// Classify derives a classification decision for one record. Decision
// order: an already-set priznak is returned as-is (manual), then
// historical voting, then the rule set. The terminal "unclassifiable"
// state is a valid decision, never an error: store faults are logged
// and degrade to it so a bad record cannot abort a batch operation.
func (e *Engine) Classify(ctx context.Context, record *model.ClassRecord) model.Classification {
	// The short-circuit must hold even when the store is down.
	if record.HasPriznak() {
		return model.Classification{
			Priznak:    record.Priznak,
			Confidence: 1.0,
			Method:     model.MethodManual,
		}
	}

	rules, err := e.storage.GetRulesOrderedByPriority(ctx)
	if err != nil {
		slog.Error("Failed to load rules, record left unclassified",
			"class", record.ClassName, "error", err)
		return model.Classification{}
	}

	c, _, err := e.classifyRecord(ctx, record, rules)
	if err != nil {
		slog.Error("Classification degraded to unclassifiable",
			"class", record.ClassName, "error", err)
		return model.Classification{}
	}
	return c
}

// classifyRecord runs the decision chain with a preloaded rule set.
// The returned conflicts map holds conflicting-batch -> priznak when the
// historical vote was split. A non-nil error means a store fault; the
// caller counts it as failed rather than unclassifiable.
func (e *Engine) classifyRecord(ctx context.Context, record *model.ClassRecord, rules []model.TransferRule) (model.Classification, map[string]model.Priznak, error) {
	// Never re-derive an existing value.
	if record.HasPriznak() {
		return model.Classification{
			Priznak:    record.Priznak,
			Confidence: 1.0,
			Method:     model.MethodManual,
		}, nil, nil
	}

	history, err := e.storage.FindByIdentity(ctx, record.ClassName, record.Description, record.BatchID)
	if err != nil {
		return model.Classification{}, nil, fmt.Errorf("historical lookup failed: %w", err)
	}

	if outcome := MatchHistory(record, history); outcome.Matched {
		priznak := outcome.Priznak
		return model.Classification{
			Priznak:      &priznak,
			Confidence:   outcome.Confidence,
			Method:       model.MethodHistorical,
			HasConflicts: outcome.HasConflicts,
		}, outcome.Conflicts, nil
	}

	if outcome := ApplyClassificationRules(record, rules); outcome != nil && outcome.Priznak != nil {
		method := model.MethodTransferRule
		if outcome.Direct {
			method = model.MethodRule
		}
		ruleID := outcome.RuleID
		return model.Classification{
			Priznak:    outcome.Priznak,
			Confidence: outcome.Confidence,
			Method:     method,
			RuleID:     &ruleID,
		}, nil, nil
	}

	return model.Classification{}, nil, nil
}

// ClassifyBatch classifies every record of one upload batch. Records
// are independent; a store fault on one record is counted in the report
// and processing continues with the next.
func (e *Engine) ClassifyBatch(ctx context.Context, batchID string) ([]model.Classification, *service.BatchReport, error) {
	start := time.Now()

	records, err := e.storage.GetRecordsByBatch(ctx, batchID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	rules, err := e.storage.GetRulesOrderedByPriority(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}

	slog.Info("Starting batch classification",
		"batch_id", batchID,
		"records", len(records),
		"rules", len(rules))

	var bar *progressbar.ProgressBar
	if e.showProgress {
		bar = progressbar.Default(int64(len(records)), "classifying")
	}

	report := &service.BatchReport{
		BatchID:  batchID,
		ByMethod: make(map[model.ClassificationMethod]int),
	}
	classifications := make([]model.Classification, 0, len(records))

	for i := range records {
		if ctx.Err() != nil {
			return classifications, report, ctx.Err()
		}

		record := &records[i]
		c, conflicts, classifyErr := e.classifyRecord(ctx, record, rules)
		if classifyErr != nil {
			report.Failed++
			slog.Error("Record classification failed",
				"batch_id", batchID,
				"class", record.ClassName,
				"error", classifyErr)
			if bar != nil {
				_ = bar.Add(1)
			}
			continue
		}

		if c.Classified() && c.Method != model.MethodManual {
			if saveErr := e.storage.SaveClassification(ctx, record.ID, c); saveErr != nil {
				report.Failed++
				slog.Error("Failed to persist classification",
					"batch_id", batchID,
					"class", record.ClassName,
					"error", saveErr)
				if bar != nil {
					_ = bar.Add(1)
				}
				continue
			}
		}

		if saveErr := e.saveAnalysisResult(ctx, record, c, conflicts); saveErr != nil {
			slog.Warn("Failed to persist analysis result",
				"batch_id", batchID,
				"class", record.ClassName,
				"error", saveErr)
		}

		report.Processed++
		if c.Classified() {
			report.ByMethod[c.Method]++
		} else {
			report.Unclassifiable++
		}
		classifications = append(classifications, c)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	report.Duration = time.Since(start)

	slog.Info("Batch classification complete",
		"batch_id", batchID,
		"processed", report.Processed,
		"failed", report.Failed,
		"unclassifiable", report.Unclassifiable,
		"duration", report.Duration)

	return classifications, report, nil
}

func (e *Engine) saveAnalysisResult(ctx context.Context, record *model.ClassRecord, c model.Classification, conflicts map[string]model.Priznak) error {
	status := model.AnalysisPending
	if c.Classified() {
		status = model.AnalysisAnalyzed
	}

	return e.storage.SaveAnalysisResult(ctx, &model.AnalysisResult{
		BatchID:         record.BatchID,
		Identity:        record.Identity(),
		Priznak:         c.Priznak,
		ConfidenceScore: c.Confidence,
		Discrepancies:   conflicts,
		Status:          status,
		AnalyzedBy:      string(c.Method),
	})
}

// DetectDiscrepancies computes and persists conflicting-assignment
// events for one batch, or for the whole store when batchID is empty.
func (e *Engine) DetectDiscrepancies(ctx context.Context, batchID string) ([]model.Discrepancy, error) {
	var batchRecords []model.ClassRecord
	var err error

	if batchID == "" {
		batchRecords, err = e.storage.GetAllRecords(ctx)
	} else {
		batchRecords, err = e.storage.GetRecordsByBatch(ctx, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	allRecords, err := e.storage.FindAllWithPriznak(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical records: %w", err)
	}

	discrepancies := DetectDiscrepancies(batchRecords, allRecords)

	for i := range discrepancies {
		if saveErr := e.storage.SaveDiscrepancy(ctx, &discrepancies[i]); saveErr != nil {
			return discrepancies, fmt.Errorf("failed to persist discrepancy for %s: %w",
				discrepancies[i].Identity, saveErr)
		}
	}

	slog.Info("Discrepancy detection complete",
		"batch_id", batchID,
		"flagged", len(discrepancies))

	return discrepancies, nil
}

// ResolveInsertPriority computes a safe priority for a new rule so that
// catch-all (ALWAYS_TRUE) rules keep the numerically largest priorities.
// Inserting at the returned priority requires the renumber-then-insert
// step to run atomically; see Storage.InsertRuleAt.
func (e *Engine) ResolveInsertPriority(ctx context.Context, newRule *model.TransferRule) (int, error) {
	rules, err := e.storage.GetRulesOrderedByPriority(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load rules: %w", err)
	}

	maxPriority := 0
	catchAllMin := -1
	for i := range rules {
		if rules[i].Priority > maxPriority {
			maxPriority = rules[i].Priority
		}
		if rules[i].IsCatchAll() && (catchAllMin == -1 || rules[i].Priority < catchAllMin) {
			catchAllMin = rules[i].Priority
		}
	}

	if newRule.IsCatchAll() || catchAllMin == -1 {
		// Catch-alls go last; so does any rule when no catch-all exists yet.
		return maxPriority + priorityStep, nil
	}

	// Take the first catch-all's slot; the insert shifts catch-alls up.
	return catchAllMin, nil
}

// AddRule validates the rule, resolves its insertion priority and
// performs the atomic renumber-then-insert.
func (e *Engine) AddRule(ctx context.Context, rule *model.TransferRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	priority, err := e.ResolveInsertPriority(ctx, rule)
	if err != nil {
		return err
	}

	if err := e.storage.InsertRuleAt(ctx, rule, priority); err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	slog.Info("Rule added",
		"rule_id", rule.ID,
		"category", rule.Category,
		"priority", rule.Priority)

	return nil
}
