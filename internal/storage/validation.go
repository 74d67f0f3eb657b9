package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// validateContext ensures the context is usable for database operations.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return nil
}

// validateString ensures a required string parameter is not empty.
func validateString(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// validateRecords checks a batch of records before insertion. Records
// with an empty class name are data errors the caller must fix; they
// are rejected up front so a partial batch never lands.
func validateRecords(records []model.ClassRecord) error {
	if len(records) == 0 {
		return common.ErrNoRecords
	}
	for i := range records {
		if strings.TrimSpace(records[i].ClassName) == "" {
			return fmt.Errorf("record %d: class name cannot be empty", i)
		}
		if strings.TrimSpace(records[i].BatchID) == "" {
			return fmt.Errorf("record %d: batch ID cannot be empty", i)
		}
	}
	return nil
}

// validateRule checks a rule before it is stored.
func validateRule(rule *model.TransferRule) error {
	if rule == nil {
		return fmt.Errorf("rule cannot be nil")
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedRule, err)
	}
	if rule.Priority < 0 {
		return fmt.Errorf("%w: priority cannot be negative", common.ErrMalformedRule)
	}
	return nil
}

// validateClassification checks a classification decision before it is
// written onto a record. An unclassified decision is valid input; the
// store clears the record's priznak in that case.
func validateClassification(c model.Classification) error {
	if c.Classified() && c.Method == "" {
		return fmt.Errorf("classification with a priznak must carry a method")
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %f", c.Confidence)
	}
	return nil
}

// validateDiscrepancy checks a discrepancy before it is stored.
func validateDiscrepancy(d *model.Discrepancy) error {
	if d == nil {
		return fmt.Errorf("discrepancy cannot be nil")
	}
	if strings.TrimSpace(d.Identity.ClassName) == "" {
		return fmt.Errorf("discrepancy identity cannot be empty")
	}
	if len(d.Priznaks) < 2 {
		return fmt.Errorf("discrepancy must carry at least two distinct priznaks, got %d", len(d.Priznaks))
	}
	return nil
}

// validateAnalysisResult checks an analysis result before it is stored.
func validateAnalysisResult(result *model.AnalysisResult) error {
	if result == nil {
		return fmt.Errorf("analysis result cannot be nil")
	}
	if strings.TrimSpace(result.BatchID) == "" {
		return fmt.Errorf("analysis result batch ID cannot be empty")
	}
	if strings.TrimSpace(result.Identity.ClassName) == "" {
		return fmt.Errorf("analysis result identity cannot be empty")
	}
	if result.Status == "" {
		return fmt.Errorf("analysis result status cannot be empty")
	}
	return nil
}
