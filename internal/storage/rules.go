package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// priorityShift is how far colliding rules move when a new rule is
// inserted at an occupied priority.
const priorityShift = 10

const ruleColumns = `id, category, condition_type, condition_field, condition_value,
	transfer_action, priznak_value, priority, is_active, created_at, updated_at`

// GetRulesOrderedByPriority returns all rules in evaluation order:
// priority ascending, then ID ascending.
func (s *SQLiteStorage) GetRulesOrderedByPriority(ctx context.Context) ([]model.TransferRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRulesOrderedByPriorityTx(ctx, s.db)
}

func (s *SQLiteStorage) getRulesOrderedByPriorityTx(ctx context.Context, q dbtx) ([]model.TransferRule, error) {
	query := fmt.Sprintf("SELECT %s FROM transfer_rules ORDER BY priority, id", ruleColumns)

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.TransferRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// GetRuleByID fetches a single rule.
func (s *SQLiteStorage) GetRuleByID(ctx context.Context, id int64) (*model.TransferRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getRuleByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getRuleByIDTx(ctx context.Context, q dbtx, id int64) (*model.TransferRule, error) {
	query := fmt.Sprintf("SELECT %s FROM transfer_rules WHERE id = ?", ruleColumns)

	rule, err := scanRule(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule %d: %w", id, err)
	}
	return rule, nil
}

// CreateRule stores a new rule at its current priority.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.TransferRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.createRuleTx(ctx, s.db, rule)
}

func (s *SQLiteStorage) createRuleTx(ctx context.Context, q dbtx, rule *model.TransferRule) error {
	query := `INSERT INTO transfer_rules (category, condition_type, condition_field,
		condition_value, transfer_action, priznak_value, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := q.ExecContext(ctx, query,
		rule.Category,
		string(rule.ConditionType),
		rule.ConditionField,
		rule.ConditionValue,
		rule.TransferAction,
		nullPriznak(rule.PriznakValue),
		rule.Priority,
		rule.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		rule.ID = id
	}
	return nil
}

// UpdateRule rewrites an existing rule.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.TransferRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.updateRuleTx(ctx, s.db, rule)
}

func (s *SQLiteStorage) updateRuleTx(ctx context.Context, q dbtx, rule *model.TransferRule) error {
	query := `UPDATE transfer_rules
		SET category = ?, condition_type = ?, condition_field = ?,
			condition_value = ?, transfer_action = ?, priznak_value = ?,
			priority = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	result, err := q.ExecContext(ctx, query,
		rule.Category,
		string(rule.ConditionType),
		rule.ConditionField,
		rule.ConditionValue,
		rule.TransferAction,
		nullPriznak(rule.PriznakValue),
		rule.Priority,
		rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule %d: %w", rule.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rule update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", rule.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteRule removes a rule.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.deleteRuleTx(ctx, s.db, id)
}

func (s *SQLiteStorage) deleteRuleTx(ctx context.Context, q dbtx, id int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM transfer_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rule deletion: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// RenumberRulePriorities shifts every rule at or above minPriority by
// delta, preserving their relative order.
func (s *SQLiteStorage) RenumberRulePriorities(ctx context.Context, minPriority, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.renumberRulePrioritiesTx(ctx, s.db, minPriority, delta)
}

func (s *SQLiteStorage) renumberRulePrioritiesTx(ctx context.Context, q dbtx, minPriority, delta int) error {
	query := `UPDATE transfer_rules
		SET priority = priority + ?, updated_at = CURRENT_TIMESTAMP
		WHERE priority >= ?`

	if _, err := q.ExecContext(ctx, query, delta, minPriority); err != nil {
		return fmt.Errorf("failed to renumber rule priorities: %w", err)
	}
	return nil
}

// InsertRuleAt inserts a rule at the given priority, shifting any rules
// at or above it out of the way first. Both steps run in one
// transaction so a failure leaves the rule set untouched.
func (s *SQLiteStorage) InsertRuleAt(ctx context.Context, rule *model.TransferRule, priority int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin rule insertion: %w", err)
	}

	if err := s.renumberRulePrioritiesTx(ctx, tx, priority, priorityShift); err != nil {
		_ = tx.Rollback()
		return err
	}

	rule.Priority = priority
	if err := s.createRuleTx(ctx, tx, rule); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule insertion: %w", err)
	}
	return nil
}

func scanRule(row rowScanner) (*model.TransferRule, error) {
	var (
		r            model.TransferRule
		priznakValue sql.NullString
	)

	err := row.Scan(
		&r.ID,
		&r.Category,
		&r.ConditionType,
		&r.ConditionField,
		&r.ConditionValue,
		&r.TransferAction,
		&priznakValue,
		&r.Priority,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if priznakValue.Valid && priznakValue.String != "" {
		p := model.Priznak(priznakValue.String)
		r.PriznakValue = &p
	}

	return &r, nil
}
