package model

import (
	"fmt"
	"strings"
	"time"
)

// ConditionType selects the matching semantics of a transfer rule.
type ConditionType string

// Condition type constants.
const (
	ConditionExactEquals ConditionType = "EXACT_EQUALS"
	ConditionStartsWith  ConditionType = "STARTS_WITH"
	ConditionContains    ConditionType = "CONTAINS"
	ConditionIsEmpty     ConditionType = "IS_EMPTY"
	ConditionAlwaysTrue  ConditionType = "ALWAYS_TRUE"
)

// Transfer action labels. Legacy rule exports also carry the Russian
// disposition labels directly; PriznakForAction accepts both.
const (
	ActionTransfer      = "Transfer"
	ActionTransferBatch = "TransferBatch"
	ActionDoNotTransfer = "DoNotTransfer"
)

var actionPriznaks = map[string]Priznak{
	ActionTransfer:               PriznakTransfer,
	ActionTransferBatch:          PriznakTransferBatch,
	ActionDoNotTransfer:          PriznakDoNotTransfer,
	string(PriznakTransfer):      PriznakTransfer,
	string(PriznakTransferBatch): PriznakTransferBatch,
	string(PriznakDoNotTransfer): PriznakDoNotTransfer,
}

// PriznakForAction maps a transfer action label to its disposition.
// Unmapped actions return false; callers must treat such rules as
// unusable for classification.
func PriznakForAction(action string) (Priznak, bool) {
	p, ok := actionPriznaks[strings.TrimSpace(action)]
	return p, ok
}

// TransferRule is one classification rule. A rule acts as a "transfer
// rule" when its priznak derives from TransferAction, and as a direct
// "classification rule" when PriznakValue is populated; evaluation is
// the same either way.
type TransferRule struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PriznakValue   *Priznak
	Category       string
	ConditionField string
	ConditionValue string
	TransferAction string
	ConditionType  ConditionType
	ID             int64
	Priority       int
	IsActive       bool
}

// IsCatchAll reports whether the rule matches every record.
func (r *TransferRule) IsCatchAll() bool {
	return r.ConditionType == ConditionAlwaysTrue
}

// ResultPriznak resolves the disposition a rule assigns: the direct
// PriznakValue when set, otherwise the action mapping.
func (r *TransferRule) ResultPriznak() (Priznak, bool) {
	if r.PriznakValue != nil && *r.PriznakValue != "" {
		return *r.PriznakValue, true
	}
	return PriznakForAction(r.TransferAction)
}

// Validate ensures the rule has usable data before it is stored.
func (r *TransferRule) Validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("category is required")
	}

	switch r.ConditionType {
	case ConditionExactEquals, ConditionStartsWith, ConditionContains:
		if strings.TrimSpace(r.ConditionField) == "" {
			return fmt.Errorf("condition field is required for %s", r.ConditionType)
		}
		if strings.TrimSpace(r.ConditionValue) == "" {
			return fmt.Errorf("condition value is required for %s", r.ConditionType)
		}
	case ConditionIsEmpty:
		if strings.TrimSpace(r.ConditionField) == "" {
			return fmt.Errorf("condition field is required for %s", r.ConditionType)
		}
	case ConditionAlwaysTrue:
		// No field or value needed.
	default:
		return fmt.Errorf("unknown condition type: %s", r.ConditionType)
	}

	if strings.TrimSpace(r.TransferAction) == "" && r.PriznakValue == nil {
		return fmt.Errorf("rule must carry a transfer action or a priznak value")
	}

	return nil
}
