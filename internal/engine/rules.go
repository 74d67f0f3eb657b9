package engine

import (
	"sort"

	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// RuleOutcome is the result of the first matching rule.
type RuleOutcome struct {
	Priznak        *model.Priznak // nil when the transfer action has no disposition mapping
	Category       string
	TransferAction string
	RuleID         int64
	Confidence     float64
	Direct         bool // true when the priznak came from the rule's direct value
}

// ApplyRules walks the rule set in ascending priority order (ties broken
// by rule id) and returns the outcome of the first rule the record
// matches. Returns nil when nothing matches, including when no catch-all
// exists; the caller treats that as "unclassifiable by rule".
func ApplyRules(record *model.ClassRecord, rules []model.TransferRule) *RuleOutcome {
	ordered := orderRules(rules)

	for i := range ordered {
		rule := &ordered[i]
		if !rule.IsActive {
			continue
		}
		if !EvaluateCondition(rule, record) {
			continue
		}
		return outcomeFor(rule)
	}

	return nil
}

// ApplyClassificationRules is ApplyRules restricted to rules with a
// usable disposition mapping; rules whose action maps to nothing are
// skipped instead of terminating the scan.
func ApplyClassificationRules(record *model.ClassRecord, rules []model.TransferRule) *RuleOutcome {
	ordered := orderRules(rules)

	for i := range ordered {
		rule := &ordered[i]
		if !rule.IsActive {
			continue
		}
		if _, ok := rule.ResultPriznak(); !ok {
			continue
		}
		if !EvaluateCondition(rule, record) {
			continue
		}
		return outcomeFor(rule)
	}

	return nil
}

// outcomeFor builds the outcome for a matched rule. Rule matches are
// definitionally certain, so confidence is always 1.0; an unmapped
// action still reports the action with a nil priznak.
func outcomeFor(rule *model.TransferRule) *RuleOutcome {
	outcome := &RuleOutcome{
		RuleID:         rule.ID,
		Category:       rule.Category,
		TransferAction: rule.TransferAction,
		Confidence:     1.0,
		Direct:         rule.PriznakValue != nil && *rule.PriznakValue != "",
	}
	if p, ok := rule.ResultPriznak(); ok {
		outcome.Priznak = &p
	}
	return outcome
}

// orderRules returns a copy sorted by (priority asc, id asc). Priority
// uniqueness is not enforced by the data model, so the id tie-break
// keeps evaluation deterministic.
func orderRules(rules []model.TransferRule) []model.TransferRule {
	ordered := make([]model.TransferRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}
