package engine

import (
	"log/slog"
	"strings"

	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// EvaluateCondition decides whether a rule matches a record.
//
// IS_EMPTY is the only condition type allowed to match a null or blank
// field; every other type short-circuits to no-match on a missing value,
// except ALWAYS_TRUE which matches unconditionally. Unknown condition
// types never match and never fail.
func EvaluateCondition(rule *model.TransferRule, record *model.ClassRecord) bool {
	if rule.ConditionType == model.ConditionAlwaysTrue {
		return true
	}

	value := resolveField(record, rule.ConditionField)

	if rule.ConditionType == model.ConditionIsEmpty {
		return value == nil || strings.TrimSpace(*value) == ""
	}

	if value == nil || strings.TrimSpace(*value) == "" {
		return false
	}

	patterns := splitPatterns(rule.ConditionValue)
	if len(patterns) == 0 {
		return false
	}

	switch rule.ConditionType {
	case model.ConditionExactEquals:
		for _, p := range patterns {
			if *value == p {
				return true
			}
		}
	case model.ConditionStartsWith:
		for _, p := range patterns {
			if strings.HasPrefix(*value, p) {
				return true
			}
		}
	case model.ConditionContains:
		for _, p := range patterns {
			if strings.Contains(*value, p) {
				return true
			}
		}
	default:
		slog.Warn("Unknown condition type, treating as no-match",
			"rule_id", rule.ID,
			"condition_type", rule.ConditionType)
	}

	return false
}

// splitPatterns splits a semicolon-separated pattern list into trimmed,
// non-empty parts. Matching against the parts is OR semantics.
func splitPatterns(conditionValue string) []string {
	parts := strings.Split(conditionValue, ";")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
