package model

// ClassificationMethod indicates how a record's disposition was derived.
type ClassificationMethod string

// Classification method constants. Empty means unclassifiable.
const (
	MethodManual       ClassificationMethod = "manual"
	MethodHistorical   ClassificationMethod = "historical"
	MethodRule         ClassificationMethod = "rule"
	MethodTransferRule ClassificationMethod = "transfer_rule"
)

// Classification is a single classification decision for a record.
// Priznak nil with confidence 0 is the explicit "unclassifiable"
// terminal state, not an error.
type Classification struct {
	Priznak      *Priznak
	RuleID       *int64
	Method       ClassificationMethod
	Confidence   float64
	HasConflicts bool
}

// Classified reports whether a disposition was assigned.
func (c Classification) Classified() bool {
	return c.Priznak != nil
}

// Origin maps the classification method to the ClassifiedBy value
// persisted on the record.
func (c Classification) Origin() ClassifiedBy {
	switch c.Method {
	case MethodManual:
		return ClassifiedByManual
	case MethodHistorical:
		return ClassifiedByHistorical
	case MethodRule:
		return ClassifiedByRule
	case MethodTransferRule:
		return ClassifiedByTransferRule
	default:
		return ""
	}
}
