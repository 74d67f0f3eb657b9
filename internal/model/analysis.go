package model

import "time"

// AnalysisStatus tracks the lifecycle of an analysis decision.
type AnalysisStatus string

// Analysis status constants. Transitions: pending -> analyzed when an
// assignment was made, analyzed -> confirmed on operator sign-off.
// A record with no match and no rule stays pending.
const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisAnalyzed  AnalysisStatus = "analyzed"
	AnalysisConfirmed AnalysisStatus = "confirmed"
)

// AnalysisResult is the decision record for one class identity within
// one analysis batch.
type AnalysisResult struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Priznak         *Priznak
	Discrepancies   map[string]Priznak // conflicting batch -> its priznak
	BatchID         string
	AnalyzedBy      string
	Status          AnalysisStatus
	Identity        ClassIdentity
	ID              int64
	ConfidenceScore float64
}
