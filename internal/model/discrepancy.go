package model

import "time"

// Discrepancy records that the same class identity was assigned
// different dispositions across uploads or source systems.
type Discrepancy struct {
	CreatedAt      time.Time
	Identity       ClassIdentity
	ResolutionNote string
	Priznaks       []Priznak // distinct values observed, sorted
	SourceSystems  []string  // systems involved, sorted
	ID             int64
	Resolved       bool
}
