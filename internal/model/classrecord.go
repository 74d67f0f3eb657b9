// Package model defines the core domain models for the migration reconciler.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Priznak is the migration disposition assigned to a class.
type Priznak string

// Disposition values as the source systems record them.
const (
	PriznakTransfer      Priznak = "Переносим"
	PriznakTransferBatch Priznak = "Переносим пакетом"
	PriznakDoNotTransfer Priznak = "Не переносим"
)

// ClassifiedBy indicates which mechanism produced a record's priznak.
type ClassifiedBy string

// Classification origin constants.
const (
	ClassifiedByManual       ClassifiedBy = "manual"
	ClassifiedByHistorical   ClassifiedBy = "historical"
	ClassifiedByRule         ClassifiedBy = "rule"
	ClassifiedByTransferRule ClassifiedBy = "transfer_rule"
	ClassifiedByBatchUpdate  ClassifiedBy = "batch_update"
	ClassifiedByGlobalUpdate ClassifiedBy = "global_update"
	ClassifiedByNormalized   ClassifiedBy = "normalized"
)

// ClassIdentity is the correlation key used to match records across
// batches and source systems as "the same logical class".
type ClassIdentity struct {
	ClassName   string
	Description string
}

// Hash returns a stable digest of the identity for indexing and grouping.
func (id ClassIdentity) Hash() string {
	data := fmt.Sprintf("%s:%s", strings.TrimSpace(id.ClassName), strings.TrimSpace(id.Description))
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)
}

// String renders the identity for logs and CLI output.
func (id ClassIdentity) String() string {
	if id.Description == "" {
		return id.ClassName
	}
	return fmt.Sprintf("%s (%s)", id.ClassName, id.Description)
}

// ClassRecord is one row of source-system metadata for a class.
type ClassRecord struct {
	CreatedAt       time.Time
	Priznak         *Priznak
	ClassifiedBy    *ClassifiedBy
	ClassName       string
	Description     string
	SourceSystem    string
	BatchID         string
	ParentClass     string
	CreatedBy       string
	TableMap        string // mssql_sxclass_map: target-table mapping, empty when unmapped
	ID              int64
	ObjectCount     int
	ConfidenceScore float64
}

// Identity returns the record's correlation key.
func (r *ClassRecord) Identity() ClassIdentity {
	return ClassIdentity{ClassName: r.ClassName, Description: r.Description}
}

// HasPriznak reports whether the record already carries a disposition.
func (r *ClassRecord) HasPriznak() bool {
	return r.Priznak != nil && *r.Priznak != ""
}
