package engine

import (
	"strconv"
	"strings"

	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// fieldExtractor resolves one named record attribute. A nil result
// means the attribute carries no value for this record.
type fieldExtractor func(*model.ClassRecord) *string

// fieldExtractors maps condition field names to accessors. Built once;
// rules address record attributes by the column names of the legacy
// exports, so lookups are case-insensitive.
var fieldExtractors = map[string]fieldExtractor{
	"MSSQL_SXCLASS_NAME":        func(r *model.ClassRecord) *string { return strPtr(r.ClassName) },
	"MSSQL_SXCLASS_DESCRIPTION": func(r *model.ClassRecord) *string { return strPtr(r.Description) },
	"MSSQL_SXCLASS_MAP":         func(r *model.ClassRecord) *string { return strPtr(r.TableMap) },
	"PARENT_CLASS":              func(r *model.ClassRecord) *string { return strPtr(r.ParentClass) },
	"CREATED_BY":                func(r *model.ClassRecord) *string { return strPtr(r.CreatedBy) },
	"SOURCE_SYSTEM":             func(r *model.ClassRecord) *string { return strPtr(r.SourceSystem) },
	"OBJECT_COUNT": func(r *model.ClassRecord) *string {
		if r.ObjectCount == 0 {
			return nil
		}
		s := strconv.Itoa(r.ObjectCount)
		return &s
	},
	"PRIZNAK": func(r *model.ClassRecord) *string {
		if r.Priznak == nil {
			return nil
		}
		return strPtr(string(*r.Priznak))
	},
}

// resolveField returns the value of the named attribute, or nil when
// the field is unknown or empty. Unknown names are never an error.
func resolveField(record *model.ClassRecord, field string) *string {
	extract, ok := fieldExtractors[strings.ToUpper(strings.TrimSpace(field))]
	if !ok {
		return nil
	}
	return extract(record)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
