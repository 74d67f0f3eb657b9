package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koren85/mstopostgres-sub000/internal/model"
)

func TestEvaluateCondition_IsEmpty(t *testing.T) {
	rule := &model.TransferRule{
		ConditionType:  model.ConditionIsEmpty,
		ConditionField: "MSSQL_SXCLASS_MAP",
		IsActive:       true,
	}

	tests := []struct {
		name     string
		tableMap string
		want     bool
	}{
		{"missing value matches", "", true},
		{"whitespace only matches", "   ", true},
		{"populated value does not match", "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &model.ClassRecord{ClassName: "ClassA", TableMap: tt.tableMap}
			assert.Equal(t, tt.want, EvaluateCondition(rule, record))
		})
	}
}

func TestEvaluateCondition_ExactEquals(t *testing.T) {
	rule := &model.TransferRule{
		ConditionType:  model.ConditionExactEquals,
		ConditionField: "MSSQL_SXCLASS_NAME",
		ConditionValue: "Foo; Bar ;Baz",
		IsActive:       true,
	}

	assert.True(t, EvaluateCondition(rule, &model.ClassRecord{ClassName: "Foo"}))
	assert.True(t, EvaluateCondition(rule, &model.ClassRecord{ClassName: "Bar"}), "parts must be trimmed before matching")
	assert.False(t, EvaluateCondition(rule, &model.ClassRecord{ClassName: "foo"}), "matching is case-sensitive")
	assert.False(t, EvaluateCondition(rule, &model.ClassRecord{ClassName: "FooBar"}))
	assert.False(t, EvaluateCondition(rule, &model.ClassRecord{ClassName: ""}), "empty field never matches a value condition")
}

func TestEvaluateCondition_StartsWithAndContains(t *testing.T) {
	record := &model.ClassRecord{ClassName: "SXDocumentClass"}

	starts := &model.TransferRule{
		ConditionType:  model.ConditionStartsWith,
		ConditionField: "MSSQL_SXCLASS_NAME",
		ConditionValue: "tbl_;SX",
		IsActive:       true,
	}
	assert.True(t, EvaluateCondition(starts, record))

	contains := &model.TransferRule{
		ConditionType:  model.ConditionContains,
		ConditionField: "MSSQL_SXCLASS_NAME",
		ConditionValue: "Document",
		IsActive:       true,
	}
	assert.True(t, EvaluateCondition(contains, record))

	contains.ConditionValue = "document"
	assert.False(t, EvaluateCondition(contains, record))
}

func TestEvaluateCondition_AlwaysTrue(t *testing.T) {
	rule := &model.TransferRule{ConditionType: model.ConditionAlwaysTrue, IsActive: true}

	assert.True(t, EvaluateCondition(rule, &model.ClassRecord{}))
	assert.True(t, EvaluateCondition(rule, &model.ClassRecord{ClassName: "Anything"}))
}

func TestEvaluateCondition_UnknownTypeAndField(t *testing.T) {
	record := &model.ClassRecord{ClassName: "ClassA"}

	unknown := &model.TransferRule{
		ConditionType:  model.ConditionType("REGEX"),
		ConditionField: "MSSQL_SXCLASS_NAME",
		ConditionValue: "ClassA",
		IsActive:       true,
	}
	assert.False(t, EvaluateCondition(unknown, record), "unrecognized condition types never match")

	badField := &model.TransferRule{
		ConditionType:  model.ConditionExactEquals,
		ConditionField: "NO_SUCH_FIELD",
		ConditionValue: "ClassA",
		IsActive:       true,
	}
	assert.False(t, EvaluateCondition(badField, record), "unknown fields resolve to null, not an error")

	emptyOnBadField := &model.TransferRule{
		ConditionType:  model.ConditionIsEmpty,
		ConditionField: "NO_SUCH_FIELD",
		IsActive:       true,
	}
	assert.True(t, EvaluateCondition(emptyOnBadField, record))
}

func TestResolveField_CaseInsensitiveNames(t *testing.T) {
	record := &model.ClassRecord{ClassName: "ClassA", ObjectCount: 42}

	got := resolveField(record, "mssql_sxclass_name")
	if assert.NotNil(t, got) {
		assert.Equal(t, "ClassA", *got)
	}

	count := resolveField(record, "OBJECT_COUNT")
	if assert.NotNil(t, count) {
		assert.Equal(t, "42", *count)
	}
}
