package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriznakForAction(t *testing.T) {
	tests := []struct {
		name   string
		action string
		want   Priznak
		ok     bool
	}{
		{"transfer", "Transfer", PriznakTransfer, true},
		{"transfer batch", "TransferBatch", PriznakTransferBatch, true},
		{"do not transfer", "DoNotTransfer", PriznakDoNotTransfer, true},
		{"legacy russian label", "Не переносим", PriznakDoNotTransfer, true},
		{"surrounding whitespace", "  Transfer  ", PriznakTransfer, true},
		{"unmapped", "Review", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PriznakForAction(tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransferRule_Validate(t *testing.T) {
	valid := TransferRule{
		Category:       "Docs",
		ConditionType:  ConditionContains,
		ConditionField: "MSSQL_SXCLASS_NAME",
		ConditionValue: "Doc",
		TransferAction: ActionTransfer,
	}
	require.NoError(t, valid.Validate())

	t.Run("category required", func(t *testing.T) {
		r := valid
		r.Category = "  "
		assert.Error(t, r.Validate())
	})

	t.Run("value conditions need field and value", func(t *testing.T) {
		r := valid
		r.ConditionValue = ""
		assert.Error(t, r.Validate())

		r = valid
		r.ConditionField = ""
		assert.Error(t, r.Validate())
	})

	t.Run("is_empty needs only a field", func(t *testing.T) {
		r := valid
		r.ConditionType = ConditionIsEmpty
		r.ConditionValue = ""
		assert.NoError(t, r.Validate())
	})

	t.Run("always_true needs neither", func(t *testing.T) {
		r := TransferRule{
			Category:       "Fallback",
			ConditionType:  ConditionAlwaysTrue,
			TransferAction: ActionDoNotTransfer,
		}
		assert.NoError(t, r.Validate())
	})

	t.Run("unknown condition type", func(t *testing.T) {
		r := valid
		r.ConditionType = ConditionType("REGEX")
		assert.Error(t, r.Validate())
	})

	t.Run("needs an action or a direct priznak", func(t *testing.T) {
		r := valid
		r.TransferAction = ""
		assert.Error(t, r.Validate())

		direct := PriznakTransfer
		r.PriznakValue = &direct
		assert.NoError(t, r.Validate())
	})
}

func TestTransferRule_ResultPriznak(t *testing.T) {
	direct := PriznakTransferBatch
	r := TransferRule{TransferAction: ActionDoNotTransfer, PriznakValue: &direct}

	got, ok := r.ResultPriznak()
	require.True(t, ok)
	assert.Equal(t, PriznakTransferBatch, got, "direct value beats the action mapping")

	r.PriznakValue = nil
	got, ok = r.ResultPriznak()
	require.True(t, ok)
	assert.Equal(t, PriznakDoNotTransfer, got)
}

func TestClassIdentity_Hash(t *testing.T) {
	a := ClassIdentity{ClassName: "ClassA", Description: "Desc"}
	b := ClassIdentity{ClassName: " ClassA ", Description: " Desc "}
	c := ClassIdentity{ClassName: "ClassA", Description: "Other"}

	assert.Equal(t, a.Hash(), b.Hash(), "identity hashing trims surrounding whitespace")
	assert.NotEqual(t, a.Hash(), c.Hash())
}
