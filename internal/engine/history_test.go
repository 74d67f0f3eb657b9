package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koren85/mstopostgres-sub000/internal/model"
)

func historicalRecord(batchID string, priznak model.Priznak) model.ClassRecord {
	return model.ClassRecord{
		ClassName:   "ClassX",
		Description: "DescX",
		BatchID:     batchID,
		Priznak:     &priznak,
	}
}

func TestMatchHistory_VoteConfidence(t *testing.T) {
	record := &model.ClassRecord{ClassName: "ClassX", Description: "DescX", BatchID: "current"}
	history := []model.ClassRecord{
		historicalRecord("b1", model.PriznakTransfer),
		historicalRecord("b2", model.PriznakTransfer),
		historicalRecord("b3", model.PriznakTransfer),
		historicalRecord("b4", model.PriznakDoNotTransfer),
	}

	outcome := MatchHistory(record, history)

	assert.True(t, outcome.Matched)
	assert.Equal(t, model.PriznakTransfer, outcome.Priznak)
	assert.InDelta(t, 0.75, outcome.Confidence, 1e-9)
	assert.True(t, outcome.HasConflicts)
	assert.Equal(t, 4, outcome.TotalCandidates)
	assert.Equal(t, map[string]model.Priznak{"b4": model.PriznakDoNotTransfer}, outcome.Conflicts)
}

func TestMatchHistory_SelfBatchExcluded(t *testing.T) {
	record := &model.ClassRecord{ClassName: "ClassX", Description: "DescX", BatchID: "b1"}
	history := []model.ClassRecord{
		historicalRecord("b1", model.PriznakTransfer),
	}

	outcome := MatchHistory(record, history)

	assert.False(t, outcome.Matched)
	assert.Equal(t, 0, outcome.TotalCandidates)
}

func TestMatchHistory_IdentityMustMatchExactly(t *testing.T) {
	record := &model.ClassRecord{ClassName: "ClassX", Description: "DescX", BatchID: "current"}
	other := historicalRecord("b1", model.PriznakTransfer)
	other.Description = "DescY"

	outcome := MatchHistory(record, []model.ClassRecord{other})

	assert.False(t, outcome.Matched)
}

func TestMatchHistory_TieBreaksLexicographically(t *testing.T) {
	record := &model.ClassRecord{ClassName: "ClassX", Description: "DescX", BatchID: "current"}
	history := []model.ClassRecord{
		historicalRecord("b1", model.PriznakTransfer),
		historicalRecord("b2", model.PriznakDoNotTransfer),
	}

	// Equal votes: the lexicographically smaller priznak wins, every run.
	for range 10 {
		outcome := MatchHistory(record, history)
		assert.True(t, outcome.Matched)
		assert.Equal(t, model.PriznakDoNotTransfer, outcome.Priznak)
		assert.InDelta(t, 0.5, outcome.Confidence, 1e-9)
		assert.True(t, outcome.HasConflicts)
	}
}

func TestMatchHistory_NoCandidates(t *testing.T) {
	record := &model.ClassRecord{ClassName: "ClassX", Description: "DescX", BatchID: "current"}

	outcome := MatchHistory(record, nil)

	assert.False(t, outcome.Matched)
	assert.False(t, outcome.HasConflicts)
	assert.Zero(t, outcome.Confidence)
}

func TestMatchHistory_UnanimousVote(t *testing.T) {
	record := &model.ClassRecord{ClassName: "ClassX", Description: "DescX", BatchID: "current"}
	history := []model.ClassRecord{
		historicalRecord("b1", model.PriznakTransferBatch),
		historicalRecord("b2", model.PriznakTransferBatch),
	}

	outcome := MatchHistory(record, history)

	assert.True(t, outcome.Matched)
	assert.Equal(t, model.PriznakTransferBatch, outcome.Priznak)
	assert.Equal(t, 1.0, outcome.Confidence)
	assert.False(t, outcome.HasConflicts)
	assert.Nil(t, outcome.Conflicts)
}
