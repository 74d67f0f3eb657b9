package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
	"github.com/koren85/mstopostgres-sub000/internal/testutil"
)

func classRecord(className, batchID string) model.ClassRecord {
	return model.ClassRecord{
		ClassName:    className,
		Description:  "Desc " + className,
		SourceSystem: "mssql-prod",
		BatchID:      batchID,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := testutil.SetupTestDB(t)

	// A second run against a current schema must be a no-op.
	require.NoError(t, store.Migrate(context.Background()))
}

func TestMigrate_SeedsBaselineRules(t *testing.T) {
	store := testutil.SetupTestDB(t)

	rules, err := store.GetRulesOrderedByPriority(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, model.ConditionStartsWith, rules[0].ConditionType)
	assert.Equal(t, model.ConditionIsEmpty, rules[1].ConditionType)
	assert.True(t, rules[2].IsCatchAll(), "seeded rule set ends with a catch-all")
	assert.Equal(t, 999, rules[2].Priority)
}

func TestSaveRecords_AssignsIDs(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	records := []model.ClassRecord{
		classRecord("ClassA", "b1"),
		classRecord("ClassB", "b1"),
	}
	require.NoError(t, store.SaveRecords(ctx, records))

	assert.Positive(t, records[0].ID)
	assert.Positive(t, records[1].ID)

	got, err := store.GetRecordByID(ctx, records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "ClassA", got.ClassName)
	assert.Nil(t, got.Priznak)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveRecords_RejectsEmptyBatch(t *testing.T) {
	store := testutil.SetupTestDB(t)

	err := store.SaveRecords(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNoRecords)
}

func TestGetRecordByID_NotFound(t *testing.T) {
	store := testutil.SetupTestDB(t)

	_, err := store.GetRecordByID(context.Background(), 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindByIdentity_ExcludesBatch(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	same := classRecord("ClassA", "b1")
	sameOther := classRecord("ClassA", "b2")
	different := classRecord("ClassB", "b2")
	require.NoError(t, store.SaveRecords(ctx, []model.ClassRecord{same, sameOther, different}))

	matches, err := store.FindByIdentity(ctx, "ClassA", "Desc ClassA", "b1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b2", matches[0].BatchID)

	all, err := store.FindByIdentity(ctx, "ClassA", "Desc ClassA", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := store.FindByIdentity(ctx, "ClassA", "some other description", "")
	require.NoError(t, err)
	assert.Empty(t, none, "identity requires class name and description together")
}

func TestSaveClassification_RoundTrip(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	records := []model.ClassRecord{classRecord("ClassA", "b1")}
	require.NoError(t, store.SaveRecords(ctx, records))

	priznak := model.PriznakTransfer
	err := store.SaveClassification(ctx, records[0].ID, model.Classification{
		Priznak:    &priznak,
		Method:     model.MethodHistorical,
		Confidence: 0.75,
	})
	require.NoError(t, err)

	got, err := store.GetRecordByID(ctx, records[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.Priznak)
	assert.Equal(t, model.PriznakTransfer, *got.Priznak)
	assert.Equal(t, 0.75, got.ConfidenceScore)
	require.NotNil(t, got.ClassifiedBy)
	assert.Equal(t, model.ClassifiedByHistorical, *got.ClassifiedBy)

	classified, err := store.FindAllWithPriznak(ctx)
	require.NoError(t, err)
	assert.Len(t, classified, 1)

	// An unclassified decision clears the disposition again.
	require.NoError(t, store.SaveClassification(ctx, records[0].ID, model.Classification{}))
	got, err = store.GetRecordByID(ctx, records[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got.Priznak)
	assert.Nil(t, got.ClassifiedBy)
	assert.Zero(t, got.ConfidenceScore)
}

func TestSaveClassification_UnknownRecord(t *testing.T) {
	store := testutil.SetupTestDB(t)

	err := store.SaveClassification(context.Background(), 424242, model.Classification{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdatePriznakByBatch(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecords(ctx, []model.ClassRecord{
		classRecord("ClassA", "b1"),
		classRecord("ClassB", "b1"),
		classRecord("ClassC", "b2"),
	}))

	updated, err := store.UpdatePriznakByBatch(ctx, "b1", model.PriznakDoNotTransfer, model.ClassifiedByBatchUpdate)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	untouched, err := store.GetRecordsByBatch(ctx, "b2")
	require.NoError(t, err)
	require.Len(t, untouched, 1)
	assert.Nil(t, untouched[0].Priznak)
}

func TestUpdatePriznakByIdentity(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecords(ctx, []model.ClassRecord{
		classRecord("ClassA", "b1"),
		classRecord("ClassA", "b2"),
		classRecord("ClassB", "b1"),
	}))

	identity := model.ClassIdentity{ClassName: "ClassA", Description: "Desc ClassA"}
	updated, err := store.UpdatePriznakByIdentity(ctx, identity, model.PriznakTransfer, model.ClassifiedByGlobalUpdate)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated, "identity updates span batches")
}

func TestDeleteBatch(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecords(ctx, []model.ClassRecord{
		classRecord("ClassA", "b1"),
		classRecord("ClassB", "b2"),
	}))
	require.NoError(t, store.SaveAnalysisResult(ctx, &model.AnalysisResult{
		BatchID:  "b1",
		Identity: model.ClassIdentity{ClassName: "ClassA", Description: "Desc ClassA"},
		Status:   model.AnalysisPending,
	}))

	require.NoError(t, store.DeleteBatch(ctx, "b1"))

	remaining, err := store.GetAllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b2", remaining[0].BatchID)

	results, err := store.GetAnalysisResultsByBatch(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, results, "analysis results go with their batch")

	assert.ErrorIs(t, store.DeleteBatch(ctx, "b1"), common.ErrNotFound)
}

func TestListBatches(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRecords(ctx, []model.ClassRecord{
		classRecord("ClassA", "b1"),
		classRecord("ClassB", "b1"),
	}))

	priznak := model.PriznakTransfer
	withPriznak := classRecord("ClassC", "b2")
	withPriznak.Priznak = &priznak
	require.NoError(t, store.SaveRecords(ctx, []model.ClassRecord{withPriznak}))

	batches, err := store.ListBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	byID := map[string]int{}
	for _, b := range batches {
		byID[b.BatchID] = b.RecordCount
		if b.BatchID == "b2" {
			assert.Equal(t, 1, b.ClassifiedCount)
		}
	}
	assert.Equal(t, 2, byID["b1"])
	assert.Equal(t, 1, byID["b2"])
}

func TestInsertRuleAt_ShiftsCollidingRules(t *testing.T) {
	store := testutil.SetupTestDB(t)
	testutil.ClearRules(t, store)
	ctx := context.Background()

	first := &model.TransferRule{
		Category:       "Base",
		ConditionType:  model.ConditionExactEquals,
		ConditionField: "MSSQL_SXCLASS_NAME",
		ConditionValue: "Foo",
		TransferAction: model.ActionTransfer,
		Priority:       100,
		IsActive:       true,
	}
	require.NoError(t, store.CreateRule(ctx, first))

	catchAll := &model.TransferRule{
		Category:       "Fallback",
		ConditionType:  model.ConditionAlwaysTrue,
		TransferAction: model.ActionDoNotTransfer,
		Priority:       999,
		IsActive:       true,
	}
	require.NoError(t, store.CreateRule(ctx, catchAll))

	inserted := &model.TransferRule{
		Category:       "Override",
		ConditionType:  model.ConditionStartsWith,
		ConditionField: "MSSQL_SXCLASS_NAME",
		ConditionValue: "Foo",
		TransferAction: model.ActionTransferBatch,
		IsActive:       true,
	}
	require.NoError(t, store.InsertRuleAt(ctx, inserted, 100))

	rules, err := store.GetRulesOrderedByPriority(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "Override", rules[0].Category)
	assert.Equal(t, 100, rules[0].Priority)
	assert.Equal(t, "Base", rules[1].Category)
	assert.Equal(t, 110, rules[1].Priority, "colliding rule shifts up")
	assert.Equal(t, "Fallback", rules[2].Category)
	assert.Equal(t, 1009, rules[2].Priority, "catch-all keeps the numerically largest priority")
}

func TestInsertRuleAt_InvalidRuleLeavesSetUntouched(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	before, err := store.GetRulesOrderedByPriority(ctx)
	require.NoError(t, err)

	bad := &model.TransferRule{Category: "", ConditionType: model.ConditionAlwaysTrue}
	require.ErrorIs(t, store.InsertRuleAt(ctx, bad, 10), common.ErrMalformedRule)

	after, err := store.GetRulesOrderedByPriority(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRuleCRUD(t *testing.T) {
	store := testutil.SetupTestDB(t)
	testutil.ClearRules(t, store)
	ctx := context.Background()

	rule := &model.TransferRule{
		Category:       "Docs",
		ConditionType:  model.ConditionContains,
		ConditionField: "MSSQL_SXCLASS_DESCRIPTION",
		ConditionValue: "документ",
		TransferAction: model.ActionTransfer,
		Priority:       10,
		IsActive:       true,
	}
	require.NoError(t, store.CreateRule(ctx, rule))
	require.Positive(t, rule.ID)

	got, err := store.GetRuleByID(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Docs", got.Category)
	assert.Nil(t, got.PriznakValue)

	direct := model.PriznakTransferBatch
	got.PriznakValue = &direct
	got.IsActive = false
	require.NoError(t, store.UpdateRule(ctx, got))

	updated, err := store.GetRuleByID(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.PriznakValue)
	assert.Equal(t, model.PriznakTransferBatch, *updated.PriznakValue)
	assert.False(t, updated.IsActive)

	require.NoError(t, store.DeleteRule(ctx, rule.ID))
	_, err = store.GetRuleByID(ctx, rule.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSaveDiscrepancy_UpsertByIdentity(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	d := &model.Discrepancy{
		Identity:      model.ClassIdentity{ClassName: "ClassA", Description: "D"},
		Priznaks:      []model.Priznak{model.PriznakDoNotTransfer, model.PriznakTransfer},
		SourceSystems: []string{"sys1", "sys2"},
	}
	require.NoError(t, store.SaveDiscrepancy(ctx, d))
	require.NoError(t, store.SaveDiscrepancy(ctx, d))

	open, err := store.GetOpenDiscrepancies(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1, "re-detection must not duplicate")
	assert.Equal(t, d.Priznaks, open[0].Priznaks)
	assert.Equal(t, d.SourceSystems, open[0].SourceSystems)

	require.NoError(t, store.ResolveDiscrepancy(ctx, open[0].ID, "keep b2 value"))

	open, err = store.GetOpenDiscrepancies(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestResolveDiscrepancy_NotFound(t *testing.T) {
	store := testutil.SetupTestDB(t)

	err := store.ResolveDiscrepancy(context.Background(), 77, "note")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAnalysisResults_UpsertAndConfirm(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	priznak := model.PriznakTransfer
	result := &model.AnalysisResult{
		BatchID:         "b1",
		Identity:        model.ClassIdentity{ClassName: "ClassA", Description: "D"},
		Priznak:         &priznak,
		ConfidenceScore: 0.8,
		Status:          model.AnalysisAnalyzed,
		AnalyzedBy:      "historical",
		Discrepancies:   map[string]model.Priznak{"b0": model.PriznakDoNotTransfer},
	}
	require.NoError(t, store.SaveAnalysisResult(ctx, result))

	// Re-analysis of the same identity in the same batch overwrites.
	result.ConfidenceScore = 0.9
	require.NoError(t, store.SaveAnalysisResult(ctx, result))

	results, err := store.GetAnalysisResultsByBatch(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.9, results[0].ConfidenceScore)
	assert.Equal(t, model.AnalysisAnalyzed, results[0].Status)
	assert.Equal(t, map[string]model.Priznak{"b0": model.PriznakDoNotTransfer}, results[0].Discrepancies)

	require.NoError(t, store.ConfirmAnalysisResult(ctx, results[0].ID, "operator"))

	results, err = store.GetAnalysisResultsByBatch(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, model.AnalysisConfirmed, results[0].Status)
	assert.Equal(t, "operator", results[0].AnalyzedBy)
}

func TestTransaction_RollbackDiscardsWrites(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.SaveRecords(ctx, []model.ClassRecord{classRecord("ClassA", "b1")}))
	require.NoError(t, tx.Rollback())

	all, err := store.GetAllRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTransaction_CommitPersistsWrites(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.SaveRecords(ctx, []model.ClassRecord{classRecord("ClassA", "b1")}))
	require.NoError(t, tx.Commit())

	all, err := store.GetAllRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
