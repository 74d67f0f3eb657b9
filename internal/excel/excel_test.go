package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

func writeWorkbook(t *testing.T, path string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func TestParseClassFile_TechnicalHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.xlsx")
	writeWorkbook(t, path, [][]any{
		{"MSSQL_SXCLASS_NAME", "MSSQL_SXCLASS_DESCRIPTION", "MSSQL_SXCLASS_MAP", "OBJECT_COUNT", "PRIZNAK"},
		{"ClassA", "Документы", "tbl_class_a", 12, "Переносим"},
		{"ClassB", "Справочник", "", "", ""},
	})

	records, err := ParseClassFile(path, "mssql-prod", "b1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "ClassA", records[0].ClassName)
	assert.Equal(t, "Документы", records[0].Description)
	assert.Equal(t, "tbl_class_a", records[0].TableMap)
	assert.Equal(t, 12, records[0].ObjectCount)
	require.NotNil(t, records[0].Priznak)
	assert.Equal(t, model.PriznakTransfer, *records[0].Priznak)
	assert.Equal(t, "mssql-prod", records[0].SourceSystem)
	assert.Equal(t, "b1", records[0].BatchID)

	assert.Empty(t, records[1].TableMap)
	assert.Nil(t, records[1].Priznak)
}

func TestParseClassFile_RussianHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.xlsx")
	writeWorkbook(t, path, [][]any{
		{"Класс", "Описание", "Признак"},
		{"ClassA", "DescA", "Не переносим"},
	})

	records, err := ParseClassFile(path, "mssql-test", "b2")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Priznak)
	assert.Equal(t, model.PriznakDoNotTransfer, *records[0].Priznak)
}

func TestParseClassFile_SkipsRowsWithoutClassName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.xlsx")
	writeWorkbook(t, path, [][]any{
		{"MSSQL_SXCLASS_NAME", "MSSQL_SXCLASS_DESCRIPTION"},
		{"", "orphan description"},
		{"ClassA", "DescA"},
	})

	records, err := ParseClassFile(path, "mssql-prod", "b1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ClassA", records[0].ClassName)
}

func TestParseClassFile_MissingClassNameColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.xlsx")
	writeWorkbook(t, path, [][]any{
		{"SOMETHING", "ELSE"},
		{"x", "y"},
	})

	_, err := ParseClassFile(path, "mssql-prod", "b1")
	assert.Error(t, err)
}

func TestParseClassFile_EmptyWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.xlsx")
	writeWorkbook(t, path, [][]any{
		{"MSSQL_SXCLASS_NAME"},
	})

	_, err := ParseClassFile(path, "mssql-prod", "b1")
	assert.ErrorIs(t, err, common.ErrNoRecords)
}

func TestWriteClassFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")

	priznak := model.PriznakTransferBatch
	classifiedBy := model.ClassifiedByRule
	records := []model.ClassRecord{
		{
			ClassName:       "ClassA",
			Description:     "DescA",
			TableMap:        "tbl_a",
			SourceSystem:    "mssql-prod",
			BatchID:         "b1",
			ObjectCount:     7,
			Priznak:         &priznak,
			ConfidenceScore: 0.75,
			ClassifiedBy:    &classifiedBy,
		},
		{
			ClassName:    "ClassB",
			Description:  "DescB",
			SourceSystem: "mssql-prod",
			BatchID:      "b1",
		},
	}

	require.NoError(t, WriteClassFile(path, records))

	parsed, err := ParseClassFile(path, "reimport", "b2")
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, "ClassA", parsed[0].ClassName)
	assert.Equal(t, "tbl_a", parsed[0].TableMap)
	require.NotNil(t, parsed[0].Priznak)
	assert.Equal(t, model.PriznakTransferBatch, *parsed[0].Priznak)
	assert.Nil(t, parsed[1].Priznak)
}

func TestWriteClassFile_NoRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	assert.ErrorIs(t, WriteClassFile(path, nil), common.ErrNoRecords)
}
