package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

const exportSheet = "Classes"

var exportHeaders = []string{
	"MSSQL_SXCLASS_NAME",
	"MSSQL_SXCLASS_DESCRIPTION",
	"MSSQL_SXCLASS_MAP",
	"PARENT_CLASS",
	"CREATED_BY",
	"SOURCE_SYSTEM",
	"BATCH_ID",
	"OBJECT_COUNT",
	"PRIZNAK",
	"CONFIDENCE",
	"CLASSIFIED_BY",
}

// WriteClassFile exports records with their dispositions to an xlsx
// workbook, one row per record in the order given.
func WriteClassFile(path string, records []model.ClassRecord) error {
	if len(records) == 0 {
		return common.ErrNoRecords
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", header, err)
		}
	}

	for i := range records {
		if err := writeRow(f, i+2, &records[i]); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeRow(f *excelize.File, rowNum int, r *model.ClassRecord) error {
	priznak := ""
	if r.Priznak != nil {
		priznak = string(*r.Priznak)
	}
	classifiedBy := ""
	if r.ClassifiedBy != nil {
		classifiedBy = string(*r.ClassifiedBy)
	}

	values := []any{
		r.ClassName,
		r.Description,
		r.TableMap,
		r.ParentClass,
		r.CreatedBy,
		r.SourceSystem,
		r.BatchID,
		r.ObjectCount,
		priznak,
		r.ConfidenceScore,
		classifiedBy,
	}

	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to compute cell: %w", err)
		}
		if err := f.SetCellValue(exportSheet, cell, value); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
	}
	return nil
}
