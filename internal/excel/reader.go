// Package excel reads and writes the class-metadata workbooks exchanged
// with the source systems.
package excel

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

// Column aliases as they appear in real exports. Technical headers come
// from the MSSQL extraction script, the Russian ones from hand-edited
// analyst copies.
var columnAliases = map[string]string{
	"MSSQL_SXCLASS_NAME":        "class_name",
	"CLASS_NAME":                "class_name",
	"КЛАСС":                     "class_name",
	"MSSQL_SXCLASS_DESCRIPTION": "description",
	"DESCRIPTION":               "description",
	"ОПИСАНИЕ":                  "description",
	"MSSQL_SXCLASS_MAP":         "table_map",
	"МАППИНГ":                   "table_map",
	"PARENT_CLASS":              "parent_class",
	"РОДИТЕЛЬСКИЙ КЛАСС":        "parent_class",
	"CREATED_BY":                "created_by",
	"OBJECT_COUNT":              "object_count",
	"КОЛИЧЕСТВО ОБЪЕКТОВ":       "object_count",
	"PRIZNAK":                   "priznak",
	"ПРИЗНАК":                   "priznak",
}

// ParseClassFile reads class records from the first sheet of an xlsx
// workbook. Header matching is case-insensitive and accepts both the
// technical and the Russian column names. Rows without a class name are
// skipped with a warning.
func ParseClassFile(path, sourceSystem, batchID string) ([]model.ClassRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close workbook", "path", path, "error", closeErr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook %s: %w", path, common.ErrNoRecords)
	}

	columns, err := mapColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("workbook %s: %w", path, err)
	}

	var records []model.ClassRecord
	for i, row := range rows[1:] {
		record := parseRow(row, columns)
		if strings.TrimSpace(record.ClassName) == "" {
			slog.Warn("Skipping row without class name", "path", path, "row", i+2)
			continue
		}
		record.SourceSystem = sourceSystem
		record.BatchID = batchID
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("workbook %s: %w", path, common.ErrNoRecords)
	}
	return records, nil
}

// mapColumns resolves the header row to canonical field -> column index.
func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, cell := range header {
		name := strings.ToUpper(strings.TrimSpace(cell))
		if field, ok := columnAliases[name]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}
	if _, ok := columns["class_name"]; !ok {
		return nil, fmt.Errorf("no class name column found in header %v", header)
	}
	return columns, nil
}

func parseRow(row []string, columns map[string]int) model.ClassRecord {
	record := model.ClassRecord{
		ClassName:   cellAt(row, columns, "class_name"),
		Description: cellAt(row, columns, "description"),
		TableMap:    cellAt(row, columns, "table_map"),
		ParentClass: cellAt(row, columns, "parent_class"),
		CreatedBy:   cellAt(row, columns, "created_by"),
	}

	if raw := cellAt(row, columns, "object_count"); raw != "" {
		if count, err := strconv.Atoi(raw); err == nil {
			record.ObjectCount = count
		}
	}

	if raw := cellAt(row, columns, "priznak"); raw != "" {
		p := model.Priznak(raw)
		record.Priznak = &p
	}

	return record
}

func cellAt(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
