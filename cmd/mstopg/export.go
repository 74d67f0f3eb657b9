package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koren85/mstopostgres-sub000/internal/cli"
	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/excel"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export records with their dispositions to a workbook",
		Long: `Export writes records and their assigned dispositions back to an
xlsx workbook. With --batch only that batch is exported, otherwise the
whole store. --only-classified drops records without a priznak.`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().String("batch", "", "limit the export to one batch")
	cmd.Flags().Bool("only-classified", false, "export only records with a priznak")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	batchID, _ := cmd.Flags().GetString("batch")
	onlyClassified, _ := cmd.Flags().GetBool("only-classified")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var records []model.ClassRecord
	if batchID != "" {
		records, err = store.GetRecordsByBatch(ctx, batchID)
	} else {
		records, err = store.GetAllRecords(ctx)
	}
	if err != nil {
		return common.NewUserError("failed to load records", err)
	}

	if onlyClassified {
		classified := records[:0]
		for i := range records {
			if records[i].HasPriznak() {
				classified = append(classified, records[i])
			}
		}
		records = classified
	}

	if err := excel.WriteClassFile(args[0], records); err != nil {
		return common.NewUserError("failed to write the workbook", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d records to %s", len(records), args[0])))
	return nil
}
