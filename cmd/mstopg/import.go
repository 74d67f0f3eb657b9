package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koren85/mstopostgres-sub000/internal/cli"
	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/engine"
	"github.com/koren85/mstopostgres-sub000/internal/excel"
	"github.com/koren85/mstopostgres-sub000/internal/service"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import a class-metadata export as a new batch",
		Long: `Import reads class records from an xlsx export, stores them as a
new upload batch and, unless --no-classify is given, immediately runs
classification over the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("source", "", "source system the export came from (required)")
	cmd.Flags().Bool("no-classify", false, "store the batch without classifying it")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	source, _ := cmd.Flags().GetString("source")
	noClassify, _ := cmd.Flags().GetBool("no-classify")

	batchID := uuid.New().String()

	records, err := excel.ParseClassFile(args[0], source, batchID)
	if err != nil {
		return common.NewUserError("failed to read the export file", err)
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	err = common.WithRetry(ctx, func() error {
		return store.SaveRecords(ctx, records)
	}, service.RetryOptions{})
	if err != nil {
		return common.NewUserError("failed to store the batch", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d records as batch %s", len(records), batchID)))

	if noClassify {
		return nil
	}

	e := engine.NewWithConfig(store, engine.Config{ShowProgress: true})
	_, report, err := e.ClassifyBatch(ctx, batchID)
	if err != nil {
		return common.NewUserError("classification failed", err)
	}

	printBatchReport(report)
	return nil
}

func printBatchReport(report *service.BatchReport) {
	fmt.Println(cli.FormatTitle("Classification report"))
	fmt.Printf("  Batch:          %s\n", report.BatchID)
	fmt.Printf("  Processed:      %d\n", report.Processed)
	for method, count := range report.ByMethod {
		fmt.Printf("    %-14s%d\n", string(method)+":", count)
	}
	fmt.Printf("  Unclassifiable: %d\n", report.Unclassifiable)
	if report.Failed > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("  Failed:         %d", report.Failed)))
	}
	fmt.Printf("  Duration:       %s\n", report.Duration.Round(time.Millisecond))
}
