package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/koren85/mstopostgres-sub000/internal/cli"
	"github.com/koren85/mstopostgres-sub000/internal/common"
)

func batchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Manage upload batches",
	}

	cmd.AddCommand(batchesListCmd())
	cmd.AddCommand(batchesDeleteCmd())

	return cmd
}

func batchesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored batches, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			batches, err := store.ListBatches(ctx)
			if err != nil {
				return common.NewUserError("failed to list batches", err)
			}
			if len(batches) == 0 {
				fmt.Println(cli.FormatWarning("No batches stored yet"))
				return nil
			}

			rows := make([][]string, 0, len(batches))
			for _, b := range batches {
				rows = append(rows, []string{
					b.BatchID,
					b.SourceSystem,
					b.CreatedAt.Format(time.DateTime),
					fmt.Sprintf("%d", b.RecordCount),
					fmt.Sprintf("%d", b.ClassifiedCount),
				})
			}

			fmt.Println(cli.FormatTitle("Upload batches"))
			fmt.Print(cli.RenderTable(
				[]string{"Batch", "Source", "Imported", "Records", "Classified"},
				rows,
			))
			return nil
		},
	}
}

func batchesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a batch and its analysis results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			batchID, _ := cmd.Flags().GetString("batch")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteBatch(ctx, batchID); err != nil {
				return common.NewUserError("failed to delete the batch", err)
			}

			fmt.Println(cli.FormatSuccess("Batch " + batchID + " deleted"))
			return nil
		},
	}

	cmd.Flags().String("batch", "", "batch ID (required)")
	_ = cmd.MarkFlagRequired("batch")

	return cmd
}
