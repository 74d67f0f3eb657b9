package main

import (
	"github.com/spf13/cobra"

	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/engine"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify the records of a stored batch",
		Long: `Classify runs the decision chain over every record of a batch:
an already-set priznak is kept as-is, then historical matches across
earlier uploads vote, then the transfer rules apply in priority order.
Records nothing decides on stay unclassified for manual review.`,
		RunE: runClassify,
	}

	cmd.Flags().String("batch", "", "batch ID to classify (required)")
	_ = cmd.MarkFlagRequired("batch")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	batchID, _ := cmd.Flags().GetString("batch")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	e := engine.NewWithConfig(store, engine.Config{ShowProgress: true})
	_, report, err := e.ClassifyBatch(ctx, batchID)
	if err != nil {
		return common.NewUserError("classification failed", err)
	}

	printBatchReport(report)
	return nil
}
