package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koren85/mstopostgres-sub000/internal/cli"
	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Review and correct analysis decisions",
	}

	cmd.AddCommand(analyzeResultsCmd())
	cmd.AddCommand(analyzeConfirmCmd())
	cmd.AddCommand(analyzeBatchUpdateCmd())
	cmd.AddCommand(analyzeGlobalUpdateCmd())

	return cmd
}

func analyzeResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the analysis decisions of a batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			batchID, _ := cmd.Flags().GetString("batch")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			results, err := store.GetAnalysisResultsByBatch(ctx, batchID)
			if err != nil {
				return common.NewUserError("failed to load analysis results", err)
			}
			if len(results) == 0 {
				fmt.Println(cli.FormatWarning("No analysis results for batch " + batchID))
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{
					fmt.Sprintf("%d", r.ID),
					r.Identity.String(),
					cli.FormatPriznak(r.Priznak),
					cli.FormatConfidence(r.ConfidenceScore),
					string(r.Status),
					r.AnalyzedBy,
				})
			}

			fmt.Println(cli.FormatTitle("Analysis results for batch " + batchID))
			fmt.Print(cli.RenderTable(
				[]string{"ID", "Class", "Priznak", "Confidence", "Status", "By"},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().String("batch", "", "batch ID (required)")
	_ = cmd.MarkFlagRequired("batch")

	return cmd
}

func analyzeConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm an analysis decision",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, _ := cmd.Flags().GetInt64("id")
			operator, _ := cmd.Flags().GetString("by")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ConfirmAnalysisResult(ctx, id, operator); err != nil {
				return common.NewUserError("failed to confirm the decision", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Decision %d confirmed", id)))
			return nil
		},
	}

	cmd.Flags().Int64("id", 0, "analysis result ID (required)")
	cmd.Flags().String("by", "operator", "who confirms the decision")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func analyzeBatchUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch-update",
		Short: "Assign one priznak to every record of a batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			batchID, _ := cmd.Flags().GetString("batch")
			priznak, _ := cmd.Flags().GetString("priznak")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			updated, err := store.UpdatePriznakByBatch(ctx, batchID, model.Priznak(priznak), model.ClassifiedByBatchUpdate)
			if err != nil {
				return common.NewUserError("failed to update the batch", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated %d records in batch %s", updated, batchID)))
			return nil
		},
	}

	cmd.Flags().String("batch", "", "batch ID (required)")
	cmd.Flags().String("priznak", "", "disposition to assign (required)")
	_ = cmd.MarkFlagRequired("batch")
	_ = cmd.MarkFlagRequired("priznak")

	return cmd
}

func analyzeGlobalUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "global-update",
		Short: "Assign one priznak to a class identity across all batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			className, _ := cmd.Flags().GetString("class")
			description, _ := cmd.Flags().GetString("description")
			priznak, _ := cmd.Flags().GetString("priznak")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			identity := model.ClassIdentity{ClassName: className, Description: description}
			updated, err := store.UpdatePriznakByIdentity(ctx, identity, model.Priznak(priznak), model.ClassifiedByGlobalUpdate)
			if err != nil {
				return common.NewUserError("failed to update the identity", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated %d records for %s", updated, identity)))
			return nil
		},
	}

	cmd.Flags().String("class", "", "class name (required)")
	cmd.Flags().String("description", "", "class description")
	cmd.Flags().String("priznak", "", "disposition to assign (required)")
	_ = cmd.MarkFlagRequired("class")
	_ = cmd.MarkFlagRequired("priznak")

	return cmd
}
