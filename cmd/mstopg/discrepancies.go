package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koren85/mstopostgres-sub000/internal/cli"
	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/engine"
)

func discrepanciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "discrepancies",
		Aliases: []string{"disc"},
		Short:   "Detect and review conflicting assignments",
	}

	cmd.AddCommand(discrepanciesDetectCmd())
	cmd.AddCommand(discrepanciesListCmd())
	cmd.AddCommand(discrepanciesResolveCmd())

	return cmd
}

func discrepanciesDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect conflicting assignments",
		Long: `Detect flags every class identity that carries two or more distinct
dispositions across uploads. Without --batch the whole store is scanned.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			batchID, _ := cmd.Flags().GetString("batch")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			found, err := engine.New(store).DetectDiscrepancies(ctx, batchID)
			if err != nil {
				return common.NewUserError("discrepancy detection failed", err)
			}

			if len(found) == 0 {
				fmt.Println(cli.FormatSuccess("No conflicting assignments found"))
				return nil
			}
			fmt.Println(cli.FormatWarning(fmt.Sprintf("Flagged %d conflicting identities", len(found))))
			return nil
		},
	}

	cmd.Flags().String("batch", "", "limit detection to one batch")

	return cmd
}

func discrepanciesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open discrepancies",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			open, err := store.GetOpenDiscrepancies(ctx)
			if err != nil {
				return common.NewUserError("failed to load discrepancies", err)
			}
			if len(open) == 0 {
				fmt.Println(cli.FormatSuccess("No open discrepancies"))
				return nil
			}

			rows := make([][]string, 0, len(open))
			for _, d := range open {
				priznaks := make([]string, len(d.Priznaks))
				for i, p := range d.Priznaks {
					priznaks[i] = string(p)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", d.ID),
					d.Identity.String(),
					strings.Join(priznaks, " / "),
					strings.Join(d.SourceSystems, ", "),
				})
			}

			fmt.Println(cli.FormatTitle("Open discrepancies"))
			fmt.Print(cli.RenderTable(
				[]string{"ID", "Class", "Priznaks", "Sources"},
				rows,
			))
			return nil
		},
	}
}

func discrepanciesResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Mark a discrepancy as resolved",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, _ := cmd.Flags().GetInt64("id")
			note, _ := cmd.Flags().GetString("note")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ResolveDiscrepancy(ctx, id, note); err != nil {
				return common.NewUserError("failed to resolve the discrepancy", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Discrepancy %d resolved", id)))
			return nil
		},
	}

	cmd.Flags().Int64("id", 0, "discrepancy ID (required)")
	cmd.Flags().String("note", "", "resolution note (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("note")

	return cmd
}
