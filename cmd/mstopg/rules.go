package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koren85/mstopostgres-sub000/internal/cli"
	"github.com/koren85/mstopostgres-sub000/internal/common"
	"github.com/koren85/mstopostgres-sub000/internal/engine"
	"github.com/koren85/mstopostgres-sub000/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the transfer rule set",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesToggleCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.GetRulesOrderedByPriority(ctx)
			if err != nil {
				return common.NewUserError("failed to load rules", err)
			}

			rows := make([][]string, 0, len(rules))
			for i := range rules {
				r := &rules[i]
				active := cli.SuccessStyle.Render("active")
				if !r.IsActive {
					active = cli.SubtleStyle.Render("inactive")
				}
				result := r.TransferAction
				if p, ok := r.ResultPriznak(); ok {
					result = string(p)
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", r.ID),
					fmt.Sprintf("%d", r.Priority),
					r.Category,
					string(r.ConditionType),
					r.ConditionField,
					r.ConditionValue,
					result,
					active,
				})
			}

			fmt.Println(cli.FormatTitle("Transfer rules"))
			fmt.Print(cli.RenderTable(
				[]string{"ID", "Priority", "Category", "Condition", "Field", "Value", "Result", "State"},
				rows,
			))
			return nil
		},
	}
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule",
		Long: `Add inserts a rule into the evaluation order. The priority is
resolved automatically so that catch-all rules stay last; colliding
rules are shifted up atomically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			category, _ := cmd.Flags().GetString("category")
			conditionType, _ := cmd.Flags().GetString("type")
			field, _ := cmd.Flags().GetString("field")
			value, _ := cmd.Flags().GetString("value")
			action, _ := cmd.Flags().GetString("action")
			priznak, _ := cmd.Flags().GetString("priznak")

			rule := &model.TransferRule{
				Category:       category,
				ConditionType:  model.ConditionType(conditionType),
				ConditionField: field,
				ConditionValue: value,
				TransferAction: action,
				IsActive:       true,
			}
			if priznak != "" {
				p := model.Priznak(priznak)
				rule.PriznakValue = &p
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := engine.New(store).AddRule(ctx, rule); err != nil {
				return common.NewUserError("failed to add the rule", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d added at priority %d", rule.ID, rule.Priority)))
			return nil
		},
	}

	cmd.Flags().String("category", "", "rule category (required)")
	cmd.Flags().String("type", "", "condition type: EXACT_EQUALS, STARTS_WITH, CONTAINS, IS_EMPTY, ALWAYS_TRUE (required)")
	cmd.Flags().String("field", "", "record field the condition reads")
	cmd.Flags().String("value", "", "condition patterns, separated by ;")
	cmd.Flags().String("action", "", "transfer action: Transfer, TransferBatch, DoNotTransfer")
	cmd.Flags().String("priznak", "", "direct disposition, overrides the action mapping")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, _ := cmd.Flags().GetInt64("id")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRule(ctx, id); err != nil {
				return common.NewUserError("failed to delete the rule", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d deleted", id)))
			return nil
		},
	}

	cmd.Flags().Int64("id", 0, "rule ID (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func rulesToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Activate or deactivate a rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			id, _ := cmd.Flags().GetInt64("id")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rule, err := store.GetRuleByID(ctx, id)
			if err != nil {
				return common.NewUserError("failed to load the rule", err)
			}

			rule.IsActive = !rule.IsActive
			if err := store.UpdateRule(ctx, rule); err != nil {
				return common.NewUserError("failed to update the rule", err)
			}

			state := "activated"
			if !rule.IsActive {
				state = "deactivated"
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rule %d %s", id, state)))
			return nil
		},
	}

	cmd.Flags().Int64("id", 0, "rule ID (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
