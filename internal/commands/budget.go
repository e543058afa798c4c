package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/AnluYaens/budgetbuddy/internal/database/repository"
	"github.com/AnluYaens/budgetbuddy/internal/service"
)

func newBudgetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly category budgets",
	}
	cmd.AddCommand(newBudgetSetCommand())
	cmd.AddCommand(newBudgetListCommand())
	return cmd
}

func newBudgetSetCommand() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "set <category> <limit>",
		Short: "Set the budget limit for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q", args[1])
			}
			if period == "" {
				period = time.Now().UTC().Format("2006-01")
			} else if _, err := time.Parse("2006-01", period); err != nil {
				return fmt.Errorf("invalid period %q, want YYYY-MM", period)
			}

			rt, err := openRuntime(cmd.Context(), runtimeOptions{migrate: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			category, _ := rt.executor.Vocab.Normalize(args[0])
			res, err := rt.executor.Execute(cmd.Context(), service.Operation{
				Kind:   service.OpSetBudget,
				Budget: &service.SetBudget{Category: category, Limit: limit, Period: period},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "budget month as YYYY-MM (default: current month)")
	return cmd
}

func newBudgetListCommand() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show budgets and spend for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if period == "" {
				period = time.Now().UTC().Format("2006-01")
			}
			month, err := time.Parse("2006-01", period)
			if err != nil {
				return fmt.Errorf("invalid period %q, want YYYY-MM", period)
			}

			rt, err := openRuntime(cmd.Context(), runtimeOptions{migrate: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			budgets, err := rt.budgets.ListForPeriod(cmd.Context(), period)
			if err != nil {
				return err
			}
			spent, err := rt.expenses.SumBaseByCategoryForPeriod(cmd.Context(), repository.ExpenseFilters{
				From: month,
				To:   month.AddDate(0, 1, 0),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(budgets) == 0 {
				fmt.Fprintf(out, "No budgets set for %s\n", period)
				return nil
			}
			for _, b := range budgets {
				marker := " "
				if spent[b.Category].GreaterThan(b.Limit) {
					marker = "!"
				}
				fmt.Fprintf(out, "%s %-16s %10s / %-10s %s\n",
					marker, b.Category, spent[b.Category].StringFixed(2),
					b.Limit.StringFixed(2), b.BaseCurrency)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "budget month as YYYY-MM (default: current month)")
	return cmd
}
