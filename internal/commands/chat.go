package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnluYaens/budgetbuddy/internal/database/repository"
	"github.com/AnluYaens/budgetbuddy/internal/service"
)

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <command...>",
		Short: "Run one natural-language command and print the result",
		Example: `  budgetbuddy chat "I spent \$50 on groceries"
  budgetbuddy chat "how much did I spend on transport this month"
  budgetbuddy chat "delete expense 12"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), runtimeOptions{migrate: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			text := strings.Join(args, " ")
			op, err := rt.interpreter.Interpret(cmd.Context(), text)
			if err != nil {
				var perr *service.ParseError
				if errors.As(err, &perr) {
					fmt.Fprintln(cmd.OutOrStdout(), "Could not interpret that:", perr.Reason)
					return nil
				}
				return err
			}
			res, err := rt.executor.Execute(cmd.Context(), op)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "No such expense.")
					return nil
				}
				return err
			}
			printResult(cmd, res)
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, res service.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, res.Message)
	if res.Kind == service.OpQueryExpenses {
		for _, e := range res.Expenses {
			fmt.Fprintf(out, "  #%-4d %s  %-14s %-30s %10s %s\n",
				e.ID, e.Date.Format("2006-01-02"), e.Category, e.Description,
				e.Amount.StringFixed(2), e.Currency)
		}
	}
	if res.RateStale {
		fmt.Fprintln(out, "(exchange rate may be out of date)")
	}
}
