package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AnluYaens/budgetbuddy/internal/testdata"
)

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "demo",
		Short:  "Fill the database with sample expenses and budgets",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), runtimeOptions{migrate: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := testdata.Seed(cmd.Context(), testdata.Repos{
				Expenses: rt.expenses,
				Budgets:  rt.budgets,
			}, rt.cfg.Currency.Home); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sample data loaded.")
			return nil
		},
	}
}
