package commands

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newConvertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between currencies using cached rates",
		Example: `  budgetbuddy convert 100 EUR USD
  budgetbuddy convert 2500 JPY EUR`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}

			rt, err := openRuntime(cmd.Context(), runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			from, to := strings.ToUpper(args[1]), strings.ToUpper(args[2])
			conv, err := rt.converter.Convert(cmd.Context(), amount, from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s (rate %s)\n",
				amount.StringFixed(2), from, conv.Amount.StringFixed(2), to, conv.Rate.String())
			if conv.Stale {
				fmt.Fprintln(cmd.OutOrStdout(), "(exchange rate may be out of date)")
			}
			return nil
		},
	}
}
