package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/txflow"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

var repayCmd = &cobra.Command{
	Use:   "repay <larry>",
	Short: "Repay part of the loan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Repay", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			loan, err := env.reader.Loan(ctx, env.account)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, err := env.builder().Repay(loan, amt)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			return a, [][2]string{
				{"Repay", fmtDec(amt) + " LARRY"},
				{"Remaining", fmtDec(units.ToDecimal(loan.Borrowed).Sub(amt)) + " LARRY"},
			}, nil
		})
	},
}
