package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
)

var removeCollateralCmd = &cobra.Command{
	Use:   "remove-collateral <ykp>",
	Short: "Withdraw YKP collateral the loan no longer needs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Remove collateral", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			loan, snap, err := openLoan(ctx, env)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, err := env.builder().RemoveCollateral(loan, snap, amt)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			free, _ := calc.MaxRemovableCollateral(loan, snap)
			return a, [][2]string{
				{"Withdraw", fmtDec(amt) + " YKP"},
				{"Still removable", fmtDec(free.Sub(amt)) + " YKP"},
			}, nil
		})
	},
}
