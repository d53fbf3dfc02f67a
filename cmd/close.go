package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/abi"
	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
	"github.com/Mohsinsiddi/ykp/internal/ui"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Repay the whole loan and release the collateral",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Close position", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			loan, err := env.reader.Loan(ctx, env.account)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, err := env.builder().ClosePosition(loan)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			return a, [][2]string{
				{"Repay", units.FormatFixed(loan.Borrowed, 6) + " LARRY"},
				{"Release", units.FormatFixed(loan.Collateral, 6) + " YKP"},
			}, nil
		})
	},
}

var flashCloseCmd = &cobra.Command{
	Use:   "flash-close",
	Short: "Close the position by selling its collateral (coming soon)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Fail before touching the wallet while the entry is pending.
		if _, err := abi.Default().Operation("flashClosePosition()"); err != nil {
			return err
		}
		return runAction(cmd, "Flash close", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			loan, snap, err := openLoan(ctx, env)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, err := env.builder().FlashClose(loan)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			q, err := calc.FlashCloseQuote(loan, snap)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			return a, [][2]string{
				{"Receive", ui.Amount(fmtDec(q.Amount), "LARRY", q.Approximate())},
			}, nil
		})
	},
}
