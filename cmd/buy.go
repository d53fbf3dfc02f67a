package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var buyCmd = &cobra.Command{
	Use:   "buy <larry>",
	Short: "Buy YKP with LARRY",
	Long: `Buy YKP with LARRY. Sends approve(YKP, amount) on the LARRY token,
then buy(account, amount) on YKP.

Example:
  ykp buy 100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Buy", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			snap, err := env.reader.Snapshot(ctx)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, err := env.builder().Buy(amt)
			q := calc.BuyQuote(snap, amt)
			return a, [][2]string{
				{"Spend", fmtDec(amt) + " LARRY"},
				{"Receive", ui.Amount(fmtDec(q.Amount), "YKP", q.Approximate())},
			}, err
		})
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell <ykp>",
	Short: "Sell YKP for LARRY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Sell", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			snap, err := env.reader.Snapshot(ctx)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, err := env.builder().Sell(amt)
			q := calc.SellQuote(snap, amt)
			return a, [][2]string{
				{"Sell", fmtDec(amt) + " YKP"},
				{"Receive", ui.Amount(fmtDec(q.Amount), "LARRY", q.Approximate())},
			}, err
		})
	},
}
