package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
)

var borrowDays int

var borrowCmd = &cobra.Command{
	Use:   "borrow <larry>",
	Short: "Borrow LARRY against YKP collateral",
	Long: `Borrow <larry> LARRY for --days days. The YKP collateral needed
(borrowed / 0.99 at the current backing) is approved to the YKP contract
first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Borrow", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			snap, err := env.reader.Snapshot(ctx)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, collateral, err := env.builder().Borrow(snap, amt, borrowDays)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			return a, [][2]string{
				{"Borrow", fmtDec(amt) + " LARRY"},
				{"Duration", strconv.Itoa(borrowDays) + " days"},
				{"Collateral", fmtDec(collateral) + " YKP"},
				{"Interest", fmtDec(calc.InterestFee(amt, borrowDays)) + " LARRY"},
			}, nil
		})
	},
}

var borrowMoreCmd = &cobra.Command{
	Use:   "borrow-more <larry>",
	Short: "Borrow more LARRY against the existing collateral",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Borrow more", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			loan, snap, err := openLoan(ctx, env)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, err := env.builder().BorrowMore(loan, snap, amt)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			return a, [][2]string{{"Borrow", fmtDec(amt) + " LARRY"}}, nil
		})
	},
}

func init() {
	borrowCmd.Flags().IntVarP(&borrowDays, "days", "d", 30, "loan duration in days (1-365)")
}
