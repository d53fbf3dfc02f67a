package cmd

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
)

var extendDays int

var extendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Extend the loan by --days days",
	Long: `Extend the open loan, paying interest for the added days up front.
The total term can never pass 365 days from now; "ykp loan" shows how much
room is left.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, "Extend loan", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			loan, err := env.reader.Loan(ctx, env.account)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			now := time.Now()
			a, fee, err := env.builder().ExtendLoan(loan, extendDays, now)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			pairs := [][2]string{
				{"Add", strconv.Itoa(extendDays) + " days"},
				{"New end", loan.End().AddDate(0, 0, extendDays).Local().Format("2006-01-02 15:04")},
				{"Fee", fmtDec(fee) + " LARRY"},
			}
			if left, err := calc.MaxExtendDays(loan, now); err == nil {
				pairs = append(pairs, [2]string{"Room after", strconv.Itoa(left-extendDays) + " days"})
			}
			return a, pairs, nil
		})
	},
}

func init() {
	extendCmd.Flags().IntVarP(&extendDays, "days", "d", 0, "days to add")
	_ = extendCmd.MarkFlagRequired("days")
}
