package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/txflow"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var leverageDays int

var leverageCmd = &cobra.Command{
	Use:   "leverage <larry>",
	Short: "Open a leveraged YKP position",
	Long: `Open a leveraged position worth <larry> LARRY for --days days. Only
the fee (mint fee plus interest) is approved and paid up front.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Leverage", func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error) {
			snap, err := env.reader.Snapshot(ctx)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			a, q, err := env.builder().Leverage(snap, amt, leverageDays)
			if err != nil {
				return txflow.Action{}, nil, err
			}
			return a, [][2]string{
				{"Position", fmtDec(amt) + " LARRY"},
				{"Duration", strconv.Itoa(leverageDays) + " days"},
				{"You pay", ui.Amount(fmtDec(q.Fee), "LARRY", q.Approximate())},
			}, nil
		})
	},
}

func init() {
	leverageCmd.Flags().IntVarP(&leverageDays, "days", "d", 30, "position duration in days (1-365)")
}
