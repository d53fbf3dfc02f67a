package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/ui"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

var loanCmd = &cobra.Command{
	Use:   "loan [address]",
	Short: "Show the open loan and what can still be done with it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var arg string
		if len(args) == 1 {
			arg = args[0]
		}
		addr, err := accountFor(arg)
		if err != nil {
			return err
		}
		env, err := newReadEnv()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd.Context(), config.RPCTimeout)
		defer cancel()

		var (
			snap *protocol.Snapshot
			loan *protocol.Loan
		)
		spin := ui.NewSpinner("Reading loan…").Start()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) { snap, err = env.reader.Snapshot(gctx); return })
		g.Go(func() (err error) { loan, err = env.reader.Loan(gctx, addr); return })
		err = g.Wait()
		spin.Stop()
		if err != nil {
			return err
		}

		if !loan.Active() {
			fmt.Fprintln(out, ui.Info("No open loan for "+addr.Hex()))
			fmt.Fprintln(out, ui.Hint("Open one with: ykp borrow <larry> --days <n>"))
			return nil
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Loan", loanPairs(loan, snap, time.Now())))
		return nil
	},
}

// loanPairs describes a loan and the limits derived from it. Limits that
// need market data show as unavailable rather than failing.
func loanPairs(loan *protocol.Loan, snap *protocol.Snapshot, now time.Time) [][2]string {
	pairs := [][2]string{
		{"Borrowed", units.FormatFixed(loan.Borrowed, 6) + " LARRY"},
		{"Collateral", units.FormatFixed(loan.Collateral, 6) + " YKP"},
		{"Term", strconv.FormatUint(loan.NumberOfDays, 10) + " days"},
		{"Ends", loan.End().Local().Format("2006-01-02 15:04 MST")},
	}

	switch days, err := calc.MaxExtendDays(loan, now); {
	case errors.Is(err, calc.ErrLoanExpired):
		pairs = append(pairs, [2]string{"Status", ui.Err("expired")})
	case err == nil:
		pairs = append(pairs, [2]string{"Extendable by", strconv.Itoa(days) + " days"})
	}

	limit := func(d fmt.Stringer, err error, unit string) string {
		if err != nil {
			return "unavailable"
		}
		return d.String() + " " + unit
	}
	more, err := calc.MaxBorrowMore(loan, snap)
	pairs = append(pairs, [2]string{"Can borrow", limit(more.Truncate(6), err, "LARRY")})
	free, err := calc.MaxRemovableCollateral(loan, snap)
	pairs = append(pairs, [2]string{"Removable", limit(free.Truncate(6), err, "YKP")})

	if q, err := calc.FlashCloseQuote(loan, snap); err == nil {
		pairs = append(pairs, [2]string{"Flash close", ui.Amount(fmtDec(q.Amount), "LARRY", q.Approximate())})
	}
	return pairs
}
