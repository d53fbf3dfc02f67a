package cmd

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var quoteDays int

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Preview buys, sells, leverage and loans without sending anything",
	Long: `Preview what an action would return, from live contract state.

When the contract does not report backing, supply or fees, quotes fall
back to a flat 97.5% and are marked as estimates.

With swap_quote_url set, buy and sell quotes also show what the external
swap API offers for the same trade. That row is left out when the API
cannot be reached.`,
}

// snapshot reads contract state for a quote or action, with a spinner.
func snapshot(cmd *cobra.Command, env *readEnv) (*protocol.Snapshot, error) {
	ctx, cancel := withTimeout(cmd.Context(), config.RPCTimeout)
	defer cancel()
	spin := ui.NewSpinner("Reading contract state…").Start()
	defer spin.Stop()
	return env.reader.Snapshot(ctx)
}

// swapRow asks the swap-quote API for the same trade and renders it next to
// the contract's figure. ok is false when the API is off or fails.
func swapRow(cmd *cobra.Command, from, to common.Address, amt decimal.Decimal, contract calc.Quote, symbol string) ([2]string, bool) {
	qc := newQuoteClient()
	if !qc.SwapEnabled() {
		return [2]string{}, false
	}
	ctx, cancel := withTimeout(cmd.Context(), config.QuoteTimeout)
	defer cancel()
	ext, err := qc.Quote(ctx, from, to, amt)
	if err != nil {
		log.Debug("swap quote dropped", zap.Error(err))
		return [2]string{}, false
	}
	v := fmtDec(ext) + " " + symbol
	if contract.Amount.IsPositive() {
		diff := ext.Sub(contract.Amount).Div(contract.Amount).Shift(2)
		sign := ""
		if !diff.IsNegative() {
			sign = "+"
		}
		v += ui.Meta(fmt.Sprintf("  (%s%s%% vs contract)", sign, diff.StringFixed(2)))
	}
	return [2]string{"Swap API", v}, true
}

var quoteBuyCmd = &cobra.Command{
	Use:   "buy <larry>",
	Short: "YKP received for an amount of LARRY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		env, err := newReadEnv()
		if err != nil {
			return err
		}
		snap, err := snapshot(cmd, env)
		if err != nil {
			return err
		}
		q := calc.BuyQuote(snap, amt)
		pairs := [][2]string{
			{"Spend", fmtDec(amt) + " LARRY"},
			{"Receive", ui.Amount(fmtDec(q.Amount), "YKP", q.Approximate())},
			{"Fee", ui.Amount(fmtDec(q.Fee), "YKP", q.Approximate())},
		}
		if row, ok := swapRow(cmd, env.larry, env.ykp, amt, q, "YKP"); ok {
			pairs = append(pairs, row)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Buy quote", pairs))
		return nil
	},
}

var quoteSellCmd = &cobra.Command{
	Use:   "sell <ykp>",
	Short: "LARRY received for an amount of YKP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		env, err := newReadEnv()
		if err != nil {
			return err
		}
		snap, err := snapshot(cmd, env)
		if err != nil {
			return err
		}
		q := calc.SellQuote(snap, amt)
		pairs := [][2]string{
			{"Sell", fmtDec(amt) + " YKP"},
			{"Receive", ui.Amount(fmtDec(q.Amount), "LARRY", q.Approximate())},
			{"Fee", ui.Amount(fmtDec(q.Fee), "LARRY", q.Approximate())},
		}
		if row, ok := swapRow(cmd, env.ykp, env.larry, amt, q, "LARRY"); ok {
			pairs = append(pairs, row)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Sell quote", pairs))
		return nil
	},
}

var quoteLeverageCmd = &cobra.Command{
	Use:   "leverage <larry>",
	Short: "Fee for a leveraged position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		env, err := newReadEnv()
		if err != nil {
			return err
		}
		snap, err := snapshot(cmd, env)
		if err != nil {
			return err
		}
		q, err := calc.LeverageQuote(snap, amt, quoteDays)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Leverage quote", [][2]string{
			{"Position", fmtDec(amt) + " LARRY"},
			{"Duration", strconv.Itoa(quoteDays) + " days"},
			{"You pay", ui.Amount(fmtDec(q.Fee), "LARRY", q.Approximate())},
		}))
		return nil
	},
}

var quoteBorrowCmd = &cobra.Command{
	Use:   "borrow <larry>",
	Short: "Collateral and interest for a loan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amt, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		if err := calc.ValidateDuration(quoteDays); err != nil {
			return err
		}
		env, err := newReadEnv()
		if err != nil {
			return err
		}
		snap, err := snapshot(cmd, env)
		if err != nil {
			return err
		}
		collateral, err := calc.RequiredCollateralTokens(amt, snap)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Borrow quote", [][2]string{
			{"Borrow", fmtDec(amt) + " LARRY"},
			{"Duration", strconv.Itoa(quoteDays) + " days"},
			{"Collateral", fmtDec(collateral) + " YKP"},
			{"Interest", fmtDec(calc.InterestFee(amt, quoteDays)) + " LARRY"},
		}))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{quoteLeverageCmd, quoteBorrowCmd} {
		c.Flags().IntVarP(&quoteDays, "days", "d", 30, "loan duration in days (1-365)")
	}
	quoteCmd.AddCommand(quoteBuyCmd, quoteSellCmd, quoteLeverageCmd, quoteBorrowCmd)
}
