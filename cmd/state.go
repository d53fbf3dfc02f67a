package cmd

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/quote"
	"github.com/Mohsinsiddi/ykp/internal/ui"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show YKP protocol state: price, backing, supply and fees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		env, err := newReadEnv()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd.Context(), config.RPCTimeout)
		defer cancel()

		spin := ui.NewSpinner("Reading contract state…").Start()
		snap, err := env.reader.Snapshot(ctx)
		spin.Stop()
		if err != nil {
			return err
		}

		price := "unavailable"
		if p, err := calc.Price(snap); err == nil {
			price = fmtDec(p) + " LARRY"
			if v, ok := fiatValue(ctx, p, snap.LarryPrice); ok {
				price += "  " + ui.Meta(v)
			}
		}
		pairs := [][2]string{
			{"Network", ui.ChainName(env.net.DisplayName)},
			{"Contract", ui.Addr(env.ykp.Hex())},
			{"YKP price", price},
			{"Backing", amountOrDash(snap.Backing) + " LARRY"},
			{"Supply", amountOrDash(snap.TotalSupply) + " YKP"},
			{"Buy fee", feePercent(snap.BuyFee)},
			{"Sell fee", feePercent(snap.SellFee)},
			{"Leverage fee", feePercent(snap.LeverageFee)},
			{"Borrowed", amountOrDash(snap.TotalBorrowed) + " LARRY"},
			{"Collateral", amountOrDash(snap.TotalCollateral) + " YKP"},
			{"LARRY price", amountOrDash(snap.LarryPrice) + " SEI"},
		}
		fmt.Fprintln(out, ui.KeyValueBlock("YKP state", pairs))
		if len(snap.Missing) > 0 {
			fmt.Fprintln(out, ui.Warn("No data for: "+strings.Join(snap.Missing, ", ")))
			fmt.Fprintln(out, ui.Hint("Quotes fall back to the static 97.5% estimate until the contract reports them."))
		}
		return nil
	},
}

// fiatValue prices one YKP in fiat via LARRY and SEI. It reports false when
// the quote API is off or unreachable; that never fails the command.
func fiatValue(ctx context.Context, price decimal.Decimal, larryPrice *big.Int) (string, bool) {
	qc := newQuoteClient()
	if !qc.Enabled() || larryPrice == nil || larryPrice.Sign() == 0 {
		return "", false
	}
	sei, err := qc.Price(ctx, quote.SeiID)
	if err != nil {
		log.Info("fiat price unavailable", zap.Error(err))
		return "", false
	}
	v := price.Mul(units.ToDecimal(larryPrice)).Mul(sei)
	return "≈ " + v.StringFixed(4) + " " + strings.ToUpper(qc.Currency()), true
}

func amountOrDash(n *big.Int) string {
	if n == nil {
		return "n/a"
	}
	return units.FormatFixed(n, 4)
}

// feePercent renders a fee multiplier out of 1000 as the share kept.
func feePercent(n *big.Int) string {
	if n == nil {
		return "n/a"
	}
	return decimal.NewFromBigInt(n, -1).String() + "% kept"
}
