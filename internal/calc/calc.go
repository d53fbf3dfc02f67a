// Package calc evaluates the buy, sell, leverage and loan formulas over a
// contract snapshot. All arithmetic is exact decimal; amounts are token
// units (not base units) and results are truncated to 18 fractional digits,
// except collateral minimums, which round up.
package calc

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

// Loan limits enforced by the contract.
const (
	MaxLoanDays = 365

	// DefaultLeverageFeeRate is the flat mint fee, out of 1000, used when the
	// contract does not report buy_fee_leverage.
	DefaultLeverageFeeRate = 100
)

var (
	ErrInvalidDays      = errors.New("loan duration must be between 1 and 365 days")
	ErrExtensionTooLong = errors.New("extension exceeds the 365-day loan cap")
	ErrLoanExpired      = errors.New("loan has expired")
	ErrNoLoan           = errors.New("no open loan")
	ErrNoMarketData     = errors.New("backing and supply are unavailable")
	ErrNonPositive      = errors.New("amount must be greater than zero")
)

var (
	feeScale      = decimal.NewFromInt(1000)
	fallbackRatio = decimal.RequireFromString("0.975")
	maxLTV        = decimal.RequireFromString("0.99")
	yearlyRate    = decimal.RequireFromString("0.039")
	dailyRate     = decimal.RequireFromString("0.001")
	daysPerYear   = decimal.NewFromInt(365)
	baseUnit      = decimal.New(1, -units.Decimals)
)

// Source says whether a quote came from live contract state.
type Source int

const (
	SourceLive Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "live"
}

// Quote is an amount receivable together with the fee taken. Fallback
// quotes must be shown as estimates.
type Quote struct {
	Amount decimal.Decimal
	Fee    decimal.Decimal
	Source Source
}

// Approximate reports whether q was computed from the static ratio.
func (q Quote) Approximate() bool { return q.Source == SourceFallback }

// BuyQuote returns the YKP received for larry LARRY:
// larry × supply/backing × buyFee/1000.
func BuyQuote(snap *protocol.Snapshot, larry decimal.Decimal) Quote {
	if !snap.Complete() {
		return fallbackQuote(larry)
	}
	gross := div(larry.Mul(dec(snap.TotalSupply)), dec(snap.Backing))
	net := div(gross.Mul(fee(snap.BuyFee)), feeScale)
	return Quote{Amount: net, Fee: gross.Sub(net), Source: SourceLive}
}

// SellQuote returns the LARRY received for ykp YKP:
// ykp × backing/supply × sellFee/1000.
func SellQuote(snap *protocol.Snapshot, ykp decimal.Decimal) Quote {
	if !snap.Complete() {
		return fallbackQuote(ykp)
	}
	gross := div(ykp.Mul(dec(snap.Backing)), dec(snap.TotalSupply))
	net := div(gross.Mul(fee(snap.SellFee)), feeScale)
	return Quote{Amount: net, Fee: gross.Sub(net), Source: SourceLive}
}

func fallbackQuote(amount decimal.Decimal) Quote {
	net := truncate(amount.Mul(fallbackRatio))
	return Quote{Amount: net, Fee: amount.Sub(net), Source: SourceFallback}
}

// LeverageFee is amount×feeRate/1000 plus InterestFee(amount, days).
func LeverageFee(amount decimal.Decimal, feeRate int64, days int) (decimal.Decimal, error) {
	if err := ValidateDuration(days); err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrNonPositive
	}
	mint := div(amount.Mul(decimal.NewFromInt(feeRate)), feeScale)
	return truncate(mint.Add(interest(amount, days))), nil
}

// LeverageQuote prices a leveraged position of amount LARRY. The fee rate
// comes from the snapshot, or DefaultLeverageFeeRate tagged as fallback.
func LeverageQuote(snap *protocol.Snapshot, amount decimal.Decimal, days int) (Quote, error) {
	rate, src := int64(DefaultLeverageFeeRate), SourceFallback
	if snap != nil && snap.LeverageFee != nil && snap.LeverageFee.Sign() > 0 && snap.LeverageFee.IsInt64() {
		rate, src = snap.LeverageFee.Int64(), SourceLive
	}
	f, err := LeverageFee(amount, rate, days)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Amount: amount, Fee: f, Source: src}, nil
}

// InterestFee is the accrual term: amount × (0.039×days/365 + 0.001×days).
func InterestFee(amount decimal.Decimal, days int) decimal.Decimal {
	return truncate(interest(amount, days))
}

func interest(amount decimal.Decimal, days int) decimal.Decimal {
	d := decimal.NewFromInt(int64(days))
	yearly := div(amount.Mul(yearlyRate).Mul(d), daysPerYear)
	return yearly.Add(amount.Mul(dailyRate).Mul(d))
}

// RequiredCollateral is the minimum collateral value, in backing units, for
// a loan of borrowed: borrowed / 0.99, rounded up to the next base unit so
// that value × 0.99 never falls short of borrowed.
func RequiredCollateral(borrowed decimal.Decimal) decimal.Decimal {
	return divCeil(borrowed, maxLTV)
}

// RequiredCollateralTokens converts RequiredCollateral into YKP at the
// snapshot's backing per token.
func RequiredCollateralTokens(borrowed decimal.Decimal, snap *protocol.Snapshot) (decimal.Decimal, error) {
	if !hasMarket(snap) {
		return decimal.Zero, ErrNoMarketData
	}
	value := RequiredCollateral(borrowed)
	return divCeil(value.Mul(dec(snap.TotalSupply)), dec(snap.Backing)), nil
}

// CollateralValue is the backing-unit value of ykp tokens.
func CollateralValue(ykp decimal.Decimal, snap *protocol.Snapshot) (decimal.Decimal, error) {
	if !hasMarket(snap) {
		return decimal.Zero, ErrNoMarketData
	}
	return div(ykp.Mul(dec(snap.Backing)), dec(snap.TotalSupply)), nil
}

// MaxRemovableCollateral is how much YKP can leave the loan while keeping
// collateral at or above borrowed/0.99. It is derived from the rounded-up
// minimum, so removing it never leaves the loan under-collateralised.
// Never negative.
func MaxRemovableCollateral(loan *protocol.Loan, snap *protocol.Snapshot) (decimal.Decimal, error) {
	if !loan.Active() {
		return decimal.Zero, ErrNoLoan
	}
	need, err := RequiredCollateralTokens(units.ToDecimal(loan.Borrowed), snap)
	if err != nil {
		return decimal.Zero, err
	}
	return floor(units.ToDecimal(loan.Collateral).Sub(need)), nil
}

// MaxBorrowMore is collateralValue × 0.99 − borrowed, never negative.
func MaxBorrowMore(loan *protocol.Loan, snap *protocol.Snapshot) (decimal.Decimal, error) {
	if !loan.Active() {
		return decimal.Zero, ErrNoLoan
	}
	value, err := CollateralValue(units.ToDecimal(loan.Collateral), snap)
	if err != nil {
		return decimal.Zero, err
	}
	return floor(truncate(value.Mul(maxLTV)).Sub(units.ToDecimal(loan.Borrowed))), nil
}

// MaxExtendDays is 365 minus the whole days left on the loan, counting a
// partial day as a full one.
func MaxExtendDays(loan *protocol.Loan, now time.Time) (int, error) {
	if !loan.Active() {
		return 0, ErrNoLoan
	}
	left := loan.End().Sub(now)
	if left <= 0 {
		return 0, ErrLoanExpired
	}
	day := 24 * time.Hour
	remaining := int((left + day - 1) / day)
	if remaining >= MaxLoanDays {
		return 0, nil
	}
	return MaxLoanDays - remaining, nil
}

// ValidateExtension rejects an extension of days that would push the loan
// past the 365-day cap.
func ValidateExtension(loan *protocol.Loan, days int, now time.Time) error {
	if days < 1 {
		return ErrInvalidDays
	}
	limit, err := MaxExtendDays(loan, now)
	if err != nil {
		return err
	}
	if days > limit {
		return fmt.Errorf("%w: at most %d more day(s)", ErrExtensionTooLong, limit)
	}
	return nil
}

// ValidateDuration checks a new loan length.
func ValidateDuration(days int) error {
	if days < 1 || days > MaxLoanDays {
		return ErrInvalidDays
	}
	return nil
}

// FlashCloseQuote is what closing the position by selling its collateral
// would return: SellQuote(collateral) − borrowed, never negative.
func FlashCloseQuote(loan *protocol.Loan, snap *protocol.Snapshot) (Quote, error) {
	if !loan.Active() {
		return Quote{}, ErrNoLoan
	}
	q := SellQuote(snap, units.ToDecimal(loan.Collateral))
	q.Amount = floor(q.Amount.Sub(units.ToDecimal(loan.Borrowed)))
	return q, nil
}

// Price is the YKP price in LARRY: the contract's lastPrice when reported,
// otherwise backing/supply.
func Price(snap *protocol.Snapshot) (decimal.Decimal, error) {
	if snap != nil && snap.LastPrice != nil && snap.LastPrice.Sign() > 0 {
		return dec(snap.LastPrice), nil
	}
	if !hasMarket(snap) {
		return decimal.Zero, ErrNoMarketData
	}
	return div(dec(snap.Backing), dec(snap.TotalSupply)), nil
}

func hasMarket(snap *protocol.Snapshot) bool {
	return snap != nil &&
		snap.TotalSupply != nil && snap.TotalSupply.Sign() > 0 &&
		snap.Backing != nil && snap.Backing.Sign() > 0
}

// dec lifts an 18-decimal base-unit amount.
func dec(n *big.Int) decimal.Decimal { return units.ToDecimal(n) }

// fee lifts a plain integer fee value.
func fee(n *big.Int) decimal.Decimal { return decimal.NewFromBigInt(n, 0) }

func div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, 2*units.Decimals).Truncate(units.Decimals)
}

// divCeil is a/b rounded up to 18 fractional digits. a and b are positive.
func divCeil(a, b decimal.Decimal) decimal.Decimal {
	q := div(a, b)
	if q.Mul(b).LessThan(a) {
		q = q.Add(baseUnit)
	}
	return q
}

func truncate(d decimal.Decimal) decimal.Decimal { return d.Truncate(units.Decimals) }

func floor(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
