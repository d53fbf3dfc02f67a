// Package trade turns validated user inputs into txflow actions.
package trade

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Mohsinsiddi/ykp/internal/abi"
	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

var (
	ErrTooSmall   = errors.New("amount rounds to zero base units")
	ErrExceedsMax = errors.New("amount exceeds the safe maximum")
)

// Builder encodes actions for one account.
type Builder struct {
	schema  *abi.Schema
	ykp     common.Address
	larry   common.Address
	account common.Address
}

// NewBuilder returns a builder sending from account.
func NewBuilder(ykp, larry, account common.Address) *Builder {
	return &Builder{schema: abi.Default(), ykp: ykp, larry: larry, account: account}
}

// Buy spends larry LARRY on YKP for the account.
func (b *Builder) Buy(larry decimal.Decimal) (txflow.Action, error) {
	amt, err := baseUnits(larry)
	if err != nil {
		return txflow.Action{}, err
	}
	return b.withApproval("buy", b.larry, amt, "buy(address,uint256)",
		abi.Address(b.account.Hex()), abi.Uint256(amt))
}

// Sell redeems ykp YKP for LARRY. Selling burns the caller's own tokens,
// so no approval is needed.
func (b *Builder) Sell(ykp decimal.Decimal) (txflow.Action, error) {
	amt, err := baseUnits(ykp)
	if err != nil {
		return txflow.Action{}, err
	}
	return b.direct("sell", "sell(uint256)", abi.Uint256(amt))
}

// Leverage opens a leveraged position of larry LARRY for days. The account
// pays only the fee, so that is what gets approved.
func (b *Builder) Leverage(snap *protocol.Snapshot, larry decimal.Decimal, days int) (txflow.Action, calc.Quote, error) {
	amt, err := baseUnits(larry)
	if err != nil {
		return txflow.Action{}, calc.Quote{}, err
	}
	q, err := calc.LeverageQuote(snap, larry, days)
	if err != nil {
		return txflow.Action{}, calc.Quote{}, err
	}
	a, err := b.withApproval("leverage", b.larry, units.FromDecimal(q.Fee), "leverage(uint256,uint256)",
		abi.Uint256(amt), abi.Uint64(uint64(days)))
	return a, q, err
}

// Borrow takes a loan of larry LARRY for days against YKP collateral worth
// larry/0.99; the collateral is approved to the YKP contract first.
func (b *Builder) Borrow(snap *protocol.Snapshot, larry decimal.Decimal, days int) (txflow.Action, decimal.Decimal, error) {
	if err := calc.ValidateDuration(days); err != nil {
		return txflow.Action{}, decimal.Zero, err
	}
	amt, err := baseUnits(larry)
	if err != nil {
		return txflow.Action{}, decimal.Zero, err
	}
	collateral, err := calc.RequiredCollateralTokens(larry, snap)
	if err != nil {
		return txflow.Action{}, decimal.Zero, err
	}
	a, err := b.withApproval("borrow", b.ykp, units.FromDecimal(collateral), "borrow(uint256,uint256)",
		abi.Uint256(amt), abi.Uint64(uint64(days)))
	return a, collateral, err
}

// BorrowMore draws more LARRY against the existing collateral.
func (b *Builder) BorrowMore(loan *protocol.Loan, snap *protocol.Snapshot, larry decimal.Decimal) (txflow.Action, error) {
	limit, err := calc.MaxBorrowMore(loan, snap)
	if err != nil {
		return txflow.Action{}, err
	}
	amt, err := bounded(larry, limit)
	if err != nil {
		return txflow.Action{}, err
	}
	return b.direct("borrow-more", "borrowMore(uint256)", abi.Uint256(amt))
}

// RemoveCollateral withdraws ykp YKP from the loan.
func (b *Builder) RemoveCollateral(loan *protocol.Loan, snap *protocol.Snapshot, ykp decimal.Decimal) (txflow.Action, error) {
	limit, err := calc.MaxRemovableCollateral(loan, snap)
	if err != nil {
		return txflow.Action{}, err
	}
	amt, err := bounded(ykp, limit)
	if err != nil {
		return txflow.Action{}, err
	}
	return b.direct("remove-collateral", "removeCollateral(uint256)", abi.Uint256(amt))
}

// Repay pays back larry LARRY of the loan.
func (b *Builder) Repay(loan *protocol.Loan, larry decimal.Decimal) (txflow.Action, error) {
	if !loan.Active() {
		return txflow.Action{}, calc.ErrNoLoan
	}
	amt, err := bounded(larry, units.ToDecimal(loan.Borrowed))
	if err != nil {
		return txflow.Action{}, err
	}
	return b.withApproval("repay", b.larry, amt, "repay(uint256)", abi.Uint256(amt))
}

// ExtendLoan adds days to the loan, paying the interest for them. Extensions
// past the 365-day cap are rejected here, before anything is sent.
func (b *Builder) ExtendLoan(loan *protocol.Loan, days int, now time.Time) (txflow.Action, decimal.Decimal, error) {
	if err := calc.ValidateExtension(loan, days, now); err != nil {
		return txflow.Action{}, decimal.Zero, err
	}
	fee := calc.InterestFee(units.ToDecimal(loan.Borrowed), days)
	feeWei := units.FromDecimal(fee)
	a, err := b.withApproval("extend", b.larry, feeWei, "extendLoan(uint256,uint256)",
		abi.Uint64(uint64(days)), abi.Uint256(feeWei))
	return a, fee, err
}

// ClosePosition repays the whole loan and releases the collateral.
func (b *Builder) ClosePosition(loan *protocol.Loan) (txflow.Action, error) {
	if !loan.Active() {
		return txflow.Action{}, calc.ErrNoLoan
	}
	return b.withApproval("close", b.larry, loan.Borrowed, "closePosition(uint256)", abi.Uint256(loan.Borrowed))
}

// FlashClose closes the position by selling its collateral in one call.
func (b *Builder) FlashClose(loan *protocol.Loan) (txflow.Action, error) {
	if !loan.Active() {
		return txflow.Action{}, calc.ErrNoLoan
	}
	return b.direct("flash-close", "flashClosePosition()")
}

func (b *Builder) direct(name, sig string, params ...abi.Param) (txflow.Action, error) {
	data, err := b.schema.EncodeOperation(sig, params...)
	if err != nil {
		return txflow.Action{}, fmt.Errorf("%s: %w", name, err)
	}
	return txflow.Action{Name: name, Primary: txflow.Call{To: b.ykp, Data: data}}, nil
}

// withApproval prefixes the primary call with token.approve(ykp, amount).
func (b *Builder) withApproval(name string, token common.Address, amount *big.Int, sig string, params ...abi.Param) (txflow.Action, error) {
	a, err := b.direct(name, sig, params...)
	if err != nil {
		return txflow.Action{}, err
	}
	approve, err := b.schema.EncodeOperation("approve(address,uint256)", abi.Address(b.ykp.Hex()), abi.Uint256(amount))
	if err != nil {
		return txflow.Action{}, fmt.Errorf("%s approve: %w", name, err)
	}
	a.Approve = &txflow.Call{To: token, Data: approve}
	return a, nil
}

func baseUnits(d decimal.Decimal) (*big.Int, error) {
	if !d.IsPositive() {
		return nil, calc.ErrNonPositive
	}
	n := units.FromDecimal(d)
	if n.Sign() == 0 {
		return nil, ErrTooSmall
	}
	return n, nil
}

func bounded(d, limit decimal.Decimal) (*big.Int, error) {
	n, err := baseUnits(d)
	if err != nil {
		return nil, err
	}
	if d.GreaterThan(limit) {
		return nil, fmt.Errorf("%w: at most %s", ErrExceedsMax, limit.String())
	}
	return n, nil
}
