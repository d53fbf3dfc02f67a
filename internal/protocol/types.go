package protocol

import (
	"math/big"
	"time"
)

// Snapshot is one read of the YKP and LARRY contract state. Token amounts
// are 18-decimal base units; fee fields are plain integers out of 1000.
// A nil field means the contract returned no data for it.
type Snapshot struct {
	LastPrice       *big.Int
	TotalSupply     *big.Int
	Backing         *big.Int
	BuyFee          *big.Int
	SellFee         *big.Int
	LeverageFee     *big.Int
	TotalBorrowed   *big.Int
	TotalCollateral *big.Int

	LarryPrice  *big.Int
	LarrySupply *big.Int

	// Missing lists the signatures that came back empty.
	Missing []string
	At      time.Time
}

// Complete reports whether every field needed for live quotes is present
// and non-zero.
func (s *Snapshot) Complete() bool {
	if s == nil {
		return false
	}
	for _, v := range []*big.Int{s.TotalSupply, s.Backing, s.BuyFee, s.SellFee} {
		if v == nil || v.Sign() == 0 {
			return false
		}
	}
	return true
}

// Loan mirrors the contract's Loans(address) record.
type Loan struct {
	Collateral   *big.Int
	Borrowed     *big.Int
	EndDate      int64 // unix seconds
	NumberOfDays uint64
}

// Active reports whether the address has an open position.
func (l *Loan) Active() bool {
	return l != nil && l.Borrowed != nil && l.Borrowed.Sign() > 0
}

// End returns the loan's end date.
func (l *Loan) End() time.Time { return time.Unix(l.EndDate, 0) }

// Balances holds a wallet's token balances in base units.
type Balances struct {
	Larry *big.Int
	YKP   *big.Int
}
