package trade_test

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ykp/internal/abi"
	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/trade"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

var (
	ykp     = common.HexToAddress("0xd3323f8e7556c6A5C3cF3A143eAbaF0dE59cC43b")
	larry   = common.HexToAddress("0x888d81e3ea5E8362B5f69188CBCF34Fa8da4b888")
	account = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func wei(s string) *big.Int { return units.MustDecimalToInteger(s) }

func word(n *big.Int) string { return strings.Repeat("0", 64-len(n.Text(16))) + n.Text(16) }

func addrWord(a common.Address) string {
	return strings.Repeat("0", 24) + strings.ToLower(a.Hex()[2:])
}

func builder() *trade.Builder { return trade.NewBuilder(ykp, larry, account) }

func market() *protocol.Snapshot {
	return &protocol.Snapshot{Backing: wei("1000"), TotalSupply: wei("500"), BuyFee: big.NewInt(975), SellFee: big.NewInt(975)}
}

func TestBuy(t *testing.T) {
	a, err := builder().Buy(d("1.5"))
	require.NoError(t, err)

	amt := wei("1.5")
	require.NotNil(t, a.Approve)
	assert.Equal(t, larry, a.Approve.To)
	assert.Equal(t, "0x095ea7b3"+addrWord(ykp)+word(amt), a.Approve.Data)

	assert.Equal(t, ykp, a.Primary.To)
	assert.Equal(t, "0xcce7ec13"+addrWord(account)+word(amt), a.Primary.Data)
	assert.Equal(t, "buy", a.Name)
}

func TestSellHasNoApproval(t *testing.T) {
	a, err := builder().Sell(d("2"))
	require.NoError(t, err)
	assert.Nil(t, a.Approve)
	assert.Equal(t, "0xe4849b32"+word(wei("2")), a.Primary.Data)
}

func TestRejectsNonPositiveAndDust(t *testing.T) {
	_, err := builder().Buy(d("0"))
	assert.ErrorIs(t, err, calc.ErrNonPositive)
	_, err = builder().Sell(d("-1"))
	assert.ErrorIs(t, err, calc.ErrNonPositive)
	_, err = builder().Buy(d("0.0000000000000000001"))
	assert.ErrorIs(t, err, trade.ErrTooSmall)
}

func TestLeverageApprovesFee(t *testing.T) {
	a, q, err := builder().Leverage(nil, d("1000"), 365)
	require.NoError(t, err)
	assert.True(t, q.Approximate())
	assert.True(t, d("504").Equal(q.Fee))

	assert.Equal(t, "0x095ea7b3"+addrWord(ykp)+word(wei("504")), a.Approve.Data)
	assert.Equal(t, "0x5e96263c"+word(wei("1000"))+word(big.NewInt(365)), a.Primary.Data)

	_, _, err = builder().Leverage(nil, d("1"), 400)
	assert.ErrorIs(t, err, calc.ErrInvalidDays)
}

func TestBorrowApprovesCollateral(t *testing.T) {
	a, collateral, err := builder().Borrow(market(), d("99"), 30)
	require.NoError(t, err)
	assert.True(t, d("50").Equal(collateral))

	assert.Equal(t, ykp, a.Approve.To)
	assert.Equal(t, "0x095ea7b3"+addrWord(ykp)+word(wei("50")), a.Approve.Data)
	assert.Equal(t, "0x0ecbcdab"+word(wei("99"))+word(big.NewInt(30)), a.Primary.Data)

	_, _, err = builder().Borrow(&protocol.Snapshot{}, d("99"), 30)
	assert.ErrorIs(t, err, calc.ErrNoMarketData)
}

func TestCollateralBoundsAtBaseUnitPrecision(t *testing.T) {
	even := &protocol.Snapshot{Backing: wei("1"), TotalSupply: wei("1"), BuyFee: big.NewInt(975), SellFee: big.NewInt(975)}

	a, collateral, err := builder().Borrow(even, d("1"), 30)
	require.NoError(t, err)
	assert.True(t, d("1.010101010101010102").Equal(collateral), "collateral %s", collateral)
	assert.Equal(t, "0x095ea7b3"+addrWord(ykp)+word(wei("1.010101010101010102")), a.Approve.Data)

	loan := &protocol.Loan{Collateral: wei("2"), Borrowed: wei("1")}
	_, err = builder().RemoveCollateral(loan, even, d("0.989898989898989898"))
	require.NoError(t, err)
	_, err = builder().RemoveCollateral(loan, even, d("0.989898989898989899"))
	assert.ErrorIs(t, err, trade.ErrExceedsMax)
}

func TestBorrowMoreAndRemoveAreBounded(t *testing.T) {
	loan := &protocol.Loan{Collateral: wei("80"), Borrowed: wei("99")}

	a, err := builder().BorrowMore(loan, market(), d("59.4"))
	require.NoError(t, err)
	assert.Nil(t, a.Approve)
	assert.Equal(t, "0x9d0bf2e9"+word(wei("59.4")), a.Primary.Data)

	_, err = builder().BorrowMore(loan, market(), d("59.5"))
	assert.ErrorIs(t, err, trade.ErrExceedsMax)

	a, err = builder().RemoveCollateral(loan, market(), d("30"))
	require.NoError(t, err)
	assert.Equal(t, "0x3237c158"+word(wei("30")), a.Primary.Data)

	_, err = builder().RemoveCollateral(loan, market(), d("30.000000000000000001"))
	assert.ErrorIs(t, err, trade.ErrExceedsMax)
}

func TestRepay(t *testing.T) {
	loan := &protocol.Loan{Collateral: wei("80"), Borrowed: wei("99")}
	a, err := builder().Repay(loan, d("10"))
	require.NoError(t, err)
	assert.Equal(t, larry, a.Approve.To)
	assert.Equal(t, "0x371fd8e6"+word(wei("10")), a.Primary.Data)

	_, err = builder().Repay(loan, d("100"))
	assert.ErrorIs(t, err, trade.ErrExceedsMax)
	_, err = builder().Repay(&protocol.Loan{}, d("1"))
	assert.ErrorIs(t, err, calc.ErrNoLoan)
}

func TestExtendLoan(t *testing.T) {
	now := time.Unix(1_750_000_000, 0)
	loan := &protocol.Loan{
		Collateral: wei("200"),
		Borrowed:   wei("365"),
		EndDate:    now.Add(30 * 24 * time.Hour).Unix(),
	}

	a, fee, err := builder().ExtendLoan(loan, 10, now)
	require.NoError(t, err)
	// 365 × (0.039×10/365 + 0.01) = 0.39 + 3.65
	assert.True(t, d("4.04").Equal(fee), fee.String())
	assert.Equal(t, "0x88a61dc3"+word(big.NewInt(10))+word(wei("4.04")), a.Primary.Data)
	assert.Equal(t, "0x095ea7b3"+addrWord(ykp)+word(wei("4.04")), a.Approve.Data)
}

func TestExtendBeyondCapIsRejectedBeforeEncoding(t *testing.T) {
	now := time.Unix(1_750_000_000, 0)
	loan := &protocol.Loan{Collateral: wei("200"), Borrowed: wei("100"), EndDate: now.Add(30 * 24 * time.Hour).Unix()}

	a, _, err := builder().ExtendLoan(loan, 336, now)
	assert.ErrorIs(t, err, calc.ErrExtensionTooLong)
	assert.Nil(t, a.Approve)
	assert.Empty(t, a.Primary.Data)
}

func TestClosePosition(t *testing.T) {
	loan := &protocol.Loan{Collateral: wei("200"), Borrowed: wei("99")}
	a, err := builder().ClosePosition(loan)
	require.NoError(t, err)
	assert.Equal(t, "0x095ea7b3"+addrWord(ykp)+word(wei("99")), a.Approve.Data)
	assert.Equal(t, "0xa126d601"+word(wei("99")), a.Primary.Data)
}

func TestFlashCloseIsComingSoon(t *testing.T) {
	loan := &protocol.Loan{Collateral: wei("200"), Borrowed: wei("99")}
	_, err := builder().FlashClose(loan)
	assert.ErrorIs(t, err, abi.ErrComingSoon)
}
