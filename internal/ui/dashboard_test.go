package ui

import (
	"errors"
	"math/big"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Mohsinsiddi/ykp/internal/monitor"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

func tick() TickMsg {
	return TickMsg(monitor.Tick{
		Snapshot: &protocol.Snapshot{
			Backing:     units.MustDecimalToInteger("1000"),
			TotalSupply: units.MustDecimalToInteger("500"),
			BuyFee:      big.NewInt(975),
			SellFee:     big.NewInt(975),
			LarryPrice:  units.MustDecimalToInteger("0.5"),
			Missing:     []string{"YKP.buy_fee_leverage()"},
		},
		Balances: &protocol.Balances{
			Larry: units.MustDecimalToInteger("12.5"),
			YKP:   units.MustDecimalToInteger("3"),
		},
		Loan: &protocol.Loan{
			Collateral: units.MustDecimalToInteger("100"),
			Borrowed:   units.MustDecimalToInteger("50"),
			EndDate:    time.Date(2026, 12, 1, 0, 0, 0, 0, time.Local).Unix(),
		},
		Price: decimal.NewFromInt(2),
		At:    time.Now(),
	})
}

func update(m DashboardModel, msg tea.Msg) DashboardModel {
	next, _ := m.Update(msg)
	return next.(DashboardModel)
}

func TestDashboardLoading(t *testing.T) {
	m := DashboardModel{Network: "SEI Network"}
	assert.Contains(t, m.View(), "reading contracts")
}

func TestDashboardRendersTick(t *testing.T) {
	m := update(DashboardModel{Network: "SEI Network", Account: "0xf39F"}, tick())
	view := m.View()
	assert.Contains(t, view, "2.000000 LARRY")
	assert.Contains(t, view, "1000.0000 LARRY")
	assert.Contains(t, view, "97.5% / 97.5%")
	assert.Contains(t, view, "12.5000")
	assert.Contains(t, view, "50.0000 LARRY against 100.0000 YKP")
	assert.Contains(t, view, "2026-12-01")
	assert.Contains(t, view, "buy_fee_leverage")
	assert.NotContains(t, view, "YKP value")
}

func TestDashboardFiatRow(t *testing.T) {
	m := update(DashboardModel{}, tick())
	m = update(m, FiatMsg{Price: decimal.RequireFromString("0.4"), Currency: "usd"})
	// 2 LARRY × 0.5 SEI × 0.4 USD
	assert.Contains(t, m.View(), "0.4000 USD")
}

func TestDashboardKeepsLastGoodTick(t *testing.T) {
	m := update(DashboardModel{}, tick())
	m = update(m, TickMsg(monitor.Tick{Err: errors.New("node unavailable")}))
	view := m.View()
	assert.Contains(t, view, "last refresh failed: node unavailable")
	assert.Contains(t, view, "2.000000 LARRY")

	m = update(m, tick())
	assert.NotContains(t, m.View(), "failed")
}

func TestDashboardKeys(t *testing.T) {
	refreshed := false
	m := DashboardModel{Refresh: func() { refreshed = true }}
	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.True(t, refreshed)
	assert.Contains(t, m.View(), "Refreshing")

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	assert.Contains(t, m.View(), "No wallet connected")

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	assert.Contains(t, m.View(), "No explorer URL")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
	assert.True(t, next.(DashboardModel).Quitting)
	assert.Empty(t, next.View())
}

func TestTrimErr(t *testing.T) {
	assert.Equal(t, "short", trimErr("short"))
	long := trimErr(string(make([]byte, 100)))
	assert.Equal(t, 61, len([]rune(long)))
}
