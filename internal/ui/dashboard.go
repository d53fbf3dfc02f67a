package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/Mohsinsiddi/ykp/internal/monitor"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

// TickMsg carries one poll result into the dashboard.
type TickMsg monitor.Tick

// FiatMsg carries the latest SEI fiat price. A zero price hides the row.
type FiatMsg struct {
	Price    decimal.Decimal
	Currency string
}

type spinMsg struct{}

// DashboardModel is the Bubble Tea model behind `ykp watch`.
type DashboardModel struct {
	Network     string
	Account     string // empty when watching without a wallet
	ExplorerURL string // opened with "o"
	Interval    time.Duration

	// Refresh, when set, is called for "r" to request an immediate poll.
	Refresh func()

	last     monitor.Tick
	errMsg   string
	fiat     FiatMsg
	frame    int
	flash    string
	Quitting bool
}

func dashSpin() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return spinMsg{} })
}

func (m DashboardModel) Init() tea.Cmd { return dashSpin() }

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.flash = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "r":
			if m.Refresh != nil {
				m.Refresh()
				m.flash = "Refreshing…"
			}
		case "o":
			if m.ExplorerURL == "" {
				m.flash = "No explorer URL available"
				break
			}
			openBrowser(m.ExplorerURL)
			m.flash = "Opening in browser…"
		case "c":
			if m.Account == "" {
				m.flash = "No wallet connected"
				break
			}
			if err := copyToClipboard(m.Account); err != nil {
				m.flash = "Copy failed"
			} else {
				m.flash = "Copied " + TruncateAddr(m.Account)
			}
		}

	case spinMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, dashSpin()

	case TickMsg:
		if msg.Err != nil {
			m.errMsg = trimErr(msg.Err.Error())
			break
		}
		m.errMsg = ""
		m.last = monitor.Tick(msg)

	case FiatMsg:
		m.fiat = msg
	}
	return m, nil
}

func (m DashboardModel) View() string {
	if m.Quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("YKP live  ·  "+m.Network) + "\n")

	spin := spinnerFrames[m.frame]
	switch {
	case m.errMsg != "":
		sb.WriteString(StyleError.Render("✗ last refresh failed: "+m.errMsg) + "\n")
	case m.last.Snapshot == nil:
		sb.WriteString(StyleInfo.Render(spin+" reading contracts…") + "\n")
	default:
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  updated %s · every %s", m.last.At.Format("15:04:05"), m.Interval)) + "\n")
	}
	sb.WriteString("\n")

	if s := m.last.Snapshot; s != nil {
		price := m.last.Price.StringFixed(6)
		pairs := [][2]string{
			{"YKP price", price + " LARRY"},
		}
		if !m.fiat.Price.IsZero() && m.last.Snapshot.LarryPrice != nil {
			ykpSei := m.last.Price.Mul(units.ToDecimal(s.LarryPrice))
			pairs = append(pairs, [2]string{"YKP value", ykpSei.Mul(m.fiat.Price).StringFixed(4) + " " + strings.ToUpper(m.fiat.Currency)})
		}
		pairs = append(pairs,
			[2]string{"Backing", amount(s.Backing) + " LARRY"},
			[2]string{"Supply", amount(s.TotalSupply) + " YKP"},
			[2]string{"Buy / sell fee", feeText(s.BuyFee) + " / " + feeText(s.SellFee)},
			[2]string{"Borrowed", amount(s.TotalBorrowed) + " LARRY"},
			[2]string{"Collateral", amount(s.TotalCollateral) + " YKP"},
			[2]string{"LARRY price", amount(s.LarryPrice) + " SEI"},
		)
		if len(s.Missing) > 0 {
			pairs = append(pairs, [2]string{"Unavailable", strings.Join(s.Missing, ", ")})
		}
		sb.WriteString(KeyValueBlock("Protocol", pairs) + "\n")
	}

	if b := m.last.Balances; b != nil {
		pairs := [][2]string{
			{"Account", m.Account},
			{"LARRY", amount(b.Larry)},
			{"YKP", amount(b.YKP)},
		}
		if l := m.last.Loan; l.Active() {
			pairs = append(pairs,
				[2]string{"Loan", amount(l.Borrowed) + " LARRY against " + amount(l.Collateral) + " YKP"},
				[2]string{"Loan ends", l.End().Format("2006-01-02 15:04")},
			)
		}
		sb.WriteString(KeyValueBlock("Wallet", pairs) + "\n")
	}

	if m.flash != "" {
		sb.WriteString(StyleSuccess.Render(m.flash) + "\n")
	}
	sb.WriteString(StyleMeta.Render("r refresh · o explorer · c copy address · q quit"))
	return sb.String()
}

func amount(n *big.Int) string {
	if n == nil {
		return "n/a"
	}
	return units.FormatFixed(n, 4)
}

// feeText renders a fee multiplier out of 1000 as the percentage kept.
func feeText(n *big.Int) string {
	if n == nil {
		return "n/a"
	}
	return decimal.NewFromBigInt(n, -1).String() + "%"
}

func trimErr(s string) string {
	if r := []rune(s); len(r) > 60 {
		return string(r[:60]) + "…"
	}
	return s
}
