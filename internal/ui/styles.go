package ui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green, confirmed
	ColorWarning   = lipgloss.Color("#FFB800") // amber, estimates and cancellations
	ColorError     = lipgloss.Color("#FF4444")
	ColorAddress   = lipgloss.Color("#00B4D8") // addresses, hashes
	ColorValue     = lipgloss.Color("#FFFFFF")
	ColorMeta      = lipgloss.Color("#555555")
	ColorBorder    = lipgloss.Color("#1E3A5F")
	ColorBrand     = lipgloss.Color("#9B5DE5") // YKP purple
	ColorHighlight = lipgloss.Color("#F15BB5")
	ColorInfo      = lipgloss.Color("#7AA2F7")
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorBrand).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Underline(true)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorBrand).
			Bold(true).
			MarginBottom(1)
)

// Banner returns the ykp banner shown by `ykp init`.
func Banner() string {
	art := `
  ██╗   ██╗██╗  ██╗██████╗
  ╚██╗ ██╔╝██║ ██╔╝██╔══██╗
   ╚████╔╝ █████╔╝ ██████╔╝
    ╚██╔╝  ██╔═██╗ ██╔═══╝
     ██║   ██║  ██╗██║
     ╚═╝   ╚═╝  ╚═╝╚═╝`

	tagline := StyleMeta.Render("   the token that never goes down  ·  SEI EVM")
	return StyleChain.Render(art) + "\n" + tagline + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats a neutral status line.
func Info(msg string) string { return StyleInfo.Render("ℹ " + msg) }

// Hint formats a suggestion for what to run next.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a chain name.
func ChainName(c string) string { return StyleChain.Render(c) }

// Amount renders a token amount with its symbol. Estimated amounts get a
// "~" prefix and the warning color.
func Amount(v, symbol string, estimate bool) string {
	if estimate {
		return StyleWarning.Render("~"+v) + " " + StyleMeta.Render(symbol+" (estimate)")
	}
	return Val(v) + " " + StyleMeta.Render(symbol)
}

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
