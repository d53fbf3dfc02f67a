package cmd

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/monitor"
	"github.com/Mohsinsiddi/ykp/internal/quote"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [address]",
	Short: "Live dashboard of price, backing and your position",
	Long: `Refresh YKP state every watch_interval seconds (default 10). With a
wallet or address, balances and the open loan are shown too. The displayed
price never moves down between refreshes.

Keys: r refresh · o open explorer · c copy address · q quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newReadEnv()
		if err != nil {
			return err
		}

		opts := []monitor.Option{monitor.WithLogger(log)}
		var account string
		if len(args) == 1 || walletFlag != "" {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			addr, err := accountFor(arg)
			if err != nil {
				return err
			}
			account = addr.Hex()
		} else if w := newWalletManager().Default(); w != nil {
			account = w.Address
		}
		if account != "" {
			opts = append(opts, monitor.WithAccount(common.HexToAddress(account)))
		}
		poller := monitor.NewPoller(env.reader, opts...)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		refresh := make(chan struct{}, 1)
		m := ui.DashboardModel{
			Network:     env.net.DisplayName,
			Account:     account,
			ExplorerURL: env.net.AddressURL(env.ykp.Hex()),
			Interval:    cfg.Watch(),
			Refresh: func() {
				select {
				case refresh <- struct{}{}:
				default:
				}
			},
		}
		prog := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithOutput(cmd.OutOrStdout()), tea.WithContext(ctx))

		go func() {
			_ = poller.Run(ctx, cfg.Watch(), func(t monitor.Tick) { prog.Send(ui.TickMsg(t)) })
		}()
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-refresh:
					t, _ := poller.Poll(ctx)
					if ctx.Err() == nil {
						prog.Send(ui.TickMsg(t))
					}
				}
			}
		}()
		go watchFiat(ctx, prog, newQuoteClient())

		_, err = prog.Run()
		if err != nil && ctx.Err() != nil {
			return nil
		}
		return err
	},
}

// watchFiat sends the SEI fiat price once a minute while the quote API is
// enabled. Failures leave the last price on screen.
func watchFiat(ctx context.Context, prog *tea.Program, qc *quote.Client) {
	if !qc.Enabled() {
		return
	}
	for {
		if p, err := qc.Price(ctx, quote.SeiID); err == nil {
			prog.Send(ui.FiatMsg{Price: p, Currency: qc.Currency()})
		} else if ctx.Err() == nil {
			log.Info("fiat price unavailable", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(config.FiatRefreshInterval):
		}
	}
}
