package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet, switch to the right network and show balances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		ctx, cancel := withTimeout(cmd.Context(), config.RPCTimeout)
		defer cancel()

		spin := ui.NewSpinner("Connecting wallet…").Start()
		env, err := connect(ctx, out, false)
		spin.Stop()
		if err != nil {
			return err
		}
		st := env.session.State()

		kind := "signing"
		if env.wallet.Type != "signing" {
			kind = "watch-only"
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Connected", [][2]string{
			{"Wallet", fmt.Sprintf("%s (%s)", env.wallet.Name, kind)},
			{"Address", ui.Addr(st.Address.Hex())},
			{"Network", fmt.Sprintf("%s (%d)", ui.ChainName(env.net.DisplayName), st.ChainID)},
			{"Explorer", env.net.AddressURL(st.Address.Hex())},
		}))
		printBalances(out, st.Balances)
		return nil
	},
}
