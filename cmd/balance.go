package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/ui"
	"github.com/Mohsinsiddi/ykp/internal/wallet"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show LARRY and YKP balances",
	Long: `Show the LARRY and YKP balances of an address, or of the selected
wallet when no address is given. Read-only: nothing is signed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		var arg string
		if len(args) == 1 {
			arg = args[0]
		}
		addr, err := accountFor(arg)
		if err != nil {
			return err
		}
		env, err := newReadEnv()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd.Context(), config.RPCTimeout)
		defer cancel()

		spin := ui.NewSpinner("Reading balances…").Start()
		b, err := env.reader.Balances(ctx, addr)
		spin.Stop()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%s on %s", addr.Hex(), env.net.DisplayName)))
		printBalances(out, b)
		return nil
	},
}

// accountFor returns addr when given, else the selected wallet's address.
func accountFor(addr string) (common.Address, error) {
	if addr != "" {
		if !common.IsHexAddress(addr) {
			return common.Address{}, fmt.Errorf("%w: %s", wallet.ErrInvalidAddress, addr)
		}
		return common.HexToAddress(addr), nil
	}
	w, err := newWalletManager().Resolve(walletFlag)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(w.Address), nil
}
