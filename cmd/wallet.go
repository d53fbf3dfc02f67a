package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/ui"
	"github.com/Mohsinsiddi/ykp/internal/wallet"
)

var (
	walletKeyFlag     string
	walletAddressFlag string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage local wallets",
}

var walletImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Import a private key, or an address as watch-only",
	Long: `Import a signing wallet from a hex private key, or a watch-only wallet
from an address. The key is stored in the OS keychain (or an encrypted file
keyring on headless systems, unlocked with $YKP_KEYRING_PASSWORD).

Without --key or --address the private key is read from stdin.

Examples:
  ykp wallet import main
  ykp wallet import main --key 0x...
  ykp wallet import cold --address 0x...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		mgr := newWalletManager()

		if walletAddressFlag != "" {
			if err := mgr.AddWatchOnly(name, walletAddressFlag); err != nil {
				return err
			}
			w, err := mgr.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("Watch-only wallet %q added: %s", name, ui.Addr(w.Address))))
			return nil
		}

		key := walletKeyFlag
		if key == "" {
			fmt.Fprint(out, ui.Meta("Private key (hex): "))
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading key: %w", err)
			}
			key = strings.TrimSpace(line)
		}
		w, err := mgr.AddWithKey(name, key)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Signing wallet %q added: %s", name, ui.Addr(w.Address))))
		if w.IsDefault {
			fmt.Fprintln(out, ui.Meta("It is your default wallet."))
		} else {
			fmt.Fprintln(out, ui.Hint("Make it the default with: ykp wallet use "+name))
		}
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List wallets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		wallets, err := newWalletManager().List()
		if err != nil {
			return err
		}
		if len(wallets) == 0 {
			fmt.Fprintln(out, ui.Info("No wallets configured yet."))
			fmt.Fprintln(out, ui.Hint("Import one with: ykp wallet import <name>"))
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 16},
			{Title: "Address", Width: 42},
			{Title: "Type", Width: 10},
			{Title: "Default", Width: 7},
		})
		for _, w := range wallets {
			def := ""
			if w.IsDefault {
				def = "✓"
			}
			t.AddRow(ui.Row{w.Name, w.Address, w.Type, def})
		}
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%d wallet(s)", len(wallets))))
		return nil
	},
}

var walletRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a wallet and its stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := args[0]
		if !assumeYes && !ui.NewPrompter(os.Stdin, out).ConfirmDanger(fmt.Sprintf("Remove wallet %q?", name)) {
			fmt.Fprintln(out, ui.Meta("Cancelled."))
			return nil
		}
		if err := newWalletManager().Remove(name); err != nil {
			return err
		}
		if cfg.DefaultWallet == name {
			cfg.DefaultWallet = ""
			if err := cfg.Save(); err != nil {
				return err
			}
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("Wallet %q removed.", name)))
		return nil
	},
}

var walletUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if err := newWalletManager().SetDefault(name); err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				return fmt.Errorf("%w: %s", wallet.ErrWalletNotFound, name)
			}
			return err
		}
		cfg.DefaultWallet = name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("Default wallet set to %q.", name)))
		return nil
	},
}

func init() {
	walletImportCmd.Flags().StringVar(&walletKeyFlag, "key", "", "hex private key (prefer stdin so it stays out of shell history)")
	walletImportCmd.Flags().StringVar(&walletAddressFlag, "address", "", "import a watch-only address")
	walletImportCmd.MarkFlagsMutuallyExclusive("key", "address")
	walletCmd.AddCommand(walletImportCmd, walletListCmd, walletRemoveCmd, walletUseCmd)
}
