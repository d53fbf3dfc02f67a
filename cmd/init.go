package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Create ~/.ykp/config.json with the SEI mainnet defaults and the deployed
YKP and LARRY contract addresses. Use --network to start on testnet.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Banner())

		if _, err := chain.NewRegistry().GetByName(cfg.Network); err != nil {
			return err
		}
		if cfg.Exists() && !initForce {
			fmt.Fprintln(out, ui.Info("Config already exists at "+cfg.Path()))
			fmt.Fprintln(out, ui.Hint("Overwrite with: ykp init --force"))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Fprintln(out, ui.Success("Config written to "+cfg.Path()))
		fmt.Fprintln(out, ui.Hint("Next: ykp wallet import <name>"))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")
}
