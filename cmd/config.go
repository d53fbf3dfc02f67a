package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		fmt.Fprintln(out, ui.Meta("file: "+cfg.Path()))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting and save it.

Keys: ` + strings.Join(config.Keys(), ", ") + `

Examples:
  ykp config set approval_wait receipt
  ykp config set rpc_url https://evm-rpc.sei-apis.com`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s = %s", strings.ToLower(args[0]), args[1])))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configGetCmd, configSetCmd)
}
