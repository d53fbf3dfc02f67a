package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/units"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert between token amounts and 18-decimal base units",
}

var convertToWeiCmd = &cobra.Command{
	Use:   "to-wei <amount>",
	Short: "Token amount to base units, e.g. 1.5 → 1500000000000000000",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := units.DecimalToInteger(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n.String())
		return nil
	},
}

var convertFromWeiCmd = &cobra.Command{
	Use:   "from-wei <base-units>",
	Short: "Base units to a token amount, decimal or 0x hex",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := args[0]
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		n, ok := new(big.Int).SetString(s, base)
		if !ok || n.Sign() < 0 {
			return fmt.Errorf("%w: %q", units.ErrInvalidAmount, args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), units.IntegerToDecimal(n))
		return nil
	},
}

func init() {
	convertCmd.AddCommand(convertToWeiCmd, convertFromWeiCmd)
}
