package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/abi"
	"github.com/Mohsinsiddi/ykp/internal/ui"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

var encodeTokens bool

var encodeCmd = &cobra.Command{
	Use:   "encode <signature> [args...]",
	Short: "Encode calldata for a function in the selector table",
	Long: `Encode calldata without sending it. Addresses are 0x-prefixed hex;
uint256 values are decimal integers or 0x hex. With --tokens, uint256
values are token amounts with up to 18 decimals.

Example:
  ykp encode "sell(uint256)" 1.5 --tokens`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := abi.Default()
		e, err := schema.Lookup(args[0])
		if err != nil {
			return err
		}
		inputs := e.Inputs()
		if len(inputs) != len(args)-1 {
			return fmt.Errorf("%w: %s takes %d argument(s), got %d", abi.ErrArgMismatch, e.Signature, len(inputs), len(args)-1)
		}

		params := make([]abi.Param, len(inputs))
		for i, typ := range inputs {
			p, err := parseParam(typ, args[i+1], encodeTokens)
			if err != nil {
				return fmt.Errorf("argument %d: %w", i+1, err)
			}
			params[i] = p
		}
		data, err := schema.EncodeCall(e.Signature, params...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, data)
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%s · %d bytes", e.Signature, (len(data)-2)/2)))
		return nil
	},
}

func parseParam(typ, arg string, tokens bool) (abi.Param, error) {
	switch typ {
	case abi.TypeAddress:
		return abi.Address(arg), nil
	case abi.TypeUint256:
		if tokens {
			n, err := units.DecimalToInteger(arg)
			if err != nil {
				return abi.Param{}, err
			}
			return abi.Uint256(n), nil
		}
		if strings.HasPrefix(arg, "0x") || strings.HasPrefix(arg, "0X") {
			return abi.Uint256Hex(arg), nil
		}
		n, ok := new(big.Int).SetString(arg, 10)
		if !ok || n.Sign() < 0 {
			return abi.Param{}, fmt.Errorf("%w: %q", abi.ErrInvalidUint, arg)
		}
		return abi.Uint256(n), nil
	}
	return abi.Param{}, fmt.Errorf("%w: unsupported type %q", abi.ErrArgMismatch, typ)
}

func init() {
	encodeCmd.Flags().BoolVar(&encodeTokens, "tokens", false, "read uint256 arguments as 18-decimal token amounts")
}
