package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/abi"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var selectorVerify bool

var selectorCmd = &cobra.Command{
	Use:   "selector [signature|selector|calldata]",
	Short: "Show the function selector table",
	Long: `Without arguments, list every function the client can call. With a
signature, print its selector; with a selector or calldata, print the
function it belongs to. Selectors come from the built-in table only.

--verify recomputes each selector with keccak256 and reports mismatches.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		schema := abi.Default()

		if selectorVerify {
			bad := schema.Verify()
			for _, e := range bad {
				fmt.Fprintln(out, ui.Err(fmt.Sprintf("%s: table has %s", e.Signature, e.Selector)))
			}
			if len(bad) > 0 {
				return fmt.Errorf("%d selector(s) do not match their signature", len(bad))
			}
			fmt.Fprintln(out, ui.Success(fmt.Sprintf("All %d selectors match their signatures.", len(schema.Entries()))))
			return nil
		}

		if len(args) == 1 {
			q := args[0]
			if strings.Contains(q, "(") {
				sel, err := schema.Selector(q)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, sel)
				return nil
			}
			e, ok := schema.BySelector(q)
			if !ok {
				return fmt.Errorf("%w: %s", abi.ErrUnknownSelector, q)
			}
			fmt.Fprintln(out, e.Signature)
			return nil
		}

		t := ui.NewTable([]ui.Column{
			{Title: "Selector", Width: 10},
			{Title: "Signature", Width: 38},
			{Title: "Kind", Width: 5},
			{Title: "Status", Width: 11},
		})
		for _, e := range schema.Entries() {
			status := string(e.Status)
			if e.Status == abi.StatusPending {
				status = "coming soon"
			}
			t.AddRow(ui.Row{e.Selector, e.Signature, string(e.Kind), status})
		}
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

func init() {
	selectorCmd.Flags().BoolVar(&selectorVerify, "verify", false, "recompute selectors and report mismatches")
}
