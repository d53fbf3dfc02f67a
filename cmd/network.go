package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/rpc"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Show or change the network",
}

var networkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chains := chain.NewRegistry().All()
		sort.Slice(chains, func(i, j int) bool { return chains[i].ChainID > chains[j].ChainID })

		t := ui.NewTable([]ui.Column{
			{Title: "Name", Width: 14},
			{Title: "Display", Width: 26},
			{Title: "Chain ID", Width: 9, Right: true},
			{Title: "RPC", Width: 40},
			{Title: "", Width: 7},
		})
		for _, c := range chains {
			cur := ""
			if c.Name == cfg.Network {
				cur = "current"
			}
			t.AddRow(ui.Row{c.Name, c.DisplayName, strconv.FormatInt(c.ChainID, 10), c.RPCs[0], cur})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var networkUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the default network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := chain.NewRegistry().GetByName(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Set("network", c.Name); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success("Default network set to "+ui.ChainName(c.DisplayName)))
		return nil
	},
}

var networkCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Benchmark the RPC endpoints and verify the contracts are deployed",
	Long: `Benchmark the network's RPC endpoints, check that the YKP and LARRY
contracts have code, and look for every write selector ykp sends in the
YKP contract's dispatcher.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		env, err := newReadEnv()
		if err != nil {
			return err
		}
		ctx, cancel := withTimeout(cmd.Context(), config.RPCTimeout)
		defer cancel()

		urls := env.net.RPCs
		if cfg.RPCURL != "" {
			urls = []string{cfg.RPCURL}
		}
		spin := ui.NewSpinner("Benchmarking endpoints…").Start()
		endpoints := rpc.Benchmark(ctx, urls)
		spin.Stop()

		best := rpc.BestBlock(endpoints)
		t := ui.NewTable([]ui.Column{
			{Title: "RPC", Width: 44},
			{Title: "Latency", Width: 9, Right: true},
			{Title: "Block", Width: 12, Right: true},
			{Title: "Status", Width: 12},
		})
		for _, e := range endpoints {
			latency, block := "-", "-"
			if e.Healthy() {
				latency = e.Latency.Round(time.Millisecond).String()
				block = strconv.FormatUint(e.BlockNumber, 10)
			}
			status := e.Status(best, env.net.ChainID)
			if e.URL == env.rpcURL {
				status += " *"
			}
			t.AddRow(ui.Row{e.URL, latency, block, status})
		}
		fmt.Fprintln(out, ui.KeyValueBlock("Network", [][2]string{
			{"Name", ui.ChainName(env.net.DisplayName)},
			{"Chain ID", strconv.FormatInt(env.net.ChainID, 10)},
		}))
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Meta("* in use"))

		if _, err := rpc.Fastest(endpoints, env.net.ChainID); err != nil {
			return fmt.Errorf("%s: %w", env.net.DisplayName, err)
		}
		if err := env.reader.Verify(ctx); err != nil {
			fmt.Fprintln(out, ui.Err(err.Error()))
			fmt.Fprintln(out, ui.Hint("Check ykp_address and larry_address with: ykp config show"))
			return nil
		}
		fmt.Fprintln(out, ui.Success("YKP and LARRY contracts are deployed"))

		missing, err := env.reader.Undispatched(ctx)
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			fmt.Fprintln(out, ui.Success("Every write selector is in the YKP bytecode"))
			return nil
		}
		sigs := make([]string, 0, len(missing))
		for _, e := range missing {
			sigs = append(sigs, e.Signature+" "+e.Selector)
		}
		fmt.Fprintln(out, ui.Warn("Not found in the YKP bytecode: "+strings.Join(sigs, ", ")))
		fmt.Fprintln(out, ui.Hint("Transactions using these selectors will likely revert"))
		return nil
	},
}

func init() {
	networkCmd.AddCommand(networkListCmd, networkUseCmd, networkCheckCmd)
}
