package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/logging"
	"github.com/Mohsinsiddi/ykp/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/ykp/cmd.Version=1.2.3" .
var Version = "0.3.0"

var (
	cfgDir      string
	cfg         *config.Config
	log         *zap.Logger
	verbose     bool
	networkFlag string
	walletFlag  string
	rpcFlag     string
	assumeYes   bool
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "ykp",
	Short: "Trade and borrow against YKP from the terminal",
	Long: `ykp is a terminal client for YKP, the "never goes down" token on SEI EVM.

  Buy and sell YKP with LARRY, open leveraged positions, borrow LARRY
  against YKP collateral and manage the loan, all from a local wallet.

Every token-spending action sends an exact-amount approve first and then
the action itself; each signature is shown before it is sent.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if networkFlag != "" {
			cfg.Network = networkFlag
		}
		if rpcFlag != "" {
			cfg.RPCURL = rpcFlag
		}
		log, err = logging.New(logging.Options{
			Level:   cfg.LogLevel,
			Verbose: verbose,
			File:    cfg.LogFile,
			Console: cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("setting up logging: %w", err)
		}
		log.Debug("config loaded", zap.String("dir", cfg.Dir()), zap.String("network", cfg.Network))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run executes the CLI with args; errors are printed to errOut.
func run(args []string, out, errOut io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(errOut, ui.Err(userMessage(err)))
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(errOut, ui.Hint(hint))
		}
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $YKP_CONFIG_DIR or ~/.ykp)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network for this run (sei, sei-testnet)")
	rootCmd.PersistentFlags().StringVarP(&walletFlag, "wallet", "w", "", "wallet name (default: the default wallet)")
	rootCmd.PersistentFlags().StringVar(&rpcFlag, "rpc", "", "RPC endpoint override for this run")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "sign without asking for confirmation")

	rootCmd.AddCommand(
		initCmd,
		networkCmd,
		walletCmd,
		connectCmd,
		balanceCmd,
		stateCmd,
		loanCmd,
		quoteCmd,
		buyCmd,
		sellCmd,
		leverageCmd,
		borrowCmd,
		borrowMoreCmd,
		removeCollateralCmd,
		repayCmd,
		extendCmd,
		closeCmd,
		flashCloseCmd,
		watchCmd,
		selectorCmd,
		encodeCmd,
		convertCmd,
		configCmd,
	)
}
