package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/provider"
	"github.com/Mohsinsiddi/ykp/internal/quote"
	"github.com/Mohsinsiddi/ykp/internal/rpc"
	"github.com/Mohsinsiddi/ykp/internal/trade"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
	"github.com/Mohsinsiddi/ykp/internal/ui"
	"github.com/Mohsinsiddi/ykp/internal/units"
	"github.com/Mohsinsiddi/ykp/internal/wallet"
)

// readEnv is what read-only commands need: a network and a contract reader
// over plain JSON-RPC.
type readEnv struct {
	reg    *chain.Registry
	net    *chain.Chain
	rpcURL string
	ykp    common.Address
	larry  common.Address
	reader *protocol.Reader
}

func newReadEnv() (*readEnv, error) {
	reg := chain.NewRegistry()
	net, err := reg.GetByName(cfg.Network)
	if err != nil {
		return nil, err
	}
	url := cfg.RPCURL
	if url == "" {
		url = pickRPC(net)
	}
	e := &readEnv{
		reg:    reg,
		net:    net,
		rpcURL: url,
		ykp:    common.HexToAddress(cfg.YKPAddress),
		larry:  common.HexToAddress(cfg.LarryAddress),
	}
	e.reader = protocol.NewReader(provider.NewRPC(url), e.ykp, e.larry, log)
	return e, nil
}

// pickRPC benchmarks the network's endpoints and returns the fastest,
// falling back to the first one when none answers in time.
func pickRPC(net *chain.Chain) string {
	ctx, cancel := context.WithTimeout(context.Background(), rpc.PingTimeout)
	defer cancel()
	url, err := rpc.Best(ctx, net.RPCs, net.ChainID)
	if err != nil {
		log.Info("rpc benchmark failed, using the default endpoint", zap.Error(err))
		return net.RPCs[0]
	}
	log.Debug("rpc selected", zap.String("url", url))
	return url
}

func (e *readEnv) names() map[common.Address]string {
	return map[common.Address]string{e.ykp: "YKP contract", e.larry: "LARRY token"}
}

// signEnv adds a connected local wallet on top of readEnv.
type signEnv struct {
	*readEnv
	wallet  *wallet.Wallet
	local   *provider.Local
	session *wallet.Session
	account common.Address
}

func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeyStore(lazyKeystore{dir: cfg.KeyringDir()}),
	)
}

// lazyKeystore defers opening the OS keychain until a key is touched, so
// listing or switching wallets never triggers an unlock prompt.
type lazyKeystore struct{ dir string }

func (l lazyKeystore) open() (*wallet.Keystore, error) { return wallet.OpenKeystore(l.dir) }

func (l lazyKeystore) Store(name, hexKey string) (string, error) {
	ks, err := l.open()
	if err != nil {
		return "", err
	}
	return ks.Store(name, hexKey)
}

func (l lazyKeystore) Retrieve(ref string) (string, error) {
	if k := os.Getenv(wallet.EnvPrivateKey); k != "" {
		return k, nil
	}
	ks, err := l.open()
	if err != nil {
		return "", err
	}
	return ks.Retrieve(ref)
}

func (l lazyKeystore) Delete(ref string) error {
	ks, err := l.open()
	if err != nil {
		return err
	}
	return ks.Delete(ref)
}

// connect resolves the wallet, wraps it in a local provider and runs the
// session handshake: accounts, network check, balances.
func connect(ctx context.Context, out io.Writer, requireSigning bool) (*signEnv, error) {
	re, err := newReadEnv()
	if err != nil {
		return nil, err
	}
	mgr := newWalletManager()
	w, err := mgr.Resolve(walletFlag)
	if err != nil {
		return nil, err
	}
	if requireSigning && w.Type != wallet.TypeSigning {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign: %w", w.Name, provider.ErrProviderAbsent)
	}

	prompter := ui.NewPrompter(os.Stdin, out)
	local := provider.NewLocal(re.reg, re.net, wallet.NewSigner(w, mgr.Keys()),
		provider.WithRPCURL(re.rpcURL),
		provider.WithApprover(prompter.TxApprover(re.names(), assumeYes)),
		provider.WithLogger(log),
	)
	// Signing and reads share the wallet's provider, as a browser dapp does.
	re.reader = protocol.NewReader(local, re.ykp, re.larry, log)

	session := wallet.NewSession(local, re.reader, re.net, log)
	if err := session.Connect(ctx); err != nil {
		return nil, err
	}
	addr, err := session.Address()
	if err != nil {
		return nil, err
	}
	return &signEnv{readEnv: re, wallet: w, local: local, session: session, account: addr}, nil
}

func (e *signEnv) builder() *trade.Builder { return trade.NewBuilder(e.ykp, e.larry, e.account) }

func dispatcherConfig(c *config.Config) (txflow.Config, error) {
	mode, err := txflow.ParseWaitMode(c.ApprovalWait)
	if err != nil {
		return txflow.Config{}, err
	}
	tc := txflow.DefaultConfig()
	tc.Wait = mode
	tc.Delay = c.ApprovalDelay()
	tc.ReceiptTimeout = config.TxConfirmTimeout
	return tc, nil
}

// send runs a through the dispatcher, prints progress, and refreshes
// balances afterwards. A rejected signature is reported, not returned.
func (e *signEnv) send(ctx context.Context, out io.Writer, a txflow.Action) error {
	tc, err := dispatcherConfig(cfg)
	if err != nil {
		return err
	}
	d := txflow.NewDispatcher(e.local, e.account,
		txflow.WithConfig(tc),
		txflow.WithObserver(ui.TxProgress(out, e.net.TxURL)),
		txflow.WithLogger(log),
	)
	if _, err := d.Run(ctx, a); err != nil {
		if errors.Is(err, txflow.ErrCancelled) {
			fmt.Fprintln(out, ui.Warn("Transaction cancelled by user"))
			return nil
		}
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(config.BalanceRefreshDelay):
	}
	if err := e.session.Refresh(ctx); err != nil {
		log.Info("balance refresh failed", zap.Error(err))
		return nil
	}
	printBalances(out, e.session.State().Balances)
	return nil
}

func printBalances(out io.Writer, b *protocol.Balances) {
	if b == nil {
		return
	}
	fmt.Fprintln(out, ui.KeyValueBlock("Balances", [][2]string{
		{"LARRY", units.FormatFixed(b.Larry, 4)},
		{"YKP", units.FormatFixed(b.YKP, 4)},
	}))
}

func newQuoteClient() *quote.Client {
	return quote.NewClient(cfg.QuoteAPIURL, "usd", config.QuoteTimeout,
		quote.WithLogger(log), quote.WithSwapURL(cfg.SwapQuoteURL))
}

// parseAmount reads a positive decimal token amount from user input.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := units.ParseDecimal(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be greater than zero", units.ErrInvalidAmount)
	}
	return d, nil
}

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, d)
}

func fmtDec(d decimal.Decimal) string {
	return d.Truncate(6).String()
}
