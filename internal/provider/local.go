package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/logging"
)

// DefaultGasLimit is used when gas estimation fails.
const DefaultGasLimit uint64 = 350_000

// Signer holds the key for one account.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error)
}

// TxPreview is what the user is asked to approve before a transaction is
// signed.
type TxPreview struct {
	Chain    string
	From     common.Address
	To       common.Address
	Data     string
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// Approver asks the user to confirm a transaction. Returning false rejects
// it with code 4001.
type Approver func(ctx context.Context, tx TxPreview) (bool, error)

// LocalOption configures a Local provider.
type LocalOption func(*Local)

// WithApprover sets the confirmation hook. Without one every transaction
// is approved.
func WithApprover(a Approver) LocalOption { return func(l *Local) { l.approve = a } }

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) LocalOption { return func(l *Local) { l.log = logging.OrNop(log) } }

// WithRPCURL overrides the endpoint of the starting network.
func WithRPCURL(url string) LocalOption { return func(l *Local) { l.rpcURL = url } }

// Local is a wallet provider that keeps keys on this machine. It signs
// London transactions and broadcasts them through the current network's
// JSON-RPC endpoint.
type Local struct {
	mu        sync.Mutex
	reg       *chain.Registry
	net       *chain.Chain
	client    *chain.EVMClient
	signer    Signer
	connected bool
	rpcURL    string

	approve Approver
	log     *zap.Logger
	events  emitter
}

// NewLocal returns a provider on network net. signer may be nil, in which
// case account requests fail with ErrProviderAbsent.
func NewLocal(reg *chain.Registry, net *chain.Chain, signer Signer, opts ...LocalOption) *Local {
	l := &Local{reg: reg, net: net, signer: signer, log: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	url := l.rpcURL
	if url == "" && len(net.RPCs) > 0 {
		url = net.RPCs[0]
	}
	l.client = chain.NewEVMClient(url)
	return l
}

// Subscribe registers fn for account and chain events.
func (l *Local) Subscribe(fn func(Event)) func() { return l.events.subscribe(fn) }

// Network returns the network the provider is currently on.
func (l *Local) Network() *chain.Chain {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.net
}

// SetSigner switches the active account and emits accountsChanged.
func (l *Local) SetSigner(s Signer) {
	l.mu.Lock()
	l.signer = s
	accounts := l.accountsLocked()
	l.mu.Unlock()
	l.events.emit(Event{Kind: AccountsChanged, Accounts: accounts})
}

// Disconnect forgets the connection and emits an empty accountsChanged.
func (l *Local) Disconnect() {
	l.mu.Lock()
	l.connected = false
	l.mu.Unlock()
	l.events.emit(Event{Kind: AccountsChanged, Accounts: []string{}})
}

func (l *Local) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_requestAccounts":
		return l.requestAccounts()
	case "eth_accounts":
		l.mu.Lock()
		defer l.mu.Unlock()
		return json.Marshal(l.accountsLocked())
	case "eth_chainId":
		return json.Marshal(l.Network().HexID())
	case "wallet_switchEthereumChain":
		var p SwitchChainParams
		if err := decodeParam(params, 0, &p); err != nil {
			return nil, err
		}
		return l.switchChain(p.ChainID)
	case "wallet_addEthereumChain":
		var p chain.AddChainParams
		if err := decodeParam(params, 0, &p); err != nil {
			return nil, err
		}
		return l.addChain(p)
	case "eth_sendTransaction":
		var tx TxRequest
		if err := decodeParam(params, 0, &tx); err != nil {
			return nil, err
		}
		hash, err := l.sendTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hash)
	}

	l.mu.Lock()
	client := l.client
	l.mu.Unlock()
	return forward(ctx, client, method, params)
}

func (l *Local) requestAccounts() (json.RawMessage, error) {
	l.mu.Lock()
	if l.signer == nil {
		l.mu.Unlock()
		return nil, ErrProviderAbsent
	}
	first := !l.connected
	l.connected = true
	accounts := l.accountsLocked()
	l.mu.Unlock()

	if first {
		l.events.emit(Event{Kind: AccountsChanged, Accounts: accounts})
	}
	return json.Marshal(accounts)
}

func (l *Local) accountsLocked() []string {
	if !l.connected || l.signer == nil {
		return []string{}
	}
	return []string{l.signer.Address().Hex()}
}

func (l *Local) switchChain(hexID string) (json.RawMessage, error) {
	id, err := chain.ParseHexID(hexID)
	if err != nil {
		return nil, &Error{Code: -32602, Message: err.Error()}
	}
	next, err := l.reg.GetByChainID(id)
	if err != nil {
		return nil, &Error{Code: CodeUnrecognizedChain, Message: fmt.Sprintf("Unrecognized chain ID %q", hexID)}
	}

	l.mu.Lock()
	changed := l.net.ChainID != next.ChainID
	if changed {
		l.net = next
		l.client = chain.NewEVMClient(next.RPCs[0])
	}
	l.mu.Unlock()

	if changed {
		l.log.Info("switched network", zap.String("network", next.Name), zap.Int64("chain_id", next.ChainID))
		l.events.emit(Event{Kind: ChainChanged, ChainID: next.ChainID})
	}
	return json.RawMessage(`null`), nil
}

func (l *Local) addChain(p chain.AddChainParams) (json.RawMessage, error) {
	id, err := chain.ParseHexID(p.ChainID)
	if err != nil {
		return nil, &Error{Code: -32602, Message: err.Error()}
	}
	c := chain.Chain{
		Name:        strings.ToLower(strings.ReplaceAll(p.ChainName, " ", "-")),
		DisplayName: p.ChainName,
		ChainID:     id,
		Currency:    p.NativeCurrency,
		RPCs:        p.RPCURLs,
	}
	if len(p.BlockExplorerURLs) > 0 {
		c.Explorer = p.BlockExplorerURLs[0]
	}
	if err := l.reg.Add(c); err != nil {
		return nil, &Error{Code: -32602, Message: err.Error()}
	}
	return l.switchChain(p.ChainID)
}

// sendTransaction fills nonce, gas and fees, asks for approval, signs and
// broadcasts. It mirrors what a browser wallet does for eth_sendTransaction.
func (l *Local) sendTransaction(ctx context.Context, req TxRequest) (string, error) {
	l.mu.Lock()
	signer, connected, net, client := l.signer, l.connected, l.net, l.client
	l.mu.Unlock()

	if signer == nil {
		return "", ErrProviderAbsent
	}
	if !connected {
		return "", &Error{Code: CodeUnauthorized, Message: "account not connected"}
	}
	from := signer.Address()
	if req.From != "" && !strings.EqualFold(req.From, from.Hex()) {
		return "", &Error{Code: CodeUnauthorized, Message: "from address is not the connected account"}
	}
	if !common.IsHexAddress(req.To) {
		return "", &Error{Code: -32602, Message: fmt.Sprintf("invalid to address %q", req.To)}
	}
	to := common.HexToAddress(req.To)

	data, err := hexutil.Decode(orEmpty(req.Data))
	if err != nil {
		return "", &Error{Code: -32602, Message: "invalid data: " + err.Error()}
	}
	value := new(big.Int)
	if req.Value != "" {
		if value, err = hexutil.DecodeBig(req.Value); err != nil {
			return "", &Error{Code: -32602, Message: "invalid value: " + err.Error()}
		}
	}

	gas, err := l.gasLimit(ctx, client, req, from)
	if err != nil {
		return "", err
	}
	gasPrice, err := client.GasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("getting gas price: %w", err)
	}
	nonce, err := client.GetPendingNonce(ctx, from.Hex())
	if err != nil {
		return "", fmt.Errorf("getting nonce: %w", err)
	}

	if l.approve != nil {
		ok, err := l.approve(ctx, TxPreview{
			Chain: net.DisplayName, From: from, To: to, Data: req.Data,
			Value: value, Gas: gas, GasPrice: gasPrice,
		})
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &Error{Code: CodeUserRejected, Message: "User rejected the request."}
		}
	}

	chainID := big.NewInt(net.ChainID)
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasPrice,
		GasFeeCap: new(big.Int).Mul(gasPrice, big.NewInt(2)),
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	raw, err := signer.SignTx(tx, chainID)
	if err != nil {
		return "", fmt.Errorf("signing transaction: %w", err)
	}

	hash, err := client.SendRawTransaction(ctx, hexutil.Encode(raw))
	if err != nil {
		if pe, ok := asProviderError(err); ok {
			return "", pe
		}
		return "", fmt.Errorf("broadcasting transaction: %w", err)
	}
	l.log.Debug("transaction broadcast", zap.String("hash", hash), zap.Uint64("nonce", nonce), zap.Uint64("gas", gas))
	return hash, nil
}

func (l *Local) gasLimit(ctx context.Context, client *chain.EVMClient, req TxRequest, from common.Address) (uint64, error) {
	if req.Gas != "" {
		g, err := hexutil.DecodeUint64(req.Gas)
		if err != nil {
			return 0, &Error{Code: -32602, Message: "invalid gas: " + err.Error()}
		}
		return g, nil
	}
	var value *big.Int
	if req.Value != "" {
		value, _ = hexutil.DecodeBig(req.Value)
	}
	g, err := client.EstimateGas(ctx, from.Hex(), req.To, req.Data, value)
	if err != nil {
		l.log.Debug("gas estimation failed, using default", zap.Error(err), zap.Uint64("gas", DefaultGasLimit))
		return DefaultGasLimit, nil
	}
	return g, nil
}

func asProviderError(err error) (*Error, bool) {
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		return &Error{Code: rpcErr.Code, Message: rpcErr.Message}, true
	}
	return nil, false
}

func orEmpty(s string) string {
	if s == "" {
		return "0x"
	}
	return s
}
