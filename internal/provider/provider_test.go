package provider_test

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/provider"
	"github.com/Mohsinsiddi/ykp/internal/testutil"
)

// Well-known development key (address 0xf39F...2266).
const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const ykp = "0xd3323f8e7556c6A5C3cF3A143eAbaF0dE59cC43b"

type keySigner struct{ key *ecdsa.PrivateKey }

func newKeySigner(t *testing.T) *keySigner {
	k, err := crypto.HexToECDSA(devKey)
	require.NoError(t, err)
	return &keySigner{key: k}
}

func (s *keySigner) Address() common.Address { return crypto.PubkeyToAddress(s.key.PublicKey) }

func (s *keySigner) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), s.key)
	if err != nil {
		return nil, err
	}
	return signed.MarshalBinary()
}

type recorder struct {
	mu     sync.Mutex
	events []provider.Event
}

func (r *recorder) add(e provider.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []provider.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]provider.Event(nil), r.events...)
}

// devnet registers a chain served by node and returns it.
func devnet(t *testing.T, reg *chain.Registry, id int64, node *testutil.Node) *chain.Chain {
	t.Helper()
	require.NoError(t, reg.Add(chain.Chain{
		Name: fmt.Sprintf("dev-%d", id), DisplayName: "Devnet", ChainID: id, RPCs: []string{node.URL},
	}))
	c, err := reg.GetByChainID(id)
	require.NoError(t, err)
	return c
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestErrorCodes(t *testing.T) {
	rejected := fmt.Errorf("approve: %w", &provider.Error{Code: provider.CodeUserRejected, Message: "denied"})
	assert.True(t, provider.IsUserRejected(rejected))
	assert.Equal(t, provider.CodeUserRejected, provider.Code(rejected))

	other := &provider.Error{Code: -32000, Message: "insufficient funds"}
	assert.False(t, provider.IsUserRejected(other))
	assert.Equal(t, 0, provider.Code(errors.New("plain")))
	assert.Contains(t, other.Error(), "insufficient funds")
}

func TestIsReverted(t *testing.T) {
	assert.True(t, provider.IsReverted(&provider.Error{Code: 3, Message: "execution reverted"}))
	assert.True(t, provider.IsReverted(fmt.Errorf("call: %w", &provider.Error{Code: -32000, Message: "execution reverted: no loan"})))
	assert.False(t, provider.IsReverted(&provider.Error{Code: -32000, Message: "header not found"}))
	assert.False(t, provider.IsReverted(errors.New("connection refused")))
}

// ---------------------------------------------------------------------------
// RPC provider
// ---------------------------------------------------------------------------

func TestRPCForwardsReads(t *testing.T) {
	node := testutil.NewNode(t).
		Result("eth_chainId", "0x531").
		OnCall(ykp, "0x18160ddd", testutil.Word("01"))
	p := provider.NewRPC(node.URL)

	id, err := provider.ChainID(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, chain.SeiMainnetID, id)

	raw, err := p.Request(context.Background(), "eth_call", map[string]string{"to": ykp, "data": "0x18160ddd"}, "latest")
	require.NoError(t, err)
	var out string
	require.NoError(t, provider.Decode(raw, &out))
	assert.Equal(t, testutil.Word("01"), out)
}

func TestRPCHasNoAccounts(t *testing.T) {
	p := provider.NewRPC("http://127.0.0.1:0")

	_, err := p.Request(context.Background(), "eth_requestAccounts")
	assert.ErrorIs(t, err, provider.ErrProviderAbsent)
	_, err = p.Request(context.Background(), "eth_sendTransaction", provider.TxRequest{To: ykp})
	assert.ErrorIs(t, err, provider.ErrProviderAbsent)

	raw, err := p.Request(context.Background(), "eth_accounts")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	_, err = p.Request(context.Background(), "wallet_switchEthereumChain", provider.SwitchChainParams{ChainID: "0x1"})
	assert.Equal(t, provider.CodeUnsupportedMethod, provider.Code(err))
}

func TestRPCMapsNodeErrors(t *testing.T) {
	node := testutil.NewNode(t).Fail("eth_call", 3, "execution reverted")
	_, err := provider.NewRPC(node.URL).Request(context.Background(), "eth_call", map[string]string{"to": ykp})
	assert.Equal(t, 3, provider.Code(err))
}

// ---------------------------------------------------------------------------
// Local provider: accounts and networks
// ---------------------------------------------------------------------------

func TestLocalRequestAccounts(t *testing.T) {
	node := testutil.NewNode(t)
	reg := chain.NewRegistry()
	net := devnet(t, reg, 31337, node)
	signer := newKeySigner(t)
	p := provider.NewLocal(reg, net, signer)

	rec := &recorder{}
	unsubscribe := p.Subscribe(rec.add)
	defer unsubscribe()

	raw, err := p.Request(context.Background(), "eth_accounts")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	raw, err = p.Request(context.Background(), "eth_requestAccounts")
	require.NoError(t, err)
	var accounts []string
	require.NoError(t, json.Unmarshal(raw, &accounts))
	assert.Equal(t, []string{signer.Address().Hex()}, accounts)

	// A second connect does not re-announce.
	_, err = p.Request(context.Background(), "eth_requestAccounts")
	require.NoError(t, err)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, provider.AccountsChanged, events[0].Kind)

	p.Disconnect()
	events = rec.all()
	require.Len(t, events, 2)
	assert.Empty(t, events[1].Accounts)
}

func TestLocalWithoutSignerIsAbsent(t *testing.T) {
	reg := chain.NewRegistry()
	sei, _ := reg.GetByName("sei")
	_, err := provider.NewLocal(reg, sei, nil).Request(context.Background(), "eth_requestAccounts")
	assert.ErrorIs(t, err, provider.ErrProviderAbsent)
}

func TestLocalSwitchChain(t *testing.T) {
	nodeA, nodeB := testutil.NewNode(t), testutil.NewNode(t)
	nodeB.Result("eth_blockNumber", "0x2a")
	reg := chain.NewRegistry()
	a := devnet(t, reg, 31337, nodeA)
	b := devnet(t, reg, 31338, nodeB)
	p := provider.NewLocal(reg, a, newKeySigner(t))

	rec := &recorder{}
	p.Subscribe(rec.add)

	_, err := p.Request(context.Background(), "wallet_switchEthereumChain", provider.SwitchChainParams{ChainID: b.HexID()})
	require.NoError(t, err)

	id, err := provider.ChainID(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(31338), id)

	// Reads now go to the new network's endpoint.
	_, err = p.Request(context.Background(), "eth_blockNumber")
	require.NoError(t, err)
	assert.Equal(t, 1, nodeB.Count("eth_blockNumber"))
	assert.Zero(t, nodeA.Count("eth_blockNumber"))

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, provider.Event{Kind: provider.ChainChanged, ChainID: 31338}, events[0])
}

func TestLocalSwitchUnknownChain(t *testing.T) {
	reg := chain.NewRegistry()
	sei, _ := reg.GetByName("sei")
	_, err := provider.NewLocal(reg, sei, nil).Request(context.Background(),
		"wallet_switchEthereumChain", map[string]string{"chainId": "0x7a69"})
	assert.Equal(t, provider.CodeUnrecognizedChain, provider.Code(err))
}

// ---------------------------------------------------------------------------
// EnsureNetwork
// ---------------------------------------------------------------------------

func TestEnsureNetworkAlreadyThere(t *testing.T) {
	reg := chain.NewRegistry()
	sei, _ := reg.GetByName("sei")
	require.NoError(t, provider.EnsureNetwork(context.Background(), provider.NewLocal(reg, sei, nil), sei))
}

func TestEnsureNetworkSwitches(t *testing.T) {
	reg := chain.NewRegistry()
	sei, _ := reg.GetByName("sei")
	testnet, _ := reg.GetByName("sei-testnet")
	p := provider.NewLocal(reg, testnet, nil)

	require.NoError(t, provider.EnsureNetwork(context.Background(), p, sei))
	assert.Equal(t, chain.SeiMainnetID, p.Network().ChainID)
}

func TestEnsureNetworkAddsUnknownChain(t *testing.T) {
	node := testutil.NewNode(t)
	reg := chain.NewRegistry()
	sei, _ := reg.GetByName("sei")
	p := provider.NewLocal(reg, sei, nil)

	want := &chain.Chain{
		Name: "arctic", DisplayName: "Arctic", ChainID: 713715,
		Currency: chain.NativeCurrency{Name: "SEI", Symbol: "SEI", Decimals: 18},
		RPCs:     []string{node.URL}, Explorer: "https://seitrace.com",
	}
	require.NoError(t, provider.EnsureNetwork(context.Background(), p, want))
	assert.Equal(t, int64(713715), p.Network().ChainID)

	added, err := reg.GetByChainID(713715)
	require.NoError(t, err)
	assert.Equal(t, "Arctic", added.DisplayName)
}

func TestEnsureNetworkReadOnlyFails(t *testing.T) {
	node := testutil.NewNode(t).Result("eth_chainId", "0x530")
	reg := chain.NewRegistry()
	sei, _ := reg.GetByName("sei")

	err := provider.EnsureNetwork(context.Background(), provider.NewRPC(node.URL), sei)
	assert.ErrorIs(t, err, provider.ErrWrongNetwork)
}

// ---------------------------------------------------------------------------
// Local provider: transactions
// ---------------------------------------------------------------------------

func txNode(t *testing.T) (*testutil.Node, *[]string) {
	var raws []string
	node := testutil.NewNode(t).
		Result("eth_gasPrice", "0x3b9aca00").
		Result("eth_getTransactionCount", "0x5").
		Fail("eth_estimateGas", 3, "execution reverted").
		Handle("eth_sendRawTransaction", func(params []json.RawMessage) (interface{}, *testutil.Error) {
			var raw string
			_ = json.Unmarshal(params[0], &raw)
			raws = append(raws, raw)
			return "0xfeed", nil
		})
	return node, &raws
}

func TestLocalSendTransaction(t *testing.T) {
	node, raws := txNode(t)
	reg := chain.NewRegistry()
	net := devnet(t, reg, 31337, node)
	signer := newKeySigner(t)

	var previews []provider.TxPreview
	p := provider.NewLocal(reg, net, signer, provider.WithApprover(func(_ context.Context, tx provider.TxPreview) (bool, error) {
		previews = append(previews, tx)
		return true, nil
	}))
	_, err := p.Request(context.Background(), "eth_requestAccounts")
	require.NoError(t, err)

	data := "0xe4849b32" + testutil.Word("0de0b6b3a7640000")[2:]
	raw, err := p.Request(context.Background(), "eth_sendTransaction", provider.TxRequest{
		From: signer.Address().Hex(), To: ykp, Data: data,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"0xfeed"`, string(raw))

	require.Len(t, previews, 1)
	assert.Equal(t, provider.DefaultGasLimit, previews[0].Gas)

	require.Len(t, *raws, 1)
	b, err := hexutil.Decode((*raws)[0])
	require.NoError(t, err)
	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(b))
	assert.Equal(t, uint64(5), tx.Nonce())
	assert.Equal(t, provider.DefaultGasLimit, tx.Gas())
	assert.Equal(t, common.HexToAddress(ykp), *tx.To())
	assert.Equal(t, data, hexutil.Encode(tx.Data()))
	assert.Equal(t, int64(31337), tx.ChainId().Int64())

	from, err := types.Sender(types.NewLondonSigner(tx.ChainId()), &tx)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)
}

func TestLocalSendExplicitGas(t *testing.T) {
	node, raws := txNode(t)
	reg := chain.NewRegistry()
	p := provider.NewLocal(reg, devnet(t, reg, 31337, node), newKeySigner(t))
	_, err := p.Request(context.Background(), "eth_requestAccounts")
	require.NoError(t, err)

	_, err = p.Request(context.Background(), "eth_sendTransaction", provider.TxRequest{To: ykp, Data: "0x", Gas: "0x55730"})
	require.NoError(t, err)

	b, _ := hexutil.Decode((*raws)[0])
	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(b))
	assert.Equal(t, uint64(350000), tx.Gas())
}

func TestLocalRejectedTransaction(t *testing.T) {
	node, raws := txNode(t)
	reg := chain.NewRegistry()
	p := provider.NewLocal(reg, devnet(t, reg, 31337, node), newKeySigner(t),
		provider.WithApprover(func(context.Context, provider.TxPreview) (bool, error) { return false, nil }))
	_, err := p.Request(context.Background(), "eth_requestAccounts")
	require.NoError(t, err)

	_, err = p.Request(context.Background(), "eth_sendTransaction", provider.TxRequest{To: ykp, Data: "0x"})
	require.Error(t, err)
	assert.True(t, provider.IsUserRejected(err))
	assert.Empty(t, *raws)
}

func TestLocalSendRequiresConnection(t *testing.T) {
	node, _ := txNode(t)
	reg := chain.NewRegistry()
	p := provider.NewLocal(reg, devnet(t, reg, 31337, node), newKeySigner(t))

	_, err := p.Request(context.Background(), "eth_sendTransaction", provider.TxRequest{To: ykp})
	assert.Equal(t, provider.CodeUnauthorized, provider.Code(err))
}

func TestLocalSendRejectsForeignFrom(t *testing.T) {
	node, _ := txNode(t)
	reg := chain.NewRegistry()
	p := provider.NewLocal(reg, devnet(t, reg, 31337, node), newKeySigner(t))
	_, _ = p.Request(context.Background(), "eth_requestAccounts")

	_, err := p.Request(context.Background(), "eth_sendTransaction", provider.TxRequest{From: ykp, To: ykp})
	assert.Equal(t, provider.CodeUnauthorized, provider.Code(err))
}
