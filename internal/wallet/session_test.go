package wallet_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/provider"
	"github.com/Mohsinsiddi/ykp/internal/testutil"
	"github.com/Mohsinsiddi/ykp/internal/wallet"
)

var (
	ykpAddr   = common.HexToAddress("0xd3323f8e7556c6A5C3cF3A143eAbaF0dE59cC43b")
	larryAddr = common.HexToAddress("0x888d81e3ea5E8362B5f69188CBCF34Fa8da4b888")
)

type sessionRig struct {
	session *wallet.Session
	local   *provider.Local
	want    *chain.Chain
	other   *chain.Chain
}

func newSessionRig(t *testing.T) *sessionRig {
	t.Helper()
	node := testutil.NewNode(t).
		OnCall(larryAddr.Hex(), "0x70a08231", testutil.Word("de0b6b3a7640000")).
		OnCall(ykpAddr.Hex(), "0x70a08231", testutil.Word("01"))
	otherNode := testutil.NewNode(t)

	reg := chain.NewRegistry()
	require.NoError(t, reg.Add(chain.Chain{Name: "target", ChainID: 31337, RPCs: []string{node.URL}}))
	require.NoError(t, reg.Add(chain.Chain{Name: "elsewhere", ChainID: 31338, RPCs: []string{otherNode.URL}}))
	want, _ := reg.GetByChainID(31337)
	other, _ := reg.GetByChainID(31338)

	keys := memKeys()
	mgr := wallet.NewManager(wallet.WithKeyStore(keys))
	w, err := mgr.AddWithKey("main", testPrivKeyHex)
	require.NoError(t, err)

	// Start on the wrong network so Connect has to switch.
	local := provider.NewLocal(reg, other, wallet.NewSigner(w, keys))
	reader := protocol.NewReader(local, ykpAddr, larryAddr, nil)
	return &sessionRig{
		session: wallet.NewSession(local, reader, want, nil),
		local:   local,
		want:    want,
		other:   other,
	}
}

func TestSessionConnect(t *testing.T) {
	rig := newSessionRig(t)
	require.NoError(t, rig.session.Connect(context.Background()))

	st := rig.session.State()
	assert.True(t, st.Connected)
	assert.True(t, st.Valid)
	assert.Equal(t, common.HexToAddress(testSignerAddr), st.Address)
	assert.Equal(t, int64(31337), st.ChainID)
	require.NotNil(t, st.Balances)
	assert.Equal(t, "1000000000000000000", st.Balances.Larry.String())
	assert.Equal(t, "1", st.Balances.YKP.String())
	assert.Equal(t, int64(31337), rig.local.Network().ChainID)
}

func TestSessionNetworkChangeInvalidates(t *testing.T) {
	rig := newSessionRig(t)
	require.NoError(t, rig.session.Connect(context.Background()))

	_, err := rig.local.Request(context.Background(), "wallet_switchEthereumChain", provider.SwitchChainParams{ChainID: rig.other.HexID()})
	require.NoError(t, err)

	st := rig.session.State()
	assert.True(t, st.Connected)
	assert.False(t, st.Valid)
	assert.Equal(t, int64(31338), st.ChainID)

	err = rig.session.Refresh(context.Background())
	assert.ErrorIs(t, err, provider.ErrWrongNetwork)

	_, err = rig.local.Request(context.Background(), "wallet_switchEthereumChain", provider.SwitchChainParams{ChainID: rig.want.HexID()})
	require.NoError(t, err)
	require.NoError(t, rig.session.Refresh(context.Background()))
	assert.True(t, rig.session.State().Valid)
}

func TestSessionAccountEvents(t *testing.T) {
	rig := newSessionRig(t)
	require.NoError(t, rig.session.Connect(context.Background()))

	rig.session.HandleEvent(provider.Event{Kind: provider.AccountsChanged, Accounts: []string{larryAddr.Hex()}})
	st := rig.session.State()
	assert.False(t, st.Valid)
	assert.Equal(t, larryAddr, st.Address)
	assert.Nil(t, st.Balances)

	rig.local.Disconnect()
	_, err := rig.session.Address()
	assert.ErrorIs(t, err, wallet.ErrNotConnected)
}

func TestSessionDisconnect(t *testing.T) {
	rig := newSessionRig(t)
	require.NoError(t, rig.session.Connect(context.Background()))
	rig.session.Disconnect()

	assert.False(t, rig.session.State().Connected)
	assert.ErrorIs(t, rig.session.Refresh(context.Background()), wallet.ErrNotConnected)

	// Events after disconnect are ignored.
	rig.session.HandleEvent(provider.Event{Kind: provider.ChainChanged, ChainID: 1})
	assert.Zero(t, rig.session.State().ChainID)
}

func TestSessionWithoutWallet(t *testing.T) {
	reg := chain.NewRegistry()
	sei, _ := reg.GetByName("sei")
	local := provider.NewLocal(reg, sei, nil)
	s := wallet.NewSession(local, protocol.NewReader(local, ykpAddr, larryAddr, nil), sei, nil)
	assert.ErrorIs(t, s.Connect(context.Background()), provider.ErrProviderAbsent)
}
