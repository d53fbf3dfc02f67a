package monitor_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/monitor"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/provider"
	"github.com/Mohsinsiddi/ykp/internal/testutil"
)

var (
	ykp   = common.HexToAddress("0xd3323f8e7556c6A5C3cF3A143eAbaF0dE59cC43b")
	larry = common.HexToAddress("0x888d81e3ea5E8362B5f69188CBCF34Fa8da4b888")
	user  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

const (
	oneToken = "de0b6b3a7640000"
	twoToken = "1bc16d674ec80000"
)

func market(t *testing.T) *testutil.Node {
	return testutil.NewNode(t).
		OnCall(ykp.Hex(), "0x18160ddd", testutil.Word(oneToken)).
		OnCall(ykp.Hex(), "0xc94220ab", testutil.Word(twoToken)).
		OnCall(ykp.Hex(), "0x8f818b90", testutil.Word("3cf")).
		OnCall(ykp.Hex(), "0xabd545bf", testutil.Word("3cf")).
		OnCall(ykp.Hex(), "0x70a08231", testutil.Word(oneToken)).
		OnCall(larry.Hex(), "0x70a08231", testutil.Word(twoToken))
}

func reader(node *testutil.Node) *protocol.Reader {
	return protocol.NewReader(provider.NewRPC(node.URL), ykp, larry, nil)
}

func TestPoll(t *testing.T) {
	node := market(t)
	p := monitor.NewPoller(reader(node), monitor.WithAccount(user))

	tick, err := p.Poll(context.Background())
	require.NoError(t, err)
	require.NoError(t, tick.Err)
	assert.True(t, tick.Snapshot.Complete())
	assert.Equal(t, "2000000000000000000", tick.Balances.Larry.String())
	assert.Equal(t, "1000000000000000000", tick.Balances.YKP.String())
	assert.False(t, tick.Loan.Active())
	assert.True(t, decimal.NewFromInt(2).Equal(tick.Price), tick.Price.String())
}

func TestPollWithoutAccount(t *testing.T) {
	node := market(t)
	tick, err := monitor.NewPoller(reader(node)).Poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tick.Balances)
	assert.Nil(t, tick.Loan)
	assert.Equal(t, 10, node.Count("eth_call"))
}

func TestPollPriceNeverDrops(t *testing.T) {
	node := market(t)
	floor := calc.NewPriceFloor(decimal.NewFromInt(3))
	tick, err := monitor.NewPoller(reader(node), monitor.WithFloor(floor)).Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(tick.Price))
}

func TestPollFloorStartsAtOne(t *testing.T) {
	// backing 1, supply 2: the contract price is 0.5 LARRY.
	node := testutil.NewNode(t).
		OnCall(ykp.Hex(), "0x18160ddd", testutil.Word(twoToken)).
		OnCall(ykp.Hex(), "0xc94220ab", testutil.Word(oneToken)).
		OnCall(ykp.Hex(), "0x8f818b90", testutil.Word("3cf")).
		OnCall(ykp.Hex(), "0xabd545bf", testutil.Word("3cf"))

	tick, err := monitor.NewPoller(reader(node), monitor.WithLogger(nil)).Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(tick.Price), "price %s", tick.Price)
}

func TestPollFailure(t *testing.T) {
	node := testutil.NewNode(t).Fail("eth_call", -32000, "node unavailable")
	tick, err := monitor.NewPoller(reader(node)).Poll(context.Background())
	require.Error(t, err)
	assert.Equal(t, err, tick.Err)
	assert.Nil(t, tick.Snapshot)
	assert.False(t, tick.At.IsZero())
}

func TestRunSkipsFailedTicks(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	node := market(t)
	// Calls fail until the first tick has been delivered.
	node.Handle("eth_call", func(params []json.RawMessage) (interface{}, *testutil.Error) {
		if failing.Load() {
			return nil, &testutil.Error{Code: -32000, Message: "flaky"}
		}
		return testutil.Word(oneToken), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		ticks []monitor.Tick
	)
	done := make(chan error, 1)
	go func() {
		done <- monitor.NewPoller(reader(node)).Run(ctx, 10*time.Millisecond, func(tk monitor.Tick) {
			mu.Lock()
			ticks = append(ticks, tk)
			n := len(ticks)
			mu.Unlock()
			failing.Store(false)
			if n == 2 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(ticks), 2)
	assert.Error(t, ticks[0].Err)
	assert.NoError(t, ticks[1].Err)
	assert.NotNil(t, ticks[1].Snapshot)
}

func TestRunStopsOnCancel(t *testing.T) {
	node := market(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := monitor.NewPoller(reader(node)).Run(ctx, time.Hour, func(monitor.Tick) {
		t.Error("no tick expected after cancellation")
	})
	assert.NoError(t, err)
}
