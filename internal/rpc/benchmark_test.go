package rpc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ykp/internal/rpc"
	"github.com/Mohsinsiddi/ykp/internal/testutil"
)

func TestBenchmark(t *testing.T) {
	good := testutil.NewNode(t).Result("eth_blockNumber", "0x64").Result("eth_chainId", "0x531")
	wrongChain := testutil.NewNode(t).Result("eth_blockNumber", "0x64").Result("eth_chainId", "0x1")
	broken := testutil.NewNode(t).Fail("eth_blockNumber", -32000, "unavailable")

	got := rpc.Benchmark(context.Background(), []string{good.URL, wrongChain.URL, broken.URL})
	require.Len(t, got, 3)

	assert.Equal(t, good.URL, got[0].URL)
	assert.True(t, got[0].Healthy())
	assert.Equal(t, uint64(100), got[0].BlockNumber)
	assert.Equal(t, int64(1329), got[0].ChainID)

	assert.Equal(t, int64(1), got[1].ChainID)
	assert.False(t, got[2].Healthy())
	assert.Zero(t, broken.Count("eth_chainId"))
}

func TestBest(t *testing.T) {
	good := testutil.NewNode(t).Result("eth_blockNumber", "0x64").Result("eth_chainId", "0x531")
	broken := testutil.NewNode(t).Fail("eth_blockNumber", -32000, "unavailable")

	url, err := rpc.Best(context.Background(), []string{broken.URL, good.URL}, 1329)
	require.NoError(t, err)
	assert.Equal(t, good.URL, url)

	// One URL is used as is.
	url, err = rpc.Best(context.Background(), []string{broken.URL}, 1329)
	require.NoError(t, err)
	assert.Equal(t, broken.URL, url)
	assert.Equal(t, 1, broken.Count("eth_blockNumber"))

	_, err = rpc.Best(context.Background(), nil, 1329)
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)
}
