package rpc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ykp/internal/rpc"
)

func ep(url string, latency time.Duration, block uint64) rpc.Endpoint {
	return rpc.Endpoint{URL: url, Latency: latency, BlockNumber: block, ChainID: 1329}
}

func TestFastestSelectsLowestLatency(t *testing.T) {
	endpoints := []rpc.Endpoint{
		ep("http://slow.rpc", 200*time.Millisecond, 100),
		ep("http://fast.rpc", 30*time.Millisecond, 100),
		ep("http://medium.rpc", 80*time.Millisecond, 100),
	}
	winner, err := rpc.Fastest(endpoints, 1329)
	require.NoError(t, err)
	assert.Equal(t, "http://fast.rpc", winner.URL)
}

func TestFastestSkipsStaleDownAndWrongChain(t *testing.T) {
	wrong := ep("http://other-chain.rpc", time.Millisecond, 1000)
	wrong.ChainID = 1
	down := ep("http://down.rpc", time.Millisecond, 0)
	down.Err = errors.New("connection refused")

	endpoints := []rpc.Endpoint{
		ep("http://fresh.rpc", 50*time.Millisecond, 1000),
		ep("http://stale.rpc", 10*time.Millisecond, 990),
		wrong,
		down,
	}
	winner, err := rpc.Fastest(endpoints, 1329)
	require.NoError(t, err)
	assert.Equal(t, "http://fresh.rpc", winner.URL)

	best := rpc.BestBlock(endpoints)
	assert.Equal(t, uint64(1000), best)
	assert.Equal(t, "stale", endpoints[1].Status(best, 1329))
	assert.Equal(t, "chain 1", endpoints[2].Status(best, 1329))
	assert.Equal(t, "down", endpoints[3].Status(best, 1329))

	// Without a chain requirement the fastest node wins.
	winner, err = rpc.Fastest(endpoints, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://other-chain.rpc", winner.URL)
}

func TestFastestAllowsSmallLag(t *testing.T) {
	endpoints := []rpc.Endpoint{
		ep("http://head.rpc", 120*time.Millisecond, 1000),
		ep("http://lagging.rpc", 20*time.Millisecond, 998),
	}
	winner, err := rpc.Fastest(endpoints, 1329)
	require.NoError(t, err)
	assert.Equal(t, "http://lagging.rpc", winner.URL)
}

func TestFastestNoneHealthy(t *testing.T) {
	_, err := rpc.Fastest(nil, 1329)
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)

	down := ep("http://down.rpc", 0, 0)
	down.Err = errors.New("timeout")
	_, err = rpc.Fastest([]rpc.Endpoint{down}, 1329)
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)
}
