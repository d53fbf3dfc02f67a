package chain_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const larry = "0x888d81e3ea5E8362B5f69188CBCF34Fa8da4b888"

func TestChainID(t *testing.T) {
	node := testutil.NewNode(t).Result("eth_chainId", "0x531")

	id, err := chain.NewEVMClient(node.URL).ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, chain.SeiMainnetID, id)
}

func TestBlockNumberAndPing(t *testing.T) {
	node := testutil.NewNode(t).Result("eth_blockNumber", "0x10")
	c := chain.NewEVMClient(node.URL)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)

	_, block, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), block)
}

func TestRPCErrorIsTyped(t *testing.T) {
	node := testutil.NewNode(t).Fail("eth_call", 3, "execution reverted: loan expired")

	_, err := chain.NewEVMClient(node.URL).Call(context.Background(), "eth_call", map[string]string{"to": larry, "data": "0x"}, "latest")
	require.Error(t, err)

	var rpcErr *chain.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 3, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "loan expired")
}

func TestUnknownMethod(t *testing.T) {
	node := testutil.NewNode(t)
	_, err := chain.NewEVMClient(node.URL).GasPrice(context.Background())

	var rpcErr *chain.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestNonceGasAndEstimate(t *testing.T) {
	node := testutil.NewNode(t).
		Result("eth_getTransactionCount", "0x7").
		Result("eth_gasPrice", "0x3b9aca00").
		Result("eth_estimateGas", "0x5208")
	c := chain.NewEVMClient(node.URL)
	ctx := context.Background()

	nonce, err := c.GetPendingNonce(ctx, larry)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	gp, err := c.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), gp.Int64())

	gas, err := c.EstimateGas(ctx, larry, larry, "0x", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)
}

func TestSendRawTransaction(t *testing.T) {
	node := testutil.NewNode(t).Result("eth_sendRawTransaction", "0xabc")
	hash, err := chain.NewEVMClient(node.URL).SendRawTransaction(context.Background(), "0x02f8")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", hash)
}

// ---------------------------------------------------------------------------
// Receipts
// ---------------------------------------------------------------------------

func TestGetTransactionReceiptPending(t *testing.T) {
	node := testutil.NewNode(t).Result("eth_getTransactionReceipt", nil)
	r, err := chain.GetTransactionReceipt(context.Background(), chain.NewEVMClient(node.URL).Call, "0xhash")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestWaitForReceiptPollsUntilMined(t *testing.T) {
	polls := 0
	node := testutil.NewNode(t).Handle("eth_getTransactionReceipt", func([]json.RawMessage) (interface{}, *testutil.Error) {
		polls++
		if polls < 3 {
			return nil, nil
		}
		return map[string]string{"status": "0x1", "blockNumber": "0x100", "gasUsed": "0x5208"}, nil
	})

	r, err := chain.WaitForReceipt(context.Background(), chain.NewEVMClient(node.URL).Call, "0xhash", 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), r.BlockNumber)
	assert.Equal(t, uint64(21000), r.GasUsed)
	assert.Equal(t, 3, polls)
}

func TestWaitForReceiptReverted(t *testing.T) {
	node := testutil.NewNode(t).Result("eth_getTransactionReceipt",
		map[string]string{"status": "0x0", "blockNumber": "0x1", "gasUsed": "0x1"})

	r, err := chain.WaitForReceipt(context.Background(), chain.NewEVMClient(node.URL).Call, "0xhash", time.Millisecond)
	require.ErrorIs(t, err, chain.ErrTxReverted)
	require.NotNil(t, r)
	assert.Equal(t, uint64(0), r.Status)
}

func TestWaitForReceiptNodeError(t *testing.T) {
	node := testutil.NewNode(t).Fail("eth_getTransactionReceipt", -32000, "unknown block")
	_, err := chain.WaitForReceipt(context.Background(), chain.NewEVMClient(node.URL).Call, "0xhash", time.Millisecond)
	var rpcErr *chain.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestWaitForReceiptContextDeadline(t *testing.T) {
	node := testutil.NewNode(t).Result("eth_getTransactionReceipt", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := chain.WaitForReceipt(ctx, chain.NewEVMClient(node.URL).Call, "0xhash", 5*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
