package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// ErrTxReverted is returned by WaitForReceipt when the receipt status is 0.
var ErrTxReverted = errors.New("transaction reverted")

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// EVMClient is a minimal JSON-RPC client for EVM chains.
type EVMClient struct {
	url    string
	client *http.Client
	nextID atomic.Int64
}

// NewEVMClient creates a new EVM JSON-RPC client pointed at url.
func NewEVMClient(url string) *EVMClient {
	return &EVMClient{
		url: url,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// URL returns the endpoint this client talks to.
func (c *EVMClient) URL() string { return c.url }

// ChainID returns the chain's ID.
func (c *EVMClient) ChainID(ctx context.Context) (int64, error) {
	n, err := c.callBig(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// BlockNumber returns the latest block number.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.callBig(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// GasPrice returns the current gas price.
func (c *EVMClient) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_gasPrice")
}

// GetPendingNonce returns the transaction count including pending
// transactions.
func (c *EVMClient) GetPendingNonce(ctx context.Context, address string) (uint64, error) {
	n, err := c.callBig(ctx, "eth_getTransactionCount", address, "pending")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// EstimateGas estimates gas for a transaction.
func (c *EVMClient) EstimateGas(ctx context.Context, from, to, data string, value *big.Int) (uint64, error) {
	params := map[string]string{
		"from": from,
		"to":   to,
	}
	if data != "" {
		params["data"] = data
	}
	if value != nil && value.Sign() > 0 {
		params["value"] = "0x" + value.Text(16)
	}
	n, err := c.callBig(ctx, "eth_estimateGas", params)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// SendRawTransaction broadcasts a signed raw transaction.
func (c *EVMClient) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	return c.callString(ctx, "eth_sendRawTransaction", rawTx)
}

// TxReceipt holds the on-chain receipt of a mined transaction.
type TxReceipt struct {
	Hash        string
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// RequestFunc issues one JSON-RPC request. EVMClient.Call and a wallet
// provider's Request method both fit.
type RequestFunc func(ctx context.Context, method string, params ...any) (json.RawMessage, error)

// GetTransactionReceipt fetches the receipt for hash through req.
// Returns nil, nil if the transaction is still pending.
func GetTransactionReceipt(ctx context.Context, req RequestFunc, hash string) (*TxReceipt, error) {
	raw, err := req(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, nil // still pending
	}

	var r struct {
		Status      string `json:"status"`
		BlockNumber string `json:"blockNumber"`
		GasUsed     string `json:"gasUsed"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}

	receipt := &TxReceipt{Hash: hash}
	if s, ok := parseBigHex(r.Status); ok {
		receipt.Status = s.Uint64()
	}
	if bn, ok := parseBigHex(r.BlockNumber); ok {
		receipt.BlockNumber = bn.Uint64()
	}
	if gu, ok := parseBigHex(r.GasUsed); ok {
		receipt.GasUsed = gu.Uint64()
	}
	return receipt, nil
}

// WaitForReceipt polls every interval until the transaction is mined or ctx
// is done. A reverted receipt is returned together with ErrTxReverted.
func WaitForReceipt(ctx context.Context, req RequestFunc, hash string, interval time.Duration) (*TxReceipt, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := GetTransactionReceipt(ctx, req, hash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrTxReverted, hash)
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined: %w", hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	return time.Since(start), blockNum, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Call performs a raw JSON-RPC request and returns the undecoded result.
// Node-side errors come back as *RPCError.
func (c *EVMClient) Call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 && len(body) == 0 {
		return nil, fmt.Errorf("RPC request failed: HTTP %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func (c *EVMClient) callString(ctx context.Context, method string, params ...interface{}) (string, error) {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("unexpected %s result: %s", method, string(raw))
	}
	return s, nil
}

func (c *EVMClient) callBig(ctx context.Context, method string, params ...interface{}) (*big.Int, error) {
	s, err := c.callString(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	n, ok := parseBigHex(s)
	if !ok {
		return nil, fmt.Errorf("could not parse %s result: %s", method, s)
	}
	return n, nil
}

func parseBigHex(s string) (*big.Int, bool) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(s, 16)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
