package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Mohsinsiddi/ykp/internal/chain"
)

// RPC is a read-only provider backed by a JSON-RPC endpoint. It can read
// chain state but has no accounts, so signing requests fail with
// ErrProviderAbsent.
type RPC struct {
	client *chain.EVMClient
}

// NewRPC returns a read-only provider for url.
func NewRPC(url string) *RPC {
	return &RPC{client: chain.NewEVMClient(url)}
}

// Client exposes the underlying JSON-RPC client.
func (p *RPC) Client() *chain.EVMClient { return p.client }

func (p *RPC) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_accounts":
		return json.RawMessage(`[]`), nil
	case "eth_requestAccounts", "eth_sendTransaction", "personal_sign":
		return nil, ErrProviderAbsent
	case "wallet_switchEthereumChain", "wallet_addEthereumChain":
		return nil, &Error{Code: CodeUnsupportedMethod, Message: "read-only provider cannot change networks"}
	}
	return forward(ctx, p.client, method, params)
}

// Subscribe never fires: a read-only endpoint has no account or chain state.
func (p *RPC) Subscribe(func(Event)) func() { return func() {} }

// forward sends method to the node and maps node errors to *Error.
func forward(ctx context.Context, c *chain.EVMClient, method string, params []any) (json.RawMessage, error) {
	raw, err := c.Call(ctx, method, params...)
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		return nil, &Error{Code: rpcErr.Code, Message: rpcErr.Message}
	}
	return raw, err
}
