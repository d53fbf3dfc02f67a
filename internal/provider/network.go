package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/ykp/internal/chain"
)

// ErrWrongNetwork means the wallet is on a different chain and could not be
// switched.
var ErrWrongNetwork = errors.New("wallet is connected to the wrong network")

// ChainID asks the provider for its current chain.
func ChainID(ctx context.Context, p Provider) (int64, error) {
	raw, err := p.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	var hexID string
	if err := Decode(raw, &hexID); err != nil {
		return 0, err
	}
	return chain.ParseHexID(hexID)
}

// EnsureNetwork makes sure p is on want. On a mismatch it asks the wallet to
// switch, and to add the network first when the wallet does not know it
// (code 4902).
func EnsureNetwork(ctx context.Context, p Provider, want *chain.Chain) error {
	id, err := ChainID(ctx, p)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	if id == want.ChainID {
		return nil
	}

	_, err = p.Request(ctx, "wallet_switchEthereumChain", SwitchChainParams{ChainID: want.HexID()})
	if Code(err) == CodeUnrecognizedChain {
		_, err = p.Request(ctx, "wallet_addEthereumChain", want.AddParams())
	}
	if err != nil {
		return fmt.Errorf("%w: on chain %d, want %d: %w", ErrWrongNetwork, id, want.ChainID, err)
	}

	if id, err = ChainID(ctx, p); err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}
	if id != want.ChainID {
		return fmt.Errorf("%w: on chain %d, want %d", ErrWrongNetwork, id, want.ChainID)
	}
	return nil
}
