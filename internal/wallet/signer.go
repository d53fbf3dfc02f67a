package wallet

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs EVM transactions for a signing wallet.
type Signer struct {
	wallet *Wallet
	ks     KeyStore
}

// NewSigner creates a signer for w.
func NewSigner(w *Wallet, ks KeyStore) *Signer {
	return &Signer{wallet: w, ks: ks}
}

// SignTx signs tx with the London signer and returns the raw encoding.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) ([]byte, error) {
	if s.wallet.Type != TypeSigning {
		return nil, fmt.Errorf("wallet %q is watch-only and cannot sign", s.wallet.Name)
	}

	hexKey, err := s.ks.Retrieve(s.wallet.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieving key: %w", err)
	}
	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if got := crypto.PubkeyToAddress(privKey.PublicKey); got != s.Address() {
		return nil, fmt.Errorf("stored key for %q belongs to %s", s.wallet.Name, got.Hex())
	}

	signed, err := types.SignTx(tx, types.NewLondonSigner(chainID), privKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling signed tx: %w", err)
	}
	return raw, nil
}

// Address returns the wallet's address.
func (s *Signer) Address() common.Address {
	return common.HexToAddress(s.wallet.Address)
}
