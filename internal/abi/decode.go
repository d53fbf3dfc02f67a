package abi

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decoding errors.
var (
	// ErrEmptyResult means a read call returned "0x": usually a revert
	// or a missing contract. Callers fall back instead of failing.
	ErrEmptyResult = errors.New("empty call result")
	ErrMisaligned  = errors.New("return data is not 32-byte aligned")
)

// DecodeWords splits 32-byte-aligned return data into unsigned integers.
func DecodeWords(hexData string) ([]*big.Int, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(hexData), "0x")
	if raw == "" {
		return nil, ErrEmptyResult
	}
	if len(raw)%wordHexLen != 0 {
		return nil, fmt.Errorf("%w: %d hex chars", ErrMisaligned, len(raw))
	}
	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding hex result: %w", err)
	}

	words := make([]*big.Int, 0, len(data)/32)
	for off := 0; off < len(data); off += 32 {
		words = append(words, new(big.Int).SetBytes(data[off:off+32]))
	}
	return words, nil
}

// DecodeUint decodes the first word of return data.
func DecodeUint(hexData string) (*big.Int, error) {
	words, err := DecodeWords(hexData)
	if err != nil {
		return nil, err
	}
	return words[0], nil
}

// DecodeUints decodes exactly n leading words.
func DecodeUints(hexData string, n int) ([]*big.Int, error) {
	words, err := DecodeWords(hexData)
	if err != nil {
		return nil, err
	}
	if len(words) < n {
		return nil, fmt.Errorf("expected %d words, got %d", n, len(words))
	}
	return words[:n], nil
}
