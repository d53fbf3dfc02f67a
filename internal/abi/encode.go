package abi

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Encoding errors.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidUint    = errors.New("invalid uint256")
	ErrArgMismatch    = errors.New("argument mismatch")
)

// Supported parameter types.
const (
	TypeAddress = "address"
	TypeUint256 = "uint256"
)

// wordHexLen is one 32-byte ABI word in hex characters.
const wordHexLen = 64

// Param is one typed call argument. Uint256 values are hex strings.
type Param struct {
	Type  string
	Value string
}

// Address builds an address parameter.
func Address(addr string) Param { return Param{Type: TypeAddress, Value: addr} }

// Uint256Hex builds a uint256 parameter from a hex string ("0x" optional).
func Uint256Hex(h string) Param { return Param{Type: TypeUint256, Value: h} }

// Uint256 builds a uint256 parameter from an integer.
func Uint256(n *big.Int) Param {
	if n == nil {
		n = new(big.Int)
	}
	return Uint256Hex("0x" + n.Text(16))
}

// Uint64 builds a uint256 parameter from a small integer (days, flags).
func Uint64(n uint64) Param { return Uint256(new(big.Int).SetUint64(n)) }

// PadAddress lowercases addr and left-pads it to one 32-byte word.
func PadAddress(addr string) (string, error) {
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	a := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X"))
	return fmt.Sprintf("%064s", a), nil
}

// PadHex left-pads a hex integer to one 32-byte word. Values wider than
// 256 bits are rejected rather than truncated.
func PadHex(h string) (string, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if raw == "" {
		raw = "0"
	}
	if !isHex(raw) {
		return "", fmt.Errorf("%w: %q is not hex", ErrInvalidUint, h)
	}
	n, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidUint, h)
	}
	if _, overflow := uint256.FromBig(n); overflow {
		return "", fmt.Errorf("%w: %q overflows 256 bits", ErrInvalidUint, h)
	}
	return fmt.Sprintf("%064x", n), nil
}

// EncodeCall builds calldata for sig from the embedded schema.
func EncodeCall(sig string, params ...Param) (string, error) {
	return Default().EncodeCall(sig, params...)
}

// EncodeCall concatenates the selector of sig with the padded parameter
// words. The result is "0x" + 8 + 64·len(params) hex characters.
func (s *Schema) EncodeCall(sig string, params ...Param) (string, error) {
	e, err := s.Lookup(sig)
	if err != nil {
		return "", err
	}
	return encodeEntry(e, params)
}

// EncodeOperation is EncodeCall for calls about to be dispatched: pending
// entries fail with ErrComingSoon before any encoding happens.
func (s *Schema) EncodeOperation(sig string, params ...Param) (string, error) {
	e, err := s.Operation(sig)
	if err != nil {
		return "", err
	}
	return encodeEntry(e, params)
}

func encodeEntry(e Entry, params []Param) (string, error) {
	inputs := e.Inputs()
	if len(inputs) != len(params) {
		return "", fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrArgMismatch, e.Signature, len(inputs), len(params))
	}

	var sb strings.Builder
	sb.Grow(len(e.Selector) + wordHexLen*len(params))
	sb.WriteString(e.Selector)

	for i, p := range params {
		if p.Type != inputs[i] {
			return "", fmt.Errorf("%w: %s argument %d is %s, got %s", ErrArgMismatch, e.Signature, i, inputs[i], p.Type)
		}
		word, err := encodeParam(p)
		if err != nil {
			return "", fmt.Errorf("encoding %s argument %d: %w", e.Name(), i, err)
		}
		sb.WriteString(word)
	}
	return sb.String(), nil
}

func encodeParam(p Param) (string, error) {
	switch p.Type {
	case TypeAddress:
		return PadAddress(p.Value)
	case TypeUint256:
		return PadHex(p.Value)
	default:
		return "", fmt.Errorf("%w: unsupported type %q", ErrArgMismatch, p.Type)
	}
}
