// Package provider models the EIP-1193 wallet provider the client talks to:
// a single Request entry point plus account and chain change events.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// EIP-1193 and wallet error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902

	// CodeExecutionReverted is what nodes answer for an eth_call that reverts.
	CodeExecutionReverted = 3
)

// ErrProviderAbsent means no signing wallet is available.
var ErrProviderAbsent = errors.New("no wallet provider available: import a wallet with `ykp wallet import`")

// Error is a provider RPC error carrying an EIP-1193 code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Code extracts the provider error code from err, or 0.
func Code(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// IsUserRejected reports whether err is a rejected signature request.
func IsUserRejected(err error) bool { return Code(err) == CodeUserRejected }

// IsReverted reports whether err is the node saying the call itself
// reverted, as opposed to a transport or node failure. Some nodes answer
// -32000 with an "execution reverted" message instead of code 3.
func IsReverted(err error) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == CodeExecutionReverted || strings.Contains(strings.ToLower(pe.Message), "revert")
}

// Provider is the wallet provider surface used by the client.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// Subscribe registers fn for provider events and returns a function
	// that removes it.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// EventKind names a provider event.
type EventKind string

const (
	AccountsChanged EventKind = "accountsChanged"
	ChainChanged    EventKind = "chainChanged"
	Disconnected    EventKind = "disconnect"
)

// Event is emitted when the wallet's accounts or network change.
type Event struct {
	Kind     EventKind
	Accounts []string
	ChainID  int64
}

// TxRequest is the eth_sendTransaction parameter object. Numeric fields are
// 0x-prefixed hex.
type TxRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data,omitempty"`
	Value string `json:"value,omitempty"`
	Gas   string `json:"gas,omitempty"`
}

// SwitchChainParams is the wallet_switchEthereumChain parameter object.
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// emitter fans events out to subscribers.
type emitter struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func (e *emitter) subscribe(fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[int]func(Event))
	}
	id := e.next
	e.next++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Decode unmarshals a provider result into v.
func Decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding provider result: %w", err)
	}
	return nil
}

// decodeParam re-reads params[i] into v through JSON so callers may pass
// either typed structs or generic maps.
func decodeParam(params []any, i int, v any) error {
	if i >= len(params) {
		return &Error{Code: -32602, Message: fmt.Sprintf("missing parameter %d", i)}
	}
	raw, err := json.Marshal(params[i])
	if err != nil {
		return &Error{Code: -32602, Message: err.Error()}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Code: -32602, Message: err.Error()}
	}
	return nil
}
