// Package testutil provides a scripted JSON-RPC node for package tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Handler answers one JSON-RPC method. Returning a non-nil *Error makes the
// node reply with a JSON-RPC error object instead of a result.
type Handler func(params []json.RawMessage) (interface{}, *Error)

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Node is a fake JSON-RPC endpoint backed by httptest.
type Node struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string]string // "to|selector" → hex result for eth_call
	reverts  map[string]string // "to|selector" → revert message
	log      []string
}

// NewNode starts a node and registers its shutdown with t.Cleanup.
func NewNode(t *testing.T) *Node {
	t.Helper()
	n := &Node{
		handlers: make(map[string]Handler),
		calls:    make(map[string]string),
		reverts:  make(map[string]string),
	}
	n.handlers["eth_call"] = n.handleCall
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Close)
	return n
}

// Result makes method always answer with result.
func (n *Node) Result(method string, result interface{}) *Node {
	return n.Handle(method, func([]json.RawMessage) (interface{}, *Error) { return result, nil })
}

// Fail makes method always answer with a JSON-RPC error.
func (n *Node) Fail(method string, code int, msg string) *Node {
	return n.Handle(method, func([]json.RawMessage) (interface{}, *Error) {
		return nil, &Error{Code: code, Message: msg}
	})
}

// Handle installs a custom handler for method.
func (n *Node) Handle(method string, h Handler) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
	return n
}

// OnCall scripts the eth_call result for a contract address and 4-byte
// selector ("0x"-prefixed). Unscripted calls return "0x".
func (n *Node) OnCall(to, selector, result string) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[callKey(to, selector)] = result
	return n
}

// OnRevert makes eth_call for a contract address and selector answer with
// a code 3 "execution reverted" error.
func (n *Node) OnRevert(to, selector, reason string) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reverts[callKey(to, selector)] = reason
	return n
}

// Calls returns the methods received so far, in order.
func (n *Node) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.log...)
}

// Count returns how many times method was received.
func (n *Node) Count(method string) int {
	c := 0
	for _, m := range n.Calls() {
		if m == method {
			c++
		}
	}
	return c
}

// Word renders an integer string as a single 32-byte hex word result.
func Word(hexDigits string) string {
	h := strings.TrimPrefix(hexDigits, "0x")
	return "0x" + strings.Repeat("0", 64-len(h)) + h
}

func (n *Node) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     int64             `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.log = append(n.log, req.Method)
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = Error{Code: -32601, Message: "method not found"}
	} else if result, rpcErr := h(req.Params); rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (n *Node) handleCall(params []json.RawMessage) (interface{}, *Error) {
	if len(params) == 0 {
		return nil, &Error{Code: -32602, Message: "missing call object"}
	}
	var call struct {
		To   string `json:"to"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(params[0], &call); err != nil {
		return nil, &Error{Code: -32602, Message: err.Error()}
	}
	sel := call.Data
	if len(sel) > 10 {
		sel = sel[:10]
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if reason, ok := n.reverts[callKey(call.To, sel)]; ok {
		msg := "execution reverted"
		if reason != "" {
			msg += ": " + reason
		}
		return nil, &Error{Code: 3, Message: msg}
	}
	if res, ok := n.calls[callKey(call.To, sel)]; ok {
		return res, nil
	}
	return "0x", nil
}

func callKey(to, selector string) string {
	return strings.ToLower(to) + "|" + strings.ToLower(selector)
}
