package abi

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/sha3"
)

// Errors returned by selector lookups.
var (
	ErrUnknownSelector = errors.New("missing selector")
	ErrComingSoon      = errors.New("coming soon")
)

// Kind says whether a function reads or writes contract state.
type Kind string

const (
	KindRead  Kind = "read"
	KindWrite Kind = "write"
)

// Status marks whether the app is allowed to dispatch an entry.
type Status string

const (
	StatusLive    Status = "live"
	StatusPending Status = "pending"
)

// Entry is one row of the selector schema.
type Entry struct {
	Signature string `json:"signature"`
	Selector  string `json:"selector"`
	Kind      Kind   `json:"kind"`
	Status    Status `json:"status,omitempty"`
}

// Inputs returns the parameter types of the entry's signature.
func (e Entry) Inputs() []string { return signatureInputs(e.Signature) }

// Name returns the function name without its parameter list.
func (e Entry) Name() string {
	if i := strings.IndexByte(e.Signature, '('); i >= 0 {
		return e.Signature[:i]
	}
	return e.Signature
}

// Schema is a closed signature → selector table. Lookups never hash:
// anything absent from the table is unsupported.
type Schema struct {
	Version  int
	Contract string
	entries  map[string]Entry
}

type schemaFile struct {
	Version   int     `json:"version"`
	Contract  string  `json:"contract"`
	Selectors []Entry `json:"selectors"`
}

//go:embed selectors.json
var defaultSchemaJSON []byte

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
)

// Default returns the embedded schema, parsed once.
func Default() *Schema {
	defaultOnce.Do(func() {
		s, err := ParseSchema(defaultSchemaJSON)
		if err != nil {
			panic(fmt.Sprintf("abi: embedded selectors.json is invalid: %v", err))
		}
		defaultSchema = s
	})
	return defaultSchema
}

// ParseSchema decodes and validates a selector schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var f schemaFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing selector schema: %w", err)
	}
	if f.Version <= 0 {
		return nil, fmt.Errorf("selector schema: missing version")
	}

	s := &Schema{
		Version:  f.Version,
		Contract: f.Contract,
		entries:  make(map[string]Entry, len(f.Selectors)),
	}
	for _, e := range f.Selectors {
		e.Signature = canonical(e.Signature)
		if !validSignature(e.Signature) {
			return nil, fmt.Errorf("selector schema: malformed signature %q", e.Signature)
		}
		sel := strings.ToLower(e.Selector)
		if len(sel) != 10 || !strings.HasPrefix(sel, "0x") || !isHex(sel[2:]) {
			return nil, fmt.Errorf("selector schema: bad selector %q for %s", e.Selector, e.Signature)
		}
		e.Selector = sel
		if e.Status == "" {
			e.Status = StatusLive
		}
		if e.Kind == "" {
			e.Kind = KindWrite
		}
		if _, dup := s.entries[e.Signature]; dup {
			return nil, fmt.Errorf("selector schema: duplicate signature %s", e.Signature)
		}
		s.entries[e.Signature] = e
	}
	return s, nil
}

// Lookup returns the schema entry for sig.
func (s *Schema) Lookup(sig string) (Entry, error) {
	e, ok := s.entries[canonical(sig)]
	if !ok {
		return Entry{}, fmt.Errorf("%w for %q", ErrUnknownSelector, sig)
	}
	return e, nil
}

// Selector returns the 4-byte selector ("0x" + 8 hex chars) for sig.
func (s *Schema) Selector(sig string) (string, error) {
	e, err := s.Lookup(sig)
	if err != nil {
		return "", err
	}
	return e.Selector, nil
}

// Operation is Lookup for entries that are about to be dispatched.
// Pending entries report ErrComingSoon instead of being encoded.
func (s *Schema) Operation(sig string) (Entry, error) {
	e, err := s.Lookup(sig)
	if err != nil {
		return Entry{}, err
	}
	if e.Status == StatusPending {
		return Entry{}, fmt.Errorf("%s: %w", e.Name(), ErrComingSoon)
	}
	return e, nil
}

// BySelector finds the entry whose selector matches the first four bytes
// of data, which may be a bare selector or full calldata.
func (s *Schema) BySelector(data string) (Entry, bool) {
	sel := strings.ToLower(data)
	if !strings.HasPrefix(sel, "0x") {
		sel = "0x" + sel
	}
	if len(sel) < 10 {
		return Entry{}, false
	}
	sel = sel[:10]
	for _, e := range s.Entries() {
		if e.Selector == sel {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns every entry sorted by signature.
func (s *Schema) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature < out[j].Signature })
	return out
}

// Verify recomputes each selector from its signature and reports the
// entries whose stored selector does not match. It is a diagnostic for
// maintainers editing selectors.json; lookups never call it.
func (s *Schema) Verify() []Entry {
	var bad []Entry
	for _, e := range s.Entries() {
		if keccakSelector(e.Signature) != e.Selector {
			bad = append(bad, e)
		}
	}
	return bad
}

// Undispatched returns the live write entries whose selector is not pushed
// anywhere in code. Solidity dispatchers compare the calldata selector
// against a PUSH4 constant (PUSH3 and shorter when it has leading zero
// bytes), so an entry listed here is unlikely to exist on that contract.
func (s *Schema) Undispatched(code []byte) []Entry {
	var out []Entry
	for _, e := range s.Entries() {
		if e.Kind != KindWrite || e.Status != StatusLive {
			continue
		}
		sel, err := hex.DecodeString(e.Selector[2:])
		if err != nil || !pushes(code, sel) {
			out = append(out, e)
		}
	}
	return out
}

func pushes(code, sel []byte) bool {
	const push1 = 0x60
	for len(sel) > 1 && sel[0] == 0 {
		sel = sel[1:]
	}
	needle := append([]byte{push1 + byte(len(sel)) - 1}, sel...)
	return bytes.Contains(code, needle)
}

// Selector resolves sig against the embedded schema.
func Selector(sig string) (string, error) { return Default().Selector(sig) }

// --- helpers ---

func keccakSelector(sig string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(sig))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}

// canonical strips whitespace so "f(address, uint256)" matches "f(address,uint256)".
func canonical(sig string) string {
	return strings.Join(strings.Fields(sig), "")
}

func validSignature(sig string) bool {
	open := strings.IndexByte(sig, '(')
	return open > 0 && strings.HasSuffix(sig, ")") && strings.Count(sig, "(") == 1
}

func signatureInputs(sig string) []string {
	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return nil
	}
	inner := sig[open+1 : len(sig)-1]
	if inner == "" {
		return nil
	}
	return strings.Split(inner, ",")
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
