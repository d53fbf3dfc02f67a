package chain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Well-known chain IDs.
const (
	SeiMainnetID int64 = 1329
	SeiTestnetID int64 = 1328
)

// NativeCurrency describes a chain's gas token.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Chain holds the metadata a wallet needs to add or switch to a network.
type Chain struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	ChainID     int64          `json:"chain_id"`
	Currency    NativeCurrency `json:"native_currency"`
	RPCs        []string       `json:"rpc_urls"`
	Explorer    string         `json:"explorer"`

	// ExplorerQuery is appended to explorer links, e.g. "?chain=atlantic-2".
	ExplorerQuery string `json:"explorer_query,omitempty"`
}

// HexID returns the chain ID in the 0x-prefixed form wallets expect.
func (c *Chain) HexID() string { return "0x" + strconv.FormatInt(c.ChainID, 16) }

// TxURL returns the explorer link for a transaction hash.
func (c *Chain) TxURL(hash string) string {
	if c.Explorer == "" {
		return ""
	}
	return strings.TrimRight(c.Explorer, "/") + "/tx/" + hash + c.ExplorerQuery
}

// AddressURL returns the explorer link for an account or contract.
func (c *Chain) AddressURL(addr string) string {
	if c.Explorer == "" {
		return ""
	}
	return strings.TrimRight(c.Explorer, "/") + "/address/" + addr + c.ExplorerQuery
}

// AddChainParams is the wallet_addEthereumChain parameter object.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// AddParams builds the wallet_addEthereumChain payload for c.
func (c *Chain) AddParams() AddChainParams {
	p := AddChainParams{
		ChainID:        c.HexID(),
		ChainName:      c.DisplayName,
		NativeCurrency: c.Currency,
		RPCURLs:        c.RPCs,
	}
	if c.Explorer != "" {
		p.BlockExplorerURLs = []string{c.Explorer}
	}
	return p
}

// Registry is the set of networks the client knows how to reach.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry returns a registry holding SEI mainnet and testnet.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]*Chain),
		byID:   make(map[int64]*Chain),
	}
	for _, c := range builtinChains() {
		c := c
		r.put(&c)
	}
	return r
}

// GetByName finds a chain by its slug name (e.g. "sei").
func (r *Registry) GetByName(name string) (*Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, name)
	}
	return c, nil
}

// GetByChainID finds a chain by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrChainNotFound, id)
	}
	return c, nil
}

// Add registers a chain, replacing any entry with the same ID.
func (r *Registry) Add(c Chain) error {
	if c.ChainID <= 0 {
		return fmt.Errorf("invalid chain id %d", c.ChainID)
	}
	if len(c.RPCs) == 0 {
		return fmt.Errorf("chain %d: at least one RPC URL is required", c.ChainID)
	}
	if c.Name == "" {
		c.Name = "chain-" + strconv.FormatInt(c.ChainID, 10)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(&c)
	return nil
}

// All returns every registered chain.
func (r *Registry) All() []Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Chain, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, *c)
	}
	return out
}

// ParseHexID parses a "0x"-prefixed chain ID as returned by eth_chainId.
func ParseHexID(s string) (int64, error) {
	n, ok := parseBigHex(s)
	if !ok || !n.IsInt64() {
		return 0, fmt.Errorf("invalid chain id %q", s)
	}
	return n.Int64(), nil
}

func (r *Registry) put(c *Chain) {
	r.byName[strings.ToLower(c.Name)] = c
	r.byID[c.ChainID] = c
}

func builtinChains() []Chain {
	sei := NativeCurrency{Name: "SEI", Symbol: "SEI", Decimals: 18}
	return []Chain{
		{
			Name:        "sei",
			DisplayName: "SEI Network",
			ChainID:     SeiMainnetID,
			Currency:    sei,
			RPCs:        []string{"https://evm-rpc.sei-apis.com", "https://sei-evm-rpc.publicnode.com"},
			Explorer:    "https://seitrace.com",
		},
		{
			Name:          "sei-testnet",
			DisplayName:   "SEI Testnet (atlantic-2)",
			ChainID:       SeiTestnetID,
			Currency:      sei,
			RPCs:          []string{"https://evm-rpc-testnet.sei-apis.com"},
			Explorer:      "https://seitrace.com",
			ExplorerQuery: "?chain=atlantic-2",
		},
	}
}
