package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet types.
const (
	TypeWatchOnly = "watch-only"
	TypeSigning   = "signing"
)

var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrWalletExists   = errors.New("wallet already exists")
	ErrInvalidKey     = errors.New("invalid private key")
	ErrInvalidAddress = errors.New("invalid address")
)

// Wallet holds metadata for a single account. Private keys live in the
// keystore, referenced by KeyRef.
type Wallet struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Type      string `json:"type"`
	KeyRef    string `json:"key_ref,omitempty"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
}

// Store persists wallet metadata.
type Store interface {
	Load() ([]*Wallet, error)
	Save([]*Wallet) error
}

// Manager handles wallet CRUD.
type Manager struct {
	store   Store
	keys    KeyStore
	wallets map[string]*Wallet
	loaded  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the metadata store.
func WithStore(s Store) Option { return func(m *Manager) { m.store = s } }

// WithKeyStore sets where private keys go.
func WithKeyStore(k KeyStore) Option { return func(m *Manager) { m.keys = k } }

// NewManager returns a manager. Without options it keeps everything in
// memory.
func NewManager(opts ...Option) *Manager {
	m := &Manager{wallets: make(map[string]*Wallet), store: &memStore{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Keys returns the key store.
func (m *Manager) Keys() KeyStore { return m.keys }

// AddWatchOnly registers an address without a key.
func (m *Manager) AddWatchOnly(name, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return m.add(&Wallet{Name: name, Address: common.HexToAddress(address).Hex(), Type: TypeWatchOnly})
}

// AddWithKey derives the address from a hex private key, stores the key in
// the key store and registers the wallet.
func (m *Manager) AddWithKey(name, hexKey string) (*Wallet, error) {
	if m.keys == nil {
		return nil, errors.New("no key store configured")
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	if _, exists := m.wallets[name]; exists {
		return nil, ErrWalletExists
	}

	privKey, err := crypto.HexToECDSA(normaliseHexKey(hexKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ref, err := m.keys.Store(name, hexKey)
	if err != nil {
		return nil, fmt.Errorf("storing key: %w", err)
	}

	w := &Wallet{
		Name:    name,
		Address: crypto.PubkeyToAddress(privKey.PublicKey).Hex(),
		Type:    TypeSigning,
		KeyRef:  ref,
	}
	if err := m.add(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (m *Manager) add(w *Wallet) error {
	if err := m.load(); err != nil {
		return err
	}
	if _, exists := m.wallets[w.Name]; exists {
		return ErrWalletExists
	}
	if w.CreatedAt == "" {
		w.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if len(m.wallets) == 0 {
		w.IsDefault = true
	}
	m.wallets[w.Name] = w
	return m.persist()
}

// Get returns a wallet by name.
func (m *Manager) Get(name string) (*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	w, ok := m.wallets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, name)
	}
	return w, nil
}

// Remove deletes a wallet and its stored key.
func (m *Manager) Remove(name string) error {
	w, err := m.Get(name)
	if err != nil {
		return err
	}
	if w.KeyRef != "" && m.keys != nil {
		if err := m.keys.Delete(w.KeyRef); err != nil {
			return err
		}
	}
	delete(m.wallets, name)
	return m.persist()
}

// List returns all wallets sorted by name.
func (m *Manager) List() ([]*Wallet, error) {
	if err := m.load(); err != nil {
		return nil, err
	}
	out := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetDefault marks a wallet as the default.
func (m *Manager) SetDefault(name string) error {
	if _, err := m.Get(name); err != nil {
		return err
	}
	for _, w := range m.wallets {
		w.IsDefault = w.Name == name
	}
	return m.persist()
}

// Default returns the default wallet, or nil if none.
func (m *Manager) Default() *Wallet {
	if err := m.load(); err != nil {
		return nil
	}
	for _, w := range m.wallets {
		if w.IsDefault {
			return w
		}
	}
	if len(m.wallets) == 1 {
		for _, w := range m.wallets {
			return w
		}
	}
	return nil
}

// Resolve returns the named wallet, or the default one when name is empty.
func (m *Manager) Resolve(name string) (*Wallet, error) {
	if name != "" {
		return m.Get(name)
	}
	if w := m.Default(); w != nil {
		return w, nil
	}
	return nil, fmt.Errorf("%w: no default wallet set", ErrWalletNotFound)
}

func (m *Manager) load() error {
	if m.loaded {
		return nil
	}
	wallets, err := m.store.Load()
	if err != nil {
		return err
	}
	for _, w := range wallets {
		m.wallets[w.Name] = w
	}
	m.loaded = true
	return nil
}

func (m *Manager) persist() error {
	wallets := make([]*Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Name < wallets[j].Name })
	return m.store.Save(wallets)
}

type memStore struct {
	wallets []*Wallet
}

func (s *memStore) Load() ([]*Wallet, error) { return s.wallets, nil }

func (s *memStore) Save(wallets []*Wallet) error {
	s.wallets = wallets
	return nil
}

// JSONStore persists wallets to a JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore creates a JSON-backed wallet store.
func NewJSONStore(path string) *JSONStore { return &JSONStore{path: path} }

func (s *JSONStore) Load() ([]*Wallet, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var wallets []*Wallet
	if err := json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return wallets, nil
}

func (s *JSONStore) Save(wallets []*Wallet) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(wallets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
