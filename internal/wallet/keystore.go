package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
)

const keychainService = "ykp"

// EnvPrivateKey, when set, overrides every stored key. Useful for CI and
// throwaway test wallets.
const EnvPrivateKey = "YKP_PRIVATE_KEY"

// EnvKeyringPassword unlocks the file keyring without prompting.
const EnvKeyringPassword = "YKP_KEYRING_PASSWORD"

// ErrKeyNotFound is returned when a key reference has nothing stored.
var ErrKeyNotFound = errors.New("key not found")

// KeyStore stores private keys by reference.
type KeyStore interface {
	Store(name, hexKey string) (ref string, err error)
	Retrieve(ref string) (string, error)
	Delete(ref string) error
}

// Keystore keeps keys in a keyring backend.
type Keystore struct {
	ring keyring.Keyring
}

// NewKeystore wraps an opened keyring. Tests pass keyring.NewArrayKeyring.
func NewKeystore(ring keyring.Keyring) *Keystore { return &Keystore{ring: ring} }

// OpenKeystore opens the OS keychain, falling back to an encrypted file
// keyring under dir on headless systems.
func OpenKeystore(dir string) (*Keystore, error) {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  dir,
		FilePasswordFunc:         filePassword,
	}
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		ring, err = keyring.Open(keyring.Config{
			ServiceName:      keychainService,
			AllowedBackends:  []keyring.BackendType{keyring.FileBackend},
			FileDir:          dir,
			FilePasswordFunc: filePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("opening keyring: %w", err)
		}
	}
	return &Keystore{ring: ring}, nil
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(EnvKeyringPassword); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

// Store saves a private key for a wallet name and returns its reference.
func (k *Keystore) Store(name, hexKey string) (string, error) {
	ref := keychainService + "." + name
	if err := k.ring.Set(keyring.Item{Key: ref, Data: []byte(normaliseHexKey(hexKey))}); err != nil {
		return "", fmt.Errorf("keychain store: %w", err)
	}
	return ref, nil
}

// Retrieve fetches a private key by reference. EnvPrivateKey wins when set.
func (k *Keystore) Retrieve(ref string) (string, error) {
	if v := os.Getenv(EnvPrivateKey); v != "" {
		return normaliseHexKey(v), nil
	}
	item, err := k.ring.Get(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes a stored key. Missing keys are not an error.
func (k *Keystore) Delete(ref string) error {
	err := k.ring.Remove(ref)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	return s
}
