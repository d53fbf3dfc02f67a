package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EnvConfigDir overrides the config directory.
const EnvConfigDir = "YKP_CONFIG_DIR"

const (
	configFile  = "config.json"
	walletsFile = "wallets.json"
	keyringDir  = "keyring"
)

// ResolveDir picks the config directory: flag, then $YKP_CONFIG_DIR, then
// ~/.ykp.
func ResolveDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".ykp"), nil
}

// Load reads config from dir, or returns defaults when no file exists yet.
func Load(dir string) (*Config, error) {
	dir, err := ResolveDir(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := Defaults(dir)
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(dir, configFile), err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration rooted at dir.
func Defaults(dir string) *Config {
	return &Config{
		Network:         DefaultNetwork,
		YKPAddress:      DefaultYKPAddress,
		LarryAddress:    DefaultLarryAddress,
		ApprovalWait:    "delay",
		ApprovalDelayMS: int(DefaultApprovalDelay / time.Millisecond),
		WatchInterval:   DefaultWatchInterval,
		configDir:       dir,
	}
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Validate checks field values.
func (c *Config) Validate() error {
	for name, addr := range map[string]string{"ykp_address": c.YKPAddress, "larry_address": c.LarryAddress} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: invalid address %q", name, addr)
		}
	}
	switch c.ApprovalWait {
	case "", "delay", "receipt":
	default:
		return fmt.Errorf("approval_wait: want delay or receipt, got %q", c.ApprovalWait)
	}
	if c.ApprovalDelayMS < 0 {
		return fmt.Errorf("approval_delay_ms: must not be negative")
	}
	if c.WatchInterval < 1 {
		return fmt.Errorf("watch_interval: must be at least 1 second")
	}
	return nil
}

// Path is the config file location.
func (c *Config) Path() string { return filepath.Join(c.configDir, configFile) }

// Exists reports whether the config file has been written.
func (c *Config) Exists() bool {
	_, err := os.Stat(c.Path())
	return err == nil
}

// Dir returns the config directory.
func (c *Config) Dir() string { return c.configDir }

// WalletsPath is where wallet metadata lives.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// KeyringDir is the file keyring location used on headless systems.
func (c *Config) KeyringDir() string { return filepath.Join(c.configDir, keyringDir) }

// ApprovalDelay returns the fixed approve-to-act delay.
func (c *Config) ApprovalDelay() time.Duration {
	return time.Duration(c.ApprovalDelayMS) * time.Millisecond
}

// Watch returns the polling interval.
func (c *Config) Watch() time.Duration {
	return time.Duration(c.WatchInterval) * time.Second
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

func stringField(p func(*Config) *string) field {
	return field{
		get: func(c *Config) string { return *p(c) },
		set: func(c *Config, v string) error { *p(c) = v; return nil },
	}
}

func intField(p func(*Config) *int) field {
	return field{
		get: func(c *Config) string { return strconv.Itoa(*p(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("want an integer, got %q", v)
			}
			*p(c) = n
			return nil
		},
	}
}

var fields = map[string]field{
	"network":           stringField(func(c *Config) *string { return &c.Network }),
	"rpc_url":           stringField(func(c *Config) *string { return &c.RPCURL }),
	"ykp_address":       stringField(func(c *Config) *string { return &c.YKPAddress }),
	"larry_address":     stringField(func(c *Config) *string { return &c.LarryAddress }),
	"default_wallet":    stringField(func(c *Config) *string { return &c.DefaultWallet }),
	"approval_wait":     stringField(func(c *Config) *string { return &c.ApprovalWait }),
	"approval_delay_ms": intField(func(c *Config) *int { return &c.ApprovalDelayMS }),
	"watch_interval":    intField(func(c *Config) *int { return &c.WatchInterval }),
	"quote_api_url":     stringField(func(c *Config) *string { return &c.QuoteAPIURL }),
	"swap_quote_url":    stringField(func(c *Config) *string { return &c.SwapQuoteURL }),
	"log_level":         stringField(func(c *Config) *string { return &c.LogLevel }),
	"log_file":          stringField(func(c *Config) *string { return &c.LogFile }),
}

// Keys lists the settable keys in order.
func Keys() []string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the value of key as a string.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return f.get(c), nil
}

// Set assigns key from a string and re-validates. On error c is unchanged.
func (c *Config) Set(key, value string) error {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	if err := f.set(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
