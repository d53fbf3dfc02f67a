package config

// Config holds all ykp configuration.
type Config struct {
	Network       string `json:"network"`
	RPCURL        string `json:"rpc_url,omitempty"` // overrides the network's default endpoint
	YKPAddress    string `json:"ykp_address"`
	LarryAddress  string `json:"larry_address"`
	DefaultWallet string `json:"default_wallet,omitempty"`

	ApprovalWait    string `json:"approval_wait"` // "delay" | "receipt"
	ApprovalDelayMS int    `json:"approval_delay_ms"`
	WatchInterval   int    `json:"watch_interval"` // seconds

	QuoteAPIURL  string `json:"quote_api_url,omitempty"`  // fiat price API; empty disables it
	SwapQuoteURL string `json:"swap_quote_url,omitempty"` // swap quote API; empty disables the comparison row
	LogLevel     string `json:"log_level,omitempty"`
	LogFile      string `json:"log_file,omitempty"`

	// internal: config dir path used for Save()
	configDir string
}
