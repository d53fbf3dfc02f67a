package config

import "time"

// Deployed contracts on SEI EVM.
const (
	DefaultYKPAddress   = "0xd3323f8e7556c6A5C3cF3A143eAbaF0dE59cC43b"
	DefaultLarryAddress = "0x888d81e3ea5E8362B5f69188CBCF34Fa8da4b888"
)

const (
	DefaultNetwork       = "sei"
	DefaultApprovalDelay = 2 * time.Second
	DefaultWatchInterval = 10 // seconds
)

// Timeouts shared by commands.
const (
	RPCTimeout       = 15 * time.Second
	QuoteTimeout     = 10 * time.Second
	TxConfirmTimeout = 3 * time.Minute

	// BalanceRefreshDelay is how long to wait after a submitted transaction
	// before re-reading balances.
	BalanceRefreshDelay = 3 * time.Second

	// FiatRefreshInterval spaces fiat price lookups in the dashboard.
	FiatRefreshInterval = time.Minute
)
