package cmd

import (
	"errors"

	"github.com/Mohsinsiddi/ykp/internal/abi"
	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/provider"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
	"github.com/Mohsinsiddi/ykp/internal/wallet"
)

// userMessage turns an error from any layer into one line for the terminal.
func userMessage(err error) string {
	var perr *provider.Error
	var rpcErr *chain.RPCError
	switch {
	case errors.Is(err, abi.ErrComingSoon):
		return "This action is coming soon and cannot be sent yet."
	case errors.Is(err, txflow.ErrCancelled):
		return "Transaction cancelled by user"
	case errors.Is(err, txflow.ErrBusy):
		return "Another transaction is still in progress."
	case errors.Is(err, provider.ErrWrongNetwork):
		return "Wallet is on the wrong network: " + err.Error()
	case errors.As(err, &perr):
		switch perr.Code {
		case provider.CodeUnauthorized:
			return "The wallet has not authorised this account: " + perr.Message
		case provider.CodeUnsupportedMethod:
			return "The wallet does not support this request: " + perr.Message
		case provider.CodeUnrecognizedChain:
			return "The wallet does not know this network: " + perr.Message
		}
		return err.Error()
	case errors.As(err, &rpcErr):
		return "Node rejected the request: " + err.Error()
	}
	return err.Error()
}

// hintFor suggests a next command for errors a user can fix.
func hintFor(err error) string {
	switch {
	case errors.Is(err, provider.ErrProviderAbsent), errors.Is(err, wallet.ErrWalletNotFound):
		return "Import a wallet with: ykp wallet import <name>"
	case errors.Is(err, calc.ErrNoLoan):
		return "Open a loan first with: ykp borrow <amount> --days <n>"
	case errors.Is(err, calc.ErrExtensionTooLong):
		return "Check the remaining room with: ykp loan"
	case errors.Is(err, chain.ErrChainNotFound):
		return "List networks with: ykp network list"
	}
	return ""
}
