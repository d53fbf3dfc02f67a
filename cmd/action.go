package cmd

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/config"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
	"github.com/Mohsinsiddi/ykp/internal/txflow"
	"github.com/Mohsinsiddi/ykp/internal/ui"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

// planFunc reads whatever chain state an action needs and returns the
// action with a summary to show before the first signature.
type planFunc func(ctx context.Context, env *signEnv) (txflow.Action, [][2]string, error)

// runAction connects a signing wallet, plans the action and sends it.
// Planning runs under the RPC timeout; signing waits on the user.
func runAction(cmd *cobra.Command, title string, plan planFunc) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	rctx, cancel := withTimeout(ctx, config.RPCTimeout)
	defer cancel()
	spin := ui.NewSpinner("Connecting wallet…").Start()
	env, err := connect(rctx, out, true)
	if err != nil {
		spin.Stop()
		return err
	}
	spin.Update("Reading contract state…")
	a, summary, err := plan(rctx, env)
	spin.Stop()
	if err != nil {
		return err
	}

	if a.Approve != nil {
		summary = append(summary, allowanceRow(rctx, env.reader, a.Approve.To, env.account))
	}
	fmt.Fprintln(out, ui.KeyValueBlock(title, summary))
	if a.Approve != nil {
		fmt.Fprintln(out, ui.Meta("Two signatures: an exact-amount approve, then the action."))
	}
	return env.send(ctx, out, a)
}

// allowanceRow shows what the YKP contract may already pull from owner's
// token balance. A failed read shows n/a.
func allowanceRow(ctx context.Context, r *protocol.Reader, token, owner common.Address) [2]string {
	symbol := "YKP"
	if token == r.Larry() {
		symbol = "LARRY"
	}
	v, err := r.Allowance(ctx, token, owner, r.YKP())
	if err != nil {
		log.Debug("allowance read failed", zap.Error(err))
		return [2]string{"Allowance", "n/a"}
	}
	return [2]string{"Allowance", units.FormatFixed(v, 4) + " " + symbol}
}

// openLoan reads the account's loan and the snapshot its limits need.
func openLoan(ctx context.Context, env *signEnv) (*protocol.Loan, *protocol.Snapshot, error) {
	loan, err := env.reader.Loan(ctx, env.account)
	if err != nil {
		return nil, nil, err
	}
	snap, err := env.reader.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return loan, snap, nil
}
