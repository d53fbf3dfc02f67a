package ui

import (
	"fmt"
	"io"

	"github.com/Mohsinsiddi/ykp/internal/txflow"
)

// TxProgress returns an observer that prints one line per dispatcher state
// change. txURL turns a hash into an explorer link and may be nil.
func TxProgress(w io.Writer, txURL func(hash string) string) txflow.Observer {
	link := func(hash string) string {
		if txURL == nil {
			return Addr(hash)
		}
		if u := txURL(hash); u != "" {
			return Addr(hash) + "\n    " + Meta(u)
		}
		return Addr(hash)
	}
	return func(tr txflow.Transition) {
		switch tr.To {
		case txflow.AwaitingApprovalSignature:
			fmt.Fprintln(w, Info("Step 1/2: approve token spend"))
		case txflow.ApprovalSubmitted:
			fmt.Fprintln(w, Success("Approval sent "+link(tr.Hash)))
		case txflow.AwaitingActionSignature:
			if tr.From == txflow.ApprovalSubmitted {
				fmt.Fprintln(w, Info("Step 2/2: "+tr.Action))
			} else {
				fmt.Fprintln(w, Info(tr.Action))
			}
		case txflow.ActionSubmitted:
			fmt.Fprintln(w, Success(tr.Action+" sent "+link(tr.Hash)))
		}
	}
}
