package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Mohsinsiddi/ykp/internal/txflow"
)

func TestTxProgressTwoStep(t *testing.T) {
	var out bytes.Buffer
	obs := TxProgress(&out, func(h string) string { return "https://seitrace.com/tx/" + h })

	obs(txflow.Transition{Action: "buy", From: txflow.Idle, To: txflow.AwaitingApprovalSignature})
	obs(txflow.Transition{Action: "buy", From: txflow.AwaitingApprovalSignature, To: txflow.ApprovalSubmitted, Hash: "0xaa"})
	obs(txflow.Transition{Action: "buy", From: txflow.ApprovalSubmitted, To: txflow.AwaitingActionSignature})
	obs(txflow.Transition{Action: "buy", From: txflow.AwaitingActionSignature, To: txflow.ActionSubmitted, Hash: "0xbb"})
	obs(txflow.Transition{Action: "buy", From: txflow.ActionSubmitted, To: txflow.Idle, Hash: "0xbb"})

	s := out.String()
	assert.Contains(t, s, "Step 1/2")
	assert.Contains(t, s, "Step 2/2: buy")
	assert.Contains(t, s, "https://seitrace.com/tx/0xaa")
	assert.Contains(t, s, "buy sent")
	assert.Contains(t, s, "https://seitrace.com/tx/0xbb")
}

func TestTxProgressSingleStep(t *testing.T) {
	var out bytes.Buffer
	obs := TxProgress(&out, nil)
	obs(txflow.Transition{Action: "sell", From: txflow.Idle, To: txflow.AwaitingActionSignature})
	obs(txflow.Transition{Action: "sell", To: txflow.ActionSubmitted, Hash: "0xcc"})

	s := out.String()
	assert.NotContains(t, s, "Step")
	assert.Contains(t, s, "sell sent")
	assert.Contains(t, s, "0xcc")
}
