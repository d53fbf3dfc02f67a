package ui

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/ykp/internal/provider"
)

var ykpAddr = common.HexToAddress("0xd3323f8e7556c6A5C3cF3A143eAbaF0dE59cC43b")

func TestPrompterConfirm(t *testing.T) {
	for in, want := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		" y \n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
		"sure\n": false,
	} {
		var out bytes.Buffer
		got := NewPrompter(strings.NewReader(in), &out).Confirm("Proceed?")
		assert.Equal(t, want, got, "%q", in)
		assert.Contains(t, out.String(), "Proceed?")
	}
}

func TestConfirmDanger(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, NewPrompter(strings.NewReader("y\n"), &out).ConfirmDanger("Remove wallet?"))
	assert.Contains(t, out.String(), "⚠")
}

func preview() provider.TxPreview {
	return provider.TxPreview{
		Chain:    "SEI Network",
		From:     common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		To:       ykpAddr,
		Data:     "0xe4849b32" + strings.Repeat("0", 63) + "1",
		Gas:      350000,
		GasPrice: big.NewInt(1_500_000_000),
	}
}

func TestDescribeTx(t *testing.T) {
	pairs := DescribeTx(preview(), map[common.Address]string{ykpAddr: "YKP"})
	got := map[string]string{}
	for _, p := range pairs {
		got[p[0]] = p[1]
	}
	assert.Equal(t, "sell(uint256)", got["Call"])
	assert.Contains(t, got["To"], "YKP")
	assert.Equal(t, "350000", got["Gas limit"])
	assert.Equal(t, "1.50 gwei", got["Gas price"])
	assert.NotContains(t, got, "Value")
}

func TestDescribeTxUnknownCall(t *testing.T) {
	tx := preview()
	tx.Data = "0xdeadbeef00"
	tx.Value = big.NewInt(1_000_000_000_000_000_000)
	got := map[string]string{}
	for _, p := range DescribeTx(tx, nil) {
		got[p[0]] = p[1]
	}
	assert.Equal(t, "0xdeadbeef…", got["Call"])
	assert.Equal(t, ykpAddr.Hex(), got["To"])
	assert.Equal(t, "1 SEI", got["Value"])
}

func TestTxApprover(t *testing.T) {
	var out bytes.Buffer
	approve := NewPrompter(strings.NewReader("n\n"), &out).TxApprover(nil, false)
	ok, err := approve(context.Background(), preview())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "Sign transaction")

	out.Reset()
	approve = NewPrompter(strings.NewReader(""), &out).TxApprover(nil, true)
	ok, err = approve(context.Background(), preview())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotContains(t, out.String(), "[y/N]")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = approve(ctx, preview())
	assert.ErrorIs(t, err, context.Canceled)
}
