package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/Mohsinsiddi/ykp/internal/abi"
	"github.com/Mohsinsiddi/ykp/internal/provider"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

// Prompter asks yes/no questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm prompts with a yes/no question. Anything but y/yes is no.
func (p *Prompter) Confirm(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", StyleWarning.Render(prompt))
	return p.yes()
}

// ConfirmDanger is Confirm styled for destructive actions.
func (p *Prompter) ConfirmDanger(prompt string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", StyleError.Render("⚠ "+prompt))
	return p.yes()
}

func (p *Prompter) yes() bool {
	line, _ := p.in.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// Confirm prompts on stdin/stdout.
func Confirm(prompt string) bool { return NewPrompter(os.Stdin, os.Stdout).Confirm(prompt) }

// ConfirmDanger prompts on stdin/stdout.
func ConfirmDanger(prompt string) bool {
	return NewPrompter(os.Stdin, os.Stdout).ConfirmDanger(prompt)
}

// TxApprover returns a provider.Approver that shows each transaction and
// asks before it is signed. names labels known addresses such as the YKP
// and LARRY contracts. When assumeYes is set the preview is printed and
// the transaction approved without asking.
func (p *Prompter) TxApprover(names map[common.Address]string, assumeYes bool) provider.Approver {
	return func(ctx context.Context, tx provider.TxPreview) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		fmt.Fprintln(p.out, KeyValueBlock("Sign transaction", DescribeTx(tx, names)))
		if assumeYes {
			return true, nil
		}
		return p.Confirm("Sign and send?"), nil
	}
}

// DescribeTx lists the fields of a transaction preview for display.
func DescribeTx(tx provider.TxPreview, names map[common.Address]string) [][2]string {
	to := tx.To.Hex()
	if n, ok := names[tx.To]; ok {
		to = n + " " + StyleMeta.Render("("+TruncateAddr(to)+")")
	}

	call := "(none)"
	if tx.Data != "" && tx.Data != "0x" {
		call = tx.Data
		if len(call) > 10 {
			call = call[:10] + "…"
		}
		if e, ok := abi.Default().BySelector(tx.Data); ok {
			call = e.Signature
		}
	}

	pairs := [][2]string{
		{"Network", tx.Chain},
		{"From", tx.From.Hex()},
		{"To", to},
		{"Call", call},
	}
	if tx.Value != nil && tx.Value.Sign() > 0 {
		pairs = append(pairs, [2]string{"Value", units.IntegerToDecimal(tx.Value) + " SEI"})
	}
	pairs = append(pairs, [2]string{"Gas limit", fmt.Sprintf("%d", tx.Gas)})
	if tx.GasPrice != nil {
		pairs = append(pairs, [2]string{"Gas price", decimal.NewFromBigInt(tx.GasPrice, -9).StringFixed(2) + " gwei"})
	}
	return pairs
}
