// Package protocol reads YKP and LARRY contract state through a wallet
// provider.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/ykp/internal/abi"
	"github.com/Mohsinsiddi/ykp/internal/logging"
	"github.com/Mohsinsiddi/ykp/internal/provider"
)

// ErrNoContract is returned by Verify when an address has no bytecode.
var ErrNoContract = errors.New("no contract deployed")

// Reader issues read-only calls against the two token contracts.
type Reader struct {
	p      provider.Provider
	schema *abi.Schema
	ykp    common.Address
	larry  common.Address
	log    *zap.Logger
	now    func() time.Time
}

// NewReader returns a reader for the given contract addresses.
func NewReader(p provider.Provider, ykp, larry common.Address, log *zap.Logger) *Reader {
	return &Reader{
		p:      p,
		schema: abi.Default(),
		ykp:    ykp,
		larry:  larry,
		log:    logging.OrNop(log),
		now:    time.Now,
	}
}

// YKP returns the value token address.
func (r *Reader) YKP() common.Address { return r.ykp }

// Larry returns the backing token address.
func (r *Reader) Larry() common.Address { return r.larry }

type snapshotField struct {
	dst *(*big.Int)
	to  common.Address
	sig string
}

// Snapshot reads every state variable concurrently. A call that returns no
// data or reverts leaves its field nil and is listed in Missing; any other
// transport or node error fails the whole snapshot.
func (r *Reader) Snapshot(ctx context.Context) (*Snapshot, error) {
	s := &Snapshot{}
	fields := []snapshotField{
		{&s.LastPrice, r.ykp, "lastPrice()"},
		{&s.TotalSupply, r.ykp, "totalSupply()"},
		{&s.Backing, r.ykp, "getBacking()"},
		{&s.BuyFee, r.ykp, "getBuyFee()"},
		{&s.SellFee, r.ykp, "sell_fee()"},
		{&s.LeverageFee, r.ykp, "buy_fee_leverage()"},
		{&s.TotalBorrowed, r.ykp, "getTotalBorrowed()"},
		{&s.TotalCollateral, r.ykp, "getTotalCollateral()"},
		{&s.LarryPrice, r.larry, "lastPrice()"},
		{&s.LarrySupply, r.larry, "totalSupply()"},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fields {
		f := f
		g.Go(func() error {
			v, err := r.callUint(gctx, f.to, f.sig)
			if unavailable(err) {
				if provider.IsReverted(err) {
					r.log.Debug("read reverted", zap.String("call", r.label(f.to)+"."+f.sig), zap.Error(err))
				}
				mu.Lock()
				s.Missing = append(s.Missing, r.label(f.to)+"."+f.sig)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s %s: %w", r.label(f.to), f.sig, err)
			}
			*f.dst = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(s.Missing)
	s.At = r.now()
	if len(s.Missing) > 0 {
		r.log.Debug("snapshot incomplete", zap.Strings("missing", s.Missing))
	}
	return s, nil
}

// Loan reads Loans(addr). An address without a position, or a contract that
// returns nothing or reverts, yields an inactive zero loan.
func (r *Reader) Loan(ctx context.Context, addr common.Address) (*Loan, error) {
	data, err := r.schema.EncodeCall("Loans(address)", abi.Address(addr.Hex()))
	if err != nil {
		return nil, err
	}
	out, err := r.ethCall(ctx, r.ykp, data)
	var words []*big.Int
	if err == nil {
		words, err = abi.DecodeUints(out, 4)
	}
	if unavailable(err) {
		r.log.Debug("Loans returned no data", zap.String("address", addr.Hex()), zap.Error(err))
		return &Loan{Collateral: new(big.Int), Borrowed: new(big.Int)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading loan: %w", err)
	}
	return &Loan{
		Collateral:   words[0],
		Borrowed:     words[1],
		EndDate:      words[2].Int64(),
		NumberOfDays: words[3].Uint64(),
	}, nil
}

// Balances reads the LARRY and YKP balances of addr concurrently.
func (r *Reader) Balances(ctx context.Context, addr common.Address) (*Balances, error) {
	b := &Balances{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.balanceOf(gctx, r.larry, addr)
		b.Larry = v
		return err
	})
	g.Go(func() error {
		v, err := r.balanceOf(gctx, r.ykp, addr)
		b.YKP = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Reader) balanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	v, err := r.callUint(ctx, token, "balanceOf(address)", abi.Address(owner.Hex()))
	if unavailable(err) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s balanceOf: %w", r.label(token), err)
	}
	return v, nil
}

// Allowance reads token.allowance(owner, spender). No data or a revert
// reads as zero.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	v, err := r.callUint(ctx, token, "allowance(address,address)", abi.Address(owner.Hex()), abi.Address(spender.Hex()))
	if unavailable(err) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s allowance: %w", r.label(token), err)
	}
	return v, nil
}

// Code returns the bytecode deployed at addr.
func (r *Reader) Code(ctx context.Context, addr common.Address) ([]byte, error) {
	raw, err := r.p.Request(ctx, "eth_getCode", addr.Hex(), "latest")
	if err != nil {
		return nil, fmt.Errorf("eth_getCode %s: %w", addr.Hex(), err)
	}
	var code string
	if err := provider.Decode(raw, &code); err != nil {
		return nil, err
	}
	b, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("eth_getCode %s: %w", addr.Hex(), err)
	}
	return b, nil
}

// Verify checks that both contract addresses hold bytecode.
func (r *Reader) Verify(ctx context.Context) error {
	for _, addr := range []common.Address{r.ykp, r.larry} {
		code, err := r.Code(ctx, addr)
		if err != nil {
			return err
		}
		if len(code) == 0 {
			return fmt.Errorf("%w at %s (%s)", ErrNoContract, addr.Hex(), r.label(addr))
		}
	}
	return nil
}

// Undispatched lists the live write selectors that do not appear in the
// YKP contract's dispatcher.
func (r *Reader) Undispatched(ctx context.Context) ([]abi.Entry, error) {
	code, err := r.Code(ctx, r.ykp)
	if err != nil {
		return nil, err
	}
	return r.schema.Undispatched(code), nil
}

func (r *Reader) callUint(ctx context.Context, to common.Address, sig string, params ...abi.Param) (*big.Int, error) {
	data, err := r.schema.EncodeCall(sig, params...)
	if err != nil {
		return nil, err
	}
	out, err := r.ethCall(ctx, to, data)
	if err != nil {
		return nil, err
	}
	return abi.DecodeUint(out)
}

func (r *Reader) ethCall(ctx context.Context, to common.Address, data string) (string, error) {
	raw, err := r.p.Request(ctx, "eth_call", map[string]string{"to": to.Hex(), "data": data}, "latest")
	if err != nil {
		return "", err
	}
	var out string
	if err := provider.Decode(raw, &out); err != nil {
		return "", err
	}
	return out, nil
}

// unavailable reports whether a read failed in a way that means "no value"
// rather than "no connection": an empty result or a reverted call.
func unavailable(err error) bool {
	return errors.Is(err, abi.ErrEmptyResult) || provider.IsReverted(err)
}

func (r *Reader) label(addr common.Address) string {
	switch addr {
	case r.ykp:
		return "YKP"
	case r.larry:
		return "LARRY"
	}
	return addr.Hex()
}
