// Package txflow sequences the approve-then-act transaction pairs that
// every token-spending operation needs.
package txflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/ykp/internal/chain"
	"github.com/Mohsinsiddi/ykp/internal/logging"
	"github.com/Mohsinsiddi/ykp/internal/provider"
)

var (
	// ErrCancelled means the user rejected a signature request (code 4001).
	ErrCancelled = errors.New("transaction cancelled by user")
	// ErrBusy means another action is still in flight.
	ErrBusy = errors.New("another transaction is in progress")
	// ErrApprovalReverted means the approve transaction was mined but failed.
	ErrApprovalReverted = errors.New("approval transaction reverted")
)

// StepError is any non-cancellation failure, tagged with the step it
// happened in.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + " failed: " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

// State is a step of the dispatch state machine.
type State int

const (
	Idle State = iota
	AwaitingApprovalSignature
	ApprovalSubmitted
	AwaitingActionSignature
	ActionSubmitted
	Failed
)

var stateNames = [...]string{
	Idle:                      "idle",
	AwaitingApprovalSignature: "awaiting-approval-signature",
	ApprovalSubmitted:         "approval-submitted",
	AwaitingActionSignature:   "awaiting-action-signature",
	ActionSubmitted:           "action-submitted",
	Failed:                    "error",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Call is one transaction to send.
type Call struct {
	To    common.Address
	Data  string
	Value *big.Int
}

// Action is a user operation: an optional exact-amount approve followed by
// the primary call.
type Action struct {
	Name    string
	Approve *Call
	Primary Call
}

// Result holds the hashes of a completed action.
type Result struct {
	ApproveHash string
	Hash        string
}

// Transition is reported to the observer on every state change.
type Transition struct {
	Action string
	From   State
	To     State
	Hash   string
	Err    error
}

// Observer receives transitions in order.
type Observer func(Transition)

// WaitMode selects how the dispatcher waits between approve and act.
type WaitMode string

const (
	// WaitDelay sleeps for a fixed delay and hopes the approval is mined.
	WaitDelay WaitMode = "delay"
	// WaitReceipt polls for the approval receipt.
	WaitReceipt WaitMode = "receipt"
)

// ParseWaitMode validates a config value. Empty means WaitDelay.
func ParseWaitMode(s string) (WaitMode, error) {
	switch WaitMode(s) {
	case "", WaitDelay:
		return WaitDelay, nil
	case WaitReceipt:
		return WaitReceipt, nil
	}
	return "", fmt.Errorf("unknown approval wait mode %q (want delay or receipt)", s)
}

// Config tunes the wait between approve and act.
type Config struct {
	Wait           WaitMode
	Delay          time.Duration
	ReceiptPoll    time.Duration
	ReceiptTimeout time.Duration
}

// DefaultConfig waits a fixed 2 seconds.
func DefaultConfig() Config {
	return Config{
		Wait:           WaitDelay,
		Delay:          2 * time.Second,
		ReceiptPoll:    time.Second,
		ReceiptTimeout: 2 * time.Minute,
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConfig sets the approval wait policy.
func WithConfig(c Config) Option { return func(d *Dispatcher) { d.cfg = c } }

// WithObserver registers a transition callback.
func WithObserver(o Observer) Option { return func(d *Dispatcher) { d.obs = o } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(d *Dispatcher) { d.log = logging.OrNop(l) } }

// Dispatcher runs one action at a time for a connected account.
type Dispatcher struct {
	p    provider.Provider
	from common.Address
	cfg  Config
	obs  Observer
	log  *zap.Logger

	busy  atomic.Bool
	mu    sync.Mutex
	state State
}

// NewDispatcher returns a dispatcher sending from account from.
func NewDispatcher(p provider.Provider, from common.Address, opts ...Option) *Dispatcher {
	d := &Dispatcher{p: p, from: from, cfg: DefaultConfig(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Run executes a. A rejected signature returns an error wrapping
// ErrCancelled; any other failure is a *StepError. Once a request has been
// handed to the wallet it cannot be withdrawn, so cancelling ctx only stops
// the dispatcher from sending the next step.
func (d *Dispatcher) Run(ctx context.Context, a Action) (*Result, error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer d.busy.Store(false)

	res := &Result{}
	if a.Approve != nil {
		d.transition(a.Name, AwaitingApprovalSignature, "", nil)
		hash, err := d.send(ctx, *a.Approve)
		if err != nil {
			return nil, d.fail(a.Name, "approve", err)
		}
		res.ApproveHash = hash
		d.transition(a.Name, ApprovalSubmitted, hash, nil)

		if err := d.awaitApproval(ctx, hash); err != nil {
			return res, d.fail(a.Name, "wait for approval", err)
		}
	}

	d.transition(a.Name, AwaitingActionSignature, "", nil)
	hash, err := d.send(ctx, a.Primary)
	if err != nil {
		return res, d.fail(a.Name, a.Name, err)
	}
	res.Hash = hash
	d.transition(a.Name, ActionSubmitted, hash, nil)
	d.transition(a.Name, Idle, hash, nil)
	return res, nil
}

func (d *Dispatcher) send(ctx context.Context, c Call) (string, error) {
	req := provider.TxRequest{From: d.from.Hex(), To: c.To.Hex(), Data: c.Data}
	if c.Value != nil && c.Value.Sign() > 0 {
		req.Value = hexutil.EncodeBig(c.Value)
	}
	raw, err := d.p.Request(ctx, "eth_sendTransaction", req)
	if err != nil {
		return "", err
	}
	var hash string
	if err := provider.Decode(raw, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

func (d *Dispatcher) awaitApproval(ctx context.Context, hash string) error {
	if d.cfg.Wait == WaitReceipt {
		return d.pollReceipt(ctx, hash)
	}
	t := time.NewTimer(d.cfg.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Dispatcher) pollReceipt(ctx context.Context, hash string) error {
	if d.cfg.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.ReceiptTimeout)
		defer cancel()
	}
	poll := d.cfg.ReceiptPoll
	if poll <= 0 {
		poll = time.Second
	}
	r, err := chain.WaitForReceipt(ctx, d.p.Request, hash, poll)
	if errors.Is(err, chain.ErrTxReverted) {
		return fmt.Errorf("%w (hash: %s)", ErrApprovalReverted, hash)
	}
	if err != nil {
		return err
	}
	d.log.Debug("approval mined", zap.String("hash", hash), zap.Uint64("block", r.BlockNumber))
	return nil
}

func (d *Dispatcher) fail(action, step string, err error) error {
	if provider.IsUserRejected(err) {
		err = fmt.Errorf("%s: %w", step, ErrCancelled)
	} else {
		err = &StepError{Step: step, Err: err}
	}
	d.transition(action, Failed, "", err)
	return err
}

func (d *Dispatcher) transition(action string, to State, hash string, err error) {
	d.mu.Lock()
	from := d.state
	d.state = to
	d.mu.Unlock()

	fields := []zap.Field{zap.String("action", action), zap.Stringer("from", from), zap.Stringer("to", to)}
	if hash != "" {
		fields = append(fields, zap.String("hash", hash))
	}
	if err != nil {
		d.log.Info("transaction step failed", append(fields, zap.Error(err))...)
	} else {
		d.log.Debug("transaction state", fields...)
	}
	if d.obs != nil {
		d.obs(Transition{Action: action, From: from, To: to, Hash: hash, Err: err})
	}
}
