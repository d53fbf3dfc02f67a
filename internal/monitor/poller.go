// Package monitor refreshes contract state and wallet balances on a fixed
// interval.
package monitor

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/ykp/internal/calc"
	"github.com/Mohsinsiddi/ykp/internal/logging"
	"github.com/Mohsinsiddi/ykp/internal/protocol"
)

// Tick is the outcome of one poll. On failure only Err and At are set and
// the previous values should stay on screen.
type Tick struct {
	Snapshot *protocol.Snapshot
	Balances *protocol.Balances // nil without an account
	Loan     *protocol.Loan     // nil without an account
	Price    decimal.Decimal    // floored display price, LARRY per YKP
	Err      error
	At       time.Time
}

// Poller reads state through a protocol.Reader.
type Poller struct {
	reader  *protocol.Reader
	account *common.Address
	floor   *calc.PriceFloor
	log     *zap.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithAccount adds balance and loan reads for addr to every tick.
func WithAccount(addr common.Address) Option {
	return func(p *Poller) { p.account = &addr }
}

// WithFloor shares a price floor with other views.
func WithFloor(f *calc.PriceFloor) Option { return func(p *Poller) { p.floor = f } }

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option { return func(p *Poller) { p.log = logging.OrNop(l) } }

// NewPoller creates a poller over r.
func NewPoller(r *protocol.Reader, opts ...Option) *Poller {
	p := &Poller{
		reader: r,
		floor:  calc.NewPriceFloor(calc.FloorStart),
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Poll performs a single refresh.
func (p *Poller) Poll(ctx context.Context) (Tick, error) {
	var t Tick
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.reader.Snapshot(gctx)
		t.Snapshot = s
		return err
	})
	if p.account != nil {
		g.Go(func() error {
			b, err := p.reader.Balances(gctx, *p.account)
			t.Balances = b
			return err
		})
		g.Go(func() error {
			l, err := p.reader.Loan(gctx, *p.account)
			t.Loan = l
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Tick{Err: err, At: time.Now()}, err
	}

	t.At = t.Snapshot.At
	if price, err := calc.Price(t.Snapshot); err == nil {
		t.Price = p.floor.Observe(price)
	} else {
		t.Price = p.floor.Last()
	}
	return t, nil
}

// Run polls immediately and then every interval until ctx is done, handing
// each Tick to fn. A failed poll is logged and delivered with Err set; the
// loop keeps going. Ticks that fall due while a poll is still running are
// dropped. Run returns nil when ctx is cancelled.
func (p *Poller) Run(ctx context.Context, interval time.Duration, fn func(Tick)) error {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		t, err := p.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			p.log.Info("poll failed", zap.Error(err))
		}
		fn(t)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
