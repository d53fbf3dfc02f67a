// Package quote talks to the two optional pricing APIs: a CoinGecko-compatible
// simple-price endpoint for the SEI fiat price, and a swap-quote endpoint
// used to compare an external route against the contract's own quote. Both
// are best-effort: callers drop the row when a quote cannot be had.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Mohsinsiddi/ykp/internal/logging"
	"github.com/Mohsinsiddi/ykp/internal/units"
)

// SeiID is the CoinGecko coin ID of the SEI gas token.
const SeiID = "sei-network"

// ErrQuoteUnavailable is returned for every failure mode, including a
// disabled client.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Client retrieves fiat prices and swap quotes. Each API is disabled while
// its URL is empty.
type Client struct {
	base     string
	swap     string
	currency string
	http     *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLimit sets how many requests per second the client may issue.
func WithLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = logging.OrNop(l) } }

// WithSwapURL enables Quote against the swap-quote API rooted at u.
func WithSwapURL(u string) Option {
	return func(c *Client) { c.swap = strings.TrimRight(u, "/") }
}

// NewClient creates a client for the simple-price API rooted at base, e.g.
// "https://api.coingecko.com/api/v3". currency defaults to "usd".
func NewClient(base, currency string, timeout time.Duration, opts ...Option) *Client {
	if currency == "" {
		currency = "usd"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		base:     strings.TrimRight(base, "/"),
		currency: strings.ToLower(currency),
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether a fiat price URL is configured.
func (c *Client) Enabled() bool { return c != nil && c.base != "" }

// SwapEnabled reports whether a swap-quote URL is configured.
func (c *Client) SwapEnabled() bool { return c != nil && c.swap != "" }

// Currency returns the fiat currency code prices are quoted in.
func (c *Client) Currency() string { return c.currency }

// Price returns the fiat price of one unit of the coin with the given ID.
func (c *Client) Price(ctx context.Context, id string) (decimal.Decimal, error) {
	prices, err := c.Prices(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	p, ok := prices[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", ErrQuoteUnavailable, id)
	}
	return p, nil
}

// Prices fetches several coin IDs in one request. Coins the API does not
// know are absent from the result.
func (c *Client) Prices(ctx context.Context, ids ...string) (map[string]decimal.Decimal, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: no quote API configured", ErrQuoteUnavailable)
	}
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", c.currency)

	// {"sei-network":{"usd":0.1234}}
	var raw map[string]map[string]json.Number
	if err := c.getJSON(ctx, c.base+"/simple/price?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(raw))
	for id, byCurrency := range raw {
		n, ok := byCurrency[c.currency]
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			continue
		}
		out[id] = d
	}
	return out, nil
}

// Quote asks the swap-quote API how much of token to an amount of token
// from would buy. Amounts are whole-token decimals; both tokens are assumed
// to use 18 decimals. The request is
//
//	GET <swap>/quote?src=<from>&dst=<to>&amount=<base units>
//
// and the response carries {"dstAmount": "<base units>"}.
func (c *Client) Quote(ctx context.Context, from, to common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if !c.SwapEnabled() {
		return decimal.Zero, fmt.Errorf("%w: no swap quote API configured", ErrQuoteUnavailable)
	}
	in := units.FromDecimal(amount)
	if in.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrQuoteUnavailable)
	}

	q := url.Values{}
	q.Set("src", from.Hex())
	q.Set("dst", to.Hex())
	q.Set("amount", in.String())

	var resp struct {
		DstAmount string `json:"dstAmount"`
	}
	if err := c.getJSON(ctx, c.swap+"/quote?"+q.Encode(), &resp); err != nil {
		return decimal.Zero, err
	}
	out, ok := new(big.Int).SetString(resp.DstAmount, 10)
	if !ok || out.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("%w: bad dstAmount %q", ErrQuoteUnavailable, resp.DstAmount)
	}
	return units.ToDecimal(out), nil
}

// getJSON issues a rate-limited GET and decodes a JSON body into v. Every
// failure is wrapped in ErrQuoteUnavailable.
func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("quote request failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("quote request rejected", zap.String("url", u), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: HTTP %d", ErrQuoteUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrQuoteUnavailable, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: parsing response: %v", ErrQuoteUnavailable, err)
	}
	return nil
}
