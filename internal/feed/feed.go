// Package feed fetches spot prices from public market-data endpoints.
//
// A Client tries an ordered list of sources, retrying each with exponential
// backoff before falling through to the next. The last observed price is
// held as instance state on the Client (never as shared process-wide state).
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"cryptobot/internal/model"
)

// ErrAllSourcesFailed is returned once every configured source has
// exhausted its retries.
var ErrAllSourcesFailed = errors.New("feed: all sources failed")

// Source fetches one spot price for a symbol.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (float64, error)
}

// ClientConfig configures the multi-source price client.
type ClientConfig struct {
	Retries   int           // per-source attempts
	BaseDelay time.Duration // backoff base, doubled per retry with jitter
	BiasBps   int           // slippage cushion applied by QtyFromUSD
}

// DefaultClientConfig mirrors the production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Retries:   3,
		BaseDelay: 2 * time.Second,
		BiasBps:   85,
	}
}

// Client is a multi-source spot price fetcher with retry and fallback.
type Client struct {
	cfg     ClientConfig
	sources []Source

	prev    float64
	hasPrev bool

	sleep func(ctx context.Context, d time.Duration) error // injectable
}

// NewClient creates a Client trying sources in the given order.
func NewClient(cfg ClientConfig, sources ...Source) *Client {
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	return &Client{
		cfg:     cfg,
		sources: sources,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetPrice fetches the current spot price for symbol, trying each source in
// order with per-source retries. Returns ErrAllSourcesFailed (wrapped) when
// nothing responds.
func (c *Client) GetPrice(ctx context.Context, symbol string) (model.PricePoint, error) {
	for _, src := range c.sources {
		for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
			price, err := src.Fetch(ctx, symbol)
			if err == nil && price > 0 {
				if c.hasPrev {
					slog.Debug("price tick",
						"source", src.Name(), "symbol", symbol,
						"price", price, "delta", price-c.prev)
				}
				c.prev = price
				c.hasPrev = true
				return model.PricePoint{
					Symbol: symbol,
					Price:  price,
					Source: src.Name(),
					TickTS: time.Now().UTC(),
				}, nil
			}

			wait := c.cfg.BaseDelay*time.Duration(1<<(attempt-1)) +
				time.Duration(rand.Int63n(int64(time.Second)))
			slog.Warn("feed fetch failed",
				"source", src.Name(), "symbol", symbol,
				"attempt", attempt, "retries", c.cfg.Retries, "err", err)
			if attempt < c.cfg.Retries {
				if err := c.sleep(ctx, wait); err != nil {
					return model.PricePoint{}, err
				}
			}
		}
		slog.Warn("feed source exhausted, switching", "source", src.Name(), "symbol", symbol)
	}
	return model.PricePoint{}, fmt.Errorf("%w: %s", ErrAllSourcesFailed, symbol)
}

// Prev returns the last successfully fetched price, if any.
func (c *Client) Prev() (float64, bool) {
	return c.prev, c.hasPrev
}

// QtyFromUSD converts a USD notional into an asset quantity at the given
// price, cushioned by the configured slippage bias: buys assume a slightly
// higher effective price, sells a slightly lower one. The result is rounded
// down to the symbol's quantity precision so sizing never exceeds notional.
func (c *Client) QtyFromUSD(usd, price float64, side model.Side, decimals int) float64 {
	bias := float64(c.cfg.BiasBps) / 10000.0
	switch side {
	case model.SideBuy:
		price *= 1.0 + bias
	case model.SideSell:
		price *= 1.0 - bias
	}
	if price <= 0 {
		return 0
	}
	qty := usd / price
	scale := math.Pow10(decimals)
	return math.Floor(qty*scale) / scale
}
