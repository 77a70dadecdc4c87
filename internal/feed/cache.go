package feed

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"cryptobot/internal/model"
)

// Cache holds the most recent streamed tick per symbol and exposes the
// same GetPrice/QtyFromUSD surface as Client, so the trading loop can run
// off the websocket Stream instead of polling.
type Cache struct {
	mu      sync.Mutex
	last    map[string]model.PricePoint
	maxAge  time.Duration
	biasBps int

	now func() time.Time
}

// NewCache creates a tick cache. Ticks older than maxAge are treated as
// missing so a stalled stream degrades to skipped ticks, not stale trades.
func NewCache(maxAge time.Duration, biasBps int) *Cache {
	if maxAge <= 0 {
		maxAge = time.Minute
	}
	return &Cache{
		last:    make(map[string]model.PricePoint),
		maxAge:  maxAge,
		biasBps: biasBps,
		now:     time.Now,
	}
}

// Put stores the latest tick for its symbol.
func (c *Cache) Put(p model.PricePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last[p.Symbol] = p
}

// Run drains tickCh into the cache until ctx is cancelled or the channel
// closes. Pairs with Stream.Run.
func (c *Cache) Run(ctx context.Context, tickCh <-chan model.PricePoint) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-tickCh:
			if !ok {
				return
			}
			c.Put(p)
		}
	}
}

// GetPrice returns the freshest cached tick for symbol, or an error
// wrapping ErrAllSourcesFailed when nothing fresh has arrived.
func (c *Cache) GetPrice(_ context.Context, symbol string) (model.PricePoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.last[symbol]
	if !ok {
		return model.PricePoint{}, fmt.Errorf("%w: no streamed tick for %s", ErrAllSourcesFailed, symbol)
	}
	if age := c.now().Sub(p.TickTS); age > c.maxAge {
		return model.PricePoint{}, fmt.Errorf("%w: %s tick stale by %s", ErrAllSourcesFailed, symbol, age)
	}
	return p, nil
}

// QtyFromUSD sizes an order exactly as Client does.
func (c *Cache) QtyFromUSD(usd, price float64, side model.Side, decimals int) float64 {
	bias := float64(c.biasBps) / 10000.0
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
