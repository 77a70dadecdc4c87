// Package risk provides admission control in front of order placement.
//
// A Guard enforces a per-order notional cap, a rolling daily buy-spend cap,
// and a post-buy cooldown. Sells are never throttled: only the per-order cap
// applies to exits.
package risk

import (
	"fmt"
	"sync"
	"time"

	"cryptobot/internal/model"
)

// Guard is a stateful admission gate. Day rollover is detected lazily on
// every Allow/Record call by comparing the current UTC calendar date to the
// stored one, so a long-idle instance catches up on its next call without
// any background timer.
//
// Cooldown arithmetic relies on the monotonic reading carried by time.Time
// values from time.Now, while day boundaries use the UTC wall clock. The two
// must not be conflated.
type Guard struct {
	mu          sync.Mutex
	maxPerOrder float64
	maxDaily    float64
	cooldown    time.Duration

	day           string // current UTC date, "2006-01-02"
	spent         float64
	cooldownUntil time.Time
	hasCooldown   bool

	now func() time.Time // injectable for tests
}

// New creates a Guard. maxPerOrder caps any single order's notional;
// maxDaily caps cumulative buy notional per UTC day; cooldown blocks buys
// for that long after each recorded buy.
func New(maxPerOrder, maxDaily float64, cooldown time.Duration) *Guard {
	g := &Guard{
		maxPerOrder: maxPerOrder,
		maxDaily:    maxDaily,
		cooldown:    cooldown,
		now:         time.Now,
	}
	g.day = g.now().UTC().Format("2006-01-02")
	return g
}

func (g *Guard) rollDayIfNeeded() {
	today := g.now().UTC().Format("2006-01-02")
	if g.day != today {
		g.day = today
		g.spent = 0
	}
}

// Allow reports whether an order of the given notional may be placed.
// The reason is "ok" when permitted. The per-order cap applies to both
// sides; the daily cap and cooldown apply to buys only.
func (g *Guard) Allow(notional float64, side model.Side) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDayIfNeeded()

	if notional <= 0 {
		return false, "invalid_notional"
	}
	if notional > g.maxPerOrder {
		return false, fmt.Sprintf("over_per_order_cap(%.2f>%.2f)", notional, g.maxPerOrder)
	}

	if side == model.SideBuy {
		projected := g.spent + notional
		if projected > g.maxDaily {
			return false, fmt.Sprintf("over_daily_cap(%.2f>%.2f)", projected, g.maxDaily)
		}
		if g.hasCooldown {
			if remaining := g.cooldownUntil.Sub(g.now()); remaining > 0 {
				return false, fmt.Sprintf("cooldown_active(%ds_left)", int(remaining.Seconds()))
			}
		}
	}

	return true, "ok"
}

// Record must be called exactly once after a confirmed fill, never on
// submission. A buy increments today's spend and arms a fresh cooldown;
// a sell has no effect on risk state.
func (g *Guard) Record(notional float64, side model.Side) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDayIfNeeded()

	if side != model.SideBuy {
		return
	}
	if notional > 0 {
		g.spent += notional
	}
	if g.cooldown > 0 {
		g.cooldownUntil = g.now().Add(g.cooldown)
		g.hasCooldown = true
	}
}

// SpentToday returns today's cumulative recorded buy notional.
func (g *Guard) SpentToday() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rollDayIfNeeded()
	return g.spent
}

// CooldownRemaining returns how long buys remain blocked, or zero.
func (g *Guard) CooldownRemaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasCooldown {
		return 0
	}
	if remaining := g.cooldownUntil.Sub(g.now()); remaining > 0 {
		return remaining
	}
	return 0
}
