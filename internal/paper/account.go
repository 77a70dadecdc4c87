// Package paper implements the simulated trading account ledger.
//
// The Account tracks cash, per-symbol positions with weighted-average cost
// basis, and realized P&L. Every fill is appended to an in-memory history
// and handed to a Recorder for durable persistence before the next trade
// decision is made.
package paper

import (
	"log/slog"
	"sync"
	"time"

	"cryptobot/internal/model"
)

// Tolerances for floating-point cash checks and position dust.
const (
	cashEpsilon = 1e-12
	dustEpsilon = 1e-12
)

// Recorder persists fills durably. Implementations must flush each row
// before returning so that crash recovery never loses a confirmed fill.
type Recorder interface {
	Append(fill model.Fill) error
}

// Stats is a point-in-time account summary.
type Stats struct {
	Cash        float64                   `json:"cash"`
	RealizedPnL float64                   `json:"realized_pnl"`
	Wins        int                       `json:"wins"`
	Losses      int                       `json:"losses"`
	WinRatePct  float64                   `json:"win_rate_pct"`
	Positions   map[string]model.Position `json:"positions"`
	TotalTrades int                       `json:"total_trades"`
}

// Account is the paper trading ledger. All operations are safe for
// concurrent use, though the driver loop calls them sequentially.
type Account struct {
	mu          sync.Mutex
	cash        float64
	feeBps      int
	positions   map[string]*model.Position
	history     []model.Fill
	realizedPnL float64
	wins        int
	losses      int

	recorder Recorder
	now      func() time.Time
}

// NewAccount creates a paper account with the given starting cash and fee
// rate in basis points, applied identically on both sides of a trade.
func NewAccount(startingCash float64, feeBps int) *Account {
	return &Account{
		cash:      startingCash,
		feeBps:    feeBps,
		positions: make(map[string]*model.Position),
		history:   make([]model.Fill, 0, 256),
		now:       time.Now,
	}
}

// SetRecorder attaches a durable fill recorder. Pass nil to disable.
func (a *Account) SetRecorder(r Recorder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recorder = r
}

func (a *Account) fee(notional float64) float64 {
	return notional * float64(a.feeBps) / 10000.0
}

func (a *Account) pos(symbol string) *model.Position {
	p, ok := a.positions[symbol]
	if !ok {
		p = &model.Position{}
		a.positions[symbol] = p
	}
	return p
}

// Buy debits cash by notional+fee and blends the lot into the symbol's
// average cost basis (which therefore includes buy fees). Returns false
// with no mutation on non-positive inputs or insufficient cash.
func (a *Account) Buy(symbol string, qty, price float64) bool {
	if qty <= 0 || price <= 0 {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	notional := qty * price
	fee := a.fee(notional)
	totalCost := notional + fee
	if totalCost > a.cash+cashEpsilon {
		return false
	}

	a.cash -= totalCost

	p := a.pos(symbol)
	newQty := p.Qty + qty
	p.AvgCost = (p.Qty*p.AvgCost + totalCost) / newQty
	p.Qty = newQty

	a.record(symbol, model.SideBuy, qty, price, fee, notional, 0)
	return true
}

// Sell clamps the requested quantity to the held quantity (never
// oversells), credits cash by notional-fee, and realizes P&L against the
// average cost basis. A position left at or below the dust threshold resets
// fully to zero so no stale cost basis survives.
func (a *Account) Sell(symbol string, qty, price float64) bool {
	if qty <= 0 || price <= 0 {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.pos(symbol)
	if qty > p.Qty {
		qty = p.Qty
	}
	if qty <= 0 {
		return false
	}

	notional := qty * price
	fee := a.fee(notional)

	realized := (price-p.AvgCost)*qty - fee
	a.realizedPnL += realized
	if realized >= 0 {
		a.wins++
	} else {
		a.losses++
	}

	a.cash += notional - fee
	p.Qty -= qty
	if p.Qty <= dustEpsilon {
		p.Qty, p.AvgCost = 0, 0
	}

	a.record(symbol, model.SideSell, qty, price, fee, notional, realized)
	return true
}

// QtyHeld returns the held quantity for a symbol.
func (a *Account) QtyHeld(symbol string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.positions[symbol]; ok {
		return p.Qty
	}
	return 0
}

// Cash returns the current cash balance.
func (a *Account) Cash() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash
}

// SetCash overwrites the cash balance. Used when resuming a session from a
// persisted journal, which restores cash only (positions are not replayed
// on resume; see ReplayFills for the full reconstruction path).
func (a *Account) SetCash(cash float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cash = cash
}

// Equity returns cash plus the marked value of held positions. Symbols
// absent from marks are valued at zero; supplying correct marks is the
// caller's contract.
func (a *Account) Equity(marks map[string]float64) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	value := a.cash
	for sym, p := range a.positions {
		if p.Qty > 0 {
			if mark, ok := marks[sym]; ok && mark > 0 {
				value += p.Qty * mark
			}
		}
	}
	return value
}

// Position returns a copy of the symbol's position.
func (a *Account) Position(symbol string) model.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.positions[symbol]; ok {
		return *p
	}
	return model.Position{}
}

// Fills returns a snapshot of the fill history.
func (a *Account) Fills() []model.Fill {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make([]model.Fill, len(a.history))
	copy(cp, a.history)
	return cp
}

// Stats returns a summary of the account state.
func (a *Account) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := a.wins + a.losses
	winRate := 0.0
	if total > 0 {
		winRate = float64(a.wins) / float64(total) * 100.0
	}

	positions := make(map[string]model.Position, len(a.positions))
	for sym, p := range a.positions {
		positions[sym] = *p
	}

	return Stats{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Wins:        a.wins,
		Losses:      a.losses,
		WinRatePct:  winRate,
		Positions:   positions,
		TotalTrades: len(a.history),
	}
}

// ReplayFills rebuilds cash, positions, and realized P&L by applying a
// persisted fill log in order. This is the crash-recovery reconstruction
// path: replaying the journal must reproduce the same final state as the
// live buy/sell calls that produced it.
func (a *Account) ReplayFills(fills []model.Fill) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, f := range fills {
		switch f.Side {
		case model.SideBuy:
			totalCost := f.Notional + f.Fee
			a.cash -= totalCost
			p := a.pos(f.Symbol)
			newQty := p.Qty + f.Qty
			p.AvgCost = (p.Qty*p.AvgCost + totalCost) / newQty
			p.Qty = newQty
		case model.SideSell:
			a.cash += f.Notional - f.Fee
			a.realizedPnL += f.RealizedPnL
			if f.RealizedPnL >= 0 {
				a.wins++
			} else {
				a.losses++
			}
			p := a.pos(f.Symbol)
			p.Qty -= f.Qty
			if p.Qty <= dustEpsilon {
				p.Qty, p.AvgCost = 0, 0
			}
		}
		a.history = append(a.history, f)
	}
}

func (a *Account) record(symbol string, side model.Side, qty, price, fee, notional, realized float64) {
	fill := model.Fill{
		TS:          a.now().UTC(),
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		Price:       price,
		Fee:         fee,
		Notional:    notional,
		RealizedPnL: realized,
		CashAfter:   a.cash,
	}
	a.history = append(a.history, fill)

	if a.recorder != nil {
		if err := a.recorder.Append(fill); err != nil {
			slog.Warn("fill persistence failed", "symbol", symbol, "side", side, "err", err)
		}
	}
}
