package strategy

import (
	"fmt"
	"math"
)

// PriceMove fires whenever the price has moved at least `threshold` in
// absolute terms from the last reference price. The sign of the move picks
// the side, and the reference resets to the current price after every
// signal, so each subsequent signal requires a fresh move of the same
// magnitude from the new reference.
type PriceMove struct {
	name      string
	threshold float64
	ref       float64
	seeded    bool
}

// NewPriceMove creates a price-move threshold strategy.
func NewPriceMove(threshold float64) (*PriceMove, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("threshold %v must be > 0: %w", threshold, ErrInvalidConfig)
	}
	return &PriceMove{name: "price_move", threshold: threshold}, nil
}

func (p *PriceMove) Name() string { return p.name }

func (p *PriceMove) Update(price float64) *Signal {
	if !p.seeded {
		p.ref = price
		p.seeded = true
		return nil
	}

	delta := price - p.ref
	if math.Abs(delta) < p.threshold {
		return nil
	}

	p.ref = price
	if delta > 0 {
		return &Signal{StrategyName: p.name, Action: ActionBuy, Reason: "move_up"}
	}
	return &Signal{StrategyName: p.name, Action: ActionSell, Reason: "move_down"}
}
