package strategy

import (
	"fmt"

	"cryptobot/internal/indicator"
)

// SMACrossover implements a simple SMA crossover strategy.
//
// Buy signal: short SMA crosses from below/equal to strictly above the long
// SMA. Sell signal: the mirror transition. Signals fire only on the crossing
// event itself; the first tick where both windows are full establishes the
// baseline relation without emitting.
type SMACrossover struct {
	name  string
	short *indicator.SMA
	long  *indicator.SMA

	// prevAbove is the short-vs-long relation on the previous ready tick:
	// +1 short > long, -1 otherwise. 0 = baseline not yet established.
	prevAbove int
}

// NewSMACrossover creates a new SMA crossover strategy.
// shortPeriod must be strictly less than longPeriod (e.g., 5 and 20).
func NewSMACrossover(shortPeriod, longPeriod int) (*SMACrossover, error) {
	if shortPeriod >= longPeriod {
		return nil, fmt.Errorf("short %d must be < long %d: %w", shortPeriod, longPeriod, ErrInvalidConfig)
	}
	short, err := indicator.NewSMA(shortPeriod)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	long, err := indicator.NewSMA(longPeriod)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	return &SMACrossover{
		name:  fmt.Sprintf("sma_cross_%d_%d", shortPeriod, longPeriod),
		short: short,
		long:  long,
	}, nil
}

func (s *SMACrossover) Name() string { return s.name }

func (s *SMACrossover) Update(price float64) *Signal {
	s.short.Update(price)
	s.long.Update(price)

	if !s.long.Ready() {
		return nil
	}

	above := -1
	if s.short.Value() > s.long.Value() {
		above = 1
	}

	if s.prevAbove == 0 {
		// First ready tick: baseline only
		s.prevAbove = above
		return nil
	}

	prev := s.prevAbove
	s.prevAbove = above

	switch {
	case prev == -1 && above == 1:
		return &Signal{StrategyName: s.name, Action: ActionBuy, Reason: "golden_cross"}
	case prev == 1 && above == -1:
		return &Signal{StrategyName: s.name, Action: ActionSell, Reason: "death_cross"}
	}
	return nil
}
