package strategy

import "fmt"

// Swing is a high/low reversal strategy. It tracks running high-water and
// low-water anchors that update on every tick. While flat, a buy fires once
// price has fallen at least `threshold` below the running high; the low
// anchor then resets to the entry price. While long, a sell fires once price
// has risen at least `threshold` above the running low; the high anchor then
// resets to the exit price. The reversal trigger is always measured from the
// most extreme price seen since the last trade, not from the entry price.
type Swing struct {
	name      string
	threshold float64
	high      float64
	low       float64
	seeded    bool
	long      bool
}

// NewSwing creates a swing-reversal strategy with an absolute threshold.
func NewSwing(threshold float64) (*Swing, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("threshold %v must be > 0: %w", threshold, ErrInvalidConfig)
	}
	return &Swing{name: "swing", threshold: threshold}, nil
}

func (s *Swing) Name() string { return s.name }

func (s *Swing) Update(price float64) *Signal {
	if !s.seeded {
		s.high, s.low = price, price
		s.seeded = true
		return nil
	}

	if price > s.high {
		s.high = price
	}
	if price < s.low {
		s.low = price
	}

	if !s.long {
		if s.high-price >= s.threshold {
			s.long = true
			s.low = price // fresh low anchor from the entry
			return &Signal{StrategyName: s.name, Action: ActionBuy, Reason: "dip_from_high"}
		}
		return nil
	}

	if price-s.low >= s.threshold {
		s.long = false
		s.high = price // fresh high anchor from the exit
		return &Signal{StrategyName: s.name, Action: ActionSell, Reason: "rise_from_low"}
	}
	return nil
}
