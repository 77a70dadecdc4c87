package indicator

import "fmt"

// ATRLite is a simplified average-true-range proxy: it averages the absolute
// close-to-close move |p_t - p_(t-1)| over a capped window instead of the
// full high/low true range. Strategy volatility caps are tuned against this
// proxy, so it must not be replaced with a real ATR.
type ATRLite struct {
	period    int
	moves     []float64 // circular, capacity = period
	idx       int
	count     int // total moves observed
	sum       float64
	prevPrice float64
	seeded    bool
	current   float64
}

// NewATRLite creates a new ATRLite indicator with the given window.
func NewATRLite(period int) (*ATRLite, error) {
	if period <= 1 {
		return nil, fmt.Errorf("atr period %d: %w", period, ErrInvalidPeriod)
	}
	return &ATRLite{
		period: period,
		moves:  make([]float64, period),
	}, nil
}

func (a *ATRLite) Name() string { return fmt.Sprintf("ATR_%d", a.period) }

func (a *ATRLite) Update(price float64) {
	if !a.seeded {
		a.prevPrice = price
		a.seeded = true
		return
	}

	move := price - a.prevPrice
	if move < 0 {
		move = -move
	}
	a.prevPrice = price

	if a.count >= a.period {
		a.sum -= a.moves[a.idx]
	}
	a.moves[a.idx] = move
	a.sum += move
	a.idx = (a.idx + 1) % a.period
	a.count++

	if a.count >= a.period {
		a.current = a.sum / float64(a.period)
	}
}

func (a *ATRLite) Value() float64 { return a.current }
func (a *ATRLite) Ready() bool    { return a.count >= a.period }
