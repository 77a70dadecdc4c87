package indicator

import "fmt"

// RSI calculates the Relative Strength Index over the last `period` price
// deltas. Gains and losses are kept in capped circular buffers and averaged
// directly (no Wilder smoothing); this matches the bands the strategies are
// tuned against. When the loss average is zero the value saturates at 100.
type RSI struct {
	period    int
	gains     []float64 // circular, capacity = period
	losses    []float64
	idx       int
	deltas    int // total deltas observed
	gainSum   float64
	lossSum   float64
	prevPrice float64
	seeded    bool
	current   float64
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) (*RSI, error) {
	if period <= 1 {
		return nil, fmt.Errorf("rsi period %d: %w", period, ErrInvalidPeriod)
	}
	return &RSI{
		period: period,
		gains:  make([]float64, period),
		losses: make([]float64, period),
	}, nil
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI_%d", r.period) }

func (r *RSI) Update(price float64) {
	if !r.seeded {
		// First price only seeds the delta baseline
		r.prevPrice = price
		r.seeded = true
		return
	}

	delta := price - r.prevPrice
	r.prevPrice = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.deltas >= r.period {
		// Evict the oldest delta being overwritten
		r.gainSum -= r.gains[r.idx]
		r.lossSum -= r.losses[r.idx]
	}
	r.gains[r.idx] = gain
	r.losses[r.idx] = loss
	r.gainSum += gain
	r.lossSum += loss
	r.idx = (r.idx + 1) % r.period
	r.deltas++

	if r.deltas < r.period {
		return
	}

	avgLoss := r.lossSum / float64(r.period)
	if avgLoss == 0 {
		r.current = 100.0
		return
	}
	avgGain := r.gainSum / float64(r.period)
	rs := avgGain / avgLoss
	r.current = 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.deltas >= r.period }
