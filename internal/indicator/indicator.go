// Package indicator provides streaming technical indicator calculations over
// a sequence of spot prices.
//
// All indicators implement the Indicator interface: feed prices with Update,
// read the current value once Ready reports true. Each instance owns its own
// bounded window state and must be fed sequentially.
package indicator

import "errors"

// ErrInvalidPeriod is returned by constructors when the requested window
// length cannot produce a meaningful value.
var ErrInvalidPeriod = errors.New("indicator: period must be > 1")

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20", "RSI_14").
	Name() string

	// Update feeds the next price and recalculates.
	Update(price float64)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool
}
