package model

import "time"

// PricePoint is a single spot price observation for one symbol.
// Produced by the feed layer, consumed by strategies. Never persisted.
type PricePoint struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Source string    `json:"source"`  // feed source name, e.g. "coinbase"
	TickTS time.Time `json:"tick_ts"` // UTC timestamp
}
