package model

import "time"

// Side of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Fill is an immutable snapshot of one executed trade. Fills are appended to
// the account history and to the durable journal; they are never mutated.
// RealizedPnL is populated only on sell fills.
type Fill struct {
	TS          time.Time `json:"ts"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Qty         float64   `json:"qty"`
	Price       float64   `json:"price"`
	Fee         float64   `json:"fee"`
	Notional    float64   `json:"notional"` // qty * price, pre-fee
	RealizedPnL float64   `json:"realized_pnl"`
	CashAfter   float64   `json:"cash_after"`
}
