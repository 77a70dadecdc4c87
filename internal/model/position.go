package model

// Position is one symbol's holding in the paper account.
// AvgCost is quote currency per unit and includes accumulated buy fees.
// Invariant: Qty == 0 implies AvgCost == 0 (enforced by the ledger).
type Position struct {
	Qty     float64 `json:"qty"`
	AvgCost float64 `json:"avg_cost"`
}

// MarketValue returns the position value at the given mark price.
func (p Position) MarketValue(mark float64) float64 {
	return p.Qty * mark
}
