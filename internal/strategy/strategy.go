// Package strategy provides the signal-generation engine for the trading bot.
//
// A Strategy consumes one spot price per call and emits a trading signal
// (BUY/SELL) or nil. All variants share the Update contract so the driver
// loop is written once against the interface. Updates must be made in
// strictly increasing time order for the same instance.
package strategy

import "errors"

// ErrInvalidConfig is returned by constructors for unusable parameters.
// It is fatal at startup; no runtime Update path returns errors.
var ErrInvalidConfig = errors.New("strategy: invalid config")

// Action represents a trading action.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Diag carries gate diagnostics emitted alongside trend-filtered signals,
// for logging and observability. HasRSI/HasATR report whether the
// corresponding gate value was available this tick.
type Diag struct {
	SMA    float64 `json:"sma"`
	RSI    float64 `json:"rsi"`
	ATRPct float64 `json:"atr_pct"`
	DevPct float64 `json:"dev_pct"`
	HasRSI bool    `json:"has_rsi"`
	HasATR bool    `json:"has_atr"`
}

// Signal represents a trading signal emitted by a strategy.
type Signal struct {
	StrategyName string `json:"strategy_name"`
	Action       Action `json:"action"`
	Reason       string `json:"reason"`
	Diag         *Diag  `json:"diag,omitempty"`
}

// Strategy is the interface that all trading strategies implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Update feeds the next price. Returns a Signal if the strategy wants
	// to act, or nil to skip.
	Update(price float64) *Signal
}
