package strategy

import (
	"fmt"
	"math"

	"cryptobot/internal/indicator"
)

// SwingConfig configures the trend-filtered swing strategy. Percentages are
// expressed as percent values (2.0 = 2%), not fractions.
type SwingConfig struct {
	BuyPct       float64 // buy when price <= SMA * (1 - BuyPct/100)
	SellPct      float64 // sell when price >= SMA * (1 + SellPct/100)
	TrendWindow  int     // SMA window for the trend anchor
	RSIWindow    int
	ATRWindow    int
	EnableRSI    bool
	EnableATR    bool
	RSIBuy       float64 // buy allowed only when RSI <= this
	RSISell      float64 // sell allowed only when RSI >= this
	ATRCapPct    float64 // all signals suppressed when ATR%-of-price > this
	ThresholdAbs float64 // ignore ticks moving less than this absolute amount
	TrailPct     float64 // 0 disables the trailing stop
}

// DefaultSwingConfig returns the strategy defaults with gates enabled.
func DefaultSwingConfig() SwingConfig {
	return SwingConfig{
		BuyPct:      1.0,
		SellPct:     3.0,
		TrendWindow: 50,
		RSIWindow:   14,
		ATRWindow:   14,
		EnableRSI:   true,
		EnableATR:   true,
		RSIBuy:      35.0,
		RSISell:     65.0,
		ATRCapPct:   5.0,
	}
}

// TrendSwing is mean-reversion around a trend SMA, gated by RSI and ATR
// (both optional). Emission is position-gated: a buy opens a single tranche
// and only a sell (band or trailing stop) can follow it. Signals carry gate
// diagnostics for observability.
type TrendSwing struct {
	name string
	cfg  SwingConfig

	trend *indicator.SMA
	rsi   *indicator.RSI
	atr   *indicator.ATRLite

	prevPrice float64
	seeded    bool
	long      bool
	highWater float64
}

// NewTrendSwing creates the trend-filtered swing strategy.
func NewTrendSwing(cfg SwingConfig) (*TrendSwing, error) {
	if cfg.TrendWindow <= 1 {
		return nil, fmt.Errorf("trend_window %d must be > 1: %w", cfg.TrendWindow, ErrInvalidConfig)
	}
	if cfg.RSIWindow <= 1 {
		return nil, fmt.Errorf("rsi_window %d must be > 1: %w", cfg.RSIWindow, ErrInvalidConfig)
	}
	if cfg.ATRWindow <= 1 {
		return nil, fmt.Errorf("atr_window %d must be > 1: %w", cfg.ATRWindow, ErrInvalidConfig)
	}

	trend, err := indicator.NewSMA(cfg.TrendWindow)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	ts := &TrendSwing{
		name:  fmt.Sprintf("trend_swing_%d", cfg.TrendWindow),
		cfg:   cfg,
		trend: trend,
	}
	if cfg.EnableRSI {
		if ts.rsi, err = indicator.NewRSI(cfg.RSIWindow); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
		}
	}
	if cfg.EnableATR {
		if ts.atr, err = indicator.NewATRLite(cfg.ATRWindow); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalidConfig)
		}
	}
	return ts, nil
}

func (t *TrendSwing) Name() string { return t.name }

func (t *TrendSwing) Update(price float64) *Signal {
	// Noise filter on raw ticks, before any state update
	if t.seeded && t.cfg.ThresholdAbs > 0 {
		if math.Abs(price-t.prevPrice) < t.cfg.ThresholdAbs {
			return nil
		}
	}
	t.prevPrice = price
	t.seeded = true

	t.trend.Update(price)
	if !t.trend.Ready() || t.trend.Value() <= 0 {
		// Warm up the gates while the trend window fills
		if t.rsi != nil {
			t.rsi.Update(price)
		}
		if t.atr != nil {
			t.atr.Update(price)
		}
		return nil
	}

	sma := t.trend.Value()
	devPct := (price/sma - 1.0) * 100.0

	diag := &Diag{SMA: sma, DevPct: devPct}
	if t.rsi != nil {
		t.rsi.Update(price)
		if t.rsi.Ready() {
			diag.RSI = t.rsi.Value()
			diag.HasRSI = true
		}
	}
	if t.atr != nil {
		t.atr.Update(price)
		if t.atr.Ready() && price > 0 {
			diag.ATRPct = t.atr.Value() / price * 100.0
			diag.HasATR = true
		}
	}

	// Volatility gate: suppress everything when ATR% is missing or too high
	if t.cfg.EnableATR && (!diag.HasATR || diag.ATRPct > t.cfg.ATRCapPct) {
		return nil
	}

	// Trailing high-water sell while long, takes priority over the bands.
	// The high-water mark starts at the entry price.
	if t.long && t.cfg.TrailPct > 0 {
		if price > t.highWater {
			t.highWater = price
		}
		if price <= t.highWater*(1.0-t.cfg.TrailPct/100.0) {
			t.long = false
			return &Signal{StrategyName: t.name, Action: ActionSell, Reason: "trail_stop", Diag: diag}
		}
	}

	wantBuy := devPct <= -t.cfg.BuyPct
	wantSell := devPct >= t.cfg.SellPct

	if t.cfg.EnableRSI && diag.HasRSI {
		if wantBuy && diag.RSI > t.cfg.RSIBuy {
			wantBuy = false
		}
		if wantSell && diag.RSI < t.cfg.RSISell {
			wantSell = false
		}
	}

	// Emission is position-gated: one entry, then one exit. Sell wins if
	// both bands somehow survive gating.
	if wantSell && t.long {
		t.long = false
		return &Signal{StrategyName: t.name, Action: ActionSell, Reason: "above_band", Diag: diag}
	}
	if wantBuy && !t.long {
		t.long = true
		t.highWater = price
		return &Signal{StrategyName: t.name, Action: ActionBuy, Reason: "below_band", Diag: diag}
	}
	return nil
}
