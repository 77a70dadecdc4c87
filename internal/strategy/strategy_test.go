package strategy

import (
	"errors"
	"testing"
)

func feed(t *testing.T, s Strategy, prices []float64) []Signal {
	t.Helper()
	var out []Signal
	for _, p := range prices {
		if sig := s.Update(p); sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}

func TestSMACrossover_InvalidWindows(t *testing.T) {
	if _, err := NewSMACrossover(20, 20); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("short==long: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewSMACrossover(30, 5); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("short>long: expected ErrInvalidConfig, got %v", err)
	}
}

func TestSMACrossover_NoSignalOnFirstReadyTick(t *testing.T) {
	s, err := NewSMACrossover(2, 4)
	if err != nil {
		t.Fatalf("NewSMACrossover: %v", err)
	}
	// Rising series: short SMA sits above long from the first ready tick,
	// but that tick only establishes the baseline.
	sigs := feed(t, s, []float64{1, 2, 3, 4})
	if len(sigs) != 0 {
		t.Fatalf("expected no signal on first ready tick, got %+v", sigs)
	}
}

func TestSMACrossover_EmitsOnCrossingsOnly(t *testing.T) {
	s, _ := NewSMACrossover(2, 4)
	// Rise to establish short>long, then fall hard to cross down, then rise again.
	prices := []float64{10, 11, 12, 13, 14, 8, 6, 4, 3, 12, 15, 18}
	sigs := feed(t, s, prices)
	if len(sigs) < 2 {
		t.Fatalf("expected at least 2 signals, got %d", len(sigs))
	}
	if sigs[0].Action != ActionSell {
		t.Errorf("expected first crossing to be sell, got %s", sigs[0].Action)
	}
	if sigs[1].Action != ActionBuy {
		t.Errorf("expected second crossing to be buy, got %s", sigs[1].Action)
	}
}

func TestSMACrossover_SignalsAlternate(t *testing.T) {
	s, _ := NewSMACrossover(3, 6)
	prices := []float64{
		100, 101, 102, 103, 104, 105, 98, 95, 92, 90,
		104, 110, 116, 100, 92, 85, 105, 115, 125, 90, 80,
	}
	var last Action
	for _, sig := range feed(t, s, prices) {
		if sig.Action == last {
			t.Fatalf("two consecutive %s signals without the mirror crossing", sig.Action)
		}
		last = sig.Action
	}
}

func TestPriceMove_ReferenceResetsAfterSignal(t *testing.T) {
	p, err := NewPriceMove(1.0)
	if err != nil {
		t.Fatalf("NewPriceMove: %v", err)
	}

	if sig := p.Update(100); sig != nil {
		t.Fatal("first price should only seed the reference")
	}
	if sig := p.Update(100.5); sig != nil {
		t.Fatal("move below threshold should not fire")
	}
	sig := p.Update(101.2)
	if sig == nil || sig.Action != ActionBuy {
		t.Fatalf("expected buy on +1.2 move, got %+v", sig)
	}
	// Reference is now 101.2 — a move measured from 100 must not count.
	if sig := p.Update(101.9); sig != nil {
		t.Fatalf("reference did not reset: got %+v", sig)
	}
	sig = p.Update(100.1)
	if sig == nil || sig.Action != ActionSell {
		t.Fatalf("expected sell on -1.1 move from new reference, got %+v", sig)
	}
}

func TestSwing_ReversalFromExtremes(t *testing.T) {
	s, err := NewSwing(2.0)
	if err != nil {
		t.Fatalf("NewSwing: %v", err)
	}

	// Climb to 105, then dip: trigger must measure from the 105 high, not
	// from the first seen price.
	for _, p := range []float64{100, 103, 105} {
		if sig := s.Update(p); sig != nil {
			t.Fatalf("unexpected signal at %.1f: %+v", p, sig)
		}
	}
	if sig := s.Update(104); sig != nil {
		t.Fatal("1.0 below high should not trigger with threshold 2.0")
	}
	sig := s.Update(103)
	if sig == nil || sig.Action != ActionBuy {
		t.Fatalf("expected buy 2.0 below running high, got %+v", sig)
	}

	// Long now, low anchor reset to 103. Ride down then recover.
	if sig := s.Update(101); sig != nil {
		t.Fatalf("unexpected signal while long: %+v", sig)
	}
	sig = s.Update(103.5)
	if sig == nil || sig.Action != ActionSell {
		t.Fatalf("expected sell 2.5 above running low 101, got %+v", sig)
	}
}

func TestTrendSwing_InvalidWindows(t *testing.T) {
	cfg := DefaultSwingConfig()
	cfg.TrendWindow = 1
	if _, err := NewTrendSwing(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("trend_window=1: expected ErrInvalidConfig, got %v", err)
	}
	cfg = DefaultSwingConfig()
	cfg.RSIWindow = 0
	if _, err := NewTrendSwing(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("rsi_window=0: expected ErrInvalidConfig, got %v", err)
	}
	cfg = DefaultSwingConfig()
	cfg.ATRWindow = 1
	if _, err := NewTrendSwing(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("atr_window=1: expected ErrInvalidConfig, got %v", err)
	}
}

// Rising-then-falling-then-rising series crossing the band more than 1%
// below then 3% above the trend SMA emits exactly one buy then one sell.
func TestTrendSwing_OneBuyThenOneSell(t *testing.T) {
	cfg := SwingConfig{
		BuyPct:      1.0,
		SellPct:     3.0,
		TrendWindow: 10,
		RSIWindow:   14,
		ATRWindow:   14,
		EnableRSI:   false,
		EnableATR:   false,
	}
	ts, err := NewTrendSwing(cfg)
	if err != nil {
		t.Fatalf("NewTrendSwing: %v", err)
	}

	var prices []float64
	for i := 0; i < 12; i++ { // fill the trend window around 100
		prices = append(prices, 100)
	}
	prices = append(prices, 99.5, 98.5, 97.5) // dips > 1% below SMA
	prices = append(prices, 100, 102, 104, 106, 108)

	var buys, sells int
	var first Action
	for _, p := range prices {
		sig := ts.Update(p)
		if sig == nil {
			continue
		}
		switch sig.Action {
		case ActionBuy:
			buys++
			if first == "" {
				first = ActionBuy
			}
			if sig.Reason != "below_band" {
				t.Errorf("buy reason = %q, want below_band", sig.Reason)
			}
			if sig.Diag == nil || sig.Diag.DevPct > -1.0 {
				t.Errorf("buy diag out of band: %+v", sig.Diag)
			}
		case ActionSell:
			sells++
			if first == "" {
				first = ActionSell
			}
		}
		if buys > 0 && sells > 0 {
			break // one full cycle observed
		}
	}

	if first != ActionBuy {
		t.Fatalf("first signal = %s, want buy", first)
	}
	if buys != 1 || sells != 1 {
		t.Fatalf("got %d buys / %d sells, want exactly 1 each", buys, sells)
	}
}

func TestTrendSwing_ATRGateSuppressesWhenUnready(t *testing.T) {
	cfg := SwingConfig{
		BuyPct:      1.0,
		SellPct:     3.0,
		TrendWindow: 5,
		RSIWindow:   14,
		ATRWindow:   50, // much longer than the trend window
		EnableRSI:   false,
		EnableATR:   true,
		ATRCapPct:   5.0,
	}
	ts, _ := NewTrendSwing(cfg)

	// Trend becomes ready long before ATR does: every signal must be
	// suppressed while the ATR value is unavailable.
	for i := 0; i < 30; i++ {
		p := 100.0
		if i%2 == 0 {
			p = 90.0 // deep below any SMA band
		}
		if sig := ts.Update(p); sig != nil {
			t.Fatalf("signal emitted while ATR unready: %+v", sig)
		}
	}
}

func TestTrendSwing_TrailStopPriority(t *testing.T) {
	cfg := SwingConfig{
		BuyPct:      1.0,
		SellPct:     50.0, // band sell unreachable
		TrendWindow: 5,
		RSIWindow:   14,
		ATRWindow:   14,
		TrailPct:    2.0,
	}
	ts, _ := NewTrendSwing(cfg)

	for i := 0; i < 6; i++ {
		ts.Update(100)
	}
	sig := ts.Update(98) // ~1.6% below the SMA
	if sig == nil || sig.Action != ActionBuy {
		t.Fatalf("expected entry buy, got %+v", sig)
	}

	ts.Update(103) // high-water moves to 103

	sig = ts.Update(100.5) // 2.4% below the high-water mark
	if sig == nil || sig.Action != ActionSell || sig.Reason != "trail_stop" {
		t.Fatalf("expected trail_stop sell, got %+v", sig)
	}
}

func TestTrendSwing_NoiseFilterSkipsTick(t *testing.T) {
	cfg := SwingConfig{
		BuyPct:       1.0,
		SellPct:      3.0,
		TrendWindow:  3,
		RSIWindow:    14,
		ATRWindow:    14,
		ThresholdAbs: 0.5,
	}
	ts, _ := NewTrendSwing(cfg)

	ts.Update(100)
	ts.Update(100.1) // below the floor: must not enter the trend window
	ts.Update(101)
	if ts.trend.Ready() {
		t.Fatal("filtered tick leaked into the trend window")
	}
}
