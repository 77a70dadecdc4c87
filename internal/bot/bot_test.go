package bot

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cryptobot/internal/metrics"
	"cryptobot/internal/model"
	"cryptobot/internal/paper"
	"cryptobot/internal/risk"
	"cryptobot/internal/strategy"
)

// scriptedFeed returns prices in order, then an error when exhausted.
type scriptedFeed struct {
	prices []float64
	i      int
}

func (f *scriptedFeed) GetPrice(_ context.Context, symbol string) (model.PricePoint, error) {
	if f.i >= len(f.prices) {
		return model.PricePoint{}, errors.New("feed exhausted")
	}
	p := f.prices[f.i]
	f.i++
	return model.PricePoint{
		Symbol: symbol,
		Price:  p,
		Source: "scripted",
		TickTS: time.Date(2024, 3, 1, 12, 0, f.i, 0, time.UTC),
	}, nil
}

func (f *scriptedFeed) QtyFromUSD(usd, price float64, _ model.Side, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Floor(usd / price * scale) / scale
}

// scriptedStrategy emits one pre-planned action per tick.
type scriptedStrategy struct {
	actions []strategy.Action
	i       int
}

func (s *scriptedStrategy) Name() string { return "scripted" }

func (s *scriptedStrategy) Update(float64) *strategy.Signal {
	if s.i >= len(s.actions) {
		return nil
	}
	a := s.actions[s.i]
	s.i++
	if a == "" {
		return nil
	}
	return &strategy.Signal{StrategyName: "scripted", Action: a, Reason: "scripted"}
}

func newTestBot(t *testing.T, cfg Config, feed Feed, strat strategy.Strategy, guard *risk.Guard, acct *paper.Account) *Bot {
	t.Helper()
	m, _ := metrics.New()
	b, err := New(Options{
		Config:   cfg,
		Feed:     feed,
		Strategy: strat,
		Guard:    guard,
		Account:  acct,
		Metrics:  m,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestBot_FlatLongFlatCycle(t *testing.T) {
	feed := &scriptedFeed{prices: []float64{100, 100, 110}}
	strat := &scriptedStrategy{actions: []strategy.Action{"", strategy.ActionBuy, strategy.ActionSell}}
	guard := risk.New(100, 1000, 0)
	acct := paper.NewAccount(1000, 0)

	b := newTestBot(t, Config{
		Symbol:        "DOGE-USD",
		Interval:      time.Second,
		TradeNotional: 50,
	}, feed, strat, guard, acct)

	ctx := context.Background()

	b.Step(ctx) // no signal
	if b.Long() {
		t.Fatal("expected flat after no-signal tick")
	}

	b.Step(ctx) // buy at 100
	if !b.Long() {
		t.Fatal("expected long after buy signal")
	}
	if got := acct.QtyHeld("DOGE-USD"); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("held qty = %v, want 0.5", got)
	}
	if guard.SpentToday() != 50 {
		t.Errorf("spent today = %v, want 50", guard.SpentToday())
	}

	b.Step(ctx) // sell at 110
	if b.Long() {
		t.Fatal("expected flat after sell signal")
	}
	if got := acct.QtyHeld("DOGE-USD"); got != 0 {
		t.Errorf("held qty after exit = %v, want 0", got)
	}

	fills := acct.Fills()
	if len(fills) != 2 || fills[0].Side != model.SideBuy || fills[1].Side != model.SideSell {
		t.Fatalf("unexpected fills: %+v", fills)
	}
	// 0.5 qty bought at 100, sold at 110, zero fees
	if math.Abs(fills[1].RealizedPnL-5.0) > 1e-9 {
		t.Errorf("realized pnl = %v, want 5", fills[1].RealizedPnL)
	}
}

func TestBot_RiskDeniedLeavesStateUntouched(t *testing.T) {
	feed := &scriptedFeed{prices: []float64{100}}
	strat := &scriptedStrategy{actions: []strategy.Action{strategy.ActionBuy}}
	guard := risk.New(10, 1000, 0) // per-order cap below trade notional
	acct := paper.NewAccount(1000, 0)

	b := newTestBot(t, Config{
		Symbol:        "DOGE-USD",
		Interval:      time.Second,
		TradeNotional: 50,
	}, feed, strat, guard, acct)

	b.Step(context.Background())
	if b.Long() {
		t.Error("expected flat after denied entry")
	}
	if acct.Cash() != 1000 {
		t.Errorf("cash = %v, want untouched 1000", acct.Cash())
	}
	if guard.SpentToday() != 0 {
		t.Errorf("spent today = %v, want 0", guard.SpentToday())
	}
	if len(acct.Fills()) != 0 {
		t.Errorf("expected no fills, got %d", len(acct.Fills()))
	}
}

func TestBot_FeedErrorSkipsTick(t *testing.T) {
	feed := &scriptedFeed{} // immediately errors
	strat := &scriptedStrategy{actions: []strategy.Action{strategy.ActionBuy}}
	guard := risk.New(100, 1000, 0)
	acct := paper.NewAccount(1000, 0)

	b := newTestBot(t, Config{
		Symbol:        "DOGE-USD",
		Interval:      time.Second,
		TradeNotional: 50,
	}, feed, strat, guard, acct)

	b.Step(context.Background())
	if b.Long() || len(acct.Fills()) != 0 {
		t.Error("expected no state change on feed failure")
	}
	if strat.i != 0 {
		t.Error("strategy must not be updated on a failed fetch")
	}
}

func TestBot_SecondBuyWhileLongIsNoOp(t *testing.T) {
	feed := &scriptedFeed{prices: []float64{100, 100}}
	strat := &scriptedStrategy{actions: []strategy.Action{strategy.ActionBuy, strategy.ActionBuy}}
	guard := risk.New(100, 1000, 0)
	acct := paper.NewAccount(1000, 0)

	b := newTestBot(t, Config{
		Symbol:        "DOGE-USD",
		Interval:      time.Second,
		TradeNotional: 50,
	}, feed, strat, guard, acct)

	ctx := context.Background()
	b.Step(ctx)
	b.Step(ctx)
	if len(acct.Fills()) != 1 {
		t.Fatalf("expected a single buy fill, got %d", len(acct.Fills()))
	}
	if guard.SpentToday() != 50 {
		t.Errorf("spent today = %v, want 50 (one recorded buy)", guard.SpentToday())
	}
}

func TestBot_DriverTrailingStop(t *testing.T) {
	// Enter at 100, peak at 120, then a drop to 107 breaches the 10% trail.
	feed := &scriptedFeed{prices: []float64{100, 120, 113, 107}}
	strat := &scriptedStrategy{actions: []strategy.Action{strategy.ActionBuy}}
	guard := risk.New(100, 1000, 0)
	acct := paper.NewAccount(1000, 0)

	b := newTestBot(t, Config{
		Symbol:        "DOGE-USD",
		Interval:      time.Second,
		TradeNotional: 50,
		TrailPct:      10,
	}, feed, strat, guard, acct)

	ctx := context.Background()
	b.Step(ctx) // buy at 100
	b.Step(ctx) // peak 120
	b.Step(ctx) // 113, above 120*0.9=108, still long
	if !b.Long() {
		t.Fatal("trail must not fire above the threshold")
	}
	b.Step(ctx) // 107 <= 108, trail fires
	if b.Long() {
		t.Fatal("expected trail stop to flatten the position")
	}

	fills := acct.Fills()
	if len(fills) != 2 || fills[1].Side != model.SideSell {
		t.Fatalf("unexpected fills: %+v", fills)
	}
	if math.Abs(fills[1].Price-107) > 1e-9 {
		t.Errorf("exit price = %v, want 107", fills[1].Price)
	}
}

func TestBot_TradingWindowGatesEntriesOnly(t *testing.T) {
	// Ticks are timestamped at 12:00 UTC; window 14-16 excludes them.
	feed := &scriptedFeed{prices: []float64{100}}
	strat := &scriptedStrategy{actions: []strategy.Action{strategy.ActionBuy}}
	guard := risk.New(100, 1000, 0)
	acct := paper.NewAccount(1000, 0)

	b := newTestBot(t, Config{
		Symbol:          "DOGE-USD",
		Interval:        time.Second,
		TradeNotional:   50,
		WindowStartHour: 14,
		WindowEndHour:   16,
	}, feed, strat, guard, acct)

	b.Step(context.Background())
	if b.Long() || len(acct.Fills()) != 0 {
		t.Error("expected entry blocked outside trading window")
	}
}

func TestBot_WindowWrapsMidnight(t *testing.T) {
	b := &Bot{cfg: Config{WindowStartHour: 22, WindowEndHour: 4}}
	cases := []struct {
		hour int
		want bool
	}{
		{23, true}, {2, true}, {4, false}, {12, false}, {22, true},
	}
	for _, c := range cases {
		ts := time.Date(2024, 3, 1, c.hour, 30, 0, 0, time.UTC)
		if got := b.inWindow(ts); got != c.want {
			t.Errorf("inWindow(hour=%d) = %v, want %v", c.hour, got, c.want)
		}
	}
}

func TestBot_ExitClampsToHeldQuantity(t *testing.T) {
	feed := &scriptedFeed{prices: []float64{100, 110}}
	strat := &scriptedStrategy{actions: []strategy.Action{strategy.ActionBuy, strategy.ActionSell}}
	guard := risk.New(100, 1000, 0)
	acct := paper.NewAccount(1000, 0)

	b := newTestBot(t, Config{
		Symbol:        "DOGE-USD",
		Interval:      time.Second,
		TradeNotional: 50,
	}, feed, strat, guard, acct)

	ctx := context.Background()
	b.Step(ctx)
	// Simulate an external partial reduction of the position.
	acct.Sell("DOGE-USD", 0.2, 100)

	b.Step(ctx)
	if b.Long() {
		t.Fatal("expected flat after exit")
	}
	if got := acct.QtyHeld("DOGE-USD"); got != 0 {
		t.Errorf("held after clamped exit = %v, want 0", got)
	}
}

func TestNew_Validation(t *testing.T) {
	m, _ := metrics.New()
	feed := &scriptedFeed{}
	strat := &scriptedStrategy{}
	guard := risk.New(10, 100, 0)
	acct := paper.NewAccount(100, 0)

	base := Options{
		Config:   Config{Symbol: "DOGE-USD", Interval: time.Second, TradeNotional: 5},
		Feed:     feed,
		Strategy: strat,
		Guard:    guard,
		Account:  acct,
		Metrics:  m,
	}

	if _, err := New(base); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}

	bad := base
	bad.Config.Symbol = ""
	if _, err := New(bad); err == nil {
		t.Error("expected error for empty symbol")
	}

	bad = base
	bad.Config.TradeNotional = 0
	if _, err := New(bad); err == nil {
		t.Error("expected error for zero notional")
	}

	bad = base
	bad.Config.Live = true
	if _, err := New(bad); err == nil {
		t.Error("expected error for live mode without order client")
	}
}
