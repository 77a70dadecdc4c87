// Package bot runs the trading loop: poll the feed, evaluate the
// strategy, gate entries through the risk guard, and mutate the ledger.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cryptobot/internal/logger"
	"cryptobot/internal/metrics"
	"cryptobot/internal/model"
	"cryptobot/internal/notification"
	"cryptobot/internal/paper"
	"cryptobot/internal/risk"
	"cryptobot/internal/strategy"
	"cryptobot/pkg/robinhood"
)

// Feed supplies spot prices and order sizing. Satisfied by *feed.Client.
type Feed interface {
	GetPrice(ctx context.Context, symbol string) (model.PricePoint, error)
	QtyFromUSD(usd, price float64, side model.Side, decimals int) float64
}

// OrderClient places live orders. Satisfied by *robinhood.Client.
type OrderClient interface {
	MarketOrder(ctx context.Context, req robinhood.MarketOrderRequest) (robinhood.OrderResult, error)
}

// Publisher mirrors ticks and fills to an external store. Optional.
type Publisher interface {
	PublishTick(ctx context.Context, p model.PricePoint) error
	PublishFill(ctx context.Context, f model.Fill) error
}

// Config holds the per-symbol trading loop parameters.
type Config struct {
	Symbol        string
	Interval      time.Duration
	TradeNotional float64 // USD entered per tranche
	Live          bool
	TrailPct      float64 // driver-level trailing stop from peak, 0 = off

	// Optional UTC trading window for entries; Start == End disables it.
	// Exits are never window-gated.
	WindowStartHour int
	WindowEndHour   int

	Rule model.AssetRule
}

// Bot drives one symbol through the flat/long trading cycle.
type Bot struct {
	cfg      Config
	feed     Feed
	strat    strategy.Strategy
	guard    *risk.Guard
	acct     *paper.Account
	orders   OrderClient
	notifier notification.Notifier
	metrics  *metrics.Metrics
	pub      Publisher

	long       bool
	entryQty   float64
	entryPrice float64
	peak       float64

	now func() time.Time
}

// Options wires the loop's collaborators. Feed, Strategy, Guard, Account
// and Metrics are required; Orders is required in live mode.
type Options struct {
	Config    Config
	Feed      Feed
	Strategy  strategy.Strategy
	Guard     *risk.Guard
	Account   *paper.Account
	Orders    OrderClient
	Notifier  notification.Notifier
	Metrics   *metrics.Metrics
	Publisher Publisher
}

// New validates the options and builds a Bot starting flat.
func New(opts Options) (*Bot, error) {
	if opts.Config.Symbol == "" {
		return nil, errors.New("bot: symbol required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("bot: interval must be positive")
	}
	if opts.Config.TradeNotional <= 0 {
		return nil, errors.New("bot: trade notional must be positive")
	}
	if opts.Feed == nil || opts.Strategy == nil || opts.Guard == nil ||
		opts.Account == nil || opts.Metrics == nil {
		return nil, errors.New("bot: feed, strategy, guard, account and metrics are required")
	}
	if opts.Config.Live && opts.Orders == nil {
		return nil, errors.New("bot: live mode requires an order client")
	}

	cfg := opts.Config
	if cfg.Rule.Decimals == 0 && cfg.Rule.MinNotional == 0 {
		cfg.Rule = model.DefaultAssetRule
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notification.NewLogNotifier()
	}

	return &Bot{
		cfg:      cfg,
		feed:     opts.Feed,
		strat:    opts.Strategy,
		guard:    opts.Guard,
		acct:     opts.Account,
		orders:   opts.Orders,
		notifier: notifier,
		metrics:  opts.Metrics,
		pub:      opts.Publisher,
		now:      time.Now,
	}, nil
}

// Long reports whether the bot currently holds an open tranche.
func (b *Bot) Long() bool { return b.long }

// Run polls on the configured interval until ctx is cancelled. The
// iteration in flight always completes so no partial fill is recorded.
func (b *Bot) Run(ctx context.Context) {
	slog.Info("bot started",
		"symbol", b.cfg.Symbol, "strategy", b.strat.Name(),
		"interval", b.cfg.Interval, "notional", b.cfg.TradeNotional,
		"live", b.cfg.Live)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		b.Step(ctx)
		select {
		case <-ctx.Done():
			stats := b.acct.Stats()
			slog.Info("bot stopped",
				"symbol", b.cfg.Symbol, "cash", stats.Cash,
				"realized_pnl", stats.RealizedPnL,
				"trades", stats.TotalTrades, "win_rate_pct", stats.WinRatePct)
			return
		case <-ticker.C:
		}
	}
}

// Step runs a single loop iteration: fetch, signal, trade.
func (b *Bot) Step(ctx context.Context) {
	start := b.now()
	tick, err := b.feed.GetPrice(ctx, b.cfg.Symbol)
	b.metrics.FetchDur.Observe(b.now().Sub(start).Seconds())
	if err != nil {
		b.metrics.FeedErrorsTotal.Inc()
		slog.Warn("tick skipped, feed unavailable", "symbol", b.cfg.Symbol, "err", err)
		return
	}

	ctx = logger.WithCycleID(ctx, logger.GenerateCycleID(tick.Symbol, tick.TickTS))
	b.metrics.TicksTotal.Inc()
	b.metrics.LastPrice.WithLabelValues(tick.Symbol).Set(tick.Price)
	if b.pub != nil {
		if perr := b.pub.PublishTick(ctx, tick); perr != nil {
			slog.Warn("tick publish failed", "err", perr)
		}
	}

	price := tick.Price
	if b.long && price > b.peak {
		b.peak = price
	}

	sig := b.strat.Update(price)
	if sig != nil {
		b.metrics.SignalsTotal.WithLabelValues(string(sig.Action)).Inc()
		slog.Debug("signal",
			append([]any{"strategy", sig.StrategyName, "action", sig.Action,
				"reason", sig.Reason, "price", price}, logger.LogWithCycle(ctx)...)...)
	}

	switch {
	case !b.long:
		if sig != nil && sig.Action == strategy.ActionBuy {
			b.tryEnter(ctx, tick)
		}
	default:
		wantExit := sig != nil && sig.Action == strategy.ActionSell
		reason := ""
		if wantExit {
			reason = sig.Reason
		}
		if !wantExit && b.trailHit(price) {
			wantExit = true
			reason = "trail_stop"
		}
		if wantExit {
			b.exit(ctx, tick, reason)
		}
	}

	stats := b.acct.Stats()
	b.metrics.Equity.Set(b.acct.Equity(map[string]float64{tick.Symbol: price}))
	b.metrics.RealizedPnL.Set(stats.RealizedPnL)
}

// trailHit reports whether the driver-level trailing stop fired.
func (b *Bot) trailHit(price float64) bool {
	if b.cfg.TrailPct <= 0 || b.peak <= 0 {
		return false
	}
	return price <= b.peak*(1.0-b.cfg.TrailPct/100.0)
}

// inWindow reports whether entries are allowed at t (UTC hours). A window
// wrapping midnight (start > end) is supported.
func (b *Bot) inWindow(t time.Time) bool {
	start, end := b.cfg.WindowStartHour, b.cfg.WindowEndHour
	if start == end {
		return true
	}
	h := t.UTC().Hour()
	if start < end {
		return h >= start && h < end
	}
	return h >= start || h < end
}

func (b *Bot) tryEnter(ctx context.Context, tick model.PricePoint) {
	price := tick.Price
	if !b.inWindow(tick.TickTS) {
		slog.Info("entry skipped, outside trading window",
			"symbol", tick.Symbol, "hour", tick.TickTS.UTC().Hour())
		return
	}
	if b.cfg.Rule.MaxBuyPrice > 0 && price > b.cfg.Rule.MaxBuyPrice {
		slog.Info("entry skipped, price above limit",
			"symbol", tick.Symbol, "price", price, "max_buy_price", b.cfg.Rule.MaxBuyPrice)
		return
	}

	notional := b.cfg.TradeNotional
	if notional < b.cfg.Rule.MinNotional {
		notional = b.cfg.Rule.MinNotional
	}

	ok, reason := b.guard.Allow(notional, model.SideBuy)
	if !ok {
		b.metrics.RiskDenialsTotal.WithLabelValues(denialKind(reason)).Inc()
		slog.Info("entry denied by risk guard",
			append([]any{"symbol", tick.Symbol, "notional", notional,
				"reason", reason}, logger.LogWithCycle(ctx)...)...)
		return
	}

	qty := b.feed.QtyFromUSD(notional, price, model.SideBuy, b.cfg.Rule.Decimals)
	if qty <= 0 {
		slog.Warn("entry skipped, sized quantity is zero",
			"symbol", tick.Symbol, "notional", notional, "price", price)
		return
	}

	if b.cfg.Live {
		res, err := b.orders.MarketOrder(ctx, robinhood.MarketOrderRequest{
			Symbol:   tick.Symbol,
			Side:     "buy",
			Quantity: qty,
		})
		if err != nil {
			slog.Error("live buy failed, position unchanged",
				"symbol", tick.Symbol, "qty", qty, "err", err)
			return
		}
		slog.Info("live buy placed", "order_id", res.ID, "state", res.State)
	}

	if !b.acct.Buy(tick.Symbol, qty, price) {
		slog.Warn("ledger rejected buy",
			"symbol", tick.Symbol, "qty", qty, "price", price, "cash", b.acct.Cash())
		return
	}

	b.guard.Record(notional, model.SideBuy)
	b.long = true
	b.entryQty = qty
	b.entryPrice = price
	b.peak = price
	b.afterFill(ctx, "entered long")
}

func (b *Bot) exit(ctx context.Context, tick model.PricePoint, reason string) {
	price := tick.Price
	if b.cfg.Rule.MinSellPrice > 0 && price < b.cfg.Rule.MinSellPrice {
		slog.Info("exit skipped, price below limit",
			"symbol", tick.Symbol, "price", price, "min_sell_price", b.cfg.Rule.MinSellPrice)
		return
	}

	// Unwind the same tranche that was entered, clamped to what is held.
	qty := b.entryQty
	if held := b.acct.QtyHeld(tick.Symbol); held < qty {
		qty = held
	}
	if qty <= 0 {
		slog.Warn("exit with nothing held, flattening state", "symbol", tick.Symbol)
		b.long = false
		b.entryQty = 0
		return
	}

	if b.cfg.Live {
		res, err := b.orders.MarketOrder(ctx, robinhood.MarketOrderRequest{
			Symbol:   tick.Symbol,
			Side:     "sell",
			Quantity: qty,
		})
		if err != nil {
			slog.Error("live sell failed, position unchanged",
				"symbol", tick.Symbol, "qty", qty, "err", err)
			return
		}
		slog.Info("live sell placed", "order_id", res.ID, "state", res.State)
	}

	if !b.acct.Sell(tick.Symbol, qty, price) {
		slog.Warn("ledger rejected sell", "symbol", tick.Symbol, "qty", qty, "price", price)
		return
	}

	b.long = false
	b.entryQty = 0
	b.entryPrice = 0
	b.peak = 0
	b.afterFill(ctx, "exited long: "+reason)
}

// afterFill handles the bookkeeping common to both sides: metrics, the
// external publisher, and the best-effort alert.
func (b *Bot) afterFill(ctx context.Context, what string) {
	fills := b.acct.Fills()
	if len(fills) == 0 {
		return
	}
	fill := fills[len(fills)-1]

	mode := "paper"
	if b.cfg.Live {
		mode = "live"
	}
	b.metrics.TradesTotal.WithLabelValues(string(fill.Side), mode).Inc()

	slog.Info(what,
		append([]any{"symbol", fill.Symbol, "side", fill.Side, "qty", fill.Qty,
			"price", fill.Price, "fee", fill.Fee, "realized_pnl", fill.RealizedPnL,
			"cash_after", fill.CashAfter}, logger.LogWithCycle(ctx)...)...)

	if b.pub != nil {
		if err := b.pub.PublishFill(ctx, fill); err != nil {
			slog.Warn("fill publish failed", "err", err)
		}
	}
	if err := b.notifier.Send(ctx, notification.TradeAlert(fill, !b.cfg.Live)); err != nil {
		slog.Warn("trade alert failed", "err", err)
	}
}

// denialKind collapses a guard reason to a low-cardinality metric label.
func denialKind(reason string) string {
	if i := strings.IndexByte(reason, '('); i > 0 {
		return reason[:i]
	}
	return reason
}

// SummaryText formats the daily summary sent by the scheduled alert.
func SummaryText(symbol string, stats paper.Stats) string {
	return fmt.Sprintf(
		"%s daily summary: cash=%.2f realized_pnl=%.4f trades=%d wins=%d losses=%d win_rate=%.1f%%",
		symbol, stats.Cash, stats.RealizedPnL, stats.TotalTrades,
		stats.Wins, stats.Losses, stats.WinRatePct)
}
