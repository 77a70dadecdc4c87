// cmd/bot runs the trading loop for one symbol: poll the price feed,
// evaluate the chosen strategy, and trade against a paper ledger or the
// live order API.
//
// Usage:
//
//	go run ./cmd/bot -symbol DOGE-USD -strategy trendswing -notional 25 -period 15
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"cryptobot/config"
	"cryptobot/internal/bot"
	"cryptobot/internal/feed"
	"cryptobot/internal/journal"
	"cryptobot/internal/logger"
	"cryptobot/internal/metrics"
	"cryptobot/internal/model"
	"cryptobot/internal/notification"
	"cryptobot/internal/paper"
	"cryptobot/internal/risk"
	"cryptobot/internal/strategy"
	redisstore "cryptobot/internal/store/redis"
	"cryptobot/pkg/robinhood"
)

func main() {
	symbol := flag.String("symbol", "DOGE-USD", "Trading pair")
	stratName := flag.String("strategy", "trendswing", "Strategy: sma | pricemove | swing | trendswing")
	short := flag.Int("short", 5, "SMA crossover short window")
	long := flag.Int("long", 20, "SMA crossover long window")
	threshold := flag.Float64("threshold", 0.5, "Pricemove/swing threshold in quote currency")
	buyPct := flag.Float64("buy-pct", 1.0, "Trendswing entry band percent below SMA")
	sellPct := flag.Float64("sell-pct", 3.0, "Trendswing exit band percent above SMA")
	trendWindow := flag.Int("trend-window", 20, "Trendswing SMA window")
	rsiWindow := flag.Int("rsi-window", 14, "RSI window")
	atrWindow := flag.Int("atr-window", 14, "ATR window")
	enableRSI := flag.Bool("rsi", true, "Enable RSI gating")
	enableATR := flag.Bool("atr", true, "Enable ATR volatility cap")
	rsiBuy := flag.Float64("rsi-buy", 35, "Max RSI for entries")
	rsiSell := flag.Float64("rsi-sell", 65, "Min RSI for exits")
	atrCap := flag.Float64("atr-cap", 2.0, "Max ATR as percent of price")
	minMove := flag.Float64("min-move", 0, "Absolute tick noise floor, 0 = off")
	trail := flag.Float64("trail", 0, "Trailing stop percent from peak, 0 = off")
	notional := flag.Float64("notional", 25, "USD per trade tranche")
	period := flag.Int("period", 15, "Poll interval in seconds")
	cash := flag.Float64("cash", 1000, "Paper account starting cash")
	feeBps := flag.Int("fee-bps", 45, "Fee rate in basis points, both sides")
	live := flag.Bool("live", false, "Place real orders instead of paper fills")
	stream := flag.Bool("stream", false, "Consume the websocket ticker stream instead of polling HTTP")
	maxOrder := flag.Float64("max-order", 100, "Risk guard per-order notional cap")
	maxDaily := flag.Float64("max-daily", 500, "Risk guard daily buy cap")
	cooldown := flag.Int("cooldown", 300, "Seconds between buys")
	window := flag.String("window", "", "UTC entry window as START-END hours, e.g. 13-21")
	summaryCron := flag.String("summary-cron", "0 0 0 * * *", "Cron spec for the daily summary alert")
	flag.Parse()

	cfg := config.Load()
	logger.Init("bot", logger.ParseLevel(cfg.LogLevel))

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		fatal("load rules", err)
	}
	rule := rules.ForSymbol(*symbol)

	strat, err := buildStrategy(*stratName, strategyParams{
		short: *short, long: *long, threshold: *threshold,
		swing: strategy.SwingConfig{
			BuyPct:       *buyPct,
			SellPct:      *sellPct,
			TrendWindow:  *trendWindow,
			RSIWindow:    *rsiWindow,
			ATRWindow:    *atrWindow,
			EnableRSI:    *enableRSI,
			EnableATR:    *enableATR,
			RSIBuy:       *rsiBuy,
			RSISell:      *rsiSell,
			ATRCapPct:    *atrCap,
			ThresholdAbs: *minMove,
			TrailPct:     *trail,
		},
	})
	if err != nil {
		fatal("build strategy", err)
	}

	winStart, winEnd, err := parseWindow(*window)
	if err != nil {
		fatal("parse window", err)
	}

	// Durable journal: CSV plus SQLite, each row synced before returning.
	csvw, err := journal.NewCSVWriter(cfg.CSVPath)
	if err != nil {
		fatal("open csv journal", err)
	}
	defer csvw.Close()
	sq, err := journal.NewSQLite(cfg.SQLitePath)
	if err != nil {
		fatal("open sqlite journal", err)
	}
	defer sq.Close()

	acct := paper.NewAccount(*cash, *feeBps)
	acct.SetRecorder(journal.Multi{csvw, sq})

	// Resume: restore cash from the last journaled fill. Positions are
	// not replayed here, only the cash balance.
	if lastCash, ok, err := sq.LastCash(); err != nil {
		slog.Warn("resume skipped", "err", err)
	} else if ok {
		acct.SetCash(lastCash)
		slog.Info("resumed cash from journal", "cash", lastCash)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, reg := metrics.New()

	// Price source: polling client or the websocket stream behind a
	// freshness cache.
	var priceFeed bot.Feed
	if *stream {
		ws, err := feed.NewStream(feed.StreamConfig{Symbols: []string{*symbol}})
		if err != nil {
			fatal("build stream", err)
		}
		ws.OnReconnect = m.StreamReconnects.Inc

		maxAge := 2 * time.Duration(*period) * time.Second
		cache := feed.NewCache(maxAge, feed.DefaultClientConfig().BiasBps)
		tickCh := make(chan model.PricePoint, 256)
		go func() {
			if err := ws.Run(ctx, tickCh); err != nil && ctx.Err() == nil {
				slog.Error("price stream stopped", "err", err)
			}
		}()
		go cache.Run(ctx, tickCh)
		priceFeed = cache
	} else {
		priceFeed = feed.NewClient(feed.DefaultClientConfig(),
			feed.NewCoinbase(), feed.NewKraken())
	}

	var orders bot.OrderClient
	if *live {
		if err := cfg.ValidateLive(); err != nil {
			fatal("live credentials", err)
		}
		rh, err := robinhood.New(robinhood.Config{
			APIKey:        cfg.RobinhoodAPIKey,
			PrivateKeyB64: cfg.RobinhoodPrivateKey,
			BaseURL:       cfg.RobinhoodBaseURL,
		})
		if err != nil {
			fatal("order client", err)
		}
		orders = rh
	}

	var pub bot.Publisher
	if cfg.RedisAddr != "" {
		w, err := redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			slog.Warn("redis disabled", "err", err)
		} else {
			defer w.Close()
			pub = w
		}
	}

	notifiers := notification.Multi{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers,
			notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.SMTPHost != "" && cfg.AlertEmailTo != "" {
		smtpPort, _ := strconv.Atoi(cfg.SMTPPort)
		en, err := notification.NewEmailNotifier(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     smtpPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPUser,
			To:       cfg.AlertEmailTo,
		})
		if err != nil {
			slog.Warn("email notifier disabled", "err", err)
		} else {
			notifiers = append(notifiers, en)
		}
	}

	guard := risk.New(*maxOrder, *maxDaily, time.Duration(*cooldown)*time.Second)

	b, err := bot.New(bot.Options{
		Config: bot.Config{
			Symbol:          *symbol,
			Interval:        time.Duration(*period) * time.Second,
			TradeNotional:   *notional,
			Live:            *live,
			TrailPct:        *trail,
			WindowStartHour: winStart,
			WindowEndHour:   winEnd,
			Rule:            rule,
		},
		Feed:      priceFeed,
		Strategy:  strat,
		Guard:     guard,
		Account:   acct,
		Orders:    orders,
		Notifier:  notifiers,
		Metrics:   m,
		Publisher: pub,
	})
	if err != nil {
		fatal("build bot", err)
	}

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	// Daily summary on a cron schedule, best-effort like every alert.
	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc(*summaryCron, func() {
		alert := notification.Alert{
			Level:   notification.AlertInfo,
			Title:   "daily summary",
			Message: bot.SummaryText(*symbol, acct.Stats()),
		}
		if err := notifiers.Send(ctx, alert); err != nil {
			slog.Warn("daily summary failed", "err", err)
		}
	})
	if err != nil {
		fatal("register summary cron", err)
	}
	c.Start()
	defer c.Stop()

	b.Run(ctx)
}

type strategyParams struct {
	short     int
	long      int
	threshold float64
	swing     strategy.SwingConfig
}

func buildStrategy(name string, p strategyParams) (strategy.Strategy, error) {
	switch strings.ToLower(name) {
	case "sma":
		return strategy.NewSMACrossover(p.short, p.long)
	case "pricemove":
		return strategy.NewPriceMove(p.threshold)
	case "swing":
		return strategy.NewSwing(p.threshold)
	case "trendswing":
		return strategy.NewTrendSwing(p.swing)
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// parseWindow parses "START-END" UTC hours; empty means no window.
func parseWindow(s string) (start, end int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("window %q: want START-END", s)
	}
	start, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("window start: %w", err)
	}
	end, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("window end: %w", err)
	}
	if start < 0 || start > 23 || end < 0 || end > 23 {
		return 0, 0, fmt.Errorf("window %q: hours must be 0-23", s)
	}
	return start, end, nil
}

func fatal(what string, err error) {
	slog.Error(what, "err", err)
	os.Exit(1)
}
