// cmd/backtest replays historical prices from a CSV file through a
// strategy and a paper account to evaluate parameters without live data.
//
// The input is one price per row; with -col the price is taken from that
// zero-based column instead of the last one, so exported candle files
// work unmodified.
//
// Usage:
//
//	go run ./cmd/backtest -file prices.csv -strategy trendswing -notional 25
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"cryptobot/internal/logger"
	"cryptobot/internal/paper"
	"cryptobot/internal/strategy"
)

func main() {
	file := flag.String("file", "", "CSV file with historical prices (required)")
	col := flag.Int("col", -1, "Zero-based price column, -1 = last")
	symbol := flag.String("symbol", "DOGE-USD", "Symbol label for the ledger")
	stratName := flag.String("strategy", "trendswing", "Strategy: sma | pricemove | swing | trendswing")
	short := flag.Int("short", 5, "SMA crossover short window")
	long := flag.Int("long", 20, "SMA crossover long window")
	threshold := flag.Float64("threshold", 0.5, "Pricemove/swing threshold")
	buyPct := flag.Float64("buy-pct", 1.0, "Trendswing entry band percent")
	sellPct := flag.Float64("sell-pct", 3.0, "Trendswing exit band percent")
	trendWindow := flag.Int("trend-window", 20, "Trendswing SMA window")
	notional := flag.Float64("notional", 25, "USD per trade tranche")
	cash := flag.Float64("cash", 1000, "Starting cash")
	feeBps := flag.Int("fee-bps", 45, "Fee rate in basis points")
	flag.Parse()

	logger.Init("backtest", slog.LevelInfo)

	if *file == "" {
		fatal("missing -file", nil)
	}

	prices, err := readPrices(*file, *col)
	if err != nil {
		fatal("read prices", err)
	}
	if len(prices) == 0 {
		fatal("no prices in file", nil)
	}

	strat, err := buildStrategy(*stratName, *short, *long, *threshold, strategy.SwingConfig{
		BuyPct:      *buyPct,
		SellPct:     *sellPct,
		TrendWindow: *trendWindow,
		RSIWindow:   14,
		ATRWindow:   14,
	})
	if err != nil {
		fatal("build strategy", err)
	}

	acct := paper.NewAccount(*cash, *feeBps)

	inPosition := false
	var entryQty float64
	buys, sells := 0, 0

	for _, price := range prices {
		sig := strat.Update(price)
		if sig == nil {
			continue
		}
		switch sig.Action {
		case strategy.ActionBuy:
			if inPosition {
				continue
			}
			qty := math.Floor(*notional/price*1e8) / 1e8
			if qty > 0 && acct.Buy(*symbol, qty, price) {
				inPosition = true
				entryQty = qty
				buys++
			}
		case strategy.ActionSell:
			if !inPosition {
				continue
			}
			qty := entryQty
			if held := acct.QtyHeld(*symbol); held < qty {
				qty = held
			}
			if qty > 0 && acct.Sell(*symbol, qty, price) {
				inPosition = false
				sells++
			}
		}
	}

	last := prices[len(prices)-1]
	stats := acct.Stats()
	equity := acct.Equity(map[string]float64{*symbol: last})

	fmt.Printf("backtest: %s over %d ticks\n", strat.Name(), len(prices))
	fmt.Printf("  buys=%d sells=%d open=%v\n", buys, sells, inPosition)
	fmt.Printf("  cash=%.2f equity=%.2f (last=%.6f)\n", stats.Cash, equity, last)
	fmt.Printf("  realized_pnl=%.4f wins=%d losses=%d win_rate=%.1f%%\n",
		stats.RealizedPnL, stats.Wins, stats.Losses, stats.WinRatePct)
	if pos := acct.Position(*symbol); pos.Qty > 0 {
		fmt.Printf("  open position: qty=%.8f avg_cost=%.6f\n", pos.Qty, pos.AvgCost)
	}
}

// readPrices parses one price per CSV row, skipping blank rows and a
// non-numeric header.
func readPrices(path string, col int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var prices []float64
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		idx := col
		if idx < 0 || idx >= len(rec) {
			idx = len(rec) - 1
		}
		field := strings.TrimSpace(rec[idx])
		p, err := strconv.ParseFloat(field, 64)
		if err != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: bad price %q", i+1, field)
		}
		if p > 0 {
			prices = append(prices, p)
		}
	}
	return prices, nil
}

func buildStrategy(name string, short, long int, threshold float64, swing strategy.SwingConfig) (strategy.Strategy, error) {
	switch strings.ToLower(name) {
	case "sma":
		return strategy.NewSMACrossover(short, long)
	case "pricemove":
		return strategy.NewPriceMove(threshold)
	case "swing":
		return strategy.NewSwing(threshold)
	case "trendswing":
		return strategy.NewTrendSwing(swing)
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

func fatal(what string, err error) {
	if err != nil {
		slog.Error(what, "err", err)
	} else {
		slog.Error(what)
	}
	os.Exit(1)
}
