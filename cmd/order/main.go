// cmd/order places a one-shot market order or lists recent orders
// through the signed trading API.
//
// Usage:
//
//	go run ./cmd/order -symbol DOGE-USD -side buy -notional 5
//	go run ./cmd/order -list
//	go run ./cmd/order -get <order-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cryptobot/config"
	"cryptobot/internal/logger"
	"cryptobot/pkg/robinhood"
)

func main() {
	symbol := flag.String("symbol", "DOGE-USD", "Trading pair")
	side := flag.String("side", "buy", "Order side: buy | sell")
	qty := flag.Float64("qty", 0, "Asset quantity (use exactly one of -qty / -notional)")
	notional := flag.Float64("notional", 0, "USD notional (use exactly one of -qty / -notional)")
	list := flag.Bool("list", false, "List recent orders and exit")
	get := flag.String("get", "", "Fetch one order by ID and exit")
	dryRun := flag.Bool("dry-run", false, "Echo the signed request instead of sending it")
	timeout := flag.Int("timeout", 10, "Request timeout in seconds")
	flag.Parse()

	cfg := config.Load()
	logger.Init("order", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.ValidateLive(); err != nil {
		fatal("credentials", err)
	}

	client, err := robinhood.New(robinhood.Config{
		APIKey:        cfg.RobinhoodAPIKey,
		PrivateKeyB64: cfg.RobinhoodPrivateKey,
		BaseURL:       cfg.RobinhoodBaseURL,
		Timeout:       time.Duration(*timeout) * time.Second,
		DryRun:        *dryRun,
	})
	if err != nil {
		fatal("client", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case *list:
		raw, err := client.ListOrders(ctx)
		if err != nil {
			fatal("list orders", err)
		}
		fmt.Println(string(raw))

	case *get != "":
		res, err := client.GetOrder(ctx, *get)
		if err != nil {
			fatal("get order", err)
		}
		fmt.Printf("id=%s state=%s side=%s symbol=%s type=%s\n",
			res.ID, res.State, res.Side, res.Symbol, res.Type)

	default:
		res, err := client.MarketOrder(ctx, robinhood.MarketOrderRequest{
			Symbol:   *symbol,
			Side:     *side,
			Quantity: *qty,
			Notional: *notional,
		})
		if err != nil {
			fatal("place order", err)
		}
		slog.Info("order placed",
			"id", res.ID, "state", res.State, "side", res.Side,
			"symbol", res.Symbol, "dry_run", res.DryRun)
	}
}

func fatal(what string, err error) {
	slog.Error(what, "err", err)
	os.Exit(1)
}
