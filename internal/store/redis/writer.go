// Package redis publishes price ticks and trade fills to Redis so
// external dashboards can follow the bot without touching the journal.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"cryptobot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Tick streams are trimmed to roughly a day of 15s polls.
	tickStreamMaxLen = 6000
	fillStreamMaxLen = 1000
	defaultLatestTTL = 30 * time.Minute
)

// WriterConfig configures the Redis publisher.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer mirrors ticks and fills into Redis streams and latest keys.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)
	return &Writer{client: client}, nil
}

// PublishTick writes one price point: SET latest with TTL, XADD to the
// capped per-symbol stream, and PUBLISH for live subscribers.
func (w *Writer) PublishTick(ctx context.Context, p model.PricePoint) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal tick: %w", err)
	}
	jsonData := string(data)

	latestKey := "tick:latest:" + p.Symbol
	streamKey := "tick:" + p.Symbol
	pubsubCh := "pub:tick:" + p.Symbol

	pipe := w.client.Pipeline()
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: tickStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Publish(ctx, pubsubCh, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis tick pipeline for %s: %w", p.Symbol, err)
	}
	return nil
}

// PublishFill writes one executed fill to the per-symbol fill stream.
func (w *Writer) PublishFill(ctx context.Context, f model.Fill) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal fill: %w", err)
	}
	jsonData := string(data)

	streamKey := "fill:" + f.Symbol
	pubsubCh := "pub:fill:" + f.Symbol

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: fillStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Publish(ctx, pubsubCh, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis fill pipeline for %s: %w", f.Symbol, err)
	}
	return nil
}

// Run drains the tick channel into Redis until ctx is cancelled or the
// channel is closed. Publish failures are logged, never fatal.
func (w *Writer) Run(ctx context.Context, tickCh <-chan model.PricePoint) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-tickCh:
			if !ok {
				return
			}
			if err := w.PublishTick(ctx, p); err != nil {
				slog.Warn("redis tick publish failed", "symbol", p.Symbol, "err", err)
			}
		}
	}
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
