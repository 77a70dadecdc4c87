package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"cryptobot/internal/model"
)

const coinbaseWSURL = "wss://ws-feed.exchange.coinbase.com"

// StreamConfig configures the websocket price stream.
type StreamConfig struct {
	URL        string // defaults to the Coinbase exchange feed
	Symbols    []string
	ReadLimit  int64
	MaxBackoff time.Duration
}

// Stream subscribes to the exchange ticker websocket channel and pushes
// normalized price points into a channel. It is an alternative to the
// polling Client for lower-latency ticks; the bot consumes either.
type Stream struct {
	cfg StreamConfig

	// OnReconnect is an optional metrics hook.
	OnReconnect func()
}

// NewStream creates a websocket ticker stream for the given symbols.
func NewStream(cfg StreamConfig) (*Stream, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("stream: no symbols to subscribe")
	}
	if cfg.URL == "" {
		cfg.URL = coinbaseWSURL
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Stream{cfg: cfg}, nil
}

type wsSubscribe struct {
	Type     string      `json:"type"`
	Channels []wsChannel `json:"channels"`
}

type wsChannel struct {
	Name       string   `json:"name"`
	ProductIDs []string `json:"product_ids"`
}

type wsTicker struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
}

// Run connects, subscribes, and streams ticks into tickCh until ctx is
// cancelled. Reconnects with exponential backoff on any read error.
func (s *Stream) Run(ctx context.Context, tickCh chan<- model.PricePoint) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.runConn(ctx, tickCh)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("price stream disconnected", "err", err, "retry_in", backoff)
		if s.OnReconnect != nil {
			s.OnReconnect()
		}

		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
}

func (s *Stream) runConn(ctx context.Context, tickCh chan<- model.PricePoint) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("stream: dial: %w", err)
	}
	defer conn.Close()
	if s.cfg.ReadLimit > 0 {
		conn.SetReadLimit(s.cfg.ReadLimit)
	}

	sub := wsSubscribe{
		Type:     "subscribe",
		Channels: []wsChannel{{Name: "ticker", ProductIDs: s.cfg.Symbols}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("stream: subscribe: %w", err)
	}
	slog.Info("price stream subscribed", "symbols", s.cfg.Symbols)

	// Close the connection when ctx is cancelled to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("stream: read: %w", err)
		}

		var msg wsTicker
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "ticker" {
			continue
		}
		price, err := strconv.ParseFloat(msg.Price, 64)
		if err != nil || price <= 0 {
			continue
		}

		tick := model.PricePoint{
			Symbol: msg.ProductID,
			Price:  price,
			Source: "ws",
			TickTS: time.Now().UTC(),
		}
		select {
		case tickCh <- tick:
		default:
			slog.Debug("tick channel full, dropping", "symbol", msg.ProductID)
		}
	}
}
