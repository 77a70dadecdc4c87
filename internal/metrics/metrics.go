// Package metrics exposes Prometheus metrics for the trading bot.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot loop.
type Metrics struct {
	TicksTotal      prometheus.Counter
	FeedErrorsTotal prometheus.Counter
	FetchDur        prometheus.Histogram

	SignalsTotal     *prometheus.CounterVec // labels: action
	TradesTotal      *prometheus.CounterVec // labels: side, mode
	RiskDenialsTotal *prometheus.CounterVec // labels: kind

	LastPrice   *prometheus.GaugeVec // labels: symbol
	Equity      prometheus.Gauge
	RealizedPnL prometheus.Gauge

	StreamReconnects prometheus.Counter
}

// New registers and returns all bot metrics on a fresh registry.
func New() (*Metrics, *prometheus.Registry) {
	m := &Metrics{
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_ticks_total",
			Help: "Total price ticks processed by the trading loop",
		}),
		FeedErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_feed_errors_total",
			Help: "Total price fetches that exhausted all sources",
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_fetch_duration_seconds",
			Help:    "Price fetch latency including retries",
			Buckets: prometheus.DefBuckets,
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_signals_total",
			Help: "Strategy signals emitted",
		}, []string{"action"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Executed trades",
		}, []string{"side", "mode"}),
		RiskDenialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_risk_denials_total",
			Help: "Entries blocked by the risk guard",
		}, []string{"kind"}),
		LastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bot_last_price",
			Help: "Last observed spot price",
		}, []string{"symbol"}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_equity_usd",
			Help: "Paper account equity at the last mark",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_realized_pnl_usd",
			Help: "Cumulative realized P&L",
		}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_stream_reconnects_total",
			Help: "Websocket feed reconnection attempts",
		}),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		m.TicksTotal, m.FeedErrorsTotal, m.FetchDur,
		m.SignalsTotal, m.TradesTotal, m.RiskDenialsTotal,
		m.LastPrice, m.Equity, m.RealizedPnL, m.StreamReconnects,
	)
	return m, reg
}

// Serve starts the /metrics HTTP endpoint and blocks until ctx is
// cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
