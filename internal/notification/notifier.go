// Package notification delivers trade alerts to external channels
// (email, Telegram). Delivery is best-effort: failures are logged by the
// caller, never propagated into the trading loop.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"cryptobot/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// TradeAlert formats a fill into an Alert.
func TradeAlert(fill model.Fill, paper bool) Alert {
	mode := "live"
	if paper {
		mode = "paper"
	}
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s %s %s", mode, fill.Side, fill.Symbol),
		Message: fmt.Sprintf("%s %s qty=%.8f @ %.8f notional=%.2f pnl=%.4f cash=%.2f",
			fill.Side, fill.Symbol, fill.Qty, fill.Price, fill.Notional,
			fill.RealizedPnL, fill.CashAfter),
	}
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them (development default).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("alert", "level", alert.Level, "title", alert.Title, "message", alert.Message)
	return nil
}

// Multi fans an alert out to several backends. Each backend failure is
// logged; Send itself always reports success so callers never branch on it.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			slog.Warn("alert delivery failed", "title", alert.Title, "err", err)
		}
	}
	return nil
}
