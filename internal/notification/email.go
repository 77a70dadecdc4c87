package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailConfig configures the SMTP alert sink.
type EmailConfig struct {
	Host     string // e.g. "smtp.gmail.com"
	Port     int    // e.g. 587
	Username string
	Password string
	From     string
	To       string
}

// EmailNotifier sends alerts as plain-text email over SMTP with STARTTLS.
type EmailNotifier struct {
	cfg EmailConfig
}

// NewEmailNotifier creates an SMTP notifier.
func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	if cfg.Host == "" || cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("email notifier: host, from, and to are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &EmailNotifier{cfg: cfg}, nil
}

func (n *EmailNotifier) Send(ctx context.Context, alert Alert) error {
	subject := fmt.Sprintf("[%s] %s", alert.Level, alert.Title)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", n.cfg.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(alert.Message)
	msg.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{n.cfg.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("email notifier: send: %w", err)
	}
	return nil
}
