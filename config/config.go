// Package config loads bot configuration from environment variables and
// an optional YAML rules file with per-symbol order constraints.
package config

import (
	"fmt"
	"os"

	"cryptobot/internal/model"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Robinhood crypto API credentials (live mode only)
	RobinhoodAPIKey     string
	RobinhoodPrivateKey string // base64 Ed25519 seed or full private key
	RobinhoodBaseURL    string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	CSVPath       string
	MetricsAddr   string
	LogLevel      string
	RulesPath     string

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
	SMTPHost         string
	SMTPPort         string
	SMTPUser         string
	SMTPPassword     string
	AlertEmailTo     string
}

// Load reads configuration from environment variables with sensible defaults.
// Credentials are optional here; live trading validates them separately.
func Load() *Config {
	return &Config{
		RobinhoodAPIKey:     getEnv("ROBINHOOD_API_KEY", ""),
		RobinhoodPrivateKey: getEnv("ROBINHOOD_PRIVATE_KEY", ""),
		RobinhoodBaseURL:    getEnv("ROBINHOOD_BASE_URL", "https://trading.robinhood.com"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/fills.db"),
		CSVPath:       getEnv("CSV_PATH", "data/fills.csv"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RulesPath:     getEnv("RULES_PATH", "config/rules.yaml"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		AlertEmailTo:     getEnv("ALERT_EMAIL_TO", ""),
	}
}

// ValidateLive checks the credentials required for live order placement.
func (c *Config) ValidateLive() error {
	if c.RobinhoodAPIKey == "" {
		return fmt.Errorf("ROBINHOOD_API_KEY is required for live trading")
	}
	if c.RobinhoodPrivateKey == "" {
		return fmt.Errorf("ROBINHOOD_PRIVATE_KEY is required for live trading")
	}
	return nil
}

// Rules holds per-symbol order constraints loaded from the YAML rules file.
type Rules struct {
	Default model.AssetRule            `yaml:"default"`
	Symbols map[string]model.AssetRule `yaml:"symbols"`
}

// ForSymbol returns the rule for a symbol, falling back to the default.
func (r *Rules) ForSymbol(symbol string) model.AssetRule {
	if rule, ok := r.Symbols[symbol]; ok {
		return rule
	}
	return r.Default
}

// LoadRules reads the YAML rules file. A missing file is not an error;
// the built-in default rule applies to every symbol.
func LoadRules(path string) (*Rules, error) {
	rules := &Rules{Default: model.DefaultAssetRule}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return nil, fmt.Errorf("read rules: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, rules); err != nil {
			return nil, fmt.Errorf("parse rules: %w", err)
		}
	}

	if rules.Default.Decimals == 0 && rules.Default.MinNotional == 0 {
		rules.Default = model.DefaultAssetRule
	}
	return rules, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
