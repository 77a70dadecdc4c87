package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRules_MissingFileUsesDefault(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	r := rules.ForSymbol("DOGE-USD")
	if r.Decimals != 8 || r.MinNotional != 0.05 {
		t.Errorf("expected built-in default rule, got %+v", r)
	}
}

func TestLoadRules_PerSymbolOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := `default:
  decimals: 8
  min_notional: 0.05
symbols:
  DOGE-USD:
    decimals: 0
    min_notional: 1.0
    max_buy_price: 0.5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	doge := rules.ForSymbol("DOGE-USD")
	if doge.Decimals != 0 || doge.MinNotional != 1.0 || doge.MaxBuyPrice != 0.5 {
		t.Errorf("unexpected DOGE rule: %+v", doge)
	}
	// Unknown symbol falls back to the file default
	btc := rules.ForSymbol("BTC-USD")
	if btc.Decimals != 8 || btc.MinNotional != 0.05 {
		t.Errorf("unexpected fallback rule: %+v", btc)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("METRICS_ADDR", ":9999")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if cfg.MetricsAddr != ":9999" {
		t.Errorf("MetricsAddr = %q, want :9999", cfg.MetricsAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.RobinhoodBaseURL == "" {
		t.Error("expected default base URL")
	}
}

func TestValidateLive(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateLive(); err == nil {
		t.Error("expected error with no credentials")
	}
	cfg.RobinhoodAPIKey = "k"
	if err := cfg.ValidateLive(); err == nil {
		t.Error("expected error with missing private key")
	}
	cfg.RobinhoodPrivateKey = "s"
	if err := cfg.ValidateLive(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
