// Package robinhood is a minimal client for the Robinhood Crypto trading
// API. Requests are authenticated with an Ed25519 signature over
// apiKey + timestamp + path + method + canonical body.
//
// Usage example:
//
//	c, err := robinhood.New(robinhood.Config{APIKey: key, PrivateKeyB64: priv})
//	if err != nil { log.Fatal(err) }
//	res, err := c.MarketOrder(ctx, robinhood.MarketOrderRequest{
//	    Symbol: "DOGE-USD", Side: "buy", Quantity: 12.5,
//	})
package robinhood

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL = "https://trading.robinhood.com"
	ordersPath     = "/api/v1/crypto/trading/orders/"
	defaultTimeout = 30 * time.Second
)

// Config configures the API client.
type Config struct {
	APIKey        string
	PrivateKeyB64 string // base64 Ed25519 private key (seed or full key)
	BaseURL       string // default: https://trading.robinhood.com
	Timeout       time.Duration
	DryRun        bool // if true, POSTs are echoed back instead of sent
}

// Client is a signed HTTP client for the trading API.
type Client struct {
	apiKey  string
	key     ed25519.PrivateKey
	baseURL string
	http    *http.Client
	dryRun  bool

	now func() time.Time // injectable for signing tests
}

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// OrderResult is the subset of the order payload the bot consumes.
type OrderResult struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Side   string `json:"side"`
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// New creates an API client from the given config.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.PrivateKeyB64 == "" {
		return nil, errors.New("robinhood: missing api key or private key")
	}
	raw, err := base64.StdEncoding.DecodeString(cfg.PrivateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("robinhood: decode private key: %w", err)
	}

	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	default:
		return nil, fmt.Errorf("robinhood: private key is %d bytes, want %d or %d",
			len(raw), ed25519.SeedSize, ed25519.PrivateKeySize)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:  cfg.APIKey,
		key:     key,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		dryRun:  cfg.DryRun,
		now:     time.Now,
	}, nil
}

// canonicalBody renders the exact bytes that are both signed and sent.
// encoding/json writes map keys in sorted order with no extra whitespace,
// which is the canonical form the server verifies against.
func canonicalBody(body map[string]any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

func (c *Client) sign(method, path string, body []byte) (ts, sig string) {
	ts = strconv.FormatInt(c.now().Unix(), 10)
	msg := c.apiKey + ts + path + method + string(body)
	raw := ed25519.Sign(c.key, []byte(msg))
	return ts, base64.StdEncoding.EncodeToString(raw)
}

func (c *Client) do(ctx context.Context, method, path string, body map[string]any, out any) error {
	payload, err := canonicalBody(body)
	if err != nil {
		return fmt.Errorf("robinhood: encode body: %w", err)
	}

	if c.dryRun && method == http.MethodPost {
		// Echo the would-be order without touching the network
		if res, ok := out.(*OrderResult); ok {
			res.ID = "dry-" + newClientOrderID()
			res.State = "unsubmitted"
			res.DryRun = true
			if v, ok := body["side"].(string); ok {
				res.Side = v
			}
			if v, ok := body["symbol"].(string); ok {
				res.Symbol = v
			}
			res.Type = "market"
		}
		return nil
	}

	ts, sig := c.sign(method, path, payload)

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("robinhood: create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-timestamp", ts)
	req.Header.Set("x-signature", sig)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("robinhood: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("robinhood: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("robinhood: decode response: %w", err)
		}
	}
	return nil
}

// MarketOrderRequest describes a market order. Exactly one of Quantity or
// Notional must be set.
type MarketOrderRequest struct {
	Symbol        string
	Side          string // "buy" or "sell"
	Quantity      float64
	Notional      float64 // USD
	ClientOrderID string  // generated when empty
}

// MarketOrder places a market order.
func (c *Client) MarketOrder(ctx context.Context, req MarketOrderRequest) (OrderResult, error) {
	var res OrderResult
	if req.Side != "buy" && req.Side != "sell" {
		return res, fmt.Errorf("robinhood: side must be buy or sell, got %q", req.Side)
	}
	if (req.Quantity > 0) == (req.Notional > 0) {
		return res, errors.New("robinhood: provide exactly one of quantity or notional")
	}

	id := req.ClientOrderID
	if id == "" {
		id = newClientOrderID()
	}

	orderCfg := map[string]any{}
	if req.Quantity > 0 {
		orderCfg["asset_quantity"] = strconv.FormatFloat(req.Quantity, 'f', -1, 64)
	} else {
		orderCfg["usd_notional"] = strconv.FormatFloat(req.Notional, 'f', -1, 64)
	}

	body := map[string]any{
		"client_order_id":     id,
		"side":                req.Side,
		"symbol":              req.Symbol,
		"type":                "market",
		"market_order_config": orderCfg,
	}

	err := c.do(ctx, http.MethodPost, ordersPath, body, &res)
	return res, err
}

// GetOrder fetches one order by ID.
func (c *Client) GetOrder(ctx context.Context, id string) (OrderResult, error) {
	var res OrderResult
	err := c.do(ctx, http.MethodGet, ordersPath+id+"/", nil, &res)
	return res, err
}

// ListOrders fetches the raw order list payload.
func (c *Client) ListOrders(ctx context.Context) (json.RawMessage, error) {
	var res json.RawMessage
	if err := c.do(ctx, http.MethodGet, ordersPath, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// newClientOrderID returns a random 32-hex-char idempotency key.
// No UUID dependency needed.
func newClientOrderID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails when the platform entropy source is broken
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b[:])
}
