package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const coinbaseBaseURL = "https://api.coinbase.com"

// Coinbase fetches spot prices from the Coinbase public price API.
type Coinbase struct {
	client  *http.Client
	baseURL string
}

// NewCoinbase creates a Coinbase price source.
func NewCoinbase() *Coinbase {
	return &Coinbase{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: coinbaseBaseURL,
	}
}

func (c *Coinbase) Name() string { return "coinbase" }

// coinbaseSpot is the /v2/prices response shape.
type coinbaseSpot struct {
	Data struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

func (c *Coinbase) Fetch(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/v2/prices/%s/spot", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("coinbase: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("coinbase: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coinbase: unexpected status %d", resp.StatusCode)
	}

	var body coinbaseSpot
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("coinbase: decode: %w", err)
	}
	price, err := strconv.ParseFloat(body.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("coinbase: bad amount %q: %w", body.Data.Amount, err)
	}
	return price, nil
}
