package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const krakenBaseURL = "https://api.kraken.com"

// Kraken fetches last-trade prices from the Kraken public ticker API.
type Kraken struct {
	client    *http.Client
	baseURL   string
	symbolMap map[string]string // internal symbol -> Kraken pair
}

// NewKraken creates a Kraken price source.
func NewKraken() *Kraken {
	return &Kraken{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: krakenBaseURL,
		symbolMap: map[string]string{
			"DOGE-USD": "XDGUSD",
			"BTC-USD":  "XBTUSD",
			"ETH-USD":  "ETHUSD",
			"SHIB-USD": "SHIBUSD",
		},
	}
}

func (k *Kraken) Name() string { return "kraken" }

func (k *Kraken) pair(symbol string) string {
	if mapped, ok := k.symbolMap[symbol]; ok {
		return mapped
	}
	return strings.ReplaceAll(symbol, "-", "")
}

// krakenTicker is the /0/public/Ticker response shape. The result is keyed
// by Kraken's own pair spelling, so it is decoded as a map.
type krakenTicker struct {
	Error  []string `json:"error"`
	Result map[string]struct {
		Close []string `json:"c"` // [price, lot volume]
	} `json:"result"`
}

func (k *Kraken) Fetch(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/0/public/Ticker?pair=%s", k.baseURL, k.pair(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("kraken: create request: %w", err)
	}

	resp, err := k.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("kraken: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("kraken: unexpected status %d", resp.StatusCode)
	}

	var body krakenTicker
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("kraken: decode: %w", err)
	}
	if len(body.Error) > 0 {
		return 0, fmt.Errorf("kraken: api error: %s", strings.Join(body.Error, "; "))
	}

	for _, entry := range body.Result {
		if len(entry.Close) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(entry.Close[0], 64)
		if err != nil {
			return 0, fmt.Errorf("kraken: bad close %q: %w", entry.Close[0], err)
		}
		return price, nil
	}
	return 0, fmt.Errorf("kraken: empty result for %s", symbol)
}
