package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cryptobot/internal/model"
)

// fakeSource scripts a sequence of fetch outcomes.
type fakeSource struct {
	name   string
	prices []float64 // 0 means fail this call
	calls  int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, symbol string) (float64, error) {
	i := f.calls
	f.calls++
	if i >= len(f.prices) || f.prices[i] == 0 {
		return 0, fmt.Errorf("%s down", f.name)
	}
	return f.prices[i], nil
}

func newTestClient(sources ...Source) *Client {
	c := NewClient(ClientConfig{Retries: 2, BaseDelay: time.Millisecond, BiasBps: 85}, sources...)
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func TestClient_FallsBackAcrossSources(t *testing.T) {
	primary := &fakeSource{name: "primary", prices: []float64{0, 0}}
	backup := &fakeSource{name: "backup", prices: []float64{42.5}}
	c := newTestClient(primary, backup)

	tick, err := c.GetPrice(context.Background(), "DOGE-USD")
	if err != nil {
		t.Fatalf("GetPrice: %v", err)
	}
	if tick.Price != 42.5 || tick.Source != "backup" {
		t.Errorf("tick = %+v, want price 42.5 from backup", tick)
	}
	if primary.calls != 2 {
		t.Errorf("primary tried %d times, want 2 retries", primary.calls)
	}
}

func TestClient_AllSourcesFailed(t *testing.T) {
	a := &fakeSource{name: "a"}
	b := &fakeSource{name: "b"}
	c := newTestClient(a, b)

	_, err := c.GetPrice(context.Background(), "DOGE-USD")
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
	if a.calls != 2 || b.calls != 2 {
		t.Errorf("retry counts a=%d b=%d, want 2 each", a.calls, b.calls)
	}
}

func TestClient_TracksPreviousPrice(t *testing.T) {
	src := &fakeSource{name: "s", prices: []float64{10, 11}}
	c := newTestClient(src)

	if _, ok := c.Prev(); ok {
		t.Fatal("prev set before any fetch")
	}
	c.GetPrice(context.Background(), "X")
	if prev, ok := c.Prev(); !ok || prev != 10 {
		t.Errorf("prev = %v %v, want 10 true", prev, ok)
	}
	c.GetPrice(context.Background(), "X")
	if prev, _ := c.Prev(); prev != 11 {
		t.Errorf("prev = %v, want 11", prev)
	}
}

func TestClient_QtyFromUSDBiasAndPrecision(t *testing.T) {
	c := newTestClient()

	// Buy assumes a higher effective price, so fewer units than usd/price
	buyQty := c.QtyFromUSD(100, 10, model.SideBuy, 8)
	if buyQty >= 10 {
		t.Errorf("buy qty %.8f not reduced by bias", buyQty)
	}
	sellQty := c.QtyFromUSD(100, 10, model.SideSell, 8)
	if sellQty <= 10 {
		t.Errorf("sell qty %.8f not increased by bias", sellQty)
	}

	// Precision clamp rounds down
	q := c.QtyFromUSD(1, 3, model.SideBuy, 2)
	if math.Abs(q*100-math.Floor(q*100)) > 1e-12 {
		t.Errorf("qty %.12f not clamped to 2 decimals", q)
	}
}

func TestCoinbase_ParsesSpotResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/prices/DOGE-USD/spot" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":{"amount":"0.08123","currency":"USD"}}`)
	}))
	defer srv.Close()

	cb := NewCoinbase()
	cb.baseURL = srv.URL

	price, err := cb.Fetch(context.Background(), "DOGE-USD")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if math.Abs(price-0.08123) > 1e-12 {
		t.Errorf("price = %v, want 0.08123", price)
	}
}

func TestCoinbase_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cb := NewCoinbase()
	cb.baseURL = srv.URL

	if _, err := cb.Fetch(context.Background(), "DOGE-USD"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestKraken_ParsesTickerResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pair"); got != "XDGUSD" {
			t.Errorf("pair = %q, want XDGUSD", got)
		}
		fmt.Fprint(w, `{"error":[],"result":{"XDGUSD":{"c":["0.08200","1500"]}}}`)
	}))
	defer srv.Close()

	k := NewKraken()
	k.baseURL = srv.URL

	price, err := k.Fetch(context.Background(), "DOGE-USD")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if math.Abs(price-0.082) > 1e-12 {
		t.Errorf("price = %v, want 0.082", price)
	}
}

func TestKraken_APIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":["EQuery:Unknown asset pair"],"result":{}}`)
	}))
	defer srv.Close()

	k := NewKraken()
	k.baseURL = srv.URL

	if _, err := k.Fetch(context.Background(), "NOPE-USD"); err == nil {
		t.Fatal("expected error from kraken error array")
	}
}
