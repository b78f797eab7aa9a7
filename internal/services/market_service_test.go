package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("vs_currencies") != "usd" || q.Get("include_24hr_change") != "true" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]map[string]float64{
			"bitcoin": {"usd": 61000.5, "usd_24h_change": -0.8},
		})
	}))
	defer srv.Close()

	db := newTestDB(t)
	market := NewMarketService(db, nil, srv.URL, []string{"bitcoin"})

	snapshot, err := market.FetchPrices(context.Background())
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}
	coin, ok := snapshot.Coins["bitcoin"]
	if !ok {
		t.Fatal("Expected bitcoin in snapshot")
	}
	if coin.USD != 61000.5 || coin.USD24hChange != -0.8 {
		t.Errorf("Unexpected coin data: %+v", coin)
	}
}

func TestFetchPricesErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{}"))
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	db := newTestDB(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			market := NewMarketService(db, nil, srv.URL, []string{"bitcoin"})
			if _, err := market.FetchPrices(context.Background()); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestCollectPricesStoresHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]map[string]float64{
			"bitcoin":  {"usd": 61000, "usd_24h_change": 1.2},
			"ethereum": {"usd": 3000, "usd_24h_change": 0.4},
			"cardano":  {"usd": 0.45, "usd_24h_change": -2.1},
		})
	}))
	defer srv.Close()

	db := newTestDB(t)
	market := NewMarketService(db, nil, srv.URL, []string{"bitcoin", "ethereum", "cardano"})

	if err := market.CollectPrices(context.Background()); err != nil {
		t.Fatalf("CollectPrices failed: %v", err)
	}
	if n := countRows(t, db, "coin_prices"); n != 3 {
		t.Errorf("Expected 3 price rows, got %d", n)
	}

	points, err := market.History(context.Background(), time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("Expected 3 history points, got %d", len(points))
	}
	for _, p := range points {
		if p.Symbol == "" || p.PriceUSD == 0 {
			t.Errorf("Incomplete price point: %+v", p)
		}
	}
}

func TestHistoryRespectsSinceBound(t *testing.T) {
	db := newTestDB(t)
	market := NewMarketService(db, nil, "http://unused", []string{"bitcoin"})

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)
	for _, ts := range []time.Time{old, recent} {
		if _, err := db.Exec(`
			INSERT INTO coin_prices (coin_id, symbol, price_usd, change_24h, fetched_at)
			VALUES ('bitcoin', 'BITCOIN', 60000, 0, ?)
		`, ts); err != nil {
			t.Fatalf("Failed to seed price: %v", err)
		}
	}

	points, err := market.History(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("Expected 1 point inside the window, got %d", len(points))
	}
}
