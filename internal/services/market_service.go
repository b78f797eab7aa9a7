package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cryptogram/internal/database"
	"cryptogram/internal/models"
)

const (
	marketSnapshotKey = "cryptogram:market:snapshot"
	marketSnapshotTTL = 5 * time.Minute
)

// MarketService fetches price data from a CoinGecko-style feed, stores
// price history, and caches the latest snapshot in Redis.
type MarketService struct {
	db         *database.DB
	redis      *RedisService // optional
	httpClient *http.Client
	baseURL    string
	coinIDs    []string
}

// NewMarketService creates a new market data service. redis may be nil.
func NewMarketService(db *database.DB, redis *RedisService, baseURL string, coinIDs []string) *MarketService {
	return &MarketService{
		db:    db,
		redis: redis,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		coinIDs: coinIDs,
	}
}

// FetchPrices calls the price feed directly. A non-2xx response is a hard
// failure; the core never substitutes synthetic data.
func (s *MarketService) FetchPrices(ctx context.Context) (*models.MarketSnapshot, error) {
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		s.baseURL, url.QueryEscape(strings.Join(s.coinIDs, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build price feed request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}

	var coins map[string]models.CoinPrice
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, fmt.Errorf("failed to decode price feed response: %w", err)
	}
	if len(coins) == 0 {
		return nil, fmt.Errorf("price feed returned no assets")
	}

	return &models.MarketSnapshot{
		Coins:     coins,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Snapshot returns the cached market snapshot, fetching from the feed on
// a cache miss. Without Redis it always hits the feed.
func (s *MarketService) Snapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	if s.redis != nil {
		data, err := s.redis.Client().Get(ctx, marketSnapshotKey).Bytes()
		if err == nil {
			var snapshot models.MarketSnapshot
			if err := json.Unmarshal(data, &snapshot); err == nil {
				return &snapshot, nil
			}
		}
	}

	snapshot, err := s.FetchPrices(ctx)
	if err != nil {
		return nil, err
	}

	s.cacheSnapshot(ctx, snapshot)
	return snapshot, nil
}

func (s *MarketService) cacheSnapshot(ctx context.Context, snapshot *models.MarketSnapshot) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.redis.Client().Set(ctx, marketSnapshotKey, data, marketSnapshotTTL).Err(); err != nil {
		log.Printf("⚠️  [MARKET] Failed to cache snapshot: %v", err)
	}
}

// CollectPrices is the price collector job body: fetch current prices,
// append one coin_prices row per asset, refresh the cache.
func (s *MarketService) CollectPrices(ctx context.Context) error {
	snapshot, err := s.FetchPrices(ctx)
	if err != nil {
		return err
	}

	for coinID, price := range snapshot.Coins {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO coin_prices (coin_id, symbol, price_usd, change_24h, fetched_at)
			VALUES (?, ?, ?, ?, ?)
		`, coinID, strings.ToUpper(coinID), price.USD, price.USD24hChange, snapshot.FetchedAt)
		if err != nil {
			return fmt.Errorf("failed to insert price for %s: %w", coinID, err)
		}
	}

	s.cacheSnapshot(ctx, snapshot)
	log.Printf("💰 [MARKET] Collected prices for %d assets", len(snapshot.Coins))
	return nil
}

// History returns stored price points since the given time, oldest first.
func (s *MarketService) History(ctx context.Context, since time.Time) ([]models.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, coin_id, symbol, price_usd, change_24h, fetched_at
		FROM coin_prices
		WHERE fetched_at >= ?
		ORDER BY fetched_at ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.ID, &p.CoinID, &p.Symbol, &p.PriceUSD, &p.Change24h, &p.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
