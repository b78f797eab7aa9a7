package models

import "time"

// CoinPrice is one asset's current price as returned by the price feed.
type CoinPrice struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
}

// MarketSnapshot maps coin id to its current price data.
type MarketSnapshot struct {
	Coins     map[string]CoinPrice `json:"coins"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// PricePoint is one stored row of price history.
type PricePoint struct {
	ID        int64     `json:"id"`
	CoinID    string    `json:"coin_id"`
	Symbol    string    `json:"symbol"`
	PriceUSD  float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	FetchedAt time.Time `json:"timestamp"`
}
