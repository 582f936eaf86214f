// Package domain defines the core types shared across the stockpulse
// platform: parsed stock snapshots, news items, watchlist entries, user
// profiles, and simulated price data.
package domain

import "time"

// Sentiment is the AI-classified market sentiment for a symbol.
type Sentiment string

// Sentiment values.
const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// Snapshot is one parsed structured result for a single query. It is
// immutable once produced; a new search yields a new Snapshot.
type Snapshot struct {
	Symbol        string    `json:"symbol"`
	CompanyName   string    `json:"companyName"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	ChangePercent float64   `json:"changePercent"`
	MarketCap     string    `json:"marketCap"`
	Sentiment     Sentiment `json:"sentiment"`
	Summary       string    `json:"summary"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// ImpliedOpen returns the session-start price back-computed from the current
// price and percent change. It anchors both path generation and live
// percent-change recomputation.
func (s *Snapshot) ImpliedOpen() float64 {
	return s.Price / (1 + s.ChangePercent/100)
}

// NewsItem is a single news link derived from a grounding reference. URL is
// the unique key within a result set.
type NewsItem struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// WatchlistEntry is a symbol tracked by one user. Price and ChangePercent
// are frozen at add time, never live-synced.
type WatchlistEntry struct {
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"companyName"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	AddedAt       int64   `json:"addedAt"` // Unix ms
}

// UserProfile identifies the signed-in user. There is no password and no
// identity verification; the username partitions watchlist storage.
type UserProfile struct {
	Username string `json:"username"`
}

// PricePoint is one point on a simulated intraday price path. Time is a
// cosmetic session-clock label.
type PricePoint struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

// Tick is one synthetic price-update event during live simulation.
type Tick struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	Timestamp     int64   `json:"timestamp"` // Unix ms
}
