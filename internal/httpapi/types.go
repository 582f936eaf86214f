// Package httpapi provides the HTTP REST API for the stockpulse dashboard:
// stock search, session management, watchlist CRUD, search history, archived
// news, and a WebSocket tick stream.
package httpapi

import (
	"stockpulse/internal/domain"
)

// SearchResponse is the full payload for one stock lookup.
type SearchResponse struct {
	Snapshot *domain.Snapshot    `json:"snapshot"`
	News     []domain.NewsItem   `json:"news"`
	Chart    []domain.PricePoint `json:"chart"`
}

// PopularStock is one entry in the fixed shortcut grid.
type PopularStock struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// PopularResponse lists the shortcut grid symbols.
type PopularResponse struct {
	Stocks []PopularStock `json:"stocks"`
}

// SessionResponse describes the signed-in state.
type SessionResponse struct {
	SignedIn bool                `json:"signedIn"`
	User     *domain.UserProfile `json:"user,omitempty"`
}

// LoginRequest is the body for POST /api/session.
type LoginRequest struct {
	Username string `json:"username"`
}

// WatchlistResponse lists the current user's tracked symbols.
type WatchlistResponse struct {
	Entries []domain.WatchlistEntry `json:"entries"`
}

// AddWatchRequest carries the frozen quote captured at add time.
type AddWatchRequest struct {
	CompanyName   string  `json:"companyName"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
}

// HistoryResponse lists recent searches, newest first.
type HistoryResponse struct {
	Searches []domain.Snapshot `json:"searches"`
}

// NewsResponse holds archived news items for a symbol on a date.
type NewsResponse struct {
	Symbol string            `json:"symbol"`
	Date   string            `json:"date"`
	Items  []domain.NewsItem `json:"items"`
}
