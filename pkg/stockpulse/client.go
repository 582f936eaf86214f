// Package stockpulse provides a Go SDK for the stockpulse-server API.
package stockpulse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running stockpulse-server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new stockpulse API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// Snapshot mirrors the server's parsed stock snapshot.
type Snapshot struct {
	Symbol        string    `json:"symbol"`
	CompanyName   string    `json:"companyName"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	ChangePercent float64   `json:"changePercent"`
	MarketCap     string    `json:"marketCap"`
	Sentiment     string    `json:"sentiment"`
	Summary       string    `json:"summary"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// NewsItem is one news link attached to a search result.
type NewsItem struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

// PricePoint is one point on the simulated intraday chart.
type PricePoint struct {
	Time  string  `json:"time"`
	Price float64 `json:"price"`
}

// SearchResult is the response of GET /api/search/{symbol}.
type SearchResult struct {
	Snapshot *Snapshot    `json:"snapshot"`
	News     []NewsItem   `json:"news"`
	Chart    []PricePoint `json:"chart"`
}

// WatchlistEntry is one tracked symbol.
type WatchlistEntry struct {
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"companyName"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"changePercent"`
	AddedAt       int64   `json:"addedAt"`
}

// apiError is the server's error envelope.
type apiError struct {
	Error string `json:"error"`
}

// Search looks up a symbol.
func (c *Client) Search(ctx context.Context, symbol string) (*SearchResult, error) {
	var result SearchResult
	err := c.do(ctx, "GET", "/api/search/"+url.PathEscape(symbol), nil, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Login signs in with a username (demo auth, no password).
func (c *Client) Login(ctx context.Context, username string) error {
	body := map[string]string{"username": username}
	return c.do(ctx, "POST", "/api/session", body, nil)
}

// Logout signs the current user out.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "DELETE", "/api/session", nil, nil)
}

// Watchlist returns the signed-in user's watchlist.
func (c *Client) Watchlist(ctx context.Context) ([]WatchlistEntry, error) {
	var resp struct {
		Entries []WatchlistEntry `json:"entries"`
	}
	if err := c.do(ctx, "GET", "/api/watchlist", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// AddToWatchlist tracks a symbol with a frozen quote.
func (c *Client) AddToWatchlist(ctx context.Context, symbol, companyName string, price, changePercent float64) error {
	body := map[string]any{
		"companyName":   companyName,
		"price":         price,
		"changePercent": changePercent,
	}
	return c.do(ctx, "PUT", "/api/watchlist/"+url.PathEscape(symbol), body, nil)
}

// RemoveFromWatchlist stops tracking a symbol.
func (c *Client) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	return c.do(ctx, "DELETE", "/api/watchlist/"+url.PathEscape(symbol), nil, nil)
}

// History returns recent searches, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]Snapshot, error) {
	path := "/api/history"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var resp struct {
		Searches []Snapshot `json:"searches"`
	}
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Searches, nil
}

// do performs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, res.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, res.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
