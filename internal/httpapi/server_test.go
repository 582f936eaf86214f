package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"stockpulse/internal/domain"
	"stockpulse/internal/gemini"
	"stockpulse/internal/sim"
	"stockpulse/internal/watchlist"
)

// fakeSearcher returns canned results per symbol.
type fakeSearcher struct {
	results map[string]*gemini.Result
	err     error
}

func (f *fakeSearcher) SearchStock(ctx context.Context, symbol string) (*gemini.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[symbol]; ok {
		return r, nil
	}
	return &gemini.Result{RawText: "no data"}, nil
}

func testServer(t *testing.T, searcher gemini.Searcher) (*Server, *watchlist.Session) {
	t.Helper()
	store, err := watchlist.Open(filepath.Join(t.TempDir(), "watchlist.db"))
	if err != nil {
		t.Fatalf("opening watchlist store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := watchlist.NewSession(store)
	simulator := sim.NewSimulator(time.Hour, logger)
	t.Cleanup(simulator.Stop)

	return NewServer(searcher, session, simulator, nil, nil, false, logger), session
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func nvdaResult() *gemini.Result {
	return &gemini.Result{
		Snapshot: &domain.Snapshot{
			Symbol:        "NVDA",
			CompanyName:   "NVIDIA Corp",
			Price:         500.00,
			Currency:      "USD",
			ChangePercent: 2.5,
			MarketCap:     "1.2T",
			Sentiment:     domain.SentimentBullish,
			Summary:       "Strong earnings.",
			LastUpdated:   time.Now(),
		},
		News: []domain.NewsItem{
			{Title: "NVIDIA beats estimates", URL: "https://reuters.com/a", Source: "reuters.com"},
		},
	}
}

func TestSearch(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{results: map[string]*gemini.Result{"NVDA": nvdaResult()}})
	h := srv.Handler()

	rec := doRequest(t, h, "GET", "/api/search/NVDA", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	resp := decodeBody[SearchResponse](t, rec)
	if resp.Snapshot == nil || resp.Snapshot.Symbol != "NVDA" {
		t.Fatalf("Snapshot = %+v, want NVDA", resp.Snapshot)
	}
	if len(resp.News) != 1 {
		t.Errorf("len(News) = %d, want 1", len(resp.News))
	}
	if len(resp.Chart) != sim.PathPoints {
		t.Fatalf("len(Chart) = %d, want %d", len(resp.Chart), sim.PathPoints)
	}
	if last := resp.Chart[len(resp.Chart)-1]; last.Price != 500.00 {
		t.Errorf("last chart point = %v, want the current price 500", last.Price)
	}
}

func TestSearchNotFound(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	rec := doRequest(t, srv.Handler(), "GET", "/api/search/ZZZZ", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != userErrNoData {
		t.Errorf("error = %q, want %q", resp["error"], userErrNoData)
	}
}

func TestSearchUpstreamFailure(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{err: errors.New("upstream down")})
	rec := doRequest(t, srv.Handler(), "GET", "/api/search/NVDA", nil)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != userErrFetch {
		t.Errorf("error = %q, want %q", resp["error"], userErrFetch)
	}
}

func TestPopular(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	rec := doRequest(t, srv.Handler(), "GET", "/api/popular", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody[PopularResponse](t, rec)
	if len(resp.Stocks) != 12 {
		t.Errorf("len(Stocks) = %d, want 12", len(resp.Stocks))
	}
	if resp.Stocks[0].Symbol != "RELIANCE" {
		t.Errorf("Stocks[0].Symbol = %q, want RELIANCE", resp.Stocks[0].Symbol)
	}
}

func TestSessionFlow(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	h := srv.Handler()

	rec := doRequest(t, h, "GET", "/api/session", nil)
	if got := decodeBody[SessionResponse](t, rec); got.SignedIn {
		t.Error("SignedIn = true before login")
	}

	rec = doRequest(t, h, "POST", "/api/session", LoginRequest{Username: "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[SessionResponse](t, rec)
	if !got.SignedIn || got.User == nil || got.User.Username != "alice" {
		t.Errorf("login response = %+v, want signed-in alice", got)
	}

	rec = doRequest(t, h, "DELETE", "/api/session", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, h, "GET", "/api/session", nil)
	if got := decodeBody[SessionResponse](t, rec); got.SignedIn {
		t.Error("SignedIn = true after logout")
	}
}

func TestLoginEmptyUsername(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	rec := doRequest(t, srv.Handler(), "POST", "/api/session", LoginRequest{Username: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWatchlistRequiresLogin(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	h := srv.Handler()

	if rec := doRequest(t, h, "GET", "/api/watchlist", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET status = %d, want 401", rec.Code)
	}
	req := AddWatchRequest{CompanyName: "NVIDIA Corp", Price: 500, ChangePercent: 2.5}
	if rec := doRequest(t, h, "PUT", "/api/watchlist/NVDA", req); rec.Code != http.StatusUnauthorized {
		t.Errorf("PUT status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, h, "DELETE", "/api/watchlist/NVDA", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("DELETE status = %d, want 401", rec.Code)
	}
}

func TestWatchlistFlow(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	h := srv.Handler()

	if rec := doRequest(t, h, "POST", "/api/session", LoginRequest{Username: "alice"}); rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}

	req := AddWatchRequest{CompanyName: "NVIDIA Corp", Price: 500, ChangePercent: 2.5}
	if rec := doRequest(t, h, "PUT", "/api/watchlist/nvda", req); rec.Code != http.StatusNoContent {
		t.Fatalf("add status = %d, want 204", rec.Code)
	}
	// Duplicate adds are ignored.
	if rec := doRequest(t, h, "PUT", "/api/watchlist/NVDA", req); rec.Code != http.StatusNoContent {
		t.Fatalf("duplicate add status = %d, want 204", rec.Code)
	}

	rec := doRequest(t, h, "GET", "/api/watchlist", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	resp := decodeBody[WatchlistResponse](t, rec)
	if len(resp.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(resp.Entries))
	}
	entry := resp.Entries[0]
	if entry.Symbol != "NVDA" {
		t.Errorf("Symbol = %q, want uppercased NVDA", entry.Symbol)
	}
	if entry.Price != 500 || entry.ChangePercent != 2.5 {
		t.Errorf("frozen quote = %v %v, want 500 2.5", entry.Price, entry.ChangePercent)
	}
	if entry.AddedAt == 0 {
		t.Error("AddedAt is zero")
	}

	if rec := doRequest(t, h, "DELETE", "/api/watchlist/NVDA", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("remove status = %d, want 204", rec.Code)
	}
	rec = doRequest(t, h, "GET", "/api/watchlist", nil)
	if resp := decodeBody[WatchlistResponse](t, rec); len(resp.Entries) != 0 {
		t.Errorf("len(Entries) after remove = %d, want 0", len(resp.Entries))
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	rec := doRequest(t, srv.Handler(), "GET", "/api/history", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody[HistoryResponse](t, rec)
	if resp.Searches == nil {
		t.Error("Searches is null, want an empty array")
	}
}

func TestNewsWithoutArchive(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	rec := doRequest(t, srv.Handler(), "GET", "/api/news/NVDA?date=2026-03-15", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeBody[NewsResponse](t, rec)
	if resp.Symbol != "NVDA" || resp.Date != "2026-03-15" {
		t.Errorf("response = %+v, want NVDA on 2026-03-15", resp)
	}
	if resp.Items == nil {
		t.Error("Items is null, want an empty array")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t, &fakeSearcher{})
	rec := doRequest(t, srv.Handler(), "OPTIONS", "/api/search/NVDA", nil)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
