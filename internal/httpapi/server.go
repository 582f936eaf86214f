package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stockpulse/internal/domain"
	"stockpulse/internal/gemini"
	"stockpulse/internal/history"
	"stockpulse/internal/news"
	"stockpulse/internal/sim"
	"stockpulse/internal/watchlist"
)

// userErrFetch and userErrNoData distinguish a service-level failure from a
// content-level miss, matching the dashboard's two error states.
const (
	userErrFetch  = "Failed to fetch stock data. Please check your API key or try again later."
	userErrNoData = "Could not find structured stock data for this symbol. Please try a valid ticker (e.g., AAPL, GOOGL)."
	userErrSignIn = "Sign in to manage your watchlist."
)

// popularStocks is the fixed shortcut grid shown under the search results.
var popularStocks = []PopularStock{
	{Symbol: "RELIANCE", Name: "Reliance Industries"},
	{Symbol: "TCS", Name: "Tata Consultancy Svcs"},
	{Symbol: "HDFCBANK", Name: "HDFC Bank"},
	{Symbol: "ICICIBANK", Name: "ICICI Bank"},
	{Symbol: "INFY", Name: "Infosys"},
	{Symbol: "SBIN", Name: "State Bank of India"},
	{Symbol: "TATAMOTORS", Name: "Tata Motors"},
	{Symbol: "BHARTIARTL", Name: "Bharti Airtel"},
	{Symbol: "ITC", Name: "ITC Limited"},
	{Symbol: "LT", Name: "Larsen & Toubro"},
	{Symbol: "BAJFINANCE", Name: "Bajaj Finance"},
	{Symbol: "MARUTI", Name: "Maruti Suzuki"},
}

// Server serves the dashboard HTTP API.
type Server struct {
	searcher  gemini.Searcher
	session   *watchlist.Session
	simulator *sim.Simulator
	searches  *history.Store
	archive   *news.Archive
	log       *slog.Logger

	// simulate controls whether a successful search starts the live ticker.
	simulate bool

	rng *rand.Rand
}

// NewServer creates a dashboard server. searches and archive may be nil when
// history recording is disabled (tests).
func NewServer(
	searcher gemini.Searcher,
	session *watchlist.Session,
	simulator *sim.Simulator,
	searches *history.Store,
	archive *news.Archive,
	simulate bool,
	log *slog.Logger,
) *Server {
	return &Server{
		searcher:  searcher,
		session:   session,
		simulator: simulator,
		searches:  searches,
		archive:   archive,
		simulate:  simulate,
		log:       log,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search/{symbol}", s.handleSearch)
	mux.HandleFunc("GET /api/popular", s.handlePopular)
	mux.HandleFunc("GET /api/session", s.handleGetSession)
	mux.HandleFunc("POST /api/session", s.handleLogin)
	mux.HandleFunc("DELETE /api/session", s.handleLogout)
	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{symbol}", s.handleAddWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", s.handleRemoveWatchlist)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/news/{symbol}", s.handleNews)
	mux.HandleFunc("GET /api/stream", s.handleStream)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.PathValue("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol required")
		return
	}

	result, err := s.searcher.SearchStock(r.Context(), symbol)
	if err != nil {
		s.log.Error("stock search failed", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, userErrFetch)
		return
	}
	if result.Snapshot == nil {
		writeError(w, http.StatusNotFound, userErrNoData)
		return
	}
	snap := result.Snapshot

	if s.searches != nil {
		if err := s.searches.Record(r.Context(), snap); err != nil {
			s.log.Warn("recording search history", "symbol", snap.Symbol, "error", err)
		}
	}
	if s.archive != nil && len(result.News) > 0 {
		if err := s.archive.Append(snap.Symbol, result.News, time.Now()); err != nil {
			s.log.Warn("archiving news", "symbol", snap.Symbol, "error", err)
		}
	}

	if s.simulate && s.simulator != nil {
		s.simulator.Start(*snap)
	}

	writeJSON(w, SearchResponse{
		Snapshot: snap,
		News:     result.News,
		Chart:    sim.GeneratePath(s.rng, snap.Price, snap.ChangePercent),
	})
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, PopularResponse{Stocks: popularStocks})
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	user := s.session.User()
	writeJSON(w, SessionResponse{SignedIn: user != nil, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.session.Login(strings.TrimSpace(req.Username)); err != nil {
		if errors.Is(err, watchlist.ErrEmptyUsername) {
			writeError(w, http.StatusBadRequest, "username must not be empty")
			return
		}
		s.log.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	s.log.Info("user signed in", "username", req.Username)
	writeJSON(w, SessionResponse{SignedIn: true, User: s.session.User()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Logout(); err != nil {
		s.log.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.session.User() == nil {
		writeError(w, http.StatusUnauthorized, userErrSignIn)
		return
	}
	writeJSON(w, WatchlistResponse{Entries: s.session.Entries()})
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	var req AddWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := domain.WatchlistEntry{
		Symbol:        symbol,
		CompanyName:   req.CompanyName,
		Price:         req.Price,
		ChangePercent: req.ChangePercent,
		AddedAt:       time.Now().UnixMilli(),
	}
	if err := s.session.Add(entry); err != nil {
		if errors.Is(err, watchlist.ErrNotSignedIn) {
			writeError(w, http.StatusUnauthorized, userErrSignIn)
			return
		}
		s.log.Error("adding watchlist entry", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add "+symbol)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	if err := s.session.Remove(symbol); err != nil {
		if errors.Is(err, watchlist.ErrNotSignedIn) {
			writeError(w, http.StatusUnauthorized, userErrSignIn)
			return
		}
		s.log.Error("removing watchlist entry", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove "+symbol)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// History and archived news
// ---------------------------------------------------------------------------

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.searches == nil {
		writeJSON(w, HistoryResponse{Searches: []domain.Snapshot{}})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var (
		snaps []domain.Snapshot
		err   error
	)
	if symbol := strings.ToUpper(r.URL.Query().Get("symbol")); symbol != "" {
		snaps, err = s.searches.BySymbol(r.Context(), symbol, limit)
	} else {
		snaps, err = s.searches.Recent(r.Context(), limit)
	}
	if err != nil {
		s.log.Error("reading search history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if snaps == nil {
		snaps = []domain.Snapshot{}
	}
	writeJSON(w, HistoryResponse{Searches: snaps})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	if s.archive == nil {
		writeJSON(w, NewsResponse{Symbol: symbol, Date: date, Items: []domain.NewsItem{}})
		return
	}

	items, err := s.archive.ReadDay(symbol, date)
	if err != nil {
		s.log.Error("reading news archive", "symbol", symbol, "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read news")
		return
	}
	if items == nil {
		items = []domain.NewsItem{}
	}
	writeJSON(w, NewsResponse{Symbol: symbol, Date: date, Items: items})
}
