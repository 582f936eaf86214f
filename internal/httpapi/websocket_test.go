package httpapi

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stockpulse/internal/domain"
	"stockpulse/internal/sim"
	"stockpulse/internal/watchlist"
)

func TestStream(t *testing.T) {
	store, err := watchlist.Open(filepath.Join(t.TempDir(), "watchlist.db"))
	if err != nil {
		t.Fatalf("opening watchlist store: %v", err)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	simulator := sim.NewSimulator(5*time.Millisecond, logger)
	defer simulator.Stop()

	srv := NewServer(&fakeSearcher{}, watchlist.NewSession(store), simulator, nil, nil, true, logger)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	simulator.Start(domain.Snapshot{Symbol: "NVDA", Price: 500, ChangePercent: 2.5})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing stream: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for i := 0; i < 3; i++ {
		var tick domain.Tick
		if err := conn.ReadJSON(&tick); err != nil {
			t.Fatalf("reading tick %d: %v", i, err)
		}
		if tick.Symbol != "NVDA" {
			t.Errorf("tick %d symbol = %q, want NVDA", i, tick.Symbol)
		}
		if tick.Price <= 0 {
			t.Errorf("tick %d price = %v, want positive", i, tick.Price)
		}
	}
}

func TestStreamSimulatorDisabled(t *testing.T) {
	store, err := watchlist.Open(filepath.Join(t.TempDir(), "watchlist.db"))
	if err != nil {
		t.Fatalf("opening watchlist store: %v", err)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(&fakeSearcher{}, watchlist.NewSession(store), nil, nil, nil, false, logger)

	rec := doRequest(t, srv.Handler(), "GET", "/api/stream", nil)
	if rec.Code != 503 {
		t.Errorf("status = %d, want 503 when the simulator is absent", rec.Code)
	}
}
