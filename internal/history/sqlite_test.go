package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"stockpulse/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func snapshotAt(symbol string, price float64, searchedAt time.Time) *domain.Snapshot {
	return &domain.Snapshot{
		Symbol:        symbol,
		CompanyName:   symbol + " Corp",
		Price:         price,
		Currency:      "USD",
		ChangePercent: 1.5,
		MarketCap:     "1T",
		Sentiment:     domain.SentimentBullish,
		LastUpdated:   searchedAt,
	}
}

func TestRecentEmpty(t *testing.T) {
	store := openTestStore(t)

	snaps, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("len(snaps) = %d, want 0", len(snaps))
	}
}

func TestRecordRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	for i, sym := range []string{"AAPL", "NVDA", "MSFT"} {
		snap := snapshotAt(sym, float64(100+i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Record(ctx, snap); err != nil {
			t.Fatalf("Record %s: %v", sym, err)
		}
	}

	snaps, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("len(snaps) = %d, want 3", len(snaps))
	}

	// Newest first.
	wantOrder := []string{"MSFT", "NVDA", "AAPL"}
	for i, want := range wantOrder {
		if snaps[i].Symbol != want {
			t.Errorf("snaps[%d].Symbol = %q, want %q", i, snaps[i].Symbol, want)
		}
	}

	got := snaps[0]
	if got.CompanyName != "MSFT Corp" || got.Price != 102 || got.Currency != "USD" {
		t.Errorf("fields = %q %v %q, want MSFT Corp 102 USD", got.CompanyName, got.Price, got.Currency)
	}
	if got.Sentiment != domain.SentimentBullish {
		t.Errorf("Sentiment = %q, want %q", got.Sentiment, domain.SentimentBullish)
	}
	if !got.LastUpdated.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("LastUpdated = %v, want %v", got.LastUpdated, base.Add(2*time.Minute))
	}
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := store.Record(ctx, snapshotAt("AAPL", 100, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	snaps, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(snaps) != 2 {
		t.Errorf("len(snaps) = %d, want limit 2", len(snaps))
	}
}

func TestBySymbol(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	if err := store.Record(ctx, snapshotAt("AAPL", 195, base)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, snapshotAt("NVDA", 500, base.Add(time.Minute))); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, snapshotAt("AAPL", 196, base.Add(2*time.Minute))); err != nil {
		t.Fatalf("Record: %v", err)
	}

	snaps, err := store.BySymbol(ctx, "AAPL", 10)
	if err != nil {
		t.Fatalf("BySymbol: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len(snaps) = %d, want 2", len(snaps))
	}
	if snaps[0].Price != 196 || snaps[1].Price != 195 {
		t.Errorf("prices = %v %v, want newest-first 196 195", snaps[0].Price, snaps[1].Price)
	}
	for i, snap := range snaps {
		if snap.Symbol != "AAPL" {
			t.Errorf("snaps[%d].Symbol = %q, want AAPL", i, snap.Symbol)
		}
	}
}

func TestRecordSameTimestampOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	// Identical searched_at values fall back to insertion order via id.
	if err := store.Record(ctx, snapshotAt("AAPL", 1, at)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Record(ctx, snapshotAt("AAPL", 2, at)); err != nil {
		t.Fatalf("Record: %v", err)
	}

	snaps, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(snaps) != 2 || snaps[0].Price != 2 {
		t.Errorf("snaps[0].Price = %v, want the later insert 2", snaps[0].Price)
	}
}
