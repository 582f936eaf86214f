// Package history records every successful structured search in a SQLite
// database and serves recent lookups back to the dashboard.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"stockpulse/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS searches (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol         TEXT    NOT NULL,
	company_name   TEXT    NOT NULL,
	price          REAL    NOT NULL,
	currency       TEXT    NOT NULL,
	change_percent REAL    NOT NULL,
	market_cap     TEXT    NOT NULL,
	sentiment      TEXT    NOT NULL,
	searched_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_searches_symbol ON searches(symbol);
`

// Store persists search history backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at dbPath and ensures the schema
// exists.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one search result row.
func (s *Store) Record(ctx context.Context, snap *domain.Snapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches
			(symbol, company_name, price, currency, change_percent, market_cap, sentiment, searched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Symbol, snap.CompanyName, snap.Price, snap.Currency,
		snap.ChangePercent, snap.MarketCap, string(snap.Sentiment),
		snap.LastUpdated.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording search for %s: %w", snap.Symbol, err)
	}
	return nil
}

// Recent returns the most recent searches, newest first, up to limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, company_name, price, currency, change_percent, market_cap, sentiment, searched_at
		 FROM searches ORDER BY searched_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent searches: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// BySymbol returns the most recent searches for one symbol, newest first.
func (s *Store) BySymbol(ctx context.Context, symbol string, limit int) ([]domain.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, company_name, price, currency, change_percent, market_cap, sentiment, searched_at
		 FROM searches WHERE symbol = ? ORDER BY searched_at DESC, id DESC LIMIT ?`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("listing searches for %s: %w", symbol, err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

func scanSnapshots(rows *sql.Rows) ([]domain.Snapshot, error) {
	var snaps []domain.Snapshot
	for rows.Next() {
		var snap domain.Snapshot
		var sentiment string
		var searchedAt int64
		if err := rows.Scan(&snap.Symbol, &snap.CompanyName, &snap.Price, &snap.Currency,
			&snap.ChangePercent, &snap.MarketCap, &sentiment, &searchedAt); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		snap.Sentiment = domain.Sentiment(sentiment)
		snap.LastUpdated = time.UnixMilli(searchedAt)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
