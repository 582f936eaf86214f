// Package watchlist persists per-user watchlists and the current user
// profile in a local bbolt key-value file, and manages the signed-in session
// that owns the in-memory list.
package watchlist

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"stockpulse/internal/domain"
)

var (
	profileBucket   = []byte("profile")
	watchlistBucket = []byte("watchlists")

	// currentProfileKey holds the persisted signed-in user, so a restart
	// resumes the previous session.
	currentProfileKey = []byte("current")
)

// Store is the key-value persistence layer for profiles and watchlists.
// Every watchlist mutation rewrites the whole list for that user; there is
// no concurrent-writer protection beyond bbolt's single-writer transactions.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt file at path and ensures the buckets
// exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening watchlist store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(profileBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(watchlistBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored watchlist for a username, or an empty list when
// none exists. A malformed stored record fails loudly.
func (s *Store) Load(username string) ([]domain.WatchlistEntry, error) {
	var entries []domain.WatchlistEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(watchlistBucket).Get([]byte(username))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &entries)
	})
	if err != nil {
		return nil, fmt.Errorf("loading watchlist for %q: %w", username, err)
	}
	return entries, nil
}

// Save rewrites the whole watchlist for a username.
func (s *Store) Save(username string, entries []domain.WatchlistEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding watchlist for %q: %w", username, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(watchlistBucket).Put([]byte(username), raw)
	})
	if err != nil {
		return fmt.Errorf("saving watchlist for %q: %w", username, err)
	}
	return nil
}

// SaveProfile persists the current user profile.
func (s *Store) SaveProfile(profile domain.UserProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(profileBucket).Put(currentProfileKey, raw)
	})
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

// LoadProfile returns the persisted current profile, or nil when no user is
// stored.
func (s *Store) LoadProfile() (*domain.UserProfile, error) {
	var profile *domain.UserProfile
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(profileBucket).Get(currentProfileKey)
		if raw == nil {
			return nil
		}
		profile = &domain.UserProfile{}
		return json.Unmarshal(raw, profile)
	})
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	return profile, nil
}

// DeleteProfile removes the persisted current profile. Stored watchlists are
// untouched: they stay available for the user's next login.
func (s *Store) DeleteProfile() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(profileBucket).Delete(currentProfileKey)
	})
	if err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	return nil
}
