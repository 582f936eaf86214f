package watchlist

import (
	"errors"
	"sync"

	"stockpulse/internal/domain"
)

// ErrNotSignedIn is returned by watchlist mutations attempted without a
// signed-in user. The API layer maps it to the sign-in prompt flow.
var ErrNotSignedIn = errors.New("watchlist: not signed in")

// ErrEmptyUsername is returned by Login for a blank username.
var ErrEmptyUsername = errors.New("watchlist: username must not be empty")

// Session holds the signed-in user and their in-memory watchlist. It is
// created empty at startup, populated on login by loading from the store,
// and cleared (not destroyed) on logout.
type Session struct {
	mu      sync.Mutex
	store   *Store
	user    *domain.UserProfile
	entries []domain.WatchlistEntry
}

// NewSession creates an empty session backed by the given store.
func NewSession(store *Store) *Session {
	return &Session{store: store}
}

// Resume restores a previously persisted session, if any, and loads that
// user's watchlist. Called once at startup.
func (s *Session) Resume() error {
	profile, err := s.store.LoadProfile()
	if err != nil {
		return err
	}
	if profile == nil {
		return nil
	}
	entries, err := s.store.Load(profile.Username)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.user = profile
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Login signs in the given username, persists the profile, and replaces the
// in-memory watchlist with whatever is durably stored for that user.
func (s *Session) Login(username string) error {
	if username == "" {
		return ErrEmptyUsername
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := domain.UserProfile{Username: username}
	if err := s.store.SaveProfile(profile); err != nil {
		return err
	}
	entries, err := s.store.Load(username)
	if err != nil {
		return err
	}
	s.user = &profile
	s.entries = entries
	return nil
}

// Logout clears the session. The in-memory list is discarded but the stored
// watchlist under the user's key is retained for next login.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteProfile(); err != nil {
		return err
	}
	s.user = nil
	s.entries = nil
	return nil
}

// User returns the signed-in profile, or nil.
func (s *Session) User() *domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Entries returns a copy of the current in-memory watchlist.
func (s *Session) Entries() []domain.WatchlistEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entriesCopy()
}

// Add appends an entry and persists the whole list synchronously. Adding a
// symbol that is already tracked is a no-op, which makes Add idempotent.
func (s *Session) Add(entry domain.WatchlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return ErrNotSignedIn
	}
	if s.isTracked(entry.Symbol) {
		return nil
	}
	updated := append(s.entriesCopy(), entry)
	if err := s.store.Save(s.user.Username, updated); err != nil {
		return err
	}
	s.entries = updated
	return nil
}

// Remove filters the entry out by symbol and persists synchronously.
// Removing an absent symbol is a no-op, not an error.
func (s *Session) Remove(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return ErrNotSignedIn
	}
	updated := make([]domain.WatchlistEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Symbol != symbol {
			updated = append(updated, e)
		}
	}
	if len(updated) == len(s.entries) {
		return nil
	}
	if err := s.store.Save(s.user.Username, updated); err != nil {
		return err
	}
	s.entries = updated
	return nil
}

// IsTracked reports whether the symbol is in the current user's list.
func (s *Session) IsTracked(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isTracked(symbol)
}

func (s *Session) isTracked(symbol string) bool {
	for _, e := range s.entries {
		if e.Symbol == symbol {
			return true
		}
	}
	return false
}

func (s *Session) entriesCopy() []domain.WatchlistEntry {
	out := make([]domain.WatchlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
