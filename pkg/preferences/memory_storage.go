package preferences

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage for development and tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	prefs map[string]Preference
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{prefs: make(map[string]Preference)}
}

func (s *MemoryStorage) Get(_ context.Context, userID string) (Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return Preference{}, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStorage) CreateIfAbsent(_ context.Context, p Preference) (Preference, error) {
	if p.UserID == "" {
		return Preference{}, ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.prefs[p.UserID]; ok {
		return existing.Clone(), nil
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	s.prefs[p.UserID] = p.Clone()
	return p.Clone(), nil
}

func (s *MemoryStorage) Save(_ context.Context, p Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.prefs[p.UserID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.LastDigestAt = existing.LastDigestAt
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	s.prefs[p.UserID] = p.Clone()
	return nil
}

func (s *MemoryStorage) ListDigestEnabled(_ context.Context) ([]Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Preference{}
	for _, p := range s.prefs {
		if p.DigestSettings.Enabled {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *MemoryStorage) MarkDigestSent(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prefs[userID]
	if !ok {
		return ErrNotFound
	}
	p.LastDigestAt = &at
	s.prefs[userID] = p
	return nil
}

// Len returns the number of stored preferences.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prefs)
}
