package notifications

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage for development and tests.
type MemoryStorage struct {
	mu          sync.RWMutex
	byID        map[string]Notification
	byRecipient map[string]map[string]struct{}
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:        make(map[string]Notification),
		byRecipient: make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStorage) Create(_ context.Context, n Notification) error {
	if n.ID == "" {
		return ErrMissingID
	}
	if n.RecipientID == "" {
		return ErrMissingRecipient
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[n.ID]; ok {
		return ErrDuplicateID
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if n.DeliveryStatus == nil {
		n.DeliveryStatus = DeliveryStatus{}
	}

	s.byID[n.ID] = n.Clone()
	ids, ok := s.byRecipient[n.RecipientID]
	if !ok {
		ids = make(map[string]struct{})
		s.byRecipient[n.RecipientID] = ids
	}
	ids[n.ID] = struct{}{}
	return nil
}

func (s *MemoryStorage) Get(_ context.Context, recipientID, id string) (Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.owned(recipientID, id)
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n.Clone(), nil
}

func (s *MemoryStorage) List(_ context.Context, recipientID string, f Filter) ([]Notification, error) {
	f = f.Normalize()

	s.mu.RLock()
	matched := make([]Notification, 0, len(s.byRecipient[recipientID]))
	for id := range s.byRecipient[recipientID] {
		if n := s.byID[id]; f.Match(n) {
			matched = append(matched, n.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, newestFirst)

	if f.Offset >= len(matched) {
		return []Notification{}, nil
	}
	end := min(f.Offset+f.Limit, len(matched))
	return matched[f.Offset:end], nil
}

func (s *MemoryStorage) MarkRead(_ context.Context, recipientID, id string, at time.Time) (Notification, error) {
	return s.mutate(recipientID, id, func(n *Notification) {
		if !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
		}
		n.UpdatedAt = at
	})
}

func (s *MemoryStorage) MarkAllRead(_ context.Context, recipientID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id := range s.byRecipient[recipientID] {
		n := s.byID[id]
		if n.IsRead || n.IsArchived {
			continue
		}
		readAt := at
		n.IsRead = true
		n.ReadAt = &readAt
		n.UpdatedAt = at
		s.byID[id] = n
		count++
	}
	return count, nil
}

func (s *MemoryStorage) Archive(_ context.Context, recipientID, id string, at time.Time) (Notification, error) {
	return s.mutate(recipientID, id, func(n *Notification) {
		if !n.IsArchived {
			n.IsArchived = true
			n.ArchivedAt = &at
		}
		n.UpdatedAt = at
	})
}

func (s *MemoryStorage) Delete(_ context.Context, recipientID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owned(recipientID, id); !ok {
		return ErrNotFound
	}
	s.remove(recipientID, id)
	return nil
}

func (s *MemoryStorage) UpdateDeliveryStatus(_ context.Context, id string, ch Channel, st ChannelStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	statuses := make(DeliveryStatus, len(n.DeliveryStatus)+1)
	for k, v := range n.DeliveryStatus {
		statuses[k] = v
	}
	statuses[ch] = st
	n.DeliveryStatus = statuses
	n.UpdatedAt = time.Now()
	s.byID[id] = n
	return nil
}

func (s *MemoryStorage) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, n := range s.byID {
		if n.ExpiresAt != nil && n.ExpiresAt.Before(now) {
			s.remove(n.RecipientID, id)
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) Stats(_ context.Context, recipientID string, now, todayStart time.Time) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := newStats()
	for id := range s.byRecipient[recipientID] {
		st.add(s.byID[id], now, todayStart)
	}
	return st, nil
}

// Len returns the number of stored rows.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *MemoryStorage) mutate(recipientID, id string, fn func(*Notification)) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.owned(recipientID, id)
	if !ok {
		return Notification{}, ErrNotFound
	}
	fn(&n)
	s.byID[id] = n
	return n.Clone(), nil
}

// owned must be called with s.mu held.
func (s *MemoryStorage) owned(recipientID, id string) (Notification, bool) {
	n, ok := s.byID[id]
	if !ok || n.RecipientID != recipientID {
		return Notification{}, false
	}
	return n, true
}

// remove must be called with s.mu held for writing.
func (s *MemoryStorage) remove(recipientID, id string) {
	delete(s.byID, id)
	if ids, ok := s.byRecipient[recipientID]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byRecipient, recipientID)
		}
	}
}

func newestFirst(a, b Notification) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}
