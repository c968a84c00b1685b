package directory

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-process directory for development and tests.
type Memory struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemory(users ...User) *Memory {
	m := &Memory{users: make(map[string]User, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *Memory) Upsert(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) Resolve(_ context.Context, f Filter) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for _, u := range m.users {
		if u.Active && matches(u, f) {
			ids = append(ids, u.ID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *Memory) Email(_ context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[userID]
	if !ok || !u.Active {
		return "", ErrNotFound
	}
	return u.Email, nil
}

func matches(u User, f Filter) bool {
	if f.IsEmpty() {
		return true
	}
	if slices.Contains(f.Roles, u.Role) || slices.Contains(f.UserIDs, u.ID) {
		return true
	}
	for _, team := range u.TeamIDs {
		if slices.Contains(f.TeamIDs, team) {
			return true
		}
	}
	return false
}
